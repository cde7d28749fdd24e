package insight

import (
	"sort"

	"github.com/hyperengineering/finsight/internal/types"
)

// Sort orders insights unread first, then by priority, then newest first.
// Items without read state (tips, suggestions) rank with the unread ones.
// Ties fall back to id so the order is total.
func Sort(insights []types.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		a, b := insights[i], insights[j]
		if ra, rb := readRank(a), readRank(b); ra != rb {
			return ra < rb
		}
		if pa, pb := a.Priority.Rank(), b.Priority.Rank(); pa != pb {
			return pa < pb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func readRank(in types.Insight) int {
	if in.HasReadState() && in.IsRead {
		return 1
	}
	return 0
}

package override

import (
	"strconv"
	"strings"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
)

// minBucket is the month index of January 2000. Smaller trailing numbers
// are plain ids, not months.
const minBucket = 2000 * 12

// Expired reports whether id, marked at markedAt, belongs to a month that
// ended before the month of cutoff, so no later evaluation pass can
// produce it again.
//
// Two id shapes carry a month: ids ending in a month index
// ("savings-low-24321", "challenge-reduce-casa-24321") and budget ids,
// which are derived only during their budget's month and so were marked
// in it. Every other id is static and never expires; goal ids end in the
// goal's own id, which may be numeric.
func Expired(id string, markedAt, cutoff time.Time) bool {
	limit := types.MonthIndex(cutoff.UTC())
	if strings.HasPrefix(id, "goal-") {
		return false
	}
	if strings.HasPrefix(id, "budget-exceeded-") || strings.HasPrefix(id, "budget-warning-") {
		return types.MonthIndex(markedAt.UTC()) < limit
	}
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i == len(id)-1 {
		return false
	}
	bucket, err := strconv.Atoi(id[i+1:])
	if err != nil || bucket < minBucket {
		return false
	}
	return bucket < limit
}

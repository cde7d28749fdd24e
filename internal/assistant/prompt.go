package assistant

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/finsight/internal/types"
)

// maxPromptItems caps how many feed entries are sent to the model.
const maxPromptItems = 20

const systemPrompt = `You are a personal finance assistant. You receive a list of insights about ` +
	`the user's month: alerts, tips and challenge suggestions, most important first. ` +
	`Write a digest of at most four sentences in plain language. Lead with what needs ` +
	`attention now, mention one concrete next step, and do not invent numbers.`

// buildPrompt renders items, already sorted, as one line each.
func buildPrompt(items []types.Insight) string {
	var b strings.Builder
	b.WriteString("Insights:\n")
	for i, in := range items {
		if i == maxPromptItems {
			fmt.Fprintf(&b, "(%d more omitted)\n", len(items)-maxPromptItems)
			break
		}
		state := ""
		if in.HasReadState() && in.IsRead {
			state = " (read)"
		}
		fmt.Fprintf(&b, "- [%s %s/%s]%s %s: %s\n", in.Priority, in.Kind, in.Category, state, in.Title, in.Message)
	}
	return b.String()
}

package coach

import "mirs-coach-be/pkg/llm"

const (
	// DefaultHistoryBudget caps how many characters of past conversation are
	// replayed into a coaching completion.
	DefaultHistoryBudget = 4000

	// turnOverhead approximates the role label and framing characters each
	// turn costs on top of its content.
	turnOverhead = 12
)

// TrimHistory walks the history most-recent-first, accumulating content
// length plus a small per-turn overhead, and stops once the budget is
// reached and at least one turn has been collected. The newest turn is
// always kept, even when it alone exceeds the budget. Turns come back in
// chronological order.
func TrimHistory(history []llm.Message, budget int) []llm.Message {
	if budget <= 0 {
		budget = DefaultHistoryBudget
	}
	if len(history) == 0 {
		return history
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := len(history[i].Content) + turnOverhead
		if total+cost > budget && start < len(history) {
			break
		}
		total += cost
		start = i
	}

	return history[start:]
}

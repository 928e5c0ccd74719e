// Package rubric carries the pre-computed evidentiary basis for coaching:
// the refinement payload and per-item metrics produced by the upstream
// scoring pipeline. The core treats all of it as immutable input.
package rubric

import "errors"

// Quote is one transcript excerpt cited as evidence.
type Quote struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Refinement is the fixed rubric verdict for one scored interview.
type Refinement struct {
	FinalFeedback string   `json:"final_feedback"`
	Rationale     string   `json:"rationale"`
	Score         float64  `json:"score"`
	Explanation   string   `json:"explanation"`
	Quotes        []Quote  `json:"quotes"`
	Suggestions   []string `json:"suggestions"`
}

// ItemMetric is the score and explanation for one rubric item.
type ItemMetric struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Metrics maps item name to its metric. The prompt builder scopes it per
// category at use time.
type Metrics map[string]ItemMetric

var (
	ErrNotFound     = errors.New("grade not found")
	ErrNotReady     = errors.New("conversation has not been fully processed yet")
	ErrNoItems      = errors.New("no rubric items available for this conversation")
	ErrInvalidItems = errors.New("rubric items are invalid")
)

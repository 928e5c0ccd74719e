package prompt

import (
	"fmt"
	"strings"

	"mirs-coach-be/pkg/mirs"
	"mirs-coach-be/pkg/rubric"
)

const (
	// Target sentence range for a coaching reply.
	DefaultMinSentences = 3
	DefaultMaxSentences = 6

	noItemsPlaceholder       = "No scored items fall under this category for this interview."
	noSuggestionsPlaceholder = "No specific suggestions were recorded for this interview."
)

// Builder assembles the category-scoped coaching system prompt. Assembly is
// a pure function of its inputs: the same category, refinement and metrics
// always produce the same prompt text.
type Builder struct {
	category   mirs.Category
	refinement *rubric.Refinement
	metrics    rubric.Metrics
}

func NewBuilder(category mirs.Category, refinement *rubric.Refinement, metrics rubric.Metrics) *Builder {
	return &Builder{
		category:   category,
		refinement: refinement,
		metrics:    metrics,
	}
}

func (b *Builder) Build() string {
	var prompt strings.Builder

	b.writeRole(&prompt)
	b.writeEvidence(&prompt)
	b.writeItems(&prompt)
	b.writeSuggestions(&prompt)
	b.writeQuotes(&prompt)
	b.writeRules(&prompt)

	return prompt.String()
}

func (b *Builder) writeRole(prompt *strings.Builder) {
	prompt.WriteString("<role>\n")
	prompt.WriteString("You are a communication-skills coach debriefing a medical learner after a scored simulated patient interview.\n")
	fmt.Fprintf(prompt, "The active rubric category is %q (%s). Stay inside this category.\n", b.category, mirs.Label(b.category))
	prompt.WriteString("</role>\n\n")
}

func (b *Builder) writeEvidence(prompt *strings.Builder) {
	prompt.WriteString("<evidence>\n")
	fmt.Fprintf(prompt, "Overall score: %.1f\n", b.refinement.Score)
	if b.refinement.Explanation != "" {
		fmt.Fprintf(prompt, "Score explanation: %s\n", b.refinement.Explanation)
	}
	if b.refinement.Rationale != "" {
		fmt.Fprintf(prompt, "Rationale: %s\n", b.refinement.Rationale)
	}
	if b.refinement.FinalFeedback != "" {
		fmt.Fprintf(prompt, "Final feedback: %s\n", b.refinement.FinalFeedback)
	}
	prompt.WriteString("</evidence>\n\n")
}

// writeItems renders the category's rubric items that actually carry a
// metric for this interview, in configuration declaration order.
func (b *Builder) writeItems(prompt *strings.Builder) {
	prompt.WriteString("<scored_items>\n")

	written := 0
	if cfg, ok := mirs.Lookup(b.category); ok {
		for _, item := range cfg.Items {
			metric, ok := b.metrics[item]
			if !ok {
				continue
			}
			fmt.Fprintf(prompt, "%s: %.1f; why: %s\n", item, metric.Score, metric.Explanation)
			written++
		}
	}
	if written == 0 {
		prompt.WriteString(noItemsPlaceholder + "\n")
	}

	prompt.WriteString("</scored_items>\n\n")
}

func (b *Builder) writeSuggestions(prompt *strings.Builder) {
	prompt.WriteString("<suggestions>\n")
	if len(b.refinement.Suggestions) == 0 {
		prompt.WriteString(noSuggestionsPlaceholder + "\n")
	}
	for _, s := range b.refinement.Suggestions {
		fmt.Fprintf(prompt, "- %s\n", s)
	}
	prompt.WriteString("</suggestions>\n\n")
}

func (b *Builder) writeQuotes(prompt *strings.Builder) {
	prompt.WriteString("<transcript_quotes>\n")
	for _, q := range b.refinement.Quotes {
		if q.Text == "" {
			continue
		}
		fmt.Fprintf(prompt, "[%d] %s: %s\n", q.Index, q.Speaker, q.Text)
	}
	prompt.WriteString("</transcript_quotes>\n\n")
}

func (b *Builder) writeRules(prompt *strings.Builder) {
	prompt.WriteString("<rules>\n")
	fmt.Fprintf(prompt, "1. Reply in %d to %d sentences.\n", DefaultMinSentences, DefaultMaxSentences)
	prompt.WriteString("2. End with exactly one guiding question. Never more than one question.\n")
	prompt.WriteString("3. The numeric scores above are fixed evidence. Never re-score, re-grade or promise a different score.\n")
	prompt.WriteString("4. Ground every claim in the evidence, items, suggestions or quotes above.\n")
	prompt.WriteString("</rules>")
}

// Build is the package-level convenience for one-shot assembly.
func Build(category mirs.Category, refinement *rubric.Refinement, metrics rubric.Metrics) string {
	return NewBuilder(category, refinement, metrics).Build()
}

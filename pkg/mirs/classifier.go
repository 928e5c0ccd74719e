package mirs

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"mirs-coach-be/pkg/llm"
	"mirs-coach-be/pkg/llm/schema"
)

// Detection is the outcome of classifying one turn. Reason is free text
// for observability only and is never parsed downstream.
type Detection struct {
	Category Category
	Reason   string
}

const (
	ReasonDirectMatch  = "direct category match"
	ReasonKeptPrevious = "kept previous due to ambiguity"
	ReasonDefault      = "default to OPEN (no clear signal)"
)

// DefaultSnippetBudget caps the history snippet handed to the model
// fallback, in characters.
const DefaultSnippetBudget = 2400

// Classifier routes one conversation's turns into MIRS categories. It
// owns the sticky last-detected category for that conversation, so an
// instance must not be shared across conversations.
type Classifier struct {
	provider      llm.Provider // nil disables the model fallback
	snippetBudget int
	logger        *log.Logger

	last    Category
	hasLast bool
}

func NewClassifier(provider llm.Provider, snippetBudget int, logger *log.Logger) *Classifier {
	if snippetBudget <= 0 {
		snippetBudget = DefaultSnippetBudget
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Classifier{
		provider:      provider,
		snippetBudget: snippetBudget,
		logger:        logger,
	}
}

// Detect classifies the turn. It never fails: every internal failure
// degrades to a weaker signal, ending at the default category. Each rule
// short-circuits in strict priority order, and every return updates the
// sticky memory.
func (c *Classifier) Detect(ctx context.Context, text string, history []llm.Message) Detection {
	normalized := Normalize(text)

	if det, ok := c.matchLabel(normalized); ok {
		return c.remember(det)
	}
	if det, ok := c.matchItem(normalized); ok {
		return c.remember(det)
	}
	if det, ok := c.matchTrigger(normalized, text); ok {
		return c.remember(det)
	}
	if c.hasLast {
		return c.remember(Detection{Category: c.last, Reason: ReasonKeptPrevious})
	}
	if c.provider != nil {
		if det, ok := c.classifyWithModel(ctx, text, history); ok {
			return c.remember(det)
		}
	}
	return c.remember(Detection{Category: DefaultCategory, Reason: ReasonDefault})
}

func (c *Classifier) remember(det Detection) Detection {
	c.last = det.Category
	c.hasLast = true
	return det
}

// matchLabel wins immediately when the whole turn names a category by key
// or label. Explicit naming bypasses all heuristics.
func (c *Classifier) matchLabel(normalized string) (Detection, bool) {
	for i := range Categories {
		cfg := &Categories[i]
		if normalized == strings.ToLower(string(cfg.Key)) || normalized == strings.ToLower(cfg.Label) {
			return Detection{Category: cfg.Key, Reason: ReasonDirectMatch}, true
		}
	}
	return Detection{}, false
}

// matchItem fires on the first configured item name contained in the
// normalized text. Declaration order is the tie-break.
func (c *Classifier) matchItem(normalized string) (Detection, bool) {
	for i := range Categories {
		cfg := &Categories[i]
		for _, item := range cfg.Items {
			if strings.Contains(normalized, strings.ToLower(item)) {
				return Detection{
					Category: cfg.Key,
					Reason:   fmt.Sprintf("matched item '%s'", item),
				}, true
			}
		}
	}
	return Detection{}, false
}

// matchTrigger fires on the first regex trigger matching the normalized
// text, unless the matched span sits inside quotation marks in the
// original text. Quoting text about a category must not switch into it.
func (c *Classifier) matchTrigger(normalized, original string) (Detection, bool) {
	for i := range Categories {
		cfg := &Categories[i]
		for _, re := range cfg.Triggers {
			if !re.MatchString(normalized) {
				continue
			}
			if matchInsideQuotes(original, re) {
				c.logger.Printf("[CLASSIFIER] Trigger %q for %s suppressed: match is quoted", re.String(), cfg.Key)
				continue
			}
			return Detection{
				Category: cfg.Key,
				Reason:   fmt.Sprintf("matched trigger pattern '%s'", re.String()),
			}, true
		}
	}
	return Detection{}, false
}

// matchInsideQuotes is a naive quote-delimiter bracketing check: it
// locates the pattern in the original (non-normalized) text and reports
// whether an odd number of double-quote characters precede it. Single
// quotes are ignored because apostrophes make them unreliable.
func matchInsideQuotes(original string, re *regexp.Regexp) bool {
	loc := re.FindStringIndex(strings.ToLower(original))
	if loc == nil {
		return false
	}
	opens := 0
	for _, r := range original[:loc[0]] {
		switch r {
		case '"', '“', '”':
			opens++
		}
	}
	return opens%2 == 1
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	smartQuoteMap = strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
	)
)

// Normalize collapses smart quotes to straight quotes, collapses runs of
// whitespace to single spaces, trims, and lowercases. All comparisons use
// this form except the quoted-trigger check, which re-inspects the
// original text to preserve quote characters.
func Normalize(text string) string {
	s := smartQuoteMap.Replace(text)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// HistorySnippet renders a reverse-budgeted slice of the conversation:
// it walks turns newest-first, accumulating role-tagged lines until the
// running character total would exceed budget (the most recent turn is
// always included), then emits the collected turns in chronological
// order.
func HistorySnippet(history []llm.Message, budget int) string {
	if budget <= 0 {
		budget = DefaultSnippetBudget
	}
	var collected []string
	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		line := history[i].Role + ": " + history[i].Content
		cost := len(line) + 1
		if len(collected) > 0 && total+cost > budget {
			break
		}
		collected = append(collected, line)
		total += cost
	}
	// reverse back to chronological order
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return strings.Join(collected, "\n")
}

type modelDetection struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

var modelDetectionSchema = schema.Generate[modelDetection]()

func (c *Classifier) classifyWithModel(ctx context.Context, text string, history []llm.Message) (Detection, bool) {
	snippet := HistorySnippet(history, c.snippetBudget)

	var sb strings.Builder
	sb.WriteString("You classify one turn of a medical-education coaching conversation into exactly one MIRS rubric category.\n\n")
	sb.WriteString("Categories:\n")
	for i := range Categories {
		cfg := &Categories[i]
		sb.WriteString(fmt.Sprintf("- %s (%s): items: %s\n", cfg.Key, cfg.Label, strings.Join(cfg.Items, ", ")))
	}
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Answer with the single best category key and a one-sentence reason.\n")
	sb.WriteString("- OPEN is the catch-all. If the learner names a concrete rubric item or skill, do NOT answer OPEN.\n")

	var user strings.Builder
	if snippet != "" {
		user.WriteString("Recent conversation:\n")
		user.WriteString(snippet)
		user.WriteString("\n\n")
	}
	user.WriteString("Latest learner message:\n")
	user.WriteString(text)

	messages := []llm.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: user.String()},
	}

	var out modelDetection
	err := c.provider.ChatStructured(ctx, messages, "TurnCategory", modelDetectionSchema, &out, llm.WithTemperature(0))
	if err != nil {
		c.logger.Printf("[CLASSIFIER] Model fallback failed: %v", err)
		return Detection{}, false
	}

	category := Category(strings.ToUpper(strings.TrimSpace(out.Category)))
	if !Valid(category) {
		c.logger.Printf("[CLASSIFIER] Model returned unknown category %q", out.Category)
		return Detection{}, false
	}

	reason := strings.TrimSpace(out.Reason)
	if reason == "" {
		reason = "model classification"
	}
	return Detection{Category: category, Reason: reason}, true
}

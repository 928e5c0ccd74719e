package coach

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"mirs-coach-be/pkg/coach/prompt"
	"mirs-coach-be/pkg/llm"
	"mirs-coach-be/pkg/mirs"
	"mirs-coach-be/pkg/rubric"
)

// DefaultTemperature is the sampling temperature for coaching completions.
// Both the blocking and streaming paths use the same value.
const DefaultTemperature = 0.7

// Generator turns a classified user turn plus the rubric evidence into a
// coaching reply.
type Generator struct {
	provider      llm.Provider
	temperature   float64
	historyBudget int
	logger        *log.Logger
}

func NewGenerator(provider llm.Provider, temperature float64, historyBudget int, logger *log.Logger) *Generator {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if historyBudget <= 0 {
		historyBudget = DefaultHistoryBudget
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Generator{
		provider:      provider,
		temperature:   temperature,
		historyBudget: historyBudget,
		logger:        logger,
	}
}

func (g *Generator) messages(userText string, category mirs.Category, history []llm.Message, refinement *rubric.Refinement, metrics rubric.Metrics) []llm.Message {
	systemPrompt := prompt.Build(category, refinement, metrics)
	trimmed := TrimHistory(history, g.historyBudget)

	msgs := make([]llm.Message, 0, len(trimmed)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, trimmed...)
	msgs = append(msgs, llm.Message{Role: "user", Content: userText})
	return msgs
}

// Generate produces a blocking coaching reply. It never fails outward: a
// completion error yields a user-visible apology embedding the error.
func (g *Generator) Generate(ctx context.Context, userText string, category mirs.Category, history []llm.Message, refinement *rubric.Refinement, metrics rubric.Metrics) string {
	msgs := g.messages(userText, category, history, refinement, metrics)

	reply, err := g.provider.Chat(ctx, msgs, llm.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Printf("[ERROR] coaching completion failed: %v", err)
		return fmt.Sprintf("Sorry, I could not generate a coaching reply right now (error: %v). Please try again.", err)
	}
	return reply
}

// GenerateStream produces the coaching reply as a sequence of fragments
// delivered through onFragment, and returns the accumulated reply once the
// stream finishes. A fragment callback error or context cancellation stops
// the stream; the caller decides what happens to the partial text.
func (g *Generator) GenerateStream(ctx context.Context, userText string, category mirs.Category, history []llm.Message, refinement *rubric.Refinement, metrics rubric.Metrics, onFragment func(string) error) (string, error) {
	msgs := g.messages(userText, category, history, refinement, metrics)

	var reply strings.Builder
	err := g.provider.ChatStream(ctx, msgs, func(delta string) error {
		if err := onFragment(delta); err != nil {
			return err
		}
		reply.WriteString(delta)
		return nil
	}, llm.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Printf("[ERROR] streaming coaching completion failed: %v", err)
		return "", err
	}

	return reply.String(), nil
}

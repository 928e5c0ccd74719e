package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mirs-coach-be/pkg/llm"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

type OpenAIProvider struct {
	client openai.Client
	model  string
}

var _ llm.Provider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	params := p.buildParams(history, opts...)
	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	return resp.OutputText(), nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta func(string) error, opts ...llm.Option) error {
	params := p.buildParams(history, opts...)
	stream := p.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		if event.Type == "response.output_text.delta" && event.Delta.OfString != "" {
			if err := onDelta(event.Delta.OfString); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream failed: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) ChatStructured(ctx context.Context, history []llm.Message, schemaName string, schema map[string]interface{}, out interface{}, opts ...llm.Option) error {
	params := p.buildParams(history, opts...)
	params.Text = responses.ResponseTextConfigParam{
		Format: responses.ResponseFormatTextConfigUnionParam{
			OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
				Name:   schemaName,
				Schema: schema,
				Strict: openai.Bool(true),
				Type:   "json_schema",
			},
		},
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai request failed: %w", err)
	}
	text := strings.TrimSpace(resp.OutputText())
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("unmarshal structured content %q: %w", schemaName, err)
	}
	return nil
}

func (p *OpenAIProvider) buildParams(history []llm.Message, opts ...llm.Option) responses.ResponseNewParams {
	options := llm.ApplyOptions(opts...)

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	items := make([]responses.ResponseInputItemUnionParam, 0, len(history))
	for _, msg := range history {
		items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, mapRole(msg.Role)))
	}

	params := responses.ResponseNewParams{
		Model:       model,
		Temperature: openai.Float(options.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if options.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(options.MaxTokens))
	}
	return params
}

func mapRole(role string) responses.EasyInputMessageRole {
	switch role {
	case "assistant", "model":
		return responses.EasyInputMessageRoleAssistant
	case "system":
		return responses.EasyInputMessageRoleSystem
	default:
		return responses.EasyInputMessageRoleUser
	}
}

package factory

import (
	"fmt"

	"mirs-coach-be/pkg/llm"
	"mirs-coach-be/pkg/llm/ollama"
	"mirs-coach-be/pkg/llm/openai"
)

func NewProvider(providerType, modelName, ollamaBaseURL, openAIKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if ollamaBaseURL == "" {
			ollamaBaseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	case "openai":
		if openAIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewOpenAIProvider(openAIKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

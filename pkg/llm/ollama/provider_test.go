package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mirs-coach-be/pkg/llm"
)

func TestChatSendsModelAndTemperature(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "hello back"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hello"},
	}, llm.WithTemperature(0.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply != "hello back" {
		t.Errorf("reply mismatch: %q", reply)
	}
	if got.Model != "llama3" {
		t.Errorf("model mismatch: %q", got.Model)
	}
	if got.Stream {
		t.Error("blocking chat must not request a stream")
	}
	if got.Options == nil || got.Options.Temperature != 0.2 {
		t.Errorf("temperature not forwarded: %+v", got.Options)
	}
}

func TestChatMapsModelRoleToAssistant(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaChatResponse{Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	_, err := p.Chat(context.Background(), []llm.Message{
		{Role: "model", Content: "previous reply"},
		{Role: "user", Content: "next question"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Messages[0].Role != "assistant" {
		t.Errorf("legacy 'model' role should map to 'assistant', got %q", got.Messages[0].Role)
	}
}

func TestChatStreamForwardsFragmentsUntilDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("streaming chat must set stream=true")
		}
		chunks := []ollamaChatResponse{
			{Message: ollamaMessage{Content: "Good "}},
			{Message: ollamaMessage{Content: "start."}},
			{Done: true},
			{Message: ollamaMessage{Content: "never delivered"}},
		}
		enc := json.NewEncoder(w)
		for _, c := range chunks {
			enc.Encode(c)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	var fragments []string
	err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		fragments = append(fragments, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments before done, got %v", fragments)
	}
	if fragments[0]+fragments[1] != "Good start." {
		t.Errorf("fragment content mismatch: %v", fragments)
	}
}

func TestChatStreamStopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		for i := 0; i < 5; i++ {
			enc.Encode(ollamaChatResponse{Message: ollamaMessage{Content: fmt.Sprintf("chunk%d", i)}})
		}
		enc.Encode(ollamaChatResponse{Done: true})
	}))
	defer srv.Close()

	stop := errors.New("client gone")
	p := NewOllamaProvider(srv.URL, "llama3")
	delivered := 0
	err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		delivered++
		if delivered == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error back, got %v", err)
	}
	if delivered != 2 {
		t.Errorf("delivery should stop at the error, got %d", delivered)
	}
}

func TestChatStructuredSendsSchemaAndDecodes(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Content: `{"category":"GATH","reason":"names a rubric item"}`},
			Done:    true,
		})
	}))
	defer srv.Close()

	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category": map[string]interface{}{"type": "string"},
			"reason":   map[string]interface{}{"type": "string"},
		},
	}

	var out struct {
		Category string `json:"category"`
		Reason   string `json:"reason"`
	}
	p := NewOllamaProvider(srv.URL, "llama3")
	err := p.ChatStructured(context.Background(), []llm.Message{{Role: "user", Content: "classify"}}, "TurnCategory", schema, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Category != "GATH" {
		t.Errorf("decoded category mismatch: %q", out.Category)
	}
	if got.Format == nil {
		t.Error("schema should be sent as the format field")
	}
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected an error for non-200 status")
	}
}

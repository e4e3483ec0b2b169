package prompt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dualgen/api/internal/client"
	"github.com/dualgen/api/internal/config"
	"github.com/dualgen/api/internal/model"
)

func llmTestServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte("server error"))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func generatorFor(baseURL string) *Generator {
	return NewGenerator(client.NewLLMClient(&config.LLMConfig{
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 5,
	}))
}

func TestGenerateFromLLM(t *testing.T) {
	srv := llmTestServer(t, "  \"neon koi pond at midnight\"  ", http.StatusOK)
	defer srv.Close()

	result := generatorFor(srv.URL).Generate(context.Background(), "koi", "")

	if result.Source != model.PromptSourceLLM {
		t.Fatalf("source = %q, want llm", result.Source)
	}
	if result.Prompt != "neon koi pond at midnight" {
		t.Errorf("prompt = %q, quoting and whitespace should be stripped", result.Prompt)
	}
	if result.Model != "test-model" {
		t.Errorf("model = %q, want test-model", result.Model)
	}
	if result.Error != "" {
		t.Errorf("unexpected error %q", result.Error)
	}
}

func TestGenerateFallsBackOnServerError(t *testing.T) {
	srv := llmTestServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	result := generatorFor(srv.URL).Generate(context.Background(), "desert", "")

	if result.Source != model.PromptSourceFallback {
		t.Fatalf("source = %q, want fallback", result.Source)
	}
	if result.Prompt == "" {
		t.Fatal("fallback must still produce a prompt")
	}
	if !strings.HasPrefix(result.Prompt, "desert") {
		t.Errorf("fallback prompt should lead with the steering concept, got %q", result.Prompt)
	}
	if result.Error == "" {
		t.Error("fallback result should record the failure reason")
	}
}

func TestGenerateFallsBackOnEmptyCompletion(t *testing.T) {
	srv := llmTestServer(t, "   ", http.StatusOK)
	defer srv.Close()

	result := generatorFor(srv.URL).Generate(context.Background(), "", "")
	if result.Source != model.PromptSourceFallback {
		t.Fatalf("source = %q, want fallback", result.Source)
	}
	if result.Prompt == "" {
		t.Fatal("fallback must still produce a prompt")
	}
}

func TestGenerateWithoutClient(t *testing.T) {
	result := NewGenerator(nil).Generate(context.Background(), "", "")
	if result.Source != model.PromptSourceFallback {
		t.Fatalf("source = %q, want fallback", result.Source)
	}
	// Ad-lib prompts are comma-joined fragments.
	if len(strings.Split(result.Prompt, ", ")) < 4 {
		t.Errorf("unexpectedly short ad-lib prompt %q", result.Prompt)
	}
}

func TestGenerateUnconfiguredClient(t *testing.T) {
	gen := generatorFor("")
	result := gen.Generate(context.Background(), "", "")
	if result.Source != model.PromptSourceFallback {
		t.Fatalf("source = %q, want fallback", result.Source)
	}
}

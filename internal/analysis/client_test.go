package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsLens/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionsHandler(t *testing.T, content string, capture *completionRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestClientInfer(t *testing.T) {
	t.Parallel()

	var captured completionRequest
	server := httptest.NewServer(completionsHandler(t, `  {"category": "technology"}  `, &captured))
	defer server.Close()

	client := NewClient(config.InferenceConfig{
		Endpoint:       server.URL,
		Model:          "test-model",
		TimeoutSeconds: 5,
		MaxTokens:      321,
	}, testLogger())

	raw, err := client.Infer(context.Background(), TaskCategorize, "A Title", "Some content")
	if err != nil {
		t.Fatalf("Infer error: %v", err)
	}
	if raw != `{"category": "technology"}` {
		t.Fatalf("unexpected output: %q", raw)
	}

	if captured.Model != "test-model" {
		t.Fatalf("unexpected model: %s", captured.Model)
	}
	if captured.MaxTokens != 321 {
		t.Fatalf("unexpected max tokens: %d", captured.MaxTokens)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", captured.Messages)
	}
}

func TestClientInferSummaryTokens(t *testing.T) {
	t.Parallel()

	var captured completionRequest
	server := httptest.NewServer(completionsHandler(t, "A short summary.", &captured))
	defer server.Close()

	client := NewClient(config.InferenceConfig{
		Endpoint:         server.URL,
		Model:            "test-model",
		TimeoutSeconds:   5,
		MaxTokens:        500,
		SummaryMaxTokens: 77,
	}, testLogger())

	if _, err := client.Infer(context.Background(), TaskSummarize, "T", "C"); err != nil {
		t.Fatalf("Infer error: %v", err)
	}
	if captured.MaxTokens != 77 {
		t.Fatalf("summaries must use the summary token budget, got %d", captured.MaxTokens)
	}
}

func TestClientInferServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.InferenceConfig{Endpoint: server.URL, Model: "m", TimeoutSeconds: 5}, testLogger())

	_, err := client.Infer(context.Background(), TaskCategorize, "T", "C")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientInferEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient(config.InferenceConfig{Endpoint: server.URL, Model: "m", TimeoutSeconds: 5}, testLogger())

	_, err := client.Infer(context.Background(), TaskCategorize, "T", "C")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientInferUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(config.InferenceConfig{Endpoint: server.URL, Model: "m", TimeoutSeconds: 5}, testLogger())

	_, err := client.Infer(context.Background(), TaskCategorize, "T", "C")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientInferTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(config.InferenceConfig{Endpoint: server.URL, Model: "m", TimeoutSeconds: 5}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Infer(ctx, TaskCategorize, "T", "C")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestClientAvailable(t *testing.T) {
	t.Parallel()

	loaded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"id": "loaded-model"}]}`))
	}))
	defer loaded.Close()

	client := NewClient(config.InferenceConfig{Endpoint: loaded.URL, TimeoutSeconds: 5}, testLogger())
	if !client.Available(context.Background()) {
		t.Fatalf("expected endpoint with a loaded model to be available")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer empty.Close()

	client = NewClient(config.InferenceConfig{Endpoint: empty.URL, TimeoutSeconds: 5}, testLogger())
	if client.Available(context.Background()) {
		t.Fatalf("an endpoint without models must not be available")
	}

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	client = NewClient(config.InferenceConfig{Endpoint: dead.URL, TimeoutSeconds: 5}, testLogger())
	if client.Available(context.Background()) {
		t.Fatalf("an unreachable endpoint must not be available")
	}
}

func TestClientResolveModel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id": "first-model"}, {"id": "second-model"}]}`))
	}))
	defer server.Close()

	configured := NewClient(config.InferenceConfig{Endpoint: server.URL, Model: "pinned", TimeoutSeconds: 5}, testLogger())
	if got := configured.ResolveModel(context.Background()); got != "pinned" {
		t.Fatalf("configured model must win, got %s", got)
	}

	discovered := NewClient(config.InferenceConfig{Endpoint: server.URL, TimeoutSeconds: 5}, testLogger())
	if got := discovered.ResolveModel(context.Background()); got != "first-model" {
		t.Fatalf("expected first discovered model, got %s", got)
	}

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	fallback := NewClient(config.InferenceConfig{Endpoint: dead.URL, TimeoutSeconds: 5}, testLogger())
	if got := fallback.ResolveModel(context.Background()); got != fallbackModel {
		t.Fatalf("expected fallback model, got %s", got)
	}
}

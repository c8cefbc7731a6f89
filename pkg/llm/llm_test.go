package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestCompleteReturnsAnswer(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  Hello there.  "}}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", APIURL: srv.URL, ChatModel: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	answer, err := client.Complete(context.Background(), CompletionRequest{
		System:    "Be terse.",
		User:      "hi",
		MaxTokens: 42,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "Hello there." {
		t.Errorf("answer = %q, want %q", answer, "Hello there.")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.MaxTokens != 42 {
		t.Errorf("max_tokens = %d, want 42", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestCompleteRejectsEmptyUser(t *testing.T) {
	client, err := NewOpenAIClient(Config{ChatModel: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), CompletionRequest{User: "   "}); err == nil {
		t.Fatal("expected error for empty user message")
	}
}

func TestCompleteSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "bad", APIURL: srv.URL, ChatModel: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	_, err = client.Complete(context.Background(), CompletionRequest{User: "hi"})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should mention status", err)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIURL: srv.URL, ChatModel: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	answer, err := client.Complete(context.Background(), CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("Complete after retry: %v", err)
	}
	if answer != "ok" {
		t.Errorf("answer = %q, want %q", answer, "ok")
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestEmbedTruncatesOversizedInput(t *testing.T) {
	var gotReq openAIEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	emb, err := NewOpenAIEmbedder(Config{APIURL: srv.URL, EmbedModel: "text-embedding-3-small"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}

	long := strings.Repeat("a", maxEmbedInputChars+500)
	vec, err := emb.Embed(context.Background(), long)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("vector length = %d, want 3", len(vec))
	}
	if len(gotReq.Input) != 1 || len(gotReq.Input[0]) != maxEmbedInputChars {
		t.Errorf("input length = %d, want %d", len(gotReq.Input[0]), maxEmbedInputChars)
	}
	if gotReq.Model != "text-embedding-3-small" {
		t.Errorf("model = %q", gotReq.Model)
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	emb, err := NewOpenAIEmbedder(Config{EmbedModel: "text-embedding-3-small"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}
	if _, err := emb.Embed(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty input")
	}
}

package llm

import "context"

// Completer produces a single natural-language completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries an optional system instruction plus the user
// prompt for one completion call.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int
}

// Config holds connection settings for the completion and embedding clients.
type Config struct {
	APIKey     string
	APIURL     string
	ChatModel  string
	EmbedModel string
	Timeout    int // seconds; applied to both chat and embedding calls
}

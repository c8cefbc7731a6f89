package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aviroy619/rabbitloader-chat/pkg/llm"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

const (
	groundedSystem = `You are RabbitLoader Support. Answer tersely (3-6 sentences).
If the user asks to delete/disable/remove anything, DO NOT provide steps—tell them to use the Console manually.
Only use the provided context; if unsure, say so.`

	ungroundedSystem = `You are RabbitLoader Support. Be friendly but concise. Answer greetings or general queries naturally, but always keep it short.`

	groundedMaxTokens   = 350
	ungroundedMaxTokens = 200

	// Only the best chunks make it into the prompt and source list.
	maxPromptChunks = 4
)

// Source is a citation surfaced in the response trace.
type Source struct {
	Idx   int    `json:"idx"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Composer turns a retrieval into a final answer. With matched chunks
// the model is pinned to the provided context; without any it answers
// greetings and general questions freely but briefly.
type Composer struct {
	completer llm.Completer
	logger    logging.Logger
}

func NewComposer(completer llm.Completer, logger logging.Logger) *Composer {
	return &Composer{completer: completer, logger: logger}
}

// Compose produces the answer and its sources for one question.
func (c *Composer) Compose(ctx context.Context, userMsg string, retrieved Retrieval) (string, []Source, error) {
	if len(retrieved.Chunks) == 0 {
		answer, err := c.completer.Complete(ctx, llm.CompletionRequest{
			System:    ungroundedSystem,
			User:      userMsg,
			MaxTokens: ungroundedMaxTokens,
		})
		if err != nil {
			return "", nil, fmt.Errorf("ungrounded completion: %w", err)
		}
		return answer, []Source{}, nil
	}

	chunks := retrieved.Chunks
	if len(chunks) > maxPromptChunks {
		chunks = chunks[:maxPromptChunks]
	}

	var contextParts, citeParts []string
	sources := make([]Source, 0, len(chunks))
	for i, chunk := range chunks {
		title := chunk.Title
		if title == "" {
			title = "KB"
		}
		contextParts = append(contextParts, fmt.Sprintf("[%d] %s", i+1, chunk.Text))
		cite := fmt.Sprintf("(%d) %s", i+1, title)
		if chunk.SourceURL != "" {
			cite += " - " + chunk.SourceURL
		}
		citeParts = append(citeParts, cite)
		sources = append(sources, Source{Idx: i + 1, Title: title, URL: chunk.SourceURL})
	}

	user := fmt.Sprintf(`Question: %s

Context:
%s

When you answer, keep it short and, if possible, include a bulleted mini-checklist.
At the end, list the sources as [1].. lines.
Sources:
%s`, userMsg, strings.Join(contextParts, "\n\n"), strings.Join(citeParts, "\n"))

	answer, err := c.completer.Complete(ctx, llm.CompletionRequest{
		System:    groundedSystem,
		User:      user,
		MaxTokens: groundedMaxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("grounded completion: %w", err)
	}

	return answer, sources, nil
}

package llm

import (
	"context"
	"net/http"
	"time"
)

const maxAttempts = 3

// doWithRetry executes an HTTP request with a small backoff, rebuilding the
// request for each attempt. Retries network errors, 429 and 5xx responses.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	delay := 500 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			lastErr = &statusError{status: resp.Status}
			continue
		}
		return resp, nil
	}

	return nil, lastErr
}

type statusError struct {
	status string
}

func (e *statusError) Error() string {
	return "retryable status: " + e.status
}

package actions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/aviroy619/rabbitloader-chat/internal/upstream"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

// Caller performs upstream API requests. Satisfied by *upstream.Client.
type Caller interface {
	Call(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Outcome classifies how an execution ended. Recoverable means the
// user got an actionable answer (e.g. re-authenticate) even though the
// upstream call failed.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeRecoverable Outcome = "recoverable"
)

// HTTPTrace records the upstream call for the response trace.
type HTTPTrace struct {
	Status int   `json:"status"`
	Ms     int64 `json:"ms"`
}

// Result is a completed action execution.
type Result struct {
	Outcome Outcome
	Answer  string
	Raw     json.RawMessage
	HTTP    HTTPTrace
}

// Executor runs registry actions end to end: validate context, resolve
// parameters, interpolate the endpoint path, call upstream, format.
type Executor struct {
	caller   Caller
	resolver *Resolver
	logger   logging.Logger
}

func NewExecutor(caller Caller, resolver *Resolver, logger logging.Logger) *Executor {
	return &Executor{caller: caller, resolver: resolver, logger: logger}
}

var pathToken = regexp.MustCompile(`\{[^}]+\}`)

// interpolatePath fills path tokens from context. Every token that
// cannot be filled is reported, not just the first.
func interpolatePath(path string, ctx Context) (string, error) {
	if ctx.DomainID != "" {
		path = strings.ReplaceAll(path, "{domainId}", ctx.DomainID)
	}
	if ctx.Domain != "" {
		path = strings.ReplaceAll(path, "{domain}", ctx.Domain)
	}
	if remaining := pathToken.FindAllString(path, -1); remaining != nil {
		tokens := make([]string, len(remaining))
		for i, tok := range remaining {
			tokens[i] = strings.Trim(tok, "{}")
		}
		return "", &MissingPathParamError{Tokens: tokens}
	}
	return path, nil
}

// Execute runs one action for one user message. Auth failures from
// upstream are translated into a user-facing answer instead of an
// error; everything else propagates typed.
func (e *Executor) Execute(ctx context.Context, actionID, userMsg string, chatCtx Context) (*Result, error) {
	meta, ok := Lookup(actionID)
	if !ok {
		return nil, &UnknownActionError{ID: actionID}
	}

	var missing []string
	if meta.requires(NeedJWT) && chatCtx.JWT == "" {
		missing = append(missing, "jwt")
	}
	if meta.requires(NeedDomain) && chatCtx.Domain == "" {
		missing = append(missing, "domain")
	}
	if meta.requires(NeedDomainID) && chatCtx.DomainID == "" {
		missing = append(missing, "domainId")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	query, err := e.resolver.Resolve(meta, userMsg, chatCtx)
	if err != nil {
		return nil, err
	}

	path, err := interpolatePath(meta.Path, chatCtx)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logging.Fields{
		"action_id": actionID,
		"service":   meta.Service,
		"path":      path,
		"has_jwt":   chatCtx.JWT != "",
		"jwt":       logging.MaskToken(chatCtx.JWT),
	}).Debug("Executing action")

	resp, err := e.caller.Call(ctx, upstream.Request{
		Service:  string(meta.Service),
		Method:   meta.Method,
		Path:     path,
		Query:    query,
		JWT:      chatCtx.JWT,
		DomainID: chatCtx.DomainID,
	})
	if err != nil {
		var upErr *upstream.Error
		if errors.As(err, &upErr) && (upErr.Status == http.StatusUnauthorized || upErr.Status == http.StatusForbidden) {
			hint := "Not allowed for this account."
			if upErr.Status == http.StatusUnauthorized {
				hint = "Session expired or invalid token."
			}
			return &Result{
				Outcome: OutcomeRecoverable,
				Answer:  "Auth error: " + hint + " Please sign in again in the Console and reopen chat.",
				HTTP:    HTTPTrace{Status: upErr.Status},
			}, nil
		}
		return nil, err
	}

	var payload any
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			e.logger.WithFields(logging.Fields{"action_id": actionID}).
				Warn("Upstream payload is not JSON, returning generic answer")
			payload = nil
		}
	}

	return &Result{
		Outcome: OutcomeOK,
		Answer:  FormatAnswer(actionID, payload),
		Raw:     resp.Body,
		HTTP:    HTTPTrace{Status: resp.Status, Ms: resp.LatencyMs},
	}, nil
}

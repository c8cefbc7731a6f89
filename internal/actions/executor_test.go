package actions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aviroy619/rabbitloader-chat/internal/upstream"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

type fakeCaller struct {
	lastReq upstream.Request
	resp    *upstream.Response
	err     error
}

func (f *fakeCaller) Call(_ context.Context, req upstream.Request) (*upstream.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestExecutor(caller Caller) *Executor {
	return NewExecutor(caller, testResolver(), logging.NewLogger())
}

func TestExecuteUnknownAction(t *testing.T) {
	exec := newTestExecutor(&fakeCaller{})
	_, err := exec.Execute(context.Background(), "nope_v1", "hi", Context{JWT: "t"})
	var unknownErr *UnknownActionError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("err = %v, want *UnknownActionError", err)
	}
}

func TestExecuteListsAllMissingNeeds(t *testing.T) {
	exec := newTestExecutor(&fakeCaller{})
	_, err := exec.Execute(context.Background(), "pageviews_v2", "pageviews", Context{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(verr.Missing) != 2 || verr.Missing[0] != "jwt" || verr.Missing[1] != "domainId" {
		t.Errorf("Missing = %v, want [jwt domainId]", verr.Missing)
	}
}

func TestExecuteInterpolatesPath(t *testing.T) {
	caller := &fakeCaller{resp: &upstream.Response{Status: 200, Body: []byte(`[]`)}}
	exec := newTestExecutor(caller)

	res, err := exec.Execute(context.Background(), "pageviews_v2", "pageviews last 7 days",
		Context{JWT: "tok", DomainID: "did_42"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if caller.lastReq.Path != "/domain/pageview/did_42" {
		t.Errorf("path = %q", caller.lastReq.Path)
	}
	if caller.lastReq.Service != "v2" || caller.lastReq.JWT != "tok" || caller.lastReq.DomainID != "did_42" {
		t.Errorf("request = %+v", caller.lastReq)
	}
	if res.Outcome != OutcomeOK {
		t.Errorf("outcome = %v", res.Outcome)
	}
}

func TestInterpolatePathReportsAllMissingTokens(t *testing.T) {
	_, err := interpolatePath("/x/{domainId}/y/{domain}", Context{})
	var perr *MissingPathParamError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *MissingPathParamError", err)
	}
	if len(perr.Tokens) != 2 || perr.Tokens[0] != "domainId" || perr.Tokens[1] != "domain" {
		t.Errorf("Tokens = %v", perr.Tokens)
	}
}

func TestExecuteTranslatesAuthErrors(t *testing.T) {
	cases := []struct {
		status int
		hint   string
	}{
		{http.StatusUnauthorized, "Session expired or invalid token."},
		{http.StatusForbidden, "Not allowed for this account."},
	}
	for _, tc := range cases {
		caller := &fakeCaller{err: &upstream.Error{
			Method: "GET", URL: "https://api-v2.rabbitloader.com/user/v2/this-profile",
			Status: tc.status, Message: "denied",
		}}
		exec := newTestExecutor(caller)

		res, err := exec.Execute(context.Background(), "profile_v2", "my profile", Context{JWT: "stale"})
		if err != nil {
			t.Fatalf("status %d: Execute: %v", tc.status, err)
		}
		if res.Outcome != OutcomeRecoverable {
			t.Errorf("status %d: outcome = %v, want recoverable", tc.status, res.Outcome)
		}
		want := "Auth error: " + tc.hint + " Please sign in again in the Console and reopen chat."
		if res.Answer != want {
			t.Errorf("status %d: answer = %q", tc.status, res.Answer)
		}
		if res.HTTP.Status != tc.status {
			t.Errorf("status %d: trace status = %d", tc.status, res.HTTP.Status)
		}
	}
}

func TestExecutePropagatesUpstreamFailures(t *testing.T) {
	caller := &fakeCaller{err: &upstream.Error{
		Method: "GET", URL: "https://api-v1.rabbitloader.com/api/v1/report/css",
		Status: http.StatusBadGateway, Message: "connect timeout",
	}}
	exec := newTestExecutor(caller)

	_, err := exec.Execute(context.Background(), "css_report_v1", "css report", Context{JWT: "tok", Domain: "example.com"})
	var upErr *upstream.Error
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *upstream.Error", err)
	}
	if upErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d", upErr.Status)
	}
}

func TestExecuteFormatsPayload(t *testing.T) {
	caller := &fakeCaller{resp: &upstream.Response{
		Status:    200,
		LatencyMs: 12,
		Body:      []byte(`{"users":[{"name":"Ada","email":"ada@example.com","accessLevel":3}]}`),
	}}
	exec := newTestExecutor(caller)

	res, err := exec.Execute(context.Background(), "team_members_v2", "team", Context{JWT: "tok", DomainID: "did_1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Answer, "Team Members (1 total)") {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.HTTP.Status != 200 || res.HTTP.Ms != 12 {
		t.Errorf("trace = %+v", res.HTTP)
	}
}

func TestExecuteNonJSONPayloadFallsBack(t *testing.T) {
	caller := &fakeCaller{resp: &upstream.Response{Status: 200, Body: []byte("<html>maintenance</html>")}}
	exec := newTestExecutor(caller)

	res, err := exec.Execute(context.Background(), "profile_v2", "profile", Context{JWT: "tok"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Answer != "Done." {
		t.Errorf("answer = %q, want Done.", res.Answer)
	}
}

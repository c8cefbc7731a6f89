package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

func TestCallSetsHeadersAndQuery(t *testing.T) {
	var gotHeaders http.Header
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(Config{V1Base: srv.URL, Origin: "https://rabbitloader.com"}, logging.NewLogger())

	query := url.Values{}
	query.Set("domain", "example.com")
	query.Set("search[value]", "")

	resp, err := client.Call(context.Background(), Request{
		Service:  "v1",
		Method:   "GET",
		Path:     "/api/v1/report/css",
		Query:    query,
		JWT:      "tok123",
		DomainID: "did_7",
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("status = %d", resp.Status)
	}
	if gotHeaders.Get("Authorization") != "Bearer tok123" {
		t.Errorf("Authorization = %q", gotHeaders.Get("Authorization"))
	}
	if gotHeaders.Get("x-domain-id") != "did_7" {
		t.Errorf("x-domain-id = %q", gotHeaders.Get("x-domain-id"))
	}
	if gotHeaders.Get("Origin") != "https://rabbitloader.com" {
		t.Errorf("Origin = %q", gotHeaders.Get("Origin"))
	}
	if gotHeaders.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", gotHeaders.Get("Accept"))
	}
	if gotQuery.Get("domain") != "example.com" {
		t.Errorf("query domain = %q", gotQuery.Get("domain"))
	}
	if _, ok := gotQuery["search[value]"]; !ok {
		t.Error("empty-valued query key should still be sent")
	}
	if !strings.Contains(resp.URL, "domain=example.com") {
		t.Errorf("resp.URL = %q should carry the query", resp.URL)
	}
}

func TestCallPicksServiceBase(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{V1Base: "http://unused.invalid", V2Base: srv.URL}, logging.NewLogger())
	_, err := client.Call(context.Background(), Request{Service: "v2", Path: "billing/subscription"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotPath != "/billing/subscription" {
		t.Errorf("path = %q, want leading slash added", gotPath)
	}
}

func TestCallNon2xxReturnsTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Config{V1Base: srv.URL}, logging.NewLogger())
	_, err := client.Call(context.Background(), Request{Service: "v1", Path: "/x"})

	var upErr *Error
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if upErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", upErr.Status)
	}
	if upErr.Method != "GET" || !strings.Contains(upErr.URL, "/x") {
		t.Errorf("error = %+v", upErr)
	}
	if !strings.Contains(upErr.Message, "expired") {
		t.Errorf("message = %q", upErr.Message)
	}
}

func TestCallDNSFallbackRetriesByIP(t *testing.T) {
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().String()
	port := addr[strings.LastIndex(addr, ":")+1:]

	client := NewClient(Config{
		V1Base:      "http://rl-fallback-test.invalid:" + port,
		DNSFallback: true,
	}, logging.NewLogger())
	client.resolveA = func(_ context.Context, host string) (string, error) {
		if host != "rl-fallback-test.invalid" {
			t.Errorf("resolveA host = %q", host)
		}
		return "127.0.0.1", nil
	}

	resp, err := client.Call(context.Background(), Request{Service: "v1", Path: "/ping"})
	if err != nil {
		t.Fatalf("Call with fallback: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("status = %d", resp.Status)
	}
	// Host header keeps the original name so CDN routing still works.
	if gotHost != "rl-fallback-test.invalid" {
		t.Errorf("Host = %q", gotHost)
	}
}

func TestCallDNSFallbackDisabled(t *testing.T) {
	client := NewClient(Config{
		V1Base:      "http://rl-fallback-test.invalid",
		DNSFallback: false,
	}, logging.NewLogger())
	client.resolveA = func(_ context.Context, _ string) (string, error) {
		t.Fatal("resolveA should not be called when fallback is off")
		return "", nil
	}

	_, err := client.Call(context.Background(), Request{Service: "v1", Path: "/ping"})
	var upErr *Error
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if upErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", upErr.Status)
	}
}

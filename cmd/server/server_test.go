package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/Shuttleicious/internal/config"
	"github.com/codr1/Shuttleicious/internal/pairing"
	"github.com/codr1/Shuttleicious/internal/roster"
	"github.com/codr1/Shuttleicious/internal/sessions"
	"github.com/codr1/Shuttleicious/internal/testutil"
)

const testConfig = `
app:
  name: Shuttleicious
  port: 8080
database:
  driver: sqlite
  filename: unused.db
pairing:
  default_mode: random
`

func newTestServer(t *testing.T) *httptest.Server {
	return newTestServerWithConfig(t, testConfig)
}

func newTestServerWithConfig(t *testing.T, raw string) *httptest.Server {
	t.Helper()

	cfg, err := config.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}

	database := testutil.NewTestDB(t)
	rosterProvider, err := roster.NewProvider(database)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	sessionService, err := sessions.NewService(database, rosterProvider, pairing.NewGenerator(pairing.WithSeed(3)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	limiter := newGenerateLimiter(cfg)
	if limiter != nil {
		t.Cleanup(limiter.Close)
	}

	ts := httptest.NewServer(newServer(cfg, sessionService, rosterProvider, limiter).Handler)
	t.Cleanup(ts.Close)
	return ts
}

func send(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := send(t, http.MethodGet, ts.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Fatalf("body = %q", body)
	}
}

func TestGenerateUsesConfiguredDefaultMode(t *testing.T) {
	ts := newTestServer(t)

	for i := 1; i <= 4; i++ {
		resp := send(t, http.MethodPut, fmt.Sprintf("%s/api/v1/profiles/p%d", ts.URL, i), fmt.Sprintf(`{"name":"Player %d"}`, i))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("save profile: %d", resp.StatusCode)
		}
		resp = send(t, http.MethodPost, ts.URL+"/api/v1/attendance", fmt.Sprintf(`{"profile_id":"p%d","date":"2026-03-07","status":"present"}`, i))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attendance: %d", resp.StatusCode)
		}
	}

	resp := send(t, http.MethodPost, ts.URL+"/api/v1/sessions/generate", `{"date":"2026-03-07"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"mode":"random"`) {
		t.Fatalf("expected configured default mode in %s", body)
	}
}

func TestGenerateIsRateLimited(t *testing.T) {
	ts := newTestServerWithConfig(t, testConfig+`
rate_limit:
  enabled: true
  generate_cooldown: 1m
`)

	// An empty roster is rejected by the engine but still counts as a request.
	resp := send(t, http.MethodPost, ts.URL+"/api/v1/sessions/generate", `{"date":"2026-03-07"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("first generate status: %d", resp.StatusCode)
	}

	resp = send(t, http.MethodPost, ts.URL+"/api/v1/sessions/generate", `{"date":"2026-03-07"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second generate status: %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("retry after = %q", resp.Header.Get("Retry-After"))
	}

	resp = send(t, http.MethodGet, ts.URL+"/api/v1/sessions?date=2026-03-07", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %d", resp.StatusCode)
	}
}

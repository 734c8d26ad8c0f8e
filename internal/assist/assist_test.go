package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"huddle/internal/testutil/testlog"
)

type stubProvider struct {
	prompt string
	out    string
	err    error
}

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.out, s.err
}

func TestExtractCode(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```go\nfunc a() {}\n```\n\n```go\nfunc b() {}\n```", "func a() {}"},
		{"Here you go:\n```\nx = 1\ny = 2\n```", "x = 1\ny = 2"},
		{"no fences at all", "no fences at all"},
		{"```js\nunterminated", "```js\nunterminated"},
	}
	for _, tc := range cases {
		if got := ExtractCode(tc.in); got != tc.want {
			t.Fatalf("ExtractCode(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	for raw, want := range map[string]Action{"analyze": Analyze, "Refactor": Refactor, "comments": AddComments, "add_comments": AddComments} {
		got, err := ParseAction(raw)
		if err != nil || got != want {
			t.Fatalf("ParseAction(%q)=%q,%v", raw, got, err)
		}
	}
	if _, err := ParseAction("translate"); !errors.Is(err, ErrBadAction) {
		t.Fatalf("err=%v", err)
	}
	if Analyze.Rewrites() || !Refactor.Rewrites() || !AddComments.Rewrites() {
		t.Fatalf("rewrite classification is wrong")
	}
}

func TestClientAgainstHandler(t *testing.T) {
	log := testlog.Start(t)
	p := &stubProvider{out: "```go\npackage main\n```"}
	srv := httptest.NewServer(Handler(p, log))
	defer srv.Close()

	c, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	// the handler is mounted at the root here, so point the client at it
	c.endpoint = srv.URL
	got, err := c.Do(context.Background(), Request{Action: Refactor, Code: "package  main", Language: "go"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if ExtractCode(got) != "package main" {
		t.Fatalf("result=%q", got)
	}
	if !strings.Contains(p.prompt, "Refactor the following go code") || !strings.Contains(p.prompt, "package  main") {
		t.Fatalf("prompt=%q", p.prompt)
	}

	if _, err := c.Do(context.Background(), Request{Action: "dance"}); !errors.Is(err, ErrBadAction) {
		t.Fatalf("bad action err=%v", err)
	}

	p.err = errors.New("quota exceeded")
	if _, err := c.Do(context.Background(), Request{Action: Analyze, Code: "x"}); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("provider error not surfaced: %v", err)
	}
}

func TestHandlerDisabledWithoutProvider(t *testing.T) {
	log := testlog.Start(t)
	srv := httptest.NewServer(Handler(nil, log))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(`{"action":"analyze"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		t.Fatalf("body=%+v err=%v", body, err)
	}

	c := &Client{endpoint: srv.URL, http: srv.Client()}
	if _, err := c.Do(context.Background(), Request{Action: Analyze}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err=%v", err)
	}
}

func TestNewClientEndpoint(t *testing.T) {
	for in, want := range map[string]string{
		"localhost:8080":     "http://localhost:8080/api/assist",
		"wss://huddle.dev":   "https://huddle.dev/api/assist",
		"http://relay:9000/": "http://relay:9000/api/assist",
	} {
		c, err := NewClient(in, nil)
		if err != nil || c.endpoint != want {
			t.Fatalf("NewClient(%q) endpoint=%q err=%v", in, c.endpoint, err)
		}
	}
}

func TestGeminiComplete(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/test-model:generateContent") || r.URL.Query().Get("key") != "k" {
			http.Error(w, "bad path", http.StatusNotFound)
			return
		}
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "echo: " + req.Contents[0].Parts[0].Text}}}}},
		})
	}))
	defer srv.Close()

	g := &Gemini{APIKey: "k", Model: "test-model", Endpoint: srv.URL, HTTP: srv.Client()}
	got, err := g.Complete(context.Background(), "hello")
	if err != nil || got != "echo: hello" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	g.Model = "other"
	if _, err := g.Complete(context.Background(), "hello"); err == nil {
		t.Fatalf("expected status error")
	}
}

// Package assist is the request/response path to the AI code assistant: the
// client used by board sessions, and the relay handler that proxies to the
// model provider.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

type Action string

const (
	Analyze     Action = "analyze"
	Refactor    Action = "refactor"
	AddComments Action = "add_comments"
)

var (
	ErrDisabled  = errors.New("ai assist is disabled on the relay")
	ErrBadAction = errors.New("invalid ai action")
)

// ParseAction accepts the wire names plus the "comments" shorthand.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "analyze", "review":
		return Analyze, nil
	case "refactor":
		return Refactor, nil
	case "add_comments", "comments", "comment":
		return AddComments, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadAction, raw)
}

// Rewrites reports whether the result replaces the editor contents rather
// than being displayed.
func (a Action) Rewrites() bool {
	return a == Refactor || a == AddComments
}

type Request struct {
	Action   Action `json:"action"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Client calls the relay's assist endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(relay string, hc *http.Client) (*Client, error) {
	relay = strings.TrimSpace(relay)
	if !strings.Contains(relay, "://") {
		relay = "http://" + relay
	}
	u, err := url.Parse(relay)
	if err != nil {
		return nil, fmt.Errorf("parse relay address: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	if hc == nil {
		hc = &http.Client{Timeout: 45 * time.Second}
	}
	return &Client{endpoint: u.JoinPath("api", "assist").String(), http: hc}, nil
}

func (c *Client) Do(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("assist request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read assist response: %w", err)
	}
	var out Response
	_ = json.Unmarshal(raw, &out)
	switch {
	case resp.StatusCode == http.StatusNotImplemented:
		return "", ErrDisabled
	case resp.StatusCode == http.StatusBadRequest && out.Error != "":
		return "", fmt.Errorf("%w: %s", ErrBadAction, out.Error)
	case resp.StatusCode != http.StatusOK:
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("assist failed (%s): %s", resp.Status, msg)
	}
	return out.Result, nil
}

var fence = regexp.MustCompile("(?s)```[^\\n`]*\\n(.*?)```")

// ExtractCode returns the body of the first fenced code block in text, or
// text unchanged when there is none.
func ExtractCode(text string) string {
	m := fence.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return strings.TrimSuffix(m[1], "\n")
}

package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultGeminiModel    = "gemini-1.5-flash-latest"
)

// Provider turns a prompt into model output.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Gemini struct {
	APIKey   string
	Model    string
	Endpoint string
	HTTP     *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	model := g.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	hc := g.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	target := strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(model) + ":generateContent?key=" + url.QueryEscape(g.APIKey)

	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model request failed with status: %s", resp.Status)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(out.Candidates) > 0 && out.Candidates[0].Content != nil && len(out.Candidates[0].Content.Parts) > 0 {
		return out.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", errors.New("unexpected model response format")
}

// Prompt builds the instruction sent to the model for action.
func Prompt(action Action, code, lang string) (string, error) {
	if lang == "" {
		lang = "plaintext"
	}
	switch action {
	case Analyze:
		return fmt.Sprintf("You are an expert code reviewer. Analyze the following %s code snippet. "+
			"Provide a comprehensive review covering these three areas, using markdown headings for each:\n\n"+
			"### Correctness\n- Point out any potential bugs, logical errors, or unhandled edge cases.\n\n"+
			"### Suggestions\n- Suggest improvements for readability, performance, or idiomatic style.\n\n"+
			"### Solidity\n- Give a rating from 1-10 on how robust and production-ready the code is, and briefly justify your rating.\n\n"+
			"```%s\n%s\n```", lang, lang, code), nil
	case Refactor:
		return fmt.Sprintf("You are an expert software engineer. Refactor the following %s code snippet to improve its quality, "+
			"readability, and performance. Provide ONLY the refactored code inside a single markdown code block, "+
			"with no additional explanation before or after the code block.\n\n```%s\n%s\n```", lang, lang, code), nil
	case AddComments:
		return fmt.Sprintf("You are an expert software engineer. Add clear, concise, and helpful comments to the following %s code snippet. "+
			"Explain the 'why' behind the code, not just the 'what'. Provide ONLY the commented code inside a single markdown code block, "+
			"with no additional explanation before or after the code block.\n\n```%s\n%s\n```", lang, lang, code), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadAction, action)
}

// Handler serves POST /api/assist. A nil provider means no API key is
// configured and every request gets 501.
func Handler(p Provider, log zerolog.Logger) http.HandlerFunc {
	log = log.With().Str("component", "assist").Logger()
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			writeJSON(w, http.StatusNotImplemented, Response{Error: "AI features are disabled. No API key configured on the server."})
			return
		}
		var req Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
			return
		}
		prompt, err := Prompt(req.Action, req.Code, req.Language)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "Invalid AI action"})
			return
		}
		result, err := p.Complete(r.Context(), prompt)
		if err != nil {
			log.Error().Err(err).Str("action", string(req.Action)).Msg("assist request failed")
			writeJSON(w, http.StatusInternalServerError, Response{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, Response{Result: result})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package engine

import (
	"context"
	"errors"

	"huddle/internal/assist"
	"huddle/internal/widget"
)

// Assistant is the stateless AI request/response collaborator.
type Assistant interface {
	Do(ctx context.Context, req assist.Request) (string, error)
}

var ErrNoAssistant = errors.New("ai assist is not configured")

// Assist sends the current code to the assistant. For rewrite actions the
// first fenced block of the answer (or the whole answer) replaces the editor
// contents and flows out as a normal local edit; the raw answer is returned
// either way.
func (s *Session) Assist(ctx context.Context, action assist.Action) (string, error) {
	if s.opts.Assistant == nil {
		return "", ErrNoAssistant
	}
	code := s.editor.GetValue()
	result, err := s.opts.Assistant.Do(ctx, assist.Request{
		Action:   action,
		Code:     code,
		Language: widget.LanguageHint(code),
	})
	if err != nil {
		return "", err
	}
	if action.Rewrites() {
		if !s.editor.IsReady() {
			return "", widget.ErrUnavailable
		}
		s.editor.SetValue(assist.ExtractCode(result))
	}
	return result, nil
}

// StartCall joins the video room named after the board.
func (s *Session) StartCall() error {
	if s.opts.Video == nil {
		return widget.ErrUnavailable
	}
	self, _ := s.ident.Self()
	return s.opts.Video.Start(s.opts.BoardID, self.Name)
}

func (s *Session) StopCall() error {
	if s.opts.Video == nil {
		return widget.ErrUnavailable
	}
	return s.opts.Video.Stop()
}

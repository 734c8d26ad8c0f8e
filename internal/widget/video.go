package widget

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Video is the conferencing widget. It carries no board state.
type Video interface {
	Start(room, displayName string) error
	Stop() error
}

var ErrNotInCall = errors.New("no call in progress")

// JitsiCall builds a meet.jit.si room URL and hands it to an opener (a
// browser launcher, or the TUI status line). A nil opener means the widget
// is not loaded.
type JitsiCall struct {
	Base   string
	Opener func(link string) error

	mu     sync.Mutex
	active string
}

func (j *JitsiCall) Start(room, displayName string) error {
	if j == nil || j.Opener == nil {
		return ErrUnavailable
	}
	room = strings.TrimSpace(room)
	if room == "" {
		return fmt.Errorf("start call: empty room name")
	}
	link := j.link(room, displayName)
	if err := j.Opener(link); err != nil {
		return fmt.Errorf("start call: %w", err)
	}
	j.mu.Lock()
	j.active = link
	j.mu.Unlock()
	return nil
}

func (j *JitsiCall) Stop() error {
	if j == nil || j.Opener == nil {
		return ErrUnavailable
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.active == "" {
		return ErrNotInCall
	}
	j.active = ""
	return nil
}

// Active returns the current call link, if any.
func (j *JitsiCall) Active() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.active
}

func (j *JitsiCall) link(room, displayName string) string {
	base := strings.TrimRight(j.Base, "/")
	if base == "" {
		base = "https://meet.jit.si"
	}
	link := base + "/" + url.PathEscape("huddle-"+room)
	if displayName != "" {
		link += "#userInfo.displayName=" + url.QueryEscape(`"`+displayName+`"`)
	}
	return link
}

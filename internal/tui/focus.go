package tui

import (
	"sync/atomic"

	"huddle/internal/board"
)

type pane int32

const (
	paneCommand pane = iota
	paneCode
	paneNotes
	paneLink
	paneCount
)

func (p pane) field() (board.Field, bool) {
	switch p {
	case paneCode:
		return board.FieldCode, true
	case paneNotes:
		return board.FieldNotes, true
	case paneLink:
		return board.FieldLink, true
	}
	return "", false
}

// FocusState publishes the focused pane to the session's reconciler, which
// reads it from the session goroutine.
type FocusState struct {
	current atomic.Int32
}

func (f *FocusState) Focused(field board.Field) bool {
	got, ok := pane(f.current.Load()).field()
	return ok && got == field
}

func (f *FocusState) set(p pane) { f.current.Store(int32(p)) }
func (f *FocusState) get() pane  { return pane(f.current.Load()) }

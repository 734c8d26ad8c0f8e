package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// codeMsg carries a programmatic write into the code pane.
type codeMsg struct{ text string }

// languageMsg carries the code pane's language hint.
type languageMsg struct{ hint string }

// CodeEditor adapts the code pane to the sync engine's editor contract. The
// textarea itself lives in the model; this side keeps the authoritative value
// and forwards programmatic writes to the program.
type CodeEditor struct {
	mu    sync.Mutex
	value string
	lang  string
	hooks []func()
	send  func(tea.Msg)
}

// NewCodeEditor forwards programmatic writes through send, normally
// (*tea.Program).Send.
func NewCodeEditor(send func(tea.Msg)) *CodeEditor {
	return &CodeEditor{send: send}
}

// Bind sets the program that receives programmatic writes. The program is
// usually created after the editor, since the model holds the editor.
func (e *CodeEditor) Bind(send func(tea.Msg)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.send = send
}

func (e *CodeEditor) GetValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *CodeEditor) SetValue(text string) {
	if !e.set(text) {
		return
	}
	if send := e.sender(); send != nil {
		send(codeMsg{text: text})
	}
	e.fire()
}

func (e *CodeEditor) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

func (e *CodeEditor) SetLanguageHint(hint string) {
	e.mu.Lock()
	e.lang = hint
	send := e.send
	e.mu.Unlock()
	if send != nil {
		send(languageMsg{hint: hint})
	}
}

func (e *CodeEditor) Language() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lang
}

// typed records a keystroke edit from the pane. Hooks only post to the
// session, so this is safe to call from Update.
func (e *CodeEditor) typed(text string) {
	if e.set(text) {
		e.fire()
	}
}

func (e *CodeEditor) sender() func(tea.Msg) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.send
}

func (e *CodeEditor) set(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value == text {
		return false
	}
	e.value = text
	return true
}

func (e *CodeEditor) fire() {
	e.mu.Lock()
	hooks := append([]func(){}, e.hooks...)
	e.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Package tui is the terminal front end for a board session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"huddle/internal/assist"
	"huddle/internal/board"
)

const (
	assistTimeout = 60 * time.Second
	chatLines     = 8
)

// Board is the set of session operations the UI drives. Every call may block
// on the session loop, so the model only makes them from commands.
type Board interface {
	EditNotes(text string)
	EditLink(text string)
	AddTask(text string) (board.Task, error)
	ToggleTask(id string, completed bool) error
	RemoveTask(id string) error
	AssignTask(id, assignee string) error
	TaskAt(pos int) (board.Task, error)
	SendChat(message string) error
	Rename(name string) error
	Assist(ctx context.Context, action assist.Action) (string, error)
	StartCall() error
	StopCall() error
}

// ViewMsg delivers a fresh board view from the session.
type ViewMsg board.View

// SessionEndedMsg reports that the session loop has returned.
type SessionEndedMsg struct{ Err error }

type resultMsg struct {
	status string
	ai     string
	err    error
}

type Model struct {
	board  Board
	editor *CodeEditor
	focus  *FocusState
	ready  func()

	view     board.View
	code     textarea.Model
	notes    textarea.Model
	link     textinput.Model
	input    textinput.Model
	language string

	status   string
	statusOK bool
	aiOutput string
	ended    bool
	sized    bool

	width  int
	height int
}

// New builds the model. ready is invoked once the code pane has been laid
// out; it is where the session's buffered editor becomes ready.
func New(b Board, editor *CodeEditor, focus *FocusState, ready func()) Model {
	code := textarea.New()
	code.ShowLineNumbers = true
	code.Placeholder = "code"
	code.CharLimit = 0
	code.MaxHeight = 0

	notes := textarea.New()
	notes.ShowLineNumbers = false
	notes.Placeholder = "meeting notes"
	notes.CharLimit = 0
	notes.MaxHeight = 0

	link := textinput.New()
	link.Prompt = "link: "
	link.Placeholder = "https://"

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "chat, or /task /done /undo /rm /assign /name /link /call /hangup /ai"
	input.Focus()

	focus.set(paneCommand)
	return Model{
		board:  b,
		editor: editor,
		focus:  focus,
		ready:  ready,
		code:   code,
		notes:  notes,
		link:   link,
		input:  input,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		if !m.sized {
			m.sized = true
			if ready := m.ready; ready != nil {
				// replaying buffered writes sends messages back to this
				// program, so it cannot run inside Update
				return m, func() tea.Msg { ready(); return nil }
			}
		}
		return m, nil

	case codeMsg:
		m.code.SetValue(msg.text)
		return m, nil

	case languageMsg:
		m.language = msg.hint
		return m, nil

	case ViewMsg:
		m.view = board.View(msg)
		if m.focus.get() != paneNotes && m.notes.Value() != m.view.Notes {
			m.notes.SetValue(m.view.Notes)
		}
		if m.focus.get() != paneLink && m.link.Value() != m.view.Link {
			m.link.SetValue(m.view.Link)
		}
		return m, nil

	case resultMsg:
		if msg.err != nil {
			m.status, m.statusOK = msg.err.Error(), false
		} else {
			m.status, m.statusOK = msg.status, true
		}
		if msg.ai != "" {
			m.aiOutput = msg.ai
		}
		return m, nil

	case SessionEndedMsg:
		m.ended = true
		m.status, m.statusOK = "disconnected from relay", false
		if msg.Err != nil {
			m.status = "disconnected: " + msg.Err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		return m, m.cycleFocus(1)
	case "shift+tab":
		return m, m.cycleFocus(-1)
	case "esc":
		m.aiOutput = ""
		return m, nil
	case "enter":
		if m.focus.get() == paneCommand {
			line := m.input.Value()
			m.input.Reset()
			return m, m.runLine(line)
		}
		if m.focus.get() == paneLink {
			return m, m.cycleFocus(1)
		}
	}
	return m.updateFocused(msg)
}

// updateFocused routes msg to the focused widget and turns edits into
// session operations.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus.get() {
	case paneCode:
		m.code, cmd = m.code.Update(msg)
		if m.ended {
			break
		}
		m.editor.typed(m.code.Value())
	case paneNotes:
		before := m.notes.Value()
		m.notes, cmd = m.notes.Update(msg)
		if v := m.notes.Value(); v != before && !m.ended {
			m.board.EditNotes(v)
		}
	case paneLink:
		before := m.link.Value()
		m.link, cmd = m.link.Update(msg)
		if v := m.link.Value(); v != before && !m.ended {
			m.board.EditLink(v)
		}
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) cycleFocus(step int) tea.Cmd {
	next := (int(m.focus.get()) + step + int(paneCount)) % int(paneCount)
	m.code.Blur()
	m.notes.Blur()
	m.link.Blur()
	m.input.Blur()
	m.focus.set(pane(next))
	switch pane(next) {
	case paneCode:
		return m.code.Focus()
	case paneNotes:
		return m.notes.Focus()
	case paneLink:
		return m.link.Focus()
	default:
		return m.input.Focus()
	}
}

func (m Model) runLine(line string) tea.Cmd {
	cmd, err := ParseCommand(line)
	if errors.Is(err, ErrEmptyCommand) {
		return nil
	}
	if err != nil {
		return func() tea.Msg { return resultMsg{err: err} }
	}
	if cmd.Kind == CmdQuit {
		return tea.Quit
	}
	if m.ended {
		return func() tea.Msg { return resultMsg{err: errors.New("not connected")} }
	}
	b := m.board
	return func() tea.Msg { return execute(b, cmd) }
}

// execute runs one command against the session. It runs off the UI loop.
func execute(b Board, cmd Command) resultMsg {
	switch cmd.Kind {
	case CmdChat:
		return result("", b.SendChat(cmd.Text))
	case CmdTask:
		task, err := b.AddTask(cmd.Text)
		return result("added "+task.Text, err)
	case CmdDone, CmdUndo, CmdRemove, CmdAssign:
		task, err := b.TaskAt(cmd.Pos)
		if err != nil {
			return resultMsg{err: err}
		}
		switch cmd.Kind {
		case CmdDone:
			return result("completed "+task.Text, b.ToggleTask(task.ID, true))
		case CmdUndo:
			return result("reopened "+task.Text, b.ToggleTask(task.ID, false))
		case CmdRemove:
			return result("removed "+task.Text, b.RemoveTask(task.ID))
		default:
			return result(fmt.Sprintf("assigned %s to %s", task.Text, cmd.Text), b.AssignTask(task.ID, cmd.Text))
		}
	case CmdName:
		return result("you are now "+cmd.Text, b.Rename(cmd.Text))
	case CmdLink:
		b.EditLink(cmd.Text)
		return result("link updated", nil)
	case CmdCall:
		return result("call started", b.StartCall())
	case CmdHangup:
		return result("call ended", b.StopCall())
	case CmdAI:
		ctx, cancel := context.WithTimeout(context.Background(), assistTimeout)
		defer cancel()
		out, err := b.Assist(ctx, cmd.Action)
		if err != nil {
			return resultMsg{err: fmt.Errorf("ai %s: %w", cmd.Action, err)}
		}
		if cmd.Action.Rewrites() {
			return resultMsg{status: "code updated by ai " + string(cmd.Action)}
		}
		return resultMsg{status: "ai analysis ready (esc to dismiss)", ai: out}
	}
	return resultMsg{err: errors.New("unsupported command")}
}

func result(status string, err error) resultMsg {
	if err != nil {
		return resultMsg{err: err}
	}
	return resultMsg{status: status}
}

func (m *Model) layout() {
	left := m.width * 3 / 5
	right := m.width - left - 4
	body := m.height - 6
	if body < 6 {
		body = 6
	}
	m.code.SetWidth(max(left-4, 10))
	m.code.SetHeight(max(body-3, 3))
	m.notes.SetWidth(max(right-4, 10))
	m.notes.SetHeight(max(body/4, 2))
	m.link.Width = max(right-10, 10)
	m.input.Width = max(m.width-6, 10)
}

func (m Model) View() string {
	if !m.sized {
		return "loading board..."
	}
	header := HeaderStyle.Render(fmt.Sprintf("huddle %s", m.view.BoardID))
	if !m.view.Initialized {
		header += MutedStyle.Render("  waiting for relay")
	}

	codeTitle := "Code"
	if m.language != "" {
		codeTitle += " (" + m.language + ")"
	}
	left := m.pane(paneCode, codeTitle, m.code.View())

	right := lipgloss.JoinVertical(lipgloss.Left,
		m.pane(paneNotes, "Notes", m.notes.View()),
		m.pane(paneLink, "Meeting", m.link.View()),
		PaneStyle.Render(PaneTitleStyle.Render(fmt.Sprintf("Tasks %d/%d", m.view.Done, m.view.Total))+"\n"+renderTasks(m.view.Tasks)),
		PaneStyle.Render(PaneTitleStyle.Render("Team")+"\n"+renderTeam(m.view.Team)),
		PaneStyle.Render(PaneTitleStyle.Render("Chat")+"\n"+renderChat(m.view.Chat, chatLines)),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	parts := []string{header, body}
	if m.aiOutput != "" {
		parts = append(parts, AIStyle.Render(m.aiOutput))
	}
	if m.status != "" {
		style := StatusStyle
		if !m.statusOK {
			style = ErrorStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, m.pane(paneCommand, "", m.input.View()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) pane(p pane, title, content string) string {
	style := PaneStyle
	if m.focus.get() == p {
		style = FocusedPaneStyle
	}
	if title == "" {
		return style.Render(content)
	}
	return style.Render(PaneTitleStyle.Render(title) + "\n" + content)
}

func renderTasks(tasks []board.Task) string {
	if len(tasks) == 0 {
		return MutedStyle.Render("no tasks yet")
	}
	var b strings.Builder
	for i, t := range tasks {
		box, text := "[ ]", t.Text
		if t.Completed {
			box, text = "[x]", DoneStyle.Render(t.Text)
		}
		fmt.Fprintf(&b, "%d. %s %s", i+1, box, text)
		if t.Assignee != "" {
			b.WriteString(MutedStyle.Render(" @" + t.Assignee))
		}
		if i < len(tasks)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderTeam(team []board.Member) string {
	if len(team) == 0 {
		return MutedStyle.Render("nobody here yet")
	}
	names := make([]string, 0, len(team))
	for _, mem := range team {
		name := mem.Name
		if name == "" {
			name = mem.ID
		}
		names = append(names, memberStyle(mem.Color).Render(name))
	}
	return strings.Join(names, ", ")
}

func renderChat(chat []board.ChatEntry, limit int) string {
	if len(chat) == 0 {
		return MutedStyle.Render("no messages")
	}
	if len(chat) > limit {
		chat = chat[len(chat)-limit:]
	}
	lines := make([]string, 0, len(chat))
	for _, e := range chat {
		lines = append(lines, memberStyle(e.User.Color).Render(e.User.Name)+": "+e.Message)
	}
	return strings.Join(lines, "\n")
}

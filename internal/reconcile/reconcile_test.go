package reconcile

import (
	"encoding/json"
	"testing"
	"time"

	"huddle/internal/board"
	"huddle/internal/echo"
	"huddle/internal/envelope"
	"huddle/internal/identity"
	"huddle/internal/testutil/testlog"
	"huddle/internal/widget"
)

type sink struct{ sent []envelope.Envelope }

func (s *sink) Send(env envelope.Envelope) { s.sent = append(s.sent, env) }

type fixture struct {
	r      *Reconciler
	store  *board.Store
	editor *widget.MemoryEditor
	guard  *echo.Guard
	out    *sink
	focus  map[board.Field]bool
	self   board.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testlog.Start(t)
	f := &fixture{
		store:  board.NewStore("abcd12"),
		editor: &widget.MemoryEditor{},
		guard:  echo.New(20*time.Millisecond, nil),
		out:    &sink{},
		focus:  map[board.Field]bool{},
	}
	t.Cleanup(f.guard.Stop)
	ident := identity.NewManager(&identity.MemoryStore{}, nil, log)
	self, err := ident.Ensure(func() (string, error) { return "ada", nil })
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	f.self = self
	focus := FocusFunc(func(field board.Field) bool { return f.focus[field] })
	f.r = New(f.store, f.editor, focus, ident, f.guard, f.out, log)
	return f
}

func initial(t *testing.T, snap board.Snapshot, clientID string) envelope.Envelope {
	t.Helper()
	raw, err := envelope.Encode(envelope.Initial(snap, clientID))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := envelope.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestInitialStateRegistersSelfExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.r.Apply(initial(t, board.Snapshot{ID: "abcd12"}, "c1"))

	if len(f.out.sent) != 1 || f.out.sent[0].Type != envelope.TeamUpdate {
		t.Fatalf("expected one TEAM_UPDATE, got %+v", f.out.sent)
	}
	team, err := f.out.sent[0].Team()
	if err != nil {
		t.Fatalf("team payload: %v", err)
	}
	want := board.Member{ID: "c1", Name: "ada", Color: f.self.Color}
	if len(team) != 1 || team[0] != want {
		t.Fatalf("team=%+v want [%+v]", team, want)
	}
	if got := f.store.Team(); len(got) != 1 || got[0] != want {
		t.Fatalf("local team=%+v", got)
	}
	if !f.guard.SelfOriginated("c1") {
		t.Fatalf("origin not recorded")
	}
}

func TestInitialStateWithSelfPresentSendsNothing(t *testing.T) {
	f := newFixture(t)
	existing := []board.Member{{ID: "c0", Name: "bob", Color: "#fff"}, {ID: "c1", Name: "ada", Color: "#000"}}
	f.r.Apply(initial(t, board.Snapshot{
		ID:           "abcd12",
		ContentCode:  "package main",
		ContentNotes: "agenda",
		HuddleLink:   "https://meet.example/x",
		ContentTasks: []board.Task{{ID: "task-1", Text: "a", Completed: true}},
		Team:         existing,
	}, "c1"))

	if len(f.out.sent) != 0 {
		t.Fatalf("expected no emissions, got %+v", f.out.sent)
	}
	v := f.store.View()
	if len(v.Team) != 2 || v.Team[1] != existing[1] {
		t.Fatalf("team should be the snapshot's, got %+v", v.Team)
	}
	if f.editor.GetValue() != "package main" || f.editor.Language() != "go" {
		t.Fatalf("editor value=%q lang=%q", f.editor.GetValue(), f.editor.Language())
	}
	if v.Notes != "agenda" || v.Link != "https://meet.example/x" || v.Done != 1 || v.Total != 1 {
		t.Fatalf("view=%+v", v)
	}
}

func TestDuplicateCodeUpdateIsNoop(t *testing.T) {
	f := newFixture(t)
	changes := 0
	f.editor.OnChange(func() { changes++ })

	env := envelope.Text(envelope.CodeUpdate, "x := 1")
	if !f.r.Apply(env) {
		t.Fatalf("first apply should change state")
	}
	if f.r.Apply(env) {
		t.Fatalf("second apply should be a no-op")
	}
	if changes != 1 {
		t.Fatalf("editor changed %d times", changes)
	}
	if f.editor.GetValue() != "x := 1" || f.store.Text(board.FieldCode) != "x := 1" {
		t.Fatalf("code not applied")
	}
	if len(f.out.sent) != 0 {
		t.Fatalf("remote apply must not emit")
	}
}

func TestCodeUpdateIgnoresFocus(t *testing.T) {
	f := newFixture(t)
	f.focus[board.FieldCode] = true
	if !f.r.Apply(envelope.Text(envelope.CodeUpdate, "y")) {
		t.Fatalf("code field has no focus guard")
	}
}

func TestFocusedNotesAndLinkAreNotOverwritten(t *testing.T) {
	f := newFixture(t)
	f.store.SetText(board.FieldNotes, "typing...")
	f.focus[board.FieldNotes] = true

	if f.r.Apply(envelope.Text(envelope.NotesUpdate, "stale")) {
		t.Fatalf("focused notes must not be replaced")
	}
	if f.store.Text(board.FieldNotes) != "typing..." {
		t.Fatalf("notes=%q", f.store.Text(board.FieldNotes))
	}

	if !f.r.Apply(envelope.Text(envelope.LinkUpdate, "https://meet.example/y")) {
		t.Fatalf("unfocused link should update")
	}
	if f.r.Apply(envelope.Text(envelope.LinkUpdate, "https://meet.example/y")) {
		t.Fatalf("same link twice should be a no-op")
	}
}

func TestWholeCollectionReplace(t *testing.T) {
	f := newFixture(t)
	f.store.SetTasks([]board.Task{{ID: "task-local", Text: "mine"}})
	remote := []board.Task{
		{ID: "task-1", Text: "a", Completed: true},
		{ID: "task-2", Text: "b", Assignee: "ada"},
	}
	env, _ := envelope.New(envelope.TasksUpdate, remote)
	f.r.Apply(env)

	got := f.store.Tasks()
	if len(got) != len(remote) {
		t.Fatalf("tasks=%+v", got)
	}
	for i := range remote {
		if got[i] != remote[i] {
			t.Fatalf("task %d = %+v want %+v", i, got[i], remote[i])
		}
	}
	if done, total := f.store.Progress(); done != 1 || total != 2 {
		t.Fatalf("progress=%d/%d", done, total)
	}

	team := []board.Member{{ID: "c9", Name: "eve"}}
	f.r.Apply(envelope.Team(team))
	if got := f.store.Team(); len(got) != 1 || got[0] != team[0] {
		t.Fatalf("team=%+v", got)
	}
}

func TestChatAppendsInArrivalOrder(t *testing.T) {
	f := newFixture(t)
	for _, msg := range []string{"hi", "there"} {
		f.r.Apply(envelope.Chat(board.ChatEntry{User: board.Member{ID: "c2", Name: "bob"}, Message: msg}))
	}
	chat := f.store.View().Chat
	if len(chat) != 2 || chat[0].Message != "hi" || chat[1].Message != "there" {
		t.Fatalf("chat=%+v", chat)
	}
}

func TestMalformedAndOwnEnvelopesAreDropped(t *testing.T) {
	f := newFixture(t)
	f.store.SetTasks([]board.Task{{ID: "task-1"}})

	bad := envelope.Envelope{Type: envelope.TasksUpdate, Payload: json.RawMessage(`"nope"`)}
	if f.r.Apply(bad) {
		t.Fatalf("malformed payload should be dropped")
	}
	if f.r.Apply(envelope.Envelope{Type: "BOGUS"}) {
		t.Fatalf("unknown type should be dropped")
	}
	if len(f.store.Tasks()) != 1 {
		t.Fatalf("state changed by malformed envelope")
	}

	f.guard.SetOrigin("c1")
	own := envelope.Text(envelope.CodeUpdate, "mine")
	own.ClientID = "c1"
	if f.r.Apply(own) {
		t.Fatalf("own envelope should be ignored")
	}
}

func TestApplyRaisesGuard(t *testing.T) {
	f := newFixture(t)
	var raised bool
	f.editor.OnChange(func() { raised = f.guard.Suppressed() })
	f.r.Apply(envelope.Text(envelope.CodeUpdate, "z"))
	if !raised {
		t.Fatalf("change hook observed an unguarded remote apply")
	}
	if !f.guard.IsEcho("code", "z") {
		t.Fatalf("remote value not remembered")
	}
}

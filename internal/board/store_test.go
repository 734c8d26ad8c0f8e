package board

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
)

func TestStoreSetTextReportsChange(t *testing.T) {
	s := NewStore("abcd12")
	if !s.SetText(FieldNotes, "agenda") {
		t.Fatalf("first set should change")
	}
	if s.SetText(FieldNotes, "agenda") {
		t.Fatalf("same value should not change")
	}
	if s.Text(FieldNotes) != "agenda" {
		t.Fatalf("notes=%q", s.Text(FieldNotes))
	}
	if s.SetText(Field("bogus"), "x") {
		t.Fatalf("unknown field should not change")
	}
}

func TestStoreSetTasksRecomputesProgress(t *testing.T) {
	s := NewStore("b")
	s.SetTasks([]Task{
		{ID: "task-1", Text: "a", Completed: true},
		{ID: "task-2", Text: "b"},
		{ID: "task-3", Text: "c", Completed: true},
	})
	done, total := s.Progress()
	if done != 2 || total != 3 {
		t.Fatalf("progress=%d/%d", done, total)
	}
	s.SetTasks(nil)
	done, total = s.Progress()
	if done != 0 || total != 0 {
		t.Fatalf("progress after clear=%d/%d", done, total)
	}
	if s.Tasks() == nil {
		t.Fatalf("tasks should be empty, not nil")
	}
}

func TestStoreCopiesDoNotAlias(t *testing.T) {
	s := NewStore("b")
	in := []Task{{ID: "task-1", Text: "a"}}
	s.SetTasks(in)
	in[0].Text = "mutated"
	if s.Tasks()[0].Text != "a" {
		t.Fatalf("store aliased caller slice")
	}
	out := s.Tasks()
	out[0].Text = "mutated"
	if s.Tasks()[0].Text != "a" {
		t.Fatalf("store aliased returned slice")
	}
}

func TestStoreLoadKeepsChat(t *testing.T) {
	s := NewStore("b")
	s.AppendChat(ChatEntry{User: Member{ID: "c1"}, Message: "hi"})
	s.Load(Snapshot{ID: "b", ContentCode: "x", Team: []Member{{ID: "c2"}}})
	v := s.View()
	if !v.Initialized || v.Code != "x" || len(v.Team) != 1 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if len(v.Chat) != 1 {
		t.Fatalf("chat should survive a snapshot load")
	}
}

func TestChatTranscriptIsCapped(t *testing.T) {
	s := NewStore("b")
	for i := 0; i < ChatLimit+3; i++ {
		s.AppendChat(ChatEntry{Message: strconv.Itoa(i)})
	}
	chat := s.View().Chat
	if len(chat) != ChatLimit || chat[0].Message != "3" {
		t.Fatalf("len=%d first=%q", len(chat), chat[0].Message)
	}
}

func TestSnapshotWireShape(t *testing.T) {
	raw := `{"contentCode":"","contentTasks":[],"team":[],"huddleLink":""}`
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(Snapshot{ID: "abcd12", ContentTasks: []Task{{ID: "task-1", Text: "x"}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"contentCode"`, `"contentNotes"`, `"contentTasks"`, `"huddleLink"`, `"team"`, `"assignee"`} {
		if !strings.Contains(string(out), key) {
			t.Fatalf("missing %s in %s", key, out)
		}
	}
}

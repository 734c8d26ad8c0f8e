package collection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"huddle/internal/board"
)

func TestAddTaskScenario(t *testing.T) {
	id := NewTaskID(time.Unix(1700000000, 0))
	tasks, task, err := AddTask([]board.Task{}, "write spec", id)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len=%d", len(tasks))
	}
	if !strings.HasPrefix(task.ID, "task-") || task.Text != "write spec" || task.Completed || task.Assignee != "" {
		t.Fatalf("unexpected task %+v", task)
	}
	if tasks[0] != task {
		t.Fatalf("returned task differs from list entry")
	}
}

func TestAddTaskRejectsBlank(t *testing.T) {
	in := []board.Task{{ID: "task-1", Text: "a"}}
	out, _, err := AddTask(in, "   ", "task-2")
	if !errors.Is(err, ErrEmptyTask) {
		t.Fatalf("err=%v", err)
	}
	if len(out) != 1 {
		t.Fatalf("list should be unchanged")
	}
}

func TestNewTaskIDUniqueWithinSameMillisecond(t *testing.T) {
	now := time.Unix(1700000000, 0)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := NewTaskID(now)
		if !IsTaskID(id) {
			t.Fatalf("bad id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestToggleAndRemoveDoNotMutateInput(t *testing.T) {
	in := []board.Task{{ID: "task-1", Text: "a"}, {ID: "task-2", Text: "b"}}
	toggled, err := ToggleTask(in, "task-2", true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled[1].Completed || in[1].Completed {
		t.Fatalf("toggle mutated input or missed target")
	}
	removed, err := RemoveTask(toggled, "task-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(removed) != 1 || removed[0].ID != "task-2" || len(toggled) != 2 {
		t.Fatalf("remove result %+v", removed)
	}
	if _, err := RemoveTask(removed, "task-9"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestAssignTaskPolicy(t *testing.T) {
	team := []board.Member{{ID: "c1", Name: "ada"}}
	tasks := []board.Task{{ID: "task-1", Text: "a"}}

	if _, err := AssignTask(tasks, team, "task-1", "grace"); !errors.Is(err, ErrUnknownAssignee) {
		t.Fatalf("expected unknown assignee, got %v", err)
	}
	if tasks[0].Assignee != "" {
		t.Fatalf("rejected assignment must leave state unchanged")
	}
	out, err := AssignTask(tasks, team, "task-1", "ada")
	if err != nil || out[0].Assignee != "ada" {
		t.Fatalf("assign: %v %+v", err, out)
	}
	out, err = AssignTask(out, team, "task-1", "")
	if err != nil || out[0].Assignee != "" {
		t.Fatalf("clear: %v %+v", err, out)
	}
}

func TestTaskAt(t *testing.T) {
	tasks := []board.Task{{ID: "task-1"}, {ID: "task-2"}}
	if got, err := TaskAt(tasks, 2); err != nil || got.ID != "task-2" {
		t.Fatalf("got %+v err %v", got, err)
	}
	for _, pos := range []int{0, 3} {
		if _, err := TaskAt(tasks, pos); !errors.Is(err, ErrTaskNotFound) {
			t.Fatalf("pos %d err=%v", pos, err)
		}
	}
}

func TestJoinTeamExactlyOnce(t *testing.T) {
	self := board.Member{ID: "c1", Name: "ada", Color: "#e57373"}
	team, added := JoinTeam(nil, self)
	if !added || len(team) != 1 {
		t.Fatalf("first join added=%v team=%+v", added, team)
	}
	team, added = JoinTeam(team, self)
	if added || len(team) != 1 {
		t.Fatalf("second join added=%v team=%+v", added, team)
	}
	if _, added := JoinTeam(team, board.Member{Name: "anon"}); added {
		t.Fatalf("member without id must not join")
	}
}

func TestRenameMemberInPlace(t *testing.T) {
	team := []board.Member{{ID: "c1", Name: "ada"}, {ID: "c2", Name: "bob"}}
	out, changed := RenameMember(team, "c1", "ada l.")
	if !changed || out[0].Name != "ada l." || out[1].Name != "bob" || team[0].Name != "ada" {
		t.Fatalf("rename result %+v changed=%v", out, changed)
	}
	if _, changed := RenameMember(out, "c9", "x"); changed {
		t.Fatalf("unknown id should not change")
	}
}

func TestDedupeKeepsFirst(t *testing.T) {
	team := []board.Member{{ID: "c1", Name: "a"}, {ID: "c2"}, {ID: "c1", Name: "b"}}
	out := Dedupe(team)
	if len(out) != 2 || out[0].Name != "a" {
		t.Fatalf("dedupe %+v", out)
	}
}

// Package collection implements the local mutations of the task list and team
// roster. Every function returns a fresh slice; callers broadcast the whole
// result and remote updates replace it wholesale.
package collection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"huddle/internal/board"
)

var (
	ErrEmptyTask       = errors.New("task text is empty")
	ErrTaskNotFound    = errors.New("task not found")
	ErrUnknownAssignee = errors.New("assignee is not on the team")
)

const taskIDPrefix = "task-"

// NewTaskID returns "task-<unix millis>-<random>". The random part keeps ids
// unique when two clients create tasks in the same millisecond.
func NewTaskID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return taskIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

func IsTaskID(id string) bool {
	return strings.HasPrefix(id, taskIDPrefix) && len(id) > len(taskIDPrefix)
}

// AddTask appends a new incomplete, unassigned task.
func AddTask(tasks []board.Task, text string, id string) ([]board.Task, board.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tasks, board.Task{}, ErrEmptyTask
	}
	task := board.Task{ID: id, Text: text}
	out := make([]board.Task, 0, len(tasks)+1)
	out = append(out, tasks...)
	out = append(out, task)
	return out, task, nil
}

func ToggleTask(tasks []board.Task, id string, completed bool) ([]board.Task, error) {
	i := indexOf(tasks, id)
	if i < 0 {
		return tasks, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	out := board.CloneTasks(tasks)
	out[i].Completed = completed
	return out, nil
}

func RemoveTask(tasks []board.Task, id string) ([]board.Task, error) {
	i := indexOf(tasks, id)
	if i < 0 {
		return tasks, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	out := make([]board.Task, 0, len(tasks)-1)
	out = append(out, tasks[:i]...)
	out = append(out, tasks[i+1:]...)
	return out, nil
}

// AssignTask sets the assignee of a task. An empty assignee clears it; any
// other name must belong to a current team member.
func AssignTask(tasks []board.Task, team []board.Member, id, assignee string) ([]board.Task, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee != "" {
		if _, ok := board.MemberNamed(team, assignee); !ok {
			return tasks, fmt.Errorf("%w: %q", ErrUnknownAssignee, assignee)
		}
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return tasks, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	out := board.CloneTasks(tasks)
	out[i].Assignee = assignee
	return out, nil
}

// TaskAt resolves a 1-based position in the list, as shown to users.
func TaskAt(tasks []board.Task, pos int) (board.Task, error) {
	if pos < 1 || pos > len(tasks) {
		return board.Task{}, fmt.Errorf("%w: #%d", ErrTaskNotFound, pos)
	}
	return tasks[pos-1], nil
}

func indexOf(tasks []board.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

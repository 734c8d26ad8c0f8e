package relay

import (
	"fmt"

	"huddle/internal/board"
	"huddle/internal/envelope"
)

// validate rejects frames that must not be fanned out: malformed payloads and
// INITIAL_STATE, which only the relay may send.
func validate(env envelope.Envelope) error {
	var err error
	switch env.Type {
	case envelope.InitialState:
		return fmt.Errorf("%w: clients may not send %s", envelope.ErrMalformed, env.Type)
	case envelope.CodeUpdate, envelope.NotesUpdate, envelope.LinkUpdate:
		_, err = env.Text()
	case envelope.TasksUpdate:
		_, err = env.Tasks()
	case envelope.TeamUpdate:
		_, err = env.Team()
	case envelope.ChatMessage:
		_, err = env.Chat()
	}
	return err
}

// apply folds a validated envelope into snap and reports whether the stored
// state changed. Chat is relayed but never stored.
func apply(snap *board.Snapshot, env envelope.Envelope) (bool, error) {
	if field, ok := envelope.TextField(env.Type); ok {
		v, err := env.Text()
		if err != nil {
			return false, err
		}
		dst := textSlot(snap, field)
		if *dst == v {
			return false, nil
		}
		*dst = v
		return true, nil
	}
	switch env.Type {
	case envelope.TasksUpdate:
		tasks, err := env.Tasks()
		if err != nil {
			return false, err
		}
		snap.ContentTasks = tasks
		return true, nil
	case envelope.TeamUpdate:
		team, err := env.Team()
		if err != nil {
			return false, err
		}
		snap.Team = team
		return true, nil
	}
	return false, nil
}

func textSlot(snap *board.Snapshot, f board.Field) *string {
	switch f {
	case board.FieldNotes:
		return &snap.ContentNotes
	case board.FieldLink:
		return &snap.HuddleLink
	default:
		return &snap.ContentCode
	}
}

func newSnapshot(id string) board.Snapshot {
	return board.Snapshot{
		ID:           id,
		ContentCode:  board.DefaultCode,
		ContentTasks: []board.Task{},
		Team:         []board.Member{},
	}
}

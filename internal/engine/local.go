package engine

import (
	"strings"

	"huddle/internal/board"
	"huddle/internal/collection"
	"huddle/internal/envelope"
)

// codeChanged is the editor's content-changed hook, run on the loop.
func (s *Session) codeChanged() {
	v := s.editor.GetValue()
	s.store.SetText(board.FieldCode, v)
	if s.guard.Suppressed() {
		return
	}
	s.scheduleText(board.FieldCode, v)
}

// EditNotes records typed notes and schedules their transmission.
func (s *Session) EditNotes(text string) { s.editText(board.FieldNotes, text) }

// EditLink records a typed meeting link and schedules its transmission.
func (s *Session) EditLink(text string) { s.editText(board.FieldLink, text) }

func (s *Session) editText(field board.Field, text string) {
	s.post(func() {
		if !s.store.SetText(field, text) {
			return
		}
		s.render()
		if s.guard.Suppressed() {
			return
		}
		s.scheduleText(field, text)
	})
}

// scheduleText debounces transmission of field. The envelope carries the value
// current when the quiet period ends.
func (s *Session) scheduleText(field board.Field, v string) {
	key := string(field)
	if s.guard.IsEcho(key, v) {
		return
	}
	s.guard.Forget(key)
	s.emit.Schedule(key, func() { s.flushText(field) })
}

func (s *Session) flushText(field board.Field) {
	typ, ok := envelope.TextType(field)
	if !ok {
		return
	}
	v := s.store.Text(field)
	if field == board.FieldCode {
		v = s.editor.GetValue()
	}
	s.send(envelope.Text(typ, v))
}

// AddTask appends a task locally and broadcasts the whole list.
func (s *Session) AddTask(text string) (board.Task, error) {
	var task board.Task
	err := s.call(func() error {
		id := collection.NewTaskID(s.opts.Now())
		tasks, added, err := collection.AddTask(s.store.Tasks(), text, id)
		if err != nil {
			return err
		}
		task = added
		s.commitTasks(tasks)
		return nil
	})
	return task, err
}

func (s *Session) ToggleTask(id string, completed bool) error {
	return s.call(func() error {
		tasks, err := collection.ToggleTask(s.store.Tasks(), id, completed)
		if err != nil {
			return err
		}
		s.commitTasks(tasks)
		return nil
	})
}

func (s *Session) RemoveTask(id string) error {
	return s.call(func() error {
		tasks, err := collection.RemoveTask(s.store.Tasks(), id)
		if err != nil {
			return err
		}
		s.commitTasks(tasks)
		return nil
	})
}

// AssignTask rejects names that are not on the team, leaving state unchanged.
func (s *Session) AssignTask(id, assignee string) error {
	return s.call(func() error {
		tasks, err := collection.AssignTask(s.store.Tasks(), s.store.Team(), id, assignee)
		if err != nil {
			return err
		}
		s.commitTasks(tasks)
		return nil
	})
}

// TaskAt resolves a 1-based task position.
func (s *Session) TaskAt(pos int) (board.Task, error) {
	var task board.Task
	err := s.call(func() error {
		var err error
		task, err = collection.TaskAt(s.store.Tasks(), pos)
		return err
	})
	return task, err
}

func (s *Session) commitTasks(tasks []board.Task) {
	s.store.SetTasks(tasks)
	s.send(envelope.Tasks(tasks))
	s.render()
}

// SendChat appends a message to the local transcript and broadcasts it.
func (s *Session) SendChat(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	return s.call(func() error {
		self, _ := s.ident.Self()
		entry := board.ChatEntry{User: self, Message: message}
		s.store.AppendChat(entry)
		s.send(envelope.Chat(entry))
		s.render()
		return nil
	})
}

// Rename persists a new display name and replaces it in the roster.
func (s *Session) Rename(name string) error {
	return s.call(func() error {
		self, err := s.ident.Rename(name)
		if err != nil {
			return err
		}
		team, changed := collection.RenameMember(s.store.Team(), self.ID, self.Name)
		if !changed {
			return nil
		}
		s.store.SetTeam(team)
		s.send(envelope.Team(team))
		s.render()
		return nil
	})
}

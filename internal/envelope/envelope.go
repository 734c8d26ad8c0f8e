// Package envelope defines the messages exchanged between a board client and
// the relay.
//
// Client -> relay (fanned out verbatim to every other member of the board):
//
//	CODE_UPDATE   payload: string
//	NOTES_UPDATE  payload: string
//	LINK_UPDATE   payload: string
//	TASKS_UPDATE  payload: []Task
//	TEAM_UPDATE   payload: []Member
//	CHAT_MESSAGE  payload: {user: Member, message: string}
//
// Relay -> client, once per connection:
//
//	INITIAL_STATE payload: Snapshot, clientId: assigned id
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"huddle/internal/board"
)

type Type string

const (
	InitialState Type = "INITIAL_STATE"
	CodeUpdate   Type = "CODE_UPDATE"
	TasksUpdate  Type = "TASKS_UPDATE"
	NotesUpdate  Type = "NOTES_UPDATE"
	LinkUpdate   Type = "LINK_UPDATE"
	TeamUpdate   Type = "TEAM_UPDATE"
	ChatMessage  Type = "CHAT_MESSAGE"
)

var (
	ErrMalformed   = errors.New("envelope: malformed")
	ErrUnknownType = errors.New("envelope: unknown type")
)

func (t Type) Known() bool {
	switch t {
	case InitialState, CodeUpdate, TasksUpdate, NotesUpdate, LinkUpdate, TeamUpdate, ChatMessage:
		return true
	}
	return false
}

// TextType maps a text field to the envelope type that carries it.
func TextType(f board.Field) (Type, bool) {
	switch f {
	case board.FieldCode:
		return CodeUpdate, true
	case board.FieldNotes:
		return NotesUpdate, true
	case board.FieldLink:
		return LinkUpdate, true
	}
	return "", false
}

// TextField is the inverse of TextType.
func TextField(t Type) (board.Field, bool) {
	switch t {
	case CodeUpdate:
		return board.FieldCode, true
	case NotesUpdate:
		return board.FieldNotes, true
	case LinkUpdate:
		return board.FieldLink, true
	}
	return "", false
}

type Envelope struct {
	Type     Type            `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
}

// New encodes payload into an envelope of type t.
func New(t Type, payload any) (Envelope, error) {
	if !t.Known() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Envelope{Type: t, Payload: raw}, nil
}

func Text(t Type, v string) Envelope {
	env, _ := New(t, v)
	return env
}

func Tasks(tasks []board.Task) Envelope {
	if tasks == nil {
		tasks = []board.Task{}
	}
	env, _ := New(TasksUpdate, tasks)
	return env
}

func Team(team []board.Member) Envelope {
	if team == nil {
		team = []board.Member{}
	}
	env, _ := New(TeamUpdate, team)
	return env
}

func Chat(e board.ChatEntry) Envelope {
	env, _ := New(ChatMessage, e)
	return env
}

// Initial builds the relay's greeting for a newly connected client.
func Initial(snap board.Snapshot, clientID string) Envelope {
	if snap.ContentTasks == nil {
		snap.ContentTasks = []board.Task{}
	}
	if snap.Team == nil {
		snap.Team = []board.Member{}
	}
	env, _ := New(InitialState, snap)
	env.ClientID = clientID
	return env
}

// Decode parses one frame. Only the envelope shell and type are validated;
// payloads are checked by the typed accessors.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if !env.Type.Known() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return env, nil
}

func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (e Envelope) decodePayload(out any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrMalformed, e.Type)
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, e.Type, err)
	}
	return nil
}

func (e Envelope) Text() (string, error) {
	var v string
	err := e.decodePayload(&v)
	return v, err
}

func (e Envelope) Tasks() ([]board.Task, error) {
	var v []board.Task
	if err := e.decodePayload(&v); err != nil {
		return nil, err
	}
	if v == nil {
		v = []board.Task{}
	}
	return v, nil
}

func (e Envelope) Team() ([]board.Member, error) {
	var v []board.Member
	if err := e.decodePayload(&v); err != nil {
		return nil, err
	}
	if v == nil {
		v = []board.Member{}
	}
	return v, nil
}

func (e Envelope) Chat() (board.ChatEntry, error) {
	var v board.ChatEntry
	err := e.decodePayload(&v)
	return v, err
}

func (e Envelope) Snapshot() (board.Snapshot, error) {
	var v board.Snapshot
	err := e.decodePayload(&v)
	return v, err
}

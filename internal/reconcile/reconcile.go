// Package reconcile applies inbound envelopes to the local board.
package reconcile

import (
	"github.com/rs/zerolog"

	"huddle/internal/board"
	"huddle/internal/collection"
	"huddle/internal/echo"
	"huddle/internal/envelope"
	"huddle/internal/identity"
	"huddle/internal/widget"
)

// Sender transmits envelopes produced while reconciling (self-registration).
type Sender interface {
	Send(envelope.Envelope)
}

// Focus reports whether a text field currently holds local input focus.
type Focus interface {
	Focused(board.Field) bool
}

type FocusFunc func(board.Field) bool

func (f FocusFunc) Focused(field board.Field) bool { return f != nil && f(field) }

// NoFocus never reports focus.
var NoFocus Focus = FocusFunc(nil)

type Reconciler struct {
	store  *board.Store
	editor widget.Editor
	focus  Focus
	ident  *identity.Manager
	guard  *echo.Guard
	out    Sender
	log    zerolog.Logger
}

func New(store *board.Store, editor widget.Editor, focus Focus, ident *identity.Manager, guard *echo.Guard, out Sender, log zerolog.Logger) *Reconciler {
	if focus == nil {
		focus = NoFocus
	}
	return &Reconciler{
		store:  store,
		editor: editor,
		focus:  focus,
		ident:  ident,
		guard:  guard,
		out:    out,
		log:    log.With().Str("component", "reconcile").Logger(),
	}
}

// Apply reconciles one envelope under the echo guard and reports whether the
// visible state changed. Malformed envelopes are dropped without error.
func (r *Reconciler) Apply(env envelope.Envelope) bool {
	if env.Type != envelope.InitialState && r.guard.SelfOriginated(env.ClientID) {
		r.log.Debug().Str("type", string(env.Type)).Msg("drop own envelope")
		return false
	}
	var changed bool
	r.guard.Apply(func() {
		changed = r.dispatch(env)
	})
	return changed
}

func (r *Reconciler) dispatch(env envelope.Envelope) bool {
	switch env.Type {
	case envelope.InitialState:
		return r.initialState(env)
	case envelope.CodeUpdate:
		v, err := env.Text()
		if err != nil {
			return r.drop(env, err)
		}
		return r.code(v)
	case envelope.NotesUpdate, envelope.LinkUpdate:
		v, err := env.Text()
		if err != nil {
			return r.drop(env, err)
		}
		field, _ := envelope.TextField(env.Type)
		return r.text(field, v)
	case envelope.TasksUpdate:
		tasks, err := env.Tasks()
		if err != nil {
			return r.drop(env, err)
		}
		r.store.SetTasks(tasks)
		return true
	case envelope.TeamUpdate:
		team, err := env.Team()
		if err != nil {
			return r.drop(env, err)
		}
		r.store.SetTeam(team)
		return true
	case envelope.ChatMessage:
		entry, err := env.Chat()
		if err != nil {
			return r.drop(env, err)
		}
		r.store.AppendChat(entry)
		return true
	default:
		return r.drop(env, envelope.ErrUnknownType)
	}
}

func (r *Reconciler) initialState(env envelope.Envelope) bool {
	snap, err := env.Snapshot()
	if err != nil {
		return r.drop(env, err)
	}
	r.store.Load(snap)
	r.guard.Remember(string(board.FieldCode), snap.ContentCode)
	r.editor.SetValue(snap.ContentCode)
	r.editor.SetLanguageHint(widget.LanguageHint(snap.ContentCode))

	if env.ClientID == "" {
		r.log.Warn().Msg("initial state without client id, skipping self-registration")
		return true
	}
	r.guard.SetOrigin(env.ClientID)
	self, err := r.ident.Assign(env.ClientID)
	if err != nil {
		r.log.Warn().Err(err).Msg("skip self-registration")
		return true
	}
	team, added := collection.JoinTeam(snap.Team, self)
	if added {
		r.out.Send(envelope.Team(team))
		r.store.SetTeam(team)
		r.log.Info().Str("client", self.ID).Str("name", self.Name).Msg("registered on team")
	}
	return true
}

// code has no focus check; its change hook is guarded by the echo guard.
func (r *Reconciler) code(v string) bool {
	if r.editor.GetValue() == v {
		return false
	}
	r.guard.Remember(string(board.FieldCode), v)
	r.editor.SetValue(v)
	r.store.SetText(board.FieldCode, v)
	return true
}

func (r *Reconciler) text(field board.Field, v string) bool {
	if r.store.Text(field) == v {
		return false
	}
	if r.focus.Focused(field) {
		r.log.Debug().Str("field", string(field)).Msg("skip remote update for focused field")
		return false
	}
	r.guard.Remember(string(field), v)
	r.store.SetText(field, v)
	return true
}

func (r *Reconciler) drop(env envelope.Envelope, err error) bool {
	r.log.Debug().Err(err).Str("type", string(env.Type)).Msg("drop envelope")
	return false
}

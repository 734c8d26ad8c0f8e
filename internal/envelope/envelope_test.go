package envelope

import (
	"errors"
	"strings"
	"testing"

	"huddle/internal/board"
)

func TestDecodeRejectsMalformedAndUnknown(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{`not json`, ErrMalformed},
		{`{"payload":"x"}`, ErrMalformed},
		{`{"type":"CURSOR_MOVE","payload":1}`, ErrUnknownType},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.raw)); !errors.Is(err, tc.want) {
			t.Fatalf("Decode(%s) err=%v want %v", tc.raw, err, tc.want)
		}
	}
}

func TestTypedPayloadMismatchIsMalformed(t *testing.T) {
	env, err := Decode([]byte(`{"type":"TASKS_UPDATE","payload":"oops"}`))
	if err != nil {
		t.Fatalf("decode shell: %v", err)
	}
	if _, err := env.Tasks(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
	env, _ = Decode([]byte(`{"type":"CODE_UPDATE"}`))
	if _, err := env.Text(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing payload error, got %v", err)
	}
}

func TestInitialCarriesClientIDAndEmptyCollections(t *testing.T) {
	env := Initial(board.Snapshot{ID: "abcd12"}, "c1")
	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"clientId":"c1"`) {
		t.Fatalf("missing client id: %s", s)
	}
	if !strings.Contains(s, `"contentTasks":[]`) || !strings.Contains(s, `"team":[]`) {
		t.Fatalf("collections should encode as empty arrays: %s", s)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	snap, err := back.Snapshot()
	if err != nil || snap.ID != "abcd12" || back.ClientID != "c1" {
		t.Fatalf("snapshot=%+v client=%q err=%v", snap, back.ClientID, err)
	}
}

func TestTextFieldMapping(t *testing.T) {
	for _, f := range []board.Field{board.FieldCode, board.FieldNotes, board.FieldLink} {
		typ, ok := TextType(f)
		if !ok {
			t.Fatalf("no type for %s", f)
		}
		back, ok := TextField(typ)
		if !ok || back != f {
			t.Fatalf("round trip %s -> %s -> %s", f, typ, back)
		}
	}
	if _, ok := TextField(TasksUpdate); ok {
		t.Fatalf("tasks is not a text field")
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	if _, err := New(Type("NOPE"), 1); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err=%v", err)
	}
}

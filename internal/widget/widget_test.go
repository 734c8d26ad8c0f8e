package widget

import (
	"errors"
	"strings"
	"testing"
)

func TestBufferedQueuesUntilReadyInOrder(t *testing.T) {
	inner := &MemoryEditor{}
	var seen []string
	inner.OnChange(func() { seen = append(seen, inner.GetValue()) })

	b := NewBuffered(inner)
	b.SetValue("one")
	b.SetLanguageHint("go")
	b.SetValue("two")

	if inner.GetValue() != "" {
		t.Fatalf("inner editor touched before ready")
	}
	if b.GetValue() != "two" {
		t.Fatalf("buffered value=%q", b.GetValue())
	}

	b.Ready()
	select {
	case <-b.Done():
	default:
		t.Fatalf("ready channel not closed")
	}
	if inner.GetValue() != "two" || inner.Language() != "go" {
		t.Fatalf("inner value=%q lang=%q", inner.GetValue(), inner.Language())
	}
	if len(seen) != 2 || seen[0] != "one" || seen[1] != "two" {
		t.Fatalf("replay order %v", seen)
	}

	b.SetValue("three")
	if inner.GetValue() != "three" {
		t.Fatalf("post-ready calls must pass through")
	}
	b.Ready()
}

func TestLanguageHint(t *testing.T) {
	cases := map[string]string{
		`  {"a": 1}`:                    "json",
		"package main\n\nfunc main(){}": "go",
		"console.log(1)":                "javascript",
	}
	for code, want := range cases {
		if got := LanguageHint(code); got != want {
			t.Fatalf("LanguageHint(%q)=%q want %q", code, got, want)
		}
	}
}

func TestMemoryEditorFiresOnlyOnChange(t *testing.T) {
	e := &MemoryEditor{}
	n := 0
	e.OnChange(func() { n++ })
	e.SetValue("x")
	e.SetValue("x")
	if n != 1 {
		t.Fatalf("hooks fired %d times", n)
	}
}

func TestJitsiCallLifecycle(t *testing.T) {
	var unloaded *JitsiCall
	if err := unloaded.Start("abcd12", "ada"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("nil widget err=%v", err)
	}
	if err := (&JitsiCall{}).Stop(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("no opener err=%v", err)
	}

	var opened string
	call := &JitsiCall{Opener: func(link string) error { opened = link; return nil }}
	if err := call.Stop(); !errors.Is(err, ErrNotInCall) {
		t.Fatalf("stop before start err=%v", err)
	}
	if err := call.Start("abcd12", "ada"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.HasPrefix(opened, "https://meet.jit.si/huddle-abcd12") || !strings.Contains(opened, "displayName") {
		t.Fatalf("link=%q", opened)
	}
	if call.Active() != opened {
		t.Fatalf("active=%q", call.Active())
	}
	if err := call.Stop(); err != nil || call.Active() != "" {
		t.Fatalf("stop err=%v active=%q", err, call.Active())
	}
}

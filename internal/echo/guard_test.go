package echo

import (
	"testing"
	"time"

	"huddle/internal/testutil/testlog"
)

func TestGuardRaisedDuringAndAfterApply(t *testing.T) {
	testlog.Start(t)
	g := New(30*time.Millisecond, nil)
	defer g.Stop()

	var during bool
	g.Apply(func() { during = g.Suppressed() })
	if !during {
		t.Fatalf("guard should be raised while applying")
	}
	if !g.Suppressed() {
		t.Fatalf("guard should stay raised inside the grace window")
	}
	time.Sleep(100 * time.Millisecond)
	if g.Suppressed() {
		t.Fatalf("guard should lower after the grace window")
	}
}

func TestLaterApplyExtendsWindow(t *testing.T) {
	testlog.Start(t)
	g := New(40*time.Millisecond, nil)
	defer g.Stop()

	g.Apply(func() {})
	time.Sleep(25 * time.Millisecond)
	g.Apply(func() {})
	time.Sleep(25 * time.Millisecond)
	if !g.Suppressed() {
		t.Fatalf("second apply should restart the grace window")
	}
	time.Sleep(80 * time.Millisecond)
	if g.Suppressed() {
		t.Fatalf("guard should eventually lower")
	}
}

func TestPostedClear(t *testing.T) {
	testlog.Start(t)
	queue := make(chan func(), 2)
	g := New(10*time.Millisecond, func(fn func()) { queue <- fn })
	defer g.Stop()

	g.Apply(func() {})
	fn := <-queue
	if !g.Suppressed() {
		t.Fatalf("guard must stay raised until the owner runs the clear")
	}
	fn()
	if g.Suppressed() {
		t.Fatalf("clear did not lower guard")
	}
}

func TestOriginAndRememberedValues(t *testing.T) {
	testlog.Start(t)
	g := New(0, nil)
	if g.SelfOriginated("") {
		t.Fatalf("empty origin must never match")
	}
	g.SetOrigin("c1")
	if !g.SelfOriginated("c1") || g.SelfOriginated("c2") {
		t.Fatalf("origin matching is wrong")
	}

	g.Remember("code", "x := 1")
	if !g.IsEcho("code", "x := 1") {
		t.Fatalf("remembered value should be an echo")
	}
	if g.IsEcho("code", "x := 2") || g.IsEcho("notes", "x := 1") {
		t.Fatalf("only exact key/value pairs are echoes")
	}
	g.Forget("code")
	if g.IsEcho("code", "x := 1") {
		t.Fatalf("forgotten value is still an echo")
	}
}

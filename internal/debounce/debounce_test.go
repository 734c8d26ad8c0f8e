package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"huddle/internal/testutil/testlog"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestBurstCoalescesToLatestValueAtFireTime(t *testing.T) {
	testlog.Start(t)
	e := New(40*time.Millisecond, nil)
	defer e.Stop()

	var current atomic.Value
	rec := &recorder{}
	for _, v := range []string{"f", "fu", "fun", "func"} {
		current.Store(v)
		e.Schedule("code", func() { rec.add(current.Load().(string)) })
		time.Sleep(5 * time.Millisecond)
	}
	current.Store("func main")

	time.Sleep(150 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one emission, got %v", got)
	}
	if got[0] != "func main" {
		t.Fatalf("expected value at fire time, got %q", got[0])
	}
	if e.Pending("code") {
		t.Fatalf("timer should be cleared after firing")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	testlog.Start(t)
	e := New(30*time.Millisecond, nil)
	defer e.Stop()

	rec := &recorder{}
	e.Schedule("notes", func() { rec.add("notes") })
	e.Schedule("link", func() { rec.add("link") })
	time.Sleep(120 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected both keys to fire, got %v", got)
	}
}

func TestPostMarshalsOntoOwner(t *testing.T) {
	testlog.Start(t)
	queue := make(chan func(), 4)
	e := New(20*time.Millisecond, func(fn func()) { queue <- fn })
	defer e.Stop()

	fired := false
	e.Schedule("code", func() { fired = true })

	select {
	case fn := <-queue:
		fn()
	case <-time.After(time.Second):
		t.Fatalf("timer never posted")
	}
	if !fired {
		t.Fatalf("posted function did not fire")
	}
}

func TestRescheduleBeforePostedRunDropsStaleCall(t *testing.T) {
	testlog.Start(t)
	queue := make(chan func(), 4)
	e := New(10*time.Millisecond, func(fn func()) { queue <- fn })
	defer e.Stop()

	rec := &recorder{}
	e.Schedule("code", func() { rec.add("first") })
	stale := <-queue
	e.Schedule("code", func() { rec.add("second") })
	stale()
	(<-queue)()

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("got %v", got)
	}
}

func TestStopAndCancelDiscardPending(t *testing.T) {
	testlog.Start(t)
	e := New(20*time.Millisecond, nil)
	rec := &recorder{}
	e.Schedule("link", func() { rec.add("link") })
	e.Cancel("link")
	e.Schedule("code", func() { rec.add("code") })
	e.Stop()
	e.Schedule("notes", func() { rec.add("notes") })

	time.Sleep(80 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected nothing after cancel/stop, got %v", got)
	}
}

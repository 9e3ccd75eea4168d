package sources

import (
	"testing"
	"time"
)

func TestManager_ObserveAccumulates(t *testing.T) {
	m := New(0)
	m.Observe("job-1", 3)
	m.Observe("job-1", 2)
	m.Observe("", 9) // unnamed sources are dropped

	r, ok := m.Get("job-1")
	if !ok {
		t.Fatal("job-1 not tracked")
	}
	if r.Scans != 2 || r.Annotations != 5 {
		t.Fatalf("bad accumulation: %+v", r)
	}
	if _, ok := m.Get(""); ok {
		t.Fatal("unnamed source should not be tracked")
	}
}

func TestManager_ListNewestFirst(t *testing.T) {
	m := New(0)
	m.Observe("old", 0)
	time.Sleep(5 * time.Millisecond)
	m.Observe("new", 0)

	got := m.List(0)
	if len(got) != 2 || got[0].Source != "new" {
		t.Fatalf("bad order: %+v", got)
	}
	if limited := m.List(1); len(limited) != 1 {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestManager_Cleanup(t *testing.T) {
	m := New(time.Nanosecond)
	m.Observe("stale", 0)
	time.Sleep(2 * time.Millisecond)
	if removed := m.Cleanup(0); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if got := m.List(0); len(got) != 0 {
		t.Fatalf("expected empty after cleanup, got %+v", got)
	}
}

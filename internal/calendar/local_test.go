package calendar

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pfrederiksen/laget-events/internal/event"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	return NewLocalStore(filepath.Join(t.TempDir(), "laget_calendar.ics"))
}

func TestLocalStore_EmptyWindow(t *testing.T) {
	store := newTestStore(t)
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)

	remotes, err := store.ListWindow(context.Background(), now.Add(-DefaultWindow), now.Add(DefaultWindow))
	if err != nil {
		t.Fatalf("ListWindow() on missing file error = %v", err)
	}
	if remotes != nil {
		t.Errorf("ListWindow() = %v, want nil", remotes)
	}
}

func TestLocalStore_CreateAndList(t *testing.T) {
	store := newTestStore(t)
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)
	events := testEvents(loc)

	for _, e := range events {
		if err := store.Create(context.Background(), e); err != nil {
			t.Fatalf("Create(%s) error = %v", e.UID, err)
		}
	}

	remotes, err := store.ListWindow(context.Background(), now.Add(-DefaultWindow), now.Add(DefaultWindow))
	if err != nil {
		t.Fatalf("ListWindow() error = %v", err)
	}
	if len(remotes) != 2 {
		t.Fatalf("ListWindow() returned %d events, want 2", len(remotes))
	}

	byUID := make(map[string]Remote)
	for _, r := range remotes {
		byUID[r.UID] = r
	}

	r, ok := byUID["laget-100-1"]
	if !ok {
		t.Fatal("laget-100-1 not recovered from store")
	}
	if r.Title != events[0].Summary() {
		t.Errorf("Title = %q, want %q", r.Title, events[0].Summary())
	}
	if !r.Start.Equal(events[0].Start) {
		t.Errorf("Start = %v, want %v", r.Start, events[0].Start)
	}
	if r.Description != events[0].CalendarDescription() {
		t.Errorf("Description = %q, marker should be stripped", r.Description)
	}
}

func TestLocalStore_WindowFilter(t *testing.T) {
	store := newTestStore(t)
	loc, _ := event.LoadLocation()
	events := testEvents(loc)

	for _, e := range events {
		if err := store.Create(context.Background(), e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	// Window ends before either event starts
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, loc)
	to := time.Date(2024, time.June, 1, 0, 0, 0, 0, loc)
	remotes, err := store.ListWindow(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListWindow() error = %v", err)
	}
	if len(remotes) != 0 {
		t.Errorf("ListWindow() outside window returned %d events", len(remotes))
	}
}

func TestLocalStore_UpdateInPlace(t *testing.T) {
	store := newTestStore(t)
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)
	e := testEvents(loc)[0]

	if err := store.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	remotes, err := store.ListWindow(context.Background(), now.Add(-DefaultWindow), now.Add(DefaultWindow))
	if err != nil || len(remotes) != 1 {
		t.Fatalf("ListWindow() = %v, %v", remotes, err)
	}
	handle := remotes[0].Handle

	e.Location = "Nya hallen"
	e.Start = e.Start.Add(30 * time.Minute)
	if err := store.Update(context.Background(), handle, e); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	remotes, err = store.ListWindow(context.Background(), now.Add(-DefaultWindow), now.Add(DefaultWindow))
	if err != nil {
		t.Fatalf("ListWindow() after update error = %v", err)
	}
	if len(remotes) != 1 {
		t.Fatalf("update duplicated the event: %d entries", len(remotes))
	}
	if remotes[0].Location != e.FullLocation() {
		t.Errorf("Location = %q, want %q", remotes[0].Location, e.FullLocation())
	}
	if !remotes[0].Start.Equal(e.Start) {
		t.Errorf("Start = %v, want %v", remotes[0].Start, e.Start)
	}
}

func TestLocalStore_UpdateUnknownHandle(t *testing.T) {
	store := newTestStore(t)
	loc, _ := event.LoadLocation()
	e := testEvents(loc)[0]

	if err := store.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Update(context.Background(), "no-such-handle", e); err == nil {
		t.Error("Update() with unknown handle should fail")
	}
}

func TestLocalStore_SyncIdempotent(t *testing.T) {
	store := newTestStore(t)
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)
	events := testEvents(loc)

	first, err := Sync(context.Background(), store, events, now, 0)
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if first.Added != 2 {
		t.Errorf("first run: %+v, want 2 added", first)
	}

	second, err := Sync(context.Background(), store, events, now, 0)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if second.Added != 0 || second.Updated != 0 || second.Unchanged != 2 {
		t.Errorf("second run: %+v, want all unchanged", second)
	}
}

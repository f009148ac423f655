// Package calendar reconciles scraped registrations against calendar
// backends and produces the ICS export. The reconciler is written once
// against the Target interface; the local ICS store and Google Calendar
// implement it.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/laget-events/internal/event"
	"github.com/pfrederiksen/laget-events/internal/logger"
)

// DefaultWindow is the lookup span on each side of "now" when querying a
// backend for previously synced events. Every upcoming registration falls
// well inside it.
const DefaultWindow = 365 * 24 * time.Hour

// Remote is a backend's view of one previously synced event. Handle is the
// backend-native identity used for updates; UID is the laget identifier
// recovered from the backend's marker channel. Description carries the
// logical text with any marker already stripped by the backend.
type Remote struct {
	Handle      string
	UID         string
	Title       string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
}

// Target is a calendar that can be synced against: lookup by time window,
// create, and in-place update. Implementations embed the event UID in a
// backend-specific channel and recover it in ListWindow.
type Target interface {
	Name() string
	ListWindow(ctx context.Context, from, to time.Time) ([]Remote, error)
	Create(ctx context.Context, e *event.Event) error
	Update(ctx context.Context, handle string, e *event.Event) error
}

// BackendAuthError means a backend could not be reached or authorized.
// The backend is skipped; other backends and the file export continue.
type BackendAuthError struct {
	Backend string
	Err     error
}

func (e *BackendAuthError) Error() string {
	return fmt.Sprintf("%s calendar authentication failed: %v", e.Backend, e.Err)
}

func (e *BackendAuthError) Unwrap() error {
	return e.Err
}

// Result summarizes one backend sync.
type Result struct {
	Backend   string   `json:"backend"`
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Errors    []string `json:"errors,omitempty"`
}

// Sync reconciles events against the target: one windowed lookup builds a
// UID index of what the backend already has, then each event is created,
// updated in place, or left alone. Events are never deleted.
//
// The window is a known gap: an existing twin outside it is invisible and
// will be re-created as a duplicate. With upcoming-only registrations and
// a ±1 year default window this does not occur in practice.
func Sync(ctx context.Context, target Target, events []*event.Event, now time.Time, window time.Duration) (*Result, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	existing, err := target.ListWindow(ctx, now.Add(-window), now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("listing %s calendar events: %w", target.Name(), err)
	}

	byUID := make(map[string]Remote, len(existing))
	for _, r := range existing {
		if r.UID != "" {
			byUID[r.UID] = r
		}
	}

	result := &Result{Backend: target.Name()}
	for _, e := range events {
		remote, found := byUID[e.UID]
		switch {
		case !found:
			if err := target.Create(ctx, e); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("create %s: %v", e.UID, err))
				logger.Error("Failed to create event", logger.Fields{
					"backend": target.Name(),
					"uid":     e.UID,
				}, err)
				continue
			}
			result.Added++
			logger.Info("Added event", logger.Fields{
				"backend": target.Name(),
				"uid":     e.UID,
				"title":   e.Title,
			})
		case needsUpdate(remote, e):
			if err := target.Update(ctx, remote.Handle, e); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("update %s: %v", e.UID, err))
				logger.Error("Failed to update event", logger.Fields{
					"backend": target.Name(),
					"uid":     e.UID,
				}, err)
				continue
			}
			result.Updated++
			logger.Info("Updated event", logger.Fields{
				"backend": target.Name(),
				"uid":     e.UID,
				"title":   e.Title,
			})
		default:
			result.Unchanged++
		}
	}

	return result, nil
}

// needsUpdate compares the tracked fields: title, start, end, location and
// description. Instants are compared absolutely, so a backend reporting
// UTC matches an event built in Europe/Stockholm.
func needsUpdate(r Remote, e *event.Event) bool {
	if r.Title != e.Summary() {
		return true
	}
	if !r.Start.Equal(e.Start) || !r.End.Equal(e.End) {
		return true
	}
	if r.Location != e.FullLocation() {
		return true
	}
	if r.Description != e.CalendarDescription() {
		return true
	}
	return false
}

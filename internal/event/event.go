package event

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies a registration by what kind of activity it is for.
type Type string

const (
	TypePractice Type = "practice"
	TypeMatch    Type = "match"
	TypeOther    Type = "other"
)

// Event is the canonical representation of one registration after
// extraction and normalization. UID is stable across runs; calendar
// reconciliation depends on that.
type Event struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Type        Type      `json:"type"`
	Team        string    `json:"team,omitempty"`
	Child       string    `json:"child,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Address     string    `json:"address,omitempty"`
	MapURL      string    `json:"map_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// GenerateUID creates the deterministic identifier for a registration.
// Equal (pk, childID) pairs always yield equal UIDs; the format is fixed
// because synced calendar events are recognized by it on later runs.
func GenerateUID(pk, childID string) string {
	return fmt.Sprintf("laget-%s-%s", pk, childID)
}

var (
	practiceKeywords = []string{"träning", "traning"}
	matchKeywords    = []string{"match", "cup", "turnering", "seriespel"}
)

// ClassifyTitle derives the event type from the title text. Practice
// keywords win over match keywords; anything unmatched is Other.
func ClassifyTitle(title string) Type {
	lower := strings.ToLower(title)

	for _, kw := range practiceKeywords {
		if strings.Contains(lower, kw) {
			return TypePractice
		}
	}
	for _, kw := range matchKeywords {
		if strings.Contains(lower, kw) {
			return TypeMatch
		}
	}
	return TypeOther
}

// Summary returns the calendar summary line, "{title} - {child}" when a
// child name is known.
func (e *Event) Summary() string {
	if e.Child != "" {
		return fmt.Sprintf("%s - %s", e.Title, e.Child)
	}
	return e.Title
}

// FullLocation joins location name and street address for display.
func (e *Event) FullLocation() string {
	switch {
	case e.Location != "" && e.Address != "":
		return fmt.Sprintf("%s, %s", e.Location, e.Address)
	case e.Location != "":
		return e.Location
	default:
		return e.Address
	}
}

// CalendarDescription builds the description text written to calendar
// backends and the ICS export: team, free-text notes, attendee list and
// map link, in that order.
func (e *Event) CalendarDescription() string {
	var parts []string

	if e.Team != "" {
		parts = append(parts, fmt.Sprintf("Lag: %s", e.Team))
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if len(e.Attendees) > 0 {
		parts = append(parts, fmt.Sprintf("Anmälda: %s", strings.Join(e.Attendees, ", ")))
	}
	if e.MapURL != "" {
		parts = append(parts, fmt.Sprintf("Karta: %s", e.MapURL))
	}

	return strings.Join(parts, "\n\n")
}

// Filter returns the events to export. Practice events are dropped unless
// includePractice is set; order is preserved.
func Filter(events []*Event, includePractice bool) []*Event {
	if includePractice {
		return events
	}

	kept := make([]*Event, 0, len(events))
	for _, e := range events {
		if e.Type == TypePractice {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

package calendar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/laget-events/internal/event"
)

func TestNewICS(t *testing.T) {
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)
	events := testEvents(loc)

	out := NewICS(events, now).Serialize()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + ProdID,
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + CalendarName,
		"UID:laget-100-1@laget.se",
		"UID:laget-101-1@laget.se",
		"SUMMARY:Match mot Hammarby IF - Elias",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("serialized calendar missing %q", want)
		}
	}

	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("VEVENT count = %d, want 2", got)
	}
	// Two alarms per event
	if got := strings.Count(out, "BEGIN:VALARM"); got != 4 {
		t.Errorf("VALARM count = %d, want 4", got)
	}
	if !strings.Contains(out, "TRIGGER:-P1D") {
		t.Error("missing day-before alarm trigger")
	}
	if !strings.Contains(out, "TRIGGER:-PT2H") {
		t.Error("missing two-hour alarm trigger")
	}
}

func TestNewICS_EscapesText(t *testing.T) {
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)
	events := []*event.Event{{
		UID:      "laget-200-1",
		Title:    "Cup, dag 1",
		Child:    "Elias",
		Start:    time.Date(2024, time.November, 14, 9, 0, 0, 0, loc),
		End:      time.Date(2024, time.November, 14, 16, 0, 0, 0, loc),
		Location: "Hallen; plan 2",
	}}

	out := NewICS(events, now).Serialize()

	if !strings.Contains(out, `Cup\, dag 1`) {
		t.Error("comma in summary not escaped")
	}
	if !strings.Contains(out, `Hallen\; plan 2`) {
		t.Error("semicolon in location not escaped")
	}
}

func TestWriteICS(t *testing.T) {
	loc, _ := event.LoadLocation()
	now := time.Date(2024, time.November, 1, 12, 0, 0, 0, loc)
	path := filepath.Join(t.TempDir(), "out", "laget.ics")

	if err := WriteICS(path, testEvents(loc), now); err != nil {
		t.Fatalf("WriteICS() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "UID:laget-100-1@laget.se") {
		t.Error("written file missing event UID")
	}
}

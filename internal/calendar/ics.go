package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pfrederiksen/laget-events/internal/event"
)

const (
	ProdID       = "-//laget-events//laget-events//EN"
	CalendarName = "Laget.se Anmälningar"
	uidDomain    = "laget.se"
)

// NewICS builds the export calendar: one VEVENT per record with two
// DISPLAY alarms, one day and two hours before the start.
func NewICS(events []*event.Event, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(ProdID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(CalendarName)
	cal.SetXWRCalDesc("Registrations from laget.se")

	for _, e := range events {
		ve := cal.AddEvent(fmt.Sprintf("%s@%s", e.UID, uidDomain))
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(e.Start)
		ve.SetEndAt(e.End)
		// Property values are serialized verbatim; TEXT fields must be
		// escaped going in (ToText) and unescaped coming out (FromText).
		ve.SetSummary(ics.ToText(e.Summary()))
		if loc := e.FullLocation(); loc != "" {
			ve.SetLocation(ics.ToText(loc))
		}
		if desc := e.CalendarDescription(); desc != "" {
			ve.SetDescription(ics.ToText(desc))
		}

		dayBefore := ve.AddAlarm()
		dayBefore.SetAction(ics.ActionDisplay)
		dayBefore.SetDescription(ics.ToText(fmt.Sprintf("Reminder: %s tomorrow", e.Summary())))
		dayBefore.SetTrigger("-P1D")

		twoHours := ve.AddAlarm()
		twoHours.SetAction(ics.ActionDisplay)
		twoHours.SetDescription(ics.ToText(fmt.Sprintf("Reminder: %s in 2 hours", e.Summary())))
		twoHours.SetTrigger("-PT2H")
	}

	return cal
}

// WriteICS serializes the export calendar to path. The file is the offline
// fallback and is written regardless of backend sync outcomes.
func WriteICS(path string, events []*event.Event, now time.Time) error {
	cal := NewICS(events, now)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(cal.Serialize()), 0644); err != nil {
		return fmt.Errorf("writing calendar file: %w", err)
	}
	return nil
}

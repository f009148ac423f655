package calendar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pfrederiksen/laget-events/internal/event"
)

// uidMarker is how the local store tags events it owns: a marker line
// appended to the description, mirrored after the notes-field convention
// desktop calendar apps tolerate. Lookup is window + marker substring.
const uidMarkerFormat = "[UID: %s]"

var uidMarkerPattern = regexp.MustCompile(`\[UID: ([^\]]+)\]`)

// LocalStore is the local calendar backend: a single ICS file maintained
// in place. Calendar apps can subscribe to or import the file; the store
// itself never deletes events.
type LocalStore struct {
	path string
}

// NewLocalStore creates a local backend writing to path. The file is
// created on first sync.
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

func (s *LocalStore) Name() string {
	return "local"
}

// Path returns the store file location.
func (s *LocalStore) Path() string {
	return s.path
}

// ListWindow returns the marked events whose start falls inside the window.
func (s *LocalStore) ListWindow(ctx context.Context, from, to time.Time) ([]Remote, error) {
	cal, err := s.load()
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, nil
	}

	var remotes []Remote
	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		if err != nil {
			continue
		}
		if start.Before(from) || start.After(to) {
			continue
		}

		desc := textProp(ve, ics.ComponentPropertyDescription)
		m := uidMarkerPattern.FindStringSubmatch(desc)
		if m == nil {
			continue
		}

		end, err := ve.GetEndAt()
		if err != nil {
			end = start
		}

		remotes = append(remotes, Remote{
			Handle:      ve.Id(),
			UID:         m[1],
			Title:       textProp(ve, ics.ComponentPropertySummary),
			Start:       start,
			End:         end,
			Location:    textProp(ve, ics.ComponentPropertyLocation),
			Description: stripMarker(desc),
		})
	}

	return remotes, nil
}

// Create appends a new event carrying the UID marker.
func (s *LocalStore) Create(ctx context.Context, e *event.Event) error {
	cal, err := s.load()
	if err != nil {
		return err
	}
	if cal == nil {
		cal = ics.NewCalendar()
		cal.SetProductId(ProdID)
		cal.SetXWRCalName(CalendarName)
	}

	ve := cal.AddEvent(fmt.Sprintf("%s@%s", e.UID, uidDomain))
	ve.SetDtStampTime(time.Now().UTC())
	setEventFields(ve, e)

	return s.save(cal)
}

// Update rewrites the fields of an existing event in place, keeping its
// component identity.
func (s *LocalStore) Update(ctx context.Context, handle string, e *event.Event) error {
	cal, err := s.load()
	if err != nil {
		return err
	}
	if cal == nil {
		return fmt.Errorf("local store %s does not exist", s.path)
	}

	for _, ve := range cal.Events() {
		if ve.Id() != handle {
			continue
		}
		setEventFields(ve, e)
		return s.save(cal)
	}

	return fmt.Errorf("event %s not found in local store", handle)
}

func setEventFields(ve *ics.VEvent, e *event.Event) {
	ve.SetStartAt(e.Start)
	ve.SetEndAt(e.End)
	ve.SetSummary(ics.ToText(e.Summary()))
	ve.SetLocation(ics.ToText(e.FullLocation()))

	desc := e.CalendarDescription()
	marker := fmt.Sprintf(uidMarkerFormat, e.UID)
	if desc == "" {
		desc = marker
	} else {
		desc = desc + "\n\n" + marker
	}
	ve.SetDescription(ics.ToText(desc))
}

// load reads the store file; a missing file yields (nil, nil).
func (s *LocalStore) load() (*ics.Calendar, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	defer f.Close()

	cal, err := ics.ParseCalendar(f)
	if err != nil {
		return nil, fmt.Errorf("parsing local store: %w", err)
	}
	return cal, nil
}

// save writes atomically: temp file in the same directory, then rename.
func (s *LocalStore) save(cal *ics.Calendar) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".laget-store-*")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := cal.SerializeTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("serializing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

func textProp(ve *ics.VEvent, prop ics.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return ics.FromText(p.Value)
}

func stripMarker(desc string) string {
	return strings.TrimSpace(uidMarkerPattern.ReplaceAllString(desc, ""))
}

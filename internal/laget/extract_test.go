package laget

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return string(data)
}

func TestExtract(t *testing.T) {
	html := loadFixture(t, "registration_detail.html")

	d, err := Extract(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if d.Title != "Match mot Hammarby IF" {
		t.Errorf("Title = %q", d.Title)
	}
	if d.Team != "Solna FC P12 Blå" {
		t.Errorf("Team = %q", d.Team)
	}
	if d.Child != "Elsa Lindqvist" {
		t.Errorf("Child = %q (prefix not stripped?)", d.Child)
	}
	if d.Date != "lördag 14 november" {
		t.Errorf("Date = %q", d.Date)
	}
	if d.Time != "18:00-19:30" {
		t.Errorf("Time = %q", d.Time)
	}
	if d.Gathering != "14 nov, 17:30" {
		t.Errorf("Gathering = %q", d.Gathering)
	}
	if d.Location != "Skytteholms IP" {
		t.Errorf("Location = %q", d.Location)
	}
	if d.Address != "Parkvägen 1, 171 35 Solna" {
		t.Errorf("Address = %q", d.Address)
	}
	if d.Deadline != "13 november, 12:00" {
		t.Errorf("Deadline = %q", d.Deadline)
	}
	if !strings.Contains(d.Description, "vattenflaska") {
		t.Errorf("Description = %q", d.Description)
	}
	if d.MapURL != "https://www.google.com/maps?q=59.3605,17.9888" {
		t.Errorf("MapURL = %q", d.MapURL)
	}

	wantAttendees := []string{"Elsa Lindqvist", "Hugo Berg", "Maja Ek"}
	if len(d.Attendees) != len(wantAttendees) {
		t.Fatalf("Attendees = %v, want %v", d.Attendees, wantAttendees)
	}
	for i, name := range wantAttendees {
		if d.Attendees[i] != name {
			t.Errorf("Attendees[%d] = %q, want %q", i, d.Attendees[i], name)
		}
	}
}

func TestExtract_MinimalFragment(t *testing.T) {
	html := loadFixture(t, "registration_detail_minimal.html")

	d, err := Extract(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if d.Title != "Träning" {
		t.Errorf("Title = %q", d.Title)
	}
	if d.Date != "16 november" {
		t.Errorf("Date = %q", d.Date)
	}

	// Optional fields default to empty, never error
	if d.Team != "" || d.Child != "" || d.Gathering != "" || d.Location != "" ||
		d.Address != "" || d.Description != "" || d.MapURL != "" || len(d.Attendees) != 0 {
		t.Errorf("expected optional fields empty, got %+v", d)
	}
}

func TestExtract_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		missing string
	}{
		{
			name:    "no title",
			html:    `<div><span class="invitation__label--noWidth">Datum:</span><span>14 november</span></div>`,
			missing: "title",
		},
		{
			name:    "no date",
			html:    `<p class="invitation__title">Match</p>`,
			missing: "date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(strings.NewReader(tt.html))
			if err == nil {
				t.Fatal("Extract() expected error, got nil")
			}
			var eerr *ExtractError
			if !errors.As(err, &eerr) {
				t.Fatalf("error type = %T, want *ExtractError", err)
			}
			if eerr.Missing != tt.missing {
				t.Errorf("Missing = %q, want %q", eerr.Missing, tt.missing)
			}
		})
	}
}

func TestParseModalHref(t *testing.T) {
	tests := []struct {
		href   string
		want   Ref
		wantOK bool
	}{
		{
			href:   "/Common/Rsvp/ModalContent?pk=10001&childId=501&site=solnafc",
			want:   Ref{PK: "10001", ChildID: "501", Site: "solnafc"},
			wantOK: true,
		},
		{
			href:   "/Common/Rsvp/ModalContent?pk=10004&site=solnafc",
			wantOK: false,
		},
		{
			href:   "://bad-url",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			ref, ok := parseModalHref(tt.href)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && ref != tt.want {
				t.Errorf("ref = %+v, want %+v", ref, tt.want)
			}
		})
	}
}

package laget

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Details is the raw extraction result for one registration fragment.
// Everything is the site's string form; normalization happens later.
// Only Title and Date are required, every other field may be empty.
type Details struct {
	Title       string
	Team        string
	Child       string
	Date        string
	Time        string
	Gathering   string
	Location    string
	Address     string
	Deadline    string
	Description string
	MapURL      string
	Attendees   []string
}

// ExtractError means a fragment did not carry the minimum fields needed to
// build an event. Per-record, recoverable: the caller skips the record.
type ExtractError struct {
	Missing string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("registration fragment missing %s", e.Missing)
}

// childPrefix precedes the child's name in the second subtitle.
const childPrefix = "Anmälning för "

// Extract parses a detail fragment into Details.
func Extract(r io.Reader) (*Details, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return extract(doc)
}

func extract(doc *goquery.Document) (*Details, error) {
	d := &Details{}

	d.Title = strings.TrimSpace(doc.Find("p.invitation__title").First().Text())

	// First subtitle is the team, second the child ("Anmälning för <name>").
	subtitles := doc.Find("p.invitation__subTitle")
	if subtitles.Length() > 0 {
		d.Team = strings.TrimSpace(subtitles.Eq(0).Text())
	}
	if subtitles.Length() > 1 {
		child := strings.TrimSpace(subtitles.Eq(1).Text())
		d.Child = strings.TrimPrefix(child, childPrefix)
	}

	// Labelled rows: Datum, Tid, Plats, Samling, Anmälningsstopp.
	doc.Find("span.invitation__label--noWidth").Each(func(i int, sel *goquery.Selection) {
		label := strings.TrimSuffix(strings.TrimSpace(sel.Text()), ":")
		value := labelValue(sel)

		switch {
		case strings.Contains(label, "Datum"):
			d.Date = value
		case strings.Contains(label, "Tid"):
			d.Time = value
		case strings.Contains(label, "Plats"):
			d.Location = value
		case strings.Contains(label, "Samling"):
			d.Gathering = value
		case strings.Contains(label, "Anmälningsstopp"):
			d.Deadline = value
		}
	})

	d.Address = strings.TrimSpace(doc.Find("span.invitation__place__address").First().Text())

	d.Description = strings.TrimSpace(doc.Find("div.invitation__comment p").First().Text())

	doc.Find("ul.invitation__attendees li").Each(func(i int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			d.Attendees = append(d.Attendees, name)
		}
	})

	doc.Find(`a[href*="google.com/maps"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if href, ok := sel.Attr("href"); ok {
			d.MapURL = href
			return false
		}
		return true
	})

	if d.Title == "" {
		return nil, &ExtractError{Missing: "title"}
	}
	if d.Date == "" {
		return nil, &ExtractError{Missing: "date"}
	}

	return d, nil
}

// labelValue reads the text belonging to a label span: the next sibling
// element when there is one, otherwise the parent's text with the label
// removed.
func labelValue(label *goquery.Selection) string {
	if sibling := label.Next(); sibling.Length() > 0 {
		return strings.TrimSpace(sibling.Text())
	}

	parent := label.Parent()
	if parent.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Replace(parent.Text(), label.Text(), "", 1))
}

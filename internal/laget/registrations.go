package laget

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/laget-events/internal/event"
	"github.com/pfrederiksen/laget-events/internal/logger"
)

// Ref identifies one registration's detail fragment. The parameters come
// from the modal links on the front page and are consumed immediately by
// the detail fetch.
type Ref struct {
	PK      string
	ChildID string
	Site    string
}

// Registrations lists the current registrations for the logged-in account.
// An empty list is a valid result, not an error.
func (c *Client) Registrations(ctx context.Context) ([]Ref, error) {
	if !c.loggedIn {
		return nil, &AuthError{Reason: "not logged in"}
	}

	doc, _, err := c.getDocument(ctx, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching registration list: %w", err)
	}

	var refs []Ref
	doc.Find(`a[href*="` + modalPath + `"]`).Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, ok := parseModalHref(href)
		if !ok {
			logger.Warn("Skipping malformed registration link", logger.Fields{"href": href})
			return
		}
		refs = append(refs, ref)
	})

	return refs, nil
}

// parseModalHref pulls pk, childId and site out of a modal-content link.
func parseModalHref(href string) (Ref, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return Ref{}, false
	}
	q := u.Query()
	ref := Ref{
		PK:      q.Get("pk"),
		ChildID: q.Get("childId"),
		Site:    q.Get("site"),
	}
	if ref.PK == "" || ref.ChildID == "" || ref.Site == "" {
		return Ref{}, false
	}
	return ref, true
}

// Details fetches and extracts one registration's detail fragment.
func (c *Client) Details(ctx context.Context, ref Ref) (*Details, error) {
	params := url.Values{
		"pk":      {ref.PK},
		"childId": {ref.ChildID},
		"site":    {ref.Site},
	}

	doc, _, err := c.getDocument(ctx, c.baseURL+modalPath, params)
	if err != nil {
		return nil, fmt.Errorf("fetching registration details: %w", err)
	}

	return extract(doc)
}

// FetchEvents runs the whole fetch pipeline: list registrations, then per
// registration fetch the fragment, extract fields and build the canonical
// event. Records that fail to fetch, extract or normalize are skipped with
// a warning; only the listing itself can fail the call.
func (c *Client) FetchEvents(ctx context.Context, now time.Time, loc *time.Location) ([]*event.Event, error) {
	refs, err := c.Registrations(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Found registrations", logger.Fields{"count": len(refs)})

	events := make([]*event.Event, 0, len(refs))
	for _, ref := range refs {
		details, err := c.Details(ctx, ref)
		if err != nil {
			logger.Warn("Skipping registration", logger.Fields{
				"pk":      ref.PK,
				"childId": ref.ChildID,
			})
			logger.Debug("Registration fetch error", logger.Fields{"error": err.Error()})
			continue
		}

		evt, err := BuildEvent(ref, details, now, loc)
		if err != nil {
			logger.Warn("Skipping registration with unparsable date/time", logger.Fields{
				"title": details.Title,
				"date":  details.Date,
				"time":  details.Time,
			})
			continue
		}

		events = append(events, evt)
		logger.Debug("Fetched registration", logger.Fields{
			"uid":   evt.UID,
			"title": evt.Title,
		})
	}

	return events, nil
}

// BuildEvent converts an extracted detail fragment into a canonical event.
func BuildEvent(ref Ref, d *Details, now time.Time, loc *time.Location) (*event.Event, error) {
	start, end, err := event.ParseDateTime(d.Date, d.Time, d.Gathering, now, loc)
	if err != nil {
		return nil, err
	}

	return &event.Event{
		UID:         event.GenerateUID(ref.PK, ref.ChildID),
		Title:       strings.TrimSpace(d.Title),
		Type:        event.ClassifyTitle(d.Title),
		Team:        d.Team,
		Child:       d.Child,
		Start:       start,
		End:         end,
		Location:    d.Location,
		Address:     d.Address,
		MapURL:      d.MapURL,
		Description: d.Description,
		Attendees:   d.Attendees,
	}, nil
}

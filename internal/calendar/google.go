package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/pfrederiksen/laget-events/internal/event"
	"github.com/pfrederiksen/laget-events/internal/logger"
	"github.com/pfrederiksen/laget-events/internal/storage"
)

// uidProperty is the private extended property carrying the laget UID on
// Google Calendar events.
const uidProperty = "lagetUid"

const maxListResults = 2500

// GoogleCalendar is the remote backend on the Google Calendar API.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	zone       string
}

// NewGoogleCalendar authorizes against the Google Calendar API and resolves
// the target calendar. The OAuth token is read from the data dir and
// refreshed silently; without a token, an installed-app authorization is
// run once (URL printed, code read from stdin) and the token persisted.
// Failures wrap into *BackendAuthError so the caller can skip the backend.
func NewGoogleCalendar(ctx context.Context, store *storage.Storage, credentialsFile, calendarName string) (*GoogleCalendar, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, &BackendAuthError{Backend: "google", Err: fmt.Errorf("reading credentials file %s: %w", credentialsFile, err)}
	}

	config, err := google.ConfigFromJSON(creds, gcal.CalendarScope)
	if err != nil {
		return nil, &BackendAuthError{Backend: "google", Err: fmt.Errorf("parsing credentials file: %w", err)}
	}

	token, err := store.LoadToken()
	if err != nil {
		return nil, &BackendAuthError{Backend: "google", Err: err}
	}
	if token == nil {
		token, err = tokenFromWeb(ctx, config)
		if err != nil {
			return nil, &BackendAuthError{Backend: "google", Err: err}
		}
		if err := store.SaveToken(token); err != nil {
			return nil, &BackendAuthError{Backend: "google", Err: err}
		}
		logger.Info("Saved Google Calendar token", logger.Fields{"path": store.TokenPath()})
	}

	// TokenSource refreshes expired tokens transparently; persist the
	// refreshed token so the next run skips the round trip.
	source := config.TokenSource(ctx, token)
	refreshed, err := source.Token()
	if err != nil {
		return nil, &BackendAuthError{Backend: "google", Err: fmt.Errorf("refreshing token: %w", err)}
	}
	if refreshed.AccessToken != token.AccessToken {
		if err := store.SaveToken(refreshed); err != nil {
			logger.Warn("Could not persist refreshed token", logger.Fields{"path": store.TokenPath()})
		}
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, &BackendAuthError{Backend: "google", Err: fmt.Errorf("creating calendar service: %w", err)}
	}

	g := &GoogleCalendar{svc: svc, zone: event.TimeZoneName}
	g.calendarID, err = g.resolveCalendar(calendarName)
	if err != nil {
		return nil, &BackendAuthError{Backend: "google", Err: err}
	}

	return g, nil
}

// tokenFromWeb runs the manual installed-app flow.
func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n> ", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("reading authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// resolveCalendar maps a calendar name to its ID, creating the calendar
// when it does not exist. An empty name means the account's primary
// calendar.
func (g *GoogleCalendar) resolveCalendar(name string) (string, error) {
	if name == "" {
		return "primary", nil
	}

	pageToken := ""
	for {
		call := g.svc.CalendarList.List()
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return "", fmt.Errorf("listing calendars: %w", err)
		}
		for _, item := range list.Items {
			if item.Summary == name {
				return item.Id, nil
			}
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}

	created, err := g.svc.Calendars.Insert(&gcal.Calendar{
		Summary:  name,
		TimeZone: g.zone,
	}).Do()
	if err != nil {
		return "", fmt.Errorf("creating calendar %q: %w", name, err)
	}
	logger.Info("Created Google Calendar", logger.Fields{"name": name})
	return created.Id, nil
}

func (g *GoogleCalendar) Name() string {
	return "google"
}

// ListWindow lists events in the window and keeps those carrying the UID
// extended property. The API has no bulk property filter, so filtering is
// client-side.
func (g *GoogleCalendar) ListWindow(ctx context.Context, from, to time.Time) ([]Remote, error) {
	var remotes []Remote
	pageToken := ""
	for {
		call := g.svc.Events.List(g.calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			MaxResults(maxListResults).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing events: %w", err)
		}

		for _, item := range page.Items {
			remote, ok := remoteFromItem(item)
			if !ok {
				continue
			}
			remotes = append(remotes, remote)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return remotes, nil
}

func remoteFromItem(item *gcal.Event) (Remote, bool) {
	if item.ExtendedProperties == nil {
		return Remote{}, false
	}
	uid := item.ExtendedProperties.Private[uidProperty]
	if uid == "" {
		return Remote{}, false
	}
	// All-day events are never ours
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return Remote{}, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return Remote{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return Remote{}, false
	}

	return Remote{
		Handle:      item.Id,
		UID:         uid,
		Title:       item.Summary,
		Start:       start,
		End:         end,
		Location:    item.Location,
		Description: item.Description,
	}, true
}

// Create inserts a new event with the UID property and popup reminders one
// day and two hours before the start.
func (g *GoogleCalendar) Create(ctx context.Context, e *event.Event) error {
	_, err := g.svc.Events.Insert(g.calendarID, g.eventBody(e)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Update patches the existing event, preserving its Google identity.
func (g *GoogleCalendar) Update(ctx context.Context, handle string, e *event.Event) error {
	_, err := g.svc.Events.Patch(g.calendarID, handle, g.eventBody(e)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("patching event: %w", err)
	}
	return nil
}

func (g *GoogleCalendar) eventBody(e *event.Event) *gcal.Event {
	return &gcal.Event{
		Summary:     e.Summary(),
		Location:    e.FullLocation(),
		Description: e.CalendarDescription(),
		Start: &gcal.EventDateTime{
			DateTime: e.Start.Format(time.RFC3339),
			TimeZone: g.zone,
		},
		End: &gcal.EventDateTime{
			DateTime: e.End.Format(time.RFC3339),
			TimeZone: g.zone,
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{uidProperty: e.UID},
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 24 * 60},
				{Method: "popup", Minutes: 2 * 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// Package laget talks to laget.se: form login, registration listing and
// detail-fragment extraction. All markup knowledge lives here; the rest of
// the pipeline only sees typed records.
package laget

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	BaseURL   = "https://www.laget.se"
	UserAgent = "laget-events/1.0 (github.com/pfrederiksen/laget-events)"
	Timeout   = 30 * time.Second

	loginPath = "/Common/Auth/Login"
	modalPath = "/Common/Rsvp/ModalContent"
)

// AuthError means the site rejected the credentials or the login page no
// longer carries the expected anti-forgery token. Fatal to the run.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("laget.se login failed: %s", e.Reason)
}

// Client is an authenticated laget.se session. The cookie jar carries the
// session cookie set at login; one Client serves a whole run.
type Client struct {
	client   *http.Client
	baseURL  string
	email    string
	password string
	loggedIn bool
}

// New creates a new Client for the given credentials.
func New(email, password string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		client: &http.Client{
			Jar:     jar,
			Timeout: Timeout,
		},
		baseURL:  BaseURL,
		email:    email,
		password: password,
	}, nil
}

// Login fetches the login page, extracts the anti-forgery token and submits
// the credential form. The session cookie lands in the jar on success.
func (c *Client) Login(ctx context.Context) error {
	doc, _, err := c.getDocument(ctx, c.baseURL+loginPath, nil)
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("loading login page: %v", err)}
	}

	token, ok := doc.Find(`input[name="__RequestVerificationToken"]`).Attr("value")
	if !ok || token == "" {
		return &AuthError{Reason: "anti-forgery token not found on login page"}
	}
	referer, _ := doc.Find(`input#Referer[name="Referer"]`).Attr("value")

	form := url.Values{
		"__RequestVerificationToken": {token},
		"Referer":                    {referer},
		"Email":                      {c.email},
		"Password":                   {c.password},
		"KeepAlive":                  {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("creating login request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("submitting login form: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Reason: fmt.Sprintf("unexpected status code: %d", resp.StatusCode)}
	}

	// A rejected login renders the form again; a successful one redirects
	// away from the login path.
	landed, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("parsing login response: %v", err)}
	}
	stillOnLogin := strings.Contains(resp.Request.URL.Path, loginPath)
	hasPasswordForm := landed.Find(`input[name="Password"]`).Length() > 0
	if stillOnLogin && hasPasswordForm {
		return &AuthError{Reason: "credentials rejected"}
	}

	c.loggedIn = true
	return nil
}

// LoggedIn reports whether Login has succeeded on this client.
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}

// getDocument GETs a URL with optional query parameters and parses the body.
func (c *Client) getDocument(ctx context.Context, rawURL string, params url.Values) (*goquery.Document, *http.Response, error) {
	if params != nil {
		rawURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, resp, nil
}

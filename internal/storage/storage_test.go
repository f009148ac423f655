package storage

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestNew_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Missing token is not an error
	tok, err := s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if tok != nil {
		t.Fatal("LoadToken() on empty dir should return nil")
	}

	want := &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.SaveToken(want); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	got, err := s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadToken() = nil after save")
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("token = %+v, want %+v", got, want)
	}
	if !got.Expiry.Equal(want.Expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, want.Expiry)
	}
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if s.TokenPath() != filepath.Join(dir, "token.json") {
		t.Errorf("TokenPath() = %q", s.TokenPath())
	}
	if s.LocalStorePath() != filepath.Join(dir, "laget_calendar.ics") {
		t.Errorf("LocalStorePath() = %q", s.LocalStorePath())
	}
}

// Package storage handles the on-disk state that survives runs: the data
// directory itself, the persisted Google OAuth token and the local
// calendar store file.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
)

const (
	tokenFile      = "token.json"
	localStoreFile = "laget_calendar.ics"
)

// Storage is rooted at a data directory, created on first use.
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the resolved data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

// TokenPath returns the OAuth token file location.
func (s *Storage) TokenPath() string {
	return filepath.Join(s.dataDir, tokenFile)
}

// LocalStorePath returns the local calendar store file location.
func (s *Storage) LocalStorePath() string {
	return filepath.Join(s.dataDir, localStoreFile)
}

// LoadToken reads the persisted OAuth token. A missing file returns
// (nil, nil): first run, not an error.
func (s *Storage) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.TokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return &token, nil
}

// SaveToken persists the OAuth token for later runs.
func (s *Storage) SaveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.WriteFile(s.TokenPath(), data, 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

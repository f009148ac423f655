package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/laget-events/internal/calendar"
	"github.com/pfrederiksen/laget-events/internal/config"
	"github.com/pfrederiksen/laget-events/internal/event"
	"github.com/pfrederiksen/laget-events/internal/laget"
	"github.com/pfrederiksen/laget-events/internal/logger"
	"github.com/pfrederiksen/laget-events/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagEmail           string
	flagPassword        string
	flagOutput          string
	flagConfig          string
	flagDataDir         string
	flagIncludePractice bool
	flagSyncLocal       bool
	flagSyncGoogle      bool
	flagCalendarName    string
	flagCredentials     string
	flagFormat          string
	flagVerbose         bool
	flagWindowDays      int
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laget-events",
		Short: "Sync laget.se registrations to your calendar",
		Long: `A CLI tool that logs in to laget.se, scrapes your children's
registrations and turns them into calendar events: always an ICS file,
optionally synced to a local calendar store and to Google Calendar.
Repeated runs are idempotent.`,
		SilenceUsage: true,
		RunE:         runSync,
	}

	// Persistent so the init subcommand shares the credential and config flags
	cmd.PersistentFlags().StringVar(&flagEmail, "email", "", "laget.se account email")
	cmd.PersistentFlags().StringVar(&flagPassword, "password", "", "laget.se account password")
	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/laget-events/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagCalendarName, "calendar-name", "", "Google Calendar name (default: primary calendar)")
	cmd.PersistentFlags().StringVar(&flagCredentials, "credentials", "", "Google OAuth credentials.json path")
	cmd.Flags().StringVar(&flagOutput, "output", "laget_registrations.ics", "Path for the ICS export")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "~/.local/share/laget-events", "Data directory for tokens and the local store")
	cmd.Flags().BoolVar(&flagIncludePractice, "include-practice", false, "Include practice sessions (excluded by default)")
	cmd.Flags().BoolVar(&flagSyncLocal, "sync-local", false, "Sync to the local calendar store")
	cmd.Flags().BoolVar(&flagSyncGoogle, "sync-google", false, "Sync to Google Calendar")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	cmd.Flags().IntVar(&flagWindowDays, "window-days", 365, "Backend lookup window in days on each side of now")

	cmd.AddCommand(newInitCmd())

	return cmd
}

// newInitCmd creates the init subcommand, which writes a config file from
// flags and environment without prompting.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the config file from flags and environment",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	cfg := &config.Config{
		Email:             firstNonEmpty(flagEmail, os.Getenv("LAGET_EMAIL")),
		Password:          firstNonEmpty(flagPassword, os.Getenv("LAGET_PASSWORD")),
		CalendarName:      flagCalendarName,
		GoogleCredentials: flagCredentials,
	}
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("init needs --email/--password or LAGET_EMAIL/LAGET_PASSWORD")
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// runSync is the main command logic
func runSync(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	email, password, err := cfg.Credentials(flagEmail, flagPassword)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := event.LoadLocation()
	if err != nil {
		return fmt.Errorf("loading time zone: %w", err)
	}
	now := time.Now().In(loc)

	client, err := laget.New(email, password)
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		return err
	}

	events, err := client.FetchEvents(ctx, now, loc)
	if err != nil {
		return err
	}
	logger.Info("Fetched registrations", logger.Fields{"count": len(events)})

	events = event.Filter(events, flagIncludePractice)

	result := &OutputResult{
		CheckedAt:  now.UTC(),
		EventCount: len(events),
		Events:     events,
	}

	// The file export always happens; backend failures never block it.
	if err := calendar.WriteICS(flagOutput, events, now); err != nil {
		return err
	}
	result.ICSPath = flagOutput
	logger.Info("Wrote ICS export", logger.Fields{"path": flagOutput, "events": len(events)})

	window := time.Duration(flagWindowDays) * 24 * time.Hour

	if flagSyncLocal || flagSyncGoogle {
		store, err := storage.New(flagDataDir)
		if err != nil {
			return err
		}

		if flagSyncLocal {
			local := calendar.NewLocalStore(store.LocalStorePath())
			syncBackend(ctx, local, events, now, window, result)
		}

		if flagSyncGoogle {
			credentials := firstNonEmpty(flagCredentials, cfg.GoogleCredentials)
			if credentials == "" {
				result.BackendErrors = append(result.BackendErrors, "google: no credentials file configured")
			} else {
				name := firstNonEmpty(flagCalendarName, cfg.CalendarName)
				google, err := calendar.NewGoogleCalendar(ctx, store, credentials, name)
				if err != nil {
					var authErr *calendar.BackendAuthError
					if !errors.As(err, &authErr) {
						return err
					}
					result.BackendErrors = append(result.BackendErrors, authErr.Error())
					logger.Error("Skipping Google Calendar", logger.Fields{"backend": "google"}, err)
				} else {
					syncBackend(ctx, google, events, now, window, result)
				}
			}
		}
	}

	return WriteOutput(os.Stdout, result, format, flagVerbose)
}

// syncBackend runs one backend sync and folds the outcome into the result.
// A failed lookup is recorded and the remaining backends continue.
func syncBackend(ctx context.Context, target calendar.Target, events []*event.Event, now time.Time, window time.Duration, result *OutputResult) {
	sync, err := calendar.Sync(ctx, target, events, now, window)
	if err != nil {
		result.BackendErrors = append(result.BackendErrors, fmt.Sprintf("%s: %v", target.Name(), err))
		logger.Error("Backend sync failed", logger.Fields{"backend": target.Name()}, err)
		return
	}
	result.Sync = append(result.Sync, sync)
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

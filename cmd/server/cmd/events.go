package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/config"
	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/spf13/cobra"
)

func newEventsCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List or create events",
	}
	cmd.AddCommand(newEventsListCmd(), newEventsCreateCmd(global))
	return cmd
}

type eventsListFlags struct {
	limit     int
	serverURL string
	format    string
}

func newEventsListCmd() *cobra.Command {
	flags := &eventsListFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events from a running server",
		Long: `Query the public events API and print the results.

Examples:
  server events list
  server events list --limit 20 --server http://localhost:8080
  server events list --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return listEvents(ctx, http.DefaultClient, cmd.OutOrStdout(), *flags)
		},
	}
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 10, "number of events to retrieve")
	cmd.Flags().StringVar(&flags.serverURL, "server", "http://localhost:8080", "server URL")
	cmd.Flags().StringVar(&flags.format, "format", "table", "output format (table, json)")
	return cmd
}

type listedEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	Location       string    `json:"location"`
	MaxAttendees   *int      `json:"max_attendees"`
	AttendeesCount int       `json:"attendees_count"`
	IsFull         bool      `json:"is_full"`
	Organizer      struct {
		Username string `json:"username"`
	} `json:"organizer"`
}

func listEvents(ctx context.Context, client *http.Client, out io.Writer, flags eventsListFlags) error {
	url := fmt.Sprintf("%s/api/v1/events?limit=%d", strings.TrimRight(flags.serverURL, "/"), flags.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if flags.format == "json" {
		var pretty any
		if err := json.Unmarshal(body, &pretty); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	}

	var result struct {
		Items []listedEvent `json:"items"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(result.Items) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d event(s):\n\n", len(result.Items))
	for i, e := range result.Items {
		fmt.Fprintf(out, "%d. %s\n", i+1, e.Title)
		fmt.Fprintf(out, "   %s | %s | by %s\n", e.Date.Format("Jan 2, 2006 3:04 PM MST"), e.Location, e.Organizer.Username)
		fmt.Fprintf(out, "   %s\n", seatsSummary(e))
	}
	return nil
}

func seatsSummary(e listedEvent) string {
	if e.MaxAttendees == nil {
		return fmt.Sprintf("%d attending (no limit)", e.AttendeesCount)
	}
	summary := fmt.Sprintf("%d/%d attending", e.AttendeesCount, *e.MaxAttendees)
	if e.IsFull {
		summary += " (full)"
	}
	return summary
}

type eventsCreateFlags struct {
	organizer    string
	title        string
	description  string
	date         string
	location     string
	maxAttendees int
	timezone     string
}

func newEventsCreateCmd(global *globalFlags) *cobra.Command {
	flags := &eventsCreateFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event directly in the database",
		Long: `Create an event on behalf of an existing user, applying the same
validation as the API.

--date accepts RFC 3339 or natural language resolved in --timezone.

Examples:
  server events create --organizer alice --title "Go Meetup" \
    --description "Lightning talks" --location "Community Hall" \
    --date "next friday 7pm" --timezone Europe/Berlin --max-attendees 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return createEvent(cmd.Context(), cfg, cmd.OutOrStdout(), *flags)
		},
	}
	cmd.Flags().StringVar(&flags.organizer, "organizer", "", "username of the organizer (required)")
	cmd.Flags().StringVar(&flags.title, "title", "", "event title (required)")
	cmd.Flags().StringVar(&flags.description, "description", "", "event description (required)")
	cmd.Flags().StringVar(&flags.date, "date", "", "event date (required)")
	cmd.Flags().StringVar(&flags.location, "location", "", "event location (required)")
	cmd.Flags().IntVar(&flags.maxAttendees, "max-attendees", 0, "capacity; 0 means unlimited")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "UTC", "IANA timezone for natural-language dates")
	for _, name := range []string{"organizer", "title", "description", "date", "location"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// draftFromFlags builds the event input. A zero capacity means unlimited.
func draftFromFlags(flags eventsCreateFlags, now time.Time) (events.Draft, error) {
	loc, err := time.LoadLocation(flags.timezone)
	if err != nil {
		return events.Draft{}, fmt.Errorf("timezone: %w", err)
	}
	date, err := parseEventDate(flags.date, now, loc)
	if err != nil {
		return events.Draft{}, err
	}
	draft := events.Draft{
		Title:       flags.title,
		Description: flags.description,
		Date:        date,
		Location:    flags.location,
	}
	if flags.maxAttendees != 0 {
		capacity := flags.maxAttendees
		draft.MaxAttendees = &capacity
	}
	return draft, nil
}

func createEvent(ctx context.Context, cfg config.Config, out io.Writer, flags eventsCreateFlags) error {
	draft, err := draftFromFlags(flags, time.Now())
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Logging)
	app, err := newApplication(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer app.Close()

	organizer, err := app.repo.Users().GetUserByUsername(ctx, flags.organizer)
	if err != nil {
		return fmt.Errorf("organizer %q: %w", flags.organizer, err)
	}
	event, err := app.events.Create(ctx, organizer.ID, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created event %s: %s on %s\n", event.ID, event.Title, event.Date.Format(time.RFC3339))
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/handler"
	"Mansoor88-6/coding-activity-agent/internal/models"
	"Mansoor88-6/coding-activity-agent/internal/service"

	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	var from, to string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print recorded events for a range of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if from != "" {
				t, err := time.ParseInLocation(handler.DateLayout, from, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				start = t
			}
			end := start
			if to != "" {
				t, err := time.ParseInLocation(handler.DateLayout, to, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				end = t
			}
			if end.Before(start) {
				return fmt.Errorf("--to is before --from")
			}

			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			sink, closeRemote := a.newSink(ctx, userID, nil)
			defer closeRemote()

			first, _ := service.DayBounds(start)
			_, last := service.DayBounds(end)
			events, source := sink.GetEventsInRange(ctx, first, last)

			if asJSON {
				data, err := json.MarshalIndent(handler.EventsResponse{Source: source, Events: events}, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal events: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "Source: %s\n", source)
			fmt.Fprintf(out, "Events: %d\n", len(events))
			for _, ev := range events {
				fmt.Fprintln(out, formatEvent(ev))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&to, "to", "", "Last day (YYYY-MM-DD), default --from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func formatEvent(ev models.Event) string {
	kind := string(ev.Kind())
	if sub := ev.Subtype(); sub != "" {
		kind += "/" + string(sub)
	}
	line := fmt.Sprintf("%s  %-24s", ev.Timestamp.Format("2006-01-02 15:04:05.000"), kind)

	data, err := json.Marshal(ev.Payload)
	if err == nil && string(data) != "{}" {
		line += "  " + string(data)
	}
	return line
}

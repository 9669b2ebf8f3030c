package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"serverrestarter/internal/config"
	"serverrestarter/internal/schedule"
)

// PrintSchedule validates the restarter file at path and lists the next
// count occurrences of every entry, followed by the event that would be armed
// if the restarter started at now.
func PrintSchedule(w io.Writer, path string, now time.Time, count int) error {
	var loaded *config.Loaded
	switch r := config.LoadRestarter(path).(type) {
	case *config.Loaded:
		loaded = r
	case config.Incomplete:
		return r.Err
	}
	if count < 1 {
		count = 1
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tACTION\tCRON\tMESSAGE\tNEXT")
	for i, e := range loaded.Schedules {
		at := now
		for n := 0; n < count; n++ {
			next, ok := e.Expr.Next(at)
			label := "never"
			if ok {
				label = next.Format(time.RFC3339)
				at = next
			}
			if n == 0 {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, e.Action, e.Expr, e.Message, label)
			} else {
				fmt.Fprintf(tw, "\t\t\t\t%s\n", label)
			}
			if !ok {
				break
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if ev, ok := schedule.SelectNext(loaded.Schedules, now); ok {
		_, err := fmt.Fprintf(w, "\nArmed: %s at %s (%s)\n", ev.Entry.Action, ev.FireAt.Format(time.RFC3339), ev.Entry.Message)
		return err
	}
	_, err := fmt.Fprintln(w, "\nNo scheduled action will fire.")
	return err
}

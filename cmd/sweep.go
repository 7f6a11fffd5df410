package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// sweepTimeLayout is the format accepted by --at.
const sweepTimeLayout = "2006-01-02 15:04"

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark absences for courses that have ended",
	Long: `Record an absence for every enrolled student without an attendance
record for a course that has already ended today.

The sweep is idempotent, so it is safe to run from cron or a systemd timer
in addition to the schedule inside the server.

Examples:
  # Sweep for the current time
  face-attendance sweep

  # Sweep as if it were 18:00 on a given day
  face-attendance sweep --at "2024-03-04 18:00"`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().String("at", "", "Sweep as of this local time ("+sweepTimeLayout+")")
}

// parseSweepTime resolves --at in loc, defaulting to now.
func parseSweepTime(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.In(loc), nil
	}
	at, err := time.ParseInLocation(sweepTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q, expected %s", raw, sweepTimeLayout)
	}
	return at, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	at, err := parseSweepTime(mustGetString(cmd, "at"), cfg.Attendance.Location(), time.Now())
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.svc.Sweeper().Sweep(ctx, at)
	if err != nil {
		return fmt.Errorf("absence sweep failed: %w", err)
	}
	fmt.Printf("Added %d absence records for %s\n", added, at.Format("Monday 2006-01-02 15:04"))
	return nil
}

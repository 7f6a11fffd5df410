package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.

The server loads every enrolled face sample, exposes the JSON API used by
the check-in kiosk and the admin pages, and runs the absence sweep on the
configured cron schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "CORS origins (overrides WEB_ALLOWED_ORIGINS)")
	serveCmd.Flags().Bool("no-sweep", false, "Do not schedule the absence sweep in this process")
}

// applyServeFlags lets command line flags override the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if origins := mustGetStringSlice(cmd, "allowed-origins"); len(origins) > 0 {
		cfg.Web.AllowedOrigins = origins
	}
	if mustGetBool(cmd, "no-sweep") {
		cfg.Attendance.SweepSchedule = ""
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var scheduler *attendance.Scheduler
	if cfg.Attendance.SweepSchedule != "" {
		scheduler, err = attendance.NewScheduler(a.svc.Sweeper(), cfg.Attendance.SweepSchedule, cfg.Attendance.Location())
		if err != nil {
			return err
		}
		scheduler.Start()
		fmt.Printf("Absence sweep scheduled (%s), next run %s\n",
			cfg.Attendance.SweepSchedule, scheduler.Next().Format(time.RFC3339))
	}

	server := web.NewServer(cfg, a.svc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				logging.Warn(logging.Fields{"error": err.Error()}, "absence sweep did not finish before shutdown")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error(logging.Fields{"error": err.Error()}, "error during shutdown")
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Classroom attendance by face recognition",
	Long: `Face Attendance recognizes enrolled students from a camera snapshot and
records whether they arrived on time or late for the course in progress.
Students that never checked in are marked absent once their course has ended.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := config.Load()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Setup(cfg.Log)
}

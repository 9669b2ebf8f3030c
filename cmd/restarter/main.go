package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"serverrestarter/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "restarter",
	Short: "Runs a game server and restarts it on a schedule",
	Long: `restarter supervises a long-running server process, stops or restarts it
on cron schedules read from the restarter file, and accepts manual restart
commands from the console, Telegram and an HTTP admin API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		return application.Run()
	},
}

var (
	nextFile  string
	nextCount int
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Validate the restarter file and print upcoming scheduled actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.PrintSchedule(cmd.OutOrStdout(), nextFile, time.Now(), nextCount)
	},
}

func init() {
	def := os.Getenv("RESTARTER_CONFIG")
	if def == "" {
		def = "config/server_restarter.json"
	}
	nextCmd.Flags().StringVarP(&nextFile, "file", "f", def, "restarter file")
	nextCmd.Flags().IntVarP(&nextCount, "count", "n", 3, "occurrences to list per entry")
	rootCmd.AddCommand(nextCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

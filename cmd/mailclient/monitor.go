package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Periodically check for and archive new messages",
	Long:  "Runs a full sync pass on an interval until interrupted. Interruption is honored between passes; a pass in flight completes first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		syncer, err := newSyncer(cfg)
		if err != nil {
			return err
		}

		interval := monitorInterval
		if interval == 0 {
			interval = time.Duration(cfg.MonitorIntervalSec) * time.Second
		}

		ctx, stop := signal.NotifyContext(
			context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := syncer.Monitor(ctx, interval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().DurationVar(
		&monitorInterval, "interval", 0,
		"time between passes (default: monitor_interval_sec from config)")
	rootCmd.AddCommand(monitorCmd)
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download new messages into the offline archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		syncer, err := newSyncer(cfg)
		if err != nil {
			return err
		}

		count, err := syncer.SyncOnce(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Archived %d new message(s)\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

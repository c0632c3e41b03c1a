package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cheaterdxd/mail-client/internal/archive"
	"github.com/cheaterdxd/mail-client/internal/store"
)

var listTag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		writer, err := archive.NewWriter(cfg.ArchiveRoot, logger)
		if err != nil {
			return err
		}

		entries, err := writer.List()
		if err != nil {
			return err
		}

		if listTag != "" {
			keep, err := uidsForTag(cfg.ArchiveRoot, listTag)
			if err != nil {
				return err
			}
			filtered := entries[:0]
			for _, e := range entries {
				if keep[e.UID] {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}

		if len(entries) == 0 {
			fmt.Println("No archived messages")
			return nil
		}

		for i, e := range entries {
			date := ""
			if !e.Date.IsZero() {
				date = e.Date.Format("2006-01-02 15:04")
			}
			fmt.Printf("[%d] %s\n    From: %s\n    Date: %s\n    Path: %s\n",
				i+1, e.Subject, e.From, date, e.FolderPath)
		}
		return nil
	},
}

// uidsForTag resolves a tag name to the set of message UIDs carrying it.
func uidsForTag(archiveRoot, tagName string) (map[string]bool, error) {
	s, err := store.NewSQLiteStore(filepath.Join(archiveRoot, store.DBFileName))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ctx := context.Background()
	tags, err := s.GetTags(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range tags {
		if strings.EqualFold(t.Name, tagName) {
			uids, err := s.GetMessagesForTag(ctx, t.ID)
			if err != nil {
				return nil, err
			}
			keep := make(map[string]bool, len(uids))
			for _, uid := range uids {
				keep[uid] = true
			}
			return keep, nil
		}
	}
	return nil, fmt.Errorf("tag %q not found", tagName)
}

func init() {
	listCmd.Flags().StringVar(&listTag, "tag", "", "only show messages carrying this tag")
	rootCmd.AddCommand(listCmd)
}

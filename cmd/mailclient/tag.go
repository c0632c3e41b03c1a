package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cheaterdxd/mail-client/internal/model"
	"github.com/cheaterdxd/mail-client/internal/store"
)

var tagColor string

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags on archived messages",
}

var tagLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s store.Store) error {
			tags, err := s.GetTags(ctx)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Println("No tags")
				return nil
			}
			for _, t := range tags {
				uids, err := s.GetMessagesForTag(ctx, t.ID)
				if err != nil {
					return err
				}
				fmt.Printf("%s (%d message(s))\n", t.Name, len(uids))
			}
			return nil
		})
	},
}

var tagAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s store.Store) error {
			return s.CreateTag(ctx, model.Tag{Name: args[0], Color: tagColor})
		})
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a tag and its associations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s store.Store) error {
			tag, err := findTag(ctx, s, args[0])
			if err != nil {
				return err
			}
			return s.DeleteTag(ctx, tag.ID)
		})
	},
}

var tagSetCmd = &cobra.Command{
	Use:   "set UID NAME",
	Short: "Attach a tag to an archived message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s store.Store) error {
			tag, err := findTag(ctx, s, args[1])
			if err != nil {
				return err
			}
			return s.TagMessage(ctx, args[0], tag.ID)
		})
	},
}

var tagUnsetCmd = &cobra.Command{
	Use:   "unset UID NAME",
	Short: "Remove a tag from an archived message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s store.Store) error {
			tag, err := findTag(ctx, s, args[1])
			if err != nil {
				return err
			}
			return s.UntagMessage(ctx, args[0], tag.ID)
		})
	},
}

// withStore opens the tag database at the configured archive root, runs fn,
// and closes it.
func withStore(fn func(context.Context, store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(filepath.Join(cfg.ArchiveRoot, store.DBFileName))
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(context.Background(), s)
}

func findTag(ctx context.Context, s store.Store, name string) (*model.Tag, error) {
	tags, err := s.GetTags(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if strings.EqualFold(t.Name, name) {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("tag %q not found", name)
}

func init() {
	tagAddCmd.Flags().StringVar(&tagColor, "color", "", "display color for the tag")
	tagCmd.AddCommand(tagLsCmd, tagAddCmd, tagRmCmd, tagSetCmd, tagUnsetCmd)
	rootCmd.AddCommand(tagCmd)
}

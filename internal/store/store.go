package store

import (
	"context"

	"github.com/cheaterdxd/mail-client/internal/model"
)

// Store defines the persistence interface for message tags. Tagging is a
// browsing-surface concern layered over the archive; the sync core never
// touches it.
type Store interface {
	CreateTag(ctx context.Context, tag model.Tag) error
	DeleteTag(ctx context.Context, id string) error
	GetTags(ctx context.Context) ([]model.Tag, error)

	// TagMessage associates a tag with an archived message, keyed by the
	// message's seen-set UID. Tagging the same message twice is a no-op.
	TagMessage(ctx context.Context, messageUID, tagID string) error
	UntagMessage(ctx context.Context, messageUID, tagID string) error
	GetTagsForMessage(ctx context.Context, messageUID string) ([]model.Tag, error)
	GetMessagesForTag(ctx context.Context, tagID string) ([]string, error)

	Close() error
}

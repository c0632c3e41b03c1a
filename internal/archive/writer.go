// Package archive persists each fetched message as a self-contained folder
// under the archive root: the raw RFC 5322 bytes under a fixed filename
// plus one file per extracted attachment. Folders are created once and
// never updated by the sync core.
package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cheaterdxd/mail-client/internal/decompose"
)

// RawMessageFile is the fixed filename of the verbatim message inside each
// archive folder. External tools depend on it; do not rename.
const RawMessageFile = "full_email.eml"

const (
	maxFolderNameLen     = 50
	maxAttachmentNameLen = 100
)

// Writer persists decomposed messages under a single archive root.
type Writer struct {
	root   string
	logger zerolog.Logger
}

// NewWriter creates the archive root if needed and returns a Writer for it.
func NewWriter(root string, logger zerolog.Logger) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive root %s: %w", root, err)
	}
	return &Writer{root: root, logger: logger}, nil
}

// Root returns the archive root directory.
func (w *Writer) Root() string { return w.root }

// Persist writes one message as a folder named from its UID and sanitized
// subject, returning the folder path. A pre-existing folder is reused
// without error so a run retried before the UID was recorded can overwrite
// idempotently.
func (w *Writer) Persist(raw []byte, msg decompose.Message, uid string) (string, error) {
	folderName := sanitizeComponent(uid, maxFolderNameLen) + "_" +
		sanitizeSubject(msg.Subject, maxFolderNameLen)
	folder := filepath.Join(w.root, folderName)

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("creating message folder %s: %w", folder, err)
	}

	// The raw message is written whole in one call; readers never see a
	// truncated file under this name.
	if err := os.WriteFile(filepath.Join(folder, RawMessageFile), raw, 0o644); err != nil {
		return "", fmt.Errorf("writing raw message for %s: %w", uid, err)
	}

	for _, att := range msg.Attachments {
		name := sanitizeComponent(att.Filename, maxAttachmentNameLen)
		if name == "" {
			name = "attachment"
		}
		path := w.collisionFreePath(folder, name)
		if err := os.WriteFile(path, att.Data, 0o644); err != nil {
			return "", fmt.Errorf("writing attachment %s for %s: %w", name, uid, err)
		}
		w.logger.Debug().Str("uid", uid).Str("attachment", filepath.Base(path)).
			Msg("attachment saved")
	}

	return folder, nil
}

// collisionFreePath returns folder/name, appending _1, _2, … before the
// extension until the name is free within the folder.
func (w *Writer) collisionFreePath(folder, name string) string {
	path := filepath.Join(folder, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		candidate := filepath.Join(folder, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

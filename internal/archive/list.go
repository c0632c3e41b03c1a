package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cheaterdxd/mail-client/internal/decompose"
	"github.com/cheaterdxd/mail-client/internal/model"
)

// List enumerates previously archived messages in folder-name order,
// decoding each folder's raw message for its headers. Folders whose raw
// message is missing or unreadable are skipped rather than failing the
// whole listing.
func (w *Writer) List() ([]model.ArchiveEntry, error) {
	dirEntries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("reading archive root %s: %w", w.root, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	entries := make([]model.ArchiveEntry, 0, len(names))
	for _, name := range names {
		folder := filepath.Join(w.root, name)
		raw, err := os.ReadFile(filepath.Join(folder, RawMessageFile))
		if err != nil {
			w.logger.Warn().Str("folder", name).Err(err).
				Msg("skipping unreadable archive folder")
			continue
		}

		msg := decompose.Decompose(raw)

		// The folder name is sanitize(uid) + "_" + sanitize(subject).
		uid, _, _ := strings.Cut(name, "_")

		entries = append(entries, model.ArchiveEntry{
			UID:        uid,
			Subject:    msg.Subject,
			From:       msg.From,
			Date:       msg.Date,
			FolderPath: folder,
		})
	}

	return entries, nil
}

// Package ledger tracks which message UIDs have already been archived.
// The ledger is a hidden file at the archive root with one UID per line,
// written append-only: a crash can at worst truncate the newest line, which
// the next load simply fails to match against any real UID.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the ledger's name inside the archive root. The leading dot
// keeps it out of the per-message folder listing.
const FileName = ".seen_uids"

// Ledger is the in-memory view of the seen-UID file. It is not safe for
// concurrent use; sync runs against one archive root are serialized by the
// orchestrator.
type Ledger struct {
	path string
	seen map[string]struct{}
}

// Open loads the ledger colocated with the given archive root. A missing
// file is not an error and yields an empty set.
func Open(archiveRoot string) (*Ledger, error) {
	l := &Ledger{
		path: filepath.Join(archiveRoot, FileName),
		seen: make(map[string]struct{}),
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		uid := strings.TrimSpace(scanner.Text())
		if uid == "" {
			continue
		}
		l.seen[uid] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	return l, nil
}

// Contains reports whether uid has already been recorded.
func (l *Ledger) Contains(uid string) bool {
	_, ok := l.seen[uid]
	return ok
}

// Len returns the number of recorded UIDs.
func (l *Ledger) Len() int { return len(l.seen) }

// Record appends uid to the ledger file and adds it to the in-memory set.
// The write is a single append, never a rewrite of the whole file, so
// previously recorded entries cannot be corrupted by an interrupted run.
// Callers must invoke Record only after the message's folder is fully
// written.
func (l *Ledger) Record(uid string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger %s for append: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(uid + "\n")); err != nil {
		return fmt.Errorf("recording UID %s: %w", uid, err)
	}

	l.seen[uid] = struct{}{}
	return nil
}

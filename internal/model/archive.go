package model

import "time"

// ArchiveEntry summarizes one previously archived message for browsing
// surfaces. It is derived from the folder's raw message on demand.
type ArchiveEntry struct {
	UID        string
	Subject    string
	From       string
	Date       time.Time
	FolderPath string
}

// Tag is a user-defined label attached to archived messages.
type Tag struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

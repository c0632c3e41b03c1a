package store

// migration is one schema change, applied in version order exactly once.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT NOT NULL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

-- message_uid is the seen-set UID of an archived message. No foreign key:
-- archive folders live on the filesystem, not in this database.
CREATE TABLE IF NOT EXISTS message_tags (
	message_uid TEXT NOT NULL,
	tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (message_uid, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_message_tags_tag_id ON message_tags(tag_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

package sqlite

import (
	"database/sql"

	migrate "github.com/rubenv/sql-migrate"
)

// migrations contains the versioned schema. They run on startup.
// IMPORTANT: meetings must be created BEFORE participants and feedback due to foreign key constraints.
var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_lookup_tables",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS roles (
    identifier TEXT PRIMARY KEY,
    role TEXT NOT NULL
)`,
				`CREATE TABLE IF NOT EXISTS wages (
    role TEXT PRIMARY KEY,
    hourly_rate REAL NOT NULL
)`,
			},
			Down: []string{
				"DROP TABLE IF EXISTS wages",
				"DROP TABLE IF EXISTS roles",
			},
		},
		{
			Id: "0002_meetings",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS meetings (
    id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL DEFAULT '',
    organizer TEXT NOT NULL,
    subject TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL DEFAULT '',
    duration_minutes INTEGER,
    body TEXT NOT NULL,
    total_cost REAL NOT NULL,
    explanation TEXT NOT NULL,
    feedback_token TEXT NOT NULL UNIQUE,
    feedback_sent INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
)`,
				`CREATE TABLE IF NOT EXISTS participants (
    meeting_id TEXT NOT NULL,
    email TEXT NOT NULL,
    initials TEXT NOT NULL,
    role TEXT NOT NULL,
    hourly_cost REAL NOT NULL,
    feedback_token TEXT NOT NULL UNIQUE,
    feedback_requested INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (meeting_id, email),
    FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
)`,
				// Meetings without an external id are never deduplicated.
				"CREATE UNIQUE INDEX IF NOT EXISTS idx_meetings_external_id ON meetings(external_id) WHERE external_id <> ''",
				"CREATE INDEX IF NOT EXISTS idx_meetings_end_time ON meetings(end_time)",
				"CREATE INDEX IF NOT EXISTS idx_participants_meeting_id ON participants(meeting_id)",
			},
			Down: []string{
				"DROP TABLE IF EXISTS participants",
				"DROP TABLE IF EXISTS meetings",
			},
		},
		{
			Id: "0003_feedback",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL,
    participant_token TEXT NOT NULL UNIQUE,
    useful INTEGER NOT NULL,
    improvements TEXT NOT NULL DEFAULT '',
    submitted_at INTEGER NOT NULL,
    FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
)`,
				"CREATE INDEX IF NOT EXISTS idx_feedback_meeting_id ON feedback(meeting_id)",
			},
			Down: []string{
				"DROP TABLE IF EXISTS feedback",
			},
		},
		{
			Id: "0004_meeting_warnings",
			Up: []string{
				"ALTER TABLE meetings ADD COLUMN warnings TEXT NOT NULL DEFAULT '[]'",
			},
			Down: []string{
				"ALTER TABLE meetings DROP COLUMN warnings",
			},
		},
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up)
	return err
}

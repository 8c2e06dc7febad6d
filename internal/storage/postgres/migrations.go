package postgres

import (
	"database/sql"

	migrate "github.com/rubenv/sql-migrate"
)

// migrations mirror the sqlite schema with native postgres types.
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
    hourly_rate DOUBLE PRECISION NOT NULL
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
    total_cost DOUBLE PRECISION NOT NULL,
    explanation TEXT NOT NULL,
    warnings JSONB NOT NULL DEFAULT '[]',
    feedback_token TEXT NOT NULL UNIQUE,
    feedback_sent BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
)`,
				`CREATE TABLE IF NOT EXISTS participants (
    meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    email TEXT NOT NULL,
    initials TEXT NOT NULL,
    role TEXT NOT NULL,
    hourly_cost DOUBLE PRECISION NOT NULL,
    feedback_token TEXT NOT NULL UNIQUE,
    feedback_requested BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (meeting_id, email)
)`,
				"CREATE UNIQUE INDEX IF NOT EXISTS idx_meetings_external_id ON meetings(external_id) WHERE external_id <> ''",
				"CREATE INDEX IF NOT EXISTS idx_meetings_end_time ON meetings(end_time)",
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
    meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    participant_token TEXT NOT NULL UNIQUE,
    useful BOOLEAN NOT NULL,
    improvements TEXT NOT NULL DEFAULT '',
    submitted_at BIGINT NOT NULL
)`,
				"CREATE INDEX IF NOT EXISTS idx_feedback_meeting_id ON feedback(meeting_id)",
			},
			Down: []string{
				"DROP TABLE IF EXISTS feedback",
			},
		},
	},
}

func runMigrations(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	return err
}

package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migration represents a single database migration
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of all database migrations.
// Each migration should be idempotent and safe to run multiple times.
var migrations = []migration{
	{
		version: 1,
		name:    "create_archives_table",
		up: `
			CREATE TABLE IF NOT EXISTS archives (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_online INTEGER NOT NULL DEFAULT 0,
				source_url TEXT NOT NULL DEFAULT '',
				display_options TEXT NOT NULL DEFAULT '{}',
				updated_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_archives_online
			ON archives(is_online)
			WHERE is_online = 1;
		`,
	},
	{
		version: 2,
		name:    "create_posts_table",
		up: `
			CREATE TABLE IF NOT EXISTS posts (
				archive_id TEXT NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
				id TEXT NOT NULL,
				position INTEGER NOT NULL,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				preview_image_url TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP,
				deleted_at TIMESTAMP,
				created_at TIMESTAMP,
				PRIMARY KEY (archive_id, id)
			);

			CREATE INDEX IF NOT EXISTS idx_posts_position
			ON posts(archive_id, position);

			CREATE INDEX IF NOT EXISTS idx_posts_deleted_at
			ON posts(deleted_at)
			WHERE deleted_at IS NOT NULL;

			CREATE TABLE IF NOT EXISTS post_tags (
				archive_id TEXT NOT NULL,
				post_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				tag TEXT NOT NULL,
				PRIMARY KEY (archive_id, post_id, position),
				FOREIGN KEY (archive_id, post_id) REFERENCES posts(archive_id, id) ON DELETE CASCADE
			);
		`,
	},
	{
		version: 3,
		name:    "create_images_table",
		up: `
			CREATE TABLE IF NOT EXISTS images (
				archive_id TEXT NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				hash TEXT NOT NULL,
				content_type TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL,
				PRIMARY KEY (archive_id, name)
			);
		`,
	},
	{
		version: 4,
		name:    "add_archive_source_kind",
		up: `
			ALTER TABLE archives ADD COLUMN source_kind TEXT NOT NULL DEFAULT '';

			UPDATE archives SET source_kind = 'github'
			WHERE is_online = 1 AND source_url LIKE 'https://github.com/%';

			UPDATE archives SET source_kind = 'url'
			WHERE is_online = 1 AND source_kind = '' AND source_url LIKE 'http%';
		`,
	},
}

// runMigrations executes all pending migrations
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Run pending migrations
	for _, m := range migrations {
		if m.version <= currentVersion {
			continue // Already applied
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}

		_, err = tx.Exec(m.up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.version,
			m.name,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		log.Info().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	}

	return nil
}

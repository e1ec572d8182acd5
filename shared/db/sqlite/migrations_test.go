package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestRunMigrations(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := &SQLiteConfig{
		Path: dbPath,
	}

	database := NewSQLiteDB(cfg)
	err := database.Connect()
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer database.Close()

	db := database.DB()

	// Verify schema_migrations table exists
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check schema_migrations table: %v", err)
	}
	if count != 1 {
		t.Errorf("schema_migrations table not created")
	}

	for _, table := range []string{"archives", "posts", "post_tags", "images"} {
		err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check %s table: %v", table, err)
		}
		if count != 1 {
			t.Errorf("%s table not created", table)
		}
	}

	// Verify index exists
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_posts_position'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check index: %v", err)
	}
	if count != 1 {
		t.Errorf("idx_posts_position index not created")
	}

	// Verify migration was recorded
	var version int
	var name string
	err = db.QueryRow("SELECT version, name FROM schema_migrations WHERE version = 1").Scan(&version, &name)
	if err != nil {
		t.Fatalf("Failed to query schema_migrations: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if name != "create_archives_table" {
		t.Errorf("name = %q, want %q", name, "create_archives_table")
	}

	var latest int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&latest); err != nil {
		t.Fatalf("Failed to query latest version: %v", err)
	}
	if latest != len(migrations) {
		t.Errorf("latest version = %d, want %d", latest, len(migrations))
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := &SQLiteConfig{
		Path: dbPath,
	}

	// Connect first time
	database := NewSQLiteDB(cfg)
	err := database.Connect()
	if err != nil {
		t.Fatalf("First Connect() error = %v", err)
	}
	database.Close()

	// Connect second time - migrations should not fail
	database = NewSQLiteDB(cfg)
	err = database.Connect()
	if err != nil {
		t.Fatalf("Second Connect() error = %v", err)
	}
	defer database.Close()

	db := database.DB()

	// Verify migration was only recorded once
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = 1").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema_migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("migration recorded %d times, want 1", count)
	}
}

func TestPostsTableSchema(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := &SQLiteConfig{
		Path: dbPath,
	}

	database := NewSQLiteDB(cfg)
	err := database.Connect()
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer database.Close()

	db := database.DB()

	_, err = db.Exec(`INSERT INTO archives (id, name, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, "arc", "Archive")
	if err != nil {
		t.Fatalf("Failed to insert archive: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO posts (archive_id, id, position, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, "arc", "001", 0, "Test Post", "Body")
	if err != nil {
		t.Fatalf("Failed to insert post: %v", err)
	}

	var id, title, description string
	var updatedAt, deletedAt, createdAt sql.NullTime
	err = db.QueryRow("SELECT id, title, description, updated_at, deleted_at, created_at FROM posts WHERE archive_id = ? AND id = ?", "arc", "001").
		Scan(&id, &title, &description, &updatedAt, &deletedAt, &createdAt)
	if err != nil {
		t.Fatalf("Failed to query post: %v", err)
	}

	if id != "001" {
		t.Errorf("id = %q, want %q", id, "001")
	}
	if title != "Test Post" {
		t.Errorf("title = %q, want %q", title, "Test Post")
	}
	if description != "" {
		t.Errorf("description = %q, want empty default", description)
	}
	if !createdAt.Valid {
		t.Error("created_at should not be NULL")
	}
	if updatedAt.Valid {
		t.Error("updated_at should be NULL")
	}
	if deletedAt.Valid {
		t.Error("deleted_at should be NULL")
	}

	// Posts are removed with their archive
	if _, err := db.Exec("DELETE FROM archives WHERE id = ?", "arc"); err != nil {
		t.Fatalf("Failed to delete archive: %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if count != 0 {
		t.Errorf("posts left after archive delete = %d, want 0", count)
	}
}

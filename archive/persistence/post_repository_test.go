package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/shared/db/sqlite"
)

// setupTestDB creates a migrated SQLite database in a temp directory
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	store := sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))
	if err := store.Connect(); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store.DB()
}

// seedArchive stores an empty archive row the posts can reference
func seedArchive(t *testing.T, sqlDB *sql.DB, id string) {
	t.Helper()

	now := time.Now().UTC()
	err := NewArchiveRepository(sqlDB).UpsertArchive(context.Background(), &domain.Archive{
		ID:        id,
		Name:      "Archive " + id,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed archive: %v", err)
	}
}

func TestNewPostRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewPostRepository(db)
	if repo == nil {
		t.Fatal("NewPostRepository returned nil")
	}
	if repo.db == nil {
		t.Error("repository db field not set correctly")
	}
}

func TestPostRepository_UpsertPost_Insert(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	repo := NewPostRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	post := &domain.Post{
		ID:              "001",
		ArchiveID:       "a1",
		Title:           "Test Post",
		Content:         "# Heading\n\nBody",
		Description:     "A test post",
		PreviewImageURL: "https://example.com/a.png",
		Tags:            []string{"go", "Test"},
		UpdatedAt:       now,
		CreatedAt:       now,
	}

	if err := repo.UpsertPost(ctx, post); err != nil {
		t.Fatalf("UpsertPost failed: %v", err)
	}

	retrieved, err := repo.GetPost(ctx, "a1", "001")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if retrieved.Title != post.Title {
		t.Errorf("Title = %v, want %v", retrieved.Title, post.Title)
	}
	if retrieved.Content != post.Content {
		t.Errorf("Content = %v, want %v", retrieved.Content, post.Content)
	}
	if retrieved.Description != post.Description {
		t.Errorf("Description = %v, want %v", retrieved.Description, post.Description)
	}
	if retrieved.PreviewImageURL != post.PreviewImageURL {
		t.Errorf("PreviewImageURL = %v, want %v", retrieved.PreviewImageURL, post.PreviewImageURL)
	}
	if fmt.Sprint(retrieved.Tags) != fmt.Sprint(post.Tags) {
		t.Errorf("Tags = %v, want %v", retrieved.Tags, post.Tags)
	}
	if !retrieved.CreatedAt.Equal(post.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", retrieved.CreatedAt, post.CreatedAt)
	}
	if retrieved.IsDeleted() {
		t.Error("new post should not be deleted")
	}
}

func TestPostRepository_UpsertPost_Update(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	repo := NewPostRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	post := &domain.Post{
		ID:        "001",
		ArchiveID: "a1",
		Title:     "Original Title",
		Tags:      []string{"one", "two"},
		UpdatedAt: now,
		CreatedAt: now,
	}
	if err := repo.UpsertPost(ctx, post); err != nil {
		t.Fatalf("UpsertPost (insert) failed: %v", err)
	}

	post.Title = "Updated Title"
	post.Tags = []string{"three"}
	post.UpdatedAt = now.Add(time.Hour)
	post.CreatedAt = now.Add(24 * time.Hour)
	if err := repo.UpsertPost(ctx, post); err != nil {
		t.Fatalf("UpsertPost (update) failed: %v", err)
	}

	retrieved, err := repo.GetPost(ctx, "a1", "001")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if retrieved.Title != "Updated Title" {
		t.Errorf("Title = %v, want %v", retrieved.Title, "Updated Title")
	}
	if fmt.Sprint(retrieved.Tags) != "[three]" {
		t.Errorf("Tags = %v, want [three]", retrieved.Tags)
	}
	if !retrieved.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", retrieved.UpdatedAt, now.Add(time.Hour))
	}
	// created_at is kept from the first insert
	if !retrieved.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", retrieved.CreatedAt, now)
	}
}

func TestPostRepository_UpsertPost_Validation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	tests := []struct {
		name string
		post *domain.Post
	}{
		{"nil post", nil},
		{"empty ID", &domain.Post{ArchiveID: "a1"}},
		{"empty archive ID", &domain.Post{ID: "001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.UpsertPost(ctx, tt.post); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPostRepository_UpsertPost_UnknownArchive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)

	err := repo.UpsertPost(context.Background(), &domain.Post{ID: "001", ArchiveID: "missing", Title: "x"})
	if err == nil {
		t.Fatal("expected foreign key error for unknown archive")
	}
}

func TestPostRepository_GetPost_NotFound(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")
	repo := NewPostRepository(db)

	_, err := repo.GetPost(context.Background(), "a1", "nope")
	if !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("err = %v, want ErrPostNotFound", err)
	}
}

func TestPostRepository_ListPosts_KeepsInsertOrder(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")
	seedArchive(t, db, "a2")

	repo := NewPostRepository(db)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := repo.UpsertPost(ctx, &domain.Post{ID: id, ArchiveID: "a1", Title: id, Tags: []string{"t-" + id}}); err != nil {
			t.Fatalf("UpsertPost(%s) failed: %v", id, err)
		}
	}
	if err := repo.UpsertPost(ctx, &domain.Post{ID: "other", ArchiveID: "a2", Title: "other"}); err != nil {
		t.Fatalf("UpsertPost(other) failed: %v", err)
	}

	// Updating a post must not move it
	if err := repo.UpsertPost(ctx, &domain.Post{ID: "c", ArchiveID: "a1", Title: "c2"}); err != nil {
		t.Fatalf("UpsertPost(c) failed: %v", err)
	}

	posts, err := repo.ListPosts(ctx, "a1")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}

	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	if fmt.Sprint(ids) != "[c a b]" {
		t.Errorf("ids = %v, want [c a b]", ids)
	}
	if posts[0].Title != "c2" {
		t.Errorf("Title = %v, want c2", posts[0].Title)
	}
	if len(posts[0].Tags) != 0 {
		t.Errorf("Tags = %v, want none after update", posts[0].Tags)
	}
	if fmt.Sprint(posts[1].Tags) != "[t-a]" {
		t.Errorf("Tags = %v, want [t-a]", posts[1].Tags)
	}
}

func TestPostRepository_ListPosts_Empty(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	posts, err := NewPostRepository(db).ListPosts(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("posts = %#v, want empty non-nil slice", posts)
	}
}

func TestPostRepository_DeleteAndRestore(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	repo := NewPostRepository(db)
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		if err := repo.UpsertPost(ctx, &domain.Post{ID: id, ArchiveID: "a1", Title: id}); err != nil {
			t.Fatalf("UpsertPost failed: %v", err)
		}
	}

	if err := repo.DeletePost(ctx, "a1", "1"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}

	posts, err := repo.ListPosts(ctx, "a1")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "2" {
		t.Errorf("posts = %v, want only post 2", posts)
	}

	deleted, err := repo.GetPost(ctx, "a1", "1")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if !deleted.IsDeleted() {
		t.Error("expected post 1 to be marked deleted")
	}

	// Deleting twice is a miss
	if err := repo.DeletePost(ctx, "a1", "1"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("second DeletePost err = %v, want ErrPostNotFound", err)
	}

	if err := repo.RestorePost(ctx, "a1", "1"); err != nil {
		t.Fatalf("RestorePost failed: %v", err)
	}
	if err := repo.RestorePost(ctx, "a1", "1"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("second RestorePost err = %v, want ErrPostNotFound", err)
	}

	posts, err = repo.ListPosts(ctx, "a1")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "1" {
		t.Errorf("restored post should keep its position, got %v", posts)
	}
}

func TestPostRepository_RemovePost(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	repo := NewPostRepository(db)
	ctx := context.Background()

	if err := repo.UpsertPost(ctx, &domain.Post{ID: "1", ArchiveID: "a1", Title: "x", Tags: []string{"a"}}); err != nil {
		t.Fatalf("UpsertPost failed: %v", err)
	}

	if err := repo.RemovePost(ctx, "a1", "1"); err != nil {
		t.Fatalf("RemovePost failed: %v", err)
	}
	if _, err := repo.GetPost(ctx, "a1", "1"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("GetPost err = %v, want ErrPostNotFound", err)
	}
	if err := repo.RemovePost(ctx, "a1", "1"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("RemovePost err = %v, want ErrPostNotFound", err)
	}

	var tagCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM post_tags").Scan(&tagCount); err != nil {
		t.Fatalf("count tags: %v", err)
	}
	if tagCount != 0 {
		t.Errorf("tag rows = %d, want 0", tagCount)
	}
}

func TestPostRepository_PurgeDeleted(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	repo := NewPostRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	posts := []*domain.Post{
		{ID: "old", ArchiveID: "a1", Title: "old", Tags: []string{"x"}, DeletedAt: old},
		{ID: "recent", ArchiveID: "a1", Title: "recent", DeletedAt: time.Now().UTC()},
		{ID: "live", ArchiveID: "a1", Title: "live"},
	}
	for _, p := range posts {
		if err := repo.UpsertPost(ctx, p); err != nil {
			t.Fatalf("UpsertPost(%s) failed: %v", p.ID, err)
		}
	}

	n, err := repo.PurgeDeleted(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeDeleted failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	if _, err := repo.GetPost(ctx, "a1", "old"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("old post still present: %v", err)
	}
	if _, err := repo.GetPost(ctx, "a1", "recent"); err != nil {
		t.Errorf("recent post purged too early: %v", err)
	}
}

func TestPostRepository_GetLatestUpdatedTime(t *testing.T) {
	db := setupTestDB(t)
	seedArchive(t, db, "a1")

	repo := NewPostRepository(db)
	ctx := context.Background()

	latest, err := repo.GetLatestUpdatedTime(ctx, "a1")
	if err != nil {
		t.Fatalf("GetLatestUpdatedTime failed: %v", err)
	}
	if !latest.IsZero() {
		t.Errorf("latest = %v, want zero for empty archive", latest)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for i, offset := range []time.Duration{0, 2 * time.Hour, time.Hour} {
		p := &domain.Post{ID: fmt.Sprintf("%03d", i), ArchiveID: "a1", Title: "t", UpdatedAt: now.Add(offset)}
		if err := repo.UpsertPost(ctx, p); err != nil {
			t.Fatalf("UpsertPost failed: %v", err)
		}
	}

	latest, err = repo.GetLatestUpdatedTime(ctx, "a1")
	if err != nil {
		t.Fatalf("GetLatestUpdatedTime failed: %v", err)
	}
	if !latest.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("latest = %v, want %v", latest, now.Add(2*time.Hour))
	}
}

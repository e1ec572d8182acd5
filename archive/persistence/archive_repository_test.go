package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestArchiveRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()

	show := false
	now := time.Now().UTC().Truncate(time.Second)
	archive := &domain.Archive{
		ID:          "a1",
		Name:        "Recipes",
		Description: "Things to cook",
		DisplayOptions: domain.DisplayOptions{
			Layout:          domain.LayoutPortalLeft,
			PortalOptions:   domain.PortalOptions{Title: "Best", FeaturedPostIDs: []string{"p2", "p1"}},
			TagCloudOptions: domain.TagCloudOptions{Show: &show},
			BorderRadius:    &domain.BorderRadius{Uniform: true, All: 8},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.UpsertArchive(ctx, archive); err != nil {
		t.Fatalf("UpsertArchive failed: %v", err)
	}

	got, err := repo.GetArchive(ctx, "a1")
	if err != nil {
		t.Fatalf("GetArchive failed: %v", err)
	}

	want := *archive
	want.Posts = []domain.Post{}
	if diff := cmp.Diff(want, *got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("GetArchive mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveRepository_GetArchive_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewArchiveRepository(db).GetArchive(context.Background(), "missing")
	if !errors.Is(err, domain.ErrArchiveNotFound) {
		t.Errorf("err = %v, want ErrArchiveNotFound", err)
	}
}

func TestArchiveRepository_ReplaceArchive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	archive := &domain.Archive{
		ID:        "a1",
		Name:      "First",
		CreatedAt: now,
		UpdatedAt: now,
		Posts: []domain.Post{
			{ID: "p1", Title: "one", Tags: []string{"x"}},
			{ID: "p2", Title: "two"},
		},
	}
	if err := repo.ReplaceArchive(ctx, archive); err != nil {
		t.Fatalf("ReplaceArchive failed: %v", err)
	}

	archive.Name = "Second"
	archive.Posts = []domain.Post{
		{ID: "p3", Title: "three"},
		{ID: "p1", Title: "one again"},
	}
	if err := repo.ReplaceArchive(ctx, archive); err != nil {
		t.Fatalf("ReplaceArchive (replace) failed: %v", err)
	}

	got, err := repo.GetArchive(ctx, "a1")
	if err != nil {
		t.Fatalf("GetArchive failed: %v", err)
	}

	if got.Name != "Second" {
		t.Errorf("Name = %q, want Second", got.Name)
	}

	var ids []string
	for _, p := range got.Posts {
		ids = append(ids, p.ID)
		if p.ArchiveID != "a1" {
			t.Errorf("post %s ArchiveID = %q, want a1", p.ID, p.ArchiveID)
		}
	}
	if diff := cmp.Diff([]string{"p3", "p1"}, ids); diff != "" {
		t.Errorf("post order mismatch (-want +got):\n%s", diff)
	}
	if len(got.Posts[1].Tags) != 0 {
		t.Errorf("replaced post kept old tags: %v", got.Posts[1].Tags)
	}
}

func TestArchiveRepository_ReplaceArchive_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	archive := &domain.Archive{
		ID:        "a1",
		Name:      "Original",
		CreatedAt: now,
		Posts:     []domain.Post{{ID: "p1", Title: "one"}},
	}
	if err := repo.ReplaceArchive(ctx, archive); err != nil {
		t.Fatalf("ReplaceArchive failed: %v", err)
	}

	// A post without an ID fails half way through
	broken := &domain.Archive{
		ID:        "a1",
		Name:      "Broken",
		CreatedAt: now,
		Posts:     []domain.Post{{ID: "p2", Title: "two"}, {Title: "no id"}},
	}
	if err := repo.ReplaceArchive(ctx, broken); err == nil {
		t.Fatal("expected ReplaceArchive to fail")
	}

	got, err := repo.GetArchive(ctx, "a1")
	if err != nil {
		t.Fatalf("GetArchive failed: %v", err)
	}
	if got.Name != "Original" || len(got.Posts) != 1 || got.Posts[0].ID != "p1" {
		t.Errorf("archive changed after failed replace: %+v", got)
	}
}

func TestArchiveRepository_ListArchives(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()

	empty, err := repo.ListArchives(ctx)
	if err != nil {
		t.Fatalf("ListArchives failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListArchives = %#v, want empty non-nil slice", empty)
	}

	base := time.Now().UTC().Truncate(time.Second)
	archives := []domain.Archive{
		{ID: "local", Name: "Local", CreatedAt: base},
		{ID: "online", Name: "Online", IsOnline: true, SourceURL: "https://example.com/a.json", SourceKind: domain.SourceKindURL, CreatedAt: base.Add(time.Minute)},
	}
	for i := range archives {
		if err := repo.UpsertArchive(ctx, &archives[i]); err != nil {
			t.Fatalf("UpsertArchive failed: %v", err)
		}
	}

	all, err := repo.ListArchives(ctx)
	if err != nil {
		t.Fatalf("ListArchives failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "local" || all[1].ID != "online" {
		t.Errorf("ListArchives = %+v, want local then online", all)
	}

	online, err := repo.ListOnlineArchives(ctx)
	if err != nil {
		t.Fatalf("ListOnlineArchives failed: %v", err)
	}
	if len(online) != 1 || online[0].SourceURL != "https://example.com/a.json" || !online[0].IsOnline || online[0].SourceKind != domain.SourceKindURL {
		t.Errorf("ListOnlineArchives = %+v, want only the online archive", online)
	}
}

func TestArchiveRepository_DeleteArchive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()

	archive := &domain.Archive{
		ID:        "a1",
		Name:      "Doomed",
		CreatedAt: time.Now().UTC(),
		Posts:     []domain.Post{{ID: "p1", Title: "one", Tags: []string{"x"}}},
	}
	if err := repo.ReplaceArchive(ctx, archive); err != nil {
		t.Fatalf("ReplaceArchive failed: %v", err)
	}

	if err := repo.DeleteArchive(ctx, "a1"); err != nil {
		t.Fatalf("DeleteArchive failed: %v", err)
	}

	if _, err := repo.GetArchive(ctx, "a1"); !errors.Is(err, domain.ErrArchiveNotFound) {
		t.Errorf("GetArchive err = %v, want ErrArchiveNotFound", err)
	}

	for _, table := range []string{"posts", "post_tags"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows = %d, want 0", table, n)
		}
	}

	if err := repo.DeleteArchive(ctx, "a1"); !errors.Is(err, domain.ErrArchiveNotFound) {
		t.Errorf("second DeleteArchive err = %v, want ErrArchiveNotFound", err)
	}
}

func TestArchiveRow_UnreadableDisplayOptions(t *testing.T) {
	row := archiveRow{ID: "a1", Name: "x", DisplayOptions: "{not json"}

	got := row.toDomain()
	if diff := cmp.Diff(domain.DisplayOptions{}, got.DisplayOptions); diff != "" {
		t.Errorf("DisplayOptions should fall back to defaults (-want +got):\n%s", diff)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/rs/zerolog/log"
)

// Import stores the archive files in data as local archives. An archive whose
// id already exists is replaced unless it is online.
func (s *ArchiveService) Import(ctx context.Context, files ...[]byte) ([]*domain.Archive, error) {
	imported := make([]*domain.Archive, 0, len(files))
	for i, data := range files {
		archive, err := DecodeArchive(data)
		if err != nil {
			return imported, fmt.Errorf("file %d: %w", i+1, err)
		}

		existing, err := s.archives.GetArchive(ctx, archive.ID)
		if err != nil && !errors.Is(err, domain.ErrArchiveNotFound) {
			return imported, err
		}
		if existing != nil && existing.IsOnline {
			return imported, fmt.Errorf("file %d: %w: %s", i+1, domain.ErrReadOnlyArchive, archive.ID)
		}

		archive.IsOnline = false
		archive.SourceURL = ""
		archive.SourceKind = domain.SourceKindLocal
		if err := s.replace(ctx, archive); err != nil {
			return imported, err
		}
		imported = append(imported, archive)
	}

	return imported, nil
}

// ImportURL fetches an archive file and stores it as a read-only online archive.
func (s *ArchiveService) ImportURL(ctx context.Context, rawURL string) (*domain.Archive, error) {
	data, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	archive, err := DecodeArchive(data)
	if err != nil {
		return nil, err
	}

	archive.IsOnline = true
	archive.SourceURL = rawURL
	archive.SourceKind = domain.SourceKindURL
	if err := s.replace(ctx, archive); err != nil {
		return nil, err
	}

	return archive, nil
}

// ImportDir reads every *.md file of dir as a post of one new local archive.
// Files are taken in name order; a file's base name is its post id.
func (s *ArchiveService) ImportDir(ctx context.Context, dir string, name string) (*domain.Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	if strings.TrimSpace(name) == "" {
		name = filepath.Base(filepath.Clean(dir))
	}

	now := s.now()
	archive := &domain.Archive{
		ID:        s.newID(),
		Name:      name,
		Posts:     []domain.Post{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	slices.SortFunc(entries, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		post, err := parsePostFile(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())), content)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArchive, path, err)
		}

		if post.CreatedAt.IsZero() {
			if info, err := entry.Info(); err == nil {
				post.CreatedAt = info.ModTime().UTC()
			}
		}
		post.ArchiveID = archive.ID
		post.UpdatedAt = now
		archive.Posts = append(archive.Posts, *post)
	}

	if err := s.replace(ctx, archive); err != nil {
		return nil, err
	}

	return archive, nil
}

// Export returns an archive with its live posts in the archive file format.
func (s *ArchiveService) Export(ctx context.Context, id string) ([]byte, error) {
	archive, err := s.archives.GetArchive(ctx, id)
	if err != nil {
		return nil, err
	}

	return EncodeArchive(archive)
}

// RefreshOnlineArchives re-fetches every archive imported from a URL.
// Repository-synced archives are left to the sync service. A failing archive
// is logged and skipped.
func (s *ArchiveService) RefreshOnlineArchives(ctx context.Context) error {
	archives, err := s.archives.ListOnlineArchives(ctx)
	if err != nil {
		return fmt.Errorf("failed to list online archives: %w", err)
	}

	var errs []error
	for _, a := range archives {
		if a.SourceKind != domain.SourceKindURL || !strings.HasPrefix(a.SourceURL, "http") {
			continue
		}

		if err := s.refresh(ctx, a); err != nil {
			log.Error().Err(err).Str("archive", a.ID).Str("url", a.SourceURL).Msg("Failed to refresh online archive")
			errs = append(errs, err)
			continue
		}
		log.Info().Str("archive", a.ID).Str("url", a.SourceURL).Msg("Refreshed online archive")
	}

	return errors.Join(errs...)
}

func (s *ArchiveService) refresh(ctx context.Context, a domain.Archive) error {
	data, err := s.fetcher.Fetch(ctx, a.SourceURL)
	if err != nil {
		return err
	}

	fetched, err := DecodeArchive(data)
	if err != nil {
		return err
	}

	// The stored id wins so links to the archive stay valid
	fetched.ID = a.ID
	for i := range fetched.Posts {
		fetched.Posts[i].ArchiveID = a.ID
	}
	fetched.IsOnline = true
	fetched.SourceURL = a.SourceURL
	fetched.SourceKind = domain.SourceKindURL
	fetched.CreatedAt = a.CreatedAt

	return s.replace(ctx, fetched)
}

func (s *ArchiveService) replace(ctx context.Context, archive *domain.Archive) error {
	now := s.now()
	if archive.CreatedAt.IsZero() {
		archive.CreatedAt = now
	}
	archive.UpdatedAt = now

	for i := range archive.Posts {
		if archive.Posts[i].UpdatedAt.IsZero() {
			archive.Posts[i].UpdatedAt = now
		}
	}

	if err := s.archives.ReplaceArchive(ctx, archive); err != nil {
		return fmt.Errorf("failed to store archive %s: %w", archive.ID, err)
	}

	log.Info().Str("archive", archive.ID).Int("posts", len(archive.Posts)).Bool("online", archive.IsOnline).Msg("Imported archive")
	return nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/archive/view"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ArchiveService owns the archive and post lifecycle. Online archives are
// read-only here; they change only through import, refresh or sync.
type ArchiveService struct {
	archives domain.ArchiveRepository
	posts    domain.PostRepository
	images   domain.ImageRepository
	markdown MarkdownRenderer
	fetcher  *Fetcher

	now   func() time.Time
	newID func() string
}

func NewArchiveService(
	archives domain.ArchiveRepository,
	posts domain.PostRepository,
	images domain.ImageRepository,
	markdown MarkdownRenderer,
	fetcher *Fetcher,
) *ArchiveService {
	if fetcher == nil {
		fetcher = NewFetcher(DefaultFetchTimeout, DefaultMaxArchiveSize)
	}

	return &ArchiveService{
		archives: archives,
		posts:    posts,
		images:   images,
		markdown: markdown,
		fetcher:  fetcher,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// ArchiveUpdate holds the editable archive settings. Nil fields are left unchanged.
type ArchiveUpdate struct {
	Name           *string
	Description    *string
	DisplayOptions *domain.DisplayOptions
}

// PostInput holds the editable fields of a post.
type PostInput struct {
	Title           string
	Content         string
	Description     string
	PreviewImageURL string
	Tags            []string
}

func (s *ArchiveService) CreateArchive(ctx context.Context, name string, description string) (*domain.Archive, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultArchiveName
	}

	now := s.now()
	archive := &domain.Archive{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		Posts:       []domain.Post{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.archives.UpsertArchive(ctx, archive); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	log.Info().Str("archive", archive.ID).Str("name", archive.Name).Msg("Created archive")
	return archive, nil
}

func (s *ArchiveService) ListArchives(ctx context.Context) ([]domain.Archive, error) {
	return s.archives.ListArchives(ctx)
}

func (s *ArchiveService) GetArchive(ctx context.Context, id string) (*domain.Archive, error) {
	return s.archives.GetArchive(ctx, id)
}

// UpdateArchive changes the name, description or display options of a local archive.
func (s *ArchiveService) UpdateArchive(ctx context.Context, id string, update ArchiveUpdate) (*domain.Archive, error) {
	archive, err := s.writableArchive(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: archive name cannot be empty", domain.ErrInvalidArchive)
		}
		archive.Name = name
	}
	if update.Description != nil {
		archive.Description = *update.Description
	}
	if update.DisplayOptions != nil {
		archive.DisplayOptions = *update.DisplayOptions
	}
	archive.UpdatedAt = s.now()

	if err := s.archives.UpsertArchive(ctx, archive); err != nil {
		return nil, fmt.Errorf("failed to update archive: %w", err)
	}

	return archive, nil
}

// DeleteArchive removes an archive, its posts and its images.
func (s *ArchiveService) DeleteArchive(ctx context.Context, id string) error {
	if _, err := s.archives.GetArchive(ctx, id); err != nil {
		return err
	}

	if err := s.images.DeleteArchiveImages(ctx, id); err != nil {
		return fmt.Errorf("failed to delete archive images: %w", err)
	}

	if err := s.archives.DeleteArchive(ctx, id); err != nil {
		return fmt.Errorf("failed to delete archive: %w", err)
	}

	log.Info().Str("archive", id).Msg("Deleted archive")
	return nil
}

// View builds the page for an archive under q.
func (s *ArchiveService) View(ctx context.Context, id string, q view.Query) (view.Page, error) {
	archive, err := s.archives.GetArchive(ctx, id)
	if err != nil {
		return view.Page{}, err
	}

	return view.Build(archive, q), nil
}

// ListPosts returns the archive's posts narrowed by q.
func (s *ArchiveService) ListPosts(ctx context.Context, archiveID string, q view.Query) ([]domain.Post, error) {
	archive, err := s.archives.GetArchive(ctx, archiveID)
	if err != nil {
		return nil, err
	}

	return view.Filter(archive.Posts, q), nil
}

func (s *ArchiveService) Tags(ctx context.Context, archiveID string) ([]string, error) {
	archive, err := s.archives.GetArchive(ctx, archiveID)
	if err != nil {
		return nil, err
	}

	return view.ExtractTags(archive.Posts), nil
}

// Featured returns the posts named by the archive's featured ranking, in ranking order.
func (s *ArchiveService) Featured(ctx context.Context, archiveID string) ([]domain.Post, error) {
	archive, err := s.archives.GetArchive(ctx, archiveID)
	if err != nil {
		return nil, err
	}

	return view.SelectFeatured(archive.Posts, archive.FeaturedPostIDs()), nil
}

// CreatePost adds a post to an archive. With no archive ID the post goes to
// the first archive, and a default archive is created when there is none.
func (s *ArchiveService) CreatePost(ctx context.Context, archiveID string, in PostInput) (*domain.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: post title cannot be empty", domain.ErrInvalidArchive)
	}

	var archive *domain.Archive
	var err error
	if archiveID == "" {
		archive, err = s.defaultArchive(ctx)
	} else {
		archive, err = s.writableArchive(ctx, archiveID)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	post := &domain.Post{
		ID:        s.newID(),
		ArchiveID: archive.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(post)

	if err := s.posts.UpsertPost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (s *ArchiveService) defaultArchive(ctx context.Context) (*domain.Archive, error) {
	archives, err := s.archives.ListArchives(ctx)
	if err != nil {
		return nil, err
	}

	for i := range archives {
		if !archives[i].IsOnline {
			return &archives[i], nil
		}
	}

	return s.CreateArchive(ctx, domain.DefaultArchiveName, "")
}

func (s *ArchiveService) GetPost(ctx context.Context, archiveID string, postID string) (*domain.Post, error) {
	post, err := s.posts.GetPost(ctx, archiveID, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted() {
		return nil, fmt.Errorf("%w: %s", domain.ErrPostNotFound, postID)
	}

	return post, nil
}

// RenderPost returns a post with its body rendered to HTML.
func (s *ArchiveService) RenderPost(ctx context.Context, archiveID string, postID string) (*domain.Post, []byte, error) {
	post, err := s.GetPost(ctx, archiveID, postID)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.markdown.Render(archiveID, []byte(post.Content))
	if err != nil {
		return nil, nil, err
	}

	return post, result.HTMLContent, nil
}

// UpdatePost replaces the editable fields of a live post. Its position and
// creation time are kept.
func (s *ArchiveService) UpdatePost(ctx context.Context, archiveID string, postID string, in PostInput) (*domain.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: post title cannot be empty", domain.ErrInvalidArchive)
	}

	if _, err := s.writableArchive(ctx, archiveID); err != nil {
		return nil, err
	}

	post, err := s.GetPost(ctx, archiveID, postID)
	if err != nil {
		return nil, err
	}

	in.applyTo(post)
	post.UpdatedAt = s.now()

	if err := s.posts.UpsertPost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// DeletePost soft deletes a post; RestorePost undoes it until the post is purged.
func (s *ArchiveService) DeletePost(ctx context.Context, archiveID string, postID string) error {
	if _, err := s.writableArchive(ctx, archiveID); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, archiveID, postID); err != nil {
		return err
	}

	log.Info().Str("archive", archiveID).Str("post", postID).Msg("Deleted post")
	return nil
}

func (s *ArchiveService) RestorePost(ctx context.Context, archiveID string, postID string) (*domain.Post, error) {
	if _, err := s.writableArchive(ctx, archiveID); err != nil {
		return nil, err
	}

	if err := s.posts.RestorePost(ctx, archiveID, postID); err != nil {
		return nil, err
	}

	return s.GetPost(ctx, archiveID, postID)
}

// PurgeDeletedPosts permanently removes posts deleted more than olderThan ago.
func (s *ArchiveService) PurgeDeletedPosts(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.posts.PurgeDeleted(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted posts: %w", err)
	}

	if n > 0 {
		log.Info().Int64("count", n).Msg("Purged deleted posts")
	}
	return n, nil
}

// SaveImage stores a preview image for a local archive.
func (s *ArchiveService) SaveImage(ctx context.Context, archiveID string, name string, contentType string, content []byte) (*domain.Image, error) {
	if _, err := s.writableArchive(ctx, archiveID); err != nil {
		return nil, err
	}

	now := s.now()
	img := &domain.Image{
		ArchiveID:   archiveID,
		Name:        name,
		ContentType: contentType,
		Content:     content,
		UpdatedAt:   now,
		CreatedAt:   now,
	}

	if err := s.images.SaveImage(ctx, img); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	return img, nil
}

func (s *ArchiveService) GetImage(ctx context.Context, archiveID string, name string) (*domain.Image, error) {
	return s.images.GetImage(ctx, archiveID, name)
}

func (s *ArchiveService) DeleteImage(ctx context.Context, archiveID string, name string) error {
	if _, err := s.writableArchive(ctx, archiveID); err != nil {
		return err
	}

	return s.images.DeleteImage(ctx, archiveID, name)
}

// writableArchive loads an archive and refuses online ones.
func (s *ArchiveService) writableArchive(ctx context.Context, id string) (*domain.Archive, error) {
	archive, err := s.archives.GetArchive(ctx, id)
	if err != nil {
		return nil, err
	}

	if archive.IsOnline {
		return nil, fmt.Errorf("%w: %s", domain.ErrReadOnlyArchive, id)
	}

	return archive, nil
}

func (in PostInput) applyTo(p *domain.Post) {
	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	p.Description = in.Description
	p.PreviewImageURL = in.PreviewImageURL
	p.Tags = cleanTags(in.Tags)
}

// cleanTags trims tags and drops empty ones. Case and duplicates are kept.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// IsNotFound reports whether err means a missing archive, post or image.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrArchiveNotFound) ||
		errors.Is(err, domain.ErrPostNotFound) ||
		errors.Is(err, domain.ErrImageNotFound)
}

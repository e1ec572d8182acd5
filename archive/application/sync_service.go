package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

var (
	postPathRegex = regexp.MustCompile(`^posts/(\d+)-.*\.md$`)
)

const nullCommitSHA = "0000000000000000000000000000000000000000"

// SyncService keeps one archive in step with the post files of a git repository.
// Only the default branch is synced; the archive is online and read-only to local edits.
type SyncService struct {
	sourceRepo     domain.SourceRepository
	archives       domain.ArchiveRepository
	archiveID      string
	mainBranchName string

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup

	repo domain.PostRepository
}

func NewSyncService(
	repo domain.PostRepository,
	archives domain.ArchiveRepository,
	sourceRepo domain.SourceRepository,
	archiveID string,
	mainBranchName string,
) *SyncService {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	return &SyncService{
		sourceRepo:     sourceRepo,
		archives:       archives,
		archiveID:      archiveID,
		mainBranchName: mainBranchName,
		ctx:            ctx,
		cancel:         cancel,
		wg:             &wg,
		repo:           repo,
	}
}

// Close gracefully shuts down the SyncService by cancelling all background workers
func (s *SyncService) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

// Wait blocks until the workers spawned so far have finished.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// EnsureArchive creates the synced archive if it does not exist yet and marks it online.
func (s *SyncService) EnsureArchive(ctx context.Context) error {
	archive, err := s.archives.GetArchive(ctx, s.archiveID)
	if err != nil && !errors.Is(err, domain.ErrArchiveNotFound) {
		return fmt.Errorf("failed to load synced archive: %w", err)
	}

	sourceURL := "https://github.com/" + s.sourceRepo.GetRepoFullName()
	now := time.Now().UTC()
	if archive == nil {
		archive = &domain.Archive{
			ID:        s.archiveID,
			Name:      s.sourceRepo.GetRepoFullName(),
			CreatedAt: now,
		}
	} else if archive.IsOnline && archive.SourceURL == sourceURL && archive.SourceKind == domain.SourceKindGitHub {
		return nil
	}

	archive.IsOnline = true
	archive.SourceURL = sourceURL
	archive.SourceKind = domain.SourceKindGitHub
	archive.UpdatedAt = now

	if err := s.archives.UpsertArchive(ctx, archive); err != nil {
		return fmt.Errorf("failed to store synced archive: %w", err)
	}

	return nil
}

// SyncRepositoryChanges replays commits on the default branch since the newest post update.
// This catches any changes that happened while the server was offline
func (s *SyncService) SyncRepositoryChanges() error {
	lastUpdatedAt, err := s.repo.GetLatestUpdatedTime(s.ctx, s.archiveID)
	if err != nil {
		return fmt.Errorf("could not get the time of the last update: %w", err)
	}

	commits, err := s.sourceRepo.GetCommitsSince(s.ctx, s.mainBranchName, lastUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to get commits for branch %s: %w", s.mainBranchName, err)
	}

	if len(commits) == 0 {
		return nil
	}

	filesToProcess, filesToRemove, err := s.analyzeCommitFiles(commits)
	if err != nil {
		return fmt.Errorf("failed to analyze commits for branch %s: %w", s.mainBranchName, err)
	}

	for f := range filesToRemove {
		s.removePostFile(s.ctx, f)
	}

	for path, commit := range filesToProcess {
		postID := extractPostID(path)
		if postID == "" {
			continue
		}
		s.processPostFile(s.ctx, postID, s.fileInfo(postID, path, commit), commit.GetSHA())
	}

	return nil
}

func handleCommitFile(
	path string,
	status string,
	previousPath string,
	fullCommit *github.RepositoryCommit,
	filesToProcess map[string]*github.RepositoryCommit,
	filesToRemove map[string]struct{},
) (map[string]*github.RepositoryCommit, map[string]struct{}) {
	currentIsPost := isPostFile(path)
	previousIsPost := isPostFile(previousPath)

	if !currentIsPost && !previousIsPost {
		return filesToProcess, filesToRemove
	}

	switch status {
	case "added", "modified":
		if currentIsPost {
			filesToProcess[path] = fullCommit
			delete(filesToRemove, path)
		}
	case "removed":
		if currentIsPost {
			filesToRemove[path] = struct{}{}
			delete(filesToProcess, path)
		}
	case "renamed":
		if previousIsPost {
			filesToRemove[previousPath] = struct{}{}
			delete(filesToProcess, previousPath)
		}
		if currentIsPost {
			filesToProcess[path] = fullCommit
			delete(filesToRemove, path)
		}
	}

	return filesToProcess, filesToRemove
}

// analyzeCommitFiles iterates through commits to determine which files were changed and which were removed.
// Commits are expected oldest first; the last change to a path wins.
func (s *SyncService) analyzeCommitFiles(commits []*github.RepositoryCommit) (map[string]*github.RepositoryCommit, map[string]struct{}, error) {
	filesToProcess := make(map[string]*github.RepositoryCommit)
	filesToRemove := make(map[string]struct{})

	for _, commitSummary := range commits {
		fullCommit, err := s.sourceRepo.GetCommit(s.ctx, commitSummary.GetSHA())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get full commit %s: %w", commitSummary.GetSHA(), err)
		}

		for _, file := range fullCommit.Files {
			filesToProcess, filesToRemove = handleCommitFile(file.GetFilename(), file.GetStatus(), file.GetPreviousFilename(), fullCommit, filesToProcess, filesToRemove)
		}
	}

	// A post id that is both written and removed (renamed slug) stays.
	for path := range filesToRemove {
		id := extractPostID(path)
		for kept := range filesToProcess {
			if extractPostID(kept) == id {
				delete(filesToRemove, path)
				break
			}
		}
	}

	return filesToProcess, filesToRemove, nil
}

// HandlePushEvent processes a GitHub push event and updates posts accordingly
// This method returns immediately after validating the event and spawning async workers
// Workers use the service's lifecycle context, not the request context
func (s *SyncService) HandlePushEvent(evt *github.PushEvent) error {
	ref := evt.GetRef()
	if ref != "refs/heads/"+s.mainBranchName {
		log.Debug().Str("ref", ref).Msg("Ignoring push to non-default branch")
		return nil
	}

	var commits []*github.RepositoryCommit
	var err error

	if evt.GetBefore() != "" && evt.GetBefore() != nullCommitSHA {
		// Normal push with a base commit - get the range
		commits, err = s.sourceRepo.GetCommitsInRange(s.ctx, evt.GetBefore(), evt.GetAfter())
		if err != nil {
			return fmt.Errorf("failed to get commits in range %s...%s: %w", evt.GetBefore(), evt.GetAfter(), err)
		}
	} else {
		// New branch or first commit - just get the head commit
		headCommit, err := s.sourceRepo.GetCommit(s.ctx, evt.GetAfter())
		if err != nil {
			return fmt.Errorf("failed to get commit %s: %w", evt.GetAfter(), err)
		}
		commits = []*github.RepositoryCommit{headCommit}
	}

	filesToProcess, filesToRemove, err := s.analyzeCommitFiles(commits)
	if err != nil {
		return fmt.Errorf("failed to analyze commits: %w", err)
	}

	for filePath := range filesToRemove {
		s.wg.Go(func() {
			s.removePostFile(s.ctx, filePath)
		})
	}

	for filePath, commit := range filesToProcess {
		postID := extractPostID(filePath)
		if postID == "" {
			continue
		}

		fileInfo := s.fileInfo(postID, filePath, commit)
		// Use the commit SHA instead of ref to get the exact file version
		commitSHA := commit.GetSHA()

		s.wg.Go(func() {
			s.processPostFile(s.ctx, postID, fileInfo, commitSHA)
		})
	}

	return nil
}

func (s *SyncService) fileInfo(postID string, path string, commit *github.RepositoryCommit) commitFileInfo {
	modifiedAt := commit.GetCommit().GetAuthor().GetDate().Time

	createdAt := modifiedAt
	existingPost, err := s.repo.GetPost(s.ctx, s.archiveID, postID)
	if err == nil && existingPost != nil && !existingPost.CreatedAt.IsZero() {
		createdAt = existingPost.CreatedAt
	}

	return commitFileInfo{
		path:       path,
		createdAt:  createdAt,
		modifiedAt: modifiedAt,
	}
}

func (s *SyncService) removePostFile(ctx context.Context, path string) {
	postID := extractPostID(path)
	if postID == "" {
		return
	}

	err := s.repo.RemovePost(ctx, s.archiveID, postID)
	if err != nil && !errors.Is(err, domain.ErrPostNotFound) {
		log.Error().Err(err).Str("path", path).Msg("Failed to remove post")
		return
	}

	log.Info().Str("archive", s.archiveID).Str("post", postID).Msg("Removed synced post")
}

// processPostFile processes a single post file
// This function respects context cancellation for graceful shutdown
func (s *SyncService) processPostFile(
	ctx context.Context,
	postID string,
	fileInfo commitFileInfo,
	commitSHA string,
) {
	if ctx.Err() != nil {
		return
	}

	markdownContent, err := s.sourceRepo.GetFileContents(ctx, fileInfo.path, commitSHA)
	if err != nil {
		log.Error().Err(err).Str("path", fileInfo.path).Str("commitSHA", commitSHA).Msg("Failed to get file contents")
		return
	}

	post, err := parsePostFile(postID, markdownContent)
	if err != nil {
		log.Error().Err(err).Str("path", fileInfo.path).Msg("Failed to parse post file")
		return
	}

	post.ArchiveID = s.archiveID
	post.UpdatedAt = fileInfo.modifiedAt
	if post.CreatedAt.IsZero() {
		post.CreatedAt = fileInfo.createdAt
	}

	if err := s.repo.UpsertPost(ctx, post); err != nil {
		log.Error().Err(err).Str("postID", postID).Msg("Failed to upsert post")
		return
	}

	log.Info().Str("archive", s.archiveID).Str("post", postID).Str("commitSHA", commitSHA).Msg("Synced post")
}

// commitFileInfo tracks when a file was first created and last modified in a push
type commitFileInfo struct {
	path       string
	createdAt  time.Time
	modifiedAt time.Time
}

// isPostFile checks if a file path is a valid post file in the posts/ directory
// Valid format: posts/NNN-title-of-post.md where NNN is one or more digits
func isPostFile(path string) bool {
	return postPathRegex.MatchString(path)
}

// extractPostID extracts the numeric ID from a post filename
// Example: "posts/001-my-post.md" -> "001"
func extractPostID(path string) string {
	matches := postPathRegex.FindStringSubmatch(path)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

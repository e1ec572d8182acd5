package domain

import (
	"context"
	"time"

	"github.com/google/go-github/v75/github"
)

// SourceRepository defines the interface for reading a git-hosted archive (e.g., from GitHub).
// Posts of a synced archive are markdown files in the repository.
type SourceRepository interface {
	GetCommitsSince(ctx context.Context, branchName string, since time.Time) ([]*github.RepositoryCommit, error)
	GetCommitsInRange(ctx context.Context, baseCommit string, headCommit string) ([]*github.RepositoryCommit, error)
	GetCommit(ctx context.Context, sha string) (*github.RepositoryCommit, error)
	GetFileContents(ctx context.Context, path string, ref string) ([]byte, error)
	GetDefaultBranchName(ctx context.Context) (string, error)
	GetRepoFullName() string
}

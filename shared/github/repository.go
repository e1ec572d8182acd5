package github

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/google/go-github/v75/github"
)

var _ domain.SourceRepository = (*GithubSourceRepository)(nil)

// GithubSourceRepository is an implementation of domain.SourceRepository that uses the GitHub API.
// Posts of a synced archive are read from the repository's markdown files.
type GithubSourceRepository struct {
	client  *github.Client
	owner   string
	gitRepo string
}

// NewClient returns a GitHub API client. An empty token gives an unauthenticated client.
func NewClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// NewGithubSourceRepository creates a new GithubSourceRepository.
func NewGithubSourceRepository(client *github.Client, owner string, gitRepo string) *GithubSourceRepository {
	return &GithubSourceRepository{
		client:  client,
		owner:   owner,
		gitRepo: gitRepo,
	}
}

// GetCommitsSince fetches commits for a branch since a given time.
func (g *GithubSourceRepository) GetCommitsSince(ctx context.Context, branchName string, since time.Time) ([]*github.RepositoryCommit, error) {
	op := fmt.Sprintf("listing commits for branch %s", branchName)
	opts := &github.CommitsListOptions{
		SHA:         branchName,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allCommits []*github.RepositoryCommit
	for {
		commits, resp, err := g.client.Repositories.ListCommits(ctx, g.owner, g.gitRepo, opts)
		if err != nil {
			return nil, handleGithubError(op, err)
		}

		allCommits = append(allCommits, commits...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	// The API lists newest first; replay oldest first
	slices.Reverse(allCommits)
	return allCommits, nil
}

// GetCommitsInRange fetches commits between baseCommit and headCommit (inclusive).
// This is useful for processing all commits in a push event.
func (g *GithubSourceRepository) GetCommitsInRange(ctx context.Context, baseCommit string, headCommit string) ([]*github.RepositoryCommit, error) {
	op := fmt.Sprintf("comparing commits %s...%s", baseCommit, headCommit)
	comparison, _, err := g.client.Repositories.CompareCommits(ctx, g.owner, g.gitRepo, baseCommit, headCommit, nil)
	if err != nil {
		return nil, handleGithubError(op, err)
	}
	return comparison.Commits, nil
}

// GetCommit fetches a single commit by its SHA.
func (g *GithubSourceRepository) GetCommit(ctx context.Context, sha string) (*github.RepositoryCommit, error) {
	op := fmt.Sprintf("getting commit %s", sha)
	commit, _, err := g.client.Repositories.GetCommit(ctx, g.owner, g.gitRepo, sha, nil)
	if err != nil {
		return nil, handleGithubError(op, err)
	}
	return commit, nil
}

// GetFileContents fetches the contents of a file at a specific ref (branch, tag, or commit SHA).
func (g *GithubSourceRepository) GetFileContents(ctx context.Context, path string, ref string) ([]byte, error) {
	op := fmt.Sprintf("getting file %s at ref %s", path, ref)
	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("github: %s returned nil file content", op)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("github: %s failed to decode content: %w", op, err)
	}

	return []byte(content), nil
}

// GetRepoFullName returns the repository's full name (e.g., "owner/repo").
func (g *GithubSourceRepository) GetRepoFullName() string {
	return fmt.Sprintf("%s/%s", g.owner, g.gitRepo)
}

// GetDefaultBranchName fetches the repository metadata and returns the name of the default branch.
func (g *GithubSourceRepository) GetDefaultBranchName(ctx context.Context) (string, error) {
	op := fmt.Sprintf("getting repository info for %s/%s", g.owner, g.gitRepo)
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.gitRepo)
	if err != nil {
		return "", handleGithubError(op, err)
	}
	return repo.GetDefaultBranch(), nil
}

// handleGithubError inspects an error from the go-github client and returns a more informative, structured error.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		status := 0
		if errResp.Response != nil {
			status = errResp.Response.StatusCode
		}
		return fmt.Errorf("github: %s failed with status %d: %s", op, status, errResp.Message)
	}

	return fmt.Errorf("github: %s failed: %w", op, err)
}

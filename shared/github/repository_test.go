package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) (*GithubSourceRepository, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	return NewGithubSourceRepository(client, "owner", "posts"), mux
}

func TestGithubSourceRepository_GetCommitsSince(t *testing.T) {
	repo, mux := setupTestRepo(t)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mux.HandleFunc("/repos/owner/posts/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("sha"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"sha": "c1"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/owner/posts/commits?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"sha": "c3"}, {"sha": "c2"}]`)
	})

	commits, err := repo.GetCommitsSince(context.Background(), "main", since)
	require.NoError(t, err)

	var shas []string
	for _, c := range commits {
		shas = append(shas, c.GetSHA())
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, shas)
}

func TestGithubSourceRepository_GetCommitsInRange(t *testing.T) {
	repo, mux := setupTestRepo(t)

	mux.HandleFunc("/repos/owner/posts/compare/base...head", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"commits": [{"sha": "a"}, {"sha": "b"}]}`)
	})

	commits, err := repo.GetCommitsInRange(context.Background(), "base", "head")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "b", commits[1].GetSHA())
}

func TestGithubSourceRepository_GetCommit(t *testing.T) {
	repo, mux := setupTestRepo(t)

	mux.HandleFunc("/repos/owner/posts/commits/abc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha": "abc", "files": [{"filename": "posts/1-a.md", "status": "added"}]}`)
	})
	mux.HandleFunc("/repos/owner/posts/commits/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	commit, err := repo.GetCommit(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, commit.Files, 1)
	assert.Equal(t, "posts/1-a.md", commit.Files[0].GetFilename())

	_, err = repo.GetCommit(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "Not Found")
}

func TestGithubSourceRepository_GetFileContents(t *testing.T) {
	repo, mux := setupTestRepo(t)

	body := "# Hello\n\nworld"
	mux.HandleFunc("/repos/owner/posts/contents/posts/1-a.md", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("ref"))
		fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`, base64.StdEncoding.EncodeToString([]byte(body)))
	})

	content, err := repo.GetFileContents(context.Background(), "posts/1-a.md", "abc")
	require.NoError(t, err)
	assert.Equal(t, body, string(content))
}

func TestGithubSourceRepository_GetDefaultBranchName(t *testing.T) {
	repo, mux := setupTestRepo(t)

	mux.HandleFunc("/repos/owner/posts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name": "owner/posts", "default_branch": "trunk"}`)
	})

	branch, err := repo.GetDefaultBranchName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
	assert.Equal(t, "owner/posts", repo.GetRepoFullName())
}

func TestNewClient(t *testing.T) {
	assert.NotNil(t, NewClient(""))
	assert.NotNil(t, NewClient("token"))
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/shared/db"
)

var _ domain.PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository implements domain.PostRepository using SQL database (SQLite).
// Posts keep the order they were first stored in via the position column;
// tags live in post_tags in their stored order.
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

const upsertPostQuery = `
	INSERT INTO posts (archive_id, id, position, title, content, description, preview_image_url, updated_at, deleted_at, created_at)
	VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM posts WHERE archive_id = ?), ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(archive_id, id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		description = excluded.description,
		preview_image_url = excluded.preview_image_url,
		updated_at = excluded.updated_at,
		deleted_at = excluded.deleted_at,
		created_at = COALESCE(posts.created_at, excluded.created_at)
`

const deletePostTagsQuery = `DELETE FROM post_tags WHERE archive_id = ? AND post_id = ?`

const insertPostTagQuery = `INSERT INTO post_tags (archive_id, post_id, position, tag) VALUES (?, ?, ?, ?)`

// UpsertPost inserts or updates a post and replaces its tags within a transaction
func (r *SQLitePostRepository) UpsertPost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	if p.ArchiveID == "" {
		return fmt.Errorf("post archive ID cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, upsertPostQuery,
			p.ArchiveID,
			p.ID,
			p.ArchiveID,
			p.Title,
			p.Content,
			p.Description,
			p.PreviewImageURL,
			nullableTime(p.UpdatedAt),
			nullableTime(p.DeletedAt),
			nullableTime(p.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert post: %w", err)
		}

		if _, err := executor.ExecContext(txCtx, deletePostTagsQuery, p.ArchiveID, p.ID); err != nil {
			return fmt.Errorf("failed to clear post tags: %w", err)
		}

		for i, tag := range p.Tags {
			if _, err := executor.ExecContext(txCtx, insertPostTagQuery, p.ArchiveID, p.ID, i, tag); err != nil {
				return fmt.Errorf("failed to insert post tag %q: %w", tag, err)
			}
		}

		return nil
	})
}

const getPostQuery = `
	SELECT archive_id, id, title, content, description, preview_image_url, updated_at, deleted_at, created_at
	FROM posts
	WHERE archive_id = ? AND id = ?
`

// GetPost retrieves a single post by ID, including soft-deleted posts
func (r *SQLitePostRepository) GetPost(ctx context.Context, archiveID string, id string) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)

	var row postRow
	err := executor.QueryRowContext(ctx, getPostQuery, archiveID, id).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	post := row.toDomain()
	post.Tags, err = r.postTags(ctx, archiveID, id)
	if err != nil {
		return nil, err
	}

	return post, nil
}

const getPostTagsQuery = `
	SELECT tag FROM post_tags WHERE archive_id = ? AND post_id = ? ORDER BY position
`

func (r *SQLitePostRepository) postTags(ctx context.Context, archiveID string, postID string) ([]string, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, getPostTagsQuery, archiveID, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post tags: %w", err)
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan post tag: %w", err)
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

const listPostsQuery = `
	SELECT archive_id, id, title, content, description, preview_image_url, updated_at, deleted_at, created_at
	FROM posts
	WHERE archive_id = ? AND deleted_at IS NULL
	ORDER BY position
`

const listArchiveTagsQuery = `
	SELECT post_id, tag FROM post_tags WHERE archive_id = ? ORDER BY post_id, position
`

// ListPosts returns the live posts of an archive in their stored order
func (r *SQLitePostRepository) ListPosts(ctx context.Context, archiveID string) ([]domain.Post, error) {
	executor := db.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, listPostsQuery, archiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]domain.Post, 0)
	for rows.Next() {
		var row postRow
		if err := rows.Scan(row.fields()...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *row.toDomain())
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}
	rows.Close()

	// Tags are read after the post rows are closed so a single-connection
	// pool never has two open result sets.
	tagRows, err := executor.QueryContext(ctx, listArchiveTagsQuery, archiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to list post tags: %w", err)
	}
	defer tagRows.Close()

	tags := make(map[string][]string)
	for tagRows.Next() {
		var postID, tag string
		if err := tagRows.Scan(&postID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan post tag: %w", err)
		}
		tags[postID] = append(tags[postID], tag)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post tags: %w", err)
	}

	for i := range posts {
		posts[i].Tags = tags[posts[i].ID]
	}

	return posts, nil
}

const getLatestUpdatedTimeQuery = `
	SELECT updated_at FROM posts WHERE archive_id = ? AND updated_at IS NOT NULL ORDER BY updated_at DESC LIMIT 1
`

// GetLatestUpdatedTime returns the latest updated_at time across the posts of an archive
func (r *SQLitePostRepository) GetLatestUpdatedTime(ctx context.Context, archiveID string) (time.Time, error) {
	var latestUpdated sql.NullTime
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getLatestUpdatedTimeQuery, archiveID).Scan(&latestUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get latest updated time: %w", err)
	}

	if !latestUpdated.Valid {
		return time.Time{}, nil
	}

	return latestUpdated.Time, nil
}

const deletePostQuery = `
	UPDATE posts
	SET deleted_at = ?, updated_at = ?
	WHERE archive_id = ? AND id = ? AND deleted_at IS NULL
`

const restorePostQuery = `
	UPDATE posts
	SET deleted_at = NULL, updated_at = ?
	WHERE archive_id = ? AND id = ? AND deleted_at IS NOT NULL
`

// DeletePost soft deletes a live post
func (r *SQLitePostRepository) DeletePost(ctx context.Context, archiveID string, id string) error {
	now := time.Now().UTC()
	return r.execOnPost(ctx, "delete", id, deletePostQuery, now, now, archiveID, id)
}

// RestorePost brings back a soft-deleted post
func (r *SQLitePostRepository) RestorePost(ctx context.Context, archiveID string, id string) error {
	return r.execOnPost(ctx, "restore", id, restorePostQuery, time.Now().UTC(), archiveID, id)
}

const removePostQuery = `DELETE FROM posts WHERE archive_id = ? AND id = ?`

// RemovePost deletes a post and its tags permanently
func (r *SQLitePostRepository) RemovePost(ctx context.Context, archiveID string, id string) error {
	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		if _, err := executor.ExecContext(txCtx, deletePostTagsQuery, archiveID, id); err != nil {
			return fmt.Errorf("failed to remove post tags: %w", err)
		}
		return r.execOnPost(txCtx, "remove", id, removePostQuery, archiveID, id)
	})
}

func (r *SQLitePostRepository) execOnPost(ctx context.Context, op string, id string, query string, args ...any) error {
	if id == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s post: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s post: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPostNotFound, id)
	}

	return nil
}

const purgeDeletedTagsQuery = `
	DELETE FROM post_tags
	WHERE (archive_id, post_id) IN (
		SELECT archive_id, id FROM posts WHERE deleted_at IS NOT NULL AND deleted_at < ?
	)
`

const purgeDeletedPostsQuery = `
	DELETE FROM posts WHERE deleted_at IS NOT NULL AND deleted_at < ?
`

// PurgeDeleted permanently removes posts soft-deleted before the given time
func (r *SQLitePostRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		if _, err := executor.ExecContext(txCtx, purgeDeletedTagsQuery, before.UTC()); err != nil {
			return fmt.Errorf("failed to purge post tags: %w", err)
		}

		res, err := executor.ExecContext(txCtx, purgeDeletedPostsQuery, before.UTC())
		if err != nil {
			return fmt.Errorf("failed to purge posts: %w", err)
		}

		purged, err = res.RowsAffected()
		return err
	})

	return purged, err
}

// postRow is a private struct used to scan database rows
// It uses sql.NullTime to handle nullable timestamp fields
// and provides a method to convert to the domain.Post model
type postRow struct {
	ArchiveID       string       `db:"archive_id"`
	ID              string       `db:"id"`
	Title           string       `db:"title"`
	Content         string       `db:"content"`
	Description     string       `db:"description"`
	PreviewImageURL string       `db:"preview_image_url"`
	UpdatedAt       sql.NullTime `db:"updated_at"`
	DeletedAt       sql.NullTime `db:"deleted_at"`
	CreatedAt       sql.NullTime `db:"created_at"`
}

func (pr *postRow) fields() []any {
	return []any{
		&pr.ArchiveID,
		&pr.ID,
		&pr.Title,
		&pr.Content,
		&pr.Description,
		&pr.PreviewImageURL,
		&pr.UpdatedAt,
		&pr.DeletedAt,
		&pr.CreatedAt,
	}
}

// toDomain converts a postRow to a domain.Post, handling nullable times
func (pr *postRow) toDomain() *domain.Post {
	post := &domain.Post{
		ArchiveID:       pr.ArchiveID,
		ID:              pr.ID,
		Title:           pr.Title,
		Content:         pr.Content,
		Description:     pr.Description,
		PreviewImageURL: pr.PreviewImageURL,
	}

	if pr.UpdatedAt.Valid {
		post.UpdatedAt = pr.UpdatedAt.Time
	}
	if pr.DeletedAt.Valid {
		post.DeletedAt = pr.DeletedAt.Time
	}
	if pr.CreatedAt.Valid {
		post.CreatedAt = pr.CreatedAt.Time
	}

	return post
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

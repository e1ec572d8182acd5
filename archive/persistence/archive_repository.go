package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/shared/db"
	"github.com/rs/zerolog/log"
)

var _ domain.ArchiveRepository = (*SQLiteArchiveRepository)(nil)

// SQLiteArchiveRepository implements domain.ArchiveRepository using SQL database (SQLite).
// Display options are stored as a JSON document in the archives row.
type SQLiteArchiveRepository struct {
	db    *sql.DB
	posts *SQLitePostRepository
}

// NewArchiveRepository creates a new SQLiteArchiveRepository from a standard sql.DB
func NewArchiveRepository(db *sql.DB) *SQLiteArchiveRepository {
	return &SQLiteArchiveRepository{
		db:    db,
		posts: NewPostRepository(db),
	}
}

const upsertArchiveQuery = `
	INSERT INTO archives (id, name, description, is_online, source_url, source_kind, display_options, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		is_online = excluded.is_online,
		source_url = excluded.source_url,
		source_kind = excluded.source_kind,
		display_options = excluded.display_options,
		updated_at = excluded.updated_at,
		created_at = COALESCE(archives.created_at, excluded.created_at)
`

// UpsertArchive inserts or updates the archive row
func (r *SQLiteArchiveRepository) UpsertArchive(ctx context.Context, a *domain.Archive) error {
	if a == nil {
		return fmt.Errorf("archive cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("archive ID cannot be empty")
	}

	opts, err := json.Marshal(a.DisplayOptions)
	if err != nil {
		return fmt.Errorf("failed to encode display options: %w", err)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = a.UpdatedAt
	}

	_, err = db.GetExecutor(ctx, r.db).ExecContext(ctx, upsertArchiveQuery,
		a.ID,
		a.Name,
		a.Description,
		a.IsOnline,
		a.SourceURL,
		string(a.SourceKind),
		string(opts),
		nullableTime(a.UpdatedAt),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert archive: %w", err)
	}

	return nil
}

const deleteArchivePostsQuery = `DELETE FROM posts WHERE archive_id = ?`

const deleteArchiveTagsQuery = `DELETE FROM post_tags WHERE archive_id = ?`

// ReplaceArchive stores the archive and swaps its posts for a.Posts in one transaction.
// Posts are stored in slice order.
func (r *SQLiteArchiveRepository) ReplaceArchive(ctx context.Context, a *domain.Archive) error {
	if a == nil {
		return fmt.Errorf("archive cannot be nil")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		if err := r.UpsertArchive(txCtx, a); err != nil {
			return err
		}

		executor := db.GetExecutor(txCtx, r.db)
		if _, err := executor.ExecContext(txCtx, deleteArchiveTagsQuery, a.ID); err != nil {
			return fmt.Errorf("failed to clear archive tags: %w", err)
		}
		if _, err := executor.ExecContext(txCtx, deleteArchivePostsQuery, a.ID); err != nil {
			return fmt.Errorf("failed to clear archive posts: %w", err)
		}

		for i := range a.Posts {
			p := a.Posts[i]
			p.ArchiveID = a.ID
			if err := r.posts.UpsertPost(txCtx, &p); err != nil {
				return fmt.Errorf("failed to store post %s: %w", p.ID, err)
			}
		}

		return nil
	})
}

const archiveColumns = `id, name, description, is_online, source_url, source_kind, display_options, updated_at, created_at`

const getArchiveQuery = `SELECT ` + archiveColumns + ` FROM archives WHERE id = ?`

// GetArchive retrieves an archive together with its live posts
func (r *SQLiteArchiveRepository) GetArchive(ctx context.Context, id string) (*domain.Archive, error) {
	if id == "" {
		return nil, fmt.Errorf("archive ID cannot be empty")
	}

	var row archiveRow
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getArchiveQuery, id).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archive: %w", err)
	}

	archive := row.toDomain()
	archive.Posts, err = r.posts.ListPosts(ctx, id)
	if err != nil {
		return nil, err
	}

	return archive, nil
}

const listArchivesQuery = `SELECT ` + archiveColumns + ` FROM archives ORDER BY created_at, id`

const listOnlineArchivesQuery = `SELECT ` + archiveColumns + ` FROM archives WHERE is_online = 1 ORDER BY created_at, id`

// ListArchives returns every archive without its posts, oldest first
func (r *SQLiteArchiveRepository) ListArchives(ctx context.Context) ([]domain.Archive, error) {
	return r.listArchives(ctx, listArchivesQuery)
}

// ListOnlineArchives returns the archives that were imported from a URL or a repository
func (r *SQLiteArchiveRepository) ListOnlineArchives(ctx context.Context) ([]domain.Archive, error) {
	return r.listArchives(ctx, listOnlineArchivesQuery)
}

func (r *SQLiteArchiveRepository) listArchives(ctx context.Context, query string) ([]domain.Archive, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	defer rows.Close()

	archives := make([]domain.Archive, 0)
	for rows.Next() {
		var row archiveRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		archives = append(archives, *row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive rows: %w", err)
	}

	return archives, nil
}

const deleteArchiveQuery = `DELETE FROM archives WHERE id = ?`

const deleteArchiveImagesQuery = `DELETE FROM images WHERE archive_id = ?`

// DeleteArchive removes an archive with all of its posts and image records
func (r *SQLiteArchiveRepository) DeleteArchive(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("archive ID cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		for _, q := range []string{deleteArchiveTagsQuery, deleteArchivePostsQuery, deleteArchiveImagesQuery} {
			if _, err := executor.ExecContext(txCtx, q, id); err != nil {
				return fmt.Errorf("failed to delete archive contents: %w", err)
			}
		}

		res, err := executor.ExecContext(txCtx, deleteArchiveQuery, id)
		if err != nil {
			return fmt.Errorf("failed to delete archive: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete archive: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, id)
		}

		return nil
	})
}

// archiveRow is a private struct used to scan database rows
type archiveRow struct {
	ID             string       `db:"id"`
	Name           string       `db:"name"`
	Description    string       `db:"description"`
	IsOnline       bool         `db:"is_online"`
	SourceURL      string       `db:"source_url"`
	SourceKind     string       `db:"source_kind"`
	DisplayOptions string       `db:"display_options"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
	CreatedAt      sql.NullTime `db:"created_at"`
}

func (ar *archiveRow) fields() []any {
	return []any{
		&ar.ID,
		&ar.Name,
		&ar.Description,
		&ar.IsOnline,
		&ar.SourceURL,
		&ar.SourceKind,
		&ar.DisplayOptions,
		&ar.UpdatedAt,
		&ar.CreatedAt,
	}
}

// toDomain converts an archiveRow to a domain.Archive.
// Unreadable display options fall back to the defaults.
func (ar *archiveRow) toDomain() *domain.Archive {
	archive := &domain.Archive{
		ID:          ar.ID,
		Name:        ar.Name,
		Description: ar.Description,
		IsOnline:    ar.IsOnline,
		SourceURL:   ar.SourceURL,
		SourceKind:  domain.SourceKind(ar.SourceKind),
		Posts:       []domain.Post{},
	}

	if ar.DisplayOptions != "" {
		if err := json.Unmarshal([]byte(ar.DisplayOptions), &archive.DisplayOptions); err != nil {
			log.Warn().Err(err).Str("archive", ar.ID).Msg("Ignoring unreadable display options")
			archive.DisplayOptions = domain.DisplayOptions{}
		}
	}

	if ar.UpdatedAt.Valid {
		archive.UpdatedAt = ar.UpdatedAt.Time
	}
	if ar.CreatedAt.Valid {
		archive.CreatedAt = ar.CreatedAt.Time
	}

	return archive
}

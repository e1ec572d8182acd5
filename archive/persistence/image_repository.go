package persistence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/shared/db"
)

var _ domain.ImageRepository = (*SQLiteImageRepository)(nil)

// DefaultImageDir is where image files are written when no directory is configured.
const DefaultImageDir = "./images"

// SQLiteImageRepository implements domain.ImageRepository using SQL database (SQLite).
// File content lives on disk under <dir>/<archive id>/<name>; the row keeps its hash.
type SQLiteImageRepository struct {
	db  *sql.DB
	dir string
}

// NewImageRepository creates a new SQLiteImageRepository from a standard sql.DB
func NewImageRepository(sqlDB *sql.DB, dir string) *SQLiteImageRepository {
	if dir == "" {
		dir = DefaultImageDir
	}

	return &SQLiteImageRepository{
		db:  sqlDB,
		dir: dir,
	}
}

const upsertImageQuery = `
	INSERT INTO images (archive_id, name, hash, content_type, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(archive_id, name) DO UPDATE SET
		hash = excluded.hash,
		content_type = excluded.content_type,
		updated_at = excluded.updated_at,
		created_at = COALESCE(images.created_at, excluded.created_at)
`

// SaveImage saves an image to both filesystem and database within a transaction
func (r *SQLiteImageRepository) SaveImage(ctx context.Context, img *domain.Image) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}

	localPath, err := r.localPath(img.ArchiveID, img.Name)
	if err != nil {
		return err
	}

	if img.Hash == "" {
		img.Hash = HashContent(img.Content)
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		createdAt := img.CreatedAt
		if createdAt.IsZero() {
			createdAt = img.UpdatedAt
		}

		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, upsertImageQuery,
			img.ArchiveID,
			img.Name,
			img.Hash,
			img.ContentType,
			nullableTime(img.UpdatedAt),
			createdAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert image record: %w", err)
		}

		// A failed write rolls the record back
		if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}

		if err := os.WriteFile(localPath, img.Content, 0644); err != nil {
			return fmt.Errorf("failed to write image file: %w", err)
		}

		return nil
	})
}

const getImageQuery = `
	SELECT archive_id, name, hash, content_type, updated_at, created_at
	FROM images
	WHERE archive_id = ? AND name = ?
`

// GetImage retrieves a single image record and reads its file content
func (r *SQLiteImageRepository) GetImage(ctx context.Context, archiveID string, name string) (*domain.Image, error) {
	localPath, err := r.localPath(archiveID, name)
	if err != nil {
		return nil, err
	}

	var row imageRow
	err = db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getImageQuery, archiveID, name).Scan(
		&row.ArchiveID,
		&row.Name,
		&row.Hash,
		&row.ContentType,
		&row.UpdatedAt,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	img := row.toDomain()
	img.Content, err = os.ReadFile(localPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return img, nil
}

const deleteImageQuery = `
	DELETE FROM images WHERE archive_id = ? AND name = ?
`

// DeleteImage removes an image from both filesystem and database within a transaction
func (r *SQLiteImageRepository) DeleteImage(ctx context.Context, archiveID string, name string) error {
	localPath, err := r.localPath(archiveID, name)
	if err != nil {
		return err
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		res, err := db.GetExecutor(txCtx, r.db).ExecContext(txCtx, deleteImageQuery, archiveID, name)
		if err != nil {
			return fmt.Errorf("failed to delete image record: %w", err)
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrImageNotFound, name)
		}

		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove image file: %w", err)
		}

		return nil
	})
}

const deleteImagesForArchiveQuery = `DELETE FROM images WHERE archive_id = ?`

// DeleteArchiveImages removes the records and the directory of an archive's images
func (r *SQLiteImageRepository) DeleteArchiveImages(ctx context.Context, archiveID string) error {
	if archiveID == "" || filepath.Base(archiveID) != archiveID || archiveID == "." || archiveID == ".." {
		return fmt.Errorf("invalid archive ID %q", archiveID)
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		if _, err := db.GetExecutor(txCtx, r.db).ExecContext(txCtx, deleteImagesForArchiveQuery, archiveID); err != nil {
			return fmt.Errorf("failed to delete image records: %w", err)
		}

		if err := os.RemoveAll(filepath.Join(r.dir, archiveID)); err != nil {
			return fmt.Errorf("failed to remove image directory: %w", err)
		}

		return nil
	})
}

// localPath rejects names that would escape the archive's image directory.
func (r *SQLiteImageRepository) localPath(archiveID string, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("image name cannot be empty")
	}
	if archiveID == "" {
		return "", fmt.Errorf("image archive ID cannot be empty")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	if filepath.Base(archiveID) != archiveID || archiveID == "." || archiveID == ".." {
		return "", fmt.Errorf("invalid archive ID %q", archiveID)
	}

	return filepath.Join(r.dir, archiveID, name), nil
}

// HashContent returns the hex sha256 of an image body.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// imageRow is a private struct used to scan database rows
type imageRow struct {
	ArchiveID   string       `db:"archive_id"`
	Name        string       `db:"name"`
	Hash        string       `db:"hash"`
	ContentType string       `db:"content_type"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
	CreatedAt   sql.NullTime `db:"created_at"`
}

// toDomain converts an imageRow to a domain.Image, handling nullable times
func (ir *imageRow) toDomain() *domain.Image {
	img := &domain.Image{
		ArchiveID:   ir.ArchiveID,
		Name:        ir.Name,
		Hash:        ir.Hash,
		ContentType: ir.ContentType,
	}

	if ir.UpdatedAt.Valid {
		img.UpdatedAt = ir.UpdatedAt.Time
	}
	if ir.CreatedAt.Valid {
		img.CreatedAt = ir.CreatedAt.Time
	}

	return img
}

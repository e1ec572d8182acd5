package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE archives (id TEXT PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE posts (archive_id TEXT NOT NULL, id TEXT NOT NULL, title TEXT NOT NULL, PRIMARY KEY (archive_id, id));
	`)
	require.NoError(t, err)

	return db
}

func insertArchive(ctx context.Context, db *sql.DB, id string) error {
	_, err := GetExecutor(ctx, db).ExecContext(ctx, "INSERT INTO archives (id, name) VALUES (?, ?)", id, "Archive "+id)
	return err
}

func insertPost(ctx context.Context, db *sql.DB, archiveID, id string) error {
	return RunInTransaction(ctx, db, func(ctx context.Context) error {
		_, err := GetExecutor(ctx, db).ExecContext(ctx, "INSERT INTO posts (archive_id, id, title) VALUES (?, ?, ?)", archiveID, id, "Post "+id)
		return err
	})
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func TestRunInTransaction(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name         string
		fn           func(ctx context.Context, db *sql.DB) error
		wantErr      error
		wantArchives int
		wantPosts    int
	}{
		{
			name: "commits archive and posts together",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertArchive(ctx, db, "a1"); err != nil {
					return err
				}
				if err := insertPost(ctx, db, "a1", "1"); err != nil {
					return err
				}
				return insertPost(ctx, db, "a1", "2")
			},
			wantArchives: 1,
			wantPosts:    2,
		},
		{
			name: "callback error rolls back everything",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertArchive(ctx, db, "a1"); err != nil {
					return err
				}
				return errBoom
			},
			wantErr: errBoom,
		},
		{
			name: "failing nested write rolls back the outer one",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertArchive(ctx, db, "a1"); err != nil {
					return err
				}
				if err := insertPost(ctx, db, "a1", "1"); err != nil {
					return err
				}
				return RunInTransaction(ctx, db, func(ctx context.Context) error {
					if err := insertPost(ctx, db, "a1", "2"); err != nil {
						return err
					}
					return errBoom
				})
			},
			wantErr: errBoom,
		},
		{
			name: "constraint violation rolls back",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertArchive(ctx, db, "a1"); err != nil {
					return err
				}
				if err := insertPost(ctx, db, "a1", "1"); err != nil {
					return err
				}
				return insertPost(ctx, db, "a1", "1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)

			err := RunInTransaction(context.Background(), db, func(ctx context.Context) error {
				return tt.fn(ctx, db)
			})

			wantFailure := tt.wantErr != nil || (tt.wantArchives == 0 && tt.wantPosts == 0)
			if wantFailure {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantArchives, countRows(t, db, "archives"))
			assert.Equal(t, tt.wantPosts, countRows(t, db, "posts"))
		})
	}
}

func TestRunInTransaction_ReusesOuterTransaction(t *testing.T) {
	db := setupTestDB(t)

	err := RunInTransaction(context.Background(), db, func(outerCtx context.Context) error {
		outerTx, ok := GetTx(outerCtx)
		require.True(t, ok)

		return RunInTransaction(outerCtx, db, func(innerCtx context.Context) error {
			innerTx, ok := GetTx(innerCtx)
			require.True(t, ok)
			assert.Same(t, outerTx, innerTx)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestGetExecutor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.Equal(t, Executor(db), GetExecutor(ctx, db))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.Equal(t, Executor(tx), GetExecutor(WithTx(ctx, tx), db))
}

package db

import (
	"database/sql"
)

// Database is a connectable store backed by database/sql.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}

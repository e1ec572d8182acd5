package domain

import "errors"

var (
	ErrArchiveNotFound = errors.New("archive not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrImageNotFound   = errors.New("image not found")

	// ErrReadOnlyArchive is returned when a local edit targets an online archive.
	ErrReadOnlyArchive = errors.New("archive is read-only")

	// ErrInvalidArchive wraps every import validation or decoding failure.
	ErrInvalidArchive = errors.New("invalid archive")
)

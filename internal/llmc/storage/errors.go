package storage

import "errors"

var (
	ErrInvalidData   = errors.New("invalid data")
	ErrFileOperation = errors.New("file operation failed")
)

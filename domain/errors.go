package domain

import "errors"

var (
	ErrVideoNotFound    = errors.New("video not found")
	ErrDuplicateFile    = errors.New("video already exists")
	ErrPermissionDenied = errors.New("permission denied")
)

// domain/interfaces.go
package domain

import (
	"context"
	"io"
)

type VideoRepository interface {
	Save(ctx context.Context, video *Video) error
	Update(ctx context.Context, video *Video) error
	UpdateStatus(ctx context.Context, videoID int, status VideoStatus, errorMessage string) error
	UpdateFileSize(ctx context.Context, videoID int, size int64) error
	Delete(ctx context.Context, videoID int) error
	FindByID(ctx context.Context, videoID int) (*Video, error)
	FindByIDs(ctx context.Context, videoIDs []int) ([]Video, error)
	ExistsByFile(ctx context.Context, file string) (bool, error)
	List(ctx context.Context, filter VideoFilter) ([]Video, error)
	Collections(ctx context.Context) ([]Collection, error)
}

// Permission actions understood by a PermissionPolicy.
const (
	PermissionAdd    = "add"
	PermissionChange = "change"
	PermissionDelete = "delete"
)

type PermissionPolicy interface {
	UserHasPermission(ctx context.Context, user User, action string) (bool, error)
	UserHasPermissionForInstance(ctx context.Context, user User, action string, video *Video) (bool, error)
	CollectionsUserHasPermissionFor(ctx context.Context, user User, action string) ([]Collection, error)
}

type SearchBackend interface {
	Name() string
	Add(ctx context.Context, video *Video) error
	Delete(ctx context.Context, videoID int) error
	Search(ctx context.Context, query string, collectionID, limit int) ([]int, error)
}

type TaskQueue interface {
	EnqueuePostProcess(ctx context.Context, task VideoPostProcessTask) error
	ConsumePostProcess(ctx context.Context, handler func(context.Context, VideoPostProcessTask) error) error
	Close() error
}

type FileStorage interface {
	Save(ctx context.Context, src io.Reader, key string) (string, error)
	Size(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

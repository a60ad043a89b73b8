// usecase/upload_video.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/metrics"
)

// ErrNoUpload is returned when a request carries neither a file nor a location.
var ErrNoUpload = errors.New("must upload a file")

const duplicateVideoMessage = "Video already exists."

// originalsPrefix is the storage directory uploaded files are written to.
const originalsPrefix = "original_videos"

type UploadVideoInput struct {
	User         domain.User
	File         *UploadedFile
	CollectionID int
	// Location references a file already present in storage. Used only when File is nil.
	Location string
}

type UploadVideoOutput struct {
	Video        *domain.Video
	ErrorMessage string
	// Collections are the choices offered by the returned edit form.
	Collections []domain.Collection
}

func (o *UploadVideoOutput) Success() bool {
	return o.Video != nil && o.ErrorMessage == ""
}

// AddPageContext describes the multi-upload widget.
type AddPageContext struct {
	MaxFilesize            *int64              `json:"max_filesize"`
	HelpText               string              `json:"help_text"`
	ErrorMaxFileSize       string              `json:"error_max_file_size"`
	ErrorAcceptedFileTypes string              `json:"error_accepted_file_types"`
	Collections            []domain.Collection `json:"collections"`
}

type UploadVideoUseCase struct {
	VideoRepo   domain.VideoRepository
	FileStorage domain.FileStorage
	Permissions domain.PermissionPolicy
	TaskQueue   domain.TaskQueue
	Indexer     *SearchIndexer
	Field       FieldConfig
}

// PageContext returns what the upload page needs. The collection chooser is only
// offered when there is more than one collection to choose from.
func (uc *UploadVideoUseCase) PageContext(ctx context.Context, user domain.User) (*AddPageContext, error) {
	collections, err := uc.addCollections(ctx, user)
	if err != nil {
		return nil, err
	}

	page := &AddPageContext{
		HelpText:               uc.Field.HelpText(),
		ErrorMaxFileSize:       uc.Field.ErrorFileTooLargeUnknownSize(),
		ErrorAcceptedFileTypes: uc.Field.ErrorInvalidFormat(),
	}
	if uc.Field.MaxUploadSize > 0 {
		size := uc.Field.MaxUploadSize
		page.MaxFilesize = &size
	}
	if len(collections) > 1 {
		page.Collections = collections
	}
	return page, nil
}

func (uc *UploadVideoUseCase) Execute(ctx context.Context, input UploadVideoInput) (*UploadVideoOutput, error) {
	collections, err := uc.addCollections(ctx, input.User)
	if err != nil {
		return nil, err
	}

	if input.File == nil {
		return uc.fromLocation(ctx, input, collections)
	}
	return uc.fromUpload(ctx, input, collections)
}

func (uc *UploadVideoUseCase) fromLocation(ctx context.Context, input UploadVideoInput, collections []domain.Collection) (*UploadVideoOutput, error) {
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, ErrNoUpload
	}

	exists, err := uc.VideoRepo.ExistsByFile(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing video: %w", err)
	}
	if exists {
		metrics.VideoUploadsTotal.WithLabelValues("location", "duplicate").Inc()
		return &UploadVideoOutput{ErrorMessage: duplicateVideoMessage}, nil
	}

	video := &domain.Video{
		Title:            domain.LocationFilename(location),
		File:             location,
		CollectionID:     defaultCollection(collections),
		UploadedByUserID: input.User.ID,
		Status:           domain.VideoStatusPending,
	}
	if err := uc.VideoRepo.Save(ctx, video); err != nil {
		metrics.VideoUploadsTotal.WithLabelValues("location", "error").Inc()
		if errors.Is(err, domain.ErrDuplicateFile) {
			return &UploadVideoOutput{ErrorMessage: duplicateVideoMessage}, nil
		}
		return &UploadVideoOutput{ErrorMessage: err.Error()}, nil
	}

	metrics.VideoUploadsTotal.WithLabelValues("location", "success").Inc()
	uc.afterCreate(ctx, video)
	return &UploadVideoOutput{Video: video, Collections: collections}, nil
}

func (uc *UploadVideoUseCase) fromUpload(ctx context.Context, input UploadVideoInput, collections []domain.Collection) (*UploadVideoOutput, error) {
	form := UploadForm{
		Title:        input.File.Filename,
		CollectionID: input.CollectionID,
		File:         input.File,
	}
	if form.CollectionID == 0 {
		form.CollectionID = defaultCollection(collections)
	}

	if errs := uc.Field.ValidateUpload(&form, collections); !errs.Empty() {
		metrics.VideoUploadsTotal.WithLabelValues("file", "invalid").Inc()
		return &UploadVideoOutput{ErrorMessage: errs.Joined()}, nil
	}

	key := filepath.ToSlash(filepath.Join(originalsPrefix,
		uuid.NewString()+strings.ToLower(filepath.Ext(form.File.Filename))))
	storedKey, err := uc.FileStorage.Save(ctx, form.File.Content, key)
	if err != nil {
		metrics.VideoUploadsTotal.WithLabelValues("file", "error").Inc()
		return nil, fmt.Errorf("failed to save video file: %w", err)
	}

	video := &domain.Video{
		Title:            form.Title,
		File:             storedKey,
		FileSize:         form.File.Size,
		CollectionID:     form.CollectionID,
		UploadedByUserID: input.User.ID,
		Status:           domain.VideoStatusPending,
	}
	if err := uc.VideoRepo.Save(ctx, video); err != nil {
		metrics.VideoUploadsTotal.WithLabelValues("file", "error").Inc()
		if delErr := uc.FileStorage.Delete(ctx, storedKey); delErr != nil {
			logging.Warn("Failed to remove orphaned upload %s: %v", storedKey, delErr)
		}
		return nil, fmt.Errorf("failed to record video: %w", err)
	}

	metrics.VideoUploadsTotal.WithLabelValues("file", "success").Inc()
	if form.File.Size > 0 {
		metrics.VideoUploadBytes.Add(float64(form.File.Size))
	}
	uc.afterCreate(ctx, video)
	return &UploadVideoOutput{Video: video, Collections: collections}, nil
}

// afterCreate indexes the new video and queues its post-process task. Neither
// failure undoes the upload; the video simply stays PENDING.
func (uc *UploadVideoUseCase) afterCreate(ctx context.Context, video *domain.Video) {
	uc.Indexer.Index(ctx, video)

	if uc.TaskQueue == nil {
		return
	}
	if err := uc.TaskQueue.EnqueuePostProcess(ctx, domain.NewVideoPostProcessTask(video.ID)); err != nil {
		logging.Error("Failed to queue post-process task for video %d: %v", video.ID, err)
		metrics.TasksEnqueuedTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.TasksEnqueuedTotal.WithLabelValues("success").Inc()
	logging.Info("Queued post-process task for video %d (%s)", video.ID, video.Title)
}

func (uc *UploadVideoUseCase) addCollections(ctx context.Context, user domain.User) ([]domain.Collection, error) {
	allowed, err := uc.Permissions.UserHasPermission(ctx, user, domain.PermissionAdd)
	if err != nil {
		return nil, fmt.Errorf("failed to check permissions: %w", err)
	}
	if !allowed {
		return nil, domain.ErrPermissionDenied
	}

	collections, err := uc.Permissions.CollectionsUserHasPermissionFor(ctx, user, domain.PermissionAdd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collections: %w", err)
	}
	if len(collections) == 0 {
		return nil, domain.ErrPermissionDenied
	}
	return collections, nil
}

// defaultCollection prefers the root collection and otherwise the first permitted one.
func defaultCollection(collections []domain.Collection) int {
	for _, c := range collections {
		if c.ID == domain.RootCollectionID {
			return c.ID
		}
	}
	if len(collections) > 0 {
		return collections[0].ID
	}
	return domain.RootCollectionID
}

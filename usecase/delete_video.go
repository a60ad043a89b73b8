package usecase

import (
	"context"
	"fmt"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/metrics"
)

type DeleteVideoUseCase struct {
	VideoRepo   domain.VideoRepository
	FileStorage domain.FileStorage
	Permissions domain.PermissionPolicy
	Indexer     *SearchIndexer
}

// Load fetches the video to delete, returning domain.ErrVideoNotFound when missing.
func (uc *DeleteVideoUseCase) Load(ctx context.Context, videoID int) (*domain.Video, error) {
	return uc.VideoRepo.FindByID(ctx, videoID)
}

func (uc *DeleteVideoUseCase) Execute(ctx context.Context, user domain.User, video *domain.Video) error {
	allowed, err := uc.Permissions.UserHasPermissionForInstance(ctx, user, domain.PermissionDelete, video)
	if err != nil {
		return fmt.Errorf("failed to check permissions: %w", err)
	}
	if !allowed {
		return domain.ErrPermissionDenied
	}

	if err := uc.VideoRepo.Delete(ctx, video.ID); err != nil {
		return fmt.Errorf("failed to delete video %d: %w", video.ID, err)
	}
	metrics.VideoDeletesTotal.Inc()

	uc.Indexer.Remove(ctx, video.ID)

	if uc.FileStorage != nil && video.File != "" {
		if err := uc.FileStorage.Delete(ctx, video.File); err != nil {
			logging.Warn("Video %d deleted but its file %s could not be removed: %v", video.ID, video.File, err)
		}
	}

	logging.Info("Video %d deleted by user %d", video.ID, user.ID)
	return nil
}

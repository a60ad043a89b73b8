package usecase

import (
	"context"
	"fmt"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/metrics"
)

type EditVideoOutput struct {
	Video       *domain.Video
	Form        EditForm
	Errors      FormErrors
	Collections []domain.Collection
}

func (o *EditVideoOutput) Success() bool {
	return o.Errors.Empty()
}

type EditVideoUseCase struct {
	VideoRepo   domain.VideoRepository
	Permissions domain.PermissionPolicy
	Indexer     *SearchIndexer
}

// Load fetches the video to edit, returning domain.ErrVideoNotFound when missing.
func (uc *EditVideoUseCase) Load(ctx context.Context, videoID int) (*domain.Video, error) {
	return uc.VideoRepo.FindByID(ctx, videoID)
}

// FormCollections lists the collections offered by the edit form: those the
// user may add to, plus the video's current collection.
func (uc *EditVideoUseCase) FormCollections(ctx context.Context, user domain.User, video *domain.Video) ([]domain.Collection, error) {
	collections, err := uc.Permissions.CollectionsUserHasPermissionFor(ctx, user, domain.PermissionAdd)
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		if c.ID == video.CollectionID {
			return collections, nil
		}
	}

	all, err := uc.VideoRepo.Collections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.ID == video.CollectionID {
			return append([]domain.Collection{c}, collections...), nil
		}
	}
	return collections, nil
}

// Execute applies the bound form to the video. Validation failures are reported
// through the output, not as an error.
func (uc *EditVideoUseCase) Execute(ctx context.Context, user domain.User, video *domain.Video, form EditForm) (*EditVideoOutput, error) {
	allowed, err := uc.Permissions.UserHasPermissionForInstance(ctx, user, domain.PermissionChange, video)
	if err != nil {
		return nil, fmt.Errorf("failed to check permissions: %w", err)
	}
	if !allowed {
		return nil, domain.ErrPermissionDenied
	}

	collections, err := uc.FormCollections(ctx, user, video)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collections: %w", err)
	}

	form.Prefix = EditFormPrefix(video.ID)
	out := &EditVideoOutput{Video: video, Form: form, Collections: collections}

	out.Errors = ValidateEdit(&form, collections, video.CollectionID)
	if !out.Errors.Empty() {
		metrics.VideoEditsTotal.WithLabelValues("invalid").Inc()
		return out, nil
	}

	updated := *video
	updated.Title = form.Title
	updated.CollectionID = form.CollectionID
	updated.Tags = form.Tags
	if err := uc.VideoRepo.Update(ctx, &updated); err != nil {
		metrics.VideoEditsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save video %d: %w", video.ID, err)
	}
	*video = updated

	// Reindex so that tag changes become searchable.
	uc.Indexer.Index(ctx, video)

	metrics.VideoEditsTotal.WithLabelValues("success").Inc()
	logging.Debug("Video %d edited by user %d", video.ID, user.ID)
	return out, nil
}

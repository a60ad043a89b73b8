package usecase

import (
	"context"
	"fmt"

	"github.com/vitovidale/video-manager-service/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ListVideosInput struct {
	Query        string
	CollectionID int
	Limit        int
	Offset       int
}

type ListVideosUseCase struct {
	VideoRepo domain.VideoRepository
	Indexer   *SearchIndexer
}

func (uc *ListVideosUseCase) Execute(ctx context.Context, input ListVideosInput) ([]domain.Video, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	if input.Query == "" {
		return uc.VideoRepo.List(ctx, domain.VideoFilter{
			CollectionID: input.CollectionID,
			Limit:        limit,
			Offset:       offset,
		})
	}

	ids, ok, err := uc.Indexer.Search(ctx, input.Query, input.CollectionID, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if !ok || offset >= len(ids) {
		return []domain.Video{}, nil
	}
	ids = ids[offset:]

	videos, err := uc.VideoRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load search results: %w", err)
	}
	return orderByIDs(videos, ids), nil
}

// orderByIDs returns videos in the order of ids, skipping ids that no longer exist.
func orderByIDs(videos []domain.Video, ids []int) []domain.Video {
	byID := make(map[int]domain.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	ordered := make([]domain.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered
}

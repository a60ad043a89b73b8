package usecase

import (
	"context"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/metrics"
)

// SearchIndexer fans index updates out to every registered search backend.
// Backend failures are logged and counted; the record itself is the source of truth.
type SearchIndexer struct {
	Backends []domain.SearchBackend
}

func NewSearchIndexer(backends ...domain.SearchBackend) *SearchIndexer {
	return &SearchIndexer{Backends: backends}
}

func (s *SearchIndexer) Index(ctx context.Context, video *domain.Video) {
	if s == nil {
		return
	}
	for _, b := range s.Backends {
		if err := b.Add(ctx, video); err != nil {
			logging.Error("Failed to index video %d in %s: %v", video.ID, b.Name(), err)
			metrics.SearchIndexOperations.WithLabelValues(b.Name(), "add", "error").Inc()
			continue
		}
		metrics.SearchIndexOperations.WithLabelValues(b.Name(), "add", "success").Inc()
	}
}

func (s *SearchIndexer) Remove(ctx context.Context, videoID int) {
	if s == nil {
		return
	}
	for _, b := range s.Backends {
		if err := b.Delete(ctx, videoID); err != nil {
			logging.Error("Failed to remove video %d from %s: %v", videoID, b.Name(), err)
			metrics.SearchIndexOperations.WithLabelValues(b.Name(), "delete", "error").Inc()
			continue
		}
		metrics.SearchIndexOperations.WithLabelValues(b.Name(), "delete", "success").Inc()
	}
}

// Search queries the first backend. It returns false when no backend is registered.
func (s *SearchIndexer) Search(ctx context.Context, query string, collectionID, limit int) ([]int, bool, error) {
	if s == nil || len(s.Backends) == 0 {
		return nil, false, nil
	}
	ids, err := s.Backends[0].Search(ctx, query, collectionID, limit)
	return ids, true, err
}

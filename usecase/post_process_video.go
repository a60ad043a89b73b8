package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/metrics"
)

// PostProcessReceiver is called with a freshly loaded video once it has been created.
type PostProcessReceiver func(ctx context.Context, video *domain.Video) error

type namedReceiver struct {
	name string
	fn   PostProcessReceiver
}

// PostProcessSignal dispatches a video to every connected receiver, in connection order.
type PostProcessSignal struct {
	mu        sync.RWMutex
	receivers []namedReceiver
}

func NewPostProcessSignal() *PostProcessSignal {
	return &PostProcessSignal{}
}

// Connect registers a receiver. Connecting the same name twice replaces the earlier receiver.
func (s *PostProcessSignal) Connect(name string, fn PostProcessReceiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.receivers {
		if r.name == name {
			s.receivers[i].fn = fn
			return
		}
	}
	s.receivers = append(s.receivers, namedReceiver{name: name, fn: fn})
}

func (s *PostProcessSignal) Disconnect(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.receivers {
		if r.name == name {
			s.receivers = append(s.receivers[:i], s.receivers[i+1:]...)
			return
		}
	}
}

// Send calls the receivers synchronously and stops at the first failure.
func (s *PostProcessSignal) Send(ctx context.Context, video *domain.Video) error {
	s.mu.RLock()
	receivers := append([]namedReceiver(nil), s.receivers...)
	s.mu.RUnlock()

	for _, r := range receivers {
		if err := r.fn(ctx, video); err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
	}
	return nil
}

type PostProcessVideoUseCase struct {
	VideoRepo domain.VideoRepository
	Signal    *PostProcessSignal
}

// Execute is the video_post_process_task body.
func (uc *PostProcessVideoUseCase) Execute(ctx context.Context, task domain.VideoPostProcessTask) error {
	start := time.Now()
	defer func() { metrics.TaskDuration.Observe(time.Since(start).Seconds()) }()

	video, err := uc.VideoRepo.FindByID(ctx, task.VideoID)
	if err != nil {
		metrics.TasksProcessedTotal.WithLabelValues("MISSING").Inc()
		return fmt.Errorf("failed to load video %d: %w", task.VideoID, err)
	}

	uc.setStatus(ctx, video.ID, domain.VideoStatusProcessing, "")

	if err := uc.Signal.Send(ctx, video); err != nil {
		logging.Error("Post-processing failed for video %d: %v", video.ID, err)
		uc.setStatus(ctx, video.ID, domain.VideoStatusFailed, err.Error())
		metrics.TasksProcessedTotal.WithLabelValues(string(domain.VideoStatusFailed)).Inc()
		return err
	}

	uc.setStatus(ctx, video.ID, domain.VideoStatusCompleted, "")
	metrics.TasksProcessedTotal.WithLabelValues(string(domain.VideoStatusCompleted)).Inc()
	return nil
}

func (uc *PostProcessVideoUseCase) setStatus(ctx context.Context, videoID int, status domain.VideoStatus, errorMessage string) {
	if err := uc.VideoRepo.UpdateStatus(ctx, videoID, status, errorMessage); err != nil {
		logging.Error("Failed to update video status for ID %d: %v", videoID, err)
		return
	}
	logging.Info("Video status ID %d updated to: %s", videoID, status)
}

// RecordFileSize returns a receiver that fills in the stored size of videos
// created from a pre-uploaded location.
func RecordFileSize(repo domain.VideoRepository, storage domain.FileStorage) PostProcessReceiver {
	return func(ctx context.Context, video *domain.Video) error {
		if video.FileSize > 0 {
			return nil
		}
		size, err := storage.Size(ctx, video.File)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", video.File, err)
		}
		if err := repo.UpdateFileSize(ctx, video.ID, size); err != nil {
			return err
		}
		video.FileSize = size
		return nil
	}
}

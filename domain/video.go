// domain/video.go
package domain

import (
	"strings"
	"time"
)

type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "PENDING"
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusCompleted  VideoStatus = "COMPLETED"
	VideoStatusFailed     VideoStatus = "FAILED"
)

// RootCollectionID is the collection every video falls back to when none is chosen.
const RootCollectionID = 1

type Video struct {
	ID               int         `json:"id"`
	Title            string      `json:"title"`
	File             string      `json:"file"`
	FileSize         int64       `json:"file_size"`
	CollectionID     int         `json:"collection_id"`
	UploadedByUserID int         `json:"uploaded_by_user_id"`
	Tags             []string    `json:"tags"`
	Status           VideoStatus `json:"status"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// LocationFilename returns the part of a storage location after the last slash.
func LocationFilename(location string) string {
	parts := strings.Split(location, "/")
	return parts[len(parts)-1]
}

type Collection struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID          int
	Username    string
	IsSuperuser bool
}

// VideoPostProcessTask is the payload queued after a video is created.
type VideoPostProcessTask struct {
	Task       string    `json:"task"`
	VideoID    int       `json:"video_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

const VideoPostProcessTaskName = "video_post_process_task"

// NewVideoPostProcessTask builds the task message for a video.
func NewVideoPostProcessTask(videoID int) VideoPostProcessTask {
	return VideoPostProcessTask{
		Task:       VideoPostProcessTaskName,
		VideoID:    videoID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// VideoFilter narrows repository listings.
type VideoFilter struct {
	CollectionID int
	Limit        int
	Offset       int
}

// Package domaintest provides in-memory implementations of the domain
// interfaces for use in tests.
package domaintest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vitovidale/video-manager-service/domain"
)

// VideoRepository is a map-backed domain.VideoRepository.
type VideoRepository struct {
	mu          sync.Mutex
	nextID      int
	videos      map[int]domain.Video
	collections []domain.Collection

	// SaveErr, when set, is returned by Save.
	SaveErr error
}

var _ domain.VideoRepository = (*VideoRepository)(nil)

func NewVideoRepository(collections ...domain.Collection) *VideoRepository {
	if len(collections) == 0 {
		collections = []domain.Collection{{ID: domain.RootCollectionID, Name: "Root"}}
	}
	return &VideoRepository{nextID: 1, videos: make(map[int]domain.Video), collections: collections}
}

func (r *VideoRepository) Save(_ context.Context, video *domain.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	for _, v := range r.videos {
		if v.File == video.File {
			return domain.ErrDuplicateFile
		}
	}
	now := time.Now().UTC()
	video.ID = r.nextID
	video.CreatedAt, video.UpdatedAt = now, now
	r.nextID++
	r.videos[video.ID] = copyVideo(*video)
	return nil
}

func (r *VideoRepository) Update(_ context.Context, video *domain.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[video.ID]; !ok {
		return domain.ErrVideoNotFound
	}
	video.UpdatedAt = time.Now().UTC()
	r.videos[video.ID] = copyVideo(*video)
	return nil
}

func (r *VideoRepository) UpdateStatus(_ context.Context, videoID int, status domain.VideoStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return domain.ErrVideoNotFound
	}
	v.Status, v.ErrorMessage = status, errorMessage
	r.videos[videoID] = v
	return nil
}

func (r *VideoRepository) UpdateFileSize(_ context.Context, videoID int, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return domain.ErrVideoNotFound
	}
	v.FileSize = size
	r.videos[videoID] = v
	return nil
}

func (r *VideoRepository) Delete(_ context.Context, videoID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[videoID]; !ok {
		return domain.ErrVideoNotFound
	}
	delete(r.videos, videoID)
	return nil
}

func (r *VideoRepository) FindByID(_ context.Context, videoID int) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}
	v = copyVideo(v)
	return &v, nil
}

func (r *VideoRepository) FindByIDs(_ context.Context, videoIDs []int) ([]domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Video
	for _, id := range videoIDs {
		if v, ok := r.videos[id]; ok {
			out = append(out, copyVideo(v))
		}
	}
	return out, nil
}

func (r *VideoRepository) ExistsByFile(_ context.Context, file string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.File == file {
			return true, nil
		}
	}
	return false, nil
}

func (r *VideoRepository) List(_ context.Context, filter domain.VideoFilter) ([]domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Video{}
	for _, v := range r.videos {
		if filter.CollectionID != 0 && v.CollectionID != filter.CollectionID {
			continue
		}
		out = append(out, copyVideo(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset >= len(out) {
		return []domain.Video{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *VideoRepository) Collections(_ context.Context) ([]domain.Collection, error) {
	return append([]domain.Collection(nil), r.collections...), nil
}

// Count returns the number of stored videos.
func (r *VideoRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.videos)
}

func copyVideo(v domain.Video) domain.Video {
	v.Tags = append([]string(nil), v.Tags...)
	return v
}

// PermissionPolicy grants actions per user and collection. Superusers may do anything.
type PermissionPolicy struct {
	Collections []domain.Collection
	// Grants maps user ID -> action -> collection IDs.
	Grants map[int]map[string][]int
}

var _ domain.PermissionPolicy = (*PermissionPolicy)(nil)

func NewPermissionPolicy(collections ...domain.Collection) *PermissionPolicy {
	if len(collections) == 0 {
		collections = []domain.Collection{{ID: domain.RootCollectionID, Name: "Root"}}
	}
	return &PermissionPolicy{Collections: collections, Grants: make(map[int]map[string][]int)}
}

// Grant allows user to perform action in the given collections.
func (p *PermissionPolicy) Grant(userID int, action string, collectionIDs ...int) {
	if p.Grants[userID] == nil {
		p.Grants[userID] = make(map[string][]int)
	}
	p.Grants[userID][action] = append(p.Grants[userID][action], collectionIDs...)
}

func (p *PermissionPolicy) UserHasPermission(ctx context.Context, user domain.User, action string) (bool, error) {
	cs, err := p.CollectionsUserHasPermissionFor(ctx, user, action)
	return len(cs) > 0, err
}

func (p *PermissionPolicy) UserHasPermissionForInstance(_ context.Context, user domain.User, action string, video *domain.Video) (bool, error) {
	if user.IsSuperuser {
		return true, nil
	}
	for _, id := range p.Grants[user.ID][action] {
		if id == video.CollectionID {
			return true, nil
		}
	}
	return false, nil
}

func (p *PermissionPolicy) CollectionsUserHasPermissionFor(_ context.Context, user domain.User, action string) ([]domain.Collection, error) {
	if user.IsSuperuser {
		return append([]domain.Collection(nil), p.Collections...), nil
	}
	var out []domain.Collection
	for _, c := range p.Collections {
		for _, id := range p.Grants[user.ID][action] {
			if id == c.ID {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// SearchBackend indexes titles and tags in memory.
type SearchBackend struct {
	mu      sync.Mutex
	entries map[int]domain.Video

	// AddErr, when set, is returned by Add.
	AddErr error
}

var _ domain.SearchBackend = (*SearchBackend)(nil)

func NewSearchBackend() *SearchBackend {
	return &SearchBackend{entries: make(map[int]domain.Video)}
}

func (s *SearchBackend) Name() string { return "memory" }

func (s *SearchBackend) Add(_ context.Context, video *domain.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AddErr != nil {
		return s.AddErr
	}
	s.entries[video.ID] = copyVideo(*video)
	return nil
}

func (s *SearchBackend) Delete(_ context.Context, videoID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, videoID)
	return nil
}

func (s *SearchBackend) Search(_ context.Context, query string, collectionID, limit int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var ids []int
	for id, v := range s.entries {
		if collectionID != 0 && v.CollectionID != collectionID {
			continue
		}
		text := strings.ToLower(v.Title + " " + strings.Join(v.Tags, " "))
		if strings.Contains(text, q) {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Indexed reports whether the video is in the index, along with the indexed copy.
func (s *SearchBackend) Indexed(videoID int) (domain.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[videoID]
	return v, ok
}

// TaskQueue records enqueued tasks and replays them to a consumer.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []domain.VideoPostProcessTask

	// EnqueueErr, when set, is returned by EnqueuePostProcess.
	EnqueueErr error
}

var _ domain.TaskQueue = (*TaskQueue)(nil)

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

func (q *TaskQueue) EnqueuePostProcess(_ context.Context, task domain.VideoPostProcessTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// ConsumePostProcess hands every queued task to handler and returns.
func (q *TaskQueue) ConsumePostProcess(ctx context.Context, handler func(context.Context, domain.VideoPostProcessTask) error) error {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = handler(ctx, t)
	}
	return nil
}

func (q *TaskQueue) Close() error { return nil }

// Tasks returns the tasks currently queued.
func (q *TaskQueue) Tasks() []domain.VideoPostProcessTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.VideoPostProcessTask(nil), q.tasks...)
}

// ErrNotStored is returned by FileStorage for unknown keys.
var ErrNotStored = errors.New("file not stored")

// FileStorage keeps file contents in memory.
type FileStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ domain.FileStorage = (*FileStorage)(nil)

func NewFileStorage() *FileStorage {
	return &FileStorage{files: make(map[string][]byte)}
}

func (s *FileStorage) Save(_ context.Context, src io.Reader, key string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = buf.Bytes()
	return key, nil
}

func (s *FileStorage) Size(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return 0, ErrNotStored
	}
	return int64(len(data)), nil
}

func (s *FileStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[key]; !ok {
		return ErrNotStored
	}
	delete(s.files, key)
	return nil
}

// Put stores data under key, as if it had been uploaded out of band.
func (s *FileStorage) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
}

// Get returns the stored bytes for key.
func (s *FileStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	return data, ok
}

// Len returns the number of stored files.
func (s *FileStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

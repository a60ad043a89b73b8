package usecase

import (
	"bytes"
	"strings"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/domain/domaintest"
)

var (
	superuser = domain.User{ID: 1, Username: "admin", IsSuperuser: true}
	editor    = domain.User{ID: 2, Username: "editor"}
	outsider  = domain.User{ID: 3, Username: "outsider"}
)

var testCollections = []domain.Collection{
	{ID: domain.RootCollectionID, Name: "Root"},
	{ID: 2, Name: "Marketing"},
}

// mp4Bytes returns a buffer that content sniffing recognises as video/mp4.
func mp4Bytes(size int) []byte {
	header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
	if size < len(header) {
		size = len(header)
	}
	return append(header, bytes.Repeat([]byte{0x00}, size-len(header))...)
}

func mp4Upload(name string, size int) *UploadedFile {
	data := mp4Bytes(size)
	return &UploadedFile{Filename: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func textUpload(name string) *UploadedFile {
	data := "hello world, definitely not a video"
	return &UploadedFile{Filename: name, Size: int64(len(data)), Content: strings.NewReader(data)}
}

type fixture struct {
	repo    *domaintest.VideoRepository
	perms   *domaintest.PermissionPolicy
	search  *domaintest.SearchBackend
	queue   *domaintest.TaskQueue
	storage *domaintest.FileStorage
	indexer *SearchIndexer
}

func newFixture() *fixture {
	f := &fixture{
		repo:    domaintest.NewVideoRepository(testCollections...),
		perms:   domaintest.NewPermissionPolicy(testCollections...),
		search:  domaintest.NewSearchBackend(),
		queue:   domaintest.NewTaskQueue(),
		storage: domaintest.NewFileStorage(),
	}
	f.indexer = NewSearchIndexer(f.search)
	f.perms.Grant(editor.ID, domain.PermissionAdd, domain.RootCollectionID)
	f.perms.Grant(editor.ID, domain.PermissionChange, domain.RootCollectionID)
	f.perms.Grant(editor.ID, domain.PermissionDelete, domain.RootCollectionID)
	return f
}

func (f *fixture) upload(field FieldConfig) *UploadVideoUseCase {
	return &UploadVideoUseCase{
		VideoRepo:   f.repo,
		FileStorage: f.storage,
		Permissions: f.perms,
		TaskQueue:   f.queue,
		Indexer:     f.indexer,
		Field:       field,
	}
}

var defaultField = FieldConfig{AllowedExtensions: []string{"mp4", "webm", "mov"}}

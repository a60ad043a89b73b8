package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/vitovidale/video-manager-service/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func TestDialectRebind(t *testing.T) {
	query := `SELECT * FROM videos WHERE id = ? AND file = ?`
	if got := DialectSQLite.rebind(query); got != query {
		t.Errorf("SQLite should keep ? placeholders, got %q", got)
	}
	want := `SELECT * FROM videos WHERE id = $1 AND file = $2`
	if got := DialectPostgres.rebind(query); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDriversRegistered(t *testing.T) {
	registered := make(map[string]bool)
	for _, name := range sql.Drivers() {
		registered[name] = true
	}
	for _, name := range []string{"postgres", "sqlite3"} {
		if !registered[name] {
			t.Errorf("Expected database/sql driver %q to be registered", name)
		}
	}
}

func TestRepositoryConstructorsPickDialect(t *testing.T) {
	if got := NewPostgresVideoRepository(nil).Dialect; got != DialectPostgres {
		t.Errorf("Expected postgres dialect, got %s", got)
	}
	if got := NewSQLiteVideoRepository(nil).Dialect; got != DialectSQLite {
		t.Errorf("Expected sqlite3 dialect, got %s", got)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := Migrate(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("Second migration failed: %v", err)
	}
	repo := NewSQLiteVideoRepository(db)
	collections, err := repo.Collections(context.Background())
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(collections) != 1 || collections[0].ID != domain.RootCollectionID {
		t.Errorf("Expected only the root collection, got %+v", collections)
	}
}

func TestSQLVideoRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteVideoRepository(setupTestDB(t))

	video := &domain.Video{
		Title:            "Keynote",
		File:             "original_videos/keynote.mp4",
		FileSize:         1024,
		CollectionID:     domain.RootCollectionID,
		UploadedByUserID: 7,
		Tags:             []string{"conference", "2024"},
	}
	if err := repo.Save(ctx, video); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if video.ID == 0 {
		t.Fatal("Expected Save to assign an ID")
	}
	if video.Status != domain.VideoStatusPending {
		t.Errorf("Expected default status PENDING, got %s", video.Status)
	}

	loaded, err := repo.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.Title != "Keynote" || loaded.UploadedByUserID != 7 || len(loaded.Tags) != 2 || loaded.Tags[1] != "2024" {
		t.Errorf("Loaded video does not match: %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	loaded.Title = "Keynote (edited)"
	loaded.Tags = nil
	if err := repo.Update(ctx, loaded); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, video.ID, domain.VideoStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := repo.UpdateFileSize(ctx, video.ID, 4096); err != nil {
		t.Fatalf("UpdateFileSize failed: %v", err)
	}

	loaded, err = repo.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.Title != "Keynote (edited)" || loaded.Tags != nil {
		t.Errorf("Update not persisted: %+v", loaded)
	}
	if loaded.Status != domain.VideoStatusFailed || loaded.ErrorMessage != "boom" || loaded.FileSize != 4096 {
		t.Errorf("Status or size not persisted: %+v", loaded)
	}

	if err := repo.Delete(ctx, video.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, video.ID); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("Expected ErrVideoNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, video.ID); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("Expected ErrVideoNotFound deleting twice, got %v", err)
	}
}

func TestSQLVideoRepositoryDuplicateFile(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteVideoRepository(setupTestDB(t))

	first := &domain.Video{Title: "a", File: "uploads/a.mp4", CollectionID: 1}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, err := repo.ExistsByFile(ctx, "uploads/a.mp4")
	if err != nil || !exists {
		t.Errorf("Expected file to exist, got %v, %v", exists, err)
	}
	exists, err = repo.ExistsByFile(ctx, "uploads/b.mp4")
	if err != nil || exists {
		t.Errorf("Expected file not to exist, got %v, %v", exists, err)
	}

	err = repo.Save(ctx, &domain.Video{Title: "again", File: "uploads/a.mp4", CollectionID: 1})
	if !errors.Is(err, domain.ErrDuplicateFile) {
		t.Errorf("Expected ErrDuplicateFile, got %v", err)
	}
}

func TestSQLVideoRepositoryListAndFind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewSQLiteVideoRepository(db)

	archive, err := CreateCollection(ctx, db, DialectSQLite, "Archive")
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	files := []struct {
		file       string
		collection int
	}{
		{"a.mp4", 1}, {"b.mp4", archive}, {"c.mp4", 1}, {"d.mp4", 1},
	}
	for _, f := range files {
		if err := repo.Save(ctx, &domain.Video{Title: f.file, File: f.file, CollectionID: f.collection}); err != nil {
			t.Fatalf("Save %s failed: %v", f.file, err)
		}
	}

	tests := []struct {
		name   string
		filter domain.VideoFilter
		want   []string
	}{
		{"all", domain.VideoFilter{}, []string{"d.mp4", "c.mp4", "b.mp4", "a.mp4"}},
		{"by collection", domain.VideoFilter{CollectionID: archive}, []string{"b.mp4"}},
		{"paged", domain.VideoFilter{Limit: 2, Offset: 1}, []string{"c.mp4", "b.mp4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(videos) != len(tt.want) {
				t.Fatalf("Expected %d videos, got %d", len(tt.want), len(videos))
			}
			for i, v := range videos {
				if v.File != tt.want[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.want[i], v.File)
				}
			}
		})
	}

	found, err := repo.FindByIDs(ctx, []int{1, 3, 99})
	if err != nil {
		t.Fatalf("FindByIDs failed: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("Expected 2 videos, got %d", len(found))
	}
	if found, _ := repo.FindByIDs(ctx, nil); len(found) != 0 {
		t.Errorf("Expected no videos for empty ID list, got %d", len(found))
	}

	collections, err := repo.Collections(ctx)
	if err != nil || len(collections) != 2 || collections[1].Name != "Archive" {
		t.Errorf("Unexpected collections %+v, %v", collections, err)
	}
}

func TestSQLVideoRepositoryMissingRows(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteVideoRepository(setupTestDB(t))

	if err := repo.Update(ctx, &domain.Video{ID: 42, Title: "x", CollectionID: 1}); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("Update: expected ErrVideoNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, 42, domain.VideoStatusProcessing, ""); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("UpdateStatus: expected ErrVideoNotFound, got %v", err)
	}
	if err := repo.UpdateFileSize(ctx, 42, 1); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("UpdateFileSize: expected ErrVideoNotFound, got %v", err)
	}
}

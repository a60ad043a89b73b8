package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSFileStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage := NewFSFileStorage(dir)

	key, err := storage.Save(ctx, strings.NewReader("video bytes"), "original_videos/a.mp4")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if key != "original_videos/a.mp4" {
		t.Errorf("Expected key to be returned unchanged, got %q", key)
	}

	data, err := os.ReadFile(filepath.Join(dir, "original_videos", "a.mp4"))
	if err != nil || string(data) != "video bytes" {
		t.Fatalf("File not written: %q, %v", data, err)
	}

	size, err := storage.Size(ctx, key)
	if err != nil || size != int64(len("video bytes")) {
		t.Errorf("Expected size %d, got %d (%v)", len("video bytes"), size, err)
	}

	if err := storage.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "original_videos", "a.mp4")); !os.IsNotExist(err) {
		t.Errorf("Expected file to be removed, got %v", err)
	}
	if err := storage.Delete(ctx, key); err != nil {
		t.Errorf("Deleting a missing file should succeed, got %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "original_videos"))
	if len(entries) != 0 {
		t.Errorf("Expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestFSFileStorageKeepsKeysInsideBaseDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage := NewFSFileStorage(filepath.Join(dir, "uploads"))

	if _, err := storage.Save(ctx, strings.NewReader("x"), "../../escape.mp4"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "escape.mp4")); err != nil {
		t.Errorf("Expected traversal to be confined to the base directory: %v", err)
	}
	if _, err := storage.Size(ctx, ""); err == nil {
		t.Error("Expected an error for an empty key")
	}
}

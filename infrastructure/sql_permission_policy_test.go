package infrastructure

import (
	"context"
	"testing"

	"github.com/vitovidale/video-manager-service/domain"
)

func TestSQLPermissionPolicy(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	policy := NewSQLPermissionPolicy(db, DialectSQLite)

	archive, err := CreateCollection(ctx, db, DialectSQLite, "Archive")
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	editor := domain.User{ID: 2, Username: "editor"}
	admin := domain.User{ID: 1, Username: "admin", IsSuperuser: true}
	outsider := domain.User{ID: 3, Username: "outsider"}

	for _, g := range []struct {
		collection int
		action     string
	}{
		{domain.RootCollectionID, domain.PermissionAdd},
		{domain.RootCollectionID, domain.PermissionAdd},
		{archive, domain.PermissionChange},
	} {
		if err := policy.Grant(ctx, editor.ID, g.collection, g.action); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
	}

	collections, err := policy.CollectionsUserHasPermissionFor(ctx, editor, domain.PermissionAdd)
	if err != nil {
		t.Fatalf("CollectionsUserHasPermissionFor failed: %v", err)
	}
	if len(collections) != 1 || collections[0].ID != domain.RootCollectionID {
		t.Errorf("Expected only root, got %+v", collections)
	}

	collections, _ = policy.CollectionsUserHasPermissionFor(ctx, admin, domain.PermissionDelete)
	if len(collections) != 2 {
		t.Errorf("Expected superuser to see every collection, got %+v", collections)
	}

	if ok, _ := policy.UserHasPermission(ctx, editor, domain.PermissionAdd); !ok {
		t.Error("Editor should have add")
	}
	if ok, _ := policy.UserHasPermission(ctx, outsider, domain.PermissionAdd); ok {
		t.Error("Outsider should not have add")
	}

	own := &domain.Video{ID: 1, CollectionID: domain.RootCollectionID, UploadedByUserID: editor.ID}
	other := &domain.Video{ID: 2, CollectionID: domain.RootCollectionID, UploadedByUserID: 99}
	archived := &domain.Video{ID: 3, CollectionID: archive, UploadedByUserID: 99}

	tests := []struct {
		name   string
		user   domain.User
		action string
		video  *domain.Video
		want   bool
	}{
		{"owner may change own upload", editor, domain.PermissionChange, own, true},
		{"owner may delete own upload", editor, domain.PermissionDelete, own, true},
		{"cannot change others' upload", editor, domain.PermissionChange, other, false},
		{"explicit change grant", editor, domain.PermissionChange, archived, true},
		{"no delete grant", editor, domain.PermissionDelete, archived, false},
		{"superuser", admin, domain.PermissionDelete, archived, true},
		{"outsider", outsider, domain.PermissionChange, own, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.UserHasPermissionForInstance(ctx, tt.user, tt.action, tt.video)
			if err != nil {
				t.Fatalf("UserHasPermissionForInstance failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

package infrastructure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vitovidale/video-manager-service/domain"
)

// SQLPermissionPolicy grants actions per collection from the collection_permissions
// table. Superusers may do anything. Users who may add to a collection may also
// change and delete the videos they uploaded there.
type SQLPermissionPolicy struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ domain.PermissionPolicy = (*SQLPermissionPolicy)(nil)

func NewSQLPermissionPolicy(db *sql.DB, dialect Dialect) *SQLPermissionPolicy {
	return &SQLPermissionPolicy{DB: db, Dialect: dialect}
}

// Grant gives a user an action on a collection. Granting twice is a no-op.
func (p *SQLPermissionPolicy) Grant(ctx context.Context, userID, collectionID int, action string) error {
	query := p.Dialect.rebind(`INSERT INTO collection_permissions (user_id, collection_id, permission) VALUES (?, ?, ?)
		ON CONFLICT (user_id, collection_id, permission) DO NOTHING`)
	if _, err := p.DB.ExecContext(ctx, query, userID, collectionID, action); err != nil {
		return fmt.Errorf("failed to grant %s on collection %d: %w", action, collectionID, err)
	}
	return nil
}

func (p *SQLPermissionPolicy) UserHasPermission(ctx context.Context, user domain.User, action string) (bool, error) {
	if user.IsSuperuser {
		return true, nil
	}
	var n int
	query := p.Dialect.rebind(`SELECT COUNT(*) FROM collection_permissions WHERE user_id = ? AND permission = ?`)
	if err := p.DB.QueryRowContext(ctx, query, user.ID, action).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return n > 0, nil
}

func (p *SQLPermissionPolicy) UserHasPermissionForInstance(ctx context.Context, user domain.User, action string, video *domain.Video) (bool, error) {
	if user.IsSuperuser {
		return true, nil
	}
	ok, err := p.hasCollectionPermission(ctx, user.ID, video.CollectionID, action)
	if err != nil || ok {
		return ok, err
	}
	if action == domain.PermissionAdd || video.UploadedByUserID != user.ID {
		return false, nil
	}
	return p.hasCollectionPermission(ctx, user.ID, video.CollectionID, domain.PermissionAdd)
}

func (p *SQLPermissionPolicy) CollectionsUserHasPermissionFor(ctx context.Context, user domain.User, action string) ([]domain.Collection, error) {
	if user.IsSuperuser {
		return queryCollections(ctx, p.DB, `SELECT id, name FROM collections ORDER BY id`)
	}
	query := p.Dialect.rebind(`SELECT c.id, c.name FROM collections c
		JOIN collection_permissions cp ON cp.collection_id = c.id
		WHERE cp.user_id = ? AND cp.permission = ? ORDER BY c.id`)
	return queryCollections(ctx, p.DB, query, user.ID, action)
}

func (p *SQLPermissionPolicy) hasCollectionPermission(ctx context.Context, userID, collectionID int, action string) (bool, error) {
	var n int
	query := p.Dialect.rebind(`SELECT COUNT(*) FROM collection_permissions WHERE user_id = ? AND collection_id = ? AND permission = ?`)
	if err := p.DB.QueryRowContext(ctx, query, userID, collectionID, action).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check collection permission: %w", err)
	}
	return n > 0, nil
}

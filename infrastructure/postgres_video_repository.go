// infrastructure/postgres_video_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vitovidale/video-manager-service/logging"
)

const (
	connectAttempts = 5
	connectBackoff  = 5 * time.Second
)

// OpenPostgres connects to Postgres, retrying while the database container starts.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				logging.Info("PostgreSQL connection established")
				return db, nil
			}
			db.Close()
		}
		lastErr = err
		logging.Warn("Retrying database connection in %s... (%d/%d)", connectBackoff, i+1, connectAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, lastErr)
}

func NewPostgresVideoRepository(db *sql.DB) *SQLVideoRepository {
	return NewSQLVideoRepository(db, DialectPostgres)
}

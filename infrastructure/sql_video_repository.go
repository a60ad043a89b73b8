// infrastructure/sql_video_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Both imports also register the "postgres" and "sqlite3" database/sql drivers.
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/vitovidale/video-manager-service/domain"
)

// Dialect selects placeholder style and DDL for a SQL backend.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

const videoColumns = `id, title, file, file_size, collection_id, uploaded_by_user_id, tags, status, error_message, created_at, updated_at`

type SQLVideoRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ domain.VideoRepository = (*SQLVideoRepository)(nil)

func NewSQLVideoRepository(db *sql.DB, dialect Dialect) *SQLVideoRepository {
	return &SQLVideoRepository{DB: db, Dialect: dialect}
}

func (r *SQLVideoRepository) Save(ctx context.Context, video *domain.Video) error {
	now := time.Now().UTC()
	if video.Status == "" {
		video.Status = domain.VideoStatusPending
	}
	query := r.Dialect.rebind(`INSERT INTO videos (title, file, file_size, collection_id, uploaded_by_user_id, tags, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.DB.QueryRowContext(ctx, query,
		video.Title, video.File, video.FileSize, video.CollectionID, video.UploadedByUserID,
		joinTags(video.Tags), video.Status, video.ErrorMessage, now, now,
	).Scan(&video.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateFile
		}
		return fmt.Errorf("failed to insert video: %w", err)
	}
	video.CreatedAt, video.UpdatedAt = now, now
	return nil
}

func (r *SQLVideoRepository) Update(ctx context.Context, video *domain.Video) error {
	now := time.Now().UTC()
	query := r.Dialect.rebind(`UPDATE videos SET title = ?, collection_id = ?, tags = ?, updated_at = ? WHERE id = ?`)
	res, err := r.DB.ExecContext(ctx, query, video.Title, video.CollectionID, joinTags(video.Tags), now, video.ID)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	video.UpdatedAt = now
	return nil
}

func (r *SQLVideoRepository) UpdateStatus(ctx context.Context, videoID int, status domain.VideoStatus, errorMessage string) error {
	query := r.Dialect.rebind(`UPDATE videos SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`)
	res, err := r.DB.ExecContext(ctx, query, status, errorMessage, time.Now().UTC(), videoID)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	return expectRow(res)
}

func (r *SQLVideoRepository) UpdateFileSize(ctx context.Context, videoID int, size int64) error {
	query := r.Dialect.rebind(`UPDATE videos SET file_size = ?, updated_at = ? WHERE id = ?`)
	res, err := r.DB.ExecContext(ctx, query, size, time.Now().UTC(), videoID)
	if err != nil {
		return fmt.Errorf("failed to update file size: %w", err)
	}
	return expectRow(res)
}

func (r *SQLVideoRepository) Delete(ctx context.Context, videoID int) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.rebind(`DELETE FROM videos WHERE id = ?`), videoID)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return expectRow(res)
}

func (r *SQLVideoRepository) FindByID(ctx context.Context, videoID int) (*domain.Video, error) {
	query := r.Dialect.rebind(`SELECT ` + videoColumns + ` FROM videos WHERE id = ?`)
	v, err := scanVideo(r.DB.QueryRowContext(ctx, query, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load video %d: %w", videoID, err)
	}
	return v, nil
}

func (r *SQLVideoRepository) FindByIDs(ctx context.Context, videoIDs []int) ([]domain.Video, error) {
	if len(videoIDs) == 0 {
		return []domain.Video{}, nil
	}
	args := make([]interface{}, len(videoIDs))
	for i, id := range videoIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(videoIDs)), ", ")
	query := r.Dialect.rebind(`SELECT ` + videoColumns + ` FROM videos WHERE id IN (` + placeholders + `)`)
	return r.queryVideos(ctx, query, args...)
}

func (r *SQLVideoRepository) ExistsByFile(ctx context.Context, file string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, r.Dialect.rebind(`SELECT COUNT(*) FROM videos WHERE file = ?`), file).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check video file: %w", err)
	}
	return n > 0, nil
}

func (r *SQLVideoRepository) List(ctx context.Context, filter domain.VideoFilter) ([]domain.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	var args []interface{}
	if filter.CollectionID != 0 {
		query += ` WHERE collection_id = ?`
		args = append(args, filter.CollectionID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}
	return r.queryVideos(ctx, r.Dialect.rebind(query), args...)
}

func (r *SQLVideoRepository) Collections(ctx context.Context) ([]domain.Collection, error) {
	return queryCollections(ctx, r.DB, `SELECT id, name FROM collections ORDER BY id`)
}

func (r *SQLVideoRepository) queryVideos(ctx context.Context, query string, args ...interface{}) ([]domain.Video, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	videos := []domain.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning video row: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over videos: %w", err)
	}
	return videos, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var v domain.Video
	var uploadedBy sql.NullInt64
	var tags, status string
	err := row.Scan(&v.ID, &v.Title, &v.File, &v.FileSize, &v.CollectionID, &uploadedBy,
		&tags, &status, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.UploadedByUserID = int(uploadedBy.Int64)
	v.Tags = splitTags(tags)
	v.Status = domain.VideoStatus(status)
	return &v, nil
}

func queryCollections(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]domain.Collection, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("error scanning collection row: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrVideoNotFound
	}
	return nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vitovidale/video-manager-service/domain"
)

// SQLSearchBackend keeps a lowercased title+tags document per video in the
// video_search_index table and matches every query term with LIKE. Hits are
// returned newest first, the same order as repository listings.
type SQLSearchBackend struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ domain.SearchBackend = (*SQLSearchBackend)(nil)

func NewSQLSearchBackend(db *sql.DB, dialect Dialect) *SQLSearchBackend {
	return &SQLSearchBackend{DB: db, Dialect: dialect}
}

func (s *SQLSearchBackend) Name() string { return "database" }

func (s *SQLSearchBackend) Add(ctx context.Context, video *domain.Video) error {
	query := s.Dialect.rebind(`INSERT INTO video_search_index (video_id, collection_id, body) VALUES (?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET collection_id = excluded.collection_id, body = excluded.body`)
	if _, err := s.DB.ExecContext(ctx, query, video.ID, video.CollectionID, searchDocument(video)); err != nil {
		return fmt.Errorf("failed to index video %d: %w", video.ID, err)
	}
	return nil
}

func (s *SQLSearchBackend) Delete(ctx context.Context, videoID int) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.rebind(`DELETE FROM video_search_index WHERE video_id = ?`), videoID); err != nil {
		return fmt.Errorf("failed to remove video %d from index: %w", videoID, err)
	}
	return nil
}

func (s *SQLSearchBackend) Search(ctx context.Context, query string, collectionID, limit int) ([]int, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []int{}, nil
	}

	var where []string
	var args []interface{}
	for _, t := range terms {
		where = append(where, `body LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(t)+"%")
	}
	if collectionID != 0 {
		where = append(where, `collection_id = ?`)
		args = append(args, collectionID)
	}
	sqlQuery := `SELECT video_id FROM video_search_index WHERE ` + strings.Join(where, " AND ") + ` ORDER BY video_id DESC`
	if limit > 0 {
		sqlQuery += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, s.Dialect.rebind(sqlQuery), args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning search row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func searchDocument(video *domain.Video) string {
	return strings.ToLower(strings.Join(append([]string{video.Title}, video.Tags...), " "))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

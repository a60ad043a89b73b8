package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS collections (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS videos (
	id SERIAL PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	file TEXT NOT NULL UNIQUE,
	file_size BIGINT NOT NULL DEFAULT 0,
	collection_id INTEGER NOT NULL REFERENCES collections(id),
	uploaded_by_user_id INTEGER,
	tags TEXT NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS collection_permissions (
	user_id INTEGER NOT NULL,
	collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	permission VARCHAR(20) NOT NULL,
	PRIMARY KEY (user_id, collection_id, permission)
);
CREATE TABLE IF NOT EXISTS video_search_index (
	video_id INTEGER PRIMARY KEY,
	collection_id INTEGER NOT NULL,
	body TEXT NOT NULL
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS videos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	file TEXT NOT NULL UNIQUE,
	file_size INTEGER NOT NULL DEFAULT 0,
	collection_id INTEGER NOT NULL REFERENCES collections(id),
	uploaded_by_user_id INTEGER,
	tags TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS collection_permissions (
	user_id INTEGER NOT NULL,
	collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	permission TEXT NOT NULL,
	PRIMARY KEY (user_id, collection_id, permission)
);
CREATE TABLE IF NOT EXISTS video_search_index (
	video_id INTEGER PRIMARY KEY,
	collection_id INTEGER NOT NULL,
	body TEXT NOT NULL
);
`

// Migrate creates the tables if needed and makes sure the root collection exists.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	schema := sqliteSchema
	if dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO collections (id, name) VALUES (1, 'Root') ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("failed to create root collection: %w", err)
	}
	if dialect == DialectPostgres {
		// The explicit root insert does not advance the serial sequence.
		_, err := db.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('collections', 'id'), (SELECT MAX(id) FROM collections))`)
		if err != nil {
			return fmt.Errorf("failed to sync collection sequence: %w", err)
		}
	}
	return nil
}

// CreateCollection adds a collection and returns its ID.
func CreateCollection(ctx context.Context, db *sql.DB, dialect Dialect, name string) (int, error) {
	var id int
	err := db.QueryRowContext(ctx, dialect.rebind(`INSERT INTO collections (name) VALUES (?) RETURNING id`), name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return id, nil
}

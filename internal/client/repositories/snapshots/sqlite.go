package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/parlaysocial/feedcore/internal/client/store"
)

// SQLiteRepository stores snapshots in the local database. SavedAt is kept
// as a unix-millisecond integer; SQLite has no native time type.
type SQLiteRepository struct {
	db  store.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db store.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Save(ctx context.Context, namespace string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (namespace, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, namespace, payload, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot[%s]: %w", namespace, err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, namespace string) (*Snapshot, error) {
	var payload []byte
	var savedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, saved_at FROM snapshots WHERE namespace = ?`, namespace,
	).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot[%s]: %w", namespace, err)
	}
	return &Snapshot{Payload: payload, SavedAt: time.UnixMilli(savedAt)}, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`)
	if err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

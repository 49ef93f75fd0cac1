// Package history persists delivery outcomes to SQLite. It is an audit log
// only; the pending candidate set is deliberately not persisted and does not
// survive restarts.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested record doesn't exist.
var ErrNotFound = errors.New("not found")

// Delivery kinds.
const (
	KindMediaAdded = "media_added"
	KindTest       = "test"
)

// Record is one delivery attempt.
type Record struct {
	ID         string
	Subscriber string
	ItemID     string
	Title      string
	Kind       string
	Delivered  bool
	Error      string
	CreatedAt  time.Time
}

// Store reads and writes delivery records.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts a delivery record. Sets ID and CreatedAt on the struct.
func (s *Store) Add(r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now()

	_, err := s.db.Exec(`
		INSERT INTO delivery_history (id, subscriber, item_id, title, kind, delivered, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Subscriber, r.ItemID, r.Title, r.Kind, r.Delivered, r.Error, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

// Filter narrows List results. Zero values mean no constraint.
type Filter struct {
	Subscriber string
	Kind       string
	Limit      int
}

// List returns delivery records, newest first.
func (s *Store) List(f Filter) ([]*Record, error) {
	query := `
		SELECT id, subscriber, item_id, title, kind, delivered, error, created_at
		FROM delivery_history`

	var conds []string
	var args []any
	if f.Subscriber != "" {
		conds = append(conds, "subscriber = ?")
		args = append(args, f.Subscriber)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, f.Kind)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query delivery history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r := &Record{}
		if err := rows.Scan(&r.ID, &r.Subscriber, &r.ItemID, &r.Title, &r.Kind, &r.Delivered, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune removes records older than the given duration.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`DELETE FROM delivery_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune delivery history: %w", err)
	}
	return result.RowsAffected()
}

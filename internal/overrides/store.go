// Package overrides persists per-device interaction state for seed entities:
// liked/collected id arrays, follow flags, and ad-hoc comment lists. It plays
// the role of the on-device key-value storage the mobile client uses, backed
// by a single-file sqlite database separate from the remote store.
package overrides

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schemaStatement = `CREATE TABLE IF NOT EXISTS override_entries (
	entry_key TEXT PRIMARY KEY,
	entry_value TEXT NOT NULL
);`

var errMissingPath = errors.New("overrides: database path is required")

// Comment is a locally recorded comment on a seed entity, newest first in
// storage order.
type Comment struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a namespaced key-value store. Reads degrade to empty values and
// never fail the caller; writes report errors so optimistic state can be
// reverted. Mutating operations are serialized so read-modify-write toggles
// cannot lose updates.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open creates or opens the override database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errMissingPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("overrides: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaStatement); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("overrides: create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetArray returns the string array stored at key. An absent key, a read
// failure, or a malformed value all yield an empty slice.
func (s *Store) GetArray(ctx context.Context, key string) []string {
	raw, ok := s.read(ctx, key)
	if !ok {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		s.logger.Warn("override value is not a string array",
			zap.String("key", key), zap.Error(err))
		return []string{}
	}
	return values
}

// SetArray overwrites the array stored at key.
func (s *Store) SetArray(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("overrides: encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, key, string(encoded))
}

// GetFlag returns the boolean flag stored at key, false when absent or
// unreadable.
func (s *Store) GetFlag(ctx context.Context, key string) bool {
	raw, ok := s.read(ctx, key)
	if !ok {
		return false
	}
	return raw == "true"
}

// SetFlag overwrites the boolean flag stored at key.
func (s *Store) SetFlag(ctx context.Context, key string, value bool) error {
	encoded := "false"
	if value {
		encoded = "true"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, key, encoded)
}

// ToggleMember flips membership of member in the array at key as one
// serialized operation and reports whether the member is present afterwards.
func (s *Store) ToggleMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.GetArray(ctx, key)
	next := make([]string, 0, len(current)+1)
	present := false
	for _, existing := range current {
		if existing == member {
			present = true
			continue
		}
		next = append(next, existing)
	}
	if !present {
		next = append(next, member)
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return present, fmt.Errorf("overrides: encode %s: %w", key, err)
	}
	if err := s.write(ctx, key, string(encoded)); err != nil {
		return present, err
	}
	return !present, nil
}

// Comments returns the locally recorded comments for a seed entity, newest
// first. Malformed entries yield an empty list.
func (s *Store) Comments(ctx context.Context, entityID string) []Comment {
	raw, ok := s.read(ctx, CommentsKey(entityID))
	if !ok {
		return []Comment{}
	}
	var comments []Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		s.logger.Warn("override comment list is malformed",
			zap.String("entity_id", entityID), zap.Error(err))
		return []Comment{}
	}
	return comments
}

// AddComment prepends a comment to the entity's local comment list.
func (s *Store) AddComment(ctx context.Context, comment Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.Comments(ctx, comment.EntityID)
	updated := append([]Comment{comment}, existing...)
	encoded, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("overrides: encode comments for %s: %w", comment.EntityID, err)
	}
	return s.write(ctx, CommentsKey(comment.EntityID), string(encoded))
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT entry_value FROM override_entries WHERE entry_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("override read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

func (s *Store) write(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO override_entries (entry_key, entry_value) VALUES (?, ?)
		 ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value`,
		key, value)
	if err != nil {
		return fmt.Errorf("overrides: write %s: %w", key, err)
	}
	return nil
}

// Package seed holds the bundled static dataset the app falls back to when
// the remote store has no content, and the sole source of "mock" interaction
// targets. Entities here carry non-canonical identifiers on purpose.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

//go:embed dataset.json
var bundledDataset []byte

var errEmptyDataset = errors.New("seed: dataset contains no entities")

// User is a seed profile.
type User struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url"`
	Bio            string `json:"bio"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

// Note is a seed note with static interaction counters.
type Note struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ImageURL      string    `json:"image_url"`
	LikesCount    int64     `json:"likes_count"`
	CollectsCount int64     `json:"collects_count"`
	CommentsCount int64     `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Product is a seed shop listing.
type Product struct {
	ID          string `json:"id"`
	SellerID    string `json:"seller_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	ImageURL    string `json:"image_url"`
}

type dataset struct {
	Users    []User    `json:"users"`
	Notes    []Note    `json:"notes"`
	Products []Product `json:"products"`
}

type snapshot struct {
	notes       []Note
	products    []Product
	notesByID   map[string]Note
	usersByID   map[string]User
	productByID map[string]Product
}

// Catalog exposes immutable snapshots of the seed dataset. Reloads swap the
// snapshot atomically; lookups never observe a partially loaded dataset.
type Catalog struct {
	mu     sync.RWMutex
	snap   *snapshot
	logger *zap.Logger
}

// NewCatalog builds a catalog from the compiled-in dataset.
func NewCatalog(logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	snap, err := parseDataset(bundledDataset)
	if err != nil {
		return nil, err
	}
	return &Catalog{snap: snap, logger: logger}, nil
}

// LoadFile replaces the current snapshot with the dataset at path. A failed
// load keeps the previous snapshot.
func (c *Catalog) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %s: %w", path, err)
	}
	snap, err := parseDataset(raw)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// Watch reloads the dataset whenever the file at path is rewritten. It blocks
// until ctx is cancelled; malformed rewrites are logged and skipped.
func (c *Catalog) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("seed: start watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("seed: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := c.LoadFile(path); err != nil {
				c.logger.Warn("seed dataset reload failed",
					zap.String("path", path), zap.Error(err))
				continue
			}
			c.logger.Info("seed dataset reloaded", zap.String("path", path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("seed dataset watcher error", zap.Error(err))
		}
	}
}

// NoteByID looks up a seed note.
func (c *Catalog) NoteByID(id string) (Note, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	note, ok := c.snap.notesByID[id]
	return note, ok
}

// UserByID looks up a seed profile.
func (c *Catalog) UserByID(id string) (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	user, ok := c.snap.usersByID[id]
	return user, ok
}

// ProductByID looks up a seed shop listing.
func (c *Catalog) ProductByID(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	product, ok := c.snap.productByID[id]
	return product, ok
}

// Notes returns all seed notes in dataset order.
func (c *Catalog) Notes() []Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Note(nil), c.snap.notes...)
}

// Products returns all seed shop listings in dataset order.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Product(nil), c.snap.products...)
}

func parseDataset(raw []byte) (*snapshot, error) {
	var parsed dataset
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("seed: parse dataset: %w", err)
	}
	if len(parsed.Notes) == 0 && len(parsed.Users) == 0 && len(parsed.Products) == 0 {
		return nil, errEmptyDataset
	}

	snap := &snapshot{
		notes:       parsed.Notes,
		products:    parsed.Products,
		notesByID:   make(map[string]Note, len(parsed.Notes)),
		usersByID:   make(map[string]User, len(parsed.Users)),
		productByID: make(map[string]Product, len(parsed.Products)),
	}
	for _, note := range parsed.Notes {
		snap.notesByID[note.ID] = note
	}
	for _, user := range parsed.Users {
		snap.usersByID[user.ID] = user
	}
	for _, product := range parsed.Products {
		snap.productByID[product.ID] = product
	}
	return snap, nil
}

// Package reconcile merges the remote store, the seed dataset, and the
// on-device override store into one view model per entity, applying
// optimistic mutations with rollback on persistence failure.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plumeworks/plume/backend/internal/entity"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"github.com/plumeworks/plume/backend/internal/identity"
	"github.com/plumeworks/plume/backend/internal/overrides"
	"github.com/plumeworks/plume/backend/internal/seed"
	"go.uber.org/zap"
)

var (
	// ErrSignInRequired rejects mutations without an authenticated session.
	ErrSignInRequired = errors.New("reconcile: sign in required")
	// ErrNotLoaded rejects mutations before a successful Load; optimistic
	// updates on an unloaded base state would be undefined.
	ErrNotLoaded = errors.New("reconcile: view not loaded")
	// ErrMutationInFlight rejects a toggle while the previous toggle on the
	// same field is still awaiting its persistence call.
	ErrMutationInFlight = errors.New("reconcile: mutation already in flight")

	errMissingGateway   = errors.New("reconcile: gateway is required")
	errMissingOverrides = errors.New("reconcile: override store is required")
	errMissingSeeds     = errors.New("reconcile: seed catalog is required")
	errMissingNoteID    = errors.New("reconcile: note id is required")
)

type mutationField string

const (
	fieldLike    mutationField = "like"
	fieldCollect mutationField = "collect"
	fieldFollow  mutationField = "follow"
	fieldComment mutationField = "comment"
)

// Gateway is the slice of the remote data gateway the reconciler needs.
type Gateway interface {
	GetNoteByID(ctx context.Context, noteID string) (gateway.Note, error)
	GetComments(ctx context.Context, noteID string) ([]gateway.Comment, error)
	GetProfile(ctx context.Context, userID string) (gateway.Profile, error)
	InteractionState(ctx context.Context, userID, noteID, authorID string) (gateway.InteractionState, error)
	ToggleLike(ctx context.Context, userID, noteID string) (bool, error)
	ToggleCollect(ctx context.Context, userID, noteID string) (bool, error)
	ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error)
	CreateComment(ctx context.Context, authorID, noteID, content string) (gateway.Comment, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
}

// OverrideStore is the slice of the local override store the reconciler needs.
type OverrideStore interface {
	GetArray(ctx context.Context, key string) []string
	ToggleMember(ctx context.Context, key, member string) (bool, error)
	GetFlag(ctx context.Context, key string) bool
	SetFlag(ctx context.Context, key string, value bool) error
	Comments(ctx context.Context, entityID string) []overrides.Comment
	AddComment(ctx context.Context, comment overrides.Comment) error
}

// SeedCatalog is the slice of the seed dataset the reconciler needs.
type SeedCatalog interface {
	NoteByID(id string) (seed.Note, bool)
	UserByID(id string) (seed.User, bool)
}

// ControllerConfig describes one note-detail view.
type ControllerConfig struct {
	NoteID    string
	Gateway   Gateway
	Overrides OverrideStore
	Seeds     SeedCatalog
	Session   *identity.Session
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Controller drives the view model of a single note through
// Loading -> Ready -> (Mutating -> Ready | reverted Ready).
type Controller struct {
	ref       entity.Ref
	gateway   Gateway
	overrides OverrideStore
	seeds     SeedCatalog
	session   *identity.Session
	clock     func() time.Time
	logger    *zap.Logger

	mu       sync.Mutex
	view     NoteView
	loaded   bool
	inflight map[mutationField]bool
}

// NewController validates dependencies and prepares a Loading view.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.NoteID == "" {
		return nil, errMissingNoteID
	}
	if cfg.Gateway == nil {
		return nil, errMissingGateway
	}
	if cfg.Overrides == nil {
		return nil, errMissingOverrides
	}
	if cfg.Seeds == nil {
		return nil, errMissingSeeds
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		ref:       entity.Classify(cfg.NoteID),
		gateway:   cfg.Gateway,
		overrides: cfg.Overrides,
		seeds:     cfg.Seeds,
		session:   cfg.Session,
		clock:     clock,
		logger:    logger,
		view:      NoteView{Phase: PhaseLoading, NoteID: cfg.NoteID},
		inflight:  make(map[mutationField]bool),
	}, nil
}

// View returns a snapshot of the current view model.
func (c *Controller) View() NoteView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Load builds the merged view model. Signed-out sessions see all interaction
// flags false. A missing entity yields PhaseNotFound, not an error.
func (c *Controller) Load(ctx context.Context) (NoteView, error) {
	var (
		view NoteView
		err  error
	)
	if c.ref.IsRemote() {
		view, err = c.loadRemote(ctx)
	} else {
		view = c.loadSeed(ctx)
	}
	if err != nil {
		return c.View(), err
	}

	c.mu.Lock()
	c.view = view
	c.loaded = view.Phase == PhaseReady
	c.mu.Unlock()
	return view, nil
}

func (c *Controller) loadRemote(ctx context.Context) (NoteView, error) {
	note, err := c.gateway.GetNoteByID(ctx, c.ref.ID)
	if errors.Is(err, gateway.ErrNotFound) {
		return NoteView{Phase: PhaseNotFound, NoteID: c.ref.ID}, nil
	}
	if err != nil {
		return NoteView{}, err
	}

	remoteComments, err := c.gateway.GetComments(ctx, c.ref.ID)
	if err != nil {
		return NoteView{}, err
	}
	comments := make([]Comment, 0, len(remoteComments))
	for _, rc := range remoteComments {
		comments = append(comments, Comment{
			ID:        rc.CommentID,
			NoteID:    rc.NoteID,
			AuthorID:  rc.AuthorID,
			Author:    c.resolveAuthorName(ctx, rc.AuthorID),
			Text:      rc.Content,
			CreatedAt: rc.CreatedAt,
		})
	}

	view := NoteView{
		Phase:         PhaseReady,
		NoteID:        note.NoteID,
		AuthorID:      note.AuthorID,
		AuthorName:    c.resolveAuthorName(ctx, note.AuthorID),
		Title:         note.Title,
		Content:       note.Content,
		ImageURL:      note.ImageURL,
		CreatedAt:     note.CreatedAt,
		Comments:      comments,
		LikesCount:    note.LikesCount,
		CollectsCount: note.CollectsCount,
		CommentsCount: note.CommentsCount,
	}

	if c.session.SignedIn() {
		state, err := c.gateway.InteractionState(ctx, c.session.UserID, note.NoteID, note.AuthorID)
		if err != nil {
			return NoteView{}, err
		}
		view.IsLiked = state.Liked
		view.IsCollected = state.Collected
		view.IsFollowing = state.Following
	}

	return view, nil
}

func (c *Controller) loadSeed(ctx context.Context) NoteView {
	note, ok := c.seeds.NoteByID(c.ref.ID)
	if !ok {
		return NoteView{Phase: PhaseNotFound, NoteID: c.ref.ID}
	}

	authorName := ""
	if author, ok := c.seeds.UserByID(note.AuthorID); ok {
		authorName = author.DisplayName
	}

	localComments := c.overrides.Comments(ctx, note.ID)
	comments := make([]Comment, 0, len(localComments))
	for _, lc := range localComments {
		comments = append(comments, Comment{
			ID:        lc.ID,
			NoteID:    lc.EntityID,
			AuthorID:  lc.AuthorID,
			Author:    lc.Author,
			Text:      lc.Text,
			CreatedAt: lc.CreatedAt,
		})
	}

	view := NoteView{
		Phase:      PhaseReady,
		NoteID:     note.ID,
		AuthorID:   note.AuthorID,
		AuthorName: authorName,
		Title:      note.Title,
		Content:    note.Content,
		ImageURL:   note.ImageURL,
		CreatedAt:  note.CreatedAt,
		Comments:   comments,
		// Seed counters are the static dataset value plus local toggles;
		// divergence across devices is expected.
		LikesCount:    note.LikesCount,
		CollectsCount: note.CollectsCount,
		CommentsCount: note.CommentsCount + int64(len(localComments)),
	}

	if c.session.SignedIn() {
		userID := c.session.UserID
		view.IsLiked = contains(c.overrides.GetArray(ctx, overrides.LikedNotesKey(userID)), note.ID)
		view.IsCollected = contains(c.overrides.GetArray(ctx, overrides.CollectedNotesKey(userID)), note.ID)
		view.IsFollowing = c.overrides.GetFlag(ctx, overrides.FollowedKey(note.AuthorID))
		if view.IsLiked {
			view.LikesCount++
		}
		if view.IsCollected {
			view.CollectsCount++
		}
	}

	return view
}

// ToggleLike optimistically flips the like flag and counter, persists the
// flip, and reverts both on failure.
func (c *Controller) ToggleLike(ctx context.Context) (NoteView, error) {
	return c.toggleFlag(ctx, fieldLike,
		func(v *NoteView) (*bool, *int64) { return &v.IsLiked, &v.LikesCount },
		func(ctx context.Context) (bool, error) {
			if c.ref.IsRemote() {
				return c.gateway.ToggleLike(ctx, c.session.UserID, c.ref.ID)
			}
			return c.overrides.ToggleMember(ctx, overrides.LikedNotesKey(c.session.UserID), c.ref.ID)
		})
}

// ToggleCollect optimistically flips the collect flag and counter.
func (c *Controller) ToggleCollect(ctx context.Context) (NoteView, error) {
	return c.toggleFlag(ctx, fieldCollect,
		func(v *NoteView) (*bool, *int64) { return &v.IsCollected, &v.CollectsCount },
		func(ctx context.Context) (bool, error) {
			if c.ref.IsRemote() {
				return c.gateway.ToggleCollect(ctx, c.session.UserID, c.ref.ID)
			}
			return c.overrides.ToggleMember(ctx, overrides.CollectedNotesKey(c.session.UserID), c.ref.ID)
		})
}

// ToggleFollow optimistically flips the follow flag for the note's author.
// The view model carries no follower counter, so only the flag moves.
func (c *Controller) ToggleFollow(ctx context.Context) (NoteView, error) {
	return c.toggleFlag(ctx, fieldFollow,
		func(v *NoteView) (*bool, *int64) { return &v.IsFollowing, nil },
		func(ctx context.Context) (bool, error) {
			if c.ref.IsRemote() {
				return c.gateway.ToggleFollow(ctx, c.session.UserID, c.view.AuthorID)
			}
			target := !c.overrides.GetFlag(ctx, overrides.FollowedKey(c.view.AuthorID))
			if err := c.overrides.SetFlag(ctx, overrides.FollowedKey(c.view.AuthorID), target); err != nil {
				return !target, err
			}
			return target, nil
		})
}

func (c *Controller) toggleFlag(
	ctx context.Context,
	field mutationField,
	accessor func(*NoteView) (*bool, *int64),
	persist func(context.Context) (bool, error),
) (NoteView, error) {
	c.mu.Lock()
	if !c.loaded || c.view.Phase != PhaseReady {
		c.mu.Unlock()
		return c.View(), ErrNotLoaded
	}
	if !c.session.SignedIn() {
		c.mu.Unlock()
		return c.View(), ErrSignInRequired
	}
	if c.inflight[field] {
		c.mu.Unlock()
		return c.View(), ErrMutationInFlight
	}
	c.inflight[field] = true

	flag, counter := accessor(&c.view)
	prevFlag := *flag
	var prevCount int64
	if counter != nil {
		prevCount = *counter
	}

	// Optimistic application.
	*flag = !prevFlag
	if counter != nil {
		if *flag {
			*counter = prevCount + 1
		} else {
			*counter = prevCount - 1
		}
	}
	c.mu.Unlock()

	active, err := persist(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, field)

	flag, counter = accessor(&c.view)
	if err != nil {
		// The view must never show state that was not durably recorded.
		*flag = prevFlag
		if counter != nil {
			*counter = prevCount
		}
		c.logger.Warn("toggle reverted after persistence failure",
			zap.String("field", string(field)),
			zap.String("note_id", c.ref.ID),
			zap.Error(err))
		return c.view, err
	}

	// Normally confirms the optimistic value; a concurrent writer on another
	// device can flip it the other way, in which case the persisted direction
	// wins.
	*flag = active
	if counter != nil {
		if active {
			*counter = prevCount + 1
		} else {
			*counter = prevCount - 1
		}
	}
	return c.view, nil
}

// AddComment optimistically prepends the comment and bumps the counter,
// persisting to the gateway or the override store by entity kind.
func (c *Controller) AddComment(ctx context.Context, text string) (NoteView, error) {
	c.mu.Lock()
	if !c.loaded || c.view.Phase != PhaseReady {
		c.mu.Unlock()
		return c.View(), ErrNotLoaded
	}
	if !c.session.SignedIn() {
		c.mu.Unlock()
		return c.View(), ErrSignInRequired
	}
	if c.inflight[fieldComment] {
		c.mu.Unlock()
		return c.View(), ErrMutationInFlight
	}
	c.inflight[fieldComment] = true

	now := c.clock().UTC()
	optimistic := Comment{
		ID:        fmt.Sprintf("pending-%d", now.UnixNano()),
		NoteID:    c.ref.ID,
		AuthorID:  c.session.UserID,
		Author:    c.session.DisplayName,
		Text:      text,
		CreatedAt: now,
	}
	c.view.Comments = append([]Comment{optimistic}, c.view.Comments...)
	c.view.CommentsCount++
	c.mu.Unlock()

	persistedID := optimistic.ID
	var err error
	if c.ref.IsRemote() {
		var stored gateway.Comment
		stored, err = c.gateway.CreateComment(ctx, c.session.UserID, c.ref.ID, text)
		if err == nil {
			persistedID = stored.CommentID
		}
	} else {
		err = c.overrides.AddComment(ctx, overrides.Comment{
			ID:        optimistic.ID,
			EntityID:  c.ref.ID,
			AuthorID:  optimistic.AuthorID,
			Author:    optimistic.Author,
			Text:      text,
			CreatedAt: now,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, fieldComment)

	if err != nil {
		c.view.Comments = removeComment(c.view.Comments, optimistic.ID)
		c.view.CommentsCount--
		c.logger.Warn("comment reverted after persistence failure",
			zap.String("note_id", c.ref.ID), zap.Error(err))
		return c.view, err
	}

	if persistedID != optimistic.ID {
		for i := range c.view.Comments {
			if c.view.Comments[i].ID == optimistic.ID {
				c.view.Comments[i].ID = persistedID
				break
			}
		}
	}
	return c.view, nil
}

// Delete removes a remote note through the gateway; seed notes have no
// backing row so their deletion is cosmetic. The view is dismissed in both
// cases, and a gateway failure is reported alongside the dismissed view so
// the caller can surface it.
func (c *Controller) Delete(ctx context.Context) (NoteView, error) {
	c.mu.Lock()
	if !c.loaded || c.view.Phase != PhaseReady {
		c.mu.Unlock()
		return c.View(), ErrNotLoaded
	}
	if !c.session.SignedIn() {
		c.mu.Unlock()
		return c.View(), ErrSignInRequired
	}
	c.mu.Unlock()

	var err error
	if c.ref.IsRemote() {
		err = c.gateway.DeleteNote(ctx, c.session.UserID, c.ref.ID)
		if err != nil {
			c.logger.Warn("note delete failed", zap.String("note_id", c.ref.ID), zap.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Phase = PhaseDismissed
	c.loaded = false
	return c.view, err
}

func (c *Controller) resolveAuthorName(ctx context.Context, authorID string) string {
	profile, err := c.gateway.GetProfile(ctx, authorID)
	if err != nil {
		return ""
	}
	return profile.DisplayName
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func removeComment(comments []Comment, id string) []Comment {
	filtered := make([]Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.ID == id {
			continue
		}
		filtered = append(filtered, comment)
	}
	return filtered
}

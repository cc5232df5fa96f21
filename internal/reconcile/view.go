package reconcile

import "time"

// Phase tracks the lifecycle of an entity-detail view.
type Phase string

const (
	// PhaseLoading is the initial state before Load completes.
	PhaseLoading Phase = "loading"
	// PhaseReady means the merged view model is populated and mutable.
	PhaseReady Phase = "ready"
	// PhaseNotFound means the entity exists in neither the remote store nor
	// the seed dataset.
	PhaseNotFound Phase = "not_found"
	// PhaseDismissed means the entity was deleted and the view navigated away.
	PhaseDismissed Phase = "dismissed"
)

// Comment is a unified comment entry, remote- or override-sourced.
type Comment struct {
	ID        string
	NoteID    string
	AuthorID  string
	Author    string
	Text      string
	CreatedAt time.Time
}

// NoteView is the merged view model for a note-detail screen: entity fields
// from the remote store or seed dataset, plus the acting user's interaction
// flags and locally adjusted counters.
//
// Counters move by exactly one per optimistic toggle and are never re-read
// from the source of truth within a view's lifetime; call Load again to
// resynchronize. Drift against concurrent writers is accepted.
type NoteView struct {
	Phase Phase

	NoteID     string
	AuthorID   string
	AuthorName string
	Title      string
	Content    string
	ImageURL   string
	CreatedAt  time.Time

	Comments []Comment

	IsLiked     bool
	IsCollected bool
	IsFollowing bool

	LikesCount    int64
	CollectsCount int64
	CommentsCount int64
}

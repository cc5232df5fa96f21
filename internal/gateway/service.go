// Package gateway wraps the remote relational store behind typed CRUD and
// toggle operations. Toggles flip join rows through an insert-then-delete-on-
// conflict protocol; the uniqueness constraint on the join table is what
// makes the decision safe under concurrent access from multiple devices.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingNoteID     = errors.New("note identifier is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

// ErrNotFound indicates the requested entity has no remote row.
var ErrNotFound = errors.New("gateway: not found")

// ServiceError carries a machine-readable operation code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation.reason error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "gateway.service.new"
	opGetNote       = "gateway.get_note"
	opListNotes     = "gateway.list_notes"
	opCreateNote    = "gateway.create_note"
	opDeleteNote    = "gateway.delete_note"
	opGetComments   = "gateway.get_comments"
	opCreateComment = "gateway.create_comment"
	opToggleLike    = "gateway.toggle_like"
	opToggleCollect = "gateway.toggle_collect"
	opToggleFollow  = "gateway.toggle_follow"
	opInteraction   = "gateway.interaction_state"
	opGetProfile    = "gateway.get_profile"
	opListProducts  = "gateway.list_products"
	opSendMessage   = "gateway.send_message"
	opListMessages  = "gateway.list_messages"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for rows created by the gateway.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the gateway.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service is the remote data gateway.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the gateway.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// GetNoteByID fetches a single note or ErrNotFound.
func (s *Service) GetNoteByID(ctx context.Context, noteID string) (Note, error) {
	if noteID == "" {
		return Note{}, newServiceError(opGetNote, "missing_note_id", errMissingNoteID)
	}
	var note Note
	err := s.db.WithContext(ctx).Where("note_id = ?", noteID).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		s.logError(opGetNote, "query_failed", err, zap.String("note_id", noteID))
		return Note{}, newServiceError(opGetNote, "query_failed", err)
	}
	return note, nil
}

// ListNotes returns the newest notes first, up to limit (all when limit <= 0).
func (s *Service) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var notes []Note
	if err := query.Find(&notes).Error; err != nil {
		s.logError(opListNotes, "query_failed", err)
		return nil, newServiceError(opListNotes, "query_failed", err)
	}
	return notes, nil
}

// CreateNote persists a new note authored by authorID and returns it.
func (s *Service) CreateNote(ctx context.Context, authorID, title, content, imageURL string) (Note, error) {
	if authorID == "" {
		return Note{}, newServiceError(opCreateNote, "missing_author_id", errMissingUserID)
	}
	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, "id_generation_failed", err)
		return Note{}, newServiceError(opCreateNote, "id_generation_failed", err)
	}
	note := Note{
		NoteID:    noteID,
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreateNote, "insert_failed", err, zap.String("author_id", authorID))
		return Note{}, newServiceError(opCreateNote, "insert_failed", err)
	}
	return note, nil
}

// DeleteNote removes a note owned by userID along with nothing else: join
// rows are left to age out, matching the remote store's behavior.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	if userID == "" {
		return newServiceError(opDeleteNote, "missing_user_id", errMissingUserID)
	}
	if noteID == "" {
		return newServiceError(opDeleteNote, "missing_note_id", errMissingNoteID)
	}
	result := s.db.WithContext(ctx).
		Where("note_id = ? AND author_id = ?", noteID, userID).
		Delete(&Note{})
	if result.Error != nil {
		s.logError(opDeleteNote, "delete_failed", result.Error,
			zap.String("note_id", noteID), zap.String("user_id", userID))
		return newServiceError(opDeleteNote, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetComments returns a note's comments, newest first.
func (s *Service) GetComments(ctx context.Context, noteID string) ([]Comment, error) {
	if noteID == "" {
		return nil, newServiceError(opGetComments, "missing_note_id", errMissingNoteID)
	}
	var comments []Comment
	if err := s.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		s.logError(opGetComments, "query_failed", err, zap.String("note_id", noteID))
		return nil, newServiceError(opGetComments, "query_failed", err)
	}
	return comments, nil
}

// CreateComment inserts a comment and bumps the note's comment counter.
func (s *Service) CreateComment(ctx context.Context, authorID, noteID, content string) (Comment, error) {
	if authorID == "" {
		return Comment{}, newServiceError(opCreateComment, "missing_author_id", errMissingUserID)
	}
	if noteID == "" {
		return Comment{}, newServiceError(opCreateComment, "missing_note_id", errMissingNoteID)
	}
	commentID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateComment, "id_generation_failed", err)
		return Comment{}, newServiceError(opCreateComment, "id_generation_failed", err)
	}
	comment := Comment{
		CommentID: commentID,
		NoteID:    noteID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		s.logError(opCreateComment, "insert_failed", err, zap.String("note_id", noteID))
		return Comment{}, newServiceError(opCreateComment, "insert_failed", err)
	}
	if err := s.adjustNoteCounter(ctx, noteID, "comments_count", 1); err != nil {
		s.logError(opCreateComment, "counter_update_failed", err, zap.String("note_id", noteID))
		return Comment{}, newServiceError(opCreateComment, "counter_update_failed", err)
	}
	return comment, nil
}

// GetProfile fetches a profile or ErrNotFound.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, newServiceError(opGetProfile, "missing_user_id", errMissingUserID)
	}
	var profile Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		s.logError(opGetProfile, "query_failed", err, zap.String("user_id", userID))
		return Profile{}, newServiceError(opGetProfile, "query_failed", err)
	}
	return profile, nil
}

// ListProducts returns shop listings, newest first, up to limit (all when
// limit <= 0).
func (s *Service) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var products []Product
	if err := query.Find(&products).Error; err != nil {
		s.logError(opListProducts, "query_failed", err)
		return nil, newServiceError(opListProducts, "query_failed", err)
	}
	return products, nil
}

// InteractionState resolves the acting user's like/collect flags for a note
// and the follow flag for its author with three join-table lookups.
func (s *Service) InteractionState(ctx context.Context, userID, noteID, authorID string) (InteractionState, error) {
	if userID == "" {
		return InteractionState{}, newServiceError(opInteraction, "missing_user_id", errMissingUserID)
	}
	if noteID == "" {
		return InteractionState{}, newServiceError(opInteraction, "missing_note_id", errMissingNoteID)
	}

	state := InteractionState{}
	var count int64

	if err := s.db.WithContext(ctx).Model(&Like{}).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Count(&count).Error; err != nil {
		s.logError(opInteraction, "like_lookup_failed", err, zap.String("note_id", noteID))
		return InteractionState{}, newServiceError(opInteraction, "like_lookup_failed", err)
	}
	state.Liked = count > 0

	if err := s.db.WithContext(ctx).Model(&Collect{}).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Count(&count).Error; err != nil {
		s.logError(opInteraction, "collect_lookup_failed", err, zap.String("note_id", noteID))
		return InteractionState{}, newServiceError(opInteraction, "collect_lookup_failed", err)
	}
	state.Collected = count > 0

	if authorID != "" && authorID != userID {
		if err := s.db.WithContext(ctx).Model(&Follow{}).
			Where("follower_id = ? AND following_id = ?", userID, authorID).
			Count(&count).Error; err != nil {
			s.logError(opInteraction, "follow_lookup_failed", err, zap.String("author_id", authorID))
			return InteractionState{}, newServiceError(opInteraction, "follow_lookup_failed", err)
		}
		state.Following = count > 0
	}

	return state, nil
}

func (s *Service) adjustNoteCounter(ctx context.Context, noteID, column string, delta int64) error {
	return s.db.WithContext(ctx).Model(&Note{}).
		Where("note_id = ?", noteID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func (s *Service) adjustProfileCounter(ctx context.Context, userID, column string, delta int64) error {
	return s.db.WithContext(ctx).Model(&Profile{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("gateway error", attrs...)
}

// Package identity manages profile credentials and session snapshots.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/plumeworks/plume/backend/internal/auth"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"gorm.io/gorm"
)

var (
	// ErrEmailTaken indicates a registration attempt with an existing email.
	ErrEmailTaken = errors.New("identity: email already registered")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrUnknownUser indicates a session lookup for a user with no profile.
	ErrUnknownUser = errors.New("identity: unknown user")
)

// ServiceConfig describes the dependencies for identity resolution.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider gateway.IDProvider
}

// Service manages profiles and builds session snapshots.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider gateway.IDProvider
	cache      sync.Map
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("identity: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("identity: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
	}, nil
}

// Register creates a profile with a hashed password and returns its session.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || displayName == "" {
		return Session{}, ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	userID, err := s.idProvider.NewID()
	if err != nil {
		return Session{}, err
	}

	profile := gateway.Profile{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}

	session := Session{UserID: profile.UserID, DisplayName: profile.DisplayName, AvatarURL: profile.AvatarURL}
	s.cache.Store(profile.UserID, session)
	return session, nil
}

// Login verifies credentials and returns the user's session snapshot.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var profile gateway.Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	session := Session{UserID: profile.UserID, DisplayName: profile.DisplayName, AvatarURL: profile.AvatarURL}
	s.cache.Store(profile.UserID, session)
	return session, nil
}

// SessionFor returns the cached session snapshot for userID, loading the
// profile on a cache miss.
func (s *Service) SessionFor(ctx context.Context, userID string) (Session, error) {
	if cached, ok := s.cache.Load(userID); ok {
		if session, ok := cached.(Session); ok {
			return session, nil
		}
	}
	return s.Refresh(ctx, userID)
}

// Refresh rebuilds the session snapshot from the stored profile, replacing
// any cached copy. Call after profile edits.
func (s *Service) Refresh(ctx context.Context, userID string) (Session, error) {
	var profile gateway.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrUnknownUser
	}
	if err != nil {
		return Session{}, err
	}
	session := Session{UserID: profile.UserID, DisplayName: profile.DisplayName, AvatarURL: profile.AvatarURL}
	s.cache.Store(userID, session)
	return session, nil
}

// UpdateProfile applies display-name/avatar/bio edits and returns a fresh
// session snapshot.
func (s *Service) UpdateProfile(ctx context.Context, userID, displayName, avatarURL, bio string) (Session, error) {
	updates := map[string]interface{}{}
	if value := strings.TrimSpace(displayName); value != "" {
		updates["display_name"] = value
	}
	if value := strings.TrimSpace(avatarURL); value != "" {
		updates["avatar_url"] = value
	}
	if value := strings.TrimSpace(bio); value != "" {
		updates["bio"] = value
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		if err := s.db.WithContext(ctx).Model(&gateway.Profile{}).
			Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return Session{}, err
		}
	}
	return s.Refresh(ctx, userID)
}

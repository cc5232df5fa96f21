// Package messaging derives conversation lists from stored direct messages
// and pushes new messages into the realtime dispatcher.
package messaging

import (
	"context"
	"errors"

	"github.com/plumeworks/plume/backend/internal/entity"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"github.com/plumeworks/plume/backend/internal/realtime"
	"github.com/plumeworks/plume/backend/internal/seed"
	"go.uber.org/zap"
)

var (
	errMissingGateway = errors.New("messaging: gateway is required")
	errMissingSeeds   = errors.New("messaging: seed catalog is required")
)

// Gateway is the slice of the remote data gateway the service needs.
type Gateway interface {
	SendMessage(ctx context.Context, senderID, receiverID, content string) (gateway.Message, error)
	MessagesWith(ctx context.Context, selfID, peerID string) ([]gateway.Message, error)
	AllMessagesFor(ctx context.Context, selfID string) ([]gateway.Message, error)
	GetProfile(ctx context.Context, userID string) (gateway.Profile, error)
}

// Publisher delivers realtime message events to connected recipients.
type Publisher interface {
	Publish(event realtime.MessageEvent)
}

// SeedUsers resolves seed counterpart profiles.
type SeedUsers interface {
	UserByID(id string) (seed.User, bool)
}

// ServiceConfig describes the messaging dependencies.
type ServiceConfig struct {
	Gateway   Gateway
	Publisher Publisher
	Seeds     SeedUsers
	Logger    *zap.Logger
}

// Service lists conversations, loads threads, and sends messages.
type Service struct {
	gateway   Gateway
	publisher Publisher
	seeds     SeedUsers
	logger    *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, errMissingGateway
	}
	if cfg.Seeds == nil {
		return nil, errMissingSeeds
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:   cfg.Gateway,
		publisher: cfg.Publisher,
		seeds:     cfg.Seeds,
		logger:    logger,
	}, nil
}

// ListConversations fetches the user's messages newest-first and groups them
// by counterpart.
func (s *Service) ListConversations(ctx context.Context, selfID string) ([]Conversation, error) {
	messages, err := s.gateway.AllMessagesFor(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return GroupConversations(messages, selfID, func(id string) (Peer, bool) {
		return s.resolvePeer(ctx, id)
	}), nil
}

// History returns the two-way thread with peerID in ascending time order.
func (s *Service) History(ctx context.Context, selfID, peerID string) ([]gateway.Message, error) {
	return s.gateway.MessagesWith(ctx, selfID, peerID)
}

// Send persists the message and publishes a realtime event for the receiver.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (gateway.Message, error) {
	message, err := s.gateway.SendMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return gateway.Message{}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(realtime.MessageEvent{
			ID:         message.MessageID,
			SenderID:   message.SenderID,
			ReceiverID: message.ReceiverID,
			Content:    message.Content,
			CreatedAt:  message.CreatedAt,
		})
	}
	return message, nil
}

// resolvePeer looks up a counterpart in the remote profiles or, for seed
// identifiers, the bundled dataset. Unresolvable counterparts are dropped
// from conversation lists.
func (s *Service) resolvePeer(ctx context.Context, id string) (Peer, bool) {
	ref := entity.Classify(id)
	if ref.IsSeed() {
		user, ok := s.seeds.UserByID(id)
		if !ok {
			return Peer{}, false
		}
		return Peer{ID: user.ID, DisplayName: user.DisplayName, AvatarURL: user.AvatarURL}, true
	}

	profile, err := s.gateway.GetProfile(ctx, id)
	if err != nil {
		if !errors.Is(err, gateway.ErrNotFound) {
			s.logger.Warn("counterpart profile lookup failed",
				zap.String("user_id", id), zap.Error(err))
		}
		return Peer{}, false
	}
	return Peer{ID: profile.UserID, DisplayName: profile.DisplayName, AvatarURL: profile.AvatarURL}, true
}

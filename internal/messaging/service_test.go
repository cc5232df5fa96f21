package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plumeworks/plume/backend/internal/gateway"
	"github.com/plumeworks/plume/backend/internal/realtime"
	"github.com/plumeworks/plume/backend/internal/seed"
)

type fakeMessageGateway struct {
	messages []gateway.Message
	profiles map[string]gateway.Profile
	sendErr  error
}

func (f *fakeMessageGateway) SendMessage(_ context.Context, senderID, receiverID, content string) (gateway.Message, error) {
	if f.sendErr != nil {
		return gateway.Message{}, f.sendErr
	}
	message := gateway.Message{
		MessageID:  "generated-id",
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC),
	}
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeMessageGateway) MessagesWith(_ context.Context, selfID, peerID string) ([]gateway.Message, error) {
	thread := make([]gateway.Message, 0)
	for _, message := range f.messages {
		pair := (message.SenderID == selfID && message.ReceiverID == peerID) ||
			(message.SenderID == peerID && message.ReceiverID == selfID)
		if pair {
			thread = append(thread, message)
		}
	}
	return thread, nil
}

func (f *fakeMessageGateway) AllMessagesFor(_ context.Context, selfID string) ([]gateway.Message, error) {
	involved := make([]gateway.Message, 0)
	for index := len(f.messages) - 1; index >= 0; index-- {
		message := f.messages[index]
		if message.SenderID == selfID || message.ReceiverID == selfID {
			involved = append(involved, message)
		}
	}
	return involved, nil
}

func (f *fakeMessageGateway) GetProfile(_ context.Context, userID string) (gateway.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return gateway.Profile{}, gateway.ErrNotFound
	}
	return profile, nil
}

type fakeSeedUsers struct {
	users map[string]seed.User
}

func (f *fakeSeedUsers) UserByID(id string) (seed.User, bool) {
	user, ok := f.users[id]
	return user, ok
}

type capturingPublisher struct {
	events []realtime.MessageEvent
}

func (p *capturingPublisher) Publish(event realtime.MessageEvent) {
	p.events = append(p.events, event)
}

const remotePeerID = "b7c4d2e1-0f3a-7b5c-8d9e-a1b2c3d4e5f6"

func newTestService(t *testing.T, gw *fakeMessageGateway, publisher Publisher) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Gateway:   gw,
		Publisher: publisher,
		Seeds: &fakeSeedUsers{users: map[string]seed.User{
			"u1": {ID: "u1", DisplayName: "Seed Author", AvatarURL: "https://img.example/u1.png"},
		}},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestSendPublishesRealtimeEvent(t *testing.T) {
	gw := &fakeMessageGateway{}
	publisher := &capturingPublisher{}
	service := newTestService(t, gw, publisher)

	message, err := service.Send(context.Background(), "me", "u1", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if message.MessageID != "generated-id" {
		t.Fatalf("unexpected message id %q", message.MessageID)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one realtime event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.ReceiverID != "u1" || event.Content != "hello" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestSendFailureDoesNotPublish(t *testing.T) {
	gw := &fakeMessageGateway{sendErr: errors.New("insert failed")}
	publisher := &capturingPublisher{}
	service := newTestService(t, gw, publisher)

	if _, err := service.Send(context.Background(), "me", "u1", "hello"); err == nil {
		t.Fatal("expected the gateway error to surface")
	}
	if len(publisher.events) != 0 {
		t.Fatalf("no event may be published on failure, got %d", len(publisher.events))
	}
}

func TestListConversationsResolvesSeedAndRemotePeers(t *testing.T) {
	gw := &fakeMessageGateway{
		profiles: map[string]gateway.Profile{
			remotePeerID: {UserID: remotePeerID, DisplayName: "Remote Friend"},
		},
	}
	service := newTestService(t, gw, nil)

	ctx := context.Background()
	if _, err := service.Send(ctx, "me", "u1", "to seed user"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := service.Send(ctx, remotePeerID, "me", "from remote user"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conversations, err := service.ListConversations(ctx, "me")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].PeerName != "Remote Friend" {
		t.Fatalf("newest conversation should be the remote peer, got %q", conversations[0].PeerName)
	}
	if conversations[1].PeerName != "Seed Author" {
		t.Fatalf("expected seed counterpart resolved from the bundled dataset, got %q", conversations[1].PeerName)
	}
}

func TestListConversationsDropsUnknownCounterparts(t *testing.T) {
	gw := &fakeMessageGateway{profiles: map[string]gateway.Profile{}}
	service := newTestService(t, gw, nil)

	ctx := context.Background()
	if _, err := service.Send(ctx, "me", remotePeerID, "to a vanished account"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conversations, err := service.ListConversations(ctx, "me")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(conversations) != 0 {
		t.Fatalf("expected the unresolvable counterpart to be dropped, got %d", len(conversations))
	}
}

func TestHistoryReturnsOnlyThePairThread(t *testing.T) {
	gw := &fakeMessageGateway{}
	service := newTestService(t, gw, nil)

	ctx := context.Background()
	if _, err := service.Send(ctx, "me", "u1", "first"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := service.Send(ctx, "u1", "me", "second"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := service.Send(ctx, "me", remotePeerID, "unrelated"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	thread, err := service.History(ctx, "me", "u1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("expected 2 messages in the thread, got %d", len(thread))
	}
	if thread[0].Content != "first" || thread[1].Content != "second" {
		t.Fatalf("unexpected thread order: %+v", thread)
	}
}

func TestNewServiceRequiresGatewayAndSeeds(t *testing.T) {
	if _, err := NewService(ServiceConfig{Seeds: &fakeSeedUsers{}}); err == nil {
		t.Fatal("expected missing gateway error")
	}
	if _, err := NewService(ServiceConfig{Gateway: &fakeMessageGateway{}}); err == nil {
		t.Fatal("expected missing seeds error")
	}
}

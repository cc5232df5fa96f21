package messaging

import (
	"testing"
	"time"

	"github.com/plumeworks/plume/backend/internal/gateway"
)

func namedResolver(names map[string]string) func(id string) (Peer, bool) {
	return func(id string) (Peer, bool) {
		name, ok := names[id]
		if !ok {
			return Peer{}, false
		}
		return Peer{ID: id, DisplayName: name}, true
	}
}

func messageAt(id, sender, receiver, content string, minute int) gateway.Message {
	return gateway.Message{
		MessageID:  id,
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		CreatedAt:  time.Date(2026, 7, 14, 12, minute, 0, 0, time.UTC),
	}
}

func TestGroupConversationsOneEntryPerCounterpart(t *testing.T) {
	self := "me"
	// Newest first, as the gateway returns them.
	messages := []gateway.Message{
		messageAt("m4", "alice", self, "latest from alice", 40),
		messageAt("m3", self, "bob", "to bob", 30),
		messageAt("m2", self, "alice", "older to alice", 20),
		messageAt("m1", "bob", self, "oldest from bob", 10),
	}

	conversations := GroupConversations(messages, self, namedResolver(map[string]string{
		"alice": "Alice",
		"bob":   "Bob",
	}))

	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].PeerID != "alice" || conversations[1].PeerID != "bob" {
		t.Fatalf("expected alice then bob, got %s then %s", conversations[0].PeerID, conversations[1].PeerID)
	}
	if conversations[0].LastMessageText != "latest from alice" {
		t.Fatalf("alice conversation must carry her newest message, got %q", conversations[0].LastMessageText)
	}
	if conversations[1].LastMessageText != "to bob" {
		t.Fatalf("bob conversation must carry the newest message in that thread, got %q", conversations[1].LastMessageText)
	}
}

func TestGroupConversationsLastSenderIsMe(t *testing.T) {
	self := "me"
	messages := []gateway.Message{
		messageAt("m2", self, "alice", "mine", 20),
		messageAt("m1", "bob", self, "theirs", 10),
	}

	conversations := GroupConversations(messages, self, namedResolver(map[string]string{
		"alice": "Alice",
		"bob":   "Bob",
	}))

	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if !conversations[0].LastSenderIsMe {
		t.Fatal("conversation with alice last spoke by me")
	}
	if conversations[1].LastSenderIsMe {
		t.Fatal("conversation with bob last spoke by bob")
	}
}

func TestGroupConversationsSkipsUnresolvableCounterparts(t *testing.T) {
	self := "me"
	messages := []gateway.Message{
		messageAt("m2", "ghost", self, "from a deleted account", 20),
		messageAt("m1", "alice", self, "hi", 10),
	}

	conversations := GroupConversations(messages, self, namedResolver(map[string]string{
		"alice": "Alice",
	}))

	if len(conversations) != 1 {
		t.Fatalf("expected the unresolvable counterpart to be dropped, got %d conversations", len(conversations))
	}
	if conversations[0].PeerID != "alice" {
		t.Fatalf("expected alice, got %s", conversations[0].PeerID)
	}
}

func TestGroupConversationsUnreadCountIsZero(t *testing.T) {
	self := "me"
	messages := []gateway.Message{
		messageAt("m1", "alice", self, "unseen", 10),
	}

	conversations := GroupConversations(messages, self, namedResolver(map[string]string{
		"alice": "Alice",
	}))

	if len(conversations) != 1 || conversations[0].UnreadCount != 0 {
		t.Fatalf("unread count is a fixed placeholder, got %+v", conversations)
	}
}

func TestGroupConversationsEmptyInput(t *testing.T) {
	conversations := GroupConversations(nil, "me", namedResolver(nil))
	if len(conversations) != 0 {
		t.Fatalf("expected no conversations, got %d", len(conversations))
	}
}

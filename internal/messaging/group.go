package messaging

import (
	"time"

	"github.com/plumeworks/plume/backend/internal/gateway"
)

// Peer identifies the other side of a conversation.
type Peer struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// Conversation is a derived grouping of direct messages by counterpart; no
// conversation row is persisted anywhere.
type Conversation struct {
	PeerID          string
	PeerName        string
	PeerAvatarURL   string
	LastMessageText string
	LastMessageAt   time.Time
	LastSenderIsMe  bool
	// UnreadCount is a placeholder fixed at zero: no read-receipt data model
	// exists yet.
	UnreadCount int
}

// GroupConversations folds a time-descending message list into one
// conversation per counterpart. Because the input is newest-first and only
// the first occurrence per counterpart is kept, the output is already
// ordered most-recently-active first; callers must not feed it ascending
// input. Counterparts that fail to resolve are skipped.
func GroupConversations(messages []gateway.Message, selfID string, resolve func(id string) (Peer, bool)) []Conversation {
	conversations := make([]Conversation, 0)
	seen := make(map[string]bool)

	for _, message := range messages {
		counterpartID := message.SenderID
		if message.SenderID == selfID {
			counterpartID = message.ReceiverID
		}
		if counterpartID == "" || seen[counterpartID] {
			continue
		}
		peer, ok := resolve(counterpartID)
		if !ok {
			continue
		}
		seen[counterpartID] = true
		conversations = append(conversations, Conversation{
			PeerID:          peer.ID,
			PeerName:        peer.DisplayName,
			PeerAvatarURL:   peer.AvatarURL,
			LastMessageText: message.Content,
			LastMessageAt:   message.CreatedAt,
			LastSenderIsMe:  message.SenderID == selfID,
			UnreadCount:     0,
		})
	}

	return conversations
}

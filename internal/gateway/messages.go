package gateway

import (
	"context"

	"go.uber.org/zap"
)

// SendMessage persists a direct message and returns the stored row.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID, content string) (Message, error) {
	if senderID == "" {
		return Message{}, newServiceError(opSendMessage, "missing_sender_id", errMissingUserID)
	}
	if receiverID == "" {
		return Message{}, newServiceError(opSendMessage, "missing_receiver_id", errMissingUserID)
	}
	messageID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSendMessage, "id_generation_failed", err)
		return Message{}, newServiceError(opSendMessage, "id_generation_failed", err)
	}
	message := Message{
		MessageID:  messageID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		s.logError(opSendMessage, "insert_failed", err,
			zap.String("sender_id", senderID), zap.String("receiver_id", receiverID))
		return Message{}, newServiceError(opSendMessage, "insert_failed", err)
	}
	return message, nil
}

// MessagesWith returns the two-way thread between selfID and peerID in
// ascending time order, the order a chat screen renders.
func (s *Service) MessagesWith(ctx context.Context, selfID, peerID string) ([]Message, error) {
	if selfID == "" || peerID == "" {
		return nil, newServiceError(opListMessages, "missing_user_id", errMissingUserID)
	}
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			selfID, peerID, peerID, selfID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		s.logError(opListMessages, "query_failed", err,
			zap.String("self_id", selfID), zap.String("peer_id", peerID))
		return nil, newServiceError(opListMessages, "query_failed", err)
	}
	return messages, nil
}

// AllMessagesFor returns every message involving selfID in descending time
// order, the precondition conversation grouping relies on.
func (s *Service) AllMessagesFor(ctx context.Context, selfID string) ([]Message, error) {
	if selfID == "" {
		return nil, newServiceError(opListMessages, "missing_user_id", errMissingUserID)
	}
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", selfID, selfID).
		Order("created_at DESC").
		Find(&messages).Error; err != nil {
		s.logError(opListMessages, "query_failed", err, zap.String("self_id", selfID))
		return nil, newServiceError(opListMessages, "query_failed", err)
	}
	return messages, nil
}

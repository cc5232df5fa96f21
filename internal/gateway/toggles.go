package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Toggle protocol: attempt the join-row insert; a duplicate-key conflict
// means the relationship already exists, so delete it instead. The first
// round-trip decides, the second runs only on conflict. Counter updates are
// separate statements and intentionally not transactional with the row write
// (see InteractionState for the authoritative flags).

// ToggleLike flips the like relationship and reports whether it is now
// active. Non-conflict database errors propagate unmodified inside a coded
// service error.
func (s *Service) ToggleLike(ctx context.Context, userID, noteID string) (bool, error) {
	if userID == "" {
		return false, newServiceError(opToggleLike, "missing_user_id", errMissingUserID)
	}
	if noteID == "" {
		return false, newServiceError(opToggleLike, "missing_note_id", errMissingNoteID)
	}

	like := Like{UserID: userID, NoteID: noteID, CreatedAt: s.clock().UTC()}
	err := s.db.WithContext(ctx).Create(&like).Error
	if err == nil {
		if err := s.adjustNoteCounter(ctx, noteID, "likes_count", 1); err != nil {
			s.logError(opToggleLike, "counter_update_failed", err, zap.String("note_id", noteID))
			return true, newServiceError(opToggleLike, "counter_update_failed", err)
		}
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logError(opToggleLike, "insert_failed", err,
			zap.String("user_id", userID), zap.String("note_id", noteID))
		return false, newServiceError(opToggleLike, "insert_failed", err)
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Delete(&Like{}).Error; err != nil {
		s.logError(opToggleLike, "delete_failed", err,
			zap.String("user_id", userID), zap.String("note_id", noteID))
		return false, newServiceError(opToggleLike, "delete_failed", err)
	}
	if err := s.adjustNoteCounter(ctx, noteID, "likes_count", -1); err != nil {
		s.logError(opToggleLike, "counter_update_failed", err, zap.String("note_id", noteID))
		return false, newServiceError(opToggleLike, "counter_update_failed", err)
	}
	return false, nil
}

// ToggleCollect flips the collect relationship and reports whether it is now
// active.
func (s *Service) ToggleCollect(ctx context.Context, userID, noteID string) (bool, error) {
	if userID == "" {
		return false, newServiceError(opToggleCollect, "missing_user_id", errMissingUserID)
	}
	if noteID == "" {
		return false, newServiceError(opToggleCollect, "missing_note_id", errMissingNoteID)
	}

	collect := Collect{UserID: userID, NoteID: noteID, CreatedAt: s.clock().UTC()}
	err := s.db.WithContext(ctx).Create(&collect).Error
	if err == nil {
		if err := s.adjustNoteCounter(ctx, noteID, "collects_count", 1); err != nil {
			s.logError(opToggleCollect, "counter_update_failed", err, zap.String("note_id", noteID))
			return true, newServiceError(opToggleCollect, "counter_update_failed", err)
		}
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logError(opToggleCollect, "insert_failed", err,
			zap.String("user_id", userID), zap.String("note_id", noteID))
		return false, newServiceError(opToggleCollect, "insert_failed", err)
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Delete(&Collect{}).Error; err != nil {
		s.logError(opToggleCollect, "delete_failed", err,
			zap.String("user_id", userID), zap.String("note_id", noteID))
		return false, newServiceError(opToggleCollect, "delete_failed", err)
	}
	if err := s.adjustNoteCounter(ctx, noteID, "collects_count", -1); err != nil {
		s.logError(opToggleCollect, "counter_update_failed", err, zap.String("note_id", noteID))
		return false, newServiceError(opToggleCollect, "counter_update_failed", err)
	}
	return false, nil
}

// ToggleFollow flips the follow relationship from followerID to targetID and
// adjusts both profiles' denormalized counters.
func (s *Service) ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == "" {
		return false, newServiceError(opToggleFollow, "missing_follower_id", errMissingUserID)
	}
	if targetID == "" {
		return false, newServiceError(opToggleFollow, "missing_target_id", errMissingUserID)
	}

	follow := Follow{FollowerID: followerID, FollowingID: targetID, CreatedAt: s.clock().UTC()}
	err := s.db.WithContext(ctx).Create(&follow).Error
	if err == nil {
		if err := s.adjustFollowCounters(ctx, followerID, targetID, 1); err != nil {
			s.logError(opToggleFollow, "counter_update_failed", err, zap.String("target_id", targetID))
			return true, newServiceError(opToggleFollow, "counter_update_failed", err)
		}
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logError(opToggleFollow, "insert_failed", err,
			zap.String("follower_id", followerID), zap.String("target_id", targetID))
		return false, newServiceError(opToggleFollow, "insert_failed", err)
	}

	if err := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, targetID).
		Delete(&Follow{}).Error; err != nil {
		s.logError(opToggleFollow, "delete_failed", err,
			zap.String("follower_id", followerID), zap.String("target_id", targetID))
		return false, newServiceError(opToggleFollow, "delete_failed", err)
	}
	if err := s.adjustFollowCounters(ctx, followerID, targetID, -1); err != nil {
		s.logError(opToggleFollow, "counter_update_failed", err, zap.String("target_id", targetID))
		return false, newServiceError(opToggleFollow, "counter_update_failed", err)
	}
	return false, nil
}

func (s *Service) adjustFollowCounters(ctx context.Context, followerID, targetID string, delta int64) error {
	if err := s.adjustProfileCounter(ctx, targetID, "followers_count", delta); err != nil {
		return err
	}
	return s.adjustProfileCounter(ctx, followerID, "following_count", delta)
}

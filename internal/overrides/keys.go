package overrides

import "fmt"

// Key scheme shared with existing on-device data. Changing any of these
// formats orphans previously written interaction state.

// LikedNotesKey holds the array of seed note ids liked by a user.
func LikedNotesKey(userID string) string {
	return fmt.Sprintf("liked_mock_notes_%s", userID)
}

// CollectedNotesKey holds the array of seed note ids collected by a user.
func CollectedNotesKey(userID string) string {
	return fmt.Sprintf("collected_mock_notes_%s", userID)
}

// FollowedKey holds a boolean flag for following a seed user.
func FollowedKey(targetUserID string) string {
	return fmt.Sprintf("followed_mock_%s", targetUserID)
}

// CommentsKey holds the array of locally added comments on a seed entity.
func CommentsKey(entityID string) string {
	return fmt.Sprintf("mock_comments_%s", entityID)
}

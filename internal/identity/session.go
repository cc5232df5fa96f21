package identity

// Session is an immutable snapshot of the signed-in user, passed explicitly
// into controllers. A nil *Session means signed out. Profile edits produce a
// fresh snapshot via Service.Refresh rather than mutating shared state.
type Session struct {
	UserID      string
	DisplayName string
	AvatarURL   string
}

// SignedIn reports whether the session represents an authenticated user.
func (s *Session) SignedIn() bool {
	return s != nil && s.UserID != ""
}

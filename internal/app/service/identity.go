package service

// Identity names the owner of a cart or chat room: a signed-in user or
// an anonymous browser session. Exactly one field is set.
type Identity struct {
	UserID    *uint
	SessionID string
}

// IsUser reports whether the identity belongs to a signed-in user.
func (i Identity) IsUser() bool {
	return i.UserID != nil
}

// UserIdentity builds an identity for a signed-in user.
func UserIdentity(userID uint) Identity {
	return Identity{UserID: &userID}
}

// SessionIdentity builds an identity for an anonymous session.
func SessionIdentity(sessionID string) Identity {
	return Identity{SessionID: sessionID}
}

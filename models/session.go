package models

// IdentityKind is the authentication level of a session.
type IdentityKind string

const (
	IdentityAnonymous     IdentityKind = "anonymous"
	IdentityGuest         IdentityKind = "guest"
	IdentityAuthenticated IdentityKind = "authenticated"
)

// AnonymousUserID scopes quota for sessions without a user id.
const AnonymousUserID = "anonymous"

type Identity struct {
	Kind  IdentityKind `json:"kind"`
	UID   string       `json:"uid,omitempty"`
	Email string       `json:"email,omitempty"`
	Name  string       `json:"name,omitempty"`
	Phone string       `json:"phone,omitempty"`
}

// Session is the single live session of a device context.
type Session struct {
	Identity     Identity `json:"identity"`
	BearerToken  string   `json:"bearer_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in,omitempty"`
}

// AnonymousSession returns the logged-out session.
func AnonymousSession() Session {
	return Session{Identity: Identity{Kind: IdentityAnonymous}}
}

func (s Session) Authenticated() bool {
	return s.Identity.Kind == IdentityAuthenticated
}

// UserID is the id quota and rewards are scoped by.
func (s Session) UserID() string {
	if s.Identity.UID == "" {
		return AnonymousUserID
	}
	return s.Identity.UID
}

// RewardOwner keys the local reward list: email first, then uid.
func (s Session) RewardOwner() string {
	if s.Identity.Email != "" {
		return s.Identity.Email
	}
	return s.UserID()
}

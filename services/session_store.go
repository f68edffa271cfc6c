// services/session_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"spinwin/models"
	"spinwin/utils"

	"github.com/google/uuid"
)

// SessionStore owns the live session of one device and its persisted copy.
type SessionStore struct {
	backend Backend
	store   KeyValueStore
	keys    Keys

	mu      sync.RWMutex
	current models.Session
}

func NewSessionStore(backend Backend, store KeyValueStore, keys Keys) *SessionStore {
	return &SessionStore{
		backend: backend,
		store:   store,
		keys:    keys,
		current: models.AnonymousSession(),
	}
}

// Current returns a copy of the live session.
func (s *SessionStore) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Restore reloads the persisted session and re-validates its token. It never
// fails: anything unexpected leaves the device anonymous.
func (s *SessionStore) Restore(ctx context.Context) models.Session {
	var saved models.Session
	found, err := s.store.Load(ctx, s.keys.Session(), &saved)
	if err != nil {
		log.Printf("[SESSION] ⚠️ Persisted session unreadable, clearing: %v", err)
		return s.demote(ctx)
	}
	if !found {
		return s.set(models.AnonymousSession())
	}

	switch saved.Identity.Kind {
	case models.IdentityGuest:
		if saved.Identity.UID == "" {
			return s.demote(ctx)
		}
		log.Printf("[SESSION] 👤 Restored guest %s", saved.Identity.UID)
		return s.set(saved)
	case models.IdentityAuthenticated:
	default:
		return s.demote(ctx)
	}

	if saved.BearerToken == "" {
		return s.demote(ctx)
	}

	resp, err := s.backend.VerifyToken(ctx, saved.BearerToken)
	if err != nil {
		log.Printf("[SESSION] Token verification failed for %s, proceeding as logged out: %v", saved.Identity.Email, err)
		return s.demote(ctx)
	}
	if !resp.Valid {
		log.Printf("[SESSION] %v for %s (%s)", ErrTokenInvalid, saved.Identity.Email, resp.Reason)
		return s.demote(ctx)
	}

	log.Printf("[SESSION] ✅ Token verified, %s logged in", saved.Identity.Email)
	return s.set(saved)
}

// Login authenticates against the backend and persists the new session. On
// failure the previous session is left as it was.
func (s *SessionStore) Login(ctx context.Context, email, password string) (models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Session{}, &AuthError{Message: "Email and password are required"}
	}

	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		log.Printf("[SESSION] ❌ Login failed for %s: %v", email, err)
		return models.Session{}, &AuthError{Message: userMessage(err, "Login failed"), Err: err}
	}
	if resp.IDToken == "" {
		return models.Session{}, &AuthError{Message: "Login failed: no token issued"}
	}

	sess := sessionFromLogin(resp, email)
	prev := s.Current()
	if sess.Identity.Phone == "" && prev.Authenticated() && prev.Identity.UID == sess.Identity.UID {
		sess.Identity.Phone = prev.Identity.Phone
	}
	if err := s.Establish(ctx, sess); err != nil {
		return models.Session{}, err
	}
	log.Printf("[SESSION] ✅ User logged in: %s", sess.Identity.Email)
	return sess, nil
}

// Establish installs sess as the live session and persists it.
func (s *SessionStore) Establish(ctx context.Context, sess models.Session) error {
	if err := s.store.Save(ctx, s.keys.Session(), sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.set(sess)
	return nil
}

// Logout drops the session only. Quotas and rewards stay where they are.
func (s *SessionStore) Logout(ctx context.Context) error {
	prev := s.Current()
	if err := s.store.Remove(ctx, s.keys.Session()); err != nil {
		return err
	}
	s.set(models.AnonymousSession())
	log.Printf("[SESSION] 👋 %s logged out, spin data preserved", prev.RewardOwner())
	return nil
}

// EnsureGuest turns an anonymous session into a persisted guest. Guest and
// authenticated sessions are returned unchanged.
func (s *SessionStore) EnsureGuest(ctx context.Context) (models.Session, error) {
	cur := s.Current()
	if cur.Identity.Kind != models.IdentityAnonymous {
		return cur, nil
	}
	guest := models.Session{Identity: models.Identity{
		Kind: models.IdentityGuest,
		UID:  "guest-" + uuid.NewString(),
		Name: "Guest",
	}}
	if err := s.Establish(ctx, guest); err != nil {
		return models.Session{}, err
	}
	log.Printf("[SESSION] 👤 Guest identity %s created", guest.Identity.UID)
	return guest, nil
}

// UpdateProfile changes the locally held name and phone of an authenticated
// session.
func (s *SessionStore) UpdateProfile(ctx context.Context, name, phone string) (models.Session, error) {
	cur := s.Current()
	if !cur.Authenticated() {
		return models.Session{}, ErrNotAuthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Session{}, &ValidationError{Field: "name", Message: "Name cannot be empty"}
	}
	phone = utils.NormalizePhone(phone)
	if phone != "" && !utils.DigitsBetween(phone, 10, 15) {
		return models.Session{}, &ValidationError{Field: "phone", Message: "Please enter a valid mobile number"}
	}

	cur.Identity.Name = name
	cur.Identity.Phone = phone
	if err := s.Establish(ctx, cur); err != nil {
		return models.Session{}, err
	}
	return cur, nil
}

func (s *SessionStore) demote(ctx context.Context) models.Session {
	sessionDemotions.Inc()
	if err := s.store.Remove(ctx, s.keys.Session()); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[SESSION] ⚠️ Failed to clear persisted session: %v", err)
	}
	return s.set(models.AnonymousSession())
}

func (s *SessionStore) set(sess models.Session) models.Session {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return sess
}

func sessionFromLogin(resp *LoginResponse, email string) models.Session {
	name := resp.Name
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if resp.Email != "" {
		email = resp.Email
	}
	return models.Session{
		Identity: models.Identity{
			Kind:  models.IdentityAuthenticated,
			UID:   resp.UID,
			Email: email,
			Name:  name,
			Phone: utils.NormalizePhone(resp.Number),
		},
		BearerToken:  resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
}

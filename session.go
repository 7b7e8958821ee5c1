package main

import (
	"context"
	"fmt"
	"sync"
)

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticating
	stateAuthenticated
)

const unverifiedDoctorMessage = "Your account is not verified by admin yet. Please wait."

// SessionController owns the bearer token and the identity derived from it.
// The two always change together: a token that fails to decode clears both
// the in-memory session and the persisted copy. It is the single owner of
// token persistence side effects; views receive the controller explicitly.
type SessionController struct {
	client *APIClient
	store  *tokenStore

	mu       sync.Mutex
	state    sessionState
	token    string
	identity Identity
}

func newSessionController(client *APIClient, store *tokenStore) *SessionController {
	return &SessionController{
		client: client,
		store:  store,
	}
}

// Resume re-establishes the session from a token persisted by a prior run.
func (s *SessionController) Resume(ctx context.Context) {
	token, err := s.store.Load()
	if err != nil {
		logger(ctx, fmt.Errorf("token store read failed: %v", err))
		return
	}
	if token == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.adoptLocked(ctx, token); err != nil {
		// Logged, not surfaced: the user simply starts logged out
		logger(ctx, err)
	}
}

// Login exchanges credentials for a token and establishes the session. A
// doctor account that has not been verified by an admin is rejected locally
// and its token discarded, even though the remote API issued one.
func (s *SessionController) Login(ctx context.Context, email, password string) (Identity, error) {
	s.mu.Lock()
	s.state = stateAuthenticating
	s.mu.Unlock()

	resp, err := s.client.Authenticate(ctx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.resetLocked()
		return Identity{}, err
	}

	if resp.Role == RoleDoctor && resp.IsVerified != nil && *resp.IsVerified == 0 {
		s.resetLocked()
		return Identity{}, &AuthError{Message: unverifiedDoctorMessage}
	}

	if err := s.adoptLocked(ctx, resp.AccessToken); err != nil {
		return Identity{}, err
	}
	return s.identity, nil
}

// Logout clears the session and the persisted token.
func (s *SessionController) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked(ctx)
}

// Current returns the authenticated identity, if any.
func (s *SessionController) Current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateAuthenticated {
		return Identity{}, false
	}
	return s.identity, true
}

// Token reads the persisted token before an authenticated call. The store is
// the source of truth: if the token changed since it was adopted, the
// identity is re-derived; if it is gone or no longer decodes, the session is
// invalidated.
func (s *SessionController) Token(ctx context.Context) (string, Identity, error) {
	token, err := s.store.Load()
	if err != nil {
		logger(ctx, fmt.Errorf("token store read failed: %v", err))
		return "", Identity{}, &SessionError{Message: "Not logged in"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		s.resetLocked()
		return "", Identity{}, &SessionError{Message: "Not logged in"}
	}
	if token != s.token || s.state != stateAuthenticated {
		if err := s.adoptLocked(ctx, token); err != nil {
			return "", Identity{}, err
		}
	}
	return s.token, s.identity, nil
}

// adoptLocked derives the identity from the token and persists it. On decode
// failure the token and identity are cleared together.
func (s *SessionController) adoptLocked(ctx context.Context, token string) error {
	identity, err := identityFromToken(token)
	if err != nil {
		s.invalidateLocked(ctx)
		return &SessionError{Message: "Invalid session. Please log in again."}
	}

	if err := s.store.Save(token); err != nil {
		logger(ctx, fmt.Errorf("token store write failed: %v", err))
	}
	s.token = token
	s.identity = identity
	s.state = stateAuthenticated
	return nil
}

func (s *SessionController) invalidateLocked(ctx context.Context) {
	if err := s.store.Clear(); err != nil {
		logger(ctx, fmt.Errorf("token store clear failed: %v", err))
	}
	s.resetLocked()
}

func (s *SessionController) resetLocked() {
	s.token = ""
	s.identity = Identity{}
	s.state = stateUnauthenticated
}

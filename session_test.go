package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func newTestStore(t *testing.T) *tokenStore {
	t.Helper()
	return newTokenStore(filepath.Join(t.TempDir(), "token"))
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	token, err := store.Load()
	if err != nil || token != "" {
		t.Fatalf("Load on empty store = %q, %v", token, err)
	}

	if err := store.Save("abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	token, err = store.Load()
	if err != nil || token != "abc123" {
		t.Fatalf("Load after Save = %q, %v", token, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(store.path); !os.IsNotExist(err) {
		t.Fatal("token file should be gone after Clear")
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on a missing file should be a no-op, got %v", err)
	}
}

// loginServer serves POST /token, issuing a real signed token for the given
// role and optional verification status.
func loginServer(t *testing.T, role Role, id int, isVerified *int) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		token := makeToken(t, jwt.MapClaims{
			"sub":  r.PostForm.Get("username"),
			"role": string(role),
			"id":   float64(id),
		})
		resp := map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"role":         string(role),
		}
		if isVerified != nil {
			resp["is_verified"] = *isVerified
		}
		json.NewEncoder(w).Encode(resp)
	})
}

func TestLoginPersistsTokenAndIdentity(t *testing.T) {
	client := newTestClient(t, loginServer(t, RolePatient, 12, nil))
	store := newTestStore(t)
	session := newSessionController(client, store)

	identity, err := session.Login(context.Background(), "pat@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if identity.Email != "pat@example.com" || identity.Role != RolePatient || identity.ID != 12 {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	current, ok := session.Current()
	if !ok || current != identity {
		t.Fatalf("Current = %+v, %v", current, ok)
	}

	persisted, err := store.Load()
	if err != nil || persisted == "" {
		t.Fatalf("token not persisted: %q, %v", persisted, err)
	}
}

func TestLoginRejectsUnverifiedDoctor(t *testing.T) {
	unverified := 0
	client := newTestClient(t, loginServer(t, RoleDoctor, 3, &unverified))
	store := newTestStore(t)
	session := newSessionController(client, store)

	_, err := session.Login(context.Background(), "doc@example.com", "secret")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T (%v)", err, err)
	}
	if authErr.Message != unverifiedDoctorMessage {
		t.Fatalf("unexpected message: %q", authErr.Message)
	}

	// The issued token must not survive the rejection
	if _, ok := session.Current(); ok {
		t.Fatal("session should not be established")
	}
	if persisted, _ := store.Load(); persisted != "" {
		t.Fatal("token should not be persisted")
	}
}

func TestLoginAcceptsVerifiedDoctor(t *testing.T) {
	verified := 1
	client := newTestClient(t, loginServer(t, RoleDoctor, 3, &verified))
	session := newSessionController(client, newTestStore(t))

	identity, err := session.Login(context.Background(), "doc@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if identity.Role != RoleDoctor {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))
	session := newSessionController(client, newTestStore(t))

	_, err := session.Login(context.Background(), "pat@example.com", "wrong")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T (%v)", err, err)
	}
	if authErr.Message != "Incorrect email or password" {
		t.Fatalf("unexpected message: %q", authErr.Message)
	}
	if _, ok := session.Current(); ok {
		t.Fatal("session should not be established")
	}
}

func TestResumeFromPersistedToken(t *testing.T) {
	store := newTestStore(t)
	token := makeToken(t, jwt.MapClaims{"sub": "pat@example.com", "role": "patient", "id": float64(12)})
	if err := store.Save(token); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	session := newSessionController(newAPIClient("http://unused"), store)
	session.Resume(context.Background())

	identity, ok := session.Current()
	if !ok {
		t.Fatal("session should be resumed")
	}
	if identity.Email != "pat@example.com" || identity.Role != RolePatient {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestResumeClearsMalformedToken(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("not-a-jwt"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	session := newSessionController(newAPIClient("http://unused"), store)
	session.Resume(context.Background())

	if _, ok := session.Current(); ok {
		t.Fatal("malformed token should not establish a session")
	}
	if persisted, _ := store.Load(); persisted != "" {
		t.Fatal("malformed token should be cleared from the store")
	}
}

func TestTokenReadsStoreBeforeEachCall(t *testing.T) {
	store := newTestStore(t)
	session := newSessionController(newAPIClient("http://unused"), store)

	first := makeToken(t, jwt.MapClaims{"sub": "pat@example.com", "role": "patient", "id": float64(12)})
	if err := store.Save(first); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	session.Resume(context.Background())

	// Another run of the client replaced the token on disk
	second := makeToken(t, jwt.MapClaims{"sub": "doc@example.com", "role": "doctor", "id": float64(3)})
	if err := store.Save(second); err != nil {
		t.Fatalf("replace token: %v", err)
	}

	token, identity, err := session.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != second {
		t.Fatal("Token should pick up the replaced store token")
	}
	if identity.Role != RoleDoctor {
		t.Fatalf("identity not re-derived: %+v", identity)
	}
}

func TestTokenInvalidatesWhenStoreEmptied(t *testing.T) {
	store := newTestStore(t)
	session := newSessionController(newAPIClient("http://unused"), store)

	token := makeToken(t, jwt.MapClaims{"sub": "pat@example.com", "role": "patient", "id": float64(12)})
	if err := store.Save(token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	session.Resume(context.Background())

	if err := store.Clear(); err != nil {
		t.Fatalf("clear store: %v", err)
	}

	_, _, err := session.Token(context.Background())
	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("expected SessionError, got %T (%v)", err, err)
	}
	if _, ok := session.Current(); ok {
		t.Fatal("session should be invalidated")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	client := newTestClient(t, loginServer(t, RolePatient, 12, nil))
	store := newTestStore(t)
	session := newSessionController(client, store)

	if _, err := session.Login(context.Background(), "pat@example.com", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	session.Logout(context.Background())

	if _, ok := session.Current(); ok {
		t.Fatal("session should be cleared")
	}
	if persisted, _ := store.Load(); persisted != "" {
		t.Fatal("persisted token should be cleared")
	}
}

// Package auth holds the session store and the credential-verification
// collaborator. Sessions are an explicit instance owned by main, not a
// package-level map, so tests can build isolated stores.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/campuslabs/roomreserve/internal/models"
)

type Session struct {
	UserID  string
	Email   string
	IsAdmin bool
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]Session)}
}

// Create opens a session for the user and returns its ID.
func (s *SessionStore) Create(user *models.User) string {
	buf := make([]byte, 16)
	rand.Read(buf)
	id := hex.EncodeToString(buf)

	s.mu.Lock()
	s.sessions[id] = Session{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
	s.mu.Unlock()
	return id
}

func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Package memory holds process-local adapters used when Valkey is disabled.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/landplot/internal/core/domain"
)

type session struct {
	userID  int64
	expires time.Time
}

// SessionStore implements ports.SessionStore in memory. Sessions do not
// survive a restart and are not shared between replicas.
type SessionStore struct {
	mu     sync.Mutex
	tokens map[string]session
	now    func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tokens: make(map[string]session), now: time.Now}
}

func (m *SessionStore) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := uuid.NewString()
	m.tokens[token] = session{userID: userID, expires: m.now().Add(ttl)}
	return token, nil
}

func (m *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tokens[token]
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	if m.now().After(s.expires) {
		delete(m.tokens, token)
		return 0, domain.ErrUnauthorized
	}
	return s.userID, nil
}

func (m *SessionStore) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

package valkey

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/landplot/internal/core/domain"
)

const sessionPrefix = keyPrefix + "session:"

// SessionStore implements ports.SessionStore on top of the cache's client.
// Expiry is left to Valkey.
type SessionStore struct {
	client valkey.Client
}

// NewSessionStore shares c's connection.
func NewSessionStore(c *Cache) *SessionStore {
	return &SessionStore{client: c.client}
}

func (s *SessionStore) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	err := s.client.Do(ctx,
		s.client.B().Set().Key(sessionPrefix+token).Value(strconv.FormatInt(userID, 10)).Ex(ttl).Build(),
	).Error()
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	id, err := s.client.Do(ctx, s.client.B().Get().Key(sessionPrefix+token).Build()).AsInt64()
	if valkey.IsValkeyNil(err) {
		return 0, domain.ErrUnauthorized
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	err := s.client.Do(ctx, s.client.B().Del().Key(sessionPrefix+token).Build()).Error()
	if valkey.IsValkeyNil(err) {
		return nil
	}
	return err
}

package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
)

const minPasswordLen = 6

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxPasswordLen = 72

// ErrInvalidCredentials is returned by Login for an unknown email and for a
// wrong password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles user accounts and login sessions.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionStore
	ttl      time.Duration
	cost     int
}

// NewAuthService creates a new AuthService issuing sessions valid for ttl.
func NewAuthService(users ports.UserRepository, sessions ports.SessionStore, ttl time.Duration) *AuthService {
	return &AuthService{users: users, sessions: sessions, ttl: ttl, cost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) SetHashCost(cost int) { s.cost = cost }

// SessionTTL returns how long issued sessions stay valid.
func (s *AuthService) SessionTTL() time.Duration { return s.ttl }

// Signup creates an account.
func (s *AuthService) Signup(ctx context.Context, email, password, userType string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordLen)
	}
	if userType == "" {
		userType = "user"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Email: email, Type: userType, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		metrics.AuthAttempts.WithLabelValues("signup", "error").Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("signup", "ok").Inc()
	return user, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.AuthAttempts.WithLabelValues("login", "denied").Inc()
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "denied").Inc()
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, user.ID, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("issue session: %w", err)
	}
	metrics.AuthAttempts.WithLabelValues("login", "ok").Inc()
	return token, user, nil
}

// Logout revokes a session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, token)
}

// Profile resolves a session token to its user.
func (s *AuthService) Profile(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

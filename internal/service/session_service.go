package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/repository"
)

// SessionService issues and resolves login sessions. The token handed to the
// client is a signed JWT whose jti names a row in the session repository, so
// a token is only honoured while that row exists.
type SessionService interface {
	Issue(ctx context.Context, userID int64) (string, time.Time, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type sessionService struct {
	sessions repository.SessionRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository, secret string, ttl time.Duration) SessionService {
	return &sessionService{
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *sessionService) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	now := s.now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	// best effort; a failed purge must not block the login
	_, _ = s.sessions.DeleteExpired(ctx, now)

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, err
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, session.ExpiresAt, nil
}

func (s *sessionService) Resolve(ctx context.Context, token string) (int64, error) {
	claims, err := s.parse(token, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, domain.ErrAuthRequired
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, domain.ErrAuthRequired
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrAuthRequired
		}
		return 0, err
	}
	if session.UserID != userID || session.Expired(s.now()) {
		return 0, domain.ErrAuthRequired
	}
	return userID, nil
}

func (s *sessionService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		// nothing we issued; nothing to revoke
		return nil
	}
	return s.sessions.Delete(ctx, claims.ID)
}

func (s *sessionService) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, domain.ErrAuthRequired
	}
	return &claims, nil
}

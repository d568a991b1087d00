package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/repository"
)

// SessionRepository keeps sessions in redis; expiry is delegated to key TTLs.
type SessionRepository struct {
	rdb *goredis.Client
}

func NewSessionRepository(rdb *goredis.Client) repository.SessionRepository {
	return &SessionRepository{rdb: rdb}
}

type storedSession struct {
	UserID    int64 `json:"uid"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

func key(id string) string { return fmt.Sprintf("inventory:sess:%s", id) }

func (r *SessionRepository) Init(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return &domain.PersistenceError{Op: "store session", Err: errors.New("session already expired")}
	}
	b, err := json.Marshal(storedSession{
		UserID:    session.UserID,
		IssuedAt:  session.CreatedAt.Unix(),
		ExpiresAt: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, key(session.ID), b, ttl).Err(); err != nil {
		return &domain.PersistenceError{Op: "store session", Err: err}
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	b, err := r.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
		}
		return nil, &domain.PersistenceError{Op: "load session", Err: err}
	}
	var s storedSession
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{
		ID:        id,
		UserID:    s.UserID,
		CreatedAt: time.Unix(s.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(s.ExpiresAt, 0).UTC(),
	}, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, key(id)).Err(); err != nil {
		return &domain.PersistenceError{Op: "delete session", Err: err}
	}
	return nil
}

// DeleteExpired is a no-op: redis evicts sessions when their TTL lapses.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

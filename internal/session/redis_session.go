package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Vinodvinum/LibraryManagement/internal/auth"
)

// ErrNotFound is returned for an unknown or expired session.
var ErrNotFound = errors.New("session not found")

// Store keeps login sessions in Redis with a fixed TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

type record struct {
	Username  string    `json:"usr"`
	Role      auth.Role `json:"role"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
}

func key(id string) string { return fmt.Sprintf("library:sess:%s", id) }

// TTL is how long a new session lives.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores p under a fresh session id and returns the id.
func (s *Store) Create(ctx context.Context, p auth.Principal) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	b, err := json.Marshal(record{
		Username:  p.Username,
		Role:      p.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, key(id), b, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return id, nil
}

// Get loads the principal of session id.
func (s *Store) Get(ctx context.Context, id string) (*auth.Principal, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &auth.Principal{Username: r.Username, Role: r.Role}, nil
}

// Delete ends session id. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adrinerDP/madrinerbot/internal/parcel"
)

// Store keeps each user's latest ResultSet in Redis as a JSON array. Entries
// expire after TTL; a zero TTL keeps them until overwritten.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore constructs a Redis-backed session store.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl < 0 {
		ttl = 0
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key holding userID's results.
func (s *Store) Key(userID string) string {
	return s.prefix + userID
}

// Put overwrites the stored ResultSet for userID and resets its expiry.
func (s *Store) Put(ctx context.Context, userID string, results parcel.ResultSet) error {
	if s == nil || s.client == nil {
		return errors.New("session: redis client not configured")
	}
	if results == nil {
		results = parcel.ResultSet{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return s.client.Set(ctx, s.Key(userID), data, s.ttl).Err()
}

// Get returns the ResultSet for userID. found is false when nothing is stored
// or the entry expired.
func (s *Store) Get(ctx context.Context, userID string) (parcel.ResultSet, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, errors.New("session: redis client not configured")
	}
	data, err := s.client.Get(ctx, s.Key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var results parcel.ResultSet
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("session: decode %s: %w", s.Key(userID), err)
	}
	if results == nil {
		return nil, false, nil
	}
	return results, true, nil
}

var _ parcel.SessionStore = (*Store)(nil)

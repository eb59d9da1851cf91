// Package redis stores credentials in a Redis hash.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coredex-source/Cryovex-Launcher/internal/store"
)

// Store implements store.Store on a Redis hash.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a Store using client. Keys are prefixed with prefix.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

func (s *Store) key() string {
	return s.prefix + "current"
}

func (s *Store) Save(ctx context.Context, creds store.Credentials) error {
	entry := map[string]interface{}{
		"access_token":  creds.AccessToken,
		"refresh_token": creds.RefreshToken,
		"username":      creds.Username,
		"uuid":          creds.UUID,
		"saved_at":      creds.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	// Replace rather than merge so no field of a previous account survives.
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key())
		pipe.HSet(ctx, s.key(), entry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials in redis: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*store.Credentials, error) {
	res, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load credentials from redis: %w", err)
	}
	if len(res) == 0 {
		return nil, store.ErrNotFound
	}

	creds := &store.Credentials{
		AccessToken:  res["access_token"],
		RefreshToken: res["refresh_token"],
		Username:     res["username"],
		UUID:         res["uuid"],
	}
	if v := res["saved_at"]; v != "" {
		savedAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid saved_at in redis: %w", err)
		}
		creds.SavedAt = savedAt
	}
	return creds, nil
}

func (s *Store) Delete(ctx context.Context) error {
	n, err := s.client.Del(ctx, s.key()).Result()
	if err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.Store = (*Store)(nil)

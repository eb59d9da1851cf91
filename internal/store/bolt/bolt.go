// Package bolt stores credentials in a bbolt database file.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/coredex-source/Cryovex-Launcher/internal/store"
)

var (
	bucketName = []byte("credentials")
	currentKey = []byte("current")
)

// Store implements store.Store on bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path and its bucket.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(_ context.Context, creds store.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(currentKey, data)
	})
}

func (s *Store) Load(_ context.Context) (*store.Credentials, error) {
	var creds *store.Credentials
	err := s.db.View(func(tx *bbolt.Tx) error {
		// Get's slice is only valid inside the transaction; Unmarshal copies it.
		data := tx.Bucket(bucketName).Get(currentKey)
		if data == nil {
			return store.ErrNotFound
		}
		creds = &store.Credentials{}
		if err := json.Unmarshal(data, creds); err != nil {
			return fmt.Errorf("failed to decode credentials: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

func (s *Store) Delete(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get(currentKey) == nil {
			return store.ErrNotFound
		}
		return b.Delete(currentKey)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jeranaias/parley/internal/util"
)

var boltBucket = []byte("parley")

// BoltKV stores keys in one bbolt bucket.
type BoltKV struct {
	db *bolt.DB
}

// OpenBoltKV opens or creates the database at path. The open times out if
// another process holds the file lock.
func OpenBoltKV(path string) (*BoltKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), util.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltKV{db: db}, nil
}

// Get reads key.
func (b *BoltKV) Get(key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		// Bytes are only valid inside the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	return value, ok, err
}

// Set writes key.
func (b *BoltKV) Set(key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

// Delete removes key.
func (b *BoltKV) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Close releases the database file lock.
func (b *BoltKV) Close() error {
	return b.db.Close()
}

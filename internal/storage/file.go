// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jeranaias/parley/internal/util"
)

// FileKV stores each key in its own file under Dir.
type FileKV struct {
	Dir string
}

// NewFileKV creates the directory if needed and returns a FileKV rooted there.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("file storage requires a directory")
	}
	if err := os.MkdirAll(dir, util.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileKV{Dir: dir}, nil
}

// Path returns the file backing key. The conversations blob is JSON and
// gets the extension so it can be opened directly.
func (f *FileKV) Path(key string) string {
	if key == KeyConversations {
		return filepath.Join(f.Dir, key+".json")
	}
	return filepath.Join(f.Dir, key)
}

// Get reads key.
func (f *FileKV) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	data, ok, err := util.ReadFileIfExists(f.Path(key))
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

// Set writes key atomically.
func (f *FileKV) Set(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return util.AtomicWriteFile(f.Path(key), []byte(value), 0o600)
}

// Delete removes key. Deleting a missing key is not an error.
func (f *FileKV) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(f.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op.
func (f *FileKV) Close() error {
	return nil
}

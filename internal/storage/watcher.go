// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/parley/internal/util"
)

// ErrWatchUnsupported is returned by Watch for backends without files to
// observe.
var ErrWatchUnsupported = errors.New("storage backend does not support watching")

// DefaultDebounce coalesces the burst of events produced by one atomic write.
const DefaultDebounce = 150 * time.Millisecond

// Watch calls onChange when another process rewrites the conversations blob.
// Writes made through this adapter are ignored. Watch returns once the
// watcher is running; it stops when ctx is cancelled.
//
// The directory is watched rather than the file because atomic writes
// replace the file with a new inode.
func (a *Adapter) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	fkv, ok := a.kv.(*FileKV)
	if !ok {
		return ErrWatchUnsupported
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(fkv.Dir); err != nil {
		watcher.Close()
		return err
	}

	target := filepath.Clean(fkv.Path(KeyConversations))
	go a.processEvents(ctx, watcher, target, debounce, onChange)
	return nil
}

func (a *Adapter) processEvents(ctx context.Context, watcher *fsnotify.Watcher, target string, debounce time.Duration, onChange func()) {
	defer watcher.Close()
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("WATCH_PANIC")
		}
	}()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			data, ok, err := util.ReadFileIfExists(target)
			if err != nil || !ok {
				continue
			}
			if !a.Changed(data) {
				continue
			}
			a.remember(data)
			a.log.WithField("path", target).Info("WATCH_RELOAD")
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			a.log.WithFields(logrus.Fields{"error": err}).Warn("WATCH_ERROR")
		}
	}
}

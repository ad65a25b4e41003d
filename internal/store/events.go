// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import "sort"

// EventKind identifies what changed.
type EventKind int

const (
	EventLoaded EventKind = iota
	EventCreated
	EventCurrentChanged
	EventMessageAppended
	EventRenamed
	EventArchived
	EventDeleted
	EventImported
	EventPersistFailed
)

var eventNames = map[EventKind]string{
	EventLoaded:          "loaded",
	EventCreated:         "created",
	EventCurrentChanged:  "current_changed",
	EventMessageAppended: "message_appended",
	EventRenamed:         "renamed",
	EventArchived:        "archived",
	EventDeleted:         "deleted",
	EventImported:        "imported",
	EventPersistFailed:   "persist_failed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event describes one store change. ID is the affected conversation, if
// any. Err is set for EventPersistFailed.
type Event struct {
	Kind EventKind
	ID   string
	Err  error
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Events are delivered on the mutating goroutine after the
// store lock is released, so fn may call back into the store.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

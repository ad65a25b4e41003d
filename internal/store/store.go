// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/storage"
)

// =============================================================================
// STORE
// =============================================================================

// Store holds every conversation and the current pointer.
type Store struct {
	adapter *storage.Adapter
	log     logrus.FieldLogger
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	convs     []*model.Conversation
	currentID string

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger. The default discards.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// New creates an empty store backed by adapter. Call Load to read persisted
// state.
func New(adapter *storage.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		now:     time.Now,
		newID:   uuid.NewString,
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDiscard(s.log)
	return s
}

// =============================================================================
// LOADING
// =============================================================================

// Load replaces in-memory state with whatever is persisted. A corrupt blob
// starts an empty collection; malformed entries are skipped individually.
// The persisted current pointer is restored only if it still names a
// conversation. Load never writes.
func (s *Store) Load() []*model.Conversation {
	convs := s.decodePersisted()

	s.mu.Lock()
	s.convs = convs
	s.currentID = ""
	if id, ok := s.adapter.LoadCurrentID(); ok && s.indexLocked(id) >= 0 {
		s.currentID = id
	}
	s.sortLocked()
	out := s.snapshotLocked(true)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"count": len(out), "current": s.CurrentID()}).Info("STORE_LOADED")
	s.emit([]Event{{Kind: EventLoaded}})
	return out
}

func (s *Store) decodePersisted() []*model.Conversation {
	raw, ok := s.adapter.LoadRaw()
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.WithField("error", err).Warn("LOAD_CORRUPT")
		return nil
	}

	convs := make([]*model.Conversation, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		var conv model.Conversation
		if err := json.Unmarshal(entry, &conv); err != nil {
			s.log.WithFields(logrus.Fields{"index": i, "error": err}).Warn("LOAD_SKIP_MALFORMED")
			continue
		}
		if conv.ID == "" || seen[conv.ID] {
			s.log.WithFields(logrus.Fields{"index": i, "id": conv.ID}).Warn("LOAD_SKIP_INVALID_ID")
			continue
		}
		seen[conv.ID] = true
		if conv.Messages == nil {
			conv.Messages = make([]model.Message, 0)
		}
		if strings.TrimSpace(conv.Title) == "" {
			conv.Title = model.DefaultTitle
		}
		convs = append(convs, &conv)
	}
	return convs
}

// Reload re-reads persisted state written by another process and keeps the
// current pointer when it still exists.
func (s *Store) Reload() []*model.Conversation {
	prev := s.CurrentID()
	convs := s.decodePersisted()

	s.mu.Lock()
	s.convs = convs
	if s.indexLocked(prev) < 0 {
		prev = ""
	}
	s.currentID = prev
	s.sortLocked()
	out := s.snapshotLocked(true)
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventLoaded}})
	return out
}

// EnsureCurrent guarantees a current conversation: the first non-archived
// one, else the first one, else a freshly created one. It returns the
// current id.
func (s *Store) EnsureCurrent() string {
	s.mu.Lock()
	if s.currentID != "" {
		id := s.currentID
		s.mu.Unlock()
		return id
	}
	if next := s.fallbackLocked(); next != "" {
		s.currentID = next
		events := []Event{{Kind: EventCurrentChanged, ID: next}}
		events = s.savePointerLocked(events)
		s.mu.Unlock()
		s.emit(events)
		return next
	}
	s.mu.Unlock()
	return s.Create().ID
}

// =============================================================================
// QUERIES
// =============================================================================

// Find returns a copy of the conversation with id.
func (s *Store) Find(id string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.convs[i].Clone(), true
	}
	return nil, false
}

// Current returns a copy of the current conversation.
func (s *Store) Current() (*model.Conversation, bool) {
	s.mu.Lock()
	id := s.currentID
	s.mu.Unlock()
	if id == "" {
		return nil, false
	}
	return s.Find(id)
}

// CurrentID returns the current conversation id, or "" if none.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Search returns conversations whose title or message text contains term,
// case-insensitively. An empty term matches everything. Archived
// conversations are included only when includeArchived is set, and are
// grouped after the active ones. Within each group the most recently
// updated come first.
func (s *Store) Search(term string, includeArchived bool) []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active, archived []*model.Conversation
	for _, c := range s.convs {
		if c.IsArchived && !includeArchived {
			continue
		}
		if !c.Matches(term) {
			continue
		}
		if c.IsArchived {
			archived = append(archived, c.Clone())
		} else {
			active = append(active, c.Clone())
		}
	}
	return append(active, archived...)
}

// List returns every conversation, grouped like Search.
func (s *Store) List(includeArchived bool) []*model.Conversation {
	return s.Search("", includeArchived)
}

// Snapshot returns copies of every conversation in store order.
func (s *Store) Snapshot() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(true)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create adds an empty conversation at the front and makes it current.
func (s *Store) Create() *model.Conversation {
	s.mu.Lock()
	conv := model.NewConversation(s.newID(), s.now())
	s.convs = append([]*model.Conversation{conv}, s.convs...)
	s.currentID = conv.ID
	s.sortLocked()

	events := []Event{{Kind: EventCreated, ID: conv.ID}, {Kind: EventCurrentChanged, ID: conv.ID}}
	events = s.saveAllLocked(events)
	out := conv.Clone()
	s.mu.Unlock()

	s.log.WithField("id", out.ID).Debug("CONVERSATION_CREATED")
	s.emit(events)
	return out
}

// SetCurrent selects id. Unknown ids are ignored and return false. Only the
// pointer key is written.
func (s *Store) SetCurrent(id string) bool {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return false
	}
	if s.currentID == id {
		s.mu.Unlock()
		return true
	}
	s.currentID = id
	events := []Event{{Kind: EventCurrentChanged, ID: id}}
	events = s.savePointerLocked(events)
	s.mu.Unlock()

	s.emit(events)
	return true
}

// AppendMessage adds msg to conversation id and returns the stored message.
//
// Blank content is rejected with ErrEmptyContent and nothing changes.
// Unknown roles are stored as user and a zero timestamp becomes now. The
// first message of a conversation still carrying the placeholder title
// sets the title.
func (s *Store) AppendMessage(id string, msg model.Message) (model.Message, error) {
	if msg.IsBlank() {
		return model.Message{}, ErrEmptyContent
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithField("id", id).Warn("APPEND_UNKNOWN_CONVERSATION")
		return model.Message{}, ErrConversationNotFound
	}

	now := s.now()
	msg.Role = model.ParseRole(string(msg.Role))
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}

	conv := s.convs[i]
	conv.Messages = append(conv.Messages, msg)
	if len(conv.Messages) == 1 && conv.HasPlaceholderTitle() {
		conv.Title = model.DeriveTitle(msg.Content)
	}
	conv.UpdatedAt = now
	s.sortLocked()

	events := []Event{{Kind: EventMessageAppended, ID: id}}
	events = s.saveAllLocked(events)
	s.mu.Unlock()

	s.emit(events)
	return msg, nil
}

// Rename sets the title of id. A blank title becomes the placeholder. An
// unchanged title is a no-op.
func (s *Store) Rename(id, title string) error {
	title = model.NormalizeTitle(title)

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	conv := s.convs[i]
	if conv.Title == title {
		s.mu.Unlock()
		return nil
	}
	conv.Title = title
	conv.UpdatedAt = s.now()
	s.sortLocked()

	events := []Event{{Kind: EventRenamed, ID: id}}
	events = s.saveAllLocked(events)
	s.mu.Unlock()

	s.emit(events)
	return nil
}

// ToggleArchive flips the archive flag of id and returns the new value.
func (s *Store) ToggleArchive(id string) (bool, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false, ErrConversationNotFound
	}
	conv := s.convs[i]
	conv.IsArchived = !conv.IsArchived
	conv.UpdatedAt = s.now()
	archived := conv.IsArchived
	s.sortLocked()

	events := []Event{{Kind: EventArchived, ID: id}}
	events = s.saveAllLocked(events)
	s.mu.Unlock()

	s.emit(events)
	return archived, nil
}

// Delete removes id. When it was current, the first non-archived
// conversation becomes current, else the first remaining one, else a new
// conversation is created. The new current id is returned.
func (s *Store) Delete(id string) (string, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return "", ErrConversationNotFound
	}
	s.convs = append(s.convs[:i], s.convs[i+1:]...)
	events := []Event{{Kind: EventDeleted, ID: id}}

	if s.currentID != id {
		current := s.currentID
		events = s.saveAllLocked(events)
		s.mu.Unlock()
		s.emit(events)
		return current, nil
	}

	next := s.fallbackLocked()
	s.currentID = next
	if next != "" {
		events = append(events, Event{Kind: EventCurrentChanged, ID: next})
	}
	events = s.saveAllLocked(events)
	s.mu.Unlock()
	s.emit(events)

	if next == "" {
		return s.Create().ID, nil
	}
	return next, nil
}

// =============================================================================
// INTERNALS (caller holds s.mu)
// =============================================================================

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range s.convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// sortLocked orders by UpdatedAt descending. The sort is stable, so equal
// timestamps keep their current order.
func (s *Store) sortLocked() {
	sort.SliceStable(s.convs, func(i, j int) bool {
		return s.convs[i].UpdatedAt.After(s.convs[j].UpdatedAt)
	})
}

func (s *Store) fallbackLocked() string {
	for _, c := range s.convs {
		if !c.IsArchived {
			return c.ID
		}
	}
	if len(s.convs) > 0 {
		return s.convs[0].ID
	}
	return ""
}

func (s *Store) snapshotLocked(includeArchived bool) []*model.Conversation {
	out := make([]*model.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		if c.IsArchived && !includeArchived {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// saveAllLocked persists the collection and the pointer. Each key is
// written even if the other fails.
func (s *Store) saveAllLocked(events []Event) []Event {
	if err := s.adapter.Save(s.convs); err != nil {
		events = append(events, Event{Kind: EventPersistFailed, Err: err})
	}
	return s.savePointerLocked(events)
}

func (s *Store) savePointerLocked(events []Event) []Event {
	if err := s.adapter.SaveCurrentID(s.currentID); err != nil {
		events = append(events, Event{Kind: EventPersistFailed, Err: err})
	}
	return events
}

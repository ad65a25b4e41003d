// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/parley/internal/model"
)

// importedMessage is decoded leniently; a message with a malformed
// timestamp is kept and stamped with the import time.
type importedMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
	IsError   bool            `json:"isError"`
}

// ImportRecord adds a conversation from an exported record.
//
// The record must be a JSON object with an id (any non-blank string,
// non-zero number or true) and a messages array, otherwise a *FormatError is returned and nothing
// changes. The record's id is discarded in favour of a fresh one and the
// archive flag is cleared. The imported conversation goes to the front and
// becomes current.
func (s *Store) ImportRecord(raw []byte) (*model.Conversation, error) {
	conv, err := s.decodeRecord(raw)
	if err != nil {
		s.log.WithField("error", err).Warn("IMPORT_REJECTED")
		return nil, err
	}

	s.mu.Lock()
	conv.ID = s.newID()
	conv.IsArchived = false
	s.convs = append([]*model.Conversation{conv}, s.convs...)
	s.currentID = conv.ID
	s.sortLocked()

	events := []Event{{Kind: EventImported, ID: conv.ID}, {Kind: EventCurrentChanged, ID: conv.ID}}
	events = s.saveAllLocked(events)
	out := conv.Clone()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"id": out.ID, "messages": len(out.Messages)}).Info("CONVERSATION_IMPORTED")
	s.emit(events)
	return out, nil
}

func (s *Store) decodeRecord(raw []byte) (*model.Conversation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &FormatError{Reason: "not a JSON object", Err: err}
	}

	if !hasRecordID(fields["id"]) {
		return nil, &FormatError{Reason: "missing id"}
	}

	rawMessages := bytes.TrimSpace(fields["messages"])
	if len(rawMessages) == 0 || rawMessages[0] != '[' {
		return nil, &FormatError{Reason: "messages is not an array"}
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawMessages, &entries); err != nil {
		return nil, &FormatError{Reason: "messages is not an array", Err: err}
	}

	now := s.now()
	conv := model.NewConversation("", now)

	var title string
	if err := json.Unmarshal(fields["title"], &title); err == nil {
		conv.Title = model.NormalizeTitle(title)
	}
	if t, ok := decodeTime(fields["createdAt"]); ok {
		conv.CreatedAt = t
	}
	if t, ok := decodeTime(fields["updatedAt"]); ok {
		conv.UpdatedAt = t
	}

	for _, entry := range entries {
		var m importedMessage
		if err := json.Unmarshal(entry, &m); err != nil {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		ts, ok := decodeTime(m.Timestamp)
		if !ok {
			ts = now
		}
		conv.Messages = append(conv.Messages, model.Message{
			Role:      model.ParseRole(m.Role),
			Content:   m.Content,
			Timestamp: ts,
			IsError:   m.IsError,
		})
	}
	return conv, nil
}

// hasRecordID reports whether raw is a usable id: a non-blank string, a
// non-zero number or true. The value itself is replaced on import.
func hasRecordID(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id) != ""
	case float64:
		return id != 0
	case bool:
		return id
	default:
		return false
	}
}

func decodeTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// ExportRecord returns the conversation as indented JSON, the format
// ImportRecord accepts.
func (s *Store) ExportRecord(id string) ([]byte, error) {
	conv, ok := s.Find(id)
	if !ok {
		return nil, ErrConversationNotFound
	}
	return json.MarshalIndent(conv, "", "  ")
}

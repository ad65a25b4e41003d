// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReply_Text(t *testing.T) {
	tests := []struct {
		name  string
		reply *Reply
		ok    bool
	}{
		{"nil reply", nil, false},
		{"nil message", &Reply{}, false},
		{"blank content", NewReply("  \n"), false},
		{"content", NewReply("hi"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := tc.reply.Text()
			if ok != tc.ok {
				t.Errorf("Text() ok = %v, want %v", ok, tc.ok)
			}
		})
	}
}

func TestRateLimited_Unlimited(t *testing.T) {
	c := CompleterFunc(func(ctx context.Context, turns []Turn) (*Reply, error) {
		return NewReply("x"), nil
	})
	if got := RateLimited(c, 0); got == nil {
		t.Fatal("RateLimited returned nil")
	}
}

func TestRateLimited_WaitHonoursContext(t *testing.T) {
	calls := 0
	c := RateLimited(CompleterFunc(func(ctx context.Context, turns []Turn) (*Reply, error) {
		calls++
		return NewReply("x"), nil
	}), 1)

	if _, err := c.Complete(context.Background(), nil); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// The next token is a minute away; a short deadline must fail fast.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Complete(ctx, nil)
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("limiter waited %v despite deadline", time.Since(start))
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancel error: %v", err)
	}
}

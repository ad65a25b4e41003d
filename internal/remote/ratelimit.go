// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type limitedCompleter struct {
	next    Completer
	limiter *rate.Limiter
}

// RateLimited wraps next so that at most perMinute requests start per
// minute, with bursts of one. Zero or negative perMinute leaves next
// unwrapped.
func RateLimited(next Completer, perMinute int) Completer {
	if perMinute <= 0 {
		return next
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	return &limitedCompleter{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (l *limitedCompleter) Complete(ctx context.Context, turns []Turn) (*Reply, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return l.next.Complete(ctx, turns)
}

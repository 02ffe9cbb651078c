// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package deps

import (
	"context"
	"sync"
	"time"
)

// hostLimits documents the queries-per-minute budget for each registry
// host; values are conservative, publicly documented defaults.
var hostLimits = map[string]int{
	"registry.npmjs.org": 300,
	"pypi.org":            60,
	"registry-1.docker.io": 100,
	"crates.io":            60,
	"proxy.golang.org":     120,
}

const defaultQPM = 60

// TokenBucket is a simple per-host rate limiter: Take blocks until a
// token is available, refilling at a constant rate.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

func newTokenBucket(qpm int) *TokenBucket {
	rate := float64(qpm) / 60.0
	return &TokenBucket{tokens: rate, capacity: rate, rate: rate, last: monotonicNow()}
}

// Take blocks until a token is available or ctx is done.
func (b *TokenBucket) Take(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := monotonicNow()
		elapsed := now.Sub(b.last).Seconds()
		b.last = now
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter holds one TokenBucket per registry host, created lazily.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*TokenBucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*TokenBucket)}
}

func (r *RateLimiter) Wait(ctx context.Context, host string) error {
	r.mu.Lock()
	b, ok := r.buckets[host]
	if !ok {
		qpm, known := hostLimits[host]
		if !known {
			qpm = defaultQPM
		}
		b = newTokenBucket(qpm)
		r.buckets[host] = b
	}
	r.mu.Unlock()
	return b.Take(ctx)
}

// monotonicNow is isolated so tests can't accidentally depend on wall
// clock granularity; it is still real time, just named for clarity at
// call sites that care about elapsed duration rather than a timestamp.
func monotonicNow() time.Time { return time.Now() }

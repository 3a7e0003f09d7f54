// Copyright 2025 Certen Protocol
//
// Package nonce implements the time-bounded nonce ledger that backs replay
// protection on the privileged key-retrieval path.
package nonce

import (
	"fmt"
	"sync"
	"time"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
)

const defaultWindow = 300 * time.Second

// Ledger tracks consumed nonces for the duration of their validity window.
type Ledger struct {
	mu     sync.RWMutex
	window time.Duration
	expiry map[string]int64 // nonce -> expiry unix seconds

	stop chan struct{}
	once sync.Once
}

// NewLedger returns a ledger with the given validity window. A zero or
// negative window falls back to the 300-second default.
func NewLedger(window time.Duration) *Ledger {
	if window <= 0 {
		window = defaultWindow
	}
	return &Ledger{
		window: window,
		expiry: make(map[string]int64),
		stop:   make(chan struct{}),
	}
}

// VerifyAndConsume checks nonce against the replay window anchored at ts
// (Unix seconds) and, on success, records it as consumed. now is the
// caller's current Unix time in seconds, passed in so tests can control
// drift without sleeping.
func (l *Ledger) VerifyAndConsume(nonce string, ts int64, now int64) error {
	drift := now - ts
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(l.window/time.Second) {
		return apperrors.New(apperrors.PermissionDenied, "nonce.VerifyAndConsume", "timestamp outside validity window")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.expiry[nonce]; ok {
		return apperrors.New(apperrors.PermissionDenied, "nonce.VerifyAndConsume", "replay detected")
	}
	l.expiry[nonce] = ts + int64(l.window/time.Second)
	return nil
}

// StartSweeper launches a background goroutine that prunes expired entries
// once per minute until Stop is called. nowFn supplies the current Unix
// time so tests do not need to wait a full minute for a sweep to matter.
func (l *Ledger) StartSweeper(nowFn func() int64) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep(nowFn())
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop halts the background sweeper. Safe to call multiple times.
func (l *Ledger) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Ledger) sweep(now int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for n, exp := range l.expiry {
		if exp <= now {
			delete(l.expiry, n)
		}
	}
}

// Size reports the number of tracked nonces, for tests and metrics.
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.expiry)
}

func (l *Ledger) String() string {
	return fmt.Sprintf("nonce.Ledger{window=%s, tracked=%d}", l.window, l.Size())
}

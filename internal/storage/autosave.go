/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	applog "fitplan/internal/log"
)

// ErrAutosaverClosed is returned by Flush after Close.
var ErrAutosaverClosed = errors.New("storage: autosaver closed")

// DraftSink receives drafts from the autosaver. *DraftStore implements it.
type DraftSink interface {
	Save(ctx context.Context, d Draft) error
}

// Autosaver debounces draft writes: a burst of Notify calls results in one
// Save of the latest draft once the debounce window has passed quietly.
type Autosaver struct {
	sink     DraftSink
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *Draft
	seq     uint64
	closed  bool
	lastErr error

	saveMu sync.Mutex
	saved  uint64
}

// NewAutosaver returns an autosaver writing to sink. A non-positive debounce
// defaults to two seconds.
func NewAutosaver(sink DraftSink, debounce time.Duration) *Autosaver {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Autosaver{sink: sink, debounce: debounce, log: applog.WithComponent("autosave")}
}

// Notify records d as the latest draft and restarts the debounce window.
func (a *Autosaver) Notify(d Draft) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.seq++
	a.pending = &d
	if a.timer == nil {
		a.timer = time.AfterFunc(a.debounce, a.onTimer)
		return
	}
	a.timer.Reset(a.debounce)
}

func (a *Autosaver) onTimer() {
	if err := a.write(context.Background()); err != nil {
		a.log.Warn("autosave failed", slog.Any("err", err))
	}
}

// take hands out the pending draft with its sequence number.
func (a *Autosaver) take() (*Draft, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.pending
	a.pending = nil
	return d, a.seq
}

// write saves the pending draft unless a newer one was saved meanwhile.
func (a *Autosaver) write(ctx context.Context) error {
	d, seq := a.take()
	if d == nil {
		return nil
	}
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	if seq <= a.saved {
		return nil
	}
	err := a.sink.Save(ctx, *d)
	a.mu.Lock()
	a.lastErr = err
	if err != nil && a.pending == nil {
		// Keep the draft for the next attempt.
		a.pending = d
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.saved = seq
	return nil
}

// Flush saves the pending draft now, bypassing the debounce window.
func (a *Autosaver) Flush(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAutosaverClosed
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	return a.write(ctx)
}

// Pending reports whether a draft is waiting to be written.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Err returns the result of the most recent save attempt.
func (a *Autosaver) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Close flushes and stops accepting drafts.
func (a *Autosaver) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	err := a.Flush(ctx)
	if errors.Is(err, ErrAutosaverClosed) {
		return nil
	}
	a.mu.Lock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	return err
}

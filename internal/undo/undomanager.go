/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"fitplan/internal/domain"
)

// Snapshot is a program tree captured before an edit.
// Trees are never mutated after capture, so the manager stores them by value.
type Snapshot struct {
	Key   domain.SeedID
	Tree  domain.Session
	Label string
	TS    time.Time
}

func (s Snapshot) size() int { return s.Tree.CountNodes() }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxNodes is a soft cap on the nodes held across all stacks; oldest entries go first.
	MaxNodes int
	// MaxPerKey limits the undo depth per session (0 means unlimited).
	MaxPerKey int
	// MinInterval merges edits captured within the interval into one undo step.
	MinInterval time.Duration
}

// Manager keeps undo/redo stacks per session seed. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo map[domain.SeedID][]Snapshot
	redo map[domain.SeedID][]Snapshot

	totalNodes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = 200_000
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[domain.SeedID][]Snapshot), redo: make(map[domain.SeedID][]Snapshot)}
}

// Push records the state before an edit. When the previous entry for the
// same key is younger than MinInterval the older tree is kept and only its
// timestamp moves, so a burst of edits undoes in one step. Redo is cleared.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Key)
	stack := m.undo[s.Key]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		stack[n-1].TS = s.TS
		return
	}
	m.undo[s.Key] = append(stack, s)
	m.totalNodes += s.size()
	m.enforceCapsLocked(s.Key)
}

// Undo returns the tree to restore and moves current onto the redo stack.
func (m *Manager) Undo(key domain.SeedID, current domain.Session) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[key]
	if len(stack) == 0 {
		return domain.Session{}, false
	}
	prev := stack[len(stack)-1]
	m.undo[key] = stack[:len(stack)-1]
	m.totalNodes -= prev.size()
	cur := Snapshot{Key: key, Tree: current, Label: prev.Label, TS: time.Now()}
	m.redo[key] = append(m.redo[key], cur)
	m.totalNodes += cur.size()
	return prev.Tree, true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(key domain.SeedID, current domain.Session) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[key]
	if len(r) == 0 {
		return domain.Session{}, false
	}
	next := r[len(r)-1]
	m.redo[key] = r[:len(r)-1]
	m.totalNodes -= next.size()
	// Not coalesced: a redo must undo to exactly where it came from.
	back := Snapshot{Key: key, Tree: current, Label: next.Label, TS: time.Now().Add(-m.cfg.MinInterval)}
	m.undo[key] = append(m.undo[key], back)
	m.totalNodes += back.size()
	m.enforceCapsLocked(key)
	return next.Tree, true
}

// CanUndo and CanRedo report whether the stacks for key are non-empty.
func (m *Manager) CanUndo(key domain.SeedID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[key]) > 0
}

func (m *Manager) CanRedo(key domain.SeedID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[key]) > 0
}

// Clear drops both stacks for key.
func (m *Manager) Clear(key domain.SeedID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[key] {
		m.totalNodes -= s.size()
	}
	m.dropRedoLocked(key)
	delete(m.undo, key)
	if m.totalNodes < 0 {
		m.totalNodes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalNodes int, keys int, undoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys = len(m.undo)
	for _, v := range m.undo {
		undoDepth += len(v)
	}
	return m.totalNodes, keys, undoDepth
}

func (m *Manager) dropRedoLocked(key domain.SeedID) {
	for _, s := range m.redo[key] {
		m.totalNodes -= s.size()
	}
	delete(m.redo, key)
}

func (m *Manager) enforceCapsLocked(key domain.SeedID) {
	if m.cfg.MaxPerKey > 0 {
		stack := m.undo[key]
		if extra := len(stack) - m.cfg.MaxPerKey; extra > 0 {
			for _, s := range stack[:extra] {
				m.totalNodes -= s.size()
			}
			m.undo[key] = append([]Snapshot(nil), stack[extra:]...)
		}
	}
	// Global cap: prune the oldest undo entry across all keys, never the one just pushed.
	for m.totalNodes > m.cfg.MaxNodes {
		var (
			oldestKey domain.SeedID
			oldestTS  time.Time
			found     bool
		)
		for k, stack := range m.undo {
			if len(stack) == 0 || (k == key && len(stack) == 1) {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestKey, oldestTS, found = k, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestKey]
		m.totalNodes -= stack[0].size()
		m.undo[oldestKey] = stack[1:]
		if len(m.undo[oldestKey]) == 0 {
			delete(m.undo, oldestKey)
		}
	}
}

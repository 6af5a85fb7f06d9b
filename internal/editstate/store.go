/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editstate

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fitplan/internal/domain"
	applog "fitplan/internal/log"
	"fitplan/internal/undo"
)

// Reducer is one edit applied to the working tree.
type Reducer func(domain.Session) (domain.Session, error)

// Store holds the server snapshot and the working copy derived from it.
// Trees handed out by the store are shared and must be treated as read-only.
type Store struct {
	mu       sync.RWMutex
	server   domain.Session
	original domain.Session
	current  domain.Session
	history  *undo.Manager
	now      func() time.Time
	log      *slog.Logger
}

// NewStore deep-copies snapshot, stamps it and makes it the working copy.
// A nil history disables undo.
func NewStore(snapshot domain.Session, history *undo.Manager) (*Store, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	server, err := Clone(snapshot)
	if err != nil {
		return nil, err
	}
	st := &Store{server: server, history: history, now: time.Now, log: applog.WithComponent("editstate")}
	st.original = Stamp(server)
	st.current = st.original
	return st, nil
}

// Original is the stamped server snapshot the diff is computed against.
func (st *Store) Original() domain.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.original
}

// Snapshot is the current working tree.
func (st *Store) Snapshot() domain.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Apply runs r on the working tree. On error the tree is left untouched.
func (st *Store) Apply(label string, r Reducer) (domain.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	next, err := r(st.current)
	if err != nil {
		return st.current, err
	}
	if st.history != nil {
		st.history.Push(undo.Snapshot{Key: st.current.SeedID, Tree: st.current, Label: label, TS: st.now()})
	}
	st.current = next
	st.log.Debug("applied", slog.String("edit", label))
	return next, nil
}

// Replace swaps in a working tree restored from elsewhere, e.g. a draft.
// The tree must describe the same session.
func (st *Store) Replace(s domain.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.SeedID != st.server.SeedID {
		return fmt.Errorf("%w: got %s, editing %s", ErrForeignSession, s.SeedID, st.server.SeedID)
	}
	st.current = s
	return nil
}

// Reset rebuilds the working copy from a fresh deep copy of the server
// snapshot. The discarded tree stays reachable through Undo.
func (st *Store) Reset() (domain.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fresh, err := Clone(st.server)
	if err != nil {
		return st.current, err
	}
	if st.history != nil {
		st.history.Push(undo.Snapshot{Key: st.current.SeedID, Tree: st.current, Label: "reset", TS: st.now()})
	}
	st.original = Stamp(fresh)
	st.current = st.original
	st.log.Info("working copy reset", slog.String("session", string(st.current.SeedID)))
	return st.current, nil
}

// Rebase makes snapshot the new server state, e.g. after a successful save.
func (st *Store) Rebase(snapshot domain.Session) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	server, err := Clone(snapshot)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.history != nil {
		st.history.Clear(st.current.SeedID)
	}
	st.server = server
	st.original = Stamp(server)
	st.current = st.original
	return nil
}

func (st *Store) Undo() (domain.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.history == nil {
		return st.current, false
	}
	prev, ok := st.history.Undo(st.current.SeedID, st.current)
	if !ok {
		return st.current, false
	}
	st.current = prev
	return prev, true
}

func (st *Store) Redo() (domain.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.history == nil {
		return st.current, false
	}
	next, ok := st.history.Redo(st.current.SeedID, st.current)
	if !ok {
		return st.current, false
	}
	st.current = next
	return next, true
}

// Dirty reports whether the working copy differs from the original: any node
// marked modified, or a different shape or order anywhere.
func (st *Store) Dirty() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return !sameShape(st.original, st.current)
}

func sameShape(a, b domain.Session) bool {
	var left []domain.NodeRef
	a.Walk(func(n domain.NodeRef) bool {
		left = append(left, n)
		return true
	})
	i := 0
	same := true
	b.Walk(func(n domain.NodeRef) bool {
		if i >= len(left) || left[i].SeedID != n.SeedID || left[i].Indices != n.Indices || left[i].Order != n.Order {
			same = false
			return false
		}
		i++
		return true
	})
	if !same || i != len(left) {
		return false
	}
	return !anyModified(b)
}

func anyModified(s domain.Session) bool {
	for _, p := range s.Parts {
		if p.Modified {
			return true
		}
		for _, st := range p.Sets {
			if st.Modified {
				return true
			}
			for _, e := range st.Exercises {
				if e.Modified {
					return true
				}
			}
		}
	}
	return false
}

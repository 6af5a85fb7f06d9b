/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pin

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"fitplan/internal/domain"
	applog "fitplan/internal/log"
)

var (
	ErrUnknownNode = errors.New("pin: unknown node")
	ErrBadLevel    = errors.New("pin: level above subtree root")
)

// Authority owns the pin flags of one editor, keyed by subtree-root seed id.
// It is safe for concurrent use.
type Authority struct {
	mu    sync.RWMutex
	flags map[domain.SeedID]State
}

func NewAuthority() *Authority {
	return &Authority{flags: make(map[domain.SeedID]State)}
}

// Own returns the flags stored on seed itself, without inheritance.
func (a *Authority) Own(seed domain.SeedID) State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.flags[seed]
}

// StateOf returns the flags seen from seed: every ancestor's flags merged with
// the node's own flags at its level or coarser. Finer flags stored on a node
// lock its children, not the node itself.
func (a *Authority) StateOf(s *domain.Session, seed domain.SeedID) State {
	lvl, _, ok := s.Locate(seed)
	if !ok {
		return State{}
	}
	anc := s.Ancestors(seed)
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.flags[seed].AtOrAbove(lvl)
	for _, sd := range anc {
		st = st.Or(a.flags[sd])
	}
	return st
}

// ChildState returns the flags a child of owner inherits, whether it is
// already there or about to be dropped in.
func (a *Authority) ChildState(s *domain.Session, owner domain.SeedID) State {
	if _, _, ok := s.Locate(owner); !ok {
		return State{}
	}
	anc := s.Ancestors(owner)
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.flags[owner]
	for _, sd := range anc {
		st = st.Or(a.flags[sd])
	}
	return st
}

// GetPinState resolves the node addressed by ix and returns its inherited flags.
// Indices that do not match level or do not resolve yield the zero State.
func (a *Authority) GetPinState(s *domain.Session, level domain.Level, ix domain.Indices) State {
	if ix.Level() != level {
		return State{}
	}
	seed, ok := s.SeedAt(ix)
	if !ok {
		return State{}
	}
	return a.StateOf(s, seed)
}

// EffectivePin is Effective applied to StateOf.
func (a *Authority) EffectivePin(s *domain.Session, seed domain.SeedID) Profile {
	return Effective(a.StateOf(s, seed))
}

// PromoteStructural records a structural change at level l below or at root.
// It raises l and every finer flag on root and drops the flags at l or finer
// stored on root's descendants, which the new lock already covers.
func (a *Authority) PromoteStructural(s *domain.Session, root domain.SeedID, l domain.Level) error {
	rootLevel, _, ok := s.Locate(root)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, root)
	}
	if l < rootLevel || l > domain.LevelExercise {
		return fmt.Errorf("%w: %s on %s %s", ErrBadLevel, l, rootLevel, root)
	}
	desc := s.Descendants(root)

	a.mu.Lock()
	a.flags[root] = a.flags[root].Or(Cascade(l))
	for _, d := range desc {
		st, ok := a.flags[d]
		if !ok {
			continue
		}
		if kept := st.Above(l); kept.Any() {
			a.flags[d] = kept
		} else {
			delete(a.flags, d)
		}
	}
	a.mu.Unlock()

	applog.WithComponent("pin").Debug("structural promote", slog.String("root", string(root)), slog.String("level", l.String()), slog.Int("cleared", len(desc)))
	return nil
}

// PromotePayload records a payload-only edit. Only exercises are pinned by
// payload edits; for parts and sets it is a no-op.
func (a *Authority) PromotePayload(s *domain.Session, seed domain.SeedID) error {
	lvl, _, ok := s.Locate(seed)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, seed)
	}
	if lvl != domain.LevelExercise {
		return nil
	}
	a.mu.Lock()
	st := a.flags[seed]
	st.Exercise = true
	a.flags[seed] = st
	a.mu.Unlock()
	return nil
}

// Reset clears the flags stored on seed. This is the only way flags go down.
func (a *Authority) Reset(seed domain.SeedID) {
	a.mu.Lock()
	delete(a.flags, seed)
	a.mu.Unlock()
}

// ResetSubtree clears the flags of root and everything below it.
func (a *Authority) ResetSubtree(s *domain.Session, root domain.SeedID) {
	desc := s.Descendants(root)
	a.mu.Lock()
	delete(a.flags, root)
	for _, d := range desc {
		delete(a.flags, d)
	}
	a.mu.Unlock()
}

func (a *Authority) ResetAll() {
	a.mu.Lock()
	clear(a.flags)
	a.mu.Unlock()
}

// Forget drops the flags of deleted nodes.
func (a *Authority) Forget(seeds ...domain.SeedID) {
	a.mu.Lock()
	for _, sd := range seeds {
		delete(a.flags, sd)
	}
	a.mu.Unlock()
}

// Export returns a copy of the stored flags, for drafts.
func (a *Authority) Export() map[domain.SeedID]State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.flags)
}

// Import replaces the stored flags. Entries for seeds not present in s are ignored.
func (a *Authority) Import(s *domain.Session, flags map[domain.SeedID]State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.flags)
	for sd, st := range flags {
		if !st.Any() {
			continue
		}
		if _, _, ok := s.Locate(sd); ok {
			a.flags[sd] = st
		}
	}
}

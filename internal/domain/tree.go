/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateSeed = errors.New("domain: duplicate seed id")
	ErrOrderNotDense = errors.New("domain: sibling order is not dense")
)

// ContainerKind names one of the three sibling-list kinds.
type ContainerKind string

const (
	KindParts     ContainerKind = "parts"
	KindSets      ContainerKind = "sets"
	KindExercises ContainerKind = "exercises"
)

// ItemType returns the type of the items held by lists of kind k.
func (k ContainerKind) ItemType() ItemType {
	switch k {
	case KindParts:
		return TypePart
	case KindSets:
		return TypeSet
	case KindExercises:
		return TypeExercise
	}
	return ""
}

// OwnerLevel returns the level of the node owning lists of kind k.
func (k ContainerKind) OwnerLevel() Level {
	return k.ItemType().Level() - 1
}

// ContainerRef names a sibling list by its owner: the parts of a session,
// the sets of a part or the exercises of a set.
type ContainerRef struct {
	Kind  ContainerKind
	Owner SeedID
}

// ContainerFor returns the list holding items of type t under owner.
func ContainerFor(t ItemType, owner SeedID) ContainerRef {
	switch t {
	case TypePart:
		return ContainerRef{Kind: KindParts, Owner: owner}
	case TypeSet:
		return ContainerRef{Kind: KindSets, Owner: owner}
	default:
		return ContainerRef{Kind: KindExercises, Owner: owner}
	}
}

// ID renders the ref as "kind:owner".
func (c ContainerRef) ID() string { return string(c.Kind) + ":" + string(c.Owner) }

func (c ContainerRef) String() string { return c.ID() }

func (c ContainerRef) IsZero() bool { return c.Kind == "" && c.Owner == "" }

// Accepts reports whether items of type t belong in this list.
func (c ContainerRef) Accepts(t ItemType) bool { return c.Kind.ItemType() == t }

// ParseContainerID is the inverse of ContainerRef.ID. Malformed ids yield false.
func ParseContainerID(id string) (ContainerRef, bool) {
	kind, owner, ok := strings.Cut(id, ":")
	if !ok || owner == "" {
		return ContainerRef{}, false
	}
	switch k := ContainerKind(kind); k {
	case KindParts, KindSets, KindExercises:
		return ContainerRef{Kind: k, Owner: SeedID(owner)}, true
	}
	return ContainerRef{}, false
}

// NodeRef describes a node visited by Walk.
type NodeRef struct {
	Level       Level
	Indices     Indices
	SeedID      SeedID
	BlueprintID *int64
	Order       int
}

// Walk visits the session and every descendant depth-first in list order.
// Returning false from fn stops the walk.
func (s *Session) Walk(fn func(NodeRef) bool) {
	if !fn(NodeRef{Level: LevelSession, Indices: SessionIndices, SeedID: s.SeedID, BlueprintID: s.BlueprintID}) {
		return
	}
	for pi := range s.Parts {
		p := &s.Parts[pi]
		if !fn(NodeRef{Level: LevelPart, Indices: PartAt(pi), SeedID: p.SeedID, BlueprintID: p.BlueprintID, Order: p.Order}) {
			return
		}
		for si := range p.Sets {
			st := &p.Sets[si]
			if !fn(NodeRef{Level: LevelSet, Indices: SetAt(pi, si), SeedID: st.SeedID, BlueprintID: st.BlueprintID, Order: st.Order}) {
				return
			}
			for ei := range st.Exercises {
				e := &st.Exercises[ei]
				if !fn(NodeRef{Level: LevelExercise, Indices: ExerciseAt(pi, si, ei), SeedID: e.SeedID, BlueprintID: e.BlueprintID, Order: e.Order}) {
					return
				}
			}
		}
	}
}

// Locate finds the node with the given seed.
func (s *Session) Locate(seed SeedID) (Level, Indices, bool) {
	var (
		lvl   Level
		ix    Indices
		found bool
	)
	s.Walk(func(n NodeRef) bool {
		if n.SeedID == seed {
			lvl, ix, found = n.Level, n.Indices, true
			return false
		}
		return true
	})
	return lvl, ix, found
}

// SeedAt resolves indices to the seed of the addressed node.
func (s *Session) SeedAt(ix Indices) (SeedID, bool) {
	switch ix.Level() {
	case LevelSession:
		return s.SeedID, true
	case LevelPart:
		if p, ok := s.PartAt(ix); ok {
			return p.SeedID, true
		}
	case LevelSet:
		if st, ok := s.SetAt(ix); ok {
			return st.SeedID, true
		}
	case LevelExercise:
		if e, ok := s.ExerciseAt(ix); ok {
			return e.SeedID, true
		}
	}
	return "", false
}

func (s *Session) PartAt(ix Indices) (*Part, bool) {
	if ix.Part < 0 || ix.Part >= len(s.Parts) {
		return nil, false
	}
	return &s.Parts[ix.Part], true
}

func (s *Session) SetAt(ix Indices) (*Set, bool) {
	p, ok := s.PartAt(ix)
	if !ok || ix.Set < 0 || ix.Set >= len(p.Sets) {
		return nil, false
	}
	return &p.Sets[ix.Set], true
}

func (s *Session) ExerciseAt(ix Indices) (*Exercise, bool) {
	st, ok := s.SetAt(ix)
	if !ok || ix.Exercise < 0 || ix.Exercise >= len(st.Exercises) {
		return nil, false
	}
	return &st.Exercises[ix.Exercise], true
}

// OwnerIndices returns the indices of the node owning the list c.
// It fails when the owner is unknown or lives at the wrong level.
func (s *Session) OwnerIndices(c ContainerRef) (Indices, bool) {
	lvl, ix, ok := s.Locate(c.Owner)
	if !ok || c.Kind.ItemType() == "" || lvl != c.Kind.OwnerLevel() {
		return Indices{}, false
	}
	return ix, true
}

// ContainerLen returns the number of items in c, or -1 when c does not resolve.
func (s *Session) ContainerLen(c ContainerRef) int {
	ix, ok := s.OwnerIndices(c)
	if !ok {
		return -1
	}
	switch c.Kind {
	case KindParts:
		return len(s.Parts)
	case KindSets:
		p, _ := s.PartAt(ix)
		return len(p.Sets)
	default:
		st, _ := s.SetAt(ix)
		return len(st.Exercises)
	}
}

// ContainerOf returns the sibling list holding the node with the given seed.
func (s *Session) ContainerOf(seed SeedID) (ContainerRef, bool) {
	lvl, ix, ok := s.Locate(seed)
	if !ok || lvl == LevelSession {
		return ContainerRef{}, false
	}
	t, _ := lvl.ItemType()
	owner, _ := s.SeedAt(ix.Parent())
	return ContainerFor(t, owner), true
}

// ParentContainer returns the list that holds the owner of c: the sets of a
// part for an exercise list, the parts of the session for a set list.
func (s *Session) ParentContainer(c ContainerRef) (ContainerRef, bool) {
	if c.Kind == KindParts {
		return ContainerRef{}, false
	}
	if _, ok := s.OwnerIndices(c); !ok {
		return ContainerRef{}, false
	}
	return s.ContainerOf(c.Owner)
}

// Ancestors returns the seeds above the node, nearest first, ending with the session.
func (s *Session) Ancestors(seed SeedID) []SeedID {
	_, ix, ok := s.Locate(seed)
	if !ok {
		return nil
	}
	var out []SeedID
	for ix.Level() != LevelSession {
		ix = ix.Parent()
		if sd, ok := s.SeedAt(ix); ok {
			out = append(out, sd)
		}
	}
	return out
}

// Descendants returns the seeds of every node below seed in walk order.
func (s *Session) Descendants(seed SeedID) []SeedID {
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return nil
	}
	var out []SeedID
	s.Walk(func(n NodeRef) bool {
		if n.Level > lvl && isWithin(n.Indices, ix, lvl) {
			out = append(out, n.SeedID)
		}
		return true
	})
	return out
}

// CountNodes returns the number of nodes including the session root.
func (s *Session) CountNodes() int {
	n := 0
	s.Walk(func(NodeRef) bool { n++; return true })
	return n
}

// CheckOrder verifies that every sibling list carries orders 0..n-1 in list order.
func (s *Session) CheckOrder() error {
	for pi, p := range s.Parts {
		if p.Order != pi {
			return fmt.Errorf("%w: part %s has order %d at %d", ErrOrderNotDense, p.SeedID, p.Order, pi)
		}
		for si, st := range p.Sets {
			if st.Order != si {
				return fmt.Errorf("%w: set %s has order %d at %d", ErrOrderNotDense, st.SeedID, st.Order, si)
			}
			for ei, e := range st.Exercises {
				if e.Order != ei {
					return fmt.Errorf("%w: exercise %s has order %d at %d", ErrOrderNotDense, e.SeedID, e.Order, ei)
				}
			}
		}
	}
	return nil
}

// Validate checks that every node has a seed and that no seed appears twice.
func (s *Session) Validate() error {
	seen := make(map[SeedID]Indices)
	var err error
	s.Walk(func(n NodeRef) bool {
		if n.SeedID == "" {
			err = fmt.Errorf("%w: %s at %s", ErrEmptySeed, n.Level, n.Indices)
			return false
		}
		if prev, dup := seen[n.SeedID]; dup {
			err = fmt.Errorf("%w: %q at %s and %s", ErrDuplicateSeed, n.SeedID, prev, n.Indices)
			return false
		}
		seen[n.SeedID] = n.Indices
		return true
	})
	return err
}

// Parent returns the indices of the node owning ix.
func (ix Indices) Parent() Indices {
	switch ix.Level() {
	case LevelExercise:
		return SetAt(ix.Part, ix.Set)
	case LevelSet:
		return PartAt(ix.Part)
	default:
		return SessionIndices
	}
}

// isWithin reports whether ix lies in the subtree rooted at root (a node of level lvl).
func isWithin(ix, root Indices, lvl Level) bool {
	switch lvl {
	case LevelSession:
		return true
	case LevelPart:
		return ix.Part == root.Part
	case LevelSet:
		return ix.Part == root.Part && ix.Set == root.Set
	}
	return false
}

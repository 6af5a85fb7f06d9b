/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editstate holds the optimistic, copy-on-write working copy of a
// program. Reducers never mutate their input: they copy the slices on the path
// to the change and share every untouched branch with the previous tree.
package editstate

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/tiendc/go-deepcopy"

	"fitplan/internal/domain"
)

var (
	ErrNotFound        = errors.New("editstate: node not found")
	ErrIndexOutOfRange = errors.New("editstate: index out of range")
	ErrLevelMismatch   = errors.New("editstate: wrong level")
	ErrForeignSession  = errors.New("editstate: tree belongs to another session")
)

type listNode[T any] interface {
	*T
	Seed() domain.SeedID
	SetOrder(int)
	Touch()
}

// reindex rewrites order to the list position.
func reindex[T any, P listNode[T]](l []T) {
	for i := range l {
		P(&l[i]).SetOrder(i)
	}
}

// insertAt returns a copy of l with v inserted before position at (at < 0 appends).
// The inserted node is touched and the list reindexed.
func insertAt[T any, P listNode[T]](l []T, at int, v T) ([]T, error) {
	if at < 0 {
		at = len(l)
	}
	if at > len(l) {
		return nil, fmt.Errorf("%w: insert at %d of %d", ErrIndexOutOfRange, at, len(l))
	}
	out := make([]T, 0, len(l)+1)
	out = append(out, l[:at]...)
	out = append(out, v)
	out = append(out, l[at:]...)
	P(&out[at]).Touch()
	reindex[T, P](out)
	return out, nil
}

// removeAt returns a copy of l without position at, reindexed.
func removeAt[T any, P listNode[T]](l []T, at int) ([]T, T, error) {
	var zero T
	if at < 0 || at >= len(l) {
		return nil, zero, fmt.Errorf("%w: remove %d of %d", ErrIndexOutOfRange, at, len(l))
	}
	v := l[at]
	out := make([]T, 0, len(l)-1)
	out = append(out, l[:at]...)
	out = append(out, l[at+1:]...)
	reindex[T, P](out)
	return out, v, nil
}

// reorder moves the item at from so that it lands before position to of the
// original list. to == from and to == from+1 leave the list untouched.
func reorder[T any, P listNode[T]](l []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(l) || to < 0 || to > len(l) {
		return nil, fmt.Errorf("%w: reorder %d -> %d of %d", ErrIndexOutOfRange, from, to, len(l))
	}
	if to == from || to == from+1 {
		return l, nil
	}
	rest, v, err := removeAt[T, P](l, from)
	if err != nil {
		return nil, err
	}
	if to > from {
		to--
	}
	return insertAt[T, P](rest, to, v)
}

func touchAt[T any, P listNode[T]](l []T, at int, edit func(*T)) []T {
	out := slices.Clone(l)
	edit(&out[at])
	P(&out[at]).Touch()
	return out
}

// withParts, withSets and withExercises copy the path down to one list and
// replace it with f's result. On error s is returned unchanged.

func withParts(s domain.Session, f func([]domain.Part) ([]domain.Part, error)) (domain.Session, error) {
	parts, err := f(s.Parts)
	if err != nil {
		return s, err
	}
	s.Parts = parts
	return s, nil
}

func withSets(s domain.Session, pi int, f func([]domain.Set) ([]domain.Set, error)) (domain.Session, error) {
	if pi < 0 || pi >= len(s.Parts) {
		return s, fmt.Errorf("%w: part %d", ErrIndexOutOfRange, pi)
	}
	sets, err := f(s.Parts[pi].Sets)
	if err != nil {
		return s, err
	}
	parts := slices.Clone(s.Parts)
	parts[pi].Sets = sets
	s.Parts = parts
	return s, nil
}

func withExercises(s domain.Session, pi, si int, f func([]domain.Exercise) ([]domain.Exercise, error)) (domain.Session, error) {
	if pi < 0 || pi >= len(s.Parts) || si < 0 || si >= len(s.Parts[pi].Sets) {
		return s, fmt.Errorf("%w: set %d/%d", ErrIndexOutOfRange, pi, si)
	}
	return withSets(s, pi, func(sets []domain.Set) ([]domain.Set, error) {
		ex, err := f(sets[si].Exercises)
		if err != nil {
			return nil, err
		}
		out := slices.Clone(sets)
		out[si].Exercises = ex
		return out, nil
	})
}

func locate(s domain.Session, seed domain.SeedID, want domain.Level) (domain.Indices, error) {
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return ix, fmt.Errorf("%w: %s", ErrNotFound, seed)
	}
	if lvl != want {
		return ix, fmt.Errorf("%w: %s is a %s, not a %s", ErrLevelMismatch, seed, lvl, want)
	}
	return ix, nil
}

// Clone deep-copies s.
func Clone(s domain.Session) (domain.Session, error) {
	var out domain.Session
	if err := deepcopy.Copy(&out, &s); err != nil {
		return domain.Session{}, fmt.Errorf("clone session: %w", err)
	}
	return out, nil
}

// Stamp returns s with fresh edit bookkeeping: nothing modified and every
// original order equal to the current one.
func Stamp(s domain.Session) domain.Session {
	parts := make([]domain.Part, len(s.Parts))
	for pi, p := range s.Parts {
		p.EditMeta = domain.EditMeta{OriginalOrder: p.Order}
		sets := make([]domain.Set, len(p.Sets))
		for si, st := range p.Sets {
			st.EditMeta = domain.EditMeta{OriginalOrder: st.Order}
			ex := make([]domain.Exercise, len(st.Exercises))
			for ei, e := range st.Exercises {
				e.EditMeta = domain.EditMeta{OriginalOrder: e.Order}
				ex[ei] = e
			}
			st.Exercises = ex
			sets[si] = st
		}
		p.Sets = sets
		parts[pi] = p
	}
	s.Parts = parts
	return s
}

// Align returns edited with bookkeeping derived from original, for trees that
// were edited outside a Store. A node found in original at the same level gets
// its original order and is marked modified when its payload differs.
func Align(original, edited domain.Session) domain.Session {
	parts := map[domain.SeedID]domain.Part{}
	sets := map[domain.SeedID]domain.Set{}
	exercises := map[domain.SeedID]domain.Exercise{}
	for _, p := range original.Parts {
		parts[p.SeedID] = p
		for _, st := range p.Sets {
			sets[st.SeedID] = st
			for _, e := range st.Exercises {
				exercises[e.SeedID] = e
			}
		}
	}
	s := Stamp(edited)
	for pi := range s.Parts {
		p := &s.Parts[pi]
		if o, ok := parts[p.SeedID]; ok {
			p.OriginalOrder = o.Order
			p.Modified = o.Payload() != p.Payload()
		}
		for si := range p.Sets {
			st := &p.Sets[si]
			if o, ok := sets[st.SeedID]; ok {
				st.OriginalOrder = o.Order
				st.Modified = !reflect.DeepEqual(o.Payload(), st.Payload())
			}
			for ei := range st.Exercises {
				e := &st.Exercises[ei]
				if o, ok := exercises[e.SeedID]; ok {
					e.OriginalOrder = o.Order
					e.Modified = !reflect.DeepEqual(o.Payload(), e.Payload())
				}
			}
		}
	}
	return s
}

// UpdatePart replaces the payload of a part.
func UpdatePart(s domain.Session, seed domain.SeedID, p domain.PartPayload) (domain.Session, error) {
	ix, err := locate(s, seed, domain.LevelPart)
	if err != nil {
		return s, err
	}
	return withParts(s, func(l []domain.Part) ([]domain.Part, error) {
		return touchAt(l, ix.Part, func(n *domain.Part) { n.Name = p.Name }), nil
	})
}

// UpdateSet replaces the payload of a set.
func UpdateSet(s domain.Session, seed domain.SeedID, p domain.SetPayload) (domain.Session, error) {
	ix, err := locate(s, seed, domain.LevelSet)
	if err != nil {
		return s, err
	}
	return withSets(s, ix.Part, func(l []domain.Set) ([]domain.Set, error) {
		return touchAt(l, ix.Set, func(n *domain.Set) {
			n.RestTime = p.RestTime
			n.TimeLimit = p.TimeLimit
		}), nil
	})
}

// UpdateExercise replaces the payload of an exercise.
func UpdateExercise(s domain.Session, seed domain.SeedID, p domain.ExercisePayload) (domain.Session, error) {
	ix, err := locate(s, seed, domain.LevelExercise)
	if err != nil {
		return s, err
	}
	return withExercises(s, ix.Part, ix.Set, func(l []domain.Exercise) ([]domain.Exercise, error) {
		return touchAt(l, ix.Exercise, func(n *domain.Exercise) {
			n.Name = p.Name
			n.Spec = p.Spec
		}), nil
	})
}

// AddPart inserts p before position at of the session's parts (at < 0 appends).
func AddPart(s domain.Session, at int, p domain.Part) (domain.Session, error) {
	return withParts(s, func(l []domain.Part) ([]domain.Part, error) { return insertAt(l, at, p) })
}

// AddSet inserts st into the part with seed part.
func AddSet(s domain.Session, part domain.SeedID, at int, st domain.Set) (domain.Session, error) {
	ix, err := locate(s, part, domain.LevelPart)
	if err != nil {
		return s, err
	}
	return withSets(s, ix.Part, func(l []domain.Set) ([]domain.Set, error) { return insertAt(l, at, st) })
}

// AddExercise inserts e into the set with seed set.
func AddExercise(s domain.Session, set domain.SeedID, at int, e domain.Exercise) (domain.Session, error) {
	ix, err := locate(s, set, domain.LevelSet)
	if err != nil {
		return s, err
	}
	return withExercises(s, ix.Part, ix.Set, func(l []domain.Exercise) ([]domain.Exercise, error) { return insertAt(l, at, e) })
}

// DeleteNode removes the node with the given seed and its subtree. Siblings
// are reindexed so the list stays dense.
func DeleteNode(s domain.Session, seed domain.SeedID) (domain.Session, error) {
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrNotFound, seed)
	}
	switch lvl {
	case domain.LevelPart:
		return withParts(s, func(l []domain.Part) ([]domain.Part, error) {
			out, _, err := removeAt(l, ix.Part)
			return out, err
		})
	case domain.LevelSet:
		return withSets(s, ix.Part, func(l []domain.Set) ([]domain.Set, error) {
			out, _, err := removeAt(l, ix.Set)
			return out, err
		})
	case domain.LevelExercise:
		return withExercises(s, ix.Part, ix.Set, func(l []domain.Exercise) ([]domain.Exercise, error) {
			out, _, err := removeAt(l, ix.Exercise)
			return out, err
		})
	}
	return s, fmt.Errorf("%w: the session root cannot be deleted", ErrLevelMismatch)
}

// Reorder moves the item at from within list c so that it lands before
// position to of the list as it was.
func Reorder(s domain.Session, c domain.ContainerRef, from, to int) (domain.Session, error) {
	owner, ok := s.OwnerIndices(c)
	if !ok {
		return s, fmt.Errorf("%w: container %s", ErrNotFound, c)
	}
	switch c.Kind {
	case domain.KindParts:
		return withParts(s, func(l []domain.Part) ([]domain.Part, error) { return reorder(l, from, to) })
	case domain.KindSets:
		return withSets(s, owner.Part, func(l []domain.Set) ([]domain.Set, error) { return reorder(l, from, to) })
	default:
		return withExercises(s, owner.Part, owner.Set, func(l []domain.Exercise) ([]domain.Exercise, error) { return reorder(l, from, to) })
	}
}

// Move relocates the node with the given seed into list to, before position
// at of that list. Within one list this is Reorder.
func Move(s domain.Session, seed domain.SeedID, to domain.ContainerRef, at int) (domain.Session, error) {
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrNotFound, seed)
	}
	t, draggable := lvl.ItemType()
	if !draggable || !to.Accepts(t) {
		return s, fmt.Errorf("%w: %s cannot go into %s", ErrLevelMismatch, seed, to)
	}
	from, _ := s.ContainerOf(seed)
	if from == to {
		return Reorder(s, from, ix.Last(), at)
	}
	if _, ok := s.OwnerIndices(to); !ok {
		return s, fmt.Errorf("%w: container %s", ErrNotFound, to)
	}
	if n := s.ContainerLen(to); at > n {
		return s, fmt.Errorf("%w: insert at %d of %d", ErrIndexOutOfRange, at, n)
	}

	switch lvl {
	case domain.LevelSet:
		st, _ := s.SetAt(ix)
		node := *st
		out, err := DeleteNode(s, seed)
		if err != nil {
			return s, err
		}
		out, err = AddSet(out, to.Owner, at, node)
		if err != nil {
			return s, err
		}
		return out, nil
	case domain.LevelExercise:
		e, _ := s.ExerciseAt(ix)
		node := *e
		out, err := DeleteNode(s, seed)
		if err != nil {
			return s, err
		}
		out, err = AddExercise(out, to.Owner, at, node)
		if err != nil {
			return s, err
		}
		return out, nil
	}
	return s, fmt.Errorf("%w: parts live in a single list", ErrLevelMismatch)
}

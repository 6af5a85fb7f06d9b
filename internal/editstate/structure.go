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

	"github.com/tiendc/go-deepcopy"

	"fitplan/internal/domain"
)

// NewContainerDefaults are the payload values of sets and parts created by a drop.
type NewContainerDefaults struct {
	RestTime int
	PartName string
}

var DefaultNewContainer = NewContainerDefaults{RestTime: 60, PartName: "New part"}

// Duplicate inserts a copy of the node right after it. The copy and its whole
// subtree get fresh seeds and no server ids, so they diff as additions.
// It returns the seed of the copy.
func Duplicate(s domain.Session, seed domain.SeedID) (domain.Session, domain.SeedID, error) {
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return s, "", fmt.Errorf("%w: %s", ErrNotFound, seed)
	}
	var (
		out domain.Session
		err error
		dup domain.SeedID
	)
	switch lvl {
	case domain.LevelPart:
		var p domain.Part
		if err := deepcopy.Copy(&p, &s.Parts[ix.Part]); err != nil {
			return s, "", fmt.Errorf("duplicate %s: %w", seed, err)
		}
		reseedPart(&p)
		dup = p.SeedID
		out, err = AddPart(s, ix.Part+1, p)
	case domain.LevelSet:
		var st domain.Set
		if err := deepcopy.Copy(&st, &s.Parts[ix.Part].Sets[ix.Set]); err != nil {
			return s, "", fmt.Errorf("duplicate %s: %w", seed, err)
		}
		reseedSet(&st)
		dup = st.SeedID
		owner, _ := s.SeedAt(ix.Parent())
		out, err = AddSet(s, owner, ix.Set+1, st)
	case domain.LevelExercise:
		var e domain.Exercise
		if err := deepcopy.Copy(&e, &s.Parts[ix.Part].Sets[ix.Set].Exercises[ix.Exercise]); err != nil {
			return s, "", fmt.Errorf("duplicate %s: %w", seed, err)
		}
		reseedExercise(&e)
		dup = e.SeedID
		owner, _ := s.SeedAt(ix.Parent())
		out, err = AddExercise(s, owner, ix.Exercise+1, e)
	default:
		return s, "", fmt.Errorf("%w: the session root cannot be duplicated", ErrLevelMismatch)
	}
	if err != nil {
		return s, "", err
	}
	return out, dup, nil
}

func reseedPart(p *domain.Part) {
	p.SeedID = domain.NewSeedID("part")
	p.BlueprintID = nil
	p.Modified = true
	for i := range p.Sets {
		reseedSet(&p.Sets[i])
	}
}

func reseedSet(st *domain.Set) {
	st.SeedID = domain.NewSeedID("set")
	st.BlueprintID = nil
	st.Modified = true
	for i := range st.Exercises {
		reseedExercise(&st.Exercises[i])
	}
}

func reseedExercise(e *domain.Exercise) {
	e.SeedID = domain.NewSeedID("exercise")
	e.BlueprintID = nil
	e.Modified = true
}

// CreateContainer moves the node with the given seed into a newly created
// container of type t (a set in part owner, or a part in the session) placed
// before position at. An exercise dropped on a new part gets a new set too.
// It returns the seed of the new container.
func CreateContainer(s domain.Session, seed domain.SeedID, t domain.ItemType, owner domain.SeedID, at int, def NewContainerDefaults) (domain.Session, domain.SeedID, error) {
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return s, "", fmt.Errorf("%w: %s", ErrNotFound, seed)
	}
	list := domain.ContainerFor(t, owner)
	if _, ok := s.OwnerIndices(list); !ok {
		return s, "", fmt.Errorf("%w: container %s", ErrNotFound, list)
	}
	if n := s.ContainerLen(list); at > n {
		return s, "", fmt.Errorf("%w: insert at %d of %d", ErrIndexOutOfRange, at, n)
	}

	wrapSet := func(e domain.Exercise) domain.Set {
		st := domain.NewSet(def.RestTime)
		e.Order = 0
		e.Touch()
		st.Exercises = []domain.Exercise{e}
		st.Touch()
		return st
	}

	switch {
	case t == domain.TypeSet && lvl == domain.LevelExercise:
		e, _ := s.ExerciseAt(ix)
		st := wrapSet(*e)
		out, err := DeleteNode(s, seed)
		if err != nil {
			return s, "", err
		}
		out, err = AddSet(out, owner, at, st)
		if err != nil {
			return s, "", err
		}
		return out, st.SeedID, nil
	case t == domain.TypePart && (lvl == domain.LevelSet || lvl == domain.LevelExercise):
		p := domain.NewPart(def.PartName)
		if lvl == domain.LevelSet {
			st, _ := s.SetAt(ix)
			moved := *st
			moved.Order = 0
			moved.Touch()
			p.Sets = []domain.Set{moved}
		} else {
			e, _ := s.ExerciseAt(ix)
			p.Sets = []domain.Set{wrapSet(*e)}
		}
		p.Touch()
		out, err := DeleteNode(s, seed)
		if err != nil {
			return s, "", err
		}
		out, err = AddPart(out, at, p)
		if err != nil {
			return s, "", err
		}
		return out, p.SeedID, nil
	}
	return s, "", fmt.Errorf("%w: a %s cannot start a new %s", ErrLevelMismatch, lvl, t)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pin implements the protection overlay that freezes parts of a
// program against accidental edits. Flags are stored per subtree root seed;
// the state seen by a node is the union of its own flags and its ancestors'.
package pin

import "fitplan/internal/domain"

// State is the flag set attached to a subtree root.
type State struct {
	Session  bool `json:"sessionPin"`
	Part     bool `json:"partPin"`
	Set      bool `json:"setPin"`
	Exercise bool `json:"exercisePin"`
}

// Kind names the single active pin reported by Effective.
type Kind string

const (
	None        Kind = "none"
	SessionPin  Kind = "sessionPin"
	PartPin     Kind = "partPin"
	SetPin      Kind = "setPin"
	ExercisePin Kind = "exercisePin"
)

// Profile is the permission set derived from a State.
type Profile struct {
	Active      Kind `json:"activePin"`
	IsProtected bool `json:"isProtected"`
	CanEdit     bool `json:"canEdit"`
	CanDrag     bool `json:"canDrag"`
	CanDelete   bool `json:"canDelete"`
}

var (
	unlocked  = Profile{Active: None, CanEdit: true, CanDrag: true, CanDelete: true}
	fullLock  = Profile{IsProtected: true}
	shapeLock = Profile{IsProtected: true, CanEdit: true}
)

// Effective returns the profile of the highest-priority flag in s.
// Priority: session > part > set > exercise > none.
func Effective(s State) Profile {
	var p Profile
	switch {
	case s.Session:
		p = fullLock
		p.Active = SessionPin
	case s.Part:
		p = fullLock
		p.Active = PartPin
	case s.Set:
		p = shapeLock
		p.Active = SetPin
	case s.Exercise:
		p = shapeLock
		p.Active = ExercisePin
	default:
		p = unlocked
	}
	return p
}

// Any reports whether any flag is raised.
func (s State) Any() bool { return s.Session || s.Part || s.Set || s.Exercise }

// Or returns the union of s and o.
func (s State) Or(o State) State {
	return State{
		Session:  s.Session || o.Session,
		Part:     s.Part || o.Part,
		Set:      s.Set || o.Set,
		Exercise: s.Exercise || o.Exercise,
	}
}

// Has reports whether the flag for level l is raised.
func (s State) Has(l domain.Level) bool {
	switch l {
	case domain.LevelSession:
		return s.Session
	case domain.LevelPart:
		return s.Part
	case domain.LevelSet:
		return s.Set
	case domain.LevelExercise:
		return s.Exercise
	}
	return false
}

// Cascade returns the flag set raised by a structural change at level l:
// l itself and every level below it.
func Cascade(l domain.Level) State {
	return State{
		Session:  l <= domain.LevelSession,
		Part:     l <= domain.LevelPart,
		Set:      l <= domain.LevelSet,
		Exercise: l <= domain.LevelExercise,
	}
}

// AtOrAbove keeps the flags at l or coarser.
func (s State) AtOrAbove(l domain.Level) State {
	return State{
		Session:  s.Session && domain.LevelSession <= l,
		Part:     s.Part && domain.LevelPart <= l,
		Set:      s.Set && domain.LevelSet <= l,
		Exercise: s.Exercise && domain.LevelExercise <= l,
	}
}

// Above keeps only the flags strictly coarser than l.
func (s State) Above(l domain.Level) State {
	return State{
		Session:  s.Session && domain.LevelSession < l,
		Part:     s.Part && domain.LevelPart < l,
		Set:      s.Set && domain.LevelSet < l,
		Exercise: s.Exercise && domain.LevelExercise < l,
	}
}

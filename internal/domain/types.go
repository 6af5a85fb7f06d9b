/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the program tree edited by fitplan: a Session holds Parts,
// a Part holds Sets, a Set holds Exercises. Every node carries a client seed id
// that is the only identity used for matching across edits, drags and diffs.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Level is a depth in the program hierarchy.
type Level int

const (
	LevelSession Level = iota
	LevelPart
	LevelSet
	LevelExercise
)

func (l Level) String() string {
	switch l {
	case LevelSession:
		return "session"
	case LevelPart:
		return "part"
	case LevelSet:
		return "set"
	case LevelExercise:
		return "exercise"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ItemType returns the draggable item type living at l. The session is not draggable.
func (l Level) ItemType() (ItemType, bool) {
	switch l {
	case LevelPart:
		return TypePart, true
	case LevelSet:
		return TypeSet, true
	case LevelExercise:
		return TypeExercise, true
	}
	return "", false
}

// ItemType names a draggable node kind.
type ItemType string

const (
	TypePart     ItemType = "part"
	TypeSet      ItemType = "set"
	TypeExercise ItemType = "exercise"
)

// Level maps the item type to its hierarchy level. Unknown types map to LevelSession.
func (t ItemType) Level() Level {
	switch t {
	case TypePart:
		return LevelPart
	case TypeSet:
		return LevelSet
	case TypeExercise:
		return LevelExercise
	}
	return LevelSession
}

// ParseItemType accepts "part", "set" or "exercise".
func ParseItemType(s string) (ItemType, bool) {
	switch t := ItemType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypePart, TypeSet, TypeExercise:
		return t, true
	}
	return "", false
}

// ErrEmptySeed is returned when a seed id would decode from an empty value.
var ErrEmptySeed = errors.New("domain: empty seed id")

// SeedID is the stable client identity of a node. It is never empty and never reused.
type SeedID string

// NewSeedID mints a fresh seed id, e.g. "set-4f0c...".
func NewSeedID(prefix string) SeedID {
	if prefix == "" {
		return SeedID(uuid.NewString())
	}
	return SeedID(prefix + "-" + uuid.NewString())
}

func (s SeedID) String() string { return string(s) }

func (s SeedID) MarshalText() ([]byte, error) {
	if s == "" {
		return nil, ErrEmptySeed
	}
	return []byte(s), nil
}

func (s *SeedID) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		return ErrEmptySeed
	}
	*s = SeedID(b)
	return nil
}

// Blueprint returns a server id pointer for v.
func Blueprint(v int64) *int64 { return &v }

// EditMeta is the bookkeeping the editable store attaches to each node.
type EditMeta struct {
	Modified      bool `json:"_isModified,omitempty"`
	OriginalOrder int  `json:"_originalOrder,omitempty"`
}

// Session is the root of a program. BlueprintID is nil until the server has stored it.
type Session struct {
	BlueprintID *int64 `json:"blueprintId"`
	SeedID      SeedID `json:"seedId"`
	Name        string `json:"name"`
	Parts       []Part `json:"parts"`
}

// Part is a named block of a session (warm-up, main, cool-down, ...).
type Part struct {
	BlueprintID *int64 `json:"blueprintId"`
	SeedID      SeedID `json:"seedId"`
	Order       int    `json:"order"`
	Name        string `json:"name"`
	Sets        []Set  `json:"sets"`
	EditMeta
}

// Set groups exercises performed together. RestTime and TimeLimit are in seconds.
type Set struct {
	BlueprintID *int64     `json:"blueprintId"`
	SeedID      SeedID     `json:"seedId"`
	Order       int        `json:"order"`
	RestTime    int        `json:"restTime"`
	TimeLimit   *int       `json:"timeLimit"`
	Exercises   []Exercise `json:"exercises"`
	EditMeta
}

type Exercise struct {
	BlueprintID *int64       `json:"blueprintId"`
	SeedID      SeedID       `json:"seedId"`
	Order       int          `json:"order"`
	Name        string       `json:"name,omitempty"`
	Spec        ExerciseSpec `json:"spec"`
	EditMeta
}

// ExerciseSpec is the exercise payload: what to reach and with which load.
type ExerciseSpec struct {
	Goal      Goal `json:"goal"`
	Load      Load `json:"load"`
	TimeLimit *int `json:"timeLimit"`
}

// Goal describes the target, e.g. {Type: "reps", Value: 10, Rule: "exact"}.
type Goal struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Rule  string  `json:"rule,omitempty"`
}

// Load describes resistance, e.g. {Type: "weight", Value: 40} or {Type: "text", Text: "red band"}.
type Load struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// Payloads are the level-specific fields without identity, order or children.

type PartPayload struct {
	Name string `json:"name"`
}

type SetPayload struct {
	RestTime  int  `json:"restTime"`
	TimeLimit *int `json:"timeLimit"`
}

type ExercisePayload struct {
	Name string       `json:"name,omitempty"`
	Spec ExerciseSpec `json:"spec"`
}

func (p Part) Payload() PartPayload { return PartPayload{Name: p.Name} }

func (s Set) Payload() SetPayload { return SetPayload{RestTime: s.RestTime, TimeLimit: s.TimeLimit} }

func (e Exercise) Payload() ExercisePayload { return ExercisePayload{Name: e.Name, Spec: e.Spec} }

// NewSession returns an empty, unsaved session with a fresh seed id.
func NewSession(name string) Session {
	return Session{SeedID: NewSeedID("session"), Name: name, Parts: []Part{}}
}

// NewPart returns an unsaved part with a fresh seed id and no sets.
func NewPart(name string) Part {
	return Part{SeedID: NewSeedID("part"), Name: name, Sets: []Set{}}
}

// NewSet returns an unsaved set with a fresh seed id and no exercises.
func NewSet(restTime int) Set {
	return Set{SeedID: NewSeedID("set"), RestTime: restTime, Exercises: []Exercise{}}
}

// NewExercise returns an unsaved exercise with a fresh seed id.
func NewExercise(name string, spec ExerciseSpec) Exercise {
	return Exercise{SeedID: NewSeedID("exercise"), Name: name, Spec: spec}
}

// Indices addresses a node by position. Unused slots hold NoIndex.
type Indices struct {
	Part     int `json:"partIndex"`
	Set      int `json:"setIndex"`
	Exercise int `json:"exerciseIndex"`
}

// NoIndex marks an unused slot in Indices.
const NoIndex = -1

// SessionIndices addresses the session root.
var SessionIndices = Indices{Part: NoIndex, Set: NoIndex, Exercise: NoIndex}

func PartAt(p int) Indices           { return Indices{Part: p, Set: NoIndex, Exercise: NoIndex} }
func SetAt(p, s int) Indices         { return Indices{Part: p, Set: s, Exercise: NoIndex} }
func ExerciseAt(p, s, e int) Indices { return Indices{Part: p, Set: s, Exercise: e} }

// Level returns the depth addressed by ix.
func (ix Indices) Level() Level {
	switch {
	case ix.Part < 0:
		return LevelSession
	case ix.Set < 0:
		return LevelPart
	case ix.Exercise < 0:
		return LevelSet
	default:
		return LevelExercise
	}
}

// Last returns the index of the addressed node within its sibling list.
func (ix Indices) Last() int {
	switch ix.Level() {
	case LevelPart:
		return ix.Part
	case LevelSet:
		return ix.Set
	case LevelExercise:
		return ix.Exercise
	}
	return NoIndex
}

// WithLast returns ix with the position inside the sibling list replaced by i.
func (ix Indices) WithLast(i int) Indices {
	switch ix.Level() {
	case LevelPart:
		ix.Part = i
	case LevelSet:
		ix.Set = i
	case LevelExercise:
		ix.Exercise = i
	}
	return ix
}

// Child returns the indices of the i-th child of the node addressed by ix.
func (ix Indices) Child(i int) Indices {
	switch ix.Level() {
	case LevelSession:
		return PartAt(i)
	case LevelPart:
		return SetAt(ix.Part, i)
	case LevelSet:
		return ExerciseAt(ix.Part, ix.Set, i)
	}
	return ix
}

func (ix Indices) String() string {
	switch ix.Level() {
	case LevelSession:
		return "[]"
	case LevelPart:
		return fmt.Sprintf("[%d]", ix.Part)
	case LevelSet:
		return fmt.Sprintf("[%d %d]", ix.Part, ix.Set)
	}
	return fmt.Sprintf("[%d %d %d]", ix.Part, ix.Set, ix.Exercise)
}

// Touch marks the node as edited.
func (m *EditMeta) Touch() { m.Modified = true }

func (p Part) Seed() SeedID     { return p.SeedID }
func (s Set) Seed() SeedID      { return s.SeedID }
func (e Exercise) Seed() SeedID { return e.SeedID }

func (p *Part) SetOrder(i int)     { p.Order = i }
func (s *Set) SetOrder(i int)      { s.Order = i }
func (e *Exercise) SetOrder(i int) { e.Order = i }

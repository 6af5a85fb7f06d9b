/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"testing"

	"fitplan/internal/domain"
	"fitplan/internal/geom"
)

var rect0 = geom.R(0, 0, 10, 10)

func TestInsertionIndexBounds(t *testing.T) {
	boxes := StackBoxes(0, 100, "a", "b", "c", "d")
	for _, dragged := range []string{"a", "b", "d", "elsewhere"} {
		if got := InsertionIndex(boxes, dragged, -10); got != 0 {
			t.Fatalf("dragging %s above first: got %d want 0", dragged, got)
		}
		if got := InsertionIndex(boxes, dragged, 1000); got != len(boxes) {
			t.Fatalf("dragging %s below last: got %d want %d", dragged, got, len(boxes))
		}
	}
}

func TestInsertionIndexSkipsDraggedItem(t *testing.T) {
	boxes := StackBoxes(0, 100, "a", "b", "c", "d") // mids 50,150,250,350
	cases := []struct {
		dragged string
		y       float64
		want    int
	}{
		{"b", 40, 0},  // above a
		{"b", 120, 2}, // before c, which is where b already is
		{"b", 200, 2}, // still above c's midpoint
		{"b", 300, 3}, // between c and d
		{"a", 200, 2}, // after b, before c
		{"d", 200, 2}, // before c
		{"x", 200, 2}, // foreign item: before c
		{"x", 150, 2}, // exactly on a midpoint does not count as below
	}
	for _, tc := range cases {
		if got := InsertionIndex(boxes, tc.dragged, tc.y); got != tc.want {
			t.Fatalf("%s@%v: got %d want %d", tc.dragged, tc.y, got, tc.want)
		}
	}
	if got := InsertionIndex(nil, "x", 10); got != 0 {
		t.Fatalf("empty list: %d", got)
	}
}

func placerFixture() (*domain.Session, *StaticIndex) {
	s := &domain.Session{SeedID: "s", Parts: []domain.Part{
		{SeedID: "p0", Sets: []domain.Set{
			{SeedID: "S1", Exercises: []domain.Exercise{{SeedID: "E1"}}},
			{SeedID: "S2", Order: 1, Exercises: []domain.Exercise{{SeedID: "E2"}}},
		}},
	}}
	idx := NewStaticIndex()
	idx.SetBoxes("parts:s", StackBoxes(0, 400, "p0"))
	idx.SetBoxes("sets:p0", []ItemBox{{ID: "S1", Top: 0, Height: 180}, {ID: "S2", Top: 190, Height: 180}})
	idx.SetBoxes("exercises:S1", StackBoxes(20, 100, "E1"))
	idx.SetBoxes("exercises:S2", StackBoxes(210, 100, "E2"))
	return s, idx
}

func TestPlacerWalksUpToAcceptingList(t *testing.T) {
	s, idx := placerFixture()
	p := Placer{Index: idx, Topo: s}
	set := DragItem{ID: "S2", Type: domain.TypeSet, Level: domain.LevelSet, Indices: domain.SetAt(0, 1), ParentID: "p0"}

	ref, _ := ParseZoneID("exercises:S1")
	ph, ok := p.Place(ref, set, 50)
	if !ok || ph.ContainerID != "sets:p0" || ph.ContainerType != "sets" || ph.InsertIndex != 0 {
		t.Fatalf("set over exercise list: %+v %v", ph, ok)
	}

	part := DragItem{ID: "p0", Type: domain.TypePart, Level: domain.LevelPart, Indices: domain.PartAt(0), ParentID: "s"}
	if ph, ok := p.Place(ref, part, 50); !ok || ph.ContainerID != "parts:s" {
		t.Fatalf("part over exercise list: %+v %v", ph, ok)
	}

	ex := DragItem{ID: "E1", Type: domain.TypeExercise, Level: domain.LevelExercise, Indices: domain.ExerciseAt(0, 0, 0), ParentID: "S1"}
	partsRef, _ := ParseZoneID("parts:s")
	if _, ok := p.Place(partsRef, ex, 50); ok {
		t.Fatalf("exercise over the part list has no accepting ancestor")
	}
	if _, ok := p.Place(ZoneRef{Type: ZoneContainer, Container: domain.ContainerRef{Kind: domain.KindExercises, Owner: "gone"}}, ex, 50); ok {
		t.Fatalf("unknown owner must not place")
	}
}

func TestPlacerCreateZones(t *testing.T) {
	s, idx := placerFixture()
	p := Placer{Index: idx, Topo: s}
	ex := DragItem{ID: "E1", Type: domain.TypeExercise, ParentID: "S1"}
	set := DragItem{ID: "S1", Type: domain.TypeSet, ParentID: "p0"}

	ph, ok := p.Place(ZoneRef{Type: ZoneNewSet, Owner: "p0"}, ex, 0)
	if !ok || ph.ContainerID != "new-set:p0" || ph.InsertIndex != 2 {
		t.Fatalf("new-set: %+v %v", ph, ok)
	}
	if _, ok := p.Place(ZoneRef{Type: ZoneNewSet, Owner: "p0"}, set, 0); ok {
		t.Fatalf("a set cannot start a new set")
	}
	if ph, ok := p.Place(ZoneRef{Type: ZoneNewPart, Owner: "s"}, set, 0); !ok || ph.InsertIndex != 1 {
		t.Fatalf("new-part: %+v %v", ph, ok)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editstate

import (
	"errors"
	"math/rand"
	"testing"

	"fitplan/internal/domain"
)

func fixture() domain.Session {
	return Stamp(domain.Session{SeedID: "s", BlueprintID: domain.Blueprint(1), Parts: []domain.Part{
		{SeedID: "P", BlueprintID: domain.Blueprint(10), Name: "Main", Sets: []domain.Set{
			{SeedID: "S1", BlueprintID: domain.Blueprint(100), Order: 0, RestTime: 60, Exercises: []domain.Exercise{
				{SeedID: "E1", BlueprintID: domain.Blueprint(1000), Order: 0},
				{SeedID: "E2", BlueprintID: domain.Blueprint(1001), Order: 1},
			}},
			{SeedID: "S2", BlueprintID: domain.Blueprint(101), Order: 1, RestTime: 90, Exercises: []domain.Exercise{
				{SeedID: "E3", BlueprintID: domain.Blueprint(1002), Order: 0},
			}},
		}},
		{SeedID: "Q", BlueprintID: domain.Blueprint(11), Order: 1, Name: "Cool-down", Sets: []domain.Set{
			{SeedID: "T1", BlueprintID: domain.Blueprint(102), Exercises: []domain.Exercise{}},
		}},
	}})
}

func mustApply(t *testing.T, s domain.Session, err error) domain.Session {
	t.Helper()
	if err != nil {
		t.Fatalf("reducer: %v", err)
	}
	if err := s.CheckOrder(); err != nil {
		t.Fatalf("order not dense: %v", err)
	}
	return s
}

// checked adapts mustApply to reducers returning (Session, error).
func checked(t *testing.T) func(domain.Session, error) domain.Session {
	return func(s domain.Session, err error) domain.Session {
		t.Helper()
		return mustApply(t, s, err)
	}
}

func TestReorderSetAboveSibling(t *testing.T) {
	s := fixture()
	out := checked(t)(Reorder(s, domain.ContainerRef{Kind: domain.KindSets, Owner: "P"}, 1, 0))
	sets := out.Parts[0].Sets
	if sets[0].SeedID != "S2" || sets[0].Order != 0 || sets[1].SeedID != "S1" || sets[1].Order != 1 {
		t.Fatalf("unexpected order: %s=%d %s=%d", sets[0].SeedID, sets[0].Order, sets[1].SeedID, sets[1].Order)
	}
	if !sets[0].Modified || sets[1].Modified {
		t.Fatalf("only the moved set is touched")
	}
	if s.Parts[0].Sets[0].SeedID != "S1" {
		t.Fatalf("input tree was mutated")
	}
	if &out.Parts[1].Sets[0] != &s.Parts[1].Sets[0] {
		t.Fatalf("untouched branch should be shared")
	}
}

func TestReorderNoOpPositions(t *testing.T) {
	s := fixture()
	c := domain.ContainerRef{Kind: domain.KindExercises, Owner: "S1"}
	for _, to := range []int{0, 1} {
		out := checked(t)(Reorder(s, c, 0, to))
		if out.Parts[0].Sets[0].Exercises[0].Modified {
			t.Fatalf("to=%d must be a no-op", to)
		}
	}
	out := checked(t)(Reorder(s, c, 0, 2))
	if out.Parts[0].Sets[0].Exercises[1].SeedID != "E1" {
		t.Fatalf("E1 should be last")
	}
	if _, err := Reorder(s, c, 0, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestUpdateMarksOnlyTarget(t *testing.T) {
	s := fixture()
	limit := 120
	out := checked(t)(UpdateSet(s, "S2", domain.SetPayload{RestTime: 45, TimeLimit: &limit}))
	st := out.Parts[0].Sets[1]
	if !st.Modified || st.RestTime != 45 || *st.TimeLimit != 120 {
		t.Fatalf("set not updated: %+v", st)
	}
	if out.Parts[0].Modified || out.Parts[0].Sets[0].Modified {
		t.Fatalf("siblings and parents must stay unmodified")
	}
	if s.Parts[0].Sets[1].RestTime != 90 {
		t.Fatalf("input mutated")
	}
	out = checked(t)(UpdateExercise(out, "E3", domain.ExercisePayload{Name: "Squat", Spec: domain.ExerciseSpec{Goal: domain.Goal{Type: "reps", Value: 8}}}))
	if e := out.Parts[0].Sets[1].Exercises[0]; e.Name != "Squat" || !e.Modified {
		t.Fatalf("exercise not updated: %+v", e)
	}
	out = checked(t)(UpdatePart(out, "Q", domain.PartPayload{Name: "Stretch"}))
	if out.Parts[1].Name != "Stretch" {
		t.Fatalf("part not renamed")
	}
	if _, err := UpdatePart(out, "S1", domain.PartPayload{}); !errors.Is(err, ErrLevelMismatch) {
		t.Fatalf("expected level mismatch, got %v", err)
	}
	if _, err := UpdateSet(out, "ghost", domain.SetPayload{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteLeavesNoGap(t *testing.T) {
	s := fixture()
	out := checked(t)(DeleteNode(s, "E1"))
	ex := out.Parts[0].Sets[0].Exercises
	if len(ex) != 1 || ex[0].SeedID != "E2" || ex[0].Order != 0 {
		t.Fatalf("unexpected exercises: %+v", ex)
	}
	out = checked(t)(DeleteNode(out, "P"))
	if len(out.Parts) != 1 || out.Parts[0].SeedID != "Q" || out.Parts[0].Order != 0 {
		t.Fatalf("unexpected parts after delete")
	}
	if _, _, ok := out.Locate("E2"); ok {
		t.Fatalf("subtree must go with its part")
	}
	if _, err := DeleteNode(out, "s"); !errors.Is(err, ErrLevelMismatch) {
		t.Fatalf("session root must not be deletable")
	}
}

func TestAlignRecoversBookkeeping(t *testing.T) {
	o := fixture()
	edited := checked(t)(DeleteNode(o, "P"))
	edited = checked(t)(UpdateSet(edited, "T1", domain.SetPayload{RestTime: 30}))
	edited = Stamp(edited)

	got := Align(o, edited)
	q := got.Parts[0]
	if q.SeedID != "Q" || q.Order != 0 || q.OriginalOrder != 1 || q.Modified {
		t.Fatalf("part bookkeeping: %+v", q.EditMeta)
	}
	if t1 := q.Sets[0]; !t1.Modified || t1.OriginalOrder != 0 {
		t.Fatalf("changed set must be modified: %+v", t1.EditMeta)
	}
	if edited.Parts[0].OriginalOrder != 0 || edited.Parts[0].Sets[0].Modified {
		t.Fatalf("input must not be mutated")
	}
	same := Align(o, o)
	if same.Parts[1].OriginalOrder != 1 || same.Parts[1].Modified {
		t.Fatalf("identical tree: %+v", same.Parts[1].EditMeta)
	}
}

func TestMoveAcrossLists(t *testing.T) {
	s := fixture()
	out := checked(t)(Move(s, "E3", domain.ContainerRef{Kind: domain.KindExercises, Owner: "S1"}, 1))
	ex := out.Parts[0].Sets[0].Exercises
	if len(ex) != 3 || ex[1].SeedID != "E3" || !ex[1].Modified || ex[2].SeedID != "E2" {
		t.Fatalf("unexpected exercises: %+v", ex)
	}
	if len(out.Parts[0].Sets[1].Exercises) != 0 {
		t.Fatalf("source set should be empty")
	}
	out = checked(t)(Move(out, "S2", domain.ContainerRef{Kind: domain.KindSets, Owner: "Q"}, 0))
	if out.Parts[1].Sets[0].SeedID != "S2" || len(out.Parts[0].Sets) != 1 {
		t.Fatalf("set not moved")
	}
	if _, err := Move(out, "S2", domain.ContainerRef{Kind: domain.KindExercises, Owner: "S1"}, 0); !errors.Is(err, ErrLevelMismatch) {
		t.Fatalf("a set cannot go into an exercise list")
	}
	if _, err := Move(out, "E1", domain.ContainerRef{Kind: domain.KindExercises, Owner: "T1"}, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestDuplicateFreshIdentity(t *testing.T) {
	s := fixture()
	out, dup, err := Duplicate(s, "S1")
	mustApply(t, out, err)
	sets := out.Parts[0].Sets
	if len(sets) != 3 || sets[1].SeedID != dup || sets[2].SeedID != "S2" {
		t.Fatalf("copy must follow its source")
	}
	c := sets[1]
	if c.BlueprintID != nil || !c.Modified || c.RestTime != 60 || len(c.Exercises) != 2 {
		t.Fatalf("bad copy: %+v", c)
	}
	for _, e := range c.Exercises {
		if e.BlueprintID != nil || e.SeedID == "E1" || e.SeedID == "E2" || !e.Modified {
			t.Fatalf("child not re-seeded: %+v", e)
		}
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("duplicate produced duplicate seeds: %v", err)
	}
	if *s.Parts[0].Sets[0].BlueprintID != 100 {
		t.Fatalf("source lost its server id")
	}
}

func TestCreateContainer(t *testing.T) {
	s := fixture()
	out, seed, err := CreateContainer(s, "E2", domain.TypeSet, "P", 2, DefaultNewContainer)
	mustApply(t, out, err)
	st := out.Parts[0].Sets[2]
	if st.SeedID != seed || st.BlueprintID != nil || st.RestTime != 60 || len(st.Exercises) != 1 || st.Exercises[0].SeedID != "E2" {
		t.Fatalf("new set: %+v", st)
	}
	if len(out.Parts[0].Sets[0].Exercises) != 1 {
		t.Fatalf("exercise not removed from its set")
	}

	out, seed, err = CreateContainer(out, "E3", domain.TypePart, "s", 2, DefaultNewContainer)
	mustApply(t, out, err)
	p := out.Parts[2]
	if p.SeedID != seed || p.Name != "New part" || len(p.Sets) != 1 || p.Sets[0].Exercises[0].SeedID != "E3" {
		t.Fatalf("new part: %+v", p)
	}
	if _, _, err := CreateContainer(out, "P", domain.TypeSet, "Q", 0, DefaultNewContainer); !errors.Is(err, ErrLevelMismatch) {
		t.Fatalf("a part cannot start a set")
	}
}

func TestDenseOrderUnderRandomEdits(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := fixture()
	for i := 0; i < 300; i++ {
		var seeds []domain.SeedID
		s.Walk(func(n domain.NodeRef) bool {
			if n.Level != domain.LevelSession {
				seeds = append(seeds, n.SeedID)
			}
			return true
		})
		var err error
		next := s
		switch op := r.Intn(5); {
		case op == 0 || len(seeds) < 4:
			next, err = AddExercise(s, pickSet(r, s), -1, domain.NewExercise("x", domain.ExerciseSpec{}))
			if len(s.Parts) == 0 {
				next, err = AddPart(s, 0, domain.NewPart("p"))
			}
		case op == 1:
			next, err = DeleteNode(s, seeds[r.Intn(len(seeds))])
		case op == 2:
			next, _, err = Duplicate(s, seeds[r.Intn(len(seeds))])
		case op == 3:
			c, ok := s.ContainerOf(seeds[r.Intn(len(seeds))])
			if n := s.ContainerLen(c); ok && n > 0 {
				next, err = Reorder(s, c, r.Intn(n), r.Intn(n+1))
			}
		default:
			if len(s.Parts) > 0 {
				next, err = AddSet(s, s.Parts[r.Intn(len(s.Parts))].SeedID, 0, domain.NewSet(30))
			}
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		s = mustApply(t, next, err)
		if err := s.Validate(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func pickSet(r *rand.Rand, s domain.Session) domain.SeedID {
	var sets []domain.SeedID
	for _, p := range s.Parts {
		for _, st := range p.Sets {
			sets = append(sets, st.SeedID)
		}
	}
	if len(sets) == 0 {
		return "none"
	}
	return sets[r.Intn(len(sets))]
}

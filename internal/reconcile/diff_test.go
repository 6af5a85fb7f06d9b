/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fitplan/internal/domain"
	"fitplan/internal/editstate"
	applog "fitplan/internal/log"
)

func original() domain.Session {
	return editstate.Stamp(domain.Session{SeedID: "s", BlueprintID: domain.Blueprint(1), Parts: []domain.Part{
		{SeedID: "P", BlueprintID: domain.Blueprint(10), Name: "Main", Sets: []domain.Set{
			{SeedID: "S", BlueprintID: domain.Blueprint(100), RestTime: 60, Exercises: []domain.Exercise{
				{SeedID: "A", BlueprintID: domain.Blueprint(1000), Name: "Squat"},
			}},
			{SeedID: "T", BlueprintID: domain.Blueprint(101), Order: 1, RestTime: 90, Exercises: []domain.Exercise{
				{SeedID: "B", BlueprintID: domain.Blueprint(1001), Name: "Lunge"},
			}},
		}},
		{SeedID: "Q", BlueprintID: domain.Blueprint(11), Order: 1, Name: "Cool-down", Sets: []domain.Set{}},
	}})
}

func ptr(i int) *int { return &i }

func TestDiffIdenticalCopyIsEmpty(t *testing.T) {
	o := original()
	cp, err := editstate.Clone(o)
	if err != nil {
		t.Fatal(err)
	}
	if got := Diff(o, cp); got != nil {
		t.Fatalf("expected no commands, got %+v", got)
	}
}

func TestDiffNewExercisePropagatesModify(t *testing.T) {
	o := original()
	e := domain.NewExercise("Deadlift", domain.ExerciseSpec{Goal: domain.Goal{Type: "reps", Value: 5}})
	ed, err := editstate.AddExercise(o, "S", -1, e)
	if err != nil {
		t.Fatal(err)
	}
	want := []Command{{
		Op: OpModify, Level: domain.TypePart, SeedID: "P", BlueprintID: domain.Blueprint(10), ParentSeedID: "s",
		Order: ptr(0), Part: &domain.PartPayload{Name: "Main"},
		Children: []Command{{
			Op: OpModify, Level: domain.TypeSet, SeedID: "S", BlueprintID: domain.Blueprint(100), ParentSeedID: "P",
			Order: ptr(0), Set: &domain.SetPayload{RestTime: 60},
			Children: []Command{{
				Op: OpAdd, Level: domain.TypeExercise, SeedID: e.SeedID, ParentSeedID: "S",
				Order: ptr(1), Exercise: &domain.ExercisePayload{Name: "Deadlift", Spec: e.Spec},
			}},
		}},
	}}
	if d := cmp.Diff(want, Diff(o, ed)); d != "" {
		t.Fatalf("diff mismatch (-want +got):\n%s", d)
	}
}

func TestDiffReorderEmitsModifiesOnly(t *testing.T) {
	o := original()
	ed, err := editstate.Reorder(o, domain.ContainerRef{Kind: domain.KindSets, Owner: "P"}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	cmds := Diff(o, ed)
	if len(cmds) != 1 || cmds[0].SeedID != "P" {
		t.Fatalf("expected one part modify, got %+v", cmds)
	}
	sets := cmds[0].Children
	if len(sets) != 2 || sets[0].SeedID != "T" || *sets[0].Order != 0 || sets[1].SeedID != "S" || *sets[1].Order != 1 {
		t.Fatalf("unexpected set commands: %+v", sets)
	}
	for _, c := range sets {
		if c.Op != OpModify || len(c.Children) != 0 {
			t.Fatalf("reorder must not touch exercises: %+v", c)
		}
	}
}

func TestDiffDeletesFirstAndNotNested(t *testing.T) {
	o := original()
	ed, _ := editstate.DeleteNode(o, "A")
	ed, _ = editstate.DeleteNode(ed, "Q")
	n := domain.NewPart("Finisher")
	ed, _ = editstate.AddPart(ed, 0, n)

	cmds := Diff(o, ed)
	if len(cmds) != 3 {
		t.Fatalf("expected 3 part commands, got %+v", cmds)
	}
	if cmds[0].Op != OpDelete || cmds[0].SeedID != "Q" || *cmds[0].BlueprintID != 11 || cmds[0].Order != nil {
		t.Fatalf("delete must come first: %+v", cmds[0])
	}
	if cmds[1].Op != OpAdd || cmds[1].SeedID != n.SeedID || cmds[1].BlueprintID != nil {
		t.Fatalf("expected add of new part: %+v", cmds[1])
	}
	p := cmds[2]
	if p.Op != OpModify || p.SeedID != "P" || *p.Order != 1 {
		t.Fatalf("shifted part must be modified: %+v", p)
	}
	if len(p.Children) != 1 || p.Children[0].SeedID != "S" {
		t.Fatalf("only S changed below P: %+v", p.Children)
	}
	if del := p.Children[0].Children; len(del) != 1 || del[0].Op != OpDelete || del[0].SeedID != "A" {
		t.Fatalf("exercise delete nested under its set: %+v", del)
	}
	got := Count(cmds)
	if got[OpDelete] != 2 || got[OpAdd] != 1 || got[OpModify] != 2 {
		t.Fatalf("count = %v", got)
	}
}

func TestDiffKeepsDeletesUnderReparentedSet(t *testing.T) {
	o := original()
	ed, err := editstate.DeleteNode(o, "A")
	if err != nil {
		t.Fatal(err)
	}
	if ed, err = editstate.Move(ed, "S", domain.ContainerRef{Kind: domain.KindSets, Owner: "Q"}, 0); err != nil {
		t.Fatal(err)
	}
	if ed, err = editstate.DeleteNode(ed, "P"); err != nil {
		t.Fatal(err)
	}

	cmds := Diff(o, ed)
	if len(cmds) != 2 || cmds[0].Op != OpDelete || cmds[0].SeedID != "P" || cmds[1].SeedID != "Q" {
		t.Fatalf("expected delete P then modify Q, got %+v", cmds)
	}
	q := cmds[1]
	if q.Op != OpModify || len(q.Children) != 1 {
		t.Fatalf("Q must be modified with one set command: %+v", q)
	}
	s := q.Children[0]
	if s.Op != OpModify || s.SeedID != "S" || !s.Reparented || s.ParentSeedID != "Q" {
		t.Fatalf("moved set: %+v", s)
	}
	want := []Command{{Op: OpDelete, Level: domain.TypeExercise, SeedID: "A", BlueprintID: domain.Blueprint(1000), ParentSeedID: "S"}}
	if d := cmp.Diff(want, s.Children); d != "" {
		t.Fatalf("exercise delete lost under moved set (-want +got):\n%s", d)
	}
	if got := Count(cmds); got[OpDelete] != 2 {
		t.Fatalf("T and B go with P, A needs its own delete: %v", got)
	}
}

func TestDiffCrossContainerMoveKeepsIdentity(t *testing.T) {
	o := original()
	ed, err := editstate.Move(o, "B", domain.ContainerRef{Kind: domain.KindExercises, Owner: "S"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	cmds := Diff(o, ed)
	if c := Count(cmds); c[OpDelete] != 0 || c[OpAdd] != 0 {
		t.Fatalf("a move is neither add nor delete: %v", c)
	}
	var moved *Command
	for i := range cmds[0].Children {
		for j := range cmds[0].Children[i].Children {
			if c := &cmds[0].Children[i].Children[j]; c.SeedID == "B" {
				moved = c
			}
		}
	}
	if moved == nil || !moved.Reparented || moved.ParentSeedID != "S" || *moved.BlueprintID != 1001 {
		t.Fatalf("moved exercise: %+v", moved)
	}
}

func TestDiffUnsavedNodeIsNeverModified(t *testing.T) {
	o := original()
	o.Parts[1].BlueprintID = nil
	cp, _ := editstate.Clone(o)
	cmds := Diff(o, cp)
	if len(cmds) != 1 || cmds[0].Op != OpAdd || cmds[0].SeedID != "Q" {
		t.Fatalf("unsaved part must be added: %+v", cmds)
	}
	ed, _ := editstate.DeleteNode(o, "Q")
	if got := Diff(o, ed); got != nil {
		t.Fatalf("deleting an unsaved part needs no command: %+v", got)
	}
}

func TestMarshalCommandsValidates(t *testing.T) {
	o := original()
	ed, _ := editstate.UpdateSet(o, "T", domain.SetPayload{RestTime: 45})
	ed, _ = editstate.DeleteNode(ed, "A")
	b, err := MarshalCommands(Diff(o, ed))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil || len(raw) != 1 || raw[0]["op"] != "modify" {
		t.Fatalf("unexpected json %s (%v)", b, err)
	}
	if b, err := MarshalCommands(nil); err != nil || string(b) != "[]" {
		t.Fatalf("empty batch: %s %v", b, err)
	}
}

func TestSubmit(t *testing.T) {
	o := original()
	var got []Command
	p := PersisterFunc(func(_ context.Context, s domain.SeedID, cmds []Command) error {
		if s != "s" {
			t.Errorf("session = %s", s)
		}
		got = cmds
		return nil
	})
	if _, err := Submit(context.Background(), p, o, o); !errors.Is(err, ErrNothingToSave) {
		t.Fatalf("expected ErrNothingToSave, got %v", err)
	}
	ed, _ := editstate.UpdatePart(o, "Q", domain.PartPayload{Name: "Stretch"})
	cmds, err := Submit(context.Background(), p, o, ed)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if d := cmp.Diff(cmds, got); d != "" || len(cmds) != 1 || cmds[0].Part.Name != "Stretch" {
		t.Fatalf("persisted batch differs: %s", d)
	}

	var buf bytes.Buffer
	applog.Init(applog.Options{Level: "info", Format: "json", Console: &buf})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "error", Console: &bytes.Buffer{}}) })
	ed, _ = editstate.UpdatePart(o, "Q", domain.PartPayload{Name: "Mobility"})
	logged := PersisterFunc(func(ctx context.Context, _ domain.SeedID, _ []Command) error {
		applog.L().InfoContext(ctx, "stored")
		return nil
	})
	if _, err := Submit(context.Background(), logged, o, ed); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		if m["session"] != "s" {
			t.Fatalf("record %q lacks the session attr", m["msg"])
		}
	}

	boom := errors.New("offline")
	fail := PersisterFunc(func(context.Context, domain.SeedID, []Command) error { return boom })
	if _, err := Submit(context.Background(), fail, o, ed); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped persister error, got %v", err)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fitplan/internal/config"
	"fitplan/internal/domain"
	"fitplan/internal/storage"
)

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testApp(t *testing.T) *app {
	cfg := config.Defaults()
	cfg.Drafts.Path = filepath.Join(t.TempDir(), "drafts.sqlite")
	return &app{cfg: cfg}
}

func saved() domain.Session {
	s := domain.NewSession("Monday")
	s.BlueprintID = domain.Blueprint(1)
	p := domain.NewPart("Main")
	p.BlueprintID = domain.Blueprint(2)
	set := domain.NewSet(90)
	set.BlueprintID = domain.Blueprint(3)
	ex := domain.NewExercise("Squat", domain.ExerciseSpec{Goal: domain.Goal{Type: "reps", Value: 5}})
	ex.BlueprintID = domain.Blueprint(4)
	set.Exercises = append(set.Exercises, ex)
	p.Sets = append(p.Sets, set)
	s.Parts = append(s.Parts, p)
	return s
}

func writeSession(t *testing.T, dir, name string, s domain.Session) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := storage.WriteSession(path, s); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, testApp(t), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "fitplan ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	orig := saved()
	part := orig.Parts[0]
	set := part.Sets[0]
	added := domain.NewExercise("Lunge", domain.ExerciseSpec{Goal: domain.Goal{Type: "reps", Value: 8}})
	added.Order = 1
	set.Exercises = append(append([]domain.Exercise{}, set.Exercises...), added)
	part.Sets = []domain.Set{set}
	edit := orig
	edit.Parts = []domain.Part{part}

	a := testApp(t)
	op := writeSession(t, dir, "orig.json", orig)
	ep := writeSession(t, dir, "edit.yaml", edit)

	out, err := run(t, a, "diff", "--summary", op, ep)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	var counts map[string]int
	if err := json.Unmarshal([]byte(out), &counts); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if diff := cmp.Diff(map[string]int{"add": 1, "modify": 2, "delete": 0}, counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, a, "diff", op, op)
	if err != nil {
		t.Fatalf("diff identical: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("identical documents should give [], got %q", out)
	}
}

func TestDiffComparesPlainDocuments(t *testing.T) {
	dir := t.TempDir()
	orig := saved()
	cool := domain.NewPart("Cool-down")
	cool.BlueprintID = domain.Blueprint(5)
	cool.Order = 1
	orig.Parts = append(orig.Parts, cool)
	op := writeSession(t, dir, "orig.json", orig)

	a := testApp(t)
	out, err := run(t, a, "diff", op, op)
	if err != nil {
		t.Fatalf("diff identical: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("identical multi-part documents should give [], got %q", out)
	}

	renamed := orig
	renamed.Parts = []domain.Part{orig.Parts[0], cool}
	renamed.Parts[1].Name = "Stretch"
	out, err = run(t, a, "diff", "--summary", op, writeSession(t, dir, "edit.json", renamed))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	var counts map[string]int
	if err := json.Unmarshal([]byte(out), &counts); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if diff := cmp.Diff(map[string]int{"add": 0, "modify": 1, "delete": 0}, counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateReportsBadDocument(t *testing.T) {
	dir := t.TempDir()
	good := writeSession(t, dir, "good.json", saved())
	a := testApp(t)
	if _, err := run(t, a, "validate", good); err != nil {
		t.Fatalf("validate good: %v", err)
	}
	out, err := run(t, a, "validate", good, filepath.Join(dir, "missing.json"))
	if err == nil {
		t.Fatalf("expected failure for missing document")
	}
	if !strings.Contains(out, `"nodes":4`) {
		t.Fatalf("good document not reported: %s", out)
	}
}

func TestCleanupWrite(t *testing.T) {
	dir := t.TempDir()
	s := saved()
	empty := domain.NewPart("Cool-down")
	empty.Order = 1
	empty.Sets = append(empty.Sets, domain.NewSet(30))
	s.Parts = append(s.Parts, empty)
	path := writeSession(t, dir, "s.json", s)

	out, err := run(t, testApp(t), "cleanup", "--write", path)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	var res struct {
		Parts   []string `json:"parts"`
		Written bool     `json:"written"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !res.Written || len(res.Parts) != 1 || res.Parts[0] != string(empty.SeedID) {
		t.Fatalf("unexpected cleanup result %+v", res)
	}
	back, err := storage.ReadSession(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(back.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(back.Parts))
	}
}

func TestExportPDF(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "s.json", saved())
	out := filepath.Join(dir, "sheet.pdf")
	if _, err := run(t, testApp(t), "export", "pdf", "--guides", path, out); err != nil {
		t.Fatalf("export: %v", err)
	}
}

func TestDraftsCommands(t *testing.T) {
	a := testApp(t)
	ds, err := storage.OpenDrafts(a.cfg.Drafts.Path)
	if err != nil {
		t.Fatalf("open drafts: %v", err)
	}
	s := saved()
	if err := ds.Save(context.Background(), storage.Draft{Session: s, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	_ = ds.Close()

	out, err := run(t, a, "drafts", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, string(s.SeedID)) {
		t.Fatalf("draft missing from list: %s", out)
	}
	if out, err = run(t, a, "drafts", "show", string(s.SeedID)); err != nil || !strings.Contains(out, `"Monday"`) {
		t.Fatalf("show: %v %s", err, out)
	}
	if _, err = run(t, a, "drafts", "rm", string(s.SeedID)); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err = run(t, a, "drafts", "rm", string(s.SeedID)); err == nil {
		t.Fatalf("second rm should fail")
	}
}

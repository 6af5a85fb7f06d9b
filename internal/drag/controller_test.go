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
	"time"

	"fitplan/internal/domain"
	"fitplan/internal/geom"
	"fitplan/internal/pin"
)

type recorder struct {
	starts       []DragItem
	denied       []pin.Profile
	placeholders []*PlaceholderInfo
	moves        []Move
	duplicates   []Duplicate
	deletes      []Delete
	creates      []CreateContainer
	expands      []domain.SeedID
	scrolls      []ScrollTick
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnDragStart:         func(d DragItem) { r.starts = append(r.starts, d) },
		OnDragDenied:        func(_ DragItem, p pin.Profile) { r.denied = append(r.denied, p) },
		OnPlaceholderUpdate: func(p *PlaceholderInfo) { r.placeholders = append(r.placeholders, p) },
		OnItemMove:          func(m Move) { r.moves = append(r.moves, m) },
		OnItemDuplicate:     func(d Duplicate) { r.duplicates = append(r.duplicates, d) },
		OnItemDelete:        func(d Delete) { r.deletes = append(r.deletes, d) },
		OnContainerCreate:   func(c CreateContainer) { r.creates = append(r.creates, c) },
		OnExpand:            func(s domain.SeedID) { r.expands = append(r.expands, s) },
		OnScroll:            func(s ScrollTick) { r.scrolls = append(r.scrolls, s) },
	}
}

type harness struct {
	ctl   *Controller
	idx   *StaticIndex
	clock *ManualScheduler
	rec   *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, idx := placerFixture()
	idx.SetZones(
		ContainerZone(domain.ContainerRef{Kind: domain.KindParts, Owner: "s"}, geom.R(0, 0, 300, 1000)),
		ContainerZone(domain.ContainerRef{Kind: domain.KindSets, Owner: "p0"}, geom.R(0, 0, 300, 400)),
		ContainerZone(domain.ContainerRef{Kind: domain.KindExercises, Owner: "S1"}, geom.R(10, 20, 280, 100)),
		ContainerZone(domain.ContainerRef{Kind: domain.KindExercises, Owner: "S2"}, geom.R(10, 200, 280, 100)),
		NewSetZone("p0", geom.R(0, 420, 300, 50)),
		NewPartZone("s", geom.R(0, 900, 300, 50)),
		DuplicateZone(geom.R(400, 100, 60, 60)),
		DeleteZone(geom.R(400, 0, 60, 60)),
	)
	clock := NewManualScheduler(time.Unix(0, 0))
	rec := &recorder{}
	return &harness{ctl: NewController(DefaultConfig(), idx, s, clock, rec.hooks()), idx: idx, clock: clock, rec: rec}
}

func (h *harness) moveTo(x, y float64, box geom.Rect) {
	h.idx.SetPointer(geom.Pt{X: x, Y: y})
	h.ctl.Move(box)
}

var (
	itemS2 = DragItem{ID: "S2", Type: domain.TypeSet, Level: domain.LevelSet, Indices: domain.SetAt(0, 1), ParentID: "p0"}
	itemE2 = DragItem{ID: "E2", Type: domain.TypeExercise, Level: domain.LevelExercise, Indices: domain.ExerciseAt(0, 1, 0), ParentID: "S2"}
)

func TestDragSetAboveSiblingEmitsMove(t *testing.T) {
	h := newHarness(t)
	if !h.ctl.Start(itemS2) || h.ctl.State() != StateActive {
		t.Fatalf("start refused")
	}
	h.moveTo(150, 50, geom.R(10, 20, 280, 60))
	ph := h.ctl.Placeholder()
	if ph == nil || ph.ContainerID != "sets:p0" || ph.InsertIndex != 0 {
		t.Fatalf("placeholder = %+v", ph)
	}
	in, ok := h.ctl.End()
	if !ok {
		t.Fatalf("expected an intent")
	}
	mv, isMove := in.(Move)
	if !isMove || mv.From != domain.SetAt(0, 1) || mv.To != domain.SetAt(0, 0) || !mv.SameList() {
		t.Fatalf("intent = %#v", in)
	}
	if len(h.rec.moves) != 1 || h.ctl.State() != StateIdle || h.ctl.Placeholder() != nil {
		t.Fatalf("controller not settled: moves=%d state=%s", len(h.rec.moves), h.ctl.State())
	}
	if last := h.rec.placeholders[len(h.rec.placeholders)-1]; last != nil {
		t.Fatalf("placeholder must be cleared on drop")
	}
}

func TestDropUsesLastPlaceholderNotPointerAtRelease(t *testing.T) {
	h := newHarness(t)
	h.ctl.Start(itemS2)
	h.moveTo(150, 50, geom.R(10, 20, 280, 60))
	// Pointer drifts after the last move; the drop must not re-measure.
	h.idx.SetPointer(geom.Pt{X: 150, Y: 390})
	in, ok := h.ctl.End()
	if !ok || in.(Move).To != domain.SetAt(0, 0) {
		t.Fatalf("intent = %#v", in)
	}
}

func TestDeniedStartHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	locked := itemS2
	locked.Pin = pin.State{Set: true}
	if h.ctl.Start(locked) {
		t.Fatalf("pinned item must not start")
	}
	if h.ctl.State() != StateIdle || len(h.rec.starts) != 0 || len(h.rec.denied) != 1 || h.rec.denied[0].Active != pin.SetPin {
		t.Fatalf("unexpected state after denial: %s %+v", h.ctl.State(), h.rec)
	}
	h.moveTo(150, 50, geom.R(10, 20, 280, 60))
	if _, ok := h.ctl.End(); ok || len(h.rec.placeholders) != 0 {
		t.Fatalf("idle controller must ignore move and end")
	}
}

func TestNoOpAndOutsideDropsEmitNothing(t *testing.T) {
	h := newHarness(t)
	h.ctl.Start(itemS2)
	h.moveTo(150, 300, geom.R(10, 250, 280, 60)) // below S1, S2 stays where it is
	if ph := h.ctl.Placeholder(); ph == nil || ph.InsertIndex != 2 {
		t.Fatalf("placeholder = %+v", ph)
	}
	if _, ok := h.ctl.End(); ok {
		t.Fatalf("same position must not emit")
	}

	h.ctl.Start(itemS2)
	h.moveTo(2000, 2000, geom.R(2000, 2000, 10, 10))
	if _, ok := h.ctl.End(); ok {
		t.Fatalf("drop outside every zone must not emit")
	}
	if len(h.rec.moves) != 0 || h.ctl.State() != StateIdle {
		t.Fatalf("no intent expected")
	}
}

func TestActionZonesAfterGrace(t *testing.T) {
	h := newHarness(t)
	h.ctl.Start(itemE2)
	h.moveTo(430, 30, geom.R(420, 20, 20, 20))
	if _, ok := h.ctl.End(); ok {
		t.Fatalf("delete zone must be inert during the grace window")
	}

	h.ctl.Start(itemE2)
	h.clock.Advance(150 * time.Millisecond)
	h.moveTo(430, 30, geom.R(420, 20, 20, 20))
	in, ok := h.ctl.End()
	if !ok || in.Kind() != IntentDelete || len(h.rec.deletes) != 1 {
		t.Fatalf("expected delete, got %#v", in)
	}

	h.ctl.Start(itemE2)
	h.clock.Advance(150 * time.Millisecond)
	h.moveTo(430, 130, geom.Rect{})
	in, ok = h.ctl.End()
	if !ok || in.Kind() != IntentDuplicate || in.Dragged().ID != "E2" {
		t.Fatalf("expected duplicate, got %#v", in)
	}
}

func TestCreateContainerZones(t *testing.T) {
	h := newHarness(t)
	h.ctl.Start(itemE2)
	h.moveTo(150, 440, geom.Rect{})
	in, ok := h.ctl.End()
	cc, isCreate := in.(CreateContainer)
	if !ok || !isCreate || cc.Type != domain.TypeSet || cc.Owner != "p0" || cc.Target != domain.SetAt(0, 2) {
		t.Fatalf("intent = %#v", in)
	}

	h.ctl.Start(itemS2)
	h.moveTo(150, 920, geom.Rect{})
	in, ok = h.ctl.End()
	if cc, _ := in.(CreateContainer); !ok || cc.Type != domain.TypePart || cc.Target != domain.PartAt(1) {
		t.Fatalf("intent = %#v", in)
	}
	if len(h.rec.creates) != 2 {
		t.Fatalf("creates = %d", len(h.rec.creates))
	}
}

func TestCrossListExerciseMove(t *testing.T) {
	h := newHarness(t)
	h.ctl.Start(itemE2)
	h.moveTo(150, 30, geom.Rect{})
	in, ok := h.ctl.End()
	mv, _ := in.(Move)
	if !ok || mv.SameList() || mv.ToContainer.ID() != "exercises:S1" || mv.To != domain.ExerciseAt(0, 0, 0) {
		t.Fatalf("intent = %#v", in)
	}
}

type lockedTopo struct {
	*domain.Session
	child map[domain.SeedID]pin.State
}

func (l lockedTopo) ChildPins(owner domain.SeedID) pin.State { return l.child[owner] }

func TestPinnedTargetListsRefuseDrops(t *testing.T) {
	h := newHarness(t)
	s, _ := placerFixture()
	topo := lockedTopo{Session: s, child: map[domain.SeedID]pin.State{
		"S1": {Set: true, Exercise: true},
		"p0": {Part: true, Set: true, Exercise: true},
	}}
	h.ctl = NewController(DefaultConfig(), h.idx, topo, h.clock, h.rec.hooks())

	h.ctl.Start(itemE2)
	h.moveTo(150, 30, geom.Rect{})
	if ph := h.ctl.Placeholder(); ph != nil {
		t.Fatalf("locked list got a placeholder: %+v", ph)
	}
	if in, ok := h.ctl.End(); ok {
		t.Fatalf("drop into a locked list emitted %#v", in)
	}

	h.ctl.Start(itemE2)
	h.moveTo(150, 440, geom.Rect{})
	if in, ok := h.ctl.End(); ok {
		t.Fatalf("new set in a locked part emitted %#v", in)
	}

	h.ctl.Start(itemS2)
	h.moveTo(150, 920, geom.Rect{})
	if in, ok := h.ctl.End(); !ok || in.Kind() != IntentCreateContainer {
		t.Fatalf("new part under an open session: %#v", in)
	}
	if len(h.rec.moves) != 0 || len(h.rec.creates) != 1 {
		t.Fatalf("moves=%d creates=%d", len(h.rec.moves), len(h.rec.creates))
	}
}

func TestAutoExpandAfterDwell(t *testing.T) {
	h := newHarness(t)
	h.ctl.SetCollapsed("S1", true)
	h.ctl.Start(itemE2)
	h.moveTo(150, 50, geom.Rect{})
	h.clock.Advance(999 * time.Millisecond)
	h.moveTo(151, 50, geom.Rect{}) // same hover keeps the dwell running
	if len(h.rec.expands) != 0 {
		t.Fatalf("expanded too early")
	}
	h.clock.Advance(time.Millisecond)
	if len(h.rec.expands) != 1 || h.rec.expands[0] != "S1" {
		t.Fatalf("expands = %v", h.rec.expands)
	}
	h.ctl.Cancel()
}

func TestAutoExpandOnlyForDirectOwner(t *testing.T) {
	h := newHarness(t)
	h.ctl.SetCollapsed("S1", true)
	h.ctl.Start(itemS2) // a set over a set's exercise list does not expand it
	h.moveTo(150, 50, geom.Rect{})
	h.clock.Advance(2 * time.Second)
	if len(h.rec.expands) != 0 {
		t.Fatalf("unexpected expand %v", h.rec.expands)
	}
	h.ctl.Cancel()
}

func TestTimersStopWhenDragEnds(t *testing.T) {
	h := newHarness(t)
	h.ctl.SetCollapsed("S1", true)
	h.ctl.SetViewports(Viewport{ID: "main", Bounds: geom.R(0, 0, 300, 60)})
	h.ctl.Start(itemE2)
	h.moveTo(150, 50, geom.Rect{})
	if h.clock.Pending() != 2 {
		t.Fatalf("expected expand and scroll timers, got %d", h.clock.Pending())
	}
	h.ctl.End()
	if h.clock.Pending() != 0 {
		t.Fatalf("timers left after end: %d", h.clock.Pending())
	}
	h.clock.Advance(5 * time.Second)
	if len(h.rec.expands) != 0 || len(h.rec.scrolls) != 0 {
		t.Fatalf("stale timer fired: %v %v", h.rec.expands, h.rec.scrolls)
	}
}

func TestAutoScrollTicksWhileInBand(t *testing.T) {
	h := newHarness(t)
	h.ctl.SetViewports(Viewport{ID: "main", Bounds: geom.R(0, 0, 300, 500)})
	h.ctl.Start(itemE2)
	h.moveTo(150, 490, geom.Rect{})
	h.clock.Advance(16 * time.Millisecond)
	if len(h.rec.scrolls) != 1 || h.rec.scrolls[0] != (ScrollTick{Viewport: "main", Delta: 7}) {
		t.Fatalf("scrolls = %+v", h.rec.scrolls)
	}
	h.moveTo(150, 500, geom.Rect{}) // on the edge itself, same timer
	h.clock.Advance(32 * time.Millisecond)
	if len(h.rec.scrolls) != 3 || h.rec.scrolls[2].Delta != 12 {
		t.Fatalf("scrolls = %+v", h.rec.scrolls)
	}
	h.moveTo(150, 5, geom.Rect{})
	h.clock.Advance(16 * time.Millisecond)
	if n := len(h.rec.scrolls); n != 4 || h.rec.scrolls[3].Delta >= 0 {
		t.Fatalf("expected one upward tick, got %+v", h.rec.scrolls)
	}
	h.moveTo(150, 250, geom.Rect{})
	h.clock.Advance(100 * time.Millisecond)
	if len(h.rec.scrolls) != 4 {
		t.Fatalf("scroll continued outside band: %+v", h.rec.scrolls)
	}
	h.ctl.Cancel()
	if h.ctl.State() != StateIdle {
		t.Fatalf("cancel did not reset")
	}
}

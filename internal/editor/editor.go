/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the single entry point of the presentation layer. It
// wires the drag controller to the editable store, the pin authority and the
// draft autosaver.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fitplan/internal/domain"
	"fitplan/internal/drag"
	"fitplan/internal/editstate"
	applog "fitplan/internal/log"
	"fitplan/internal/pin"
	"fitplan/internal/reconcile"
	"fitplan/internal/storage"
	"fitplan/internal/undo"
)

// Options configures an Editor. The zero value is usable: drag defaults, no
// pin auto-promotion, no autosave and a wall-clock scheduler.
type Options struct {
	Drag            drag.Config
	AutoPromotePins bool
	Floors          editstate.Floors
	NewContainer    editstate.NewContainerDefaults
	History         *undo.Manager
	Autosaver       *storage.Autosaver
	Scheduler       drag.Scheduler
	Index           drag.SpatialIndex

	// Hooks are forwarded after the editor has applied the intent.
	Hooks drag.Hooks
	// OnChange receives every new working tree.
	OnChange func(domain.Session)
	// OnError receives failures of intents applied from drag hooks.
	OnError func(error)
}

// Editor owns one session being edited.
type Editor struct {
	store *editstate.Store
	pins  *pin.Authority
	ctrl  *drag.Controller
	opts  Options
	now   func() time.Time
	log   *slog.Logger

	// serializes intent application and the follow-up pin promotion
	mu sync.Mutex
}

// New opens snapshot for editing.
func New(snapshot domain.Session, opts Options) (*Editor, error) {
	st, err := editstate.NewStore(snapshot, opts.History)
	if err != nil {
		return nil, err
	}
	if opts.Drag == (drag.Config{}) {
		opts.Drag = drag.DefaultConfig()
	}
	if opts.NewContainer == (editstate.NewContainerDefaults{}) {
		opts.NewContainer = editstate.DefaultNewContainer
	}
	if opts.Index == nil {
		opts.Index = drag.NewStaticIndex()
	}
	e := &Editor{
		store: st,
		pins:  pin.NewAuthority(),
		opts:  opts,
		now:   time.Now,
		log:   applog.WithComponent("editor").With(slog.String("session", string(snapshot.SeedID))),
	}
	e.ctrl = drag.NewController(opts.Drag, opts.Index, e, opts.Scheduler, e.hooks())
	return e, nil
}

// Restore continues from a saved draft of the same session.
func (e *Editor) Restore(d storage.Draft) error {
	if err := e.store.Replace(d.Session); err != nil {
		return err
	}
	s := e.store.Snapshot()
	e.pins.Import(&s, d.Pins)
	e.log.Info("draft restored", slog.Int("pins", len(d.Pins)))
	e.changed(s)
	return nil
}

func (e *Editor) Controller() *drag.Controller { return e.ctrl }

// Session is the current working tree. Treat it as read-only.
func (e *Editor) Session() domain.Session { return e.store.Snapshot() }

// Original is the stamped server snapshot.
func (e *Editor) Original() domain.Session { return e.store.Original() }

func (e *Editor) Dirty() bool { return e.store.Dirty() }

// OwnerIndices, ContainerLen and ParentContainer answer for the current
// working tree, so the drag controller always sees the latest shape.

func (e *Editor) OwnerIndices(c domain.ContainerRef) (domain.Indices, bool) {
	s := e.store.Snapshot()
	return s.OwnerIndices(c)
}

func (e *Editor) ContainerLen(c domain.ContainerRef) int {
	s := e.store.Snapshot()
	return s.ContainerLen(c)
}

func (e *Editor) ParentContainer(c domain.ContainerRef) (domain.ContainerRef, bool) {
	s := e.store.Snapshot()
	return s.ParentContainer(c)
}

// GetPinState returns the inherited pin flags of the node at ix.
func (e *Editor) GetPinState(level domain.Level, ix domain.Indices) pin.State {
	s := e.store.Snapshot()
	return e.pins.GetPinState(&s, level, ix)
}

// ChildPins returns the flags inherited by children of owner. The drag
// controller refuses drops into lists whose children could not be dragged.
func (e *Editor) ChildPins(owner domain.SeedID) pin.State {
	s := e.store.Snapshot()
	return e.pins.ChildState(&s, owner)
}

// EffectivePin returns the permission profile of the node with the given seed.
func (e *Editor) EffectivePin(seed domain.SeedID) pin.Profile {
	s := e.store.Snapshot()
	return e.pins.EffectivePin(&s, seed)
}

// ResetPin clears the pins stored on seed.
func (e *Editor) ResetPin(seed domain.SeedID) {
	e.pins.Reset(seed)
	e.notifyAutosave(e.store.Snapshot())
}

// DragItemFor describes the node with the given seed as a drag item.
func (e *Editor) DragItemFor(seed domain.SeedID) (drag.DragItem, bool) {
	s := e.store.Snapshot()
	lvl, ix, ok := s.Locate(seed)
	if !ok {
		return drag.DragItem{}, false
	}
	t, ok := lvl.ItemType()
	if !ok {
		return drag.DragItem{}, false
	}
	anc := s.Ancestors(seed)
	return drag.DragItem{
		ID:       seed,
		Type:     t,
		Level:    lvl,
		Indices:  ix,
		ParentID: anc[0],
		Pin:      e.pins.StateOf(&s, seed),
	}, true
}

// StartDrag picks up the node with the given seed. It reports false when the
// node is unknown, pinned or another drag is running.
func (e *Editor) StartDrag(seed domain.SeedID) bool {
	item, ok := e.DragItemFor(seed)
	if !ok {
		return false
	}
	return e.ctrl.Start(item)
}

// Diff returns the mutation commands for everything edited since load.
func (e *Editor) Diff() []reconcile.Command {
	return reconcile.Diff(e.store.Original(), e.store.Snapshot())
}

// Submit hands the current diff to p. The caller rebases onto the server's
// answer once it has one.
func (e *Editor) Submit(ctx context.Context, p reconcile.Persister) ([]reconcile.Command, error) {
	return reconcile.Submit(ctx, p, e.store.Original(), e.store.Snapshot())
}

// Rebase makes snapshot the new server baseline, e.g. after a save. Edits,
// history and pins start over.
func (e *Editor) Rebase(snapshot domain.Session) error {
	e.ctrl.Cancel()
	if err := e.store.Rebase(snapshot); err != nil {
		return err
	}
	e.pins.ResetAll()
	e.changed(e.store.Snapshot())
	return nil
}

// Reset discards all edits and pins.
func (e *Editor) Reset() (domain.Session, error) {
	e.ctrl.Cancel()
	s, err := e.store.Reset()
	if err != nil {
		return s, err
	}
	e.pins.ResetAll()
	e.changed(s)
	return s, nil
}

func (e *Editor) Undo() bool {
	s, ok := e.store.Undo()
	if ok {
		e.changed(s)
	}
	return ok
}

func (e *Editor) Redo() bool {
	s, ok := e.store.Redo()
	if ok {
		e.changed(s)
	}
	return ok
}

// Flush writes the pending draft now.
func (e *Editor) Flush(ctx context.Context) error {
	return e.opts.Autosaver.Flush(ctx)
}

// Close abandons a running drag and flushes the draft.
func (e *Editor) Close(ctx context.Context) error {
	e.ctrl.Cancel()
	return e.opts.Autosaver.Close(ctx)
}

func (e *Editor) changed(s domain.Session) {
	e.notifyAutosave(s)
	if e.opts.OnChange != nil {
		e.opts.OnChange(s)
	}
}

func (e *Editor) notifyAutosave(s domain.Session) {
	if e.opts.Autosaver == nil {
		return
	}
	e.opts.Autosaver.Notify(storage.Draft{Session: s, Pins: e.pins.Export(), UpdatedAt: e.now()})
}

func (e *Editor) fail(err error) {
	e.log.Error("edit failed", slog.Any("err", err))
	if e.opts.OnError != nil {
		e.opts.OnError(err)
	}
}

func (e *Editor) promote(owner domain.SeedID, l domain.Level) {
	if !e.opts.AutoPromotePins {
		return
	}
	s := e.store.Snapshot()
	if err := e.pins.PromoteStructural(&s, owner, l); err != nil {
		e.log.Warn("pin promotion skipped", slog.String("owner", string(owner)), slog.Any("err", err))
	}
}

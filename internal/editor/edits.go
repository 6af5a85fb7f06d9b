/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"fitplan/internal/domain"
	"fitplan/internal/drag"
	"fitplan/internal/editstate"
	"fitplan/internal/pin"
)

// ErrTargetPinned is returned when an intent would change the shape of a list
// whose pins forbid it.
var ErrTargetPinned = errors.New("editor: target list is pinned")

// UpdatePart, UpdateSet and UpdateExercise edit a node's payload. They report
// false without touching anything when the node's pins forbid editing.

func (e *Editor) UpdatePart(seed domain.SeedID, p domain.PartPayload) (bool, error) {
	return e.edit(seed, "edit part", func(s domain.Session) (domain.Session, error) {
		return editstate.UpdatePart(s, seed, p)
	})
}

func (e *Editor) UpdateSet(seed domain.SeedID, p domain.SetPayload) (bool, error) {
	return e.edit(seed, "edit set", func(s domain.Session) (domain.Session, error) {
		return editstate.UpdateSet(s, seed, p)
	})
}

func (e *Editor) UpdateExercise(seed domain.SeedID, p domain.ExercisePayload) (bool, error) {
	return e.edit(seed, "edit exercise", func(s domain.Session) (domain.Session, error) {
		return editstate.UpdateExercise(s, seed, p)
	})
}

func (e *Editor) edit(seed domain.SeedID, label string, r editstate.Reducer) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prof := e.EffectivePin(seed); !prof.CanEdit {
		e.log.Warn("edit denied", slog.String("seed", string(seed)), slog.String("pin", string(prof.Active)))
		return false, nil
	}
	s, err := e.store.Apply(label, r)
	if err != nil {
		return false, err
	}
	if e.opts.AutoPromotePins {
		if err := e.pins.PromotePayload(&s, seed); err != nil {
			return true, err
		}
	}
	e.changed(s)
	return true, nil
}

// Delete removes the node with the given seed and its subtree. It reports
// false when the node's pins forbid deleting.
func (e *Editor) Delete(seed domain.SeedID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prof := e.EffectivePin(seed); !prof.CanDelete {
		e.log.Warn("delete denied", slog.String("seed", string(seed)), slog.String("pin", string(prof.Active)))
		return false, nil
	}
	item, ok := e.DragItemFor(seed)
	if !ok {
		return false, fmt.Errorf("%w: %s", editstate.ErrNotFound, seed)
	}
	if err := e.applyLocked(drag.Delete{Item: item}); err != nil {
		return false, err
	}
	return true, nil
}

// Cleanup removes empty sets and parts down to the configured floors.
func (e *Editor) Cleanup() (editstate.Cleanup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var removed editstate.Cleanup
	s, err := e.store.Apply("cleanup", func(s domain.Session) (domain.Session, error) {
		out, c, err := editstate.Prune(s, e.opts.Floors)
		removed = c
		return out, err
	})
	if err != nil {
		return editstate.Cleanup{}, err
	}
	if removed.Empty() {
		return removed, nil
	}
	e.pins.Forget(removed.Parts...)
	e.pins.Forget(removed.Sets...)
	e.log.Info("cleanup", slog.Int("parts", len(removed.Parts)), slog.Int("sets", len(removed.Sets)))
	e.changed(s)
	return removed, nil
}

// Apply carries out a drag intent.
func (e *Editor) Apply(in drag.Intent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(in)
}

func (e *Editor) applyLocked(in drag.Intent) error {
	item := in.Dragged()
	if owner, ok := targetOwner(in); ok {
		if prof := pin.Effective(e.ChildPins(owner)); !prof.CanDrag {
			e.log.Warn("drop denied", slog.String("item", string(item.ID)), slog.String("owner", string(owner)), slog.String("pin", string(prof.Active)))
			return fmt.Errorf("%s %s: %w: %s", in.Kind(), item.ID, ErrTargetPinned, owner)
		}
	}
	var err error
	switch v := in.(type) {
	case drag.Move:
		_, err = e.store.Apply("move", func(s domain.Session) (domain.Session, error) {
			return editstate.Move(s, item.ID, v.ToContainer, v.To.Last())
		})
		if err != nil {
			break
		}
		e.promote(v.FromContainer.Owner, item.Level)
		if !v.SameList() {
			e.promote(v.ToContainer.Owner, item.Level)
		}
	case drag.Duplicate:
		_, err = e.store.Apply("duplicate", func(s domain.Session) (domain.Session, error) {
			out, _, err := editstate.Duplicate(s, item.ID)
			return out, err
		})
		if err != nil {
			break
		}
		e.promote(item.ParentID, item.Level)
	case drag.Delete:
		cur := e.store.Snapshot()
		gone := append(cur.Descendants(item.ID), item.ID)
		_, err = e.store.Apply("delete", func(s domain.Session) (domain.Session, error) {
			return editstate.DeleteNode(s, item.ID)
		})
		if err != nil {
			break
		}
		e.pins.Forget(gone...)
		e.promote(item.ParentID, item.Level)
	case drag.CreateContainer:
		var created domain.SeedID
		_, err = e.store.Apply("new "+string(v.Type), func(s domain.Session) (domain.Session, error) {
			out, seed, err := editstate.CreateContainer(s, item.ID, v.Type, v.Owner, v.Target.Last(), e.opts.NewContainer)
			created = seed
			return out, err
		})
		if err != nil {
			break
		}
		e.promote(item.ParentID, item.Level)
		e.promote(v.Owner, v.Type.Level())
		e.log.Debug("container created", slog.String("seed", string(created)), slog.String("type", string(v.Type)))
	default:
		err = fmt.Errorf("unknown intent %T", in)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", in.Kind(), item.ID, err)
	}
	// Pins changed after the tree did.
	e.changed(e.store.Snapshot())
	return nil
}

// targetOwner names the owner of the list an intent adds to, for intents that
// can add to a list other than the item's own.
func targetOwner(in drag.Intent) (domain.SeedID, bool) {
	switch v := in.(type) {
	case drag.Move:
		if !v.SameList() {
			return v.ToContainer.Owner, true
		}
	case drag.CreateContainer:
		return v.Owner, true
	}
	return "", false
}

// hooks applies intents emitted by the controller before forwarding them.
func (e *Editor) hooks() drag.Hooks {
	fwd := e.opts.Hooks
	h := fwd
	h.OnItemMove = func(m drag.Move) {
		if e.applyHook(m) && fwd.OnItemMove != nil {
			fwd.OnItemMove(m)
		}
	}
	h.OnItemDuplicate = func(d drag.Duplicate) {
		if e.applyHook(d) && fwd.OnItemDuplicate != nil {
			fwd.OnItemDuplicate(d)
		}
	}
	h.OnItemDelete = func(d drag.Delete) {
		if e.applyHook(d) && fwd.OnItemDelete != nil {
			fwd.OnItemDelete(d)
		}
	}
	h.OnContainerCreate = func(c drag.CreateContainer) {
		if e.applyHook(c) && fwd.OnContainerCreate != nil {
			fwd.OnContainerCreate(c)
		}
	}
	return h
}

func (e *Editor) applyHook(in drag.Intent) bool {
	err := e.Apply(in)
	switch {
	case errors.Is(err, ErrTargetPinned):
		return false
	case err != nil:
		e.fail(err)
		return false
	}
	return true
}

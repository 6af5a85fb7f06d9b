/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"slices"

	"fitplan/internal/domain"
	"fitplan/internal/pin"
)

// InsertionIndex maps pointerY to an insert-before position in the full list
// described by boxes. The dragged item is ignored while measuring: the result
// is the position of the first remaining sibling whose midpoint lies below
// the pointer, or the number of remaining siblings. When the dragged item
// sits in this list, positions at or after it are shifted by one so the
// index refers to the list as it was before the drag.
func InsertionIndex(boxes []ItemBox, draggedID string, pointerY float64) int {
	orig := -1
	idx := -1
	n := 0
	for i, b := range boxes {
		if b.ID == draggedID {
			orig = i
			continue
		}
		if idx < 0 && b.MidY() > pointerY {
			idx = n
		}
		n++
	}
	if idx < 0 {
		idx = n
	}
	if orig >= 0 && idx > 0 && idx >= orig {
		idx++
	}
	return idx
}

// PlaceholderInfo is where the drop would land if the item were released now.
type PlaceholderInfo struct {
	ContainerID   string `json:"containerId"`
	ContainerType string `json:"containerType"`
	InsertIndex   int    `json:"insertIndex"`
}

// Topology answers structural questions about the tree being edited.
// *domain.Session implements it.
type Topology interface {
	OwnerIndices(c domain.ContainerRef) (domain.Indices, bool)
	ContainerLen(c domain.ContainerRef) int
	ParentContainer(c domain.ContainerRef) (domain.ContainerRef, bool)
}

// PinSource reports the pin flags a child of owner inherits. A Topology that
// also implements it has every drop target checked against those flags.
type PinSource interface {
	ChildPins(owner domain.SeedID) pin.State
}

// openFor reports whether items may be dropped into a list owned by owner.
// A list whose children could not be dragged is frozen in shape.
func openFor(topo Topology, owner domain.SeedID) bool {
	ps, ok := topo.(PinSource)
	if !ok {
		return true
	}
	return pin.Effective(ps.ChildPins(owner)).CanDrag
}

// Placer turns a resolved zone into a placeholder.
type Placer struct {
	Index SpatialIndex
	Topo  Topology
}

// TargetList walks up from the hovered list to the nearest list that holds
// items of type t: an exercise lands in a set's exercises, a set in a part's
// sets, a part in the session's parts.
func (p Placer) TargetList(hovered domain.ContainerRef, t domain.ItemType) (domain.ContainerRef, bool) {
	c := hovered
	for !c.Accepts(t) {
		up, ok := p.Topo.ParentContainer(c)
		if !ok {
			return domain.ContainerRef{}, false
		}
		c = up
	}
	if _, ok := p.Topo.OwnerIndices(c); !ok {
		return domain.ContainerRef{}, false
	}
	return c, true
}

// Place computes the placeholder for item over zone ref. A false result means
// there is no valid list for the item there and the placeholder must be cleared.
func (p Placer) Place(ref ZoneRef, item DragItem, pointerY float64) (PlaceholderInfo, bool) {
	switch ref.Type {
	case ZoneContainer:
		c, ok := p.TargetList(ref.Container, item.Type)
		if !ok || !openFor(p.Topo, c.Owner) {
			return PlaceholderInfo{}, false
		}
		idx := InsertionIndex(p.Index.BoxesOf(c.ID()), string(item.ID), pointerY)
		if n := p.Topo.ContainerLen(c); idx > n {
			idx = n
		}
		return PlaceholderInfo{ContainerID: c.ID(), ContainerType: string(c.Kind), InsertIndex: idx}, true
	case ZoneNewSet, ZoneNewPart:
		created, _ := ref.CreatedType()
		list := domain.ContainerFor(created, ref.Owner)
		n := p.Topo.ContainerLen(list)
		if n < 0 || !slices.Contains(createAccepts[ref.Type], item.Type) || !openFor(p.Topo, ref.Owner) {
			return PlaceholderInfo{}, false
		}
		return PlaceholderInfo{ContainerID: string(ref.Type) + ":" + string(ref.Owner), ContainerType: string(ref.Type), InsertIndex: n}, true
	}
	return PlaceholderInfo{}, false
}

var createAccepts = map[ZoneType][]domain.ItemType{
	ZoneNewSet:  {domain.TypeExercise},
	ZoneNewPart: {domain.TypeSet, domain.TypeExercise},
}

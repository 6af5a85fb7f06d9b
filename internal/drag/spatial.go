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
	"sync"

	"fitplan/internal/geom"
)

// ItemBox is the rendered vertical extent of one list item.
type ItemBox struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

func (b ItemBox) MidY() float64 { return b.Top + b.Height/2 }

// SpatialIndex exposes rendered layout to the engine. Implementations query
// whatever draws the editor; the engine assumes nothing about it.
type SpatialIndex interface {
	// BoxesOf returns the item boxes of a list, in list order.
	BoxesOf(containerID string) []ItemBox
	// Pointer returns the current pointer position.
	Pointer() geom.Pt
	// Zones returns every drop zone currently rendered.
	Zones() []DropZone
}

// StaticIndex is an in-memory SpatialIndex fed by the caller.
type StaticIndex struct {
	mu    sync.RWMutex
	boxes map[string][]ItemBox
	pt    geom.Pt
	zones []DropZone
}

func NewStaticIndex() *StaticIndex {
	return &StaticIndex{boxes: make(map[string][]ItemBox)}
}

func (s *StaticIndex) SetBoxes(containerID string, boxes []ItemBox) {
	s.mu.Lock()
	s.boxes[containerID] = slices.Clone(boxes)
	s.mu.Unlock()
}

func (s *StaticIndex) SetPointer(p geom.Pt) {
	s.mu.Lock()
	s.pt = p
	s.mu.Unlock()
}

func (s *StaticIndex) SetZones(zones ...DropZone) {
	s.mu.Lock()
	s.zones = slices.Clone(zones)
	s.mu.Unlock()
}

func (s *StaticIndex) BoxesOf(containerID string) []ItemBox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.boxes[containerID])
}

func (s *StaticIndex) Pointer() geom.Pt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pt
}

func (s *StaticIndex) Zones() []DropZone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.zones)
}

// StackBoxes lays out ids top to bottom starting at top, each h high.
func StackBoxes(top, h float64, ids ...string) []ItemBox {
	out := make([]ItemBox, len(ids))
	for i, id := range ids {
		out[i] = ItemBox{ID: id, Top: top + float64(i)*h, Height: h}
	}
	return out
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"time"

	"fitplan/internal/domain"
	"fitplan/internal/geom"
)

// Resolver picks the drop zone under a drag. Action zones and list zones are
// two separate families and a single call never mixes them.
type Resolver struct {
	// Grace hides action zones right after a drag starts.
	Grace time.Duration
}

// Probe is the input of one resolution.
type Probe struct {
	Pointer geom.Pt
	// Dragged is the current box of the dragged item. An empty box falls back
	// to pointer containment for list zones.
	Dragged geom.Rect
	Elapsed time.Duration
	Type    domain.ItemType
}

// Resolve returns the zone the probe targets.
//
// Action zones are hit by pointer-in-circle only, and only once the grace
// window has passed; delete wins over duplicate. Otherwise list and
// create-container zones are ranked by how much the dragged box overlaps
// them, ties going to the smaller zone.
func (r Resolver) Resolve(p Probe, zones []DropZone) (DropZone, bool) {
	if p.Elapsed >= r.Grace {
		if z, ok := resolveAction(p.Pointer, zones); ok {
			return z, true
		}
	}
	return resolveContainer(p, zones)
}

func resolveAction(pt geom.Pt, zones []DropZone) (DropZone, bool) {
	var (
		hit   DropZone
		found bool
	)
	for _, z := range zones {
		if !z.Type.IsAction() || !z.Bounds.InnerCircle().Contains(pt) {
			continue
		}
		if z.Type == ZoneDelete {
			return z, true
		}
		if !found {
			hit, found = z, true
		}
	}
	return hit, found
}

func resolveContainer(p Probe, zones []DropZone) (DropZone, bool) {
	var (
		best      DropZone
		bestScore float64
		found     bool
	)
	for _, z := range zones {
		if z.Type.IsAction() {
			continue
		}
		// List zones accept by walking up to an ancestor list later; only the
		// create-container zones are filtered by type here.
		if z.Type != ZoneContainer && !z.accepts(p.Type) {
			continue
		}
		score := overlapScore(p, z.Bounds)
		if score <= 0 {
			continue
		}
		if !found || score > bestScore || (score == bestScore && z.Bounds.Area() < best.Bounds.Area()) {
			best, bestScore, found = z, score, true
		}
	}
	return best, found
}

func overlapScore(p Probe, bounds geom.Rect) float64 {
	if p.Dragged.Empty() {
		if bounds.Contains(p.Pointer) {
			return 1
		}
		return 0
	}
	return p.Dragged.IntersectionRatio(bounds)
}

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
	"strings"

	"fitplan/internal/domain"
	"fitplan/internal/geom"
)

// ZoneType distinguishes ordinary lists, "create a new container" targets
// and the round action targets.
type ZoneType string

const (
	ZoneContainer ZoneType = "container"
	ZoneNewSet    ZoneType = "new-set"
	ZoneNewPart   ZoneType = "new-part"
	ZoneDuplicate ZoneType = "duplicate"
	ZoneDelete    ZoneType = "delete"
)

// IsAction reports whether z is a round action target.
func (z ZoneType) IsAction() bool { return z == ZoneDuplicate || z == ZoneDelete }

const (
	DuplicateZoneID = "duplicate"
	DeleteZoneID    = "delete"
)

// DropZone is a rendered drop target. Accepts restricts the item types that
// may land on it; an empty list accepts every type.
type DropZone struct {
	ID      string            `json:"id"`
	Type    ZoneType          `json:"type"`
	Accepts []domain.ItemType `json:"accepts,omitempty"`
	Bounds  geom.Rect         `json:"bounds"`
}

func (z DropZone) accepts(t domain.ItemType) bool {
	return len(z.Accepts) == 0 || slices.Contains(z.Accepts, t)
}

// ContainerZone describes the list c as a drop zone.
func ContainerZone(c domain.ContainerRef, bounds geom.Rect) DropZone {
	return DropZone{ID: c.ID(), Type: ZoneContainer, Accepts: []domain.ItemType{c.Kind.ItemType()}, Bounds: bounds}
}

// NewSetZone is the "drop here to start a new set" target of a part.
func NewSetZone(part domain.SeedID, bounds geom.Rect) DropZone {
	return DropZone{ID: string(ZoneNewSet) + ":" + string(part), Type: ZoneNewSet, Accepts: []domain.ItemType{domain.TypeExercise}, Bounds: bounds}
}

// NewPartZone is the "drop here to start a new part" target of a session.
func NewPartZone(session domain.SeedID, bounds geom.Rect) DropZone {
	return DropZone{ID: string(ZoneNewPart) + ":" + string(session), Type: ZoneNewPart, Accepts: []domain.ItemType{domain.TypeSet, domain.TypeExercise}, Bounds: bounds}
}

func DuplicateZone(bounds geom.Rect) DropZone {
	return DropZone{ID: DuplicateZoneID, Type: ZoneDuplicate, Bounds: bounds}
}

func DeleteZone(bounds geom.Rect) DropZone {
	return DropZone{ID: DeleteZoneID, Type: ZoneDelete, Bounds: bounds}
}

// ZoneRef is a parsed zone id.
type ZoneRef struct {
	Type ZoneType
	// Container is set for ZoneContainer.
	Container domain.ContainerRef
	// Owner is the part (new-set) or session (new-part) receiving the new container.
	Owner domain.SeedID
}

// ParseZoneID parses ids of the forms "parts:<seed>", "sets:<seed>",
// "exercises:<seed>", "new-set:<part>", "new-part:<session>", "duplicate"
// and "delete". Anything else yields false.
func ParseZoneID(id string) (ZoneRef, bool) {
	switch id {
	case DuplicateZoneID:
		return ZoneRef{Type: ZoneDuplicate}, true
	case DeleteZoneID:
		return ZoneRef{Type: ZoneDelete}, true
	}
	if c, ok := domain.ParseContainerID(id); ok {
		return ZoneRef{Type: ZoneContainer, Container: c}, true
	}
	prefix, owner, ok := strings.Cut(id, ":")
	if !ok || owner == "" {
		return ZoneRef{}, false
	}
	switch t := ZoneType(prefix); t {
	case ZoneNewSet, ZoneNewPart:
		return ZoneRef{Type: t, Owner: domain.SeedID(owner)}, true
	}
	return ZoneRef{}, false
}

// CreatedType is the type of container a new-set or new-part zone creates.
func (r ZoneRef) CreatedType() (domain.ItemType, bool) {
	switch r.Type {
	case ZoneNewSet:
		return domain.TypeSet, true
	case ZoneNewPart:
		return domain.TypePart, true
	}
	return "", false
}

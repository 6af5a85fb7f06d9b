/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"fitplan/internal/domain"
	"fitplan/internal/pin"
)

// DragItem is the item held while a drag is active.
type DragItem struct {
	ID       domain.SeedID   `json:"id"`
	Type     domain.ItemType `json:"type"`
	Level    domain.Level    `json:"level"`
	Indices  domain.Indices  `json:"indices"`
	ParentID domain.SeedID   `json:"parentId"`
	Pin      pin.State       `json:"pin"`
}

// Container is the list the item was picked up from.
func (d DragItem) Container() domain.ContainerRef {
	return domain.ContainerFor(d.Type, d.ParentID)
}

type IntentKind string

const (
	IntentMove            IntentKind = "move"
	IntentDuplicate       IntentKind = "duplicate"
	IntentDelete          IntentKind = "delete"
	IntentCreateContainer IntentKind = "createContainer"
)

// Intent is what a finished drag asks the editor to do. The set of
// implementations is closed: Move, Duplicate, Delete and CreateContainer.
type Intent interface {
	Kind() IntentKind
	Dragged() DragItem
	isIntent()
}

// Move relocates Item. To.Last() is an insert-before position in the target
// list as it was before the item was removed.
type Move struct {
	Item          DragItem
	From, To      domain.Indices
	FromContainer domain.ContainerRef
	ToContainer   domain.ContainerRef
}

type Duplicate struct{ Item DragItem }

type Delete struct{ Item DragItem }

// CreateContainer wraps Item in a new set or part created at Target.
type CreateContainer struct {
	Item   DragItem
	Type   domain.ItemType
	Owner  domain.SeedID
	Target domain.Indices
}

func (Move) Kind() IntentKind            { return IntentMove }
func (Duplicate) Kind() IntentKind       { return IntentDuplicate }
func (Delete) Kind() IntentKind          { return IntentDelete }
func (CreateContainer) Kind() IntentKind { return IntentCreateContainer }

func (m Move) Dragged() DragItem            { return m.Item }
func (d Duplicate) Dragged() DragItem       { return d.Item }
func (d Delete) Dragged() DragItem          { return d.Item }
func (c CreateContainer) Dragged() DragItem { return c.Item }

func (Move) isIntent()            {}
func (Duplicate) isIntent()       {}
func (Delete) isIntent()          {}
func (CreateContainer) isIntent() {}

// SameList reports whether the move stays within one list.
func (m Move) SameList() bool { return m.FromContainer == m.ToContainer }

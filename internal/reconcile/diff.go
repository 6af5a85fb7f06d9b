/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reconcile turns an edited session into the minimal batch of
// mutation commands the server needs to catch up with it. Nodes are matched
// by seed id only, so reorders and moves between containers keep their
// server identity.
package reconcile

import (
	"fitplan/internal/domain"
)

// Op is the kind of a mutation command.
type Op string

const (
	OpAdd    Op = "add"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Command is one node-level mutation. Children carry the commands for the
// node's own sibling list, deletes first.
type Command struct {
	Op           Op                      `json:"op"`
	Level        domain.ItemType         `json:"level"`
	SeedID       domain.SeedID           `json:"seedId"`
	BlueprintID  *int64                  `json:"blueprintId,omitempty"`
	ParentSeedID domain.SeedID           `json:"parentSeedId,omitempty"`
	Order        *int                    `json:"order,omitempty"`
	Reparented   bool                    `json:"reparented,omitempty"`
	Part         *domain.PartPayload     `json:"part,omitempty"`
	Set          *domain.SetPayload      `json:"set,omitempty"`
	Exercise     *domain.ExercisePayload `json:"exercise,omitempty"`
	Children     []Command               `json:"children,omitempty"`
}

// origin is where a seed lived in the original tree.
type origin struct {
	parent    domain.SeedID
	blueprint *int64
}

// index maps every original seed, per level, to its parent and server id.
type index map[domain.Level]map[domain.SeedID]origin

func indexOf(s domain.Session) index {
	idx := index{
		domain.LevelPart:     {},
		domain.LevelSet:      {},
		domain.LevelExercise: {},
	}
	for _, p := range s.Parts {
		idx[domain.LevelPart][p.SeedID] = origin{parent: s.SeedID, blueprint: p.BlueprintID}
		for _, st := range p.Sets {
			idx[domain.LevelSet][st.SeedID] = origin{parent: p.SeedID, blueprint: st.BlueprintID}
			for _, e := range st.Exercises {
				idx[domain.LevelExercise][e.SeedID] = origin{parent: st.SeedID, blueprint: e.BlueprintID}
			}
		}
	}
	return idx
}

// present is the set of seeds per level in the edited tree.
type present map[domain.Level]map[domain.SeedID]struct{}

func presentIn(s domain.Session) present {
	out := present{
		domain.LevelPart:     {},
		domain.LevelSet:      {},
		domain.LevelExercise: {},
	}
	s.Walk(func(n domain.NodeRef) bool {
		if n.Level != domain.LevelSession {
			out[n.Level][n.SeedID] = struct{}{}
		}
		return true
	})
	return out
}

// differ holds both views of the tree while one diff runs.
type differ struct {
	orig    domain.Session
	was     index
	now     present
	removed map[domain.SeedID][]Command // delete commands keyed by original parent
}

// Diff returns the part-level commands that bring original up to editable.
// It returns nil when nothing changed.
func Diff(original, editable domain.Session) []Command {
	d := &differ{orig: original, was: indexOf(original), now: presentIn(editable)}
	d.collectDeletes()
	return d.parts(editable)
}

// collectDeletes records a delete for every saved node whose seed vanished
// from its level while its original parent is still there. A node whose
// parent vanished too is covered by the parent's delete. Nodes the server
// never stored have nothing to delete.
func (d *differ) collectDeletes() {
	d.removed = map[domain.SeedID][]Command{}
	gone := func(l domain.Level, seed domain.SeedID) bool {
		_, ok := d.now[l][seed]
		return !ok
	}
	del := func(t domain.ItemType, parent, seed domain.SeedID, bp *int64) {
		if bp == nil {
			return
		}
		d.removed[parent] = append(d.removed[parent], Command{
			Op: OpDelete, Level: t, SeedID: seed, BlueprintID: bp, ParentSeedID: parent,
		})
	}
	for _, p := range d.orig.Parts {
		partGone := gone(domain.LevelPart, p.SeedID)
		if partGone {
			del(domain.TypePart, d.orig.SeedID, p.SeedID, p.BlueprintID)
		}
		for _, st := range p.Sets {
			setGone := gone(domain.LevelSet, st.SeedID)
			if setGone && !partGone {
				del(domain.TypeSet, p.SeedID, st.SeedID, st.BlueprintID)
			}
			for _, e := range st.Exercises {
				if !setGone && gone(domain.LevelExercise, e.SeedID) {
					del(domain.TypeExercise, st.SeedID, e.SeedID, e.BlueprintID)
				}
			}
		}
	}
}

// node is the level-independent view of one edited node.
type node struct {
	level     domain.Level
	seed      domain.SeedID
	blueprint *int64
	order     int
	meta      domain.EditMeta
}

// command decides what, if anything, node needs given its child commands.
func (d *differ) command(n node, parent domain.SeedID, children []Command) (Command, bool) {
	t, _ := n.level.ItemType()
	order := n.order
	c := Command{Level: t, SeedID: n.seed, ParentSeedID: parent, Order: &order, Children: children}
	was, matched := d.was[n.level][n.seed]
	if !matched || n.blueprint == nil {
		c.Op = OpAdd
		return c, true
	}
	c.BlueprintID = n.blueprint
	c.Reparented = was.parent != parent
	if !n.meta.Modified && n.order == n.meta.OriginalOrder && !c.Reparented && len(children) == 0 {
		return Command{}, false
	}
	c.Op = OpModify
	return c, true
}

// withDeletes puts the deletes recorded under owner ahead of the other commands.
func (d *differ) withDeletes(owner domain.SeedID, cmds []Command) []Command {
	dels := d.removed[owner]
	if len(dels) == 0 {
		return cmds
	}
	out := make([]Command, 0, len(dels)+len(cmds))
	out = append(out, dels...)
	return append(out, cmds...)
}

func (d *differ) parts(s domain.Session) []Command {
	var out []Command
	for _, p := range s.Parts {
		children := d.sets(p)
		c, ok := d.command(node{domain.LevelPart, p.SeedID, p.BlueprintID, p.Order, p.EditMeta}, s.SeedID, children)
		if !ok {
			continue
		}
		pl := p.Payload()
		c.Part = &pl
		out = append(out, c)
	}
	return d.withDeletes(s.SeedID, out)
}

func (d *differ) sets(p domain.Part) []Command {
	var out []Command
	for _, st := range p.Sets {
		children := d.exercises(st)
		c, ok := d.command(node{domain.LevelSet, st.SeedID, st.BlueprintID, st.Order, st.EditMeta}, p.SeedID, children)
		if !ok {
			continue
		}
		pl := st.Payload()
		c.Set = &pl
		out = append(out, c)
	}
	return d.withDeletes(p.SeedID, out)
}

func (d *differ) exercises(st domain.Set) []Command {
	var out []Command
	for _, e := range st.Exercises {
		c, ok := d.command(node{domain.LevelExercise, e.SeedID, e.BlueprintID, e.Order, e.EditMeta}, st.SeedID, nil)
		if !ok {
			continue
		}
		pl := e.Payload()
		c.Exercise = &pl
		out = append(out, c)
	}
	return d.withDeletes(st.SeedID, out)
}

// Count tallies commands by op across the whole tree.
func Count(cmds []Command) map[Op]int {
	out := map[Op]int{}
	var walk func([]Command)
	walk = func(l []Command) {
		for _, c := range l {
			out[c.Op]++
			walk(c.Children)
		}
	}
	walk(cmds)
	return out
}

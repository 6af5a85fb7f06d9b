/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"fitplan/internal/domain"
	"fitplan/internal/geom"
	applog "fitplan/internal/log"
	"fitplan/internal/pin"
)

const (
	StateIdle      = "idle"
	StateActive    = "active"
	StateResolving = "resolving"

	eventStart  = "start"
	eventEnd    = "end"
	eventSettle = "settle"
	eventCancel = "cancel"
)

// Config tunes the secondary drag affordances.
type Config struct {
	// ActionGrace hides duplicate/delete zones right after a drag starts.
	ActionGrace time.Duration
	// ExpandDwell is how long a collapsed container must be hovered before it expands.
	ExpandDwell time.Duration
	// ScrollEdge is the height of the band at a viewport edge that scrolls it.
	ScrollEdge float64
	// ScrollInterval is the cadence of scroll ticks while armed.
	ScrollInterval time.Duration
	// ScrollMaxStep is the tick delta when the pointer sits on the edge itself.
	ScrollMaxStep float64
}

func DefaultConfig() Config {
	return Config{
		ActionGrace:    100 * time.Millisecond,
		ExpandDwell:    1000 * time.Millisecond,
		ScrollEdge:     24,
		ScrollInterval: 16 * time.Millisecond,
		ScrollMaxStep:  12,
	}
}

// Viewport is an independently scrollable region.
type Viewport struct {
	ID     string
	Bounds geom.Rect
}

// ScrollTick asks the host to scroll a viewport by Delta (negative is up).
type ScrollTick struct {
	Viewport string
	Delta    float64
}

// Hooks are pure data callbacks. They are invoked after the controller has
// released its lock, so they may call back into it.
type Hooks struct {
	OnDragStart         func(DragItem)
	OnDragDenied        func(DragItem, pin.Profile)
	OnPlaceholderUpdate func(*PlaceholderInfo)
	OnItemMove          func(Move)
	OnItemDuplicate     func(Duplicate)
	OnItemDelete        func(Delete)
	OnContainerCreate   func(CreateContainer)
	OnExpand            func(owner domain.SeedID)
	OnScroll            func(ScrollTick)
}

type scrollBand struct {
	viewport string
	dir      float64
}

// Controller is the drag session state machine: idle -> active -> resolving -> idle.
// It owns the current item, the last resolved target and placeholder, and the
// expand and scroll timers. Leaving active always stops both timers.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	index    SpatialIndex
	topo     Topology
	sched    Scheduler
	hooks    Hooks
	resolver Resolver
	machine  *fsm.FSM
	log      *slog.Logger

	item        DragItem
	startedAt   time.Time
	target      *DropZone
	placeholder *PlaceholderInfo
	collapsed   map[domain.SeedID]bool
	viewports   []Viewport

	expandTimer Timer
	expandGen   uint64
	expandOwner domain.SeedID

	scrollTimer Timer
	scrollGen   uint64
	scroll      scrollBand
	scrollDist  float64
}

// NewController wires a controller. A nil sched uses the wall clock.
func NewController(cfg Config, index SpatialIndex, topo Topology, sched Scheduler, hooks Hooks) *Controller {
	if sched == nil {
		sched = RealScheduler()
	}
	c := &Controller{
		cfg:       cfg,
		index:     index,
		topo:      topo,
		sched:     sched,
		hooks:     hooks,
		resolver:  Resolver{Grace: cfg.ActionGrace},
		log:       applog.WithComponent("drag"),
		collapsed: make(map[domain.SeedID]bool),
	}
	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateActive},
			{Name: eventEnd, Src: []string{StateActive}, Dst: StateResolving},
			{Name: eventSettle, Src: []string{StateResolving}, Dst: StateIdle},
			{Name: eventCancel, Src: []string{StateActive, StateResolving}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.log.Debug("drag state", slog.String("from", e.Src), slog.String("to", e.Dst), slog.String("event", e.Event))
			},
		},
	)
	return c
}

// State returns the current machine state.
func (c *Controller) State() string {
	return c.machine.Current()
}

// Item returns the dragged item while a drag is active.
func (c *Controller) Item() (DragItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machine.Current() == StateIdle {
		return DragItem{}, false
	}
	return c.item, true
}

// Placeholder returns a copy of the last computed placeholder, or nil.
func (c *Controller) Placeholder() *PlaceholderInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.placeholder == nil {
		return nil
	}
	p := *c.placeholder
	return &p
}

// SetCollapsed records whether the container owned by seed is collapsed.
func (c *Controller) SetCollapsed(owner domain.SeedID, collapsed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if collapsed {
		c.collapsed[owner] = true
	} else {
		delete(c.collapsed, owner)
	}
}

// SetViewports replaces the scrollable regions considered for auto-scroll.
func (c *Controller) SetViewports(vs ...Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewports = append([]Viewport(nil), vs...)
}

// Start begins a drag. It is refused when the item's pins forbid dragging
// or a drag is already running; a refusal has no side effects besides the
// OnDragDenied hook.
func (c *Controller) Start(item DragItem) bool {
	c.mu.Lock()
	if c.machine.Current() != StateIdle {
		c.mu.Unlock()
		return false
	}
	if prof := pin.Effective(item.Pin); !prof.CanDrag {
		c.mu.Unlock()
		c.log.Warn("drag denied", slog.String("item", string(item.ID)), slog.String("pin", string(prof.Active)))
		if c.hooks.OnDragDenied != nil {
			c.hooks.OnDragDenied(item, prof)
		}
		return false
	}
	if err := c.machine.Event(context.Background(), eventStart); err != nil {
		c.mu.Unlock()
		c.log.Error("drag start transition", slog.Any("err", err))
		return false
	}
	c.item = item
	c.startedAt = c.sched.Now()
	c.target = nil
	c.placeholder = nil
	c.mu.Unlock()

	c.log.Info("drag started", slog.String("item", string(item.ID)), slog.String("type", string(item.Type)), slog.String("at", item.Indices.String()))
	if c.hooks.OnDragStart != nil {
		c.hooks.OnDragStart(item)
	}
	return true
}

// Move re-resolves the target for the current pointer and dragged box.
// Every call supersedes the previous result.
func (c *Controller) Move(dragged geom.Rect) {
	var emit []func()
	c.mu.Lock()
	if c.machine.Current() != StateActive {
		c.mu.Unlock()
		return
	}
	pointer := c.index.Pointer()
	probe := Probe{
		Pointer: pointer,
		Dragged: dragged,
		Elapsed: c.sched.Now().Sub(c.startedAt),
		Type:    c.item.Type,
	}
	zone, ok := c.resolver.Resolve(probe, c.index.Zones())

	var next *PlaceholderInfo
	var hoveredList *domain.ContainerRef
	if ok {
		z := zone
		c.target = &z
		if ref, valid := ParseZoneID(zone.ID); valid && ref.Type == zone.Type {
			if !ref.Type.IsAction() {
				if ph, placed := (Placer{Index: c.index, Topo: c.topo}).Place(ref, c.item, pointer.Y); placed {
					next = &ph
				}
			}
			if ref.Type == ZoneContainer {
				hoveredList = &ref.Container
			}
		} else {
			c.target = nil
		}
	} else {
		c.target = nil
	}
	if !samePlaceholder(c.placeholder, next) {
		c.placeholder = next
		if h := c.hooks.OnPlaceholderUpdate; h != nil {
			var cp *PlaceholderInfo
			if next != nil {
				v := *next
				cp = &v
			}
			emit = append(emit, func() { h(cp) })
		}
	}
	c.updateExpandLocked(hoveredList)
	c.updateScrollLocked(pointer)
	c.mu.Unlock()

	for _, f := range emit {
		f()
	}
}

// End finishes the drag and emits at most one intent. It returns the intent,
// or false when the drop was invalid or outside every zone.
func (c *Controller) End() (Intent, bool) {
	c.mu.Lock()
	if c.machine.Current() != StateActive {
		c.mu.Unlock()
		return nil, false
	}
	if err := c.machine.Event(context.Background(), eventEnd); err != nil {
		c.mu.Unlock()
		c.log.Error("drag end transition", slog.Any("err", err))
		return nil, false
	}
	c.stopTimersLocked()
	intent, ok := c.resolveDropLocked()
	hadPlaceholder := c.placeholder != nil
	item := c.item
	c.resetLocked()
	if err := c.machine.Event(context.Background(), eventSettle); err != nil {
		c.log.Error("drag settle transition", slog.Any("err", err))
	}
	c.mu.Unlock()

	if hadPlaceholder && c.hooks.OnPlaceholderUpdate != nil {
		c.hooks.OnPlaceholderUpdate(nil)
	}
	if !ok {
		c.log.Warn("drop discarded", slog.String("item", string(item.ID)))
		return nil, false
	}
	c.log.Info("drop", slog.String("item", string(item.ID)), slog.String("intent", string(intent.Kind())))
	c.dispatch(intent)
	return intent, true
}

// Cancel abandons the drag without emitting anything.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.machine.Current() == StateIdle {
		c.mu.Unlock()
		return
	}
	c.stopTimersLocked()
	hadPlaceholder := c.placeholder != nil
	c.resetLocked()
	if err := c.machine.Event(context.Background(), eventCancel); err != nil {
		c.log.Error("drag cancel transition", slog.Any("err", err))
	}
	c.mu.Unlock()
	if hadPlaceholder && c.hooks.OnPlaceholderUpdate != nil {
		c.hooks.OnPlaceholderUpdate(nil)
	}
}

func (c *Controller) dispatch(in Intent) {
	switch v := in.(type) {
	case Move:
		if c.hooks.OnItemMove != nil {
			c.hooks.OnItemMove(v)
		}
	case Duplicate:
		if c.hooks.OnItemDuplicate != nil {
			c.hooks.OnItemDuplicate(v)
		}
	case Delete:
		if c.hooks.OnItemDelete != nil {
			c.hooks.OnItemDelete(v)
		}
	case CreateContainer:
		if c.hooks.OnContainerCreate != nil {
			c.hooks.OnContainerCreate(v)
		}
	}
}

// resolveDropLocked turns the last target and placeholder into an intent.
// The placeholder is used as computed by the last Move, never recomputed.
func (c *Controller) resolveDropLocked() (Intent, bool) {
	if c.target == nil {
		return nil, false
	}
	item := c.item
	switch c.target.Type {
	case ZoneDelete:
		return Delete{Item: item}, true
	case ZoneDuplicate:
		return Duplicate{Item: item}, true
	}
	ph := c.placeholder
	if ph == nil {
		return nil, false
	}
	switch c.target.Type {
	case ZoneContainer:
		to, ok := domain.ParseContainerID(ph.ContainerID)
		if !ok || !to.Accepts(item.Type) || to.Owner == item.ID || !openFor(c.topo, to.Owner) {
			return nil, false
		}
		owner, ok := c.topo.OwnerIndices(to)
		if !ok {
			return nil, false
		}
		from := item.Container()
		if to == from {
			at := item.Indices.Last()
			if ph.InsertIndex == at || ph.InsertIndex == at+1 {
				return nil, false
			}
		}
		return Move{
			Item:          item,
			From:          item.Indices,
			To:            owner.Child(ph.InsertIndex),
			FromContainer: from,
			ToContainer:   to,
		}, true
	case ZoneNewSet, ZoneNewPart:
		ref, ok := ParseZoneID(ph.ContainerID)
		if !ok || ref.Type != c.target.Type || ref.Owner == item.ID || !openFor(c.topo, ref.Owner) {
			return nil, false
		}
		created, _ := ref.CreatedType()
		list := domain.ContainerFor(created, ref.Owner)
		owner, ok := c.topo.OwnerIndices(list)
		if !ok {
			return nil, false
		}
		return CreateContainer{Item: item, Type: created, Owner: ref.Owner, Target: owner.Child(ph.InsertIndex)}, true
	}
	return nil, false
}

func (c *Controller) resetLocked() {
	c.item = DragItem{}
	c.target = nil
	c.placeholder = nil
	c.startedAt = time.Time{}
}

func (c *Controller) stopTimersLocked() {
	c.stopExpandLocked()
	c.stopScrollLocked()
}

// Auto-expand fires only for a collapsed container that directly owns the
// list the dragged type would land in.
func (c *Controller) updateExpandLocked(hovered *domain.ContainerRef) {
	var candidate domain.SeedID
	if hovered != nil && hovered.Accepts(c.item.Type) && c.collapsed[hovered.Owner] {
		candidate = hovered.Owner
	}
	if candidate == c.expandOwner {
		return
	}
	c.stopExpandLocked()
	if candidate == "" {
		return
	}
	c.expandOwner = candidate
	gen := c.expandGen
	c.expandTimer = c.sched.AfterFunc(c.cfg.ExpandDwell, func() { c.fireExpand(gen) })
}

func (c *Controller) stopExpandLocked() {
	if c.expandTimer != nil {
		c.expandTimer.Stop()
		c.expandTimer = nil
	}
	c.expandGen++
	c.expandOwner = ""
}

func (c *Controller) fireExpand(gen uint64) {
	c.mu.Lock()
	if gen != c.expandGen || c.machine.Current() != StateActive || c.expandOwner == "" {
		c.mu.Unlock()
		return
	}
	owner := c.expandOwner
	delete(c.collapsed, owner)
	c.expandTimer = nil
	c.mu.Unlock()

	c.log.Debug("auto expand", slog.String("owner", string(owner)))
	if c.hooks.OnExpand != nil {
		c.hooks.OnExpand(owner)
	}
}

// bandLocked finds the viewport edge band the pointer is in.
func (c *Controller) bandLocked(pt geom.Pt) (scrollBand, float64) {
	edge := c.cfg.ScrollEdge
	for _, v := range c.viewports {
		b := v.Bounds
		if !b.Contains(pt) {
			continue
		}
		if d := pt.Y - b.Y; d < edge {
			return scrollBand{viewport: v.ID, dir: -1}, d
		}
		if d := b.Y + b.H - pt.Y; d < edge {
			return scrollBand{viewport: v.ID, dir: 1}, d
		}
	}
	return scrollBand{}, 0
}

func (c *Controller) updateScrollLocked(pt geom.Pt) {
	band, dist := c.bandLocked(pt)
	c.scrollDist = dist
	if band == c.scroll {
		return
	}
	c.stopScrollLocked()
	if band.viewport == "" {
		return
	}
	c.scroll = band
	c.scrollDist = dist
	gen := c.scrollGen
	c.scrollTimer = c.sched.Every(c.cfg.ScrollInterval, func() { c.fireScroll(gen) })
}

func (c *Controller) stopScrollLocked() {
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
	c.scrollGen++
	c.scroll = scrollBand{}
}

func (c *Controller) fireScroll(gen uint64) {
	c.mu.Lock()
	if gen != c.scrollGen || c.machine.Current() != StateActive || c.scroll.viewport == "" {
		c.mu.Unlock()
		return
	}
	tick := ScrollTick{Viewport: c.scroll.viewport, Delta: c.scroll.dir * c.scrollStepLocked()}
	c.mu.Unlock()
	if c.hooks.OnScroll != nil {
		c.hooks.OnScroll(tick)
	}
}

// scrollStepLocked grows linearly from 1 at the inner band edge to ScrollMaxStep at the viewport edge.
func (c *Controller) scrollStepLocked() float64 {
	edge := c.cfg.ScrollEdge
	if edge <= 0 {
		return c.cfg.ScrollMaxStep
	}
	step := c.cfg.ScrollMaxStep * (1 - geom.Clamp(c.scrollDist, 0, edge)/edge)
	return math.Max(1, math.Round(step))
}

func samePlaceholder(a, b *PlaceholderInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

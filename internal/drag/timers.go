/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending or repeating callback.
type Timer interface {
	// Stop prevents further fires and reports whether the timer was still live.
	Stop() bool
}

// Scheduler is the clock the controller runs its expand and scroll timers on.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	Every(d time.Duration, f func()) Timer
}

// RealScheduler runs timers on the wall clock.
func RealScheduler() Scheduler { return realScheduler{} }

type realScheduler struct{}

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (realScheduler) Every(d time.Duration, f func()) Timer {
	t := &ticker{stop: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-tk.C:
				f()
			}
		}
	}()
	return t
}

type ticker struct {
	once sync.Once
	stop chan struct{}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.stop)
		stopped = true
	})
	return stopped
}

// ManualScheduler is a Scheduler whose clock only moves when Advance is
// called. Hosts that drive their own frame loop and tests use it.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

type manualTimer struct {
	s      *ManualScheduler
	seq    int
	due    time.Time
	period time.Duration
	f      func()
	live   bool
}

func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer { return m.add(d, 0, f) }

func (m *ManualScheduler) Every(d time.Duration, f func()) Timer { return m.add(d, d, f) }

func (m *ManualScheduler) add(d, period time.Duration, f func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{s: m, seq: m.seq, due: m.now.Add(d), period: period, f: f, live: true}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := t.live
	t.live = false
	return was
}

// Pending returns the number of live timers.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if t.live {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in due order.
// Callbacks run without the scheduler lock held.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	end := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		t := m.nextDueLocked(end)
		if t == nil {
			m.now = end
			m.mu.Unlock()
			return
		}
		m.now = t.due
		if t.period > 0 {
			t.due = t.due.Add(t.period)
		} else {
			t.live = false
		}
		f := t.f
		m.mu.Unlock()
		f()
	}
}

func (m *ManualScheduler) nextDueLocked(end time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.live {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].due.Equal(live[j].due) {
			return live[i].seq < live[j].seq
		}
		return live[i].due.Before(live[j].due)
	})
	if len(live) == 0 || live[0].due.After(end) {
		return nil
	}
	return live[0]
}

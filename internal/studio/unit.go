/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package studio runs the AI generation flows: the image studio, the story campaign
// and the video cine studio. Network work never holds the editor; each finished unit
// is committed once through the gateway.
package studio

import (
	"errors"
	"sync"
	"sync/atomic"

	"canvasstudio/internal/domain"
)

var (
	// ErrBusy rejects a submission while the unit is already generating.
	ErrBusy = errors.New("already generating")
	// ErrStopped reports that a result arrived after the user stopped generation and was discarded.
	ErrStopped = errors.New("generation stopped")
)

// Ticket identifies one submission of a unit. A stopped or superseded ticket can no
// longer move the unit.
type Ticket uint64

// UnitState is a snapshot of a Unit.
type UnitState struct {
	ID     string
	Status domain.GenStatus
	Err    error
}

// Unit is the idle -> generating -> done | error state machine of one piece of work.
type Unit struct {
	mu     sync.Mutex
	id     string
	status domain.GenStatus
	err    error
	ticket Ticket
}

func NewUnit(id string) *Unit { return &Unit{id: id, status: domain.StatusIdle} }

// Begin moves the unit to generating. It fails with ErrBusy while a submission is in flight.
func (u *Unit) Begin() (Ticket, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status == domain.StatusGenerating {
		return 0, ErrBusy
	}
	u.ticket++
	u.status, u.err = domain.StatusGenerating, nil
	return u.ticket, nil
}

func (u *Unit) settle(t Ticket, status domain.GenStatus, err error) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if t != u.ticket || u.status != domain.StatusGenerating {
		return false
	}
	u.status, u.err = status, err
	return true
}

// Finish marks the submission done. It returns false when t is stale.
func (u *Unit) Finish(t Ticket) bool { return u.settle(t, domain.StatusDone, nil) }

// Fail marks the submission errored. It returns false when t is stale.
func (u *Unit) Fail(t Ticket, err error) bool { return u.settle(t, domain.StatusError, err) }

// Stop abandons the in-flight submission; its result will be discarded.
func (u *Unit) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status == domain.StatusGenerating {
		u.ticket++
		u.status = domain.StatusIdle
	}
}

func (u *Unit) State() UnitState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UnitState{ID: u.id, Status: u.status, Err: u.err}
}

// units lazily creates one Unit per id.
type units struct {
	mu sync.Mutex
	m  map[string]*Unit
}

func (s *units) get(id string) *Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]*Unit{}
	}
	u, ok := s.m[id]
	if !ok {
		u = NewUnit(id)
		s.m[id] = u
	}
	return u
}

func (s *units) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.m {
		u.Stop()
	}
}

// guard is the batch-level cancellation flag. Stop invalidates every run started before it.
type guard struct {
	epoch   atomic.Uint64
	running atomic.Bool
}

func (g *guard) start() (uint64, bool) {
	if !g.running.CompareAndSwap(false, true) {
		return 0, false
	}
	return g.epoch.Load(), true
}

func (g *guard) done()                  { g.running.Store(false) }
func (g *guard) stop()                  { g.epoch.Add(1) }
func (g *guard) live(epoch uint64) bool { return g.epoch.Load() == epoch }

// Report summarises a batch run.
type Report struct {
	Submitted []string
	Skipped   []string
	Failed    []string
	Stopped   bool
}

// EventFunc receives anonymous generation events (see telemetry.Client.Event).
type EventFunc func(name string, props map[string]any)

func emit(fn EventFunc, kind string, err error) {
	if fn == nil {
		return
	}
	if err != nil {
		fn("generation_error", map[string]any{"kind": kind, "failure": failureKind(err)})
		return
	}
	fn("generation_done", map[string]any{"kind": kind})
}

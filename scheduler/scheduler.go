// Copyright (c) 2025, The meshsim Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package scheduler provides the cooperative task scheduler shared by the
// virtual nodes of one simulation. Firmwares register periodic tasks; the
// node manager runs due tasks once per simulation tick. Everything executes
// on the simulation thread, so tasks must complete in bounded time.
package scheduler

import (
	"github.com/meshsim/meshsim/logger"
)

// RunForever makes a task repeat until disabled or removed.
const RunForever int64 = -1

// Task is one scheduled callback. Tasks are created through Scheduler.Add
// and stay registered until Remove or until their iterations run out, even
// while disabled.
type Task struct {
	intervalMs uint64
	iterations int64 // remaining runs; RunForever for unbounded
	callback   func()
	nextRunMs  uint64
	enabled    bool
	removed    bool
}

// Enable re-arms the task; it keeps the due time it had, so it runs on the
// next scheduler pass only if that time has already passed.
func (t *Task) Enable() {
	t.enabled = true
}

// Disable suspends the task without removing it.
func (t *Task) Disable() {
	t.enabled = false
}

func (t *Task) IsEnabled() bool {
	return t.enabled && !t.removed
}

// SetInterval changes the task period. Takes effect after the next run.
func (t *Task) SetInterval(intervalMs uint64) {
	t.intervalMs = intervalMs
}

// Scheduler owns an ordered set of tasks. Not safe for concurrent use; it is
// accessed only from the simulation thread.
type Scheduler struct {
	tasks []*Task
	nowMs uint64
}

func New() *Scheduler {
	return &Scheduler{}
}

// Add registers a new enabled task that first runs on the next Execute pass
// and then every intervalMs, for the given number of iterations
// (RunForever for unbounded).
func (s *Scheduler) Add(intervalMs uint64, iterations int64, callback func()) *Task {
	logger.AssertNotNil(callback)
	t := &Task{
		intervalMs: intervalMs,
		iterations: iterations,
		callback:   callback,
		nextRunMs:  s.nowMs,
		enabled:    true,
	}
	s.tasks = append(s.tasks, t)
	return t
}

// Remove unregisters a task.
func (s *Scheduler) Remove(task *Task) {
	task.removed = true
	task.enabled = false
}

// Execute runs every enabled task that is due at nowMs, in registration
// order, and reclaims removed or exhausted tasks. Callbacks may add or
// remove tasks; additions first run on the next pass.
func (s *Scheduler) Execute(nowMs uint64) {
	s.nowMs = nowMs

	due := s.tasks
	for _, t := range due {
		if t.removed || !t.enabled || nowMs < t.nextRunMs {
			continue
		}
		t.callback()
		t.nextRunMs = nowMs + t.intervalMs
		if t.iterations != RunForever {
			t.iterations--
			if t.iterations <= 0 {
				t.removed = true
			}
		}
	}

	kept := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.removed {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
}

// TaskCount returns the number of registered tasks.
func (s *Scheduler) TaskCount() int {
	return len(s.tasks)
}

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

package eventsched

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/types"
)

type scheduledItem struct {
	event Event
	timeS uint32
	seq   uint64 // monotonic insertion sequence, FIFO tie-break

	index int
}

type eventQueue []*scheduledItem

func (eq eventQueue) Len() int {
	return len(eq)
}

func (eq eventQueue) Less(i, j int) bool {
	a, b := eq[i], eq[j]
	if a.timeS != b.timeS {
		return a.timeS < b.timeS
	}
	return a.seq < b.seq
}

func (eq eventQueue) Swap(i, j int) {
	a, b := eq[i], eq[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	eq[i], eq[j] = b, a
	eq[i].index, eq[j].index = i, j
}

func (eq *eventQueue) Push(x interface{}) {
	e := x.(*scheduledItem)
	*eq = append(*eq, e)
	e.index = len(*eq) - 1
}

func (eq *eventQueue) Pop() (elem interface{}) {
	eqlen := len(*eq)
	elem = (*eq)[eqlen-1]
	*eq = (*eq)[:eqlen-1]
	return
}

// Scheduler holds the fault-injection timeline, ordered by
// (scheduled time, insertion sequence).
type Scheduler struct {
	q       eventQueue
	nextSeq uint64
}

func NewScheduler() *Scheduler {
	s := &Scheduler{q: eventQueue{}}
	heap.Init(&s.q)
	return s
}

// Schedule queues an event for execution at timeS seconds of simulation
// time. The time is assigned onto the event.
func (s *Scheduler) Schedule(event Event, timeS uint32) error {
	if event == nil {
		return errors.Wrap(types.ErrInvalidArgument, "cannot schedule nil event")
	}
	event.setScheduledTime(timeS)
	heap.Push(&s.q, &scheduledItem{
		event: event,
		timeS: timeS,
		seq:   s.nextSeq,
	})
	s.nextSeq++
	return nil
}

// Process drains and executes every event whose scheduled time is
// <= currentTimeS, in (time, insertion order), and returns the count
// executed. A failing or panicking event is logged, counts as processed,
// and never aborts the drain.
func (s *Scheduler) Process(currentTimeS uint32, ctx *Context) uint32 {
	executed := uint32(0)
	for len(s.q) > 0 && s.q[0].timeS <= currentTimeS {
		item := heap.Pop(&s.q).(*scheduledItem)
		logger.Infof("[event] t=%ds: %s", currentTimeS, item.event.Describe())
		s.execute(item.event, ctx)
		executed++
	}
	return executed
}

func (s *Scheduler) execute(event Event, ctx *Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("event %q panicked: %v", event.Describe(), r)
		}
	}()
	if err := event.Execute(ctx); err != nil {
		logger.Errorf("event %q failed: %v", event.Describe(), err)
	}
}

func (s *Scheduler) HasPending() bool {
	return len(s.q) > 0
}

func (s *Scheduler) PendingCount() int {
	return len(s.q)
}

// NextEventTime returns the scheduled time of the earliest pending event,
// or math.MaxUint32 when the timeline is empty.
func (s *Scheduler) NextEventTime() uint32 {
	if len(s.q) == 0 {
		return math.MaxUint32
	}
	return s.q[0].timeS
}

// Clear discards the whole timeline.
func (s *Scheduler) Clear() {
	s.q = eventQueue{}
}

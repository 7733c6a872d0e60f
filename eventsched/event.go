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

// Package eventsched replays the pre-declared fault-injection timeline of a
// scenario: a time-ordered queue of events executed against the node manager
// and the network simulator.
package eventsched

import (
	"fmt"

	"github.com/meshsim/meshsim/nodemgr"
	"github.com/meshsim/meshsim/netsim"
)

// Context is what an event executes against.
type Context struct {
	Nm    *nodemgr.Manager
	Ns    *netsim.Simulator
	NowMs uint64
	// Started is set once the simulation entered its run loop; nodes added
	// by an AddNodes event are then started immediately.
	Started bool
}

// Event is one scheduled fault injection. Execute returns an error instead
// of aborting the drain; the scheduler logs it and continues.
type Event interface {
	Execute(ctx *Context) error
	Describe() string
	ScheduledTime() uint32
	setScheduledTime(timeS uint32)
}

// BaseEvent carries the scheduling fields shared by all events.
type BaseEvent struct {
	TimeS       uint32
	Description string
}

func (e *BaseEvent) ScheduledTime() uint32 {
	return e.TimeS
}

func (e *BaseEvent) setScheduledTime(timeS uint32) {
	e.TimeS = timeS
}

func (e *BaseEvent) Describe() string {
	return e.Description
}

func (e *BaseEvent) describeOr(def string) string {
	if e.Description != "" {
		return e.Description
	}
	return def
}

func describeNode(what string, id uint32) string {
	return fmt.Sprintf("%s node %d", what, id)
}

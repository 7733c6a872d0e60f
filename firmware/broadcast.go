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

package firmware

import (
	"strconv"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/scheduler"
	"github.com/meshsim/meshsim/types"
)

const BroadcastName = "simple_broadcast"

// Broadcast periodically floods a message to every reachable node and counts
// broadcasts seen from others.
//
// Config keys: "interval_ms" (default 5000), "message" (default "hello").
type Broadcast struct {
	Base
	message []byte

	SentCopies uint64
	Seen       uint64
}

func NewBroadcast() *Broadcast {
	return &Broadcast{}
}

func (f *Broadcast) Name() string {
	return BroadcastName
}

func (f *Broadcast) Setup() {
	intervalMs, err := strconv.ParseUint(f.GetConfig("interval_ms", "5000"), 10, 64)
	if err != nil {
		intervalMs = 5000
	}
	f.message = []byte(f.GetConfig("message", "hello"))

	f.Sched.Add(intervalMs, scheduler.RunForever, func() {
		f.SentCopies += uint64(f.Mesh.SendBroadcast(f.message))
	})
}

func (f *Broadcast) OnReceive(from types.NodeId, payload []byte) {
	f.Seen++
	logger.Tracef("simple_broadcast %d: received %q from %d", f.NodeId, payload, from)
}

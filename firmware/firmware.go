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

// Package firmware defines the plugin contract for domain behavior running
// on top of a virtual node, a process-wide registry of firmware
// constructors, and the ready-made firmwares shipped with the simulator.
package firmware

import (
	"github.com/meshsim/meshsim/mesh"
	"github.com/meshsim/meshsim/scheduler"
	"github.com/meshsim/meshsim/types"
)

// Firmware is the capability set a node behavior implements. A virtual node
// calls Init exactly once before Setup; Setup runs on the node's first
// start; Loop runs once per node update tick. The remaining callbacks are
// routed from the mesh layer and default to no-ops (embed Base).
type Firmware interface {
	Init(meshHandle *mesh.Handle, sched *scheduler.Scheduler, nodeId types.NodeId, config map[string]string)
	Setup()
	Loop()

	OnReceive(from types.NodeId, payload []byte)
	OnNewConnection(peer types.NodeId)
	OnChangedConnections()
	OnNodeTimeAdjusted(offsetUs int64)

	Name() string
	Version() string
}

// Base carries the state every firmware needs and supplies default no-op
// callbacks. Concrete firmwares embed it and override what they use.
type Base struct {
	Mesh   *mesh.Handle
	Sched  *scheduler.Scheduler
	NodeId types.NodeId
	Config map[string]string
}

func (b *Base) Init(meshHandle *mesh.Handle, sched *scheduler.Scheduler, nodeId types.NodeId, config map[string]string) {
	b.Mesh = meshHandle
	b.Sched = sched
	b.NodeId = nodeId
	b.Config = config
}

func (b *Base) Setup()                                  {}
func (b *Base) Loop()                                   {}
func (b *Base) OnReceive(from types.NodeId, msg []byte) {}
func (b *Base) OnNewConnection(peer types.NodeId)       {}
func (b *Base) OnChangedConnections()                   {}
func (b *Base) OnNodeTimeAdjusted(offsetUs int64)       {}
func (b *Base) Version() string                         { return "1.0" }

// GetConfig returns the config value for key, or def when absent.
func (b *Base) GetConfig(key, def string) string {
	if v, ok := b.Config[key]; ok {
		return v
	}
	return def
}

// HasConfig reports whether key is present in the config map.
func (b *Base) HasConfig(key string) bool {
	_, ok := b.Config[key]
	return ok
}

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

package nodemgr

import (
	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/firmware"
	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/mesh"
	"github.com/meshsim/meshsim/scheduler"
	"github.com/meshsim/meshsim/types"
)

// NodeMetrics aggregates per-node traffic and lifecycle accounting.
type NodeMetrics struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	StartTimeMs      uint64
	TotalUptimeMs    uint64
	CrashCount       uint32
}

// VirtualNode represents one simulated device: mesh handle, firmware slot,
// lifecycle state, metrics and partition tag. Owned exclusively by the
// Manager; external references are borrows that must not outlive it.
type VirtualNode struct {
	Id types.NodeId

	spec           *types.NodeSpec
	running        bool
	partitionId    uint32
	networkQuality float64
	metrics        NodeMetrics
	fw             firmware.Firmware
	fwSetupDone    bool
	meshHandle     *mesh.Handle
	sched          *scheduler.Scheduler
}

// NewVirtualNode creates a stopped node. The spec's firmware name, when
// non-empty, is instantiated from the registry and initialized.
func NewVirtualNode(spec *types.NodeSpec, sched *scheduler.Scheduler, meshHandle *mesh.Handle) (*VirtualNode, error) {
	if spec == nil || spec.Id == types.InvalidNodeId {
		return nil, errors.Wrap(types.ErrInvalidArgument, "node id must be non-zero")
	}
	logger.AssertNotNil(sched)

	n := &VirtualNode{
		Id:             spec.Id,
		spec:           spec,
		networkQuality: 1,
		meshHandle:     meshHandle,
		sched:          sched,
	}
	meshHandle.SetActive(false) // created stopped
	n.routeCallbacks()

	if spec.Firmware != "" {
		if err := n.LoadFirmware(spec.Firmware); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// routeCallbacks registers the node's closures with its mesh handle. Each
// updates metrics and forwards to the firmware slot when present; a stopped
// node ignores mesh traffic.
func (n *VirtualNode) routeCallbacks() {
	n.meshHandle.OnSend(func(payload []byte) {
		n.metrics.MessagesSent++
		n.metrics.BytesSent += uint64(len(payload))
	})
	n.meshHandle.OnReceive(func(from types.NodeId, payload []byte) {
		if !n.running {
			return
		}
		n.metrics.MessagesReceived++
		n.metrics.BytesReceived += uint64(len(payload))
		if n.fw != nil {
			n.fw.OnReceive(from, payload)
		}
	})
	n.meshHandle.OnNewConnection(func(peer types.NodeId) {
		if n.fw != nil {
			n.fw.OnNewConnection(peer)
		}
	})
	n.meshHandle.OnChangedConnections(func() {
		if n.fw != nil {
			n.fw.OnChangedConnections()
		}
	})
	n.meshHandle.OnNodeTimeAdjusted(func(offsetUs int64) {
		if n.fw != nil {
			n.fw.OnNodeTimeAdjusted(offsetUs)
		}
	})
}

// Start transitions the node to running. The firmware's Setup runs exactly
// once per firmware lifetime, inside the first Start after construction or
// after a firmware replacement.
func (n *VirtualNode) Start(nowMs uint64) error {
	if n.running {
		return errors.Wrapf(types.ErrAlreadyRunning, "node %d", n.Id)
	}
	n.running = true
	n.meshHandle.SetActive(true)
	n.metrics.StartTimeMs = nowMs
	if n.fw != nil && !n.fwSetupDone {
		n.fw.Setup()
		n.fwSetupDone = true
	}
	logger.Debugf("node %d started at t=%dms", n.Id, nowMs)
	return nil
}

// Stop transitions the node to stopped and accumulates uptime. Stopping a
// stopped node is a no-op.
func (n *VirtualNode) Stop(nowMs uint64) {
	if !n.running {
		return
	}
	n.running = false
	n.meshHandle.SetActive(false)
	n.metrics.TotalUptimeMs += nowMs - n.metrics.StartTimeMs
	logger.Debugf("node %d stopped at t=%dms", n.Id, nowMs)
}

// Crash is Stop plus a crash-count increment. Silently a no-op when the node
// is not running.
func (n *VirtualNode) Crash(nowMs uint64) {
	if !n.running {
		return
	}
	n.Stop(nowMs)
	n.metrics.CrashCount++
	logger.Debugf("node %d crashed (count=%d)", n.Id, n.metrics.CrashCount)
}

// Restart is Stop followed by Start.
func (n *VirtualNode) Restart(nowMs uint64) error {
	n.Stop(nowMs)
	return n.Start(nowMs)
}

// Update advances the node by one tick: firmware loop, when running.
func (n *VirtualNode) Update() {
	if !n.running {
		return
	}
	if n.fw != nil {
		n.fw.Loop()
	}
}

// ConnectTo requests a mesh-layer connection from this node to the other.
func (n *VirtualNode) ConnectTo(other *VirtualNode) {
	n.meshHandle.Connect(other.Id)
}

// Uptime returns now - start time while running, 0 otherwise.
func (n *VirtualNode) Uptime(nowMs uint64) uint64 {
	if !n.running {
		return 0
	}
	return nowMs - n.metrics.StartTimeMs
}

func (n *VirtualNode) IsRunning() bool {
	return n.running
}

func (n *VirtualNode) SetPartitionId(id uint32) {
	n.partitionId = id
}

func (n *VirtualNode) PartitionId() uint32 {
	return n.partitionId
}

// SetNetworkQuality stores the node's quality factor. Reserved for future
// use by the loss model.
func (n *VirtualNode) SetNetworkQuality(q float64) error {
	if q < 0 || q > 1 {
		return errors.Wrapf(types.ErrInvalidArgument, "network quality %v outside [0,1]", q)
	}
	n.networkQuality = q
	return nil
}

func (n *VirtualNode) NetworkQuality() float64 {
	return n.networkQuality
}

// LoadFirmware fills the firmware slot from the registry. Loading over an
// existing firmware replaces it; the new firmware's Setup runs on the next
// Start, or at once when the node is already running.
func (n *VirtualNode) LoadFirmware(name string) error {
	fw, err := firmware.Create(name)
	if err != nil {
		return err
	}
	n.LoadFirmwareInstance(fw)
	return nil
}

// LoadFirmwareInstance fills the firmware slot with a concrete instance.
func (n *VirtualNode) LoadFirmwareInstance(fw firmware.Firmware) {
	fw.Init(n.meshHandle, n.sched, n.Id, n.spec.Config)
	n.fw = fw
	n.fwSetupDone = false
	if n.running {
		// replacement while running: set up immediately, as the first
		// start already happened
		fw.Setup()
		n.fwSetupDone = true
	}
}

// Firmware returns the current firmware slot, nil when empty.
func (n *VirtualNode) Firmware() firmware.Firmware {
	return n.fw
}

// Spec returns the node's configuration.
func (n *VirtualNode) Spec() *types.NodeSpec {
	return n.spec
}

// Metrics returns a copy of the node's metrics.
func (n *VirtualNode) Metrics() NodeMetrics {
	return n.metrics
}

// MeshHandle returns the node's mesh-layer handle.
func (n *VirtualNode) MeshHandle() *mesh.Handle {
	return n.meshHandle
}

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
	"fmt"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/types"
)

// NodeStartEvent starts a node; a running target is a no-op.
type NodeStartEvent struct {
	BaseEvent
	Node types.NodeId
}

func (e *NodeStartEvent) Describe() string {
	return e.describeOr(describeNode("start", e.Node))
}

func (e *NodeStartEvent) Execute(ctx *Context) error {
	node := ctx.Nm.GetNode(e.Node)
	if node == nil {
		return errors.Wrapf(types.ErrNotFound, "node %d", e.Node)
	}
	if node.IsRunning() {
		return nil
	}
	return node.Start(ctx.NowMs)
}

// NodeStopEvent stops a node. The Graceful flag is descriptive only.
type NodeStopEvent struct {
	BaseEvent
	Node     types.NodeId
	Graceful bool
}

func (e *NodeStopEvent) Describe() string {
	return e.describeOr(describeNode("stop", e.Node))
}

func (e *NodeStopEvent) Execute(ctx *Context) error {
	node := ctx.Nm.GetNode(e.Node)
	if node == nil {
		return errors.Wrapf(types.ErrNotFound, "node %d", e.Node)
	}
	node.Stop(ctx.NowMs)
	return nil
}

// NodeCrashEvent crashes a running node, incrementing its crash count.
type NodeCrashEvent struct {
	BaseEvent
	Node types.NodeId
}

func (e *NodeCrashEvent) Describe() string {
	return e.describeOr(describeNode("crash", e.Node))
}

func (e *NodeCrashEvent) Execute(ctx *Context) error {
	node := ctx.Nm.GetNode(e.Node)
	if node == nil {
		return errors.Wrapf(types.ErrNotFound, "node %d", e.Node)
	}
	node.Crash(ctx.NowMs)
	return nil
}

// NodeRestartEvent stops and starts a node.
type NodeRestartEvent struct {
	BaseEvent
	Node types.NodeId
}

func (e *NodeRestartEvent) Describe() string {
	return e.describeOr(describeNode("restart", e.Node))
}

func (e *NodeRestartEvent) Execute(ctx *Context) error {
	node := ctx.Nm.GetNode(e.Node)
	if node == nil {
		return errors.Wrapf(types.ErrNotFound, "node %d", e.Node)
	}
	return node.Restart(ctx.NowMs)
}

// LinkDropEvent deactivates the link between two nodes, both directions.
type LinkDropEvent struct {
	BaseEvent
	A, B types.NodeId
}

func (e *LinkDropEvent) Describe() string {
	return e.describeOr(fmt.Sprintf("drop link %d<->%d", e.A, e.B))
}

func (e *LinkDropEvent) Execute(ctx *Context) error {
	ctx.Ns.DropLink(e.A, e.B)
	ctx.Ns.DropLink(e.B, e.A)
	return nil
}

// LinkRestoreEvent reactivates the link between two nodes, both directions.
type LinkRestoreEvent struct {
	BaseEvent
	A, B types.NodeId
}

func (e *LinkRestoreEvent) Describe() string {
	return e.describeOr(fmt.Sprintf("restore link %d<->%d", e.A, e.B))
}

func (e *LinkRestoreEvent) Execute(ctx *Context) error {
	ctx.Ns.RestoreLink(e.A, e.B)
	ctx.Ns.RestoreLink(e.B, e.A)
	return nil
}

// LinkDegradeEvent worsens a link in both directions: uniform latency in
// [LatencyMs, 2*LatencyMs] and non-bursty loss with probability LossProb.
type LinkDegradeEvent struct {
	BaseEvent
	A, B      types.NodeId
	LatencyMs uint32
	LossProb  float64
}

func (e *LinkDegradeEvent) Describe() string {
	return e.describeOr(fmt.Sprintf("degrade link %d<->%d (latency=%dms, loss=%v)",
		e.A, e.B, e.LatencyMs, e.LossProb))
}

func (e *LinkDegradeEvent) Execute(ctx *Context) error {
	latency := netsim.LatencyConfig{
		MinMs:        e.LatencyMs,
		MaxMs:        2 * e.LatencyMs,
		Distribution: types.DistUniform,
	}
	loss := netsim.PacketLossConfig{
		Probability: e.LossProb,
		BurstMode:   false,
		BurstLength: 3,
	}
	for _, link := range []types.DirectedLink{{From: e.A, To: e.B}, {From: e.B, To: e.A}} {
		if err := ctx.Ns.SetLinkLatency(link.From, link.To, latency); err != nil {
			return err
		}
		if err := ctx.Ns.SetLinkLoss(link.From, link.To, loss); err != nil {
			return err
		}
	}
	return nil
}

// PartitionNetworkEvent splits the population into isolated groups: every
// directed link crossing a group boundary is dropped and every member is
// tagged with its group's partition id (index+1).
type PartitionNetworkEvent struct {
	BaseEvent
	Groups [][]types.NodeId
}

func (e *PartitionNetworkEvent) Describe() string {
	return e.describeOr(fmt.Sprintf("partition network into %d groups", len(e.Groups)))
}

func (e *PartitionNetworkEvent) Execute(ctx *Context) error {
	if len(e.Groups) < 2 {
		return errors.Wrap(types.ErrInvalidArgument, "partition requires at least 2 groups")
	}
	for _, group := range e.Groups {
		if len(group) == 0 {
			return errors.Wrap(types.ErrInvalidArgument, "partition group must not be empty")
		}
	}

	for i, gi := range e.Groups {
		for _, gj := range e.Groups[i+1:] {
			for _, u := range gi {
				for _, v := range gj {
					ctx.Ns.DropLink(u, v)
					ctx.Ns.DropLink(v, u)
				}
			}
		}
	}

	for i, group := range e.Groups {
		for _, id := range group {
			node := ctx.Nm.GetNode(id)
			if node == nil {
				return errors.Wrapf(types.ErrNotFound, "partition group member %d", id)
			}
			node.SetPartitionId(uint32(i + 1))
		}
	}
	return nil
}

// HealNetworkEvent restores every dropped link and clears all partition
// tags.
type HealNetworkEvent struct {
	BaseEvent
}

func (e *HealNetworkEvent) Describe() string {
	return e.describeOr("heal network")
}

func (e *HealNetworkEvent) Execute(ctx *Context) error {
	ctx.Ns.RestoreAllLinks()
	for _, node := range ctx.Nm.GetAllNodes() {
		node.SetPartitionId(0)
	}
	return nil
}

// InjectMessageEvent puts a payload on the wire directly, bypassing any
// firmware.
type InjectMessageEvent struct {
	BaseEvent
	From    types.NodeId
	To      types.NodeId
	Payload []byte
}

func (e *InjectMessageEvent) Describe() string {
	return e.describeOr(fmt.Sprintf("inject message %d->%d", e.From, e.To))
}

func (e *InjectMessageEvent) Execute(ctx *Context) error {
	ctx.Ns.Enqueue(e.From, e.To, e.Payload, ctx.NowMs)
	return nil
}

// SetNetworkQualityEvent stores a quality factor on one node, or on every
// node when All is set.
type SetNetworkQualityEvent struct {
	BaseEvent
	Target  types.NodeId
	All     bool
	Quality float64
}

func (e *SetNetworkQualityEvent) Describe() string {
	if e.All {
		return e.describeOr(fmt.Sprintf("set network quality %v on all nodes", e.Quality))
	}
	return e.describeOr(fmt.Sprintf("set network quality %v on node %d", e.Quality, e.Target))
}

func (e *SetNetworkQualityEvent) Execute(ctx *Context) error {
	if e.All {
		for _, node := range ctx.Nm.GetAllNodes() {
			if err := node.SetNetworkQuality(e.Quality); err != nil {
				return err
			}
		}
		return nil
	}
	node := ctx.Nm.GetNode(e.Target)
	if node == nil {
		return errors.Wrapf(types.ErrNotFound, "node %d", e.Target)
	}
	return node.SetNetworkQuality(e.Quality)
}

// AddNodesEvent materializes new nodes from a template spec at runtime. The
// i-th node is named IdPrefix+i and gets its id from the name hash. When the
// simulation is already running, new nodes start immediately.
type AddNodesEvent struct {
	BaseEvent
	Template types.NodeSpec
	Count    uint32
	IdPrefix string
}

func (e *AddNodesEvent) Describe() string {
	return e.describeOr(fmt.Sprintf("add %d nodes (%s*)", e.Count, e.IdPrefix))
}

func (e *AddNodesEvent) Execute(ctx *Context) error {
	for i := uint32(0); i < e.Count; i++ {
		spec := e.Template.Clone()
		spec.Name = fmt.Sprintf("%s%d", e.IdPrefix, i)
		spec.Id = types.NodeIdFromName(spec.Name)

		node, err := ctx.Nm.CreateNode(spec)
		if err != nil {
			return err
		}
		if ctx.Started {
			if err := node.Start(ctx.NowMs); err != nil {
				logger.Errorf("added node %d failed to start: %v", node.Id, err)
			}
		}
	}
	return nil
}

// RemoveNodeEvent destroys a node, stopping it first when running.
type RemoveNodeEvent struct {
	BaseEvent
	Node types.NodeId
}

func (e *RemoveNodeEvent) Describe() string {
	return e.describeOr(describeNode("remove", e.Node))
}

func (e *RemoveNodeEvent) Execute(ctx *Context) error {
	return ctx.Nm.RemoveNode(e.Node)
}

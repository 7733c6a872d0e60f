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

// Package nodemgr owns the population of virtual nodes of one simulation:
// creation, bulk lifecycle operations, the per-tick update fan-out and the
// initial connectivity bootstrap.
package nodemgr

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/mesh"
	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/prng"
	"github.com/meshsim/meshsim/scheduler"
	"github.com/meshsim/meshsim/types"
)

// Manager exclusively owns the virtual nodes, keyed by node id. All methods
// run on the simulation thread.
type Manager struct {
	ns    *netsim.Simulator
	net   *mesh.Network
	sched *scheduler.Scheduler
	nodes map[types.NodeId]*VirtualNode
	order []types.NodeId // insertion order, drives update and bootstrap order

	// CurTime is the current simulation time [ms], maintained by the outer
	// loop before each tick.
	CurTime uint64
}

func NewManager(ns *netsim.Simulator, net *mesh.Network) *Manager {
	return &Manager{
		ns:    ns,
		net:   net,
		sched: scheduler.New(),
		nodes: map[types.NodeId]*VirtualNode{},
	}
}

// Scheduler returns the task scheduler shared by this manager's nodes.
func (m *Manager) Scheduler() *scheduler.Scheduler {
	return m.sched
}

// CreateNode materializes a stopped node from its spec. Rejects a zero id,
// a duplicate id and population beyond types.MaxNodes.
func (m *Manager) CreateNode(spec *types.NodeSpec) (*VirtualNode, error) {
	if spec == nil || spec.Id == types.InvalidNodeId {
		return nil, errors.Wrap(types.ErrInvalidArgument, "node id must be non-zero")
	}
	if _, exists := m.nodes[spec.Id]; exists {
		return nil, errors.Wrapf(types.ErrDuplicateId, "node %d (%s)", spec.Id, spec.Name)
	}
	if len(m.nodes) >= types.MaxNodes {
		return nil, errors.Wrapf(types.ErrResourceLimit, "max %d nodes", types.MaxNodes)
	}

	handle := m.net.AddNode(spec.Id)
	node, err := NewVirtualNode(spec, m.sched, handle)
	if err != nil {
		m.net.RemoveNode(spec.Id)
		return nil, err
	}

	m.nodes[spec.Id] = node
	m.order = append(m.order, spec.Id)
	logger.Debugf("created node %d (%s, firmware=%q)", spec.Id, spec.Name, spec.Firmware)
	return node, nil
}

// RemoveNode stops the node if running, then destroys it.
func (m *Manager) RemoveNode(id types.NodeId) error {
	node, ok := m.nodes[id]
	if !ok {
		return errors.Wrapf(types.ErrNotFound, "node %d", id)
	}
	node.Stop(m.CurTime)
	m.net.RemoveNode(id)
	delete(m.nodes, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	logger.Debugf("removed node %d", id)
	return nil
}

// StartAll starts every stopped node; already-running nodes are skipped.
// Per-node failures are logged and do not stop the sweep.
func (m *Manager) StartAll(nowMs uint64) {
	for _, id := range m.order {
		node := m.nodes[id]
		if node.IsRunning() {
			continue
		}
		if err := node.Start(nowMs); err != nil {
			logger.Errorf("start of node %d failed: %v", id, err)
		}
	}
}

// StopAll stops every running node.
func (m *Manager) StopAll(nowMs uint64) {
	for _, id := range m.order {
		m.nodes[id].Stop(nowMs)
	}
}

// UpdateAll advances the population by one tick: due scheduler tasks first,
// then every node's update, in insertion order.
func (m *Manager) UpdateAll(nowMs uint64) {
	m.CurTime = nowMs
	m.sched.Execute(nowMs)
	for _, id := range m.order {
		m.nodes[id].Update()
	}
}

// EstablishConnectivity wires the initial topology: every node at insertion
// index i >= 1 connects to a uniformly drawn earlier node, which yields a
// random spanning tree, so the emergent graph is connected at t=0. Draws
// come from the seeded topology stream.
func (m *Manager) EstablishConnectivity() {
	for i := 1; i < len(m.order); i++ {
		target := m.order[prng.TopologyIntn(i)]
		m.nodes[m.order[i]].ConnectTo(m.nodes[target])
	}
	if len(m.order) > 1 {
		logger.Infof("connectivity bootstrap wired %d nodes into a spanning tree", len(m.order))
	}
}

// GetNode returns the node with the given id, nil when unknown.
func (m *Manager) GetNode(id types.NodeId) *VirtualNode {
	return m.nodes[id]
}

func (m *Manager) HasNode(id types.NodeId) bool {
	_, ok := m.nodes[id]
	return ok
}

// GetNodeIds returns all node ids in ascending order.
func (m *Manager) GetNodeIds() []types.NodeId {
	ids := make([]types.NodeId, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetAllNodes returns the nodes in insertion order.
func (m *Manager) GetAllNodes() []*VirtualNode {
	nodes := make([]*VirtualNode, 0, len(m.order))
	for _, id := range m.order {
		nodes = append(nodes, m.nodes[id])
	}
	return nodes
}

func (m *Manager) GetNodeCount() int {
	return len(m.nodes)
}

// RunningCount returns the number of currently running nodes.
func (m *Manager) RunningCount() int {
	c := 0
	for _, node := range m.nodes {
		if node.IsRunning() {
			c++
		}
	}
	return c
}

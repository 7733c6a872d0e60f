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

// Package mesh is the in-process stand-in for the mesh protocol library the
// virtual nodes embed. It keeps the connection graph of one simulation and
// routes every payload through the network simulator, so link latency, loss
// and partitions apply to mesh traffic. The wire protocol of the original
// library is out of scope; only its callback surface and send/receive
// operations are modeled.
package mesh

import (
	"sort"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/types"
)

// Network is the shared mesh layer of one simulation. It is owned by the
// simulation thread.
type Network struct {
	ns        *netsim.Simulator
	adjacency map[types.NodeId]map[types.NodeId]struct{}
	handles   map[types.NodeId]*Handle
	nowMs     uint64
}

func NewNetwork(ns *netsim.Simulator) *Network {
	return &Network{
		ns:        ns,
		adjacency: map[types.NodeId]map[types.NodeId]struct{}{},
		handles:   map[types.NodeId]*Handle{},
	}
}

// AdvanceTime sets the current simulation time [ms] used to stamp sends.
func (n *Network) AdvanceTime(nowMs uint64) {
	n.nowMs = nowMs
}

// AddNode registers a node with the mesh layer and returns its handle.
// Handles start active; a virtual node toggles the flag with its lifecycle.
func (n *Network) AddNode(id types.NodeId) *Handle {
	logger.AssertNil(n.handles[id], "mesh node %d already exists", id)
	h := &Handle{id: id, net: n, active: true}
	n.handles[id] = h
	n.adjacency[id] = map[types.NodeId]struct{}{}
	return h
}

// RemoveNode unregisters a node and severs all its connections.
func (n *Network) RemoveNode(id types.NodeId) {
	for peer := range n.adjacency[id] {
		delete(n.adjacency[peer], id)
		if h := n.handles[peer]; h != nil && h.onChangedConnections != nil {
			h.onChangedConnections()
		}
	}
	delete(n.adjacency, id)
	delete(n.handles, id)
}

// Connect adds the undirected mesh connection (a,b) and fires the
// new-connection callbacks on both endpoints. Reconnecting an existing pair
// is a no-op.
func (n *Network) Connect(a, b types.NodeId) {
	if a == b {
		return
	}
	if _, ok := n.adjacency[a]; !ok {
		return
	}
	if _, ok := n.adjacency[b]; !ok {
		return
	}
	if _, ok := n.adjacency[a][b]; ok {
		return
	}

	n.adjacency[a][b] = struct{}{}
	n.adjacency[b][a] = struct{}{}

	if h := n.handles[a]; h != nil {
		h.notifyNewConnection(b)
	}
	if h := n.handles[b]; h != nil {
		h.notifyNewConnection(a)
	}
}

// IsConnected reports whether the undirected mesh connection (a,b) exists.
func (n *Network) IsConnected(a, b types.NodeId) bool {
	_, ok := n.adjacency[a][b]
	return ok
}

// Connections returns all undirected connections, each pair once with
// From < To, sorted for stable iteration.
func (n *Network) Connections() []types.DirectedLink {
	var links []types.DirectedLink
	for a, peers := range n.adjacency {
		for b := range peers {
			if a < b {
				links = append(links, types.DirectedLink{From: a, To: b})
			}
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].From != links[j].From {
			return links[i].From < links[j].From
		}
		return links[i].To < links[j].To
	})
	return links
}

// reachableFrom walks the connection graph and returns every node reachable
// from start, excluding start itself, in ascending id order.
func (n *Network) reachableFrom(start types.NodeId) []types.NodeId {
	visited := map[types.NodeId]struct{}{start: {}}
	frontier := []types.NodeId{start}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for peer := range n.adjacency[cur] {
			if _, seen := visited[peer]; !seen {
				visited[peer] = struct{}{}
				frontier = append(frontier, peer)
			}
		}
	}

	delete(visited, start)
	nodes := make([]types.NodeId, 0, len(visited))
	for id := range visited {
		nodes = append(nodes, id)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// Deliver routes a message that left the network simulator's queue to its
// recipient's receive callback. Unknown recipients (e.g. removed nodes) are
// dropped with a debug log.
func (n *Network) Deliver(msg types.QueuedMessage) {
	h := n.handles[msg.To]
	if h == nil {
		logger.Debugf("mesh delivery to unknown node %d discarded", msg.To)
		return
	}
	h.notifyReceive(msg.From, msg.Payload)
}

// Handle is one node's view of the mesh layer: the send/receive surface the
// firmwares program against.
type Handle struct {
	id     types.NodeId
	net    *Network
	active bool

	bridge       bool
	internet     bool
	timeOffsetUs int64

	onReceive            func(from types.NodeId, payload []byte)
	onNewConnection      func(peer types.NodeId)
	onChangedConnections func()
	onNodeTimeAdjusted   func(offsetUs int64)
	onSend               func(payload []byte)
}

func (h *Handle) NodeId() types.NodeId {
	return h.id
}

// SetActive switches the node's radio on or off. An inactive handle
// silently discards sends; tasks of a stopped node keep running but cannot
// reach the wire.
func (h *Handle) SetActive(active bool) {
	h.active = active
}

// SendSingle submits a unicast payload to the network simulator. The
// admission decision (loss, inactive link) happens there.
func (h *Handle) SendSingle(to types.NodeId, payload []byte) {
	if !h.active {
		return
	}
	h.net.ns.Enqueue(h.id, to, payload, h.net.nowMs)
	if h.onSend != nil {
		h.onSend(payload)
	}
}

// SendBroadcast fans a payload out to every node reachable over mesh
// connections, one simulator enqueue per recipient. Returns the number of
// submitted copies.
func (h *Handle) SendBroadcast(payload []byte) int {
	if !h.active {
		return 0
	}
	targets := h.net.reachableFrom(h.id)
	for _, to := range targets {
		h.net.ns.Enqueue(h.id, to, payload, h.net.nowMs)
		if h.onSend != nil {
			h.onSend(payload)
		}
	}
	return len(targets)
}

// NodeList returns the ids of all nodes currently reachable from this node.
func (h *Handle) NodeList() []types.NodeId {
	return h.net.reachableFrom(h.id)
}

// NodeTime returns this node's view of mesh time [us].
func (h *Handle) NodeTime() uint64 {
	return uint64(int64(h.net.nowMs*1000) + h.timeOffsetUs)
}

// AdjustTime shifts this node's mesh time and fires the time-adjusted
// callback.
func (h *Handle) AdjustTime(offsetUs int64) {
	h.timeOffsetUs += offsetUs
	if h.onNodeTimeAdjusted != nil {
		h.onNodeTimeAdjusted(offsetUs)
	}
}

func (h *Handle) IsBridge() bool {
	return h.bridge
}

func (h *Handle) SetBridge(bridge bool) {
	h.bridge = bridge
}

func (h *Handle) HasInternetConnection() bool {
	return h.internet
}

func (h *Handle) SetInternetConnection(internet bool) {
	h.internet = internet
}

// Connect requests a mesh connection from this node to the other.
func (h *Handle) Connect(to types.NodeId) {
	h.net.Connect(h.id, to)
}

// OnReceive registers the receive callback.
func (h *Handle) OnReceive(cb func(from types.NodeId, payload []byte)) {
	h.onReceive = cb
}

// OnNewConnection registers the new-connection callback.
func (h *Handle) OnNewConnection(cb func(peer types.NodeId)) {
	h.onNewConnection = cb
}

// OnChangedConnections registers the changed-connections callback.
func (h *Handle) OnChangedConnections(cb func()) {
	h.onChangedConnections = cb
}

// OnNodeTimeAdjusted registers the time-adjusted callback.
func (h *Handle) OnNodeTimeAdjusted(cb func(offsetUs int64)) {
	h.onNodeTimeAdjusted = cb
}

// OnSend registers an observer called once per submitted payload copy.
func (h *Handle) OnSend(cb func(payload []byte)) {
	h.onSend = cb
}

func (h *Handle) notifyReceive(from types.NodeId, payload []byte) {
	if h.onReceive != nil {
		h.onReceive(from, payload)
	}
}

func (h *Handle) notifyNewConnection(peer types.NodeId) {
	if h.onNewConnection != nil {
		h.onNewConnection(peer)
	}
	if h.onChangedConnections != nil {
		h.onChangedConnections()
	}
}

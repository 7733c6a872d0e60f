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

package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/types"
)

func newTestNetwork(t *testing.T) (*netsim.Simulator, *Network) {
	ns := netsim.NewSimulator(1)
	require.NoError(t, ns.SetDefaultLatency(netsim.LatencyConfig{MinMs: 10, MaxMs: 10}))
	require.NoError(t, ns.SetDefaultLoss(netsim.PacketLossConfig{Probability: 0}))
	return ns, NewNetwork(ns)
}

func TestConnectFiresCallbacks(t *testing.T) {
	_, net := newTestNetwork(t)
	a := net.AddNode(1)
	b := net.AddNode(2)

	var aGot, bGot []types.NodeId
	changed := 0
	a.OnNewConnection(func(peer types.NodeId) { aGot = append(aGot, peer) })
	b.OnNewConnection(func(peer types.NodeId) { bGot = append(bGot, peer) })
	a.OnChangedConnections(func() { changed++ })

	net.Connect(1, 2)
	assert.Equal(t, []types.NodeId{2}, aGot)
	assert.Equal(t, []types.NodeId{1}, bGot)
	assert.Equal(t, 1, changed)
	assert.True(t, net.IsConnected(1, 2))
	assert.True(t, net.IsConnected(2, 1))

	// reconnect is a no-op
	net.Connect(1, 2)
	assert.Equal(t, 1, changed)

	// self and unknown endpoints are ignored
	net.Connect(1, 1)
	net.Connect(1, 99)
	assert.Len(t, net.Connections(), 1)
}

func TestSendSingleRoutesThroughSimulator(t *testing.T) {
	ns, net := newTestNetwork(t)
	a := net.AddNode(1)
	b := net.AddNode(2)

	var got []byte
	var from types.NodeId
	b.OnReceive(func(f types.NodeId, payload []byte) { from, got = f, payload })

	net.AdvanceTime(100)
	a.SendSingle(2, []byte("hi"))
	assert.Equal(t, 1, ns.PendingCount())

	for _, msg := range ns.ReadyMessages(110) {
		net.Deliver(msg)
	}
	assert.Equal(t, types.NodeId(1), from)
	assert.Equal(t, []byte("hi"), got)
}

func TestBroadcastReachesComponentOnly(t *testing.T) {
	ns, net := newTestNetwork(t)
	a := net.AddNode(1)
	net.AddNode(2)
	net.AddNode(3)
	net.AddNode(4) // not connected

	net.Connect(1, 2)
	net.Connect(2, 3)

	sent := a.SendBroadcast([]byte("all"))
	assert.Equal(t, 2, sent)
	assert.Equal(t, 2, ns.PendingCount())
	assert.Equal(t, []types.NodeId{2, 3}, a.NodeList())
}

func TestRemoveNodeSeversConnections(t *testing.T) {
	_, net := newTestNetwork(t)
	a := net.AddNode(1)
	net.AddNode(2)
	net.Connect(1, 2)

	changed := 0
	a.OnChangedConnections(func() { changed++ })
	net.RemoveNode(2)
	assert.Equal(t, 1, changed)
	assert.Empty(t, a.NodeList())
	assert.False(t, net.IsConnected(1, 2))

	// delivery to a removed node is discarded, not fatal
	net.Deliver(types.QueuedMessage{From: 1, To: 2, Payload: []byte("late")})
}

func TestNodeTimeAdjust(t *testing.T) {
	_, net := newTestNetwork(t)
	a := net.AddNode(1)
	net.AdvanceTime(5)

	var seen int64
	a.OnNodeTimeAdjusted(func(offsetUs int64) { seen = offsetUs })
	assert.Equal(t, uint64(5000), a.NodeTime())
	a.AdjustTime(250)
	assert.Equal(t, int64(250), seen)
	assert.Equal(t, uint64(5250), a.NodeTime())
}

func TestBridgeFlags(t *testing.T) {
	_, net := newTestNetwork(t)
	a := net.AddNode(1)
	assert.False(t, a.IsBridge())
	assert.False(t, a.HasInternetConnection())
	a.SetBridge(true)
	a.SetInternetConnection(true)
	assert.True(t, a.IsBridge())
	assert.True(t, a.HasInternetConnection())
}

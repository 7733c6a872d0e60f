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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsim/meshsim/firmware"
	"github.com/meshsim/meshsim/mesh"
	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/prng"
	"github.com/meshsim/meshsim/types"
)

func newTestManager(t *testing.T) *Manager {
	ns := netsim.NewSimulator(1)
	require.NoError(t, ns.SetDefaultLatency(netsim.LatencyConfig{MinMs: 10, MaxMs: 10}))
	return NewManager(ns, mesh.NewNetwork(ns))
}

func spec(id types.NodeId) *types.NodeSpec {
	return &types.NodeSpec{Name: fmt.Sprintf("node-%d", id), Id: id, Config: map[string]string{}}
}

func TestNodeLifecycle(t *testing.T) {
	m := newTestManager(t)
	n, err := m.CreateNode(spec(10))
	require.NoError(t, err)
	assert.False(t, n.IsRunning())

	require.NoError(t, n.Start(1000))
	assert.True(t, n.IsRunning())
	assert.ErrorIs(t, n.Start(1000), types.ErrAlreadyRunning)

	assert.Equal(t, uint64(500), n.Uptime(1500))
	n.Stop(2000)
	assert.False(t, n.IsRunning())
	assert.Equal(t, uint64(0), n.Uptime(2500))
	assert.Equal(t, uint64(1000), n.Metrics().TotalUptimeMs)

	// stop();stop() == stop()
	n.Stop(3000)
	assert.Equal(t, uint64(1000), n.Metrics().TotalUptimeMs)

	require.NoError(t, n.Restart(4000))
	assert.True(t, n.IsRunning())
}

func TestCrashAccounting(t *testing.T) {
	m := newTestManager(t)
	n, err := m.CreateNode(spec(20))
	require.NoError(t, err)

	n.Crash(100) // not running: silent no-op
	assert.Equal(t, uint32(0), n.Metrics().CrashCount)

	require.NoError(t, n.Start(0))
	n.Crash(10_000)
	require.NoError(t, n.Start(20_000))
	n.Crash(30_000)

	assert.Equal(t, uint32(2), n.Metrics().CrashCount)
	assert.Equal(t, uint64(20_000), n.Metrics().TotalUptimeMs)

	// stop and restart do not increment the crash count
	require.NoError(t, n.Start(40_000))
	require.NoError(t, n.Restart(41_000))
	n.Stop(42_000)
	assert.Equal(t, uint32(2), n.Metrics().CrashCount)
}

type setupCounter struct {
	firmware.Base
	setups int
	loops  int
}

func (f *setupCounter) Name() string { return "setup_counter" }
func (f *setupCounter) Setup()       { f.setups++ }
func (f *setupCounter) Loop()        { f.loops++ }

func TestFirmwareSetupOncePerLifetime(t *testing.T) {
	m := newTestManager(t)
	n, err := m.CreateNode(spec(30))
	require.NoError(t, err)

	fw := &setupCounter{}
	n.LoadFirmwareInstance(fw)
	assert.Equal(t, 0, fw.setups, "setup waits for first start")

	require.NoError(t, n.Start(0))
	n.Stop(10)
	require.NoError(t, n.Start(20))
	assert.Equal(t, 1, fw.setups)

	n.Update()
	n.Update()
	assert.Equal(t, 2, fw.loops)
	n.Stop(30)
	n.Update()
	assert.Equal(t, 2, fw.loops, "no loop while stopped")

	// replacement while running sets up immediately
	require.NoError(t, n.Start(40))
	fw2 := &setupCounter{}
	n.LoadFirmwareInstance(fw2)
	assert.Equal(t, 1, fw2.setups)
}

func TestLoadFirmwareUnknownName(t *testing.T) {
	firmware.Clear()
	defer firmware.Clear()

	m := newTestManager(t)
	n, err := m.CreateNode(spec(40))
	require.NoError(t, err)
	assert.ErrorIs(t, n.LoadFirmware("nope"), types.ErrUnknownFirmware)

	firmware.RegisterBuiltins()
	assert.NoError(t, n.LoadFirmware(firmware.EchoServerName))
}

func TestNodeMetricsCounters(t *testing.T) {
	ns := netsim.NewSimulator(1)
	require.NoError(t, ns.SetDefaultLatency(netsim.LatencyConfig{MinMs: 5, MaxMs: 5}))
	net := mesh.NewNetwork(ns)
	m := NewManager(ns, net)

	a, err := m.CreateNode(spec(1))
	require.NoError(t, err)
	b, err := m.CreateNode(spec(2))
	require.NoError(t, err)
	a.ConnectTo(b)
	require.NoError(t, a.Start(0))
	require.NoError(t, b.Start(0))

	a.MeshHandle().SendSingle(2, []byte("abcd"))
	for _, msg := range ns.ReadyMessages(10) {
		net.Deliver(msg)
	}

	assert.Equal(t, uint64(1), a.Metrics().MessagesSent)
	assert.Equal(t, uint64(4), a.Metrics().BytesSent)
	assert.Equal(t, uint64(1), b.Metrics().MessagesReceived)
	assert.Equal(t, uint64(4), b.Metrics().BytesReceived)

	// a stopped recipient ignores traffic
	b.Stop(20)
	a.MeshHandle().SendSingle(2, []byte("xy"))
	for _, msg := range ns.ReadyMessages(30) {
		net.Deliver(msg)
	}
	assert.Equal(t, uint64(1), b.Metrics().MessagesReceived)

	// a stopped sender cannot reach the wire
	a.Stop(40)
	a.MeshHandle().SendSingle(2, []byte("dead"))
	assert.Equal(t, 0, ns.PendingCount())
	assert.Equal(t, uint64(2), a.Metrics().MessagesSent)
}

func TestManagerCreateRejections(t *testing.T) {
	m := newTestManager(t)

	_, err := m.CreateNode(spec(0))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = m.CreateNode(spec(5))
	require.NoError(t, err)
	_, err = m.CreateNode(spec(5))
	assert.ErrorIs(t, err, types.ErrDuplicateId)
}

func TestManagerMaxNodes(t *testing.T) {
	m := newTestManager(t)
	for i := 1; i <= types.MaxNodes; i++ {
		_, err := m.CreateNode(spec(types.NodeId(i)))
		require.NoError(t, err)
	}
	_, err := m.CreateNode(spec(types.NodeId(types.MaxNodes + 1)))
	assert.ErrorIs(t, err, types.ErrResourceLimit)
	assert.Equal(t, types.MaxNodes, m.GetNodeCount())
}

func TestManagerRemoveNode(t *testing.T) {
	m := newTestManager(t)
	n, err := m.CreateNode(spec(7))
	require.NoError(t, err)
	require.NoError(t, n.Start(0))
	m.CurTime = 500

	require.NoError(t, m.RemoveNode(7))
	assert.False(t, m.HasNode(7))
	assert.Equal(t, uint64(500), n.Metrics().TotalUptimeMs, "stopped before removal")
	assert.ErrorIs(t, m.RemoveNode(7), types.ErrNotFound)
}

func TestManagerBulkOps(t *testing.T) {
	m := newTestManager(t)
	for i := 1; i <= 5; i++ {
		_, err := m.CreateNode(spec(types.NodeId(i)))
		require.NoError(t, err)
	}
	require.NoError(t, m.GetNode(3).Start(0)) // already running before StartAll

	m.StartAll(100)
	assert.Equal(t, 5, m.RunningCount())
	assert.Equal(t, uint64(0), m.GetNode(3).Metrics().StartTimeMs, "running node skipped")

	m.StopAll(200)
	assert.Equal(t, 0, m.RunningCount())
}

func TestEstablishConnectivitySpanningTree(t *testing.T) {
	prng.Init(42)
	ns := netsim.NewSimulator(1)
	net := mesh.NewNetwork(ns)
	m := NewManager(ns, net)

	const count = 20
	for i := 1; i <= count; i++ {
		_, err := m.CreateNode(spec(types.NodeId(i)))
		require.NoError(t, err)
	}
	m.EstablishConnectivity()

	assert.Len(t, net.Connections(), count-1, "a spanning tree has n-1 edges")
	// every node reaches every other one
	reachable := m.GetNode(1).MeshHandle().NodeList()
	assert.Len(t, reachable, count-1)
}

func TestManagerQueries(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.CreateNode(spec(30))
	_, _ = m.CreateNode(spec(10))
	_, _ = m.CreateNode(spec(20))

	assert.Equal(t, []types.NodeId{10, 20, 30}, m.GetNodeIds())
	all := m.GetAllNodes()
	require.Len(t, all, 3)
	assert.Equal(t, types.NodeId(30), all[0].Id, "insertion order")
	assert.Nil(t, m.GetNode(99))
}

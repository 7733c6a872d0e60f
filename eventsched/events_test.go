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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsim/meshsim/mesh"
	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/nodemgr"
	"github.com/meshsim/meshsim/types"
)

func newTestContext(t *testing.T, ids ...types.NodeId) *Context {
	ns := netsim.NewSimulator(1)
	require.NoError(t, ns.SetDefaultLatency(netsim.LatencyConfig{MinMs: 10, MaxMs: 10}))
	require.NoError(t, ns.SetDefaultLoss(netsim.PacketLossConfig{Probability: 0}))
	nm := nodemgr.NewManager(ns, mesh.NewNetwork(ns))
	for _, id := range ids {
		_, err := nm.CreateNode(&types.NodeSpec{
			Name:   fmt.Sprintf("node-%d", id),
			Id:     id,
			Config: map[string]string{},
		})
		require.NoError(t, err)
	}
	return &Context{Nm: nm, Ns: ns}
}

type recordEvent struct {
	BaseEvent
	tag string
	log *[]string
	err error
}

func (e *recordEvent) Execute(ctx *Context) error {
	*e.log = append(*e.log, e.tag)
	return e.err
}

type panicEvent struct {
	BaseEvent
}

func (e *panicEvent) Execute(ctx *Context) error {
	panic("boom")
}

func TestScheduleRejectsNil(t *testing.T) {
	s := NewScheduler()
	assert.ErrorIs(t, s.Schedule(nil, 5), types.ErrInvalidArgument)
}

func TestProcessDrainsInTimeThenFifoOrder(t *testing.T) {
	s := NewScheduler()
	ctx := newTestContext(t)

	var log []string
	require.NoError(t, s.Schedule(&recordEvent{tag: "b1", log: &log}, 20))
	require.NoError(t, s.Schedule(&recordEvent{tag: "a", log: &log}, 10))
	require.NoError(t, s.Schedule(&recordEvent{tag: "b2", log: &log}, 20))
	require.NoError(t, s.Schedule(&recordEvent{tag: "c", log: &log}, 30))

	assert.Equal(t, uint32(10), s.NextEventTime())

	// an event at exactly t=current executes on that tick, not the next
	assert.Equal(t, uint32(1), s.Process(10, ctx))
	assert.Equal(t, []string{"a"}, log)

	assert.Equal(t, uint32(2), s.Process(20, ctx))
	assert.Equal(t, []string{"a", "b1", "b2"}, log, "FIFO among equal times")

	assert.Equal(t, uint32(0), s.Process(25, ctx))
	assert.True(t, s.HasPending())
	assert.Equal(t, uint32(1), s.Process(100, ctx))
	assert.False(t, s.HasPending())
	assert.Equal(t, uint32(math.MaxUint32), s.NextEventTime())
}

func TestFailingEventDoesNotAbortDrain(t *testing.T) {
	s := NewScheduler()
	ctx := newTestContext(t)

	var log []string
	require.NoError(t, s.Schedule(&recordEvent{tag: "bad", log: &log, err: types.ErrNotFound}, 1))
	require.NoError(t, s.Schedule(&panicEvent{}, 1))
	require.NoError(t, s.Schedule(&recordEvent{tag: "good", log: &log}, 1))

	assert.Equal(t, uint32(3), s.Process(1, ctx))
	assert.Equal(t, []string{"bad", "good"}, log)
	assert.Equal(t, 0, s.PendingCount())
}

func TestClear(t *testing.T) {
	s := NewScheduler()
	var log []string
	_ = s.Schedule(&recordEvent{tag: "x", log: &log}, 1)
	_ = s.Schedule(&recordEvent{tag: "y", log: &log}, 2)
	s.Clear()
	assert.False(t, s.HasPending())
	assert.Equal(t, 0, s.PendingCount())
}

func TestNodeLifecycleEvents(t *testing.T) {
	s := NewScheduler()
	ctx := newTestContext(t, 50)
	ctx.NowMs = 0

	require.NoError(t, s.Schedule(&NodeStartEvent{Node: 50}, 0))
	require.NoError(t, s.Schedule(&NodeCrashEvent{Node: 50}, 10))
	require.NoError(t, s.Schedule(&NodeStartEvent{Node: 50}, 20))
	require.NoError(t, s.Schedule(&NodeCrashEvent{Node: 50}, 30))

	node := ctx.Nm.GetNode(50)
	for _, tick := range []uint32{0, 10, 20, 30} {
		ctx.NowMs = uint64(tick) * 1000
		s.Process(tick, ctx)
	}

	assert.False(t, node.IsRunning())
	assert.Equal(t, uint32(2), node.Metrics().CrashCount)
	assert.Equal(t, uint64(20_000), node.Metrics().TotalUptimeMs)
}

func TestNodeStartOnRunningIsNoop(t *testing.T) {
	ctx := newTestContext(t, 50)
	require.NoError(t, ctx.Nm.GetNode(50).Start(0))
	e := &NodeStartEvent{Node: 50}
	assert.NoError(t, e.Execute(ctx))
	assert.True(t, ctx.Nm.GetNode(50).IsRunning())
}

func TestNodeEventsUnknownTarget(t *testing.T) {
	ctx := newTestContext(t)
	assert.ErrorIs(t, (&NodeStartEvent{Node: 9}).Execute(ctx), types.ErrNotFound)
	assert.ErrorIs(t, (&NodeStopEvent{Node: 9}).Execute(ctx), types.ErrNotFound)
	assert.ErrorIs(t, (&NodeCrashEvent{Node: 9}).Execute(ctx), types.ErrNotFound)
	assert.ErrorIs(t, (&NodeRestartEvent{Node: 9}).Execute(ctx), types.ErrNotFound)
	assert.ErrorIs(t, (&RemoveNodeEvent{Node: 9}).Execute(ctx), types.ErrNotFound)
}

func TestLinkDropRestoreBothDirections(t *testing.T) {
	ctx := newTestContext(t, 1, 2)

	require.NoError(t, (&LinkDropEvent{A: 1, B: 2}).Execute(ctx))
	assert.False(t, ctx.Ns.IsLinkActive(1, 2))
	assert.False(t, ctx.Ns.IsLinkActive(2, 1))

	require.NoError(t, (&LinkRestoreEvent{A: 1, B: 2}).Execute(ctx))
	assert.True(t, ctx.Ns.IsLinkActive(1, 2))
	assert.True(t, ctx.Ns.IsLinkActive(2, 1))
}

func TestLinkDegrade(t *testing.T) {
	ctx := newTestContext(t, 1, 2)
	require.NoError(t, (&LinkDegradeEvent{A: 1, B: 2, LatencyMs: 100, LossProb: 0}).Execute(ctx))

	for i := 0; i < 100; i++ {
		ctx.Ns.Enqueue(1, 2, nil, 0)
		ctx.Ns.Enqueue(2, 1, nil, 0)
	}
	for _, msg := range ctx.Ns.ReadyMessages(1000) {
		assert.GreaterOrEqual(t, msg.DeliveryTimeMs, uint64(100))
		assert.LessOrEqual(t, msg.DeliveryTimeMs, uint64(200))
	}
}

// Partition/heal round trip: cross-group traffic drops while partitioned,
// flows again after heal, and partition ids go 1/2 then back to 0.
func TestPartitionHealRoundTrip(t *testing.T) {
	ctx := newTestContext(t, 1001, 1002, 1003, 1004, 1005, 1006)

	partition := &PartitionNetworkEvent{
		Groups: [][]types.NodeId{{1001, 1002, 1003}, {1004, 1005, 1006}},
	}
	require.NoError(t, partition.Execute(ctx))

	assert.Equal(t, uint32(1), ctx.Nm.GetNode(1001).PartitionId())
	assert.Equal(t, uint32(2), ctx.Nm.GetNode(1004).PartitionId())
	assert.False(t, ctx.Ns.IsLinkActive(1001, 1004))
	assert.False(t, ctx.Ns.IsLinkActive(1004, 1001))
	assert.True(t, ctx.Ns.IsLinkActive(1001, 1002), "intra-group links stay up")

	ctx.Ns.Enqueue(1001, 1004, []byte("x"), 31_000)
	assert.Equal(t, uint64(1), ctx.Ns.Stats(1001, 1004).DroppedCount)

	require.NoError(t, (&HealNetworkEvent{}).Execute(ctx))
	for _, id := range ctx.Nm.GetNodeIds() {
		assert.Equal(t, uint32(0), ctx.Nm.GetNode(id).PartitionId())
	}
	assert.Empty(t, ctx.Ns.DroppedLinks(), "active-link set equals pre-partition state")

	ctx.Ns.Enqueue(1001, 1004, []byte("y"), 61_000)
	assert.Equal(t, 1, ctx.Ns.PendingCount())
}

func TestPartitionValidation(t *testing.T) {
	ctx := newTestContext(t, 1, 2)
	err := (&PartitionNetworkEvent{Groups: [][]types.NodeId{{1, 2}}}).Execute(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	err = (&PartitionNetworkEvent{Groups: [][]types.NodeId{{1}, {}}}).Execute(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestInjectMessage(t *testing.T) {
	ctx := newTestContext(t, 1, 2)
	ctx.NowMs = 500
	require.NoError(t, (&InjectMessageEvent{From: 1, To: 2, Payload: []byte("probe")}).Execute(ctx))
	ready := ctx.Ns.ReadyMessages(510)
	require.Len(t, ready, 1)
	assert.Equal(t, []byte("probe"), ready[0].Payload)
	assert.Equal(t, uint64(510), ready[0].DeliveryTimeMs)
}

func TestSetNetworkQuality(t *testing.T) {
	ctx := newTestContext(t, 1, 2)
	require.NoError(t, (&SetNetworkQualityEvent{Target: 1, Quality: 0.5}).Execute(ctx))
	assert.Equal(t, 0.5, ctx.Nm.GetNode(1).NetworkQuality())
	assert.Equal(t, 1.0, ctx.Nm.GetNode(2).NetworkQuality())

	require.NoError(t, (&SetNetworkQualityEvent{All: true, Quality: 0.25}).Execute(ctx))
	assert.Equal(t, 0.25, ctx.Nm.GetNode(2).NetworkQuality())

	err := (&SetNetworkQualityEvent{Target: 1, Quality: 1.5}).Execute(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestAddAndRemoveNodes(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Started = true
	ctx.NowMs = 1000

	add := &AddNodesEvent{
		Template: types.NodeSpec{Type: "sensor", Config: map[string]string{}},
		Count:    3,
		IdPrefix: "late-",
	}
	require.NoError(t, add.Execute(ctx))
	assert.Equal(t, 3, ctx.Nm.GetNodeCount())

	for i := 0; i < 3; i++ {
		id := types.NodeIdFromName(fmt.Sprintf("late-%d", i))
		node := ctx.Nm.GetNode(id)
		require.NotNil(t, node)
		assert.True(t, node.IsRunning(), "added while running starts immediately")
	}

	victim := types.NodeIdFromName("late-0")
	require.NoError(t, (&RemoveNodeEvent{Node: victim}).Execute(ctx))
	assert.False(t, ctx.Nm.HasNode(victim))
}

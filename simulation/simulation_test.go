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

package simulation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsim/meshsim/progctx"
	"github.com/meshsim/meshsim/scenario"
	"github.com/meshsim/meshsim/types"
)

func newSimFromYaml(t *testing.T, doc string, cfg *Config) *Simulation {
	scn, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)
	require.Empty(t, scn.Validate())

	sim, err := NewSimulation(progctx.New(context.Background()), scn, cfg)
	require.NoError(t, err)
	return sim
}

// stepSeconds advances the simulation in 100ms ticks up to and including
// lastS seconds.
func stepSeconds(sim *Simulation, lastS uint64) {
	for now := uint64(0); now <= lastS*1000; now += 100 {
		sim.StepTo(now)
	}
}

const crashScenario = `
simulation:
  name: crash-accounting
  duration: 40
  seed: 42
nodes:
  - id: victim
    config: { mesh_prefix: p, mesh_password: w }
events:
  - { time: 0, action: start_node, target: victim }
  - { time: 10, action: crash_node, target: victim }
  - { time: 20, action: start_node, target: victim }
  - { time: 30, action: crash_node, target: victim }
`

func TestCrashAccountingScenario(t *testing.T) {
	sim := newSimFromYaml(t, crashScenario, nil)
	require.NoError(t, sim.Start())
	stepSeconds(sim, 35)

	node := sim.NodeManager().GetNode(types.NodeIdFromName("victim"))
	require.NotNil(t, node)
	assert.Equal(t, uint32(2), node.Metrics().CrashCount)
	assert.GreaterOrEqual(t, node.Metrics().TotalUptimeMs, uint64(20_000))
	assert.False(t, node.IsRunning())
}

const partitionScenario = `
simulation:
  name: partition-heal
  duration: 90
  seed: 42
network:
  latency:
    default: { min: 5, max: 5, distribution: uniform }
  packet_loss:
    default: { probability: 0 }
nodes:
  - { id: g1a, config: { mesh_prefix: p, mesh_password: w } }
  - { id: g1b, config: { mesh_prefix: p, mesh_password: w } }
  - { id: g1c, config: { mesh_prefix: p, mesh_password: w } }
  - { id: g2a, config: { mesh_prefix: p, mesh_password: w } }
  - { id: g2b, config: { mesh_prefix: p, mesh_password: w } }
  - { id: g2c, config: { mesh_prefix: p, mesh_password: w } }
events:
  - { time: 30, action: partition_network, groups: [[g1a, g1b, g1c], [g2a, g2b, g2c]] }
  - { time: 60, action: heal_partition }
`

func TestPartitionHealScenario(t *testing.T) {
	sim := newSimFromYaml(t, partitionScenario, nil)
	require.NoError(t, sim.Start())

	src := types.NodeIdFromName("g1a")
	dst := types.NodeIdFromName("g2a")
	nm, ns := sim.NodeManager(), sim.NetSim()

	stepSeconds(sim, 31)
	assert.Equal(t, uint32(1), nm.GetNode(src).PartitionId())
	assert.Equal(t, uint32(2), nm.GetNode(dst).PartitionId())

	dropsBefore := ns.Stats(src, dst).DroppedCount
	ns.Enqueue(src, dst, []byte("blocked"), 31_000)
	assert.Equal(t, dropsBefore+1, ns.Stats(src, dst).DroppedCount)

	for now := uint64(31_100); now <= 61_000; now += 100 {
		sim.StepTo(now)
	}
	assert.Equal(t, uint32(0), nm.GetNode(src).PartitionId())
	assert.Equal(t, uint32(0), nm.GetNode(dst).PartitionId())
	assert.Empty(t, ns.DroppedLinks())

	ns.Enqueue(src, dst, []byte("open"), 61_000)
	ready := ns.ReadyMessages(61_005)
	require.Len(t, ready, 1)
	assert.Equal(t, []byte("open"), ready[0].Payload)
}

const echoScenario = `
simulation:
  name: echo-pair
  duration: 20
  seed: 1234
network:
  latency:
    default: { min: 10, max: 30, distribution: uniform }
  packet_loss:
    default: { probability: 0.1 }
nodes:
  - id: server
    firmware: echo_server
    config: { mesh_prefix: p, mesh_password: w }
  - id: client
    firmware: echo_client
    config: { mesh_prefix: p, mesh_password: w, target: server, interval_ms: "500" }
topology:
  type: mesh
`

// Determinism: two runs of the same seeded scenario produce identical
// final snapshots.
func TestSeedDeterminismEndToEnd(t *testing.T) {
	run := func() Snapshot {
		sim := newSimFromYaml(t, echoScenario, nil)
		require.NoError(t, sim.Start())
		stepSeconds(sim, 20)
		sim.collector.Snapshot(sim.CurTimeMs())
		snaps := sim.collector.Snapshots()
		return snaps[len(snaps)-1]
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)

	// and traffic did flow
	var received uint64
	for _, node := range first.Nodes {
		received += node.Metrics.MessagesReceived
	}
	assert.Greater(t, received, uint64(0))
}

func TestTickOrderEventBeforeDelivery(t *testing.T) {
	// a message injected at t=1s with 5ms latency crosses a link that the
	// same-tick partition already dropped: the event executes first
	doc := `
simulation:
  name: ordering
  duration: 10
  seed: 1
network:
  latency:
    default: { min: 5, max: 5, distribution: uniform }
  packet_loss:
    default: { probability: 0 }
nodes:
  - { id: a, config: { mesh_prefix: p, mesh_password: w } }
  - { id: b, config: { mesh_prefix: p, mesh_password: w } }
events:
  - { time: 1, action: partition_network, groups: [[a], [b]] }
  - { time: 1, action: inject_message, from: a, to: b, message: late }
`
	sim := newSimFromYaml(t, doc, nil)
	require.NoError(t, sim.Start())
	stepSeconds(sim, 2)

	a, b := types.NodeIdFromName("a"), types.NodeIdFromName("b")
	st := sim.NetSim().Stats(a, b)
	assert.Equal(t, uint64(1), st.DroppedCount, "partition scheduled first wins")
	assert.Equal(t, uint64(0), st.DeliveredCount)
}

func TestAddNodesEventStartsNewNodes(t *testing.T) {
	doc := `
simulation:
  name: add-nodes
  duration: 10
  seed: 5
nodes:
  - { id: seed-node, config: { mesh_prefix: p, mesh_password: w } }
events:
  - { time: 2, action: add_nodes, count: 3, id_prefix: "late-",
      config: { mesh_prefix: p, mesh_password: w } }
`
	sim := newSimFromYaml(t, doc, nil)
	require.NoError(t, sim.Start())
	stepSeconds(sim, 3)

	assert.Equal(t, 4, sim.NodeManager().GetNodeCount())
	for _, name := range []string{"late-0", "late-1", "late-2"} {
		node := sim.NodeManager().GetNode(types.NodeIdFromName(name))
		require.NotNil(t, node, name)
		assert.True(t, node.IsRunning(), name)
	}
}

func TestMetricsExportFiles(t *testing.T) {
	dir := t.TempDir()
	doc := `
simulation:
  name: export
  duration: 5
  seed: 3
nodes:
  - id: server
    firmware: echo_server
    config: { mesh_prefix: p, mesh_password: w }
  - id: client
    firmware: echo_client
    config: { mesh_prefix: p, mesh_password: w, target: server, interval_ms: "500" }
metrics:
  interval: 1
  export: [csv, json, graphviz]
`
	sim := newSimFromYaml(t, doc, &Config{OutputDir: dir})
	require.NoError(t, sim.Start())
	stepSeconds(sim, 5)
	require.NoError(t, sim.Shutdown())

	for _, name := range []string{"metrics.csv", "metrics.json", "network.dot"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
	assert.NotEmpty(t, sim.collector.Summary())
}

func TestConfigOverrides(t *testing.T) {
	sim := newSimFromYaml(t, crashScenario, &Config{DurationS: 99, TimeScale: 4})
	assert.Equal(t, uint32(99), sim.durationS)
	assert.Equal(t, 4.0, sim.TimeScale())
	assert.ErrorIs(t, sim.SetTimeScale(0), types.ErrInvalidArgument)
	assert.NoError(t, sim.SetTimeScale(2.5))
}

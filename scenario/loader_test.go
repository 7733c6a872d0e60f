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

package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsim/meshsim/types"
)

const basicScenario = `
simulation:
  name: basic
  duration: 60
  time_scale: 2.0
  seed: 42

network:
  latency:
    default: { min: 20, max: 80, distribution: uniform }
    specific_connections:
      - { from: alpha, to: beta, min: 5, max: 5, distribution: uniform }
  packet_loss:
    default: { probability: 0.1, burst_mode: true, burst_length: 4 }

nodes:
  - id: alpha
    type: sensor
    firmware: echo_server
    position: [1.5, 2.5]
    config:
      mesh_prefix: simnet
      mesh_password: secret
      mesh_port: 6666
  - id: beta
    type: sensor
    firmware: echo_client
    config:
      mesh_prefix: simnet
      mesh_password: secret
      target: alpha

topology:
  type: custom
  connections:
    - [alpha, beta]

events:
  - time: 10
    action: crash_node
    target: beta
  - time: 20
    action: start_node
    target: beta

metrics:
  output: out
  interval: 5
  export: [csv, json]
`

func TestParseBasicScenario(t *testing.T) {
	s, err := Parse([]byte(basicScenario))
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Doc.Simulation.Name)
	assert.Equal(t, uint32(60), s.Doc.Simulation.DurationS)
	assert.Equal(t, 2.0, s.TimeScale())
	assert.Equal(t, int64(42), s.Seed())

	require.Len(t, s.Specs, 2)
	alpha := s.SpecByName("alpha")
	require.NotNil(t, alpha)
	assert.NotEqual(t, types.InvalidNodeId, alpha.Id)
	assert.Equal(t, "echo_server", alpha.Firmware)
	assert.Equal(t, 1.5, alpha.X)
	assert.Equal(t, "6666", alpha.ConfigValue(types.ConfigKeyMeshPort, ""))

	beta := s.SpecByName("beta")
	require.NotNil(t, beta)
	assert.Equal(t, "5555", beta.ConfigValue(types.ConfigKeyMeshPort, ""), "default port applied")
	assert.Equal(t, "alpha", beta.ConfigValue("target", ""))

	assert.Empty(t, s.Validate())
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse([]byte(`
simulation:
  name: defaults
nodes:
  - id: solo
    config: { mesh_prefix: p, mesh_password: w }
`))
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.TimeScale())
	assert.Equal(t, uint32(0), s.Doc.Simulation.DurationS, "0 = infinite")
	lat := s.Doc.Network.Latency.Default
	assert.Equal(t, uint32(10), lat.Min)
	assert.Equal(t, uint32(50), lat.Max)
	assert.Equal(t, "normal", lat.Distribution)
	assert.Equal(t, uint32(3), s.Doc.Network.PacketLoss.Default.BurstLength)
	assert.Equal(t, "results", s.Doc.Metrics.Output)
}

func TestScalarPacketLossShorthand(t *testing.T) {
	s, err := Parse([]byte(`
simulation:
  name: legacy
network:
  packet_loss: 0.25
nodes:
  - id: solo
    config: { mesh_prefix: p, mesh_password: w }
`))
	require.NoError(t, err)

	loss := s.Doc.Network.PacketLoss.Default
	assert.Equal(t, 0.25, loss.Probability)
	assert.False(t, loss.BurstMode)
	assert.Equal(t, uint32(3), loss.BurstLength)
}

// Template expansion: prefix "sensor-" with count 5 expands to
// sensor-0..sensor-4, all ids non-zero and pairwise distinct.
func TestTemplateExpansion(t *testing.T) {
	s, err := Parse([]byte(`
simulation:
  name: templated
nodes:
  - template: sensor
    count: 5
    id_prefix: sensor-
    firmware: simple_broadcast
    config: { mesh_prefix: p, mesh_password: w }
`))
	require.NoError(t, err)

	require.Len(t, s.Specs, 5)
	seen := map[types.NodeId]struct{}{}
	for i, spec := range s.Specs {
		assert.Equal(t, []string{"sensor-0", "sensor-1", "sensor-2", "sensor-3", "sensor-4"}[i], spec.Name)
		assert.NotEqual(t, types.InvalidNodeId, spec.Id)
		_, dup := seen[spec.Id]
		assert.False(t, dup, "duplicate id for %s", spec.Name)
		seen[spec.Id] = struct{}{}
		assert.Equal(t, "simple_broadcast", spec.Firmware)
	}
	assert.Empty(t, s.Validate())
}

func TestUnknownTopLevelFieldIsIgnored(t *testing.T) {
	s, err := Parse([]byte(`
simulation:
  name: tolerant
bogus_section:
  whatever: 1
nodes:
  - id: solo
    config: { mesh_prefix: p, mesh_password: w }
`))
	require.NoError(t, err)
	assert.Len(t, s.Specs, 1)
}

func TestResolveNodeId(t *testing.T) {
	s, err := Parse([]byte(basicScenario))
	require.NoError(t, err)

	alphaId, err := s.ResolveNodeId("alpha")
	require.NoError(t, err)
	assert.Equal(t, s.SpecByName("alpha").Id, alphaId)

	numeric, err := s.ResolveNodeId("12345")
	require.NoError(t, err)
	assert.Equal(t, types.NodeId(12345), numeric)

	_, err = s.ResolveNodeId("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBuildEvents(t *testing.T) {
	s, err := Parse([]byte(basicScenario))
	require.NoError(t, err)

	events, err := s.BuildEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint32(10), events[0].TimeS)
	assert.Equal(t, uint32(20), events[1].TimeS)
}

func TestBuildEventsFullCatalogue(t *testing.T) {
	s, err := Parse([]byte(`
simulation:
  name: catalogue
  duration: 100
nodes:
  - id: a
    config: { mesh_prefix: p, mesh_password: w }
  - id: b
    config: { mesh_prefix: p, mesh_password: w }
events:
  - { time: 1, action: stop_node, target: a, graceful: false }
  - { time: 2, action: restart_node, targets: [a, b] }
  - { time: 3, action: break_link, from: a, to: b }
  - { time: 4, action: restore_link, from: a, to: b }
  - { time: 5, action: connection_degrade, from: a, to: b, latency: 100, packet_loss: 0.2 }
  - { time: 6, action: partition_network, groups: [[a], [b]] }
  - { time: 7, action: heal_partition }
  - { time: 8, action: inject_message, from: a, to: b, message: hello }
  - { time: 9, action: set_network_quality, target: all, quality: 0.8 }
  - { time: 10, action: add_nodes, count: 2, id_prefix: extra-, firmware: echo_server,
      config: { mesh_prefix: p, mesh_password: w } }
  - { time: 11, action: remove_node, target: b }
`))
	require.NoError(t, err)
	assert.Empty(t, s.Validate())

	events, err := s.BuildEvents()
	require.NoError(t, err)
	// restart_node fans out to 2 events, everything else is 1
	assert.Len(t, events, 12)
}

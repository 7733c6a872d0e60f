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
	"fmt"

	"github.com/meshsim/meshsim/types"
)

// ValidationError is one human-readable validator finding.
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

func (e ValidationError) String() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Suggestion)
}

// Validate checks the parsed, template-expanded scenario and returns every
// finding. An empty result means the scenario is runnable.
func (s *Scenario) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, s.validateSimulation()...)
	errs = append(errs, s.validateNetwork()...)
	errs = append(errs, s.validateNodes()...)
	errs = append(errs, s.validateTopology()...)
	errs = append(errs, s.validateEvents()...)
	return errs
}

func (s *Scenario) validateSimulation() []ValidationError {
	var errs []ValidationError
	sim := s.Doc.Simulation
	if sim.Name == "" {
		errs = append(errs, ValidationError{
			Field:      "simulation.name",
			Message:    "simulation name must not be empty",
			Suggestion: "give the scenario a descriptive name",
		})
	}
	if *sim.TimeScale <= 0 {
		errs = append(errs, ValidationError{
			Field:      "simulation.time_scale",
			Message:    fmt.Sprintf("time scale %v must be > 0", *sim.TimeScale),
			Suggestion: "use 1.0 for real time, 10.0 for 10x speed",
		})
	}
	return errs
}

func validateLatencyEntry(field string, e LatencyEntry) []ValidationError {
	var errs []ValidationError
	if e.Min > e.Max {
		errs = append(errs, ValidationError{
			Field:      field,
			Message:    fmt.Sprintf("latency min %d > max %d", e.Min, e.Max),
			Suggestion: "swap min and max",
		})
	}
	if _, err := types.ParseDistribution(e.Distribution); err != nil {
		errs = append(errs, ValidationError{
			Field:      field + ".distribution",
			Message:    err.Error(),
			Suggestion: "use uniform, normal or exponential",
		})
	}
	return errs
}

func validateLossEntry(field string, e LossEntry) []ValidationError {
	var errs []ValidationError
	if e.Probability < 0 || e.Probability > 1 {
		errs = append(errs, ValidationError{
			Field:      field,
			Message:    fmt.Sprintf("loss probability %v outside [0,1]", e.Probability),
			Suggestion: "use a fraction, e.g. 0.05 for 5%",
		})
	}
	if e.BurstMode && e.BurstLength < 1 {
		errs = append(errs, ValidationError{
			Field:      field + ".burst_length",
			Message:    "burst_length must be >= 1 when burst_mode is set",
			Suggestion: "use burst_length: 3",
		})
	}
	return errs
}

func (s *Scenario) validateNetwork() []ValidationError {
	var errs []ValidationError
	net := s.Doc.Network
	errs = append(errs, validateLatencyEntry("network.latency.default", net.Latency.Default)...)
	for i, e := range net.Latency.SpecificConnections {
		errs = append(errs,
			validateLatencyEntry(fmt.Sprintf("network.latency.specific_connections[%d]", i), e)...)
	}
	errs = append(errs, validateLossEntry("network.packet_loss.default", net.PacketLoss.Default)...)
	for i, e := range net.PacketLoss.SpecificConnections {
		errs = append(errs,
			validateLossEntry(fmt.Sprintf("network.packet_loss.specific_connections[%d]", i), e)...)
	}
	return errs
}

func (s *Scenario) validateNodes() []ValidationError {
	var errs []ValidationError

	for i := range s.Doc.Nodes {
		entry := &s.Doc.Nodes[i]
		if entry.IsTemplate() {
			if entry.Count < 1 {
				errs = append(errs, ValidationError{
					Field:      fmt.Sprintf("nodes[%d].count", i),
					Message:    fmt.Sprintf("template %q count must be >= 1", entry.Template),
					Suggestion: "set count to the number of nodes to generate",
				})
			}
		} else if entry.Id == "" {
			errs = append(errs, ValidationError{
				Field:      fmt.Sprintf("nodes[%d].id", i),
				Message:    "node id must not be empty",
				Suggestion: "give every node a unique string id",
			})
		}
	}

	if len(s.Specs) == 0 {
		errs = append(errs, ValidationError{
			Field:      "nodes",
			Message:    "at least one node is required",
			Suggestion: "add a nodes list or a template with count >= 1",
		})
	}

	seenIds := map[types.NodeId]string{}
	for _, spec := range s.Specs {
		if other, dup := seenIds[spec.Id]; dup {
			errs = append(errs, ValidationError{
				Field:      "nodes",
				Message:    fmt.Sprintf("nodes %q and %q map to the same id %d", other, spec.Name, spec.Id),
				Suggestion: "rename one of the nodes",
			})
		}
		seenIds[spec.Id] = spec.Name

		if spec.ConfigValue(types.ConfigKeyMeshPrefix, "") == "" {
			errs = append(errs, ValidationError{
				Field:      "node.config.mesh_prefix",
				Message:    fmt.Sprintf("node %q has no mesh_prefix", spec.Name),
				Suggestion: "set config.mesh_prefix",
			})
		}
		if spec.ConfigValue(types.ConfigKeyMeshPassword, "") == "" {
			errs = append(errs, ValidationError{
				Field:      "node.config.mesh_password",
				Message:    fmt.Sprintf("node %q has no mesh_password", spec.Name),
				Suggestion: "set config.mesh_password",
			})
		}
		var port int
		if _, err := fmt.Sscanf(spec.ConfigValue(types.ConfigKeyMeshPort, "0"), "%d", &port); err != nil || port <= 0 {
			errs = append(errs, ValidationError{
				Field:      "node.config.mesh_port",
				Message:    fmt.Sprintf("node %q has an invalid mesh_port", spec.Name),
				Suggestion: "use a port > 0, default is 5555",
			})
		}
	}
	return errs
}

func (s *Scenario) validateTopology() []ValidationError {
	var errs []ValidationError
	topo := s.Doc.Topology

	switch topo.Type {
	case "", "mesh", "ring":
		// nothing topology-specific to check
	case "star":
		if topo.Hub == "" || s.SpecByName(topo.Hub) == nil {
			errs = append(errs, ValidationError{
				Field:      "topology.hub",
				Message:    fmt.Sprintf("star topology requires an existing hub node, got %q", topo.Hub),
				Suggestion: "set topology.hub to one of the declared node ids",
			})
		}
	case "random":
		if topo.Density < 0 || topo.Density > 1 {
			errs = append(errs, ValidationError{
				Field:      "topology.density",
				Message:    fmt.Sprintf("density %v outside [0,1]", topo.Density),
				Suggestion: "use e.g. 0.3 to connect 30% of node pairs",
			})
		}
	case "custom":
		if len(topo.Connections) == 0 {
			errs = append(errs, ValidationError{
				Field:      "topology.connections",
				Message:    "custom topology requires at least one connection",
				Suggestion: "list connections as [node_a, node_b] pairs",
			})
		}
		for i, pair := range topo.Connections {
			if len(pair) != 2 {
				errs = append(errs, ValidationError{
					Field:      fmt.Sprintf("topology.connections[%d]", i),
					Message:    "connection must be a [from, to] pair",
					Suggestion: "use two node ids per connection",
				})
				continue
			}
			for _, name := range pair {
				if s.SpecByName(name) == nil {
					errs = append(errs, ValidationError{
						Field:      fmt.Sprintf("topology.connections[%d]", i),
						Message:    fmt.Sprintf("connection references unknown node %q", name),
						Suggestion: "declare the node or fix the reference",
					})
				}
			}
		}
	default:
		errs = append(errs, ValidationError{
			Field:      "topology.type",
			Message:    fmt.Sprintf("unknown topology type %q", topo.Type),
			Suggestion: "use random, star, ring, mesh or custom",
		})
	}
	return errs
}

func (s *Scenario) validateEvents() []ValidationError {
	var errs []ValidationError
	duration := s.Doc.Simulation.DurationS

	for i := range s.Doc.Events {
		entry := &s.Doc.Events[i]
		field := fmt.Sprintf("events[%d]", i)

		if duration > 0 && entry.Time > duration {
			errs = append(errs, ValidationError{
				Field:      field + ".time",
				Message:    fmt.Sprintf("event time %ds is after simulation end %ds", entry.Time, duration),
				Suggestion: "move the event before the simulation duration",
			})
		}

		if !isKnownAction(entry.Action) {
			errs = append(errs, ValidationError{
				Field:      field + ".action",
				Message:    fmt.Sprintf("unknown event action %q", entry.Action),
				Suggestion: "see the scenario format reference for the action list",
			})
			continue
		}

		for _, target := range entry.eventTargets() {
			if _, err := s.ResolveNodeId(target); err != nil {
				errs = append(errs, ValidationError{
					Field:      field + ".target",
					Message:    fmt.Sprintf("event references unknown node %q", target),
					Suggestion: "declare the node or fix the reference",
				})
			}
		}

		if entry.Action == "set_network_quality" && (entry.Quality < 0 || entry.Quality > 1) {
			errs = append(errs, ValidationError{
				Field:      field + ".quality",
				Message:    fmt.Sprintf("quality %v outside [0,1]", entry.Quality),
				Suggestion: "use a fraction between 0 and 1",
			})
		}
	}
	return errs
}

// eventTargets lists the node references an event entry names, except the
// "all" wildcard and add_nodes (whose nodes do not exist yet).
func (e *EventEntry) eventTargets() []string {
	if e.Action == "add_nodes" {
		return nil
	}
	var targets []string
	appendTarget := func(t string) {
		if t != "" && t != "all" {
			targets = append(targets, t)
		}
	}
	appendTarget(e.Target)
	for _, t := range e.Targets {
		appendTarget(t)
	}
	for _, group := range e.Groups {
		for _, t := range group {
			appendTarget(t)
		}
	}
	appendTarget(e.From)
	appendTarget(e.To)
	return targets
}

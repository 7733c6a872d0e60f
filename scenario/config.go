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

// Package scenario holds the structured scenario document: simulation
// parameters, link defaults and overrides, node list and templates,
// topology, the fault-injection timeline and metric-output settings. The
// loader parses YAML, expands templates and projects event entries onto the
// typed event catalogue; the validator reports human-readable findings.
package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/meshsim/meshsim/logger"
)

// Document is the top-level scenario file.
type Document struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Network    NetworkConfig    `yaml:"network"`
	Nodes      []NodeEntry      `yaml:"nodes"`
	Topology   TopologyConfig   `yaml:"topology"`
	Events     []EventEntry     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type SimulationConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	DurationS   uint32   `yaml:"duration"` // 0 = infinite
	TimeScale   *float64 `yaml:"time_scale"`
	Seed        uint32   `yaml:"seed"` // 0 = nondeterministic
}

type LatencyEntry struct {
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	Min          uint32 `yaml:"min"`
	Max          uint32 `yaml:"max"`
	Distribution string `yaml:"distribution"`
}

type LossEntry struct {
	From        string  `yaml:"from"`
	To          string  `yaml:"to"`
	Probability float64 `yaml:"probability"`
	BurstMode   bool    `yaml:"burst_mode"`
	BurstLength uint32  `yaml:"burst_length"`
}

type LatencySection struct {
	Default             LatencyEntry   `yaml:"default"`
	SpecificConnections []LatencyEntry `yaml:"specific_connections"`
}

// LossSection accepts both the canonical structured subtree and, as a legacy
// shorthand, a bare scalar probability. The scalar expands to
// {probability: v, burst_mode: false, burst_length: 3} with a warning. Both
// forms sit under the same packet_loss key, so a document carries only one.
type LossSection struct {
	Default             LossEntry   `yaml:"default"`
	SpecificConnections []LossEntry `yaml:"specific_connections"`

	fromScalar bool
}

func (s *LossSection) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var probability float64
		if err := value.Decode(&probability); err != nil {
			return err
		}
		logger.Warnf("scalar packet_loss is deprecated, use the structured form " +
			"{default: {probability: ...}}")
		s.Default = LossEntry{Probability: probability, BurstMode: false, BurstLength: 3}
		s.fromScalar = true
		return nil
	}

	type plain LossSection
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	s.Default = p.Default
	s.SpecificConnections = p.SpecificConnections
	return nil
}

type NetworkConfig struct {
	Latency    LatencySection `yaml:"latency"`
	PacketLoss LossSection    `yaml:"packet_loss"`
	Bandwidth  uint64         `yaml:"bandwidth"` // reserved
}

// NodeEntry declares either one concrete node (Id set) or a template
// (Template set) that expands into Count nodes named IdPrefix+i.
type NodeEntry struct {
	Id       string                 `yaml:"id"`
	Type     string                 `yaml:"type"`
	Firmware string                 `yaml:"firmware"`
	Position []float64              `yaml:"position"`
	Config   map[string]interface{} `yaml:"config"`

	Template string `yaml:"template"`
	Count    uint32 `yaml:"count"`
	IdPrefix string `yaml:"id_prefix"`
}

func (e *NodeEntry) IsTemplate() bool {
	return e.Template != ""
}

type TopologyConfig struct {
	Type          string     `yaml:"type"`
	Hub           string     `yaml:"hub"`
	Density       float64    `yaml:"density"`
	Bidirectional bool       `yaml:"bidirectional"`
	Connections   [][]string `yaml:"connections"`
}

type EventEntry struct {
	Time    uint32     `yaml:"time"`
	Action  string     `yaml:"action"`
	Target  string     `yaml:"target"`
	Targets []string   `yaml:"targets"`
	Groups  [][]string `yaml:"groups"`
	From    string     `yaml:"from"`
	To      string     `yaml:"to"`
	Message string     `yaml:"message"`

	Latency    uint32  `yaml:"latency"`     // connection_degrade
	PacketLoss float64 `yaml:"packet_loss"` // connection_degrade
	Quality    float64 `yaml:"quality"`     // set_network_quality
	Graceful   *bool   `yaml:"graceful"`    // stop_node

	// add_nodes
	Count    uint32                 `yaml:"count"`
	IdPrefix string                 `yaml:"id_prefix"`
	Firmware string                 `yaml:"firmware"`
	Config   map[string]interface{} `yaml:"config"`
}

type MetricsConfig struct {
	Output    string   `yaml:"output"`
	IntervalS uint32   `yaml:"interval"`
	Collect   []string `yaml:"collect"`
	Export    []string `yaml:"export"`
}

// configToStrings flattens a YAML config mapping to the string map firmwares
// consume.
func configToStrings(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case bool:
			out[k] = fmt.Sprintf("%t", tv)
		case float64:
			// yaml numbers without a dot arrive as int; a float here really
			// carries a fraction
			out[k] = fmt.Sprintf("%g", tv)
		default:
			out[k] = fmt.Sprint(tv)
		}
	}
	return out
}

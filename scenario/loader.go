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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/types"
)

// Scenario is a parsed document plus its expanded node specs.
type Scenario struct {
	Doc   Document
	Specs []*types.NodeSpec

	specByName map[string]*types.NodeSpec
}

var knownTopLevelKeys = map[string]struct{}{
	"simulation": {}, "network": {}, "nodes": {}, "templates": {},
	"topology": {}, "events": {}, "metrics": {},
}

// Load reads and parses a scenario file and expands its templates. Parse
// errors are fatal; semantic findings are left to Validate.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	return Parse(data)
}

// Parse parses a scenario document from YAML bytes.
func Parse(data []byte) (*Scenario, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "parsing scenario YAML")
	}
	warnUnknownKeys(&root)

	s := &Scenario{}
	if err := root.Decode(&s.Doc); err != nil {
		return nil, errors.Wrap(err, "decoding scenario")
	}

	// legacy documents may carry templates under their own key
	var aux struct {
		Templates []NodeEntry `yaml:"templates"`
	}
	if err := root.Decode(&aux); err == nil && len(aux.Templates) > 0 {
		s.Doc.Nodes = append(s.Doc.Nodes, aux.Templates...)
	}

	s.applyDefaults()
	s.expandNodes()
	return s, nil
}

// warnUnknownKeys reports unknown top-level fields. Unknown fields are part
// of the format's stability contract: ignored with a warning, never fatal.
func warnUnknownKeys(root *yaml.Node) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		if _, known := knownTopLevelKeys[key]; !known {
			logger.Warnf("scenario: unknown field %q ignored", key)
		}
	}
}

func (s *Scenario) applyDefaults() {
	doc := &s.Doc
	if doc.Simulation.TimeScale == nil {
		one := 1.0
		doc.Simulation.TimeScale = &one
	}

	lat := &doc.Network.Latency.Default
	if lat.Min == 0 && lat.Max == 0 && lat.Distribution == "" {
		lat.Min, lat.Max, lat.Distribution = 10, 50, "normal"
	}
	// an explicit burst_length: 0 with burst_mode on stays 0 so the
	// validator can flag it
	loss := &doc.Network.PacketLoss.Default
	if loss.BurstLength == 0 && !loss.BurstMode {
		loss.BurstLength = 3
	}
	for i := range doc.Network.PacketLoss.SpecificConnections {
		sc := &doc.Network.PacketLoss.SpecificConnections[i]
		if sc.BurstLength == 0 && !sc.BurstMode {
			sc.BurstLength = 3
		}
	}

	if doc.Metrics.Output == "" {
		doc.Metrics.Output = "results"
	}
	if doc.Metrics.IntervalS == 0 {
		doc.Metrics.IntervalS = 10
	}
}

// expandNodes turns the node list into concrete specs: one per concrete
// entry, Count per template. Expansion happens after parsing and before
// validation.
func (s *Scenario) expandNodes() {
	s.Specs = nil
	s.specByName = map[string]*types.NodeSpec{}

	addSpec := func(name string, entry *NodeEntry) {
		spec := &types.NodeSpec{
			Name:     name,
			Id:       types.NodeIdFromName(name),
			Type:     entry.Type,
			Firmware: entry.Firmware,
			Config:   configToStrings(entry.Config),
		}
		if len(entry.Position) >= 2 {
			spec.X, spec.Y = entry.Position[0], entry.Position[1]
		}
		if _, ok := spec.Config[types.ConfigKeyMeshPort]; !ok {
			spec.Config[types.ConfigKeyMeshPort] = fmt.Sprint(types.DefaultMeshPort)
		}
		s.Specs = append(s.Specs, spec)
		if _, dup := s.specByName[name]; !dup {
			s.specByName[name] = spec
		}
	}

	for i := range s.Doc.Nodes {
		entry := &s.Doc.Nodes[i]
		if entry.IsTemplate() {
			for j := uint32(0); j < entry.Count; j++ {
				addSpec(fmt.Sprintf("%s%d", entry.IdPrefix, j), entry)
			}
		} else {
			addSpec(entry.Id, entry)
		}
	}
}

// SpecByName resolves an expanded node spec by scenario name.
func (s *Scenario) SpecByName(name string) *types.NodeSpec {
	return s.specByName[name]
}

// ResolveNodeId maps an event target string to a node id: by expanded node
// name first, then as a literal numeric id.
func (s *Scenario) ResolveNodeId(target string) (types.NodeId, error) {
	if spec, ok := s.specByName[target]; ok {
		return spec.Id, nil
	}
	var numeric uint64
	if _, err := fmt.Sscanf(target, "%d", &numeric); err == nil && numeric != 0 {
		return types.NodeId(numeric), nil
	}
	return types.InvalidNodeId, errors.Wrapf(types.ErrNotFound, "node %q", target)
}

// Seed returns the scenario seed as the signed root seed the prng package
// takes (0 stays 0 = nondeterministic).
func (s *Scenario) Seed() int64 {
	return int64(s.Doc.Simulation.Seed)
}

// TimeScale returns the effective time scale.
func (s *Scenario) TimeScale() float64 {
	return *s.Doc.Simulation.TimeScale
}

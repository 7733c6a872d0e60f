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

package types

// NodeSpec is the concrete, expanded configuration of one virtual node, as
// produced by the scenario loader (templates already expanded, names already
// hashed to ids).
type NodeSpec struct {
	Name     string
	Id       NodeId
	Type     string
	Firmware string
	X        float64
	Y        float64
	Config   map[string]string
}

const (
	ConfigKeyMeshPrefix   = "mesh_prefix"
	ConfigKeyMeshPassword = "mesh_password"
	ConfigKeyMeshPort     = "mesh_port"
	ConfigKeyIsBridge     = "is_bridge"

	DefaultMeshPort = 5555
)

// ConfigValue returns the node's config value for key, or def when absent.
func (s *NodeSpec) ConfigValue(key, def string) string {
	if v, ok := s.Config[key]; ok {
		return v
	}
	return def
}

// Clone returns a deep copy of the spec. Used when a template spec is
// materialized into several nodes.
func (s *NodeSpec) Clone() *NodeSpec {
	c := *s
	c.Config = make(map[string]string, len(s.Config))
	for k, v := range s.Config {
		c.Config[k] = v
	}
	return &c
}

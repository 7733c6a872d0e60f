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

package firmware

import (
	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/types"
)

const BridgeName = "bridge"

// Bridge marks its node as a mesh bridge with internet connectivity and
// answers "status?" probes with the bridge state, so other firmwares can
// locate the gateway.
type Bridge struct {
	Base
	Probes uint64
}

func NewBridge() *Bridge {
	return &Bridge{}
}

func (f *Bridge) Name() string {
	return BridgeName
}

func (f *Bridge) Setup() {
	f.Mesh.SetBridge(true)
	f.Mesh.SetInternetConnection(f.GetConfig("internet", "true") == "true")
	logger.Debugf("bridge %d: up (internet=%v)", f.NodeId, f.Mesh.HasInternetConnection())
}

func (f *Bridge) OnReceive(from types.NodeId, payload []byte) {
	if string(payload) != "status?" {
		return
	}
	f.Probes++
	status := "bridge:no-internet"
	if f.Mesh.HasInternetConnection() {
		status = "bridge:internet"
	}
	f.Mesh.SendSingle(from, []byte(status))
}

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
	"strconv"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/scheduler"
	"github.com/meshsim/meshsim/types"
)

const (
	EchoServerName = "echo_server"
	EchoClientName = "echo_client"

	echoReplyPrefix = "echo:"
)

// EchoServer answers every received payload with an echo reply to the
// sender.
type EchoServer struct {
	Base
	Replied uint64
}

func NewEchoServer() *EchoServer {
	return &EchoServer{}
}

func (f *EchoServer) Name() string {
	return EchoServerName
}

func (f *EchoServer) OnReceive(from types.NodeId, payload []byte) {
	reply := append([]byte(echoReplyPrefix), payload...)
	f.Mesh.SendSingle(from, reply)
	f.Replied++
	logger.Tracef("echo_server %d: replied to %d", f.NodeId, from)
}

// EchoClient periodically sends a payload to a configured target node and
// counts the echo replies that come back.
//
// Config keys: "target" (node name or numeric id, required),
// "interval_ms" (default 1000), "payload" (default "ping").
type EchoClient struct {
	Base
	target  types.NodeId
	payload []byte
	task    *scheduler.Task

	Sent     uint64
	Received uint64
}

func NewEchoClient() *EchoClient {
	return &EchoClient{}
}

func (f *EchoClient) Name() string {
	return EchoClientName
}

func (f *EchoClient) Setup() {
	target := f.GetConfig("target", "")
	if target == "" {
		logger.Warnf("echo_client %d: no target configured, staying idle", f.NodeId)
		return
	}
	if id, err := strconv.ParseUint(target, 10, 32); err == nil && id != 0 {
		f.target = types.NodeId(id)
	} else {
		f.target = types.NodeIdFromName(target)
	}

	intervalMs, err := strconv.ParseUint(f.GetConfig("interval_ms", "1000"), 10, 64)
	if err != nil {
		logger.Warnf("echo_client %d: bad interval_ms, using 1000", f.NodeId)
		intervalMs = 1000
	}
	f.payload = []byte(f.GetConfig("payload", "ping"))

	f.task = f.Sched.Add(intervalMs, scheduler.RunForever, func() {
		f.Mesh.SendSingle(f.target, f.payload)
		f.Sent++
	})
}

func (f *EchoClient) OnReceive(from types.NodeId, payload []byte) {
	if from == f.target && len(payload) >= len(echoReplyPrefix) &&
		string(payload[:len(echoReplyPrefix)]) == echoReplyPrefix {
		f.Received++
	}
}

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

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// NodeId identifies one virtual node. Zero is reserved as the
// unassigned/broadcast id and is never a valid node.
type NodeId = uint32

const (
	InvalidNodeId   NodeId = 0
	BroadcastNodeId NodeId = 0
)

// MaxNodes bounds the population of a single simulation.
const MaxNodes = 1000

// Ever is the "never happens" timestamp (unit: ms).
const Ever uint64 = math.MaxUint64 / 2

// DirectedLink is the ordered pair (From, To). Link state is tracked
// independently per direction: dropping (a,b) does not drop (b,a).
type DirectedLink struct {
	From NodeId
	To   NodeId
}

func (l DirectedLink) Reverse() DirectedLink {
	return DirectedLink{From: l.To, To: l.From}
}

func (l DirectedLink) String() string {
	return fmt.Sprintf("%d->%d", l.From, l.To)
}

// QueuedMessage is one in-flight payload between two nodes.
type QueuedMessage struct {
	From           NodeId
	To             NodeId
	Payload        []byte
	DeliveryTimeMs uint64
}

// Distribution selects the latency sampling distribution of a link.
type Distribution int

const (
	DistUniform Distribution = iota
	DistNormal
	DistExponential
)

func (d Distribution) String() string {
	switch d {
	case DistUniform:
		return "uniform"
	case DistNormal:
		return "normal"
	case DistExponential:
		return "exponential"
	default:
		return fmt.Sprintf("distribution(%d)", int(d))
	}
}

// ParseDistribution parses a scenario distribution keyword. "gaussian" is
// accepted as an alias for "normal".
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(s) {
	case "", "uniform":
		return DistUniform, nil
	case "normal", "gaussian":
		return DistNormal, nil
	case "exponential":
		return DistExponential, nil
	default:
		return DistUniform, fmt.Errorf("unknown distribution type: %s", s)
	}
}

// NodeIdFromName maps a scenario node name to its numeric NodeId using a
// stable hash. The result is always non-zero; uniqueness across a scenario is
// checked by the validator, not here.
func NodeIdFromName(name string) NodeId {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	id := NodeId(h.Sum64() & 0x7fffffff)
	if id == InvalidNodeId {
		id = 1
	}
	return id
}

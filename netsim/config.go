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

package netsim

import (
	"github.com/meshsim/meshsim/types"
)

// LatencyConfig describes the latency model of one directed link.
type LatencyConfig struct {
	MinMs        uint32
	MaxMs        uint32
	Distribution types.Distribution
}

// Valid reports whether the config is internally consistent.
func (c LatencyConfig) Valid() bool {
	return c.MinMs <= c.MaxMs
}

// DefaultLatencyConfig returns the latency model used when a link carries no
// override and the scenario configures none.
func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{
		MinMs:        10,
		MaxMs:        50,
		Distribution: types.DistNormal,
	}
}

// PacketLossConfig describes the loss model of one directed link.
//
// With BurstMode off, every packet independently fails with Probability.
// With BurstMode on, a Bernoulli(Probability) trial decides whether to enter
// a burst; once triggered, BurstLength consecutive decisions (the trigger
// included) are drops. A new burst may begin immediately after the previous
// one ends, so observed drop-runs have lengths that are multiples of
// BurstLength.
type PacketLossConfig struct {
	Probability float64
	BurstMode   bool
	BurstLength uint32
}

func (c PacketLossConfig) Valid() bool {
	if c.Probability < 0 || c.Probability > 1 {
		return false
	}
	if c.BurstMode && c.BurstLength < 1 {
		return false
	}
	return true
}

func DefaultPacketLossConfig() PacketLossConfig {
	return PacketLossConfig{
		Probability: 0,
		BurstMode:   false,
		BurstLength: 3,
	}
}

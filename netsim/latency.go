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
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meshsim/meshsim/types"
)

// sampleLatency draws one latency value [ms] for a link, according to the
// link's configured distribution. When MinMs == MaxMs the sampler returns
// MinMs unconditionally, whatever the distribution.
func (ns *Simulator) sampleLatency(cfg LatencyConfig) uint32 {
	min, max := cfg.MinMs, cfg.MaxMs
	if min == max {
		return min
	}

	switch cfg.Distribution {
	case types.DistNormal:
		return ns.normalLatency(min, max)
	case types.DistExponential:
		return ns.exponentialLatency(min, max)
	default:
		return ns.uniformLatency(min, max)
	}
}

func (ns *Simulator) uniformLatency(min, max uint32) uint32 {
	return min + uint32(ns.rnd.Uint64n(uint64(max-min)+1))
}

// normalLatency samples N(mean=(min+max)/2, stddev=(max-min)/6), clamped to
// [min, max] and rounded to the nearest integer.
func (ns *Simulator) normalLatency(min, max uint32) uint32 {
	dist := distuv.Normal{
		Mu:    (float64(min) + float64(max)) / 2,
		Sigma: (float64(max) - float64(min)) / 6,
		Src:   ns.rnd,
	}
	return clampRound(dist.Rand(), min, max)
}

// exponentialLatency samples Exp(rate=3/(max-min)) offset by min, clamped to
// [min, max] and rounded to the nearest integer.
func (ns *Simulator) exponentialLatency(min, max uint32) uint32 {
	dist := distuv.Exponential{
		Rate: 3 / (float64(max) - float64(min)),
		Src:  ns.rnd,
	}
	return clampRound(float64(min)+dist.Rand(), min, max)
}

func clampRound(v float64, min, max uint32) uint32 {
	if v < float64(min) {
		return min
	}
	if v > float64(max) {
		return max
	}
	return uint32(math.Round(v))
}

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

package prng

import (
	"math/rand"
	"time"
)

// The engine derives every random decision from one root seed, fanned out
// into independent streams so that adding draws to one concern does not
// perturb the others. Stream assignment:
//   - network:  seeds the network simulator's sampler (latency, loss, burst)
//   - topology: tie-breaks in the connectivity bootstrap
//   - node:     per-node seeds for firmware-visible randomness

var networkSeedGenerator *rand.Rand
var topologyRandGenerator *rand.Rand
var nodeSeedGenerator *rand.Rand

// Init initializes the prng package, either with a fixed root seed
// (rootSeed != 0) or a 'random' time-based seed (if rootSeed == 0).
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	root := rand.New(rand.NewSource(rootSeed))

	networkSeedGenerator = rand.New(rand.NewSource(rootSeed + int64(root.Intn(1e10))))
	topologyRandGenerator = rand.New(rand.NewSource(rootSeed + int64(root.Intn(1e10))))
	nodeSeedGenerator = rand.New(rand.NewSource(rootSeed + int64(root.Intn(1e10))))
}

func ensureInit() {
	if networkSeedGenerator == nil {
		Init(0)
	}
}

// NewNetworkSeed generates the seed for a new network simulator instance.
func NewNetworkSeed() uint64 {
	ensureInit()
	return uint64(networkSeedGenerator.Int63())
}

// TopologyIntn draws a uniform integer in [0, n) from the topology stream.
func TopologyIntn(n int) int {
	ensureInit()
	return topologyRandGenerator.Intn(n)
}

// TopologyFloat64 draws a uniform [0,1) float from the topology stream.
func TopologyFloat64() float64 {
	ensureInit()
	return topologyRandGenerator.Float64()
}

// NewNodeSeed generates unique random-seeds for newly created nodes.
func NewNodeSeed() int32 {
	ensureInit()
	return nodeSeedGenerator.Int31()
}

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

// Package netsim models the "wire" between virtual nodes: per-link latency
// distributions, per-link probabilistic loss, a delayed-delivery queue of
// in-flight messages, per-link active/inactive state and per-link statistics.
// The simulator has no time source of its own; callers pass the current
// simulation time [ms] into Enqueue and ReadyMessages.
package netsim

import (
	"sort"

	exprand "golang.org/x/exp/rand"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/types"
)

// Simulator is the network simulator for one simulation run. It is owned by
// the simulation thread and not safe for concurrent use.
type Simulator struct {
	defaultLatency LatencyConfig
	defaultLoss    PacketLossConfig
	linkLatency    map[types.DirectedLink]LatencyConfig
	linkLoss       map[types.DirectedLink]PacketLossConfig
	dropped        map[types.DirectedLink]struct{}
	burstRemaining map[types.DirectedLink]uint32
	stats          map[types.DirectedLink]*LinkStats
	queue          *sendQueue

	// one seedable stream feeds every sampler (latency, loss Bernoulli,
	// burst trigger) so a whole run replays from the seed
	rnd *exprand.Rand
}

// NewSimulator creates a network simulator whose sampler stream is seeded
// with the given seed.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{
		defaultLatency: DefaultLatencyConfig(),
		defaultLoss:    DefaultPacketLossConfig(),
		linkLatency:    map[types.DirectedLink]LatencyConfig{},
		linkLoss:       map[types.DirectedLink]PacketLossConfig{},
		dropped:        map[types.DirectedLink]struct{}{},
		burstRemaining: map[types.DirectedLink]uint32{},
		stats:          map[types.DirectedLink]*LinkStats{},
		queue:          newSendQueue(),
		rnd:            exprand.New(exprand.NewSource(seed)),
	}
}

// SetDefaultLatency sets the latency model used by links without an override.
func (ns *Simulator) SetDefaultLatency(cfg LatencyConfig) error {
	if !cfg.Valid() {
		return errors.Wrapf(types.ErrInvalidConfig, "latency min %d > max %d", cfg.MinMs, cfg.MaxMs)
	}
	ns.defaultLatency = cfg
	return nil
}

// SetLinkLatency overrides the latency model of the directed link (from,to).
func (ns *Simulator) SetLinkLatency(from, to types.NodeId, cfg LatencyConfig) error {
	if !cfg.Valid() {
		return errors.Wrapf(types.ErrInvalidConfig, "latency min %d > max %d", cfg.MinMs, cfg.MaxMs)
	}
	ns.linkLatency[types.DirectedLink{From: from, To: to}] = cfg
	return nil
}

// SetDefaultLoss sets the loss model used by links without an override.
func (ns *Simulator) SetDefaultLoss(cfg PacketLossConfig) error {
	if !cfg.Valid() {
		return errors.Wrapf(types.ErrInvalidConfig, "loss probability %v / burst length %d",
			cfg.Probability, cfg.BurstLength)
	}
	ns.defaultLoss = cfg
	return nil
}

// SetLinkLoss overrides the loss model of the directed link (from,to).
func (ns *Simulator) SetLinkLoss(from, to types.NodeId, cfg PacketLossConfig) error {
	if !cfg.Valid() {
		return errors.Wrapf(types.ErrInvalidConfig, "loss probability %v / burst length %d",
			cfg.Probability, cfg.BurstLength)
	}
	ns.linkLoss[types.DirectedLink{From: from, To: to}] = cfg
	return nil
}

func (ns *Simulator) latencyFor(link types.DirectedLink) LatencyConfig {
	if cfg, ok := ns.linkLatency[link]; ok {
		return cfg
	}
	return ns.defaultLatency
}

func (ns *Simulator) lossFor(link types.DirectedLink) PacketLossConfig {
	if cfg, ok := ns.linkLoss[link]; ok {
		return cfg
	}
	return ns.defaultLoss
}

// DropLink deactivates the directed link (from,to). Idempotent.
func (ns *Simulator) DropLink(from, to types.NodeId) {
	ns.dropped[types.DirectedLink{From: from, To: to}] = struct{}{}
}

// RestoreLink reactivates the directed link (from,to). Idempotent.
func (ns *Simulator) RestoreLink(from, to types.NodeId) {
	delete(ns.dropped, types.DirectedLink{From: from, To: to})
}

// RestoreAllLinks clears every dropped flag. Latency and loss configuration
// is left unchanged.
func (ns *Simulator) RestoreAllLinks() {
	ns.dropped = map[types.DirectedLink]struct{}{}
}

// IsLinkActive reports whether no explicit drop is in effect for (from,to).
func (ns *Simulator) IsLinkActive(from, to types.NodeId) bool {
	_, isDropped := ns.dropped[types.DirectedLink{From: from, To: to}]
	return !isDropped
}

// sampleLoss takes the loss decision for one packet on the link. Stateful in
// burst mode: a triggered burst forces the next BurstLength-1 decisions.
func (ns *Simulator) sampleLoss(link types.DirectedLink) bool {
	cfg := ns.lossFor(link)
	if !cfg.BurstMode {
		return cfg.Probability > 0 && ns.rnd.Float64() < cfg.Probability
	}

	if remaining := ns.burstRemaining[link]; remaining > 0 {
		ns.burstRemaining[link] = remaining - 1
		return true
	}
	if cfg.Probability > 0 && ns.rnd.Float64() < cfg.Probability {
		ns.burstRemaining[link] = cfg.BurstLength - 1 // trigger counts as drop #1
		return true
	}
	return false
}

// Enqueue admits or drops one message. The admission decision happens here,
// at enqueue time: an inactive link records a drop, then the loss model is
// sampled, and only then is a latency drawn and the message queued for
// delivery at nowMs + latency. Enqueue never fails.
func (ns *Simulator) Enqueue(from, to types.NodeId, payload []byte, nowMs uint64) {
	link := types.DirectedLink{From: from, To: to}
	st := ns.statsEntry(link)

	if !ns.IsLinkActive(from, to) {
		st.recordDrop()
		logger.Tracef("enqueue %v: link inactive, dropped", link)
		return
	}

	if ns.sampleLoss(link) {
		st.recordDrop()
		logger.Tracef("enqueue %v: lost", link)
		return
	}

	latency := ns.sampleLatency(ns.latencyFor(link))
	ns.queue.Add(types.QueuedMessage{
		From:           from,
		To:             to,
		Payload:        payload,
		DeliveryTimeMs: nowMs + uint64(latency),
	})
	st.recordDelivery(latency)
}

// ReadyMessages pops and returns, in (delivery time, insertion order), every
// queued message whose delivery time is <= nowMs.
func (ns *Simulator) ReadyMessages(nowMs uint64) []types.QueuedMessage {
	var ready []types.QueuedMessage
	for ns.queue.Len() > 0 && ns.queue.NextTimestamp() <= nowMs {
		ready = append(ready, ns.queue.PopNext())
	}
	return ready
}

// NextDeliveryTime returns the delivery time of the earliest in-flight
// message, or types.Ever when none is queued.
func (ns *Simulator) NextDeliveryTime() uint64 {
	return ns.queue.NextTimestamp()
}

// PendingCount returns the number of in-flight messages.
func (ns *Simulator) PendingCount() int {
	return ns.queue.Len()
}

func (ns *Simulator) statsEntry(link types.DirectedLink) *LinkStats {
	st := ns.stats[link]
	if st == nil {
		st = &LinkStats{}
		ns.stats[link] = st
	}
	return st
}

// Stats returns a copy of the statistics of the directed link (from,to),
// zero-valued when the link never saw traffic.
func (ns *Simulator) Stats(from, to types.NodeId) LinkStats {
	if st, ok := ns.stats[types.DirectedLink{From: from, To: to}]; ok {
		return *st
	}
	return LinkStats{}
}

// StatLinks returns every directed link that has statistics, sorted for
// stable iteration.
func (ns *Simulator) StatLinks() []types.DirectedLink {
	links := make([]types.DirectedLink, 0, len(ns.stats))
	for link := range ns.stats {
		links = append(links, link)
	}
	sortLinks(links)
	return links
}

// DroppedLinks returns every directed link currently deactivated, sorted
// for stable iteration.
func (ns *Simulator) DroppedLinks() []types.DirectedLink {
	links := make([]types.DirectedLink, 0, len(ns.dropped))
	for link := range ns.dropped {
		links = append(links, link)
	}
	sortLinks(links)
	return links
}

func sortLinks(links []types.DirectedLink) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].From != links[j].From {
			return links[i].From < links[j].From
		}
		return links[i].To < links[j].To
	})
}

// ResetStats wipes all per-link statistics.
func (ns *Simulator) ResetStats() {
	ns.stats = map[types.DirectedLink]*LinkStats{}
}

// ClearQueue discards all in-flight messages.
func (ns *Simulator) ClearQueue() {
	ns.queue.Clear()
}

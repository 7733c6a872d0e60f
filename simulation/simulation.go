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

// Package simulation assembles the engine components and drives the outer
// loop: scenario in, ticks through event scheduler / node manager / network
// simulator, metrics out.
package simulation

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/eventsched"
	"github.com/meshsim/meshsim/firmware"
	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/mesh"
	"github.com/meshsim/meshsim/netsim"
	"github.com/meshsim/meshsim/nodemgr"
	"github.com/meshsim/meshsim/prng"
	"github.com/meshsim/meshsim/progctx"
	"github.com/meshsim/meshsim/scenario"
	"github.com/meshsim/meshsim/types"
)

// Config carries the run options of one simulation, on top of what the
// scenario document declares. Zero values defer to the scenario.
type Config struct {
	DurationS         uint32  // overrides simulation.duration when set
	TimeScale         float64 // overrides simulation.time_scale when set
	OutputDir         string
	MetricsListenAddr string // "" = no live metrics endpoint
}

// Simulation owns the components of one run. All methods execute on the
// simulation thread.
type Simulation struct {
	ctx *progctx.ProgCtx
	scn *scenario.Scenario
	cfg *Config

	ns        *netsim.Simulator
	net       *mesh.Network
	nm        *nodemgr.Manager
	es        *eventsched.Scheduler
	collector *Collector
	prom      *PromMetrics

	timeScale float64
	durationS uint32
	curTimeMs uint64
	started   bool
	stopped   bool

	// ops carries closures posted by the console; they run at the start of
	// the next tick, on the simulation thread
	ops chan func()
}

// NewSimulation builds the engine from a validated scenario: seeds the RNG
// streams, configures the network simulator, creates the nodes and loads
// the event timeline.
func NewSimulation(ctx *progctx.ProgCtx, scn *scenario.Scenario, cfg *Config) (*Simulation, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	firmware.RegisterBuiltins()
	prng.Init(scn.Seed())

	s := &Simulation{
		ctx:       ctx,
		scn:       scn,
		cfg:       cfg,
		ns:        netsim.NewSimulator(prng.NewNetworkSeed()),
		es:        eventsched.NewScheduler(),
		timeScale: scn.TimeScale(),
		durationS: scn.Doc.Simulation.DurationS,
		ops:       make(chan func(), 16),
	}
	if cfg.TimeScale > 0 {
		s.timeScale = cfg.TimeScale
	}
	if cfg.DurationS > 0 {
		s.durationS = cfg.DurationS
	}

	s.net = mesh.NewNetwork(s.ns)
	s.nm = nodemgr.NewManager(s.ns, s.net)

	if err := s.configureNetwork(); err != nil {
		return nil, err
	}
	for _, spec := range scn.Specs {
		if _, err := s.nm.CreateNode(spec); err != nil {
			return nil, errors.Wrapf(err, "creating node %q", spec.Name)
		}
	}

	timeline, err := scn.BuildEvents()
	if err != nil {
		return nil, err
	}
	for _, te := range timeline {
		if err := s.es.Schedule(te.Event, te.TimeS); err != nil {
			return nil, err
		}
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = scn.Doc.Metrics.Output
	}
	s.collector = NewCollector(s, outputDir)

	if cfg.MetricsListenAddr != "" {
		s.prom = NewPromMetrics()
		if err := s.prom.Serve(ctx, cfg.MetricsListenAddr); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// configureNetwork programs the simulator with the scenario's link defaults
// and per-link overrides.
func (s *Simulation) configureNetwork() error {
	net := s.scn.Doc.Network

	defLat, err := latencyFromEntry(net.Latency.Default)
	if err != nil {
		return err
	}
	if err = s.ns.SetDefaultLatency(defLat); err != nil {
		return err
	}
	for _, entry := range net.Latency.SpecificConnections {
		cfg, err := latencyFromEntry(entry)
		if err != nil {
			return err
		}
		from, to, err := s.resolvePair(entry.From, entry.To)
		if err != nil {
			return err
		}
		if err = s.ns.SetLinkLatency(from, to, cfg); err != nil {
			return err
		}
	}

	if err = s.ns.SetDefaultLoss(lossFromEntry(net.PacketLoss.Default)); err != nil {
		return err
	}
	for _, entry := range net.PacketLoss.SpecificConnections {
		from, to, err := s.resolvePair(entry.From, entry.To)
		if err != nil {
			return err
		}
		if err = s.ns.SetLinkLoss(from, to, lossFromEntry(entry)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) resolvePair(from, to string) (types.NodeId, types.NodeId, error) {
	a, err := s.scn.ResolveNodeId(from)
	if err != nil {
		return 0, 0, err
	}
	b, err := s.scn.ResolveNodeId(to)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func latencyFromEntry(e scenario.LatencyEntry) (netsim.LatencyConfig, error) {
	dist, err := types.ParseDistribution(e.Distribution)
	if err != nil {
		return netsim.LatencyConfig{}, errors.Wrap(types.ErrInvalidConfig, err.Error())
	}
	return netsim.LatencyConfig{MinMs: e.Min, MaxMs: e.Max, Distribution: dist}, nil
}

func lossFromEntry(e scenario.LossEntry) netsim.PacketLossConfig {
	return netsim.PacketLossConfig{
		Probability: e.Probability,
		BurstMode:   e.BurstMode,
		BurstLength: e.BurstLength,
	}
}

// Start wires the initial topology and brings every node up at t=0.
func (s *Simulation) Start() error {
	logger.AssertFalse(s.started)
	s.nm.EstablishConnectivity()
	if err := s.scn.ApplyTopology(s.nm); err != nil {
		return err
	}
	s.nm.StartAll(0)
	s.started = true
	s.collector.Snapshot(0)
	logger.Infof("simulation %q started: %d nodes, %d scheduled events",
		s.scn.Doc.Simulation.Name, s.nm.GetNodeCount(), s.es.PendingCount())
	return nil
}

// StepTo advances simulation time to nowMs and runs one tick. Within the
// tick the order is fixed: event scheduler first, then the node update
// fan-out, then the delivery drain.
func (s *Simulation) StepTo(nowMs uint64) {
	s.curTimeMs = nowMs
	s.net.AdvanceTime(nowMs)
	s.nm.CurTime = nowMs
	s.drainOps()

	ectx := &eventsched.Context{Nm: s.nm, Ns: s.ns, NowMs: nowMs, Started: s.started}
	s.es.Process(uint32(nowMs/1000), ectx)

	s.nm.UpdateAll(nowMs)

	for _, msg := range s.ns.ReadyMessages(nowMs) {
		s.net.Deliver(msg)
	}

	s.collector.MaybeSnapshot(nowMs)
	if s.prom != nil {
		s.prom.Update(s)
	}
}

// Run drives the loop in scaled wall-clock time until the duration elapses
// or the program context is cancelled, then shuts the population down and
// writes the metric exports.
func (s *Simulation) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	wallStart := time.Now()

	for s.ctx.Err() == nil {
		sleep := time.Duration(math.Max(1, math.Round(10/s.timeScale))) * time.Millisecond
		elapsedWallMs := uint64(time.Since(wallStart).Milliseconds())
		nowMs := uint64(float64(elapsedWallMs) * s.timeScale)
		s.StepTo(nowMs)

		if s.durationS > 0 && nowMs >= uint64(s.durationS)*1000 {
			logger.Infof("simulation duration of %ds reached", s.durationS)
			break
		}
		time.Sleep(sleep)
	}
	return s.Shutdown()
}

// Shutdown stops all nodes, finalizes the collector and exports metrics.
// Idempotent.
func (s *Simulation) Shutdown() error {
	if s.stopped {
		return nil
	}
	s.stopped = true

	s.drainOps()
	s.nm.StopAll(s.curTimeMs)
	s.collector.Snapshot(s.curTimeMs)
	if err := s.collector.Export(s.scn.Doc.Metrics.Export); err != nil {
		return err
	}
	logger.Infof("simulation %q finished at t=%dms", s.scn.Doc.Simulation.Name, s.curTimeMs)
	return nil
}

// Post runs f on the simulation thread at the start of the next tick and
// blocks until it finished. This is how the console manipulates a running
// simulation without racing the loop.
func (s *Simulation) Post(f func()) {
	if s.ctx.Err() != nil || s.stopped {
		// loop is gone, nothing to race against
		f()
		return
	}
	done := make(chan struct{})
	wrapped := func() {
		f()
		close(done)
	}
	select {
	case s.ops <- wrapped:
	case <-s.ctx.Done():
		f()
		return
	}
	select {
	case <-done:
	case <-s.ctx.Done():
	}
}

func (s *Simulation) drainOps() {
	for {
		select {
		case op := <-s.ops:
			op()
		default:
			return
		}
	}
}

// Accessors used by the metrics collector, the console and tests.

func (s *Simulation) NodeManager() *nodemgr.Manager {
	return s.nm
}

func (s *Simulation) NetSim() *netsim.Simulator {
	return s.ns
}

func (s *Simulation) MeshNetwork() *mesh.Network {
	return s.net
}

func (s *Simulation) EventScheduler() *eventsched.Scheduler {
	return s.es
}

func (s *Simulation) Scenario() *scenario.Scenario {
	return s.scn
}

func (s *Simulation) CurTimeMs() uint64 {
	return s.curTimeMs
}

func (s *Simulation) TimeScale() float64 {
	return s.timeScale
}

// SetTimeScale changes the speed of the wall-clock loop. Takes effect on
// the next Run iteration's sleep; console-driven.
func (s *Simulation) SetTimeScale(scale float64) error {
	if scale <= 0 {
		return errors.Wrapf(types.ErrInvalidArgument, "time scale %v", scale)
	}
	s.timeScale = scale
	return nil
}

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

package simulation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/nodemgr"
	"github.com/meshsim/meshsim/types"
)

// NodeSample is one node's counters at snapshot time.
type NodeSample struct {
	Name    string              `json:"name"`
	Id      types.NodeId        `json:"id"`
	Running bool                `json:"running"`
	Metrics nodemgr.NodeMetrics `json:"metrics"`
}

// LinkSample is one directed link's statistics at snapshot time.
type LinkSample struct {
	From         types.NodeId `json:"from"`
	To           types.NodeId `json:"to"`
	Delivered    uint64       `json:"delivered"`
	Dropped      uint64       `json:"dropped"`
	AvgLatencyMs float64      `json:"avg_latency_ms"`
	MinLatencyMs uint32       `json:"min_latency_ms"`
	MaxLatencyMs uint32       `json:"max_latency_ms"`
	DropRate     float64      `json:"drop_rate"`
}

// Snapshot is the state of the whole population at one point of simulation
// time.
type Snapshot struct {
	TimeMs uint64       `json:"time_ms"`
	Nodes  []NodeSample `json:"nodes"`
	Links  []LinkSample `json:"links"`
}

// Collector takes periodic snapshots during the run and writes the selected
// export formats at the end.
type Collector struct {
	sim       *Simulation
	outputDir string
	intervalS uint32
	collect   []string

	snapshots    []Snapshot
	lastSnapshot uint64
	hasSnapshot  bool
}

func NewCollector(sim *Simulation, outputDir string) *Collector {
	return &Collector{
		sim:       sim,
		outputDir: outputDir,
		intervalS: sim.scn.Doc.Metrics.IntervalS,
		collect:   sim.scn.Doc.Metrics.Collect,
	}
}

// MaybeSnapshot takes a snapshot when the collection interval elapsed.
func (c *Collector) MaybeSnapshot(nowMs uint64) {
	if c.hasSnapshot && nowMs < c.lastSnapshot+uint64(c.intervalS)*1000 {
		return
	}
	c.Snapshot(nowMs)
}

// Snapshot records the current node and link state unconditionally.
func (c *Collector) Snapshot(nowMs uint64) {
	snap := Snapshot{TimeMs: nowMs}
	for _, node := range c.sim.nm.GetAllNodes() {
		snap.Nodes = append(snap.Nodes, NodeSample{
			Name:    node.Spec().Name,
			Id:      node.Id,
			Running: node.IsRunning(),
			Metrics: node.Metrics(),
		})
	}
	for _, link := range c.sim.ns.StatLinks() {
		st := c.sim.ns.Stats(link.From, link.To)
		snap.Links = append(snap.Links, LinkSample{
			From:         link.From,
			To:           link.To,
			Delivered:    st.DeliveredCount,
			Dropped:      st.DroppedCount,
			AvgLatencyMs: st.AvgLatencyMs(),
			MinLatencyMs: st.MinLatencyMs,
			MaxLatencyMs: st.MaxLatencyMs,
			DropRate:     st.DropRate(),
		})
	}
	c.snapshots = append(c.snapshots, snap)
	c.lastSnapshot = nowMs
	c.hasSnapshot = true
}

// Snapshots returns all recorded snapshots.
func (c *Collector) Snapshots() []Snapshot {
	return c.snapshots
}

// Export writes the selected formats (csv, json, graphviz) into the output
// directory. Unknown formats are skipped with a warning.
func (c *Collector) Export(formats []string) error {
	if len(formats) == 0 || len(c.snapshots) == 0 {
		return nil
	}
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return errors.Wrapf(err, "creating output dir %s", c.outputDir)
	}

	for _, format := range formats {
		var err error
		switch format {
		case "csv":
			err = c.exportCsv()
		case "json":
			err = c.exportJson()
		case "graphviz":
			err = c.exportGraphviz()
		default:
			logger.Warnf("unknown metrics export format %q skipped", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// exportCsv writes one row per node per snapshot.
func (c *Collector) exportCsv() error {
	f, err := os.Create(filepath.Join(c.outputDir, "metrics.csv"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"time_ms", "node", "id", "running",
		"messages_sent", "messages_received", "bytes_sent", "bytes_received",
		"total_uptime_ms", "crash_count"}
	if err = w.Write(header); err != nil {
		return err
	}
	for _, snap := range c.snapshots {
		for _, node := range snap.Nodes {
			row := []string{
				strconv.FormatUint(snap.TimeMs, 10),
				node.Name,
				strconv.FormatUint(uint64(node.Id), 10),
				strconv.FormatBool(node.Running),
				strconv.FormatUint(node.Metrics.MessagesSent, 10),
				strconv.FormatUint(node.Metrics.MessagesReceived, 10),
				strconv.FormatUint(node.Metrics.BytesSent, 10),
				strconv.FormatUint(node.Metrics.BytesReceived, 10),
				strconv.FormatUint(node.Metrics.TotalUptimeMs, 10),
				strconv.FormatUint(uint64(node.Metrics.CrashCount), 10),
			}
			if err = w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

type jsonReport struct {
	Scenario  string     `json:"scenario"`
	FileTime  string     `json:"file_time"`
	Collect   []string   `json:"collect,omitempty"`
	Snapshots []Snapshot `json:"snapshots"`
}

func (c *Collector) exportJson() error {
	report := jsonReport{
		Scenario:  c.sim.scn.Doc.Simulation.Name,
		FileTime:  time.Now().Format(time.RFC3339),
		Collect:   c.collect,
		Snapshots: c.snapshots,
	}
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshalling metrics JSON")
	}
	return os.WriteFile(filepath.Join(c.outputDir, "metrics.json"), data, 0644)
}

// exportGraphviz renders the final connection graph; links with an explicit
// drop in effect are dashed.
func (c *Collector) exportGraphviz() error {
	f, err := os.Create(filepath.Join(c.outputDir, "network.dot"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "graph %q {\n", c.sim.scn.Doc.Simulation.Name)
	for _, node := range c.sim.nm.GetAllNodes() {
		shape := "ellipse"
		if !node.IsRunning() {
			shape = "octagon"
		}
		_, _ = fmt.Fprintf(f, "    n%d [label=%q, shape=%s, pos=\"%g,%g!\"];\n",
			node.Id, node.Spec().Name, shape, node.Spec().X, node.Spec().Y)
	}
	for _, link := range c.sim.net.Connections() {
		style := ""
		if !c.sim.ns.IsLinkActive(link.From, link.To) || !c.sim.ns.IsLinkActive(link.To, link.From) {
			style = " [style=dashed]"
		}
		_, _ = fmt.Fprintf(f, "    n%d -- n%d%s;\n", link.From, link.To, style)
	}
	_, _ = fmt.Fprintln(f, "}")
	return nil
}

// aggregate sums population-wide counters for the end-of-run report and the
// live prometheus gauges.
func (c *Collector) aggregate() (delivered, dropped uint64) {
	for _, link := range c.sim.ns.StatLinks() {
		st := c.sim.ns.Stats(link.From, link.To)
		delivered += st.DeliveredCount
		dropped += st.DroppedCount
	}
	return delivered, dropped
}

// Summary renders the human-readable end-of-run line.
func (c *Collector) Summary() string {
	delivered, dropped := c.aggregate()
	var sent, received uint64
	for _, node := range c.sim.nm.GetAllNodes() {
		sent += node.Metrics().MessagesSent
		received += node.Metrics().MessagesReceived
	}
	return fmt.Sprintf("t=%dms nodes=%d running=%d sent=%d received=%d delivered=%d dropped=%d",
		c.sim.curTimeMs, c.sim.nm.GetNodeCount(), c.sim.nm.RunningCount(),
		sent, received, delivered, dropped)
}

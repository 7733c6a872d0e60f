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

// Package cli provides the interactive console of the simulator
// (--ui terminal): inspect nodes, links and statistics, change the speed
// and inject messages while the simulation runs.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mitchellh/go-wordwrap"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/progctx"
	"github.com/meshsim/meshsim/simulation"
	"github.com/meshsim/meshsim/types"
)

const prompt = "meshsim> "

var commandHelp = map[string]string{
	"nodes":   "List all nodes with their state, partition id and counters.",
	"node":    "node <id> - show one node's spec, metrics and reachable peers.",
	"stats":   "stats [<from> <to>] - show per-link statistics, or one directed link.",
	"links":   "List mesh connections; dropped links are marked.",
	"pending": "Show the number of in-flight messages and scheduled events.",
	"time":    "Show the current simulation time.",
	"speed":   "speed <factor> - change the simulation speed.",
	"inject":  "inject <from> <to> <payload> - put a message on the wire, bypassing firmware.",
	"help":    "Show this help.",
	"exit":    "Leave the console and stop the simulation.",
}

// Console is the interactive front-end attached to one running simulation.
type Console struct {
	ctx *progctx.ProgCtx
	sim *simulation.Simulation
}

func NewConsole(ctx *progctx.ProgCtx, sim *simulation.Simulation) *Console {
	return &Console{ctx: ctx, sim: sim}
}

// Run reads console lines until EOF, "exit" or program cancellation. It is
// meant to run in its own goroutine; commands execute on the simulation
// thread via Simulation.Post.
func (c *Console) Run() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
	})
	if err != nil {
		logger.Errorf("console unavailable: %v", err)
		return
	}
	defer func() { _ = rl.Close() }()

	for c.ctx.Err() == nil {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Errorf("console read: %v", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if exit := c.HandleCommand(line, rl.Stdout()); exit {
			c.ctx.Cancel("console exit")
			break
		}
	}
}

// HandleCommand executes one console line and writes its output. Returns
// true when the command asks to leave the console.
func (c *Console) HandleCommand(line string, out io.Writer) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		_, _ = fmt.Fprintf(out, "error: %v\n", err)
		_, _ = fmt.Fprintf(out, "type 'help' for the command list\n")
		return false
	}

	switch {
	case cmd.Exit != nil:
		return true
	case cmd.Help != nil:
		c.printHelp(out)
	case cmd.Nodes != nil:
		c.sim.Post(func() { c.printNodes(out) })
	case cmd.Node != nil:
		c.sim.Post(func() { c.printNode(out, cmd.Node.Node) })
	case cmd.Stats != nil:
		c.sim.Post(func() { c.printStats(out, cmd.Stats.From, cmd.Stats.To) })
	case cmd.Links != nil:
		c.sim.Post(func() { c.printLinks(out) })
	case cmd.Pending != nil:
		c.sim.Post(func() {
			_, _ = fmt.Fprintf(out, "%d messages in flight, %d events pending\n",
				c.sim.NetSim().PendingCount(), c.sim.EventScheduler().PendingCount())
		})
	case cmd.Time != nil:
		c.sim.Post(func() {
			_, _ = fmt.Fprintf(out, "t=%dms (speed %gx)\n", c.sim.CurTimeMs(), c.sim.TimeScale())
		})
	case cmd.Speed != nil:
		c.sim.Post(func() {
			if err := c.sim.SetTimeScale(cmd.Speed.Speed); err != nil {
				_, _ = fmt.Fprintf(out, "error: %v\n", err)
			} else {
				_, _ = fmt.Fprintf(out, "speed set to %gx\n", cmd.Speed.Speed)
			}
		})
	case cmd.Inject != nil:
		c.sim.Post(func() { c.inject(out, cmd.Inject) })
	}
	return false
}

// resolve maps a console node reference (name or numeric id) to a node id.
func (c *Console) resolve(ref NodeRef) (types.NodeId, error) {
	val := strings.Trim(ref.Val, `"`)
	if spec := c.sim.Scenario().SpecByName(val); spec != nil {
		return spec.Id, nil
	}
	if id, err := strconv.ParseUint(val, 10, 32); err == nil && id != 0 {
		return types.NodeId(id), nil
	}
	return types.InvalidNodeId, errors.Wrapf(types.ErrNotFound, "node %q", val)
}

func (c *Console) printNodes(out io.Writer) {
	nodes := c.sim.NodeManager().GetAllNodes()
	_, _ = fmt.Fprintf(out, "%d nodes:\n", len(nodes))
	for _, node := range nodes {
		state := "stopped"
		if node.IsRunning() {
			state = "running"
		}
		m := node.Metrics()
		_, _ = fmt.Fprintf(out, "  %-20s id=%-10d %-8s partition=%d sent=%d recv=%d crashes=%d\n",
			node.Spec().Name, node.Id, state, node.PartitionId(),
			m.MessagesSent, m.MessagesReceived, m.CrashCount)
	}
}

func (c *Console) printNode(out io.Writer, ref NodeRef) {
	id, err := c.resolve(ref)
	if err != nil {
		_, _ = fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	node := c.sim.NodeManager().GetNode(id)
	if node == nil {
		_, _ = fmt.Fprintf(out, "error: no node %d\n", id)
		return
	}
	m := node.Metrics()
	_, _ = fmt.Fprintf(out, "node %s (id %d)\n", node.Spec().Name, node.Id)
	_, _ = fmt.Fprintf(out, "  running:   %v\n", node.IsRunning())
	_, _ = fmt.Fprintf(out, "  firmware:  %s\n", node.Spec().Firmware)
	_, _ = fmt.Fprintf(out, "  partition: %d\n", node.PartitionId())
	_, _ = fmt.Fprintf(out, "  uptime:    %dms (total %dms, crashes %d)\n",
		node.Uptime(c.sim.CurTimeMs()), m.TotalUptimeMs, m.CrashCount)
	_, _ = fmt.Fprintf(out, "  traffic:   sent %d (%dB), received %d (%dB)\n",
		m.MessagesSent, m.BytesSent, m.MessagesReceived, m.BytesReceived)
	_, _ = fmt.Fprintf(out, "  peers:     %v\n", node.MeshHandle().NodeList())
}

func (c *Console) printStats(out io.Writer, from, to *NodeRef) {
	ns := c.sim.NetSim()
	if from != nil && to != nil {
		a, err := c.resolve(*from)
		if err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		b, err := c.resolve(*to)
		if err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		st := ns.Stats(a, b)
		_, _ = fmt.Fprintf(out, "%d->%d delivered=%d dropped=%d drop_rate=%.3f latency avg=%.1fms min=%dms max=%dms\n",
			a, b, st.DeliveredCount, st.DroppedCount, st.DropRate(),
			st.AvgLatencyMs(), st.MinLatencyMs, st.MaxLatencyMs)
		return
	}
	for _, link := range ns.StatLinks() {
		st := ns.Stats(link.From, link.To)
		_, _ = fmt.Fprintf(out, "%d->%d delivered=%d dropped=%d drop_rate=%.3f avg=%.1fms\n",
			link.From, link.To, st.DeliveredCount, st.DroppedCount, st.DropRate(), st.AvgLatencyMs())
	}
}

func (c *Console) printLinks(out io.Writer) {
	ns := c.sim.NetSim()
	for _, link := range c.sim.MeshNetwork().Connections() {
		mark := ""
		if !ns.IsLinkActive(link.From, link.To) || !ns.IsLinkActive(link.To, link.From) {
			mark = "  (dropped)"
		}
		_, _ = fmt.Fprintf(out, "%d <-> %d%s\n", link.From, link.To, mark)
	}
}

func (c *Console) inject(out io.Writer, cmd *InjectCmd) {
	from, err := c.resolve(cmd.From)
	if err != nil {
		_, _ = fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	to, err := c.resolve(cmd.To)
	if err != nil {
		_, _ = fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	payload := strings.Trim(cmd.Payload, `"`)
	c.sim.NetSim().Enqueue(from, to, []byte(payload), c.sim.CurTimeMs())
	_, _ = fmt.Fprintf(out, "injected %d bytes %d->%d\n", len(payload), from, to)
}

func (c *Console) printHelp(out io.Writer) {
	width := uint(80)
	fdTerm := int(os.Stdout.Fd())
	if term.IsTerminal(fdTerm) {
		if w, _, err := term.GetSize(fdTerm); err == nil && w > 20 {
			width = uint(w)
		}
	}

	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		wrapped := wordwrap.WrapString(commandHelp[name], width-12)
		lines := strings.Split(wrapped, "\n")
		_, _ = fmt.Fprintf(out, "%-10s %s\n", name, lines[0])
		for _, l := range lines[1:] {
			_, _ = fmt.Fprintf(out, "%-10s %s\n", "", l)
		}
	}
}

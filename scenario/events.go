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

package scenario

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/eventsched"
	"github.com/meshsim/meshsim/types"
)

var knownActions = map[string]struct{}{
	"start_node": {}, "stop_node": {}, "restart_node": {}, "crash_node": {},
	"remove_node": {}, "add_nodes": {},
	"partition_network": {}, "heal_partition": {},
	"break_link": {}, "restore_link": {},
	"connection_drop": {}, "connection_restore": {}, "connection_degrade": {},
	"inject_message": {}, "set_network_quality": {},
}

func isKnownAction(action string) bool {
	_, ok := knownActions[action]
	return ok
}

// TimedEvent pairs a projected event with its scheduled time.
type TimedEvent struct {
	Event eventsched.Event
	TimeS uint32
}

// BuildEvents projects the document's string-keyed event entries onto the
// typed event catalogue. The projection happens once, here; the scheduler
// only ever sees typed events.
func (s *Scenario) BuildEvents() ([]TimedEvent, error) {
	var out []TimedEvent
	for i := range s.Doc.Events {
		entry := &s.Doc.Events[i]
		events, err := s.buildEvent(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "events[%d] (%s)", i, entry.Action)
		}
		for _, ev := range events {
			out = append(out, TimedEvent{Event: ev, TimeS: entry.Time})
		}
	}
	return out, nil
}

// buildEvent maps one entry to typed events; an entry with a targets list
// fans out into one event per target.
func (s *Scenario) buildEvent(entry *EventEntry) ([]eventsched.Event, error) {
	perTarget := func(build func(id types.NodeId) eventsched.Event) ([]eventsched.Event, error) {
		targets := entry.Targets
		if len(targets) == 0 {
			targets = []string{entry.Target}
		}
		var events []eventsched.Event
		for _, target := range targets {
			id, err := s.ResolveNodeId(target)
			if err != nil {
				return nil, err
			}
			events = append(events, build(id))
		}
		return events, nil
	}

	linkPair := func() (types.NodeId, types.NodeId, error) {
		from, err := s.ResolveNodeId(entry.From)
		if err != nil {
			return 0, 0, err
		}
		to, err := s.ResolveNodeId(entry.To)
		if err != nil {
			return 0, 0, err
		}
		return from, to, nil
	}

	switch entry.Action {
	case "start_node":
		return perTarget(func(id types.NodeId) eventsched.Event {
			return &eventsched.NodeStartEvent{Node: id}
		})
	case "stop_node":
		graceful := entry.Graceful == nil || *entry.Graceful
		return perTarget(func(id types.NodeId) eventsched.Event {
			return &eventsched.NodeStopEvent{Node: id, Graceful: graceful}
		})
	case "restart_node":
		return perTarget(func(id types.NodeId) eventsched.Event {
			return &eventsched.NodeRestartEvent{Node: id}
		})
	case "crash_node":
		return perTarget(func(id types.NodeId) eventsched.Event {
			return &eventsched.NodeCrashEvent{Node: id}
		})
	case "remove_node":
		return perTarget(func(id types.NodeId) eventsched.Event {
			return &eventsched.RemoveNodeEvent{Node: id}
		})

	case "add_nodes":
		template := types.NodeSpec{
			Type:     "templated",
			Firmware: entry.Firmware,
			Config:   configToStrings(entry.Config),
		}
		if _, ok := template.Config[types.ConfigKeyMeshPort]; !ok {
			template.Config[types.ConfigKeyMeshPort] = fmt.Sprint(types.DefaultMeshPort)
		}
		return []eventsched.Event{&eventsched.AddNodesEvent{
			Template: template,
			Count:    entry.Count,
			IdPrefix: entry.IdPrefix,
		}}, nil

	case "partition_network":
		groups := make([][]types.NodeId, 0, len(entry.Groups))
		for _, group := range entry.Groups {
			ids := make([]types.NodeId, 0, len(group))
			for _, name := range group {
				id, err := s.ResolveNodeId(name)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
			}
			groups = append(groups, ids)
		}
		return []eventsched.Event{&eventsched.PartitionNetworkEvent{Groups: groups}}, nil

	case "heal_partition":
		return []eventsched.Event{&eventsched.HealNetworkEvent{}}, nil

	case "break_link", "connection_drop":
		from, to, err := linkPair()
		if err != nil {
			return nil, err
		}
		return []eventsched.Event{&eventsched.LinkDropEvent{A: from, B: to}}, nil

	case "restore_link", "connection_restore":
		from, to, err := linkPair()
		if err != nil {
			return nil, err
		}
		return []eventsched.Event{&eventsched.LinkRestoreEvent{A: from, B: to}}, nil

	case "connection_degrade":
		from, to, err := linkPair()
		if err != nil {
			return nil, err
		}
		return []eventsched.Event{&eventsched.LinkDegradeEvent{
			A: from, B: to,
			LatencyMs: entry.Latency,
			LossProb:  entry.PacketLoss,
		}}, nil

	case "inject_message":
		from, to, err := linkPair()
		if err != nil {
			return nil, err
		}
		return []eventsched.Event{&eventsched.InjectMessageEvent{
			From: from, To: to,
			Payload: []byte(entry.Message),
		}}, nil

	case "set_network_quality":
		if entry.Target == "all" || entry.Target == "" {
			return []eventsched.Event{&eventsched.SetNetworkQualityEvent{
				All: true, Quality: entry.Quality,
			}}, nil
		}
		return perTarget(func(id types.NodeId) eventsched.Event {
			return &eventsched.SetNetworkQualityEvent{Target: id, Quality: entry.Quality}
		})

	default:
		return nil, errors.Wrapf(types.ErrInvalidConfig, "unknown event action %q", entry.Action)
	}
}

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

// LinkStats aggregates delivery statistics of one directed link. Only
// admitted enqueues are accounted: a dropped packet increments DroppedCount,
// a queued packet increments DeliveredCount and the latency aggregates.
type LinkStats struct {
	TotalLatencyMs uint64
	MinLatencyMs   uint32
	MaxLatencyMs   uint32
	DeliveredCount uint64
	DroppedCount   uint64
}

// AvgLatencyMs is the mean queued latency, 0 when nothing was delivered.
func (s LinkStats) AvgLatencyMs() float64 {
	if s.DeliveredCount == 0 {
		return 0
	}
	return float64(s.TotalLatencyMs) / float64(s.DeliveredCount)
}

// DropRate is dropped/(dropped+delivered), 0 when no traffic was offered.
func (s LinkStats) DropRate() float64 {
	total := s.DroppedCount + s.DeliveredCount
	if total == 0 {
		return 0
	}
	return float64(s.DroppedCount) / float64(total)
}

func (s *LinkStats) recordDrop() {
	s.DroppedCount++
}

func (s *LinkStats) recordDelivery(latencyMs uint32) {
	if s.DeliveredCount == 0 || latencyMs < s.MinLatencyMs {
		s.MinLatencyMs = latencyMs
	}
	if latencyMs > s.MaxLatencyMs {
		s.MaxLatencyMs = latencyMs
	}
	s.TotalLatencyMs += uint64(latencyMs)
	s.DeliveredCount++
}

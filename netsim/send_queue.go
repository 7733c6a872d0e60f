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
	"container/heap"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/types"
)

type queuedItem struct {
	msg types.QueuedMessage
	seq uint64 // monotonic insertion sequence, FIFO tie-break

	index int
}

type deliveryHeap []*queuedItem

func (dq deliveryHeap) Len() int {
	return len(dq)
}

func (dq deliveryHeap) Less(i, j int) bool {
	a, b := dq[i], dq[j]
	if a.msg.DeliveryTimeMs != b.msg.DeliveryTimeMs {
		return a.msg.DeliveryTimeMs < b.msg.DeliveryTimeMs
	}
	return a.seq < b.seq
}

func (dq deliveryHeap) Swap(i, j int) {
	a, b := dq[i], dq[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	dq[i], dq[j] = b, a
	dq[i].index, dq[j].index = i, j
}

func (dq *deliveryHeap) Push(x interface{}) {
	e := x.(*queuedItem)
	*dq = append(*dq, e)
	e.index = len(*dq) - 1
}

func (dq *deliveryHeap) Pop() (elem interface{}) {
	dqlen := len(*dq)
	elem = (*dq)[dqlen-1]
	*dq = (*dq)[:dqlen-1]
	return
}

// sendQueue is the delayed-delivery queue, ordered by
// (delivery time, insertion sequence).
type sendQueue struct {
	q       deliveryHeap
	nextSeq uint64
}

func newSendQueue() *sendQueue {
	sq := &sendQueue{
		q: deliveryHeap{},
	}
	heap.Init(&sq.q)
	return sq
}

func (sq *sendQueue) Add(msg types.QueuedMessage) {
	heap.Push(&sq.q, &queuedItem{
		msg: msg,
		seq: sq.nextSeq,
	})
	sq.nextSeq++
}

func (sq *sendQueue) Len() int {
	return len(sq.q)
}

// NextTimestamp returns the delivery time of the earliest message, or
// types.Ever when the queue is empty.
func (sq *sendQueue) NextTimestamp() uint64 {
	if len(sq.q) == 0 {
		return types.Ever
	}
	return sq.q[0].msg.DeliveryTimeMs
}

func (sq *sendQueue) PopNext() types.QueuedMessage {
	return heap.Pop(&sq.q).(*queuedItem).msg
}

func (sq *sendQueue) Clear() {
	sq.q = deliveryHeap{}
}

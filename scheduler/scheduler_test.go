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

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunsAtInterval(t *testing.T) {
	s := New()
	runs := 0
	s.Add(100, RunForever, func() { runs++ })

	s.Execute(0)
	assert.Equal(t, 1, runs)
	s.Execute(50)
	assert.Equal(t, 1, runs)
	s.Execute(100)
	assert.Equal(t, 2, runs)
	s.Execute(250)
	assert.Equal(t, 3, runs)
}

func TestTaskIterationsExhaust(t *testing.T) {
	s := New()
	runs := 0
	s.Add(10, 2, func() { runs++ })

	s.Execute(0)
	s.Execute(10)
	s.Execute(20)
	s.Execute(30)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 0, s.TaskCount())
}

func TestTaskDisableEnable(t *testing.T) {
	s := New()
	runs := 0
	task := s.Add(10, RunForever, func() { runs++ })

	s.Execute(0)
	task.Disable()
	s.Execute(10)
	s.Execute(20)
	assert.Equal(t, 1, runs)

	task.Enable()
	s.Execute(30)
	assert.Equal(t, 2, runs)
}

func TestTaskRemove(t *testing.T) {
	s := New()
	runs := 0
	task := s.Add(10, RunForever, func() { runs++ })
	s.Remove(task)
	s.Execute(0)
	assert.Equal(t, 0, runs)
	assert.Equal(t, 0, s.TaskCount())
}

func TestTasksRunInRegistrationOrder(t *testing.T) {
	s := New()
	var order []int
	s.Add(10, RunForever, func() { order = append(order, 1) })
	s.Add(10, RunForever, func() { order = append(order, 2) })
	s.Add(10, RunForever, func() { order = append(order, 3) })
	s.Execute(0)
	assert.Equal(t, []int{1, 2, 3}, order)
}

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

package firmware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsim/meshsim/types"
)

func TestRegistryCreate(t *testing.T) {
	Clear()
	defer Clear()
	RegisterBuiltins()

	fw, err := Create(EchoServerName)
	require.NoError(t, err)
	assert.Equal(t, EchoServerName, fw.Name())
	assert.Equal(t, "1.0", fw.Version())

	_, err = Create("no-such-firmware")
	assert.ErrorIs(t, err, types.ErrUnknownFirmware)
}

func TestRegistryDuplicateKeepsFirst(t *testing.T) {
	Clear()
	defer Clear()

	first := &EchoServer{}
	require.NoError(t, Register("dup", func() Firmware { return first }))
	err := Register("dup", func() Firmware { return &EchoClient{} })
	assert.ErrorIs(t, err, types.ErrDuplicateId)

	fw, err := Create("dup")
	require.NoError(t, err)
	assert.Same(t, first, fw)
}

func TestRegisteredNamesSorted(t *testing.T) {
	Clear()
	defer Clear()
	RegisterBuiltins()
	assert.Equal(t, []string{BridgeName, EchoClientName, EchoServerName, BroadcastName}, Registered())
}

func TestRegisterBuiltinsIdempotent(t *testing.T) {
	Clear()
	defer Clear()
	RegisterBuiltins()
	RegisterBuiltins()
	assert.Len(t, Registered(), 4)
	assert.True(t, IsRegistered(BroadcastName))
}

func TestBaseConfigHelpers(t *testing.T) {
	b := &Base{}
	b.Init(nil, nil, 7, map[string]string{"k": "v"})
	assert.Equal(t, "v", b.GetConfig("k", "d"))
	assert.Equal(t, "d", b.GetConfig("missing", "d"))
	assert.True(t, b.HasConfig("k"))
	assert.False(t, b.HasConfig("missing"))
}

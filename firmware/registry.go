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
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/meshsim/meshsim/logger"
	"github.com/meshsim/meshsim/types"
)

// The registry maps firmware names to constructor functions. It is
// process-wide; scenario files reference firmwares by registry key.
var (
	registryLock sync.Mutex
	registry     = map[string]func() Firmware{}
)

// Register adds a firmware constructor under name. Registering a name that
// already exists fails with a warning and leaves the first registration
// intact.
func Register(name string, ctor func() Firmware) error {
	logger.AssertNotNil(ctor)
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, exists := registry[name]; exists {
		logger.Warnf("firmware %q already registered, keeping first registration", name)
		return errors.Wrapf(types.ErrDuplicateId, "firmware %q", name)
	}
	registry[name] = ctor
	return nil
}

// Create instantiates the firmware registered under name.
func Create(name string) (Firmware, error) {
	registryLock.Lock()
	ctor, ok := registry[name]
	registryLock.Unlock()

	if !ok {
		return nil, errors.Wrapf(types.ErrUnknownFirmware, "%q", name)
	}
	return ctor(), nil
}

// IsRegistered reports whether a firmware name is known.
func IsRegistered(name string) bool {
	registryLock.Lock()
	defer registryLock.Unlock()
	_, ok := registry[name]
	return ok
}

// Registered returns the sorted list of known firmware names.
func Registered() []string {
	registryLock.Lock()
	defer registryLock.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear empties the registry. Strictly for test teardown.
func Clear() {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry = map[string]func() Firmware{}
}

// RegisterBuiltins (re-)registers the firmwares shipped with the simulator.
// Registration is lazy so tests that Clear() the registry can restore it.
// Already-registered names are left alone.
func RegisterBuiltins() {
	builtins := map[string]func() Firmware{
		EchoServerName: func() Firmware { return NewEchoServer() },
		EchoClientName: func() Firmware { return NewEchoClient() },
		BroadcastName:  func() Firmware { return NewBroadcast() },
		BridgeName:     func() Firmware { return NewBridge() },
	}
	for name, ctor := range builtins {
		if !IsRegistered(name) {
			_ = Register(name, ctor)
		}
	}
}

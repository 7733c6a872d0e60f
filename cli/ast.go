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

package cli

import (
	"github.com/alecthomas/participle"
)

// The console grammar. Each command is one alternative; node references
// accept scenario names and numeric ids.

// noinspection GoStructTag
type Command struct {
	Exit    *ExitCmd    `  @@` //nolint
	Help    *HelpCmd    `| @@` //nolint
	Inject  *InjectCmd  `| @@` //nolint
	Links   *LinksCmd   `| @@` //nolint
	Nodes   *NodesCmd   `| @@` //nolint
	Node    *NodeCmd    `| @@` //nolint
	Pending *PendingCmd `| @@` //nolint
	Speed   *SpeedCmd   `| @@` //nolint
	Stats   *StatsCmd   `| @@` //nolint
	Time    *TimeCmd    `| @@` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `("exit"|"quit")` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd struct{} `"help"` //nolint
}

// noinspection GoStructTag
type InjectCmd struct {
	Cmd     struct{} `"inject"`          //nolint
	From    NodeRef  `@@`                //nolint
	To      NodeRef  `@@`                //nolint
	Payload string   `@(String|Ident)`   //nolint
}

// noinspection GoStructTag
type LinksCmd struct {
	Cmd struct{} `"links"` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type NodeCmd struct {
	Cmd  struct{} `"node"` //nolint
	Node NodeRef  `@@`     //nolint
}

// noinspection GoStructTag
type PendingCmd struct {
	Cmd struct{} `"pending"` //nolint
}

// noinspection GoStructTag
type SpeedCmd struct {
	Cmd   struct{} `"speed"`        //nolint
	Speed float64  `@(Float|Int)`   //nolint
}

// noinspection GoStructTag
type StatsCmd struct {
	Cmd  struct{} `"stats"`  //nolint
	From *NodeRef `[ @@`     //nolint
	To   *NodeRef `  @@ ]`   //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type NodeRef struct {
	Val string `@(Ident|Int|String)` //nolint
}

var commandParser = participle.MustBuild(&Command{})

// parseCommand parses one console line into its command struct.
func parseCommand(line string) (*Command, error) {
	cmd := &Command{}
	if err := commandParser.ParseString(line, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

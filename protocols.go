// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driverstation

import (
	"strings"

	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/protocol/frc2014"
	"github.com/blinklabs-io/godriverstation/protocol/frc2015"
	"github.com/blinklabs-io/godriverstation/protocol/frc2016"
)

// Protocol definitions
var (
	ProtocolFRC2014 protocol.Descriptor = frc2014.New()
	ProtocolFRC2015 protocol.Descriptor = frc2015.New()
	ProtocolFRC2016 protocol.Descriptor = frc2016.New()

	// DefaultProtocol is used when no protocol is specified
	DefaultProtocol = ProtocolFRC2016
)

// List of valid protocols for use in lookup functions, newest first
var protocols = []protocol.Descriptor{
	ProtocolFRC2016,
	ProtocolFRC2015,
	ProtocolFRC2014,
}

// Protocols returns the registered protocols, newest first
func Protocols() []protocol.Descriptor {
	ret := make([]protocol.Descriptor, len(protocols))
	copy(ret, protocols)
	return ret
}

// ProtocolByName returns a registered protocol by its id ("2016") or its name
// ("FRC 2016"). The match is case-insensitive
func ProtocolByName(name string) (protocol.Descriptor, bool) {
	name = strings.TrimSpace(name)
	for _, desc := range protocols {
		if strings.EqualFold(desc.Id(), name) || strings.EqualFold(desc.Name(), name) {
			return desc, true
		}
	}
	return nil, false
}

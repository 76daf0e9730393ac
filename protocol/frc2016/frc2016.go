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

// Package frc2016 implements the FRC 2016 driver station protocol. The framing is
// unchanged from 2015, only the roboRIO host name differs
package frc2016

import (
	"github.com/blinklabs-io/godriverstation/protocol/frc2015"
)

const (
	ProtocolId      = "2016"
	ProtocolName    = "FRC 2016"
	RobotHostFormat = "roboRIO-%d-FRC.local"
)

// New returns the FRC 2016 protocol descriptor
func New() *frc2015.Descriptor {
	return frc2015.NewDescriptor(ProtocolId, ProtocolName, RobotHostFormat)
}

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

// Package frc2015 implements the FRC 2015 driver station protocol, used with the roboRIO
package frc2015

import (
	"fmt"
	"time"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/protocol"
)

// Protocol identifiers
const (
	ProtocolId      = "2015"
	ProtocolName    = "FRC 2015"
	RobotHostFormat = "roboRIO-%d.local"
)

// Timing
const (
	RobotInterval = 20 * time.Millisecond
	FMSInterval   = 500 * time.Millisecond
)

// Ports
const (
	PortRobotLocal       = 1150
	PortRobotRemote      = 1110
	PortFMSLocal         = 1120
	PortFMSRemote        = 1160
	PortNetConsoleLocal  = 6666
	PortNetConsoleRemote = 6668
	PortRadioProbe       = 80
)

const MaxVoltage = 13.0

var joystickLimits = protocol.JoystickLimits{
	MaxJoysticks: 6,
	MaxAxes:      6,
	MaxButtons:   10,
	MaxHats:      1,
}

// Descriptor implements protocol.Descriptor for the 2015 framing. The 2016
// protocol reuses it with a different identity and robot host name
type Descriptor struct {
	id              string
	name            string
	robotHostFormat string
}

var _ protocol.Descriptor = (*Descriptor)(nil)

// New returns the FRC 2015 protocol descriptor
func New() *Descriptor {
	return NewDescriptor(ProtocolId, ProtocolName, RobotHostFormat)
}

// NewDescriptor returns a descriptor using the 2015 framing. The host format
// must contain a single %d verb for the team number
func NewDescriptor(id string, name string, robotHostFormat string) *Descriptor {
	return &Descriptor{
		id:              id,
		name:            name,
		robotHostFormat: robotHostFormat,
	}
}

func (d *Descriptor) Id() string {
	return d.id
}

func (d *Descriptor) Name() string {
	return d.name
}

func (d *Descriptor) Timing() protocol.Timing {
	return protocol.Timing{
		RobotInterval:      RobotInterval,
		FMSInterval:        FMSInterval,
		RobotTimeout:       protocol.WatchdogTimeout(RobotInterval),
		FMSTimeout:         protocol.WatchdogTimeout(FMSInterval),
		RadioProbeInterval: protocol.DefaultRadioProbeInterval,
		RadioProbeTimeout:  protocol.DefaultRadioProbeTimeout,
	}
}

func (d *Descriptor) Ports() protocol.Ports {
	return protocol.Ports{
		RobotLocal:       PortRobotLocal,
		RobotRemote:      PortRobotRemote,
		FMSLocal:         PortFMSLocal,
		FMSRemote:        PortFMSRemote,
		NetConsoleLocal:  PortNetConsoleLocal,
		NetConsoleRemote: PortNetConsoleRemote,
		RadioProbe:       PortRadioProbe,
	}
}

func (d *Descriptor) MaxVoltage() float64 {
	return MaxVoltage
}

func (d *Descriptor) JoystickLimits() protocol.JoystickLimits {
	return joystickLimits
}

// RobotAddresses returns the mDNS host name, then the static team address,
// then the USB address
func (d *Descriptor) RobotAddresses(team uint) []string {
	return []string{
		fmt.Sprintf(d.robotHostFormat, team),
		discovery.StaticIP(team, discovery.RobotHost),
		discovery.USBAddress,
	}
}

func (d *Descriptor) RadioAddress(team uint) string {
	return discovery.StaticIP(team, discovery.RadioHost)
}

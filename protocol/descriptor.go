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

package protocol

import "time"

const (
	// Number of missed send intervals before a link is considered lost
	WatchdogIntervals = 50
	// Upper bound for any link watchdog
	MaxWatchdogTimeout = 1000 * time.Millisecond
	// Default interval and timeout for the radio link probe
	DefaultRadioProbeInterval = 1 * time.Second
	DefaultRadioProbeTimeout  = 500 * time.Millisecond
)

// WatchdogTimeout returns the link timeout derived from a send interval
func WatchdogTimeout(interval time.Duration) time.Duration {
	return min(interval*WatchdogIntervals, MaxWatchdogTimeout)
}

// Timing holds the send intervals and link timeouts of a protocol
type Timing struct {
	RobotInterval      time.Duration
	FMSInterval        time.Duration
	RobotTimeout       time.Duration
	FMSTimeout         time.Duration
	RadioProbeInterval time.Duration
	RadioProbeTimeout  time.Duration
}

// Merge returns a copy of t with any zero fields filled in from defaults
func (t Timing) Merge(defaults Timing) Timing {
	if t.RobotInterval == 0 {
		t.RobotInterval = defaults.RobotInterval
	}
	if t.FMSInterval == 0 {
		t.FMSInterval = defaults.FMSInterval
	}
	if t.RobotTimeout == 0 {
		t.RobotTimeout = defaults.RobotTimeout
	}
	if t.FMSTimeout == 0 {
		t.FMSTimeout = defaults.FMSTimeout
	}
	if t.RadioProbeInterval == 0 {
		t.RadioProbeInterval = defaults.RadioProbeInterval
	}
	if t.RadioProbeTimeout == 0 {
		t.RadioProbeTimeout = defaults.RadioProbeTimeout
	}
	return t
}

// Ports holds the UDP/TCP ports of a protocol. A zero port disables that channel
type Ports struct {
	RobotLocal       int
	RobotRemote      int
	FMSLocal         int
	FMSRemote        int
	NetConsoleLocal  int
	NetConsoleRemote int
	RadioProbe       int
}

// JoystickLimits describes how much joystick data a protocol can carry
type JoystickLimits struct {
	MaxJoysticks int
	MaxAxes      int
	MaxButtons   int
	MaxHats      int
}

// Descriptor is implemented once per protocol version. Implementations are
// immutable and their codec functions are safe for concurrent use
type Descriptor interface {
	// Id returns the short identifier, such as "2016"
	Id() string
	// Name returns the display name, such as "FRC 2016"
	Name() string
	Timing() Timing
	Ports() Ports
	MaxVoltage() float64
	JoystickLimits() JoystickLimits
	// RobotAddresses returns the ordered default robot addresses for a team
	RobotAddresses(team uint) []string
	// RadioAddress returns the default radio address for a team
	RadioAddress(team uint) string
	// EncodeRobotPacket builds the control frame sent to the robot
	EncodeRobotPacket(state ControlState, seq uint16) []byte
	// DecodeRobotPacket parses a status frame received from the robot
	DecodeRobotPacket(data []byte) (RobotStatus, error)
	// EncodeStatusPacket builds a robot status frame, as the robot would send it
	EncodeStatusPacket(status RobotStatus, seq uint16) []byte
	// EncodeFMSPacket builds the frame sent to the FMS. It returns nil when the
	// protocol does not talk back to the FMS
	EncodeFMSPacket(state ControlState, seq uint16) []byte
	// DecodeFMSPacket parses a frame received from the FMS
	DecodeFMSPacket(data []byte) (FMSCommand, error)
	// EncodeFMSCommand builds a frame as the FMS would send it
	EncodeFMSCommand(cmd FMSCommand, seq uint16) []byte
}

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

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ControlMode is the operational mode requested for the robot
type ControlMode uint8

const (
	ControlModeTeleoperated ControlMode = 0
	ControlModeAutonomous   ControlMode = 1
	ControlModeTest         ControlMode = 2
	ControlModePractice     ControlMode = 3
)

var controlModeNames = map[ControlMode]string{
	ControlModeTeleoperated: "Teleoperated",
	ControlModeAutonomous:   "Autonomous",
	ControlModeTest:         "Test",
	ControlModePractice:     "Practice",
}

func (m ControlMode) String() string {
	if name, ok := controlModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ControlMode(%d)", uint8(m))
}

// Valid returns true for the known control modes
func (m ControlMode) Valid() bool {
	_, ok := controlModeNames[m]
	return ok
}

// ParseControlMode accepts the mode names case-insensitively, along with the
// short forms "auto", "teleop" and "practice"
func ParseControlMode(name string) (ControlMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "teleoperated", "teleop":
		return ControlModeTeleoperated, nil
	case "autonomous", "auto":
		return ControlModeAutonomous, nil
	case "test":
		return ControlModeTest, nil
	case "practice":
		return ControlModePractice, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidControlMode, name)
}

type Alliance uint8

const (
	AllianceRed  Alliance = 0
	AllianceBlue Alliance = 1
)

func (a Alliance) String() string {
	if a == AllianceBlue {
		return "Blue"
	}
	return "Red"
}

// Station identifies the alliance color and driver station position (1-3)
type Station struct {
	Alliance Alliance
	Position uint8
}

var DefaultStation = Station{Alliance: AllianceRed, Position: 1}

func (s Station) Valid() bool {
	return s.Alliance <= AllianceBlue && s.Position >= 1 && s.Position <= 3
}

// Index returns the station as 0-5, with the red positions first
func (s Station) Index() uint8 {
	return uint8(s.Alliance)*3 + s.Position - 1
}

func (s Station) String() string {
	return fmt.Sprintf("%s %d", s.Alliance, s.Position)
}

// StationFromIndex is the inverse of Station.Index
func StationFromIndex(idx uint8) (Station, error) {
	if idx > 5 {
		return Station{}, fmt.Errorf("%w: index %d", ErrInvalidStation, idx)
	}
	return Station{Alliance: Alliance(idx / 3), Position: idx%3 + 1}, nil
}

// ParseStation parses station names such as "red1", "Blue 3" or "b2"
func ParseStation(name string) (Station, error) {
	tmp := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if len(tmp) < 2 {
		return Station{}, fmt.Errorf("%w: %q", ErrInvalidStation, name)
	}
	var ret Station
	switch {
	case strings.HasPrefix(tmp, "red"), tmp[0] == 'r':
		ret.Alliance = AllianceRed
	case strings.HasPrefix(tmp, "blue"), tmp[0] == 'b':
		ret.Alliance = AllianceBlue
	default:
		return Station{}, fmt.Errorf("%w: %q", ErrInvalidStation, name)
	}
	pos := tmp[len(tmp)-1]
	if pos < '1' || pos > '3' {
		return Station{}, fmt.Errorf("%w: %q", ErrInvalidStation, name)
	}
	ret.Position = pos - '0'
	return ret, nil
}

// Joystick holds the input state for one joystick. Axes are in the range
// [-1, 1] and hats are angles in degrees, with -1 meaning centered
type Joystick struct {
	Axes    []float64
	Buttons []bool
	Hats    []int
}

// Truncate returns a copy of the joysticks clipped to the provided limits
func (l JoystickLimits) Truncate(joysticks []Joystick) []Joystick {
	count := min(len(joysticks), l.MaxJoysticks)
	ret := make([]Joystick, 0, count)
	for _, js := range joysticks[:count] {
		tmp := Joystick{
			Axes:    append([]float64{}, js.Axes[:min(len(js.Axes), l.MaxAxes)]...),
			Buttons: append([]bool{}, js.Buttons[:min(len(js.Buttons), l.MaxButtons)]...),
			Hats:    append([]int{}, js.Hats[:min(len(js.Hats), l.MaxHats)]...),
		}
		ret = append(ret, tmp)
	}
	return ret
}

// AxisToInt8 converts an axis value in [-1, 1] to its wire representation
func AxisToInt8(value float64) int8 {
	value = math.Max(-1, math.Min(1, value))
	return int8(math.Round(value * 127))
}

// ControlState is everything a codec needs to build one outgoing packet
type ControlState struct {
	Team          uint
	Mode          ControlMode
	Enabled       bool
	EmergencyStop bool
	FMSAttached   bool
	RobotComms    bool
	RadioComms    bool
	Station       Station
	RebootRobot   bool
	RestartCode   bool
	Resync        bool
	SendDateTime  bool
	Time          time.Time
	Timezone      string
	SentPackets   uint64
	Joysticks     []Joystick
	Voltage       float64
}

// Usage carries the robot resource utilisation percentages. A negative value
// means the robot did not report that field
type Usage struct {
	CPU  int
	RAM  int
	Disk int
	CAN  int
}

// NoUsage returns a Usage with every field unreported
func NoUsage() Usage {
	return Usage{CPU: -1, RAM: -1, Disk: -1, CAN: -1}
}

// RobotStatus is the result of decoding one robot status frame
type RobotStatus struct {
	EmergencyStop   bool
	Enabled         bool
	Mode            ControlMode
	CodePresent     bool
	Voltage         float64
	RequestDateTime bool
	Usage           Usage
}

// FMSCommand is the result of decoding one frame from the field management system
type FMSCommand struct {
	Enabled       bool
	EmergencyStop bool
	Mode          ControlMode
	Station       Station
}

// Diagnostics holds robot utilisation values and engine counters
type Diagnostics struct {
	CPUUsage            int
	RAMUsage            int
	DiskUsage           int
	CANUtilization      int
	PacketsSent         uint64
	PacketsReceived     uint64
	MalformedPackets    uint64
	FMSPacketsSent      uint64
	FMSPacketsReceived  uint64
	WatchdogExpirations uint64
	RejectedCommands    uint64
}

// Status is a point-in-time snapshot of a session and its connection status
type Status struct {
	Protocol      string
	Team          uint
	State         State
	Mode          ControlMode
	Enabled       bool
	EmergencyStop bool
	Station       Station
	RobotComms    bool
	RobotCode     bool
	RadioComms    bool
	FMSComms      bool
	Voltage       float64
	Diagnostics   Diagnostics
	ElapsedTime   time.Duration
	PracticePhase PracticePhase
	RobotAddress  string
	FMSAddress    string
	Joysticks     []Joystick
}

// CanBeEnabled reports whether an enable request would currently be accepted
func (s Status) CanBeEnabled() bool {
	return s.RobotComms && s.RobotCode && !s.EmergencyStop
}

// String returns the operator-facing status text
func (s Status) String() string {
	switch {
	case !s.RobotComms:
		return "No Robot Communications"
	case !s.RobotCode:
		return "No Robot Code"
	case s.EmergencyStop:
		return "Emergency Stopped"
	case s.Enabled:
		return s.Mode.String() + " Enabled"
	}
	return s.Mode.String() + " Disabled"
}

// RoundVoltage clamps a voltage to [0, max] and rounds it to two decimal places
func RoundVoltage(voltage float64, maxVoltage float64) float64 {
	if voltage < 0 || math.IsNaN(voltage) {
		return 0
	}
	if maxVoltage > 0 && voltage > maxVoltage {
		voltage = maxVoltage
	}
	return math.Round(voltage*100) / 100
}

func clampPercent(value int) int {
	return max(0, min(100, value))
}

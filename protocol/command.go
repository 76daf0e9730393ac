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

import "fmt"

type CommandType uint8

const (
	CommandTypeNone           CommandType = 0
	CommandTypeSetEnabled     CommandType = 1
	CommandTypeSetControlMode CommandType = 2
	CommandTypeSetStation     CommandType = 3
	CommandTypeEmergencyStop  CommandType = 4
	CommandTypeRebootRobot    CommandType = 5
	CommandTypeRestartCode    CommandType = 6
	CommandTypeSetJoysticks   CommandType = 7
	CommandTypeAddressChanged CommandType = 8
)

var commandTypeNames = map[CommandType]string{
	CommandTypeSetEnabled:     "SetEnabled",
	CommandTypeSetControlMode: "SetControlMode",
	CommandTypeSetStation:     "SetStation",
	CommandTypeEmergencyStop:  "EmergencyStop",
	CommandTypeRebootRobot:    "RebootRobot",
	CommandTypeRestartCode:    "RestartCode",
	CommandTypeSetJoysticks:   "SetJoysticks",
	CommandTypeAddressChanged: "AddressChanged",
}

func (t CommandType) String() string {
	if name, ok := commandTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CommandType(%d)", uint8(t))
}

// CommandSource identifies who issued a command
type CommandSource uint8

const (
	CommandSourceOperator CommandSource = 0
	CommandSourceFMS      CommandSource = 1
)

func (s CommandSource) String() string {
	if s == CommandSourceFMS {
		return "fms"
	}
	return "operator"
}

// Command is a request queued to the engine's update loop
type Command struct {
	Type      CommandType
	Source    CommandSource
	Enabled   bool
	Mode      ControlMode
	Station   Station
	Joysticks []Joystick
}

func NewSetEnabledCommand(enabled bool) Command {
	return Command{Type: CommandTypeSetEnabled, Enabled: enabled}
}

func NewSetControlModeCommand(mode ControlMode) Command {
	return Command{Type: CommandTypeSetControlMode, Mode: mode}
}

func NewSetStationCommand(station Station) Command {
	return Command{Type: CommandTypeSetStation, Station: station}
}

func NewEmergencyStopCommand() Command {
	return Command{Type: CommandTypeEmergencyStop}
}

func NewRebootRobotCommand() Command {
	return Command{Type: CommandTypeRebootRobot}
}

func NewRestartCodeCommand() Command {
	return Command{Type: CommandTypeRestartCode}
}

func NewSetJoysticksCommand(joysticks []Joystick) Command {
	return Command{Type: CommandTypeSetJoysticks, Joysticks: joysticks}
}

func NewAddressChangedCommand() Command {
	return Command{Type: CommandTypeAddressChanged}
}

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

// Package frc2014 implements the FRC 2014 driver station protocol, used with the cRIO
package frc2014

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/protocol"
)

const (
	ProtocolId   = "2014"
	ProtocolName = "FRC 2014"
)

const (
	RobotInterval = 20 * time.Millisecond
	FMSInterval   = 500 * time.Millisecond
)

const (
	PortRobotLocal  = 1150
	PortRobotRemote = 1110
	PortFMSLocal    = 1120
	PortFMSRemote   = 1160
	PortRadioProbe  = 80
)

const MaxVoltage = 13.0

// Control byte flags
const (
	ControlEmergencyStopOn  = 0x00
	ControlEmergencyStopOff = 0x40
	ControlEnabled          = 0x20
	ControlAutonomous       = 0x10
	ControlFMSAttached      = 0x08
	ControlResync           = 0x04
	ControlTest             = 0x02
	ControlReboot           = 0x80
)

const (
	AllianceRed  = 'R'
	AllianceBlue = 'B'
)

const (
	// Every frame in either direction is exactly this long
	FrameSize = 1024

	// Identifies the driver station software release to the cRIO
	Version = "14021700"

	versionOffset  = 72
	crcOffset      = FrameSize - 4
	joystickOffset = 8
	fmsCommandSize = 5
)

var joystickLimits = protocol.JoystickLimits{
	MaxJoysticks: 4,
	MaxAxes:      6,
	MaxButtons:   10,
	MaxHats:      0,
}

// Descriptor implements protocol.Descriptor for the 2014 framing
type Descriptor struct{}

var _ protocol.Descriptor = (*Descriptor)(nil)

// New returns the FRC 2014 protocol descriptor
func New() *Descriptor {
	return &Descriptor{}
}

func (d *Descriptor) Id() string {
	return ProtocolId
}

func (d *Descriptor) Name() string {
	return ProtocolName
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

// Ports returns the 2014 ports. The cRIO has no NetConsole channel
func (d *Descriptor) Ports() protocol.Ports {
	return protocol.Ports{
		RobotLocal:  PortRobotLocal,
		RobotRemote: PortRobotRemote,
		FMSLocal:    PortFMSLocal,
		FMSRemote:   PortFMSRemote,
		RadioProbe:  PortRadioProbe,
	}
}

func (d *Descriptor) MaxVoltage() float64 {
	return MaxVoltage
}

func (d *Descriptor) JoystickLimits() protocol.JoystickLimits {
	return joystickLimits
}

func (d *Descriptor) RobotAddresses(team uint) []string {
	return []string{
		discovery.StaticIP(team, discovery.RobotHost),
	}
}

func (d *Descriptor) RadioAddress(team uint) string {
	return discovery.StaticIP(team, discovery.RadioHost)
}

func controlByte(mode protocol.ControlMode, enabled bool, estop bool) byte {
	if estop {
		return ControlEmergencyStopOn
	}
	ret := byte(ControlEmergencyStopOff)
	switch mode {
	case protocol.ControlModeAutonomous:
		ret |= ControlAutonomous
	case protocol.ControlModeTest:
		ret |= ControlTest
	}
	if enabled {
		ret |= ControlEnabled
	}
	return ret
}

func modeFromControl(control byte) protocol.ControlMode {
	switch {
	case control&ControlAutonomous > 0:
		return protocol.ControlModeAutonomous
	case control&ControlTest > 0:
		return protocol.ControlModeTest
	}
	return protocol.ControlModeTeleoperated
}

// EncodeBCD stores a voltage as two binary-coded decimal bytes, 12.34 V
// becoming 0x12 0x34
func EncodeBCD(voltage float64) (byte, byte) {
	hundredths := int(protocol.RoundVoltage(voltage, 99.99)*100 + 0.5)
	integer := hundredths / 100
	fraction := hundredths % 100
	return byte(integer/10<<4 | integer%10), byte(fraction/10<<4 | fraction%10)
}

func DecodeBCD(integer byte, fraction byte) float64 {
	whole := int(integer>>4)*10 + int(integer&0x0f)
	part := int(fraction>>4)*10 + int(fraction&0x0f)
	return float64(whole*100+part) / 100
}

func checksum(frame []byte) uint32 {
	var saved [4]byte
	copy(saved[:], frame[crcOffset:])
	clear(frame[crcOffset:])
	ret := crc32.ChecksumIEEE(frame)
	copy(frame[crcOffset:], saved[:])
	return ret
}

func seal(frame []byte) {
	binary.BigEndian.PutUint32(frame[crcOffset:], checksum(frame))
}

// EncodeRobotPacket builds the fixed-size control frame sent to the cRIO
func (d *Descriptor) EncodeRobotPacket(state protocol.ControlState, seq uint16) []byte {
	buf := make([]byte, FrameSize)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	control := controlByte(state.Mode, state.Enabled, state.EmergencyStop)
	if !state.EmergencyStop {
		if state.Resync {
			control |= ControlResync
		}
		if state.FMSAttached {
			control |= ControlFMSAttached
		}
	}
	if state.RebootRobot {
		control = ControlReboot
	}
	buf[2] = control
	// Digital inputs are not supported
	buf[3] = 0x00
	binary.BigEndian.PutUint16(buf[4:6], uint16(state.Team))
	buf[6] = AllianceRed
	if state.Station.Alliance == protocol.AllianceBlue {
		buf[6] = AllianceBlue
	}
	buf[7] = '0' + state.Station.Position
	offset := joystickOffset
	joysticks := joystickLimits.Truncate(state.Joysticks)
	for idx := range joystickLimits.MaxJoysticks {
		var js protocol.Joystick
		if idx < len(joysticks) {
			js = joysticks[idx]
		}
		for axis := range joystickLimits.MaxAxes {
			if axis < len(js.Axes) {
				buf[offset] = byte(protocol.AxisToInt8(js.Axes[axis]))
			}
			offset++
		}
		var buttons uint16
		for button, pressed := range js.Buttons {
			if pressed {
				buttons |= 1 << button
			}
		}
		binary.BigEndian.PutUint16(buf[offset:offset+2], buttons)
		offset += 2
	}
	copy(buf[versionOffset:], Version)
	seal(buf)
	return buf
}

// DecodeRobotPacket parses a status frame from the cRIO. The cRIO does not
// report whether user code is loaded, so it is always assumed to be.
// Frames may be longer than FrameSize and carry no checksum
func (d *Descriptor) DecodeRobotPacket(data []byte) (protocol.RobotStatus, error) {
	if len(data) < FrameSize {
		return protocol.RobotStatus{}, fmt.Errorf(
			"%w: %s: status frame too short (%d bytes, need %d)",
			protocol.ErrMalformedPacket,
			ProtocolName,
			len(data),
			FrameSize,
		)
	}
	control := data[0]
	return protocol.RobotStatus{
		EmergencyStop: control == ControlEmergencyStopOn,
		Enabled:       control&ControlEnabled > 0,
		Mode:          modeFromControl(control),
		CodePresent:   true,
		Voltage:       DecodeBCD(data[1], data[2]),
		Usage:         protocol.NoUsage(),
	}, nil
}

// EncodeStatusPacket builds a status frame the way the cRIO sends it
func (d *Descriptor) EncodeStatusPacket(status protocol.RobotStatus, seq uint16) []byte {
	buf := make([]byte, FrameSize)
	buf[0] = controlByte(status.Mode, status.Enabled, status.EmergencyStop)
	buf[1], buf[2] = EncodeBCD(status.Voltage)
	seal(buf)
	return buf
}

// EncodeFMSPacket returns nil, since the 2014 driver station never reports back
// to the FMS
func (d *Descriptor) EncodeFMSPacket(state protocol.ControlState, seq uint16) []byte {
	return nil
}

// DecodeFMSPacket parses a control frame from the FMS. Emergency stops are
// not carried by this frame
func (d *Descriptor) DecodeFMSPacket(data []byte) (protocol.FMSCommand, error) {
	if len(data) < fmsCommandSize {
		return protocol.FMSCommand{}, fmt.Errorf(
			"%w: %s: fms frame too short (%d bytes)",
			protocol.ErrMalformedPacket,
			ProtocolName,
			len(data),
		)
	}
	control := data[2]
	var station protocol.Station
	switch data[3] {
	case AllianceRed:
		station.Alliance = protocol.AllianceRed
	case AllianceBlue:
		station.Alliance = protocol.AllianceBlue
	default:
		return protocol.FMSCommand{}, fmt.Errorf(
			"%w: %s: unknown alliance 0x%02x",
			protocol.ErrMalformedPacket,
			ProtocolName,
			data[3],
		)
	}
	station.Position = data[4] - '0'
	if !station.Valid() {
		return protocol.FMSCommand{}, fmt.Errorf(
			"%w: %s: unknown position 0x%02x",
			protocol.ErrMalformedPacket,
			ProtocolName,
			data[4],
		)
	}
	return protocol.FMSCommand{
		Enabled: control&ControlEnabled > 0,
		Mode:    modeFromControl(control),
		Station: station,
	}, nil
}

// EncodeFMSCommand builds a control frame the way the FMS sends it
func (d *Descriptor) EncodeFMSCommand(cmd protocol.FMSCommand, seq uint16) []byte {
	buf := make([]byte, fmsCommandSize)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	buf[2] = controlByte(cmd.Mode, cmd.Enabled, false)
	buf[3] = AllianceRed
	if cmd.Station.Alliance == protocol.AllianceBlue {
		buf[3] = AllianceBlue
	}
	buf[4] = '0' + cmd.Station.Position
	return buf
}

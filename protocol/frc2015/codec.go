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

package frc2015

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/blinklabs-io/godriverstation/protocol"
)

// Control byte flags, shared by the robot and FMS frames
const (
	ControlTest          = 0x01
	ControlAutonomous    = 0x02
	ControlTeleoperated  = 0x00
	ControlEnabled       = 0x04
	ControlFMSAttached   = 0x08
	ControlEmergencyStop = 0x80

	controlModeMask = 0x03
)

// Request byte values sent to the robot
const (
	RequestUnconnected = 0x00
	RequestRestartCode = 0x04
	RequestReboot      = 0x08
	RequestNormal      = 0x80
)

// Control byte flags only used in frames sent to the FMS
const (
	FMSRobotPing  = 0x08
	FMSRadioPing  = 0x10
	FMSRobotComms = 0x20
)

// Section tags
const (
	TagGeneral  = 0x01
	TagJoystick = 0x0c
	TagDate     = 0x0f
	TagTimezone = 0x10

	TagDiskInfo = 0x04
	TagCPUInfo  = 0x05
	TagRAMInfo  = 0x06
	TagCANInfo  = 0x0e
)

// Robot status flags
const (
	StatusHasCode   = 0x20
	RequestDateTime = 0x01
)

const (
	// Status frames carry seq, version, control, status, voltage (2 bytes) and request
	statusHeaderSize = 8
	// FMS frames are padded with match information that is not used
	fmsCommandSize = 22
	fmsVersion     = 0x00
	// Joystick data starts after the robot has seen a few bare packets
	joystickPacketThreshold = 5
	dateSectionSize         = 0x0b
)

func controlByte(state protocol.ControlState) byte {
	var ret byte
	switch state.Mode {
	case protocol.ControlModeTest:
		ret |= ControlTest
	case protocol.ControlModeAutonomous:
		ret |= ControlAutonomous
	default:
		ret |= ControlTeleoperated
	}
	if state.FMSAttached {
		ret |= ControlFMSAttached
	}
	if state.EmergencyStop {
		ret |= ControlEmergencyStop
	} else if state.Enabled {
		ret |= ControlEnabled
	}
	return ret
}

func requestByte(state protocol.ControlState) byte {
	switch {
	case !state.RobotComms:
		return RequestUnconnected
	case state.RebootRobot:
		return RequestReboot
	case state.RestartCode:
		return RequestRestartCode
	}
	return RequestNormal
}

func modeFromControl(control byte) protocol.ControlMode {
	switch control & controlModeMask {
	case ControlTest:
		return protocol.ControlModeTest
	case ControlAutonomous:
		return protocol.ControlModeAutonomous
	}
	return protocol.ControlModeTeleoperated
}

// EncodeVoltage splits a voltage into its integer part and 1/256 fraction
func EncodeVoltage(voltage float64) (byte, byte) {
	voltage = math.Max(0, math.Min(255, voltage))
	integer := math.Floor(voltage)
	fraction := math.Round((voltage - integer) * 256)
	if fraction >= 256 {
		integer++
		fraction = 0
	}
	return byte(integer), byte(fraction)
}

func DecodeVoltage(integer byte, fraction byte) float64 {
	return float64(integer) + float64(fraction)/256
}

// EncodeRobotPacket builds the control frame sent to the robot every interval
func (d *Descriptor) EncodeRobotPacket(state protocol.ControlState, seq uint16) []byte {
	buf := make([]byte, 6, 64)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	buf[2] = TagGeneral
	buf[3] = controlByte(state)
	buf[4] = requestByte(state)
	buf[5] = state.Station.Index()
	switch {
	case state.SendDateTime:
		buf = appendDateTime(buf, state.Time, state.Timezone)
	case state.SentPackets > joystickPacketThreshold:
		buf = appendJoysticks(buf, d.JoystickLimits().Truncate(state.Joysticks))
	}
	return buf
}

func appendDateTime(buf []byte, now time.Time, tz string) []byte {
	buf = append(buf, dateSectionSize, TagDate)
	buf = binary.BigEndian.AppendUint32(buf, uint32(now.Nanosecond()/int(time.Millisecond)))
	buf = append(
		buf,
		byte(now.Second()),
		byte(now.Minute()),
		byte(now.Hour()),
		byte(now.Day()),
		byte(now.Month()-1),
		byte(now.Year()-1900),
	)
	if len(tz) > 254 {
		tz = tz[:254]
	}
	buf = append(buf, byte(len(tz)+1), TagTimezone)
	buf = append(buf, tz...)
	return buf
}

func appendJoysticks(buf []byte, joysticks []protocol.Joystick) []byte {
	for _, js := range joysticks {
		buttonBytes := (len(js.Buttons) + 7) / 8
		size := 1 + 1 + len(js.Axes) + 1 + buttonBytes + 1 + 2*len(js.Hats)
		buf = append(buf, byte(size), TagJoystick)
		buf = append(buf, byte(len(js.Axes)))
		for _, axis := range js.Axes {
			buf = append(buf, byte(protocol.AxisToInt8(axis)))
		}
		buf = append(buf, byte(len(js.Buttons)))
		buttons := make([]byte, buttonBytes)
		for idx, pressed := range js.Buttons {
			if pressed {
				// Button 0 is the least significant bit of the last byte
				buttons[buttonBytes-1-idx/8] |= 1 << (idx % 8)
			}
		}
		buf = append(buf, buttons...)
		buf = append(buf, byte(len(js.Hats)))
		for _, hat := range js.Hats {
			buf = binary.BigEndian.AppendUint16(buf, uint16(int16(hat)))
		}
	}
	return buf
}

// DecodeRobotPacket parses a status frame received from the robot
func (d *Descriptor) DecodeRobotPacket(data []byte) (protocol.RobotStatus, error) {
	if len(data) < statusHeaderSize {
		return protocol.RobotStatus{}, fmt.Errorf(
			"%w: %s: status frame too short (%d bytes)",
			protocol.ErrMalformedPacket,
			d.name,
			len(data),
		)
	}
	control := data[3]
	ret := protocol.RobotStatus{
		EmergencyStop:   control&ControlEmergencyStop > 0,
		Enabled:         control&ControlEnabled > 0,
		Mode:            modeFromControl(control),
		CodePresent:     data[4]&StatusHasCode > 0,
		Voltage:         DecodeVoltage(data[5], data[6]),
		RequestDateTime: data[7] == RequestDateTime,
		Usage:           protocol.NoUsage(),
	}
	// Tagged sections: [size][tag][payload], size counts the tag and payload
	offset := statusHeaderSize
	for offset < len(data) {
		size := int(data[offset])
		if size == 0 || offset+1+size > len(data) {
			return protocol.RobotStatus{}, fmt.Errorf(
				"%w: %s: section at offset %d overruns frame",
				protocol.ErrMalformedPacket,
				d.name,
				offset,
			)
		}
		tag := data[offset+1]
		payload := data[offset+2 : offset+1+size]
		if len(payload) > 0 {
			value := int(payload[0])
			switch tag {
			case TagCPUInfo:
				ret.Usage.CPU = value
			case TagRAMInfo:
				ret.Usage.RAM = value
			case TagDiskInfo:
				ret.Usage.Disk = value
			case TagCANInfo:
				ret.Usage.CAN = value
			}
		}
		offset += 1 + size
	}
	return ret, nil
}

// EncodeStatusPacket builds a status frame the way the robot sends it
func (d *Descriptor) EncodeStatusPacket(status protocol.RobotStatus, seq uint16) []byte {
	buf := make([]byte, statusHeaderSize, 24)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	buf[2] = TagGeneral
	buf[3] = controlByte(protocol.ControlState{
		Mode:          status.Mode,
		Enabled:       status.Enabled,
		EmergencyStop: status.EmergencyStop,
	})
	if status.CodePresent {
		buf[4] = StatusHasCode
	}
	buf[5], buf[6] = EncodeVoltage(status.Voltage)
	if status.RequestDateTime {
		buf[7] = RequestDateTime
	}
	usage := []struct {
		tag   byte
		value int
	}{
		{TagCPUInfo, status.Usage.CPU},
		{TagRAMInfo, status.Usage.RAM},
		{TagDiskInfo, status.Usage.Disk},
		{TagCANInfo, status.Usage.CAN},
	}
	for _, u := range usage {
		if u.value < 0 {
			continue
		}
		buf = append(buf, 2, u.tag, byte(min(u.value, 255)))
	}
	return buf
}

// EncodeFMSPacket builds the status frame sent to the FMS
func (d *Descriptor) EncodeFMSPacket(state protocol.ControlState, seq uint16) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	buf[2] = fmsVersion
	control := controlByte(protocol.ControlState{
		Mode:          state.Mode,
		Enabled:       state.Enabled,
		EmergencyStop: state.EmergencyStop,
	})
	if state.RadioComms {
		control |= FMSRadioPing
	}
	if state.RobotComms {
		control |= FMSRobotComms | FMSRobotPing
	}
	buf[3] = control
	binary.BigEndian.PutUint16(buf[4:6], uint16(state.Team))
	voltage := protocol.RoundVoltage(state.Voltage, 255)
	integer := math.Floor(voltage)
	buf[6] = byte(integer)
	buf[7] = byte(math.Round((voltage - integer) * 100))
	return buf
}

// DecodeFMSPacket parses a control frame received from the FMS
func (d *Descriptor) DecodeFMSPacket(data []byte) (protocol.FMSCommand, error) {
	if len(data) < fmsCommandSize {
		return protocol.FMSCommand{}, fmt.Errorf(
			"%w: %s: fms frame too short (%d bytes)",
			protocol.ErrMalformedPacket,
			d.name,
			len(data),
		)
	}
	control := data[3]
	station, err := protocol.StationFromIndex(data[5])
	if err != nil {
		return protocol.FMSCommand{}, fmt.Errorf(
			"%w: %s: %w",
			protocol.ErrMalformedPacket,
			d.name,
			err,
		)
	}
	return protocol.FMSCommand{
		Enabled:       control&ControlEnabled > 0,
		EmergencyStop: control&ControlEmergencyStop > 0,
		Mode:          modeFromControl(control),
		Station:       station,
	}, nil
}

// EncodeFMSCommand builds a control frame the way the FMS sends it
func (d *Descriptor) EncodeFMSCommand(cmd protocol.FMSCommand, seq uint16) []byte {
	buf := make([]byte, fmsCommandSize)
	binary.BigEndian.PutUint16(buf[0:2], seq)
	buf[2] = fmsVersion
	buf[3] = controlByte(protocol.ControlState{
		Mode:          cmd.Mode,
		Enabled:       cmd.Enabled,
		EmergencyStop: cmd.EmergencyStop,
	})
	buf[5] = cmd.Station.Index()
	return buf
}

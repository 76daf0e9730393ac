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

package frc2015_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/protocol/frc2015"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	d := frc2015.New()
	assert.Equal(t, "2015", d.Id())
	assert.Equal(t, "FRC 2015", d.Name())
	assert.Equal(
		t,
		[]string{"roboRIO-118.local", "10.1.18.2", "172.22.11.2"},
		d.RobotAddresses(118),
	)
	assert.Equal(t, "10.1.18.1", d.RadioAddress(118))
	timing := d.Timing()
	assert.Equal(t, 20*time.Millisecond, timing.RobotInterval)
	assert.Equal(t, 500*time.Millisecond, timing.FMSInterval)
	assert.Equal(t, time.Second, timing.RobotTimeout)
	assert.Equal(t, time.Second, timing.FMSTimeout)
	ports := d.Ports()
	assert.Equal(t, 1110, ports.RobotRemote)
	assert.Equal(t, 1150, ports.RobotLocal)
	assert.Equal(t, 1160, ports.FMSRemote)
	assert.Equal(t, 1120, ports.FMSLocal)
	assert.Equal(t, 6666, ports.NetConsoleLocal)
	assert.Equal(t, 13.0, d.MaxVoltage())
}

func TestEncodeRobotPacketHeader(t *testing.T) {
	d := frc2015.New()
	testDefs := []struct {
		name     string
		state    protocol.ControlState
		expected []byte
	}{
		{
			name:     "no comms",
			state:    protocol.ControlState{Station: protocol.DefaultStation},
			expected: []byte{0x00, 0x07, 0x01, 0x00, 0x00, 0x00},
		},
		{
			name: "teleop enabled blue 2",
			state: protocol.ControlState{
				Enabled:    true,
				RobotComms: true,
				Station:    protocol.Station{Alliance: protocol.AllianceBlue, Position: 2},
			},
			expected: []byte{0x00, 0x07, 0x01, 0x04, 0x80, 0x04},
		},
		{
			name: "autonomous fms reboot",
			state: protocol.ControlState{
				Mode:        protocol.ControlModeAutonomous,
				FMSAttached: true,
				RobotComms:  true,
				RebootRobot: true,
				RestartCode: true,
				Station:     protocol.Station{Alliance: protocol.AllianceRed, Position: 3},
			},
			expected: []byte{0x00, 0x07, 0x01, 0x0a, 0x08, 0x02},
		},
		{
			name: "test restart code",
			state: protocol.ControlState{
				Mode:        protocol.ControlModeTest,
				RobotComms:  true,
				RestartCode: true,
				Station:     protocol.DefaultStation,
			},
			expected: []byte{0x00, 0x07, 0x01, 0x01, 0x04, 0x00},
		},
		{
			name: "emergency stop masks enabled",
			state: protocol.ControlState{
				Enabled:       true,
				EmergencyStop: true,
				RobotComms:    true,
				Station:       protocol.DefaultStation,
			},
			expected: []byte{0x00, 0x07, 0x01, 0x80, 0x80, 0x00},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			data := d.EncodeRobotPacket(testDef.state, 7)
			assert.Equal(t, testDef.expected, data)
			// Identical input produces identical output
			assert.Equal(t, data, d.EncodeRobotPacket(testDef.state, 7))
		})
	}
}

func TestEncodeRobotPacketJoysticks(t *testing.T) {
	d := frc2015.New()
	state := protocol.ControlState{
		RobotComms: true,
		Station:    protocol.DefaultStation,
		Joysticks: []protocol.Joystick{
			{
				Axes:    []float64{1, -1, 0},
				Buttons: []bool{true, false, false, false, false, false, false, false, false, true},
				Hats:    []int{-1},
			},
		},
	}
	// No joystick data until enough packets have been sent
	assert.Len(t, d.EncodeRobotPacket(state, 0), 6)
	state.SentPackets = 6
	data := d.EncodeRobotPacket(state, 0)
	expected := []byte{
		0x0b, 0x0c,
		0x03, 0x7f, 0x81, 0x00,
		0x0a, 0x02, 0x01,
		0x01, 0xff, 0xff,
	}
	assert.Equal(t, expected, data[6:])
	assert.Equal(t, len(data)-7, int(data[6]))
}

func TestEncodeRobotPacketJoystickLimits(t *testing.T) {
	d := frc2015.New()
	js := protocol.Joystick{
		Axes:    make([]float64, 10),
		Buttons: make([]bool, 20),
		Hats:    []int{0, 90, 180},
	}
	state := protocol.ControlState{
		RobotComms:  true,
		Station:     protocol.DefaultStation,
		SentPackets: 100,
		Joysticks:   []protocol.Joystick{js, js, js, js, js, js, js, js},
	}
	data := d.EncodeRobotPacket(state, 0)
	// 6 sticks of 6 axes, 10 buttons in 2 bytes and 1 hat
	sectionLen := 2 + 1 + 6 + 1 + 2 + 1 + 2
	assert.Len(t, data, 6+6*sectionLen)
}

func TestEncodeRobotPacketDateTime(t *testing.T) {
	d := frc2015.New()
	now := time.Date(2016, time.March, 5, 14, 30, 15, 250*int(time.Millisecond), time.UTC)
	state := protocol.ControlState{
		RobotComms:   true,
		Station:      protocol.DefaultStation,
		SendDateTime: true,
		SentPackets:  100,
		Time:         now,
		Timezone:     "UTC",
		Joysticks:    []protocol.Joystick{{Axes: []float64{0}}},
	}
	data := d.EncodeRobotPacket(state, 0)
	expected := []byte{
		0x0b, 0x0f,
		0x00, 0x00, 0x00, 0xfa,
		15, 30, 14, 5, 2, 116,
		0x04, 0x10, 'U', 'T', 'C',
	}
	assert.Equal(t, expected, data[6:])
}

func TestStatusRoundTrip(t *testing.T) {
	d := frc2015.New()
	status := protocol.RobotStatus{
		Enabled:         true,
		Mode:            protocol.ControlModeAutonomous,
		CodePresent:     true,
		Voltage:         12.5,
		RequestDateTime: true,
		Usage:           protocol.Usage{CPU: 42, RAM: 17, Disk: -1, CAN: 3},
	}
	data := d.EncodeStatusPacket(status, 1)
	decoded, err := d.DecodeRobotPacket(data)
	require.NoError(t, err)
	assert.Equal(t, status, decoded)
	status = protocol.RobotStatus{
		EmergencyStop: true,
		Voltage:       11.75,
		Usage:         protocol.NoUsage(),
	}
	decoded, err = d.DecodeRobotPacket(d.EncodeStatusPacket(status, 2))
	require.NoError(t, err)
	assert.Equal(t, status, decoded)
}

func TestDecodeRobotPacket(t *testing.T) {
	d := frc2015.New()
	data := []byte{0x00, 0x01, 0x01, 0x80, 0x20, 0x0c, 0x40, 0x00}
	status, err := d.DecodeRobotPacket(data)
	require.NoError(t, err)
	assert.True(t, status.EmergencyStop)
	assert.True(t, status.CodePresent)
	assert.False(t, status.RequestDateTime)
	assert.InDelta(t, 12.25, status.Voltage, 0.001)
	assert.Equal(t, protocol.NoUsage(), status.Usage)
	// Unknown sections are skipped
	data = append(data, 0x03, 0x22, 0x01, 0x02, 0x02, 0x05, 0x33)
	status, err = d.DecodeRobotPacket(data)
	require.NoError(t, err)
	assert.Equal(t, 0x33, status.Usage.CPU)
}

func TestDecodeRobotPacketMalformed(t *testing.T) {
	d := frc2015.New()
	testDefs := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short", data: []byte{0x00, 0x01, 0x01, 0x00, 0x20, 0x0c, 0x40}},
		{name: "section overrun", data: []byte{0x00, 0x01, 0x01, 0x00, 0x20, 0x0c, 0x40, 0x00, 0x05, 0x05, 0x10}},
		{name: "zero size section", data: []byte{0x00, 0x01, 0x01, 0x00, 0x20, 0x0c, 0x40, 0x00, 0x00}},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := d.DecodeRobotPacket(testDef.data)
			assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
		})
	}
}

func TestFMSPacket(t *testing.T) {
	d := frc2015.New()
	state := protocol.ControlState{
		Team:       3794,
		Mode:       protocol.ControlModeAutonomous,
		Enabled:    true,
		RobotComms: true,
		RadioComms: true,
		Voltage:    12.34,
	}
	data := d.EncodeFMSPacket(state, 0x0102)
	assert.Equal(
		t,
		[]byte{0x01, 0x02, 0x00, 0x3e, 0x0e, 0xd2, 12, 34},
		data,
	)
}

func TestFMSCommandRoundTrip(t *testing.T) {
	d := frc2015.New()
	cmd := protocol.FMSCommand{
		Enabled: true,
		Mode:    protocol.ControlModeTest,
		Station: protocol.Station{Alliance: protocol.AllianceBlue, Position: 3},
	}
	data := d.EncodeFMSCommand(cmd, 5)
	assert.Len(t, data, 22)
	decoded, err := d.DecodeFMSPacket(data)
	require.NoError(t, err)
	assert.Equal(t, cmd, decoded)
	_, err = d.DecodeFMSPacket(data[:21])
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
	data[5] = 6
	_, err = d.DecodeFMSPacket(data)
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
}

func TestVoltage(t *testing.T) {
	integer, fraction := frc2015.EncodeVoltage(12.5)
	assert.Equal(t, byte(12), integer)
	assert.Equal(t, byte(128), fraction)
	assert.InDelta(t, 12.5, frc2015.DecodeVoltage(integer, fraction), 0.0001)
	integer, fraction = frc2015.EncodeVoltage(12.999)
	assert.Equal(t, byte(13), integer)
	assert.Equal(t, byte(0), fraction)
	integer, fraction = frc2015.EncodeVoltage(-3)
	assert.Equal(t, byte(0), integer)
	assert.Equal(t, byte(0), fraction)
}

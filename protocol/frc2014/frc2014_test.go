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

package frc2014_test

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/protocol/frc2014"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	d := frc2014.New()
	assert.Equal(t, "2014", d.Id())
	assert.Equal(t, "FRC 2014", d.Name())
	assert.Equal(t, []string{"10.1.18.2"}, d.RobotAddresses(118))
	assert.Equal(t, "10.1.18.1", d.RadioAddress(118))
	assert.Zero(t, d.Ports().NetConsoleLocal)
	assert.Nil(t, d.EncodeFMSPacket(protocol.ControlState{Team: 118}, 0))
}

func TestEncodeRobotPacket(t *testing.T) {
	d := frc2014.New()
	state := protocol.ControlState{
		Team:       3794,
		Mode:       protocol.ControlModeAutonomous,
		Enabled:    true,
		RobotComms: true,
		Resync:     true,
		Station:    protocol.Station{Alliance: protocol.AllianceBlue, Position: 2},
		Joysticks: []protocol.Joystick{
			{
				Axes:    []float64{1, -1},
				Buttons: []bool{true, false, true},
			},
		},
	}
	data := d.EncodeRobotPacket(state, 0x0203)
	require.Len(t, data, frc2014.FrameSize)
	assert.Equal(
		t,
		[]byte{0x02, 0x03, 0x74, 0x00, 0x0e, 0xd2, 'B', '2'},
		data[:8],
	)
	assert.Equal(t, []byte{0x7f, 0x81, 0, 0, 0, 0, 0x00, 0x05}, data[8:16])
	assert.Equal(t, "14021700", string(data[72:80]))
	// The checksum covers the frame with the checksum field zeroed
	tmp := append([]byte{}, data...)
	clear(tmp[1020:])
	assert.Equal(t, crc32.ChecksumIEEE(tmp), binary.BigEndian.Uint32(data[1020:]))
	assert.Equal(t, data, d.EncodeRobotPacket(state, 0x0203))
}

func TestControlByte(t *testing.T) {
	d := frc2014.New()
	testDefs := []struct {
		name     string
		state    protocol.ControlState
		expected byte
	}{
		{
			name:     "teleop disabled",
			state:    protocol.ControlState{Station: protocol.DefaultStation},
			expected: 0x40,
		},
		{
			name:     "test enabled with fms",
			state:    protocol.ControlState{Mode: protocol.ControlModeTest, Enabled: true, FMSAttached: true, Station: protocol.DefaultStation},
			expected: 0x6a,
		},
		{
			name:     "emergency stop",
			state:    protocol.ControlState{Enabled: true, EmergencyStop: true, Resync: true, Station: protocol.DefaultStation},
			expected: 0x00,
		},
		{
			name:     "reboot",
			state:    protocol.ControlState{RebootRobot: true, Station: protocol.DefaultStation},
			expected: 0x80,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			assert.Equal(t, testDef.expected, d.EncodeRobotPacket(testDef.state, 0)[2])
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	d := frc2014.New()
	status := protocol.RobotStatus{
		Enabled:     true,
		Mode:        protocol.ControlModeTest,
		CodePresent: true,
		Voltage:     12.34,
		Usage:       protocol.NoUsage(),
	}
	data := d.EncodeStatusPacket(status, 0)
	assert.Equal(t, []byte{0x62, 0x12, 0x34}, data[:3])
	decoded, err := d.DecodeRobotPacket(data)
	require.NoError(t, err)
	assert.Equal(t, status, decoded)
	decoded, err = d.DecodeRobotPacket(d.EncodeStatusPacket(protocol.RobotStatus{EmergencyStop: true}, 0))
	require.NoError(t, err)
	assert.True(t, decoded.EmergencyStop)
	assert.False(t, decoded.Enabled)
}

func TestDecodeRobotPacketMalformed(t *testing.T) {
	d := frc2014.New()
	data := d.EncodeStatusPacket(protocol.RobotStatus{Voltage: 12}, 0)
	_, err := d.DecodeRobotPacket(data[:1000])
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
	_, err = d.DecodeRobotPacket(nil)
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
}

func TestDecodeRobotPacketFrameVariants(t *testing.T) {
	d := frc2014.New()
	sealed := d.EncodeStatusPacket(protocol.RobotStatus{Enabled: true, Voltage: 12.5}, 0)
	long := make([]byte, 1152)
	copy(long, sealed)
	unsealed := make([]byte, frc2014.FrameSize)
	copy(unsealed[:3], []byte{0x60, 0x12, 0x50})
	testDefs := []struct {
		name string
		data []byte
	}{
		{name: "sealed", data: sealed},
		{name: "longer than the minimum", data: long},
		{name: "no checksum", data: unsealed},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			status, err := d.DecodeRobotPacket(testDef.data)
			require.NoError(t, err)
			assert.True(t, status.Enabled)
			assert.Equal(t, protocol.ControlModeTeleoperated, status.Mode)
			assert.InDelta(t, 12.5, status.Voltage, 0.001)
		})
	}
}

func TestBCD(t *testing.T) {
	integer, fraction := frc2014.EncodeBCD(9.5)
	assert.Equal(t, byte(0x09), integer)
	assert.Equal(t, byte(0x50), fraction)
	assert.InDelta(t, 12.34, frc2014.DecodeBCD(0x12, 0x34), 0.0001)
}

func TestFMSCommandRoundTrip(t *testing.T) {
	d := frc2014.New()
	cmd := protocol.FMSCommand{
		Enabled: true,
		Mode:    protocol.ControlModeAutonomous,
		Station: protocol.Station{Alliance: protocol.AllianceRed, Position: 3},
	}
	decoded, err := d.DecodeFMSPacket(d.EncodeFMSCommand(cmd, 1))
	require.NoError(t, err)
	assert.Equal(t, cmd, decoded)
	_, err = d.DecodeFMSPacket([]byte{0, 0, 0x40, 'X', '1'})
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
	_, err = d.DecodeFMSPacket([]byte{0, 0, 0x40, 'R', '4'})
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
	_, err = d.DecodeFMSPacket([]byte{0, 0, 0x40, 'R'})
	assert.ErrorIs(t, err, protocol.ErrMalformedPacket)
}

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

package frc2016_test

import (
	"testing"

	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/protocol/frc2015"
	"github.com/blinklabs-io/godriverstation/protocol/frc2016"
	"github.com/stretchr/testify/assert"
)

func TestDescriptor(t *testing.T) {
	d := frc2016.New()
	assert.Equal(t, "2016", d.Id())
	assert.Equal(t, "FRC 2016", d.Name())
	assert.Equal(
		t,
		[]string{"roboRIO-118-FRC.local", "10.1.18.2", "172.22.11.2"},
		d.RobotAddresses(118),
	)
	assert.Equal(t, "10.1.18.1", d.RadioAddress(118))
}

func TestFramingMatches2015(t *testing.T) {
	state := protocol.ControlState{
		Team:        118,
		Mode:        protocol.ControlModeAutonomous,
		Enabled:     true,
		RobotComms:  true,
		Station:     protocol.Station{Alliance: protocol.AllianceBlue, Position: 1},
		SentPackets: 10,
		Joysticks: []protocol.Joystick{
			{Axes: []float64{0.5}, Buttons: []bool{true}},
		},
	}
	assert.Equal(
		t,
		frc2015.New().EncodeRobotPacket(state, 42),
		frc2016.New().EncodeRobotPacket(state, 42),
	)
}

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

package discovery_test

import (
	"testing"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	robot []string
	radio string
}

func (s staticSource) RobotAddresses(team uint) []string {
	return s.robot
}

func (s staticSource) RadioAddress(team uint) string {
	return s.radio
}

func TestStaticIP(t *testing.T) {
	testDefs := []struct {
		team     uint
		host     uint8
		expected string
	}{
		{team: 118, host: discovery.RobotHost, expected: "10.1.18.2"},
		{team: 3794, host: discovery.RadioHost, expected: "10.37.94.1"},
		{team: 5, host: discovery.RobotHost, expected: "10.0.5.2"},
		{team: 0, host: discovery.RobotHost, expected: "10.0.0.2"},
		{team: 9999, host: discovery.RobotHost, expected: "10.99.99.2"},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.expected, discovery.StaticIP(testDef.team, testDef.host))
	}
}

func TestResolveRobotAddress(t *testing.T) {
	src := staticSource{
		robot: []string{"roboRIO-118-FRC.local", "10.1.18.2", "", "10.1.18.2", discovery.USBAddress},
		radio: "10.1.18.1",
	}
	r := discovery.NewResolver("")
	assert.Equal(
		t,
		[]string{"roboRIO-118-FRC.local", "10.1.18.2", discovery.USBAddress},
		r.ResolveRobotAddress(118, src),
	)
	assert.Equal(t, "10.1.18.1", r.ResolveRadioAddress(118, src))
	r.SetCustomAddress(" 192.168.1.50 ")
	assert.Equal(t, "192.168.1.50", r.CustomAddress())
	assert.Equal(t, []string{"192.168.1.50"}, r.ResolveRobotAddress(118, src))
	// The radio address is not affected by the override
	assert.Equal(t, "10.1.18.1", r.ResolveRadioAddress(118, src))
	r.SetCustomAddress("")
	assert.Len(t, r.ResolveRobotAddress(118, src), 3)
	assert.Nil(t, r.ResolveRobotAddress(118, nil))
}

func TestValidateTeamNumber(t *testing.T) {
	assert.NoError(t, discovery.ValidateTeamNumber(0))
	assert.NoError(t, discovery.ValidateTeamNumber(discovery.MaxTeamNumber))
	assert.Equal(t, "10.255.99.2", discovery.StaticIP(discovery.MaxTeamNumber, discovery.RobotHost))
	assert.ErrorIs(t, discovery.ValidateTeamNumber(discovery.MaxTeamNumber+1), discovery.ErrInvalidTeamNumber)
	assert.ErrorIs(t, discovery.ValidateTeamNumber(30000), discovery.ErrInvalidTeamNumber)
}

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

package driverstation_test

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/internal/test/robot_mock"
	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	waitTimeout  = 2 * time.Second
	waitInterval = 10 * time.Millisecond
)

type eventLog struct {
	mutex  sync.Mutex
	events []driverstation.Event
}

func (l *eventLog) handle(evt driverstation.Event) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.events = append(l.events, evt)
}

func (l *eventLog) ofType(eventType driverstation.EventType) []driverstation.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	var ret []driverstation.Event
	for _, evt := range l.events {
		if evt.Type == eventType {
			ret = append(ret, evt)
		}
	}
	return ret
}

var noLookup = discovery.LookupFunc(
	func(ctx context.Context, host string) (netip.Addr, error) {
		return netip.Addr{}, discovery.ErrHostNotFound
	},
)

func newDriverStation(
	t *testing.T,
	factory *robot_mock.Factory,
	options ...driverstation.DriverStationOptionFunc,
) (*driverstation.DriverStation, *eventLog) {
	t.Helper()
	events := &eventLog{}
	options = append(
		[]driverstation.DriverStationOptionFunc{
			driverstation.WithTeam(118),
			driverstation.WithCustomAddress(robot_mock.MockRobotAddress.Addr().String()),
			driverstation.WithTransportFunc(factory.New),
			driverstation.WithLookup(noLookup),
			driverstation.WithEventFunc(events.handle),
		},
		options...,
	)
	ds, err := driverstation.New(options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ds.Close()
	})
	return ds, events
}

func waitConnected(t *testing.T, ds *driverstation.DriverStation) {
	t.Helper()
	require.Eventually(
		t,
		func() bool {
			return ds.Status().State == protocol.StateConnectedHealthy
		},
		waitTimeout,
		waitInterval,
	)
}

func TestConnectToRobot(t *testing.T) {
	defer goleak.VerifyNone(t)
	robot := robot_mock.NewRobot(driverstation.ProtocolFRC2016)
	factory := robot_mock.NewFactory(robot_mock.WithRobot(robot))
	ds, _ := newDriverStation(t, factory)
	waitConnected(t, ds)
	status := ds.Status()
	assert.Equal(t, "FRC 2016", status.Protocol)
	assert.Equal(t, uint(118), status.Team)
	assert.True(t, status.RobotComms)
	assert.True(t, status.RobotCode)
	assert.InDelta(t, 12.5, status.Voltage, 0.01)
	assert.Equal(t, robot_mock.MockRobotAddress.Addr().String(), status.RobotAddress)
	// The robot channel, the FMS channel and NetConsole are bound once
	require.Len(t, factory.Transports(), 1)
	tr := factory.Last()
	assert.Equal(t, 1, tr.RebindCount())
	bindings := tr.Bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, transport.ChannelRobot, bindings[0].Channel)
	assert.Equal(t, 1150, bindings[0].LocalPort)
	assert.Equal(t, 1110, bindings[0].RemotePort)
	assert.Equal(t, transport.ChannelFMS, bindings[1].Channel)
	assert.Equal(t, transport.ChannelNetConsole, bindings[2].Channel)
	require.NoError(t, ds.Close())
	assert.True(t, tr.Closed())
}

func TestEnableAndEmergencyStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	robot := robot_mock.NewRobot(driverstation.ProtocolFRC2016)
	factory := robot_mock.NewFactory(robot_mock.WithRobot(robot))
	ds, events := newDriverStation(t, factory)
	waitConnected(t, ds)
	require.NoError(t, ds.SetEnabled(true))
	require.Eventually(
		t,
		func() bool { return ds.Status().Enabled },
		waitTimeout,
		waitInterval,
	)
	require.NoError(t, ds.RequestEmergencyStop())
	require.Eventually(
		t,
		func() bool {
			status := ds.Status()
			return status.EmergencyStop && !status.Enabled
		},
		waitTimeout,
		waitInterval,
	)
	// Enabling is refused until the session restarts
	require.NoError(t, ds.SetEnabled(true))
	require.Eventually(
		t,
		func() bool {
			for _, evt := range events.ofType(protocol.EventTypeCommandRejected) {
				if errors.Is(evt.Err, protocol.ErrEmergencyStopped) {
					return true
				}
			}
			return false
		},
		waitTimeout,
		waitInterval,
	)
	assert.False(t, ds.Status().Enabled)
	require.NoError(t, ds.Close())
}

func TestSetTeamNumberRebindsOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	factory := robot_mock.NewFactory()
	ds, events := newDriverStation(t, factory)
	require.NoError(t, ds.SetTeamNumber(254))
	assert.Equal(t, uint(254), ds.TeamNumber())
	assert.Equal(t, uint(254), ds.Status().Team)
	transports := factory.Transports()
	require.Len(t, transports, 2)
	assert.True(t, transports[0].Closed())
	assert.Equal(t, 1, transports[0].RebindCount())
	assert.Equal(t, 1, transports[1].RebindCount())
	// Unchanged team number is a no-op
	require.NoError(t, ds.SetTeamNumber(254))
	assert.Len(t, factory.Transports(), 2)
	teamEvents := events.ofType(protocol.EventTypeTeamNumberChanged)
	require.Len(t, teamEvents, 1)
	assert.Equal(t, uint(254), teamEvents[0].Team)
	require.NoError(t, ds.Close())
}

func TestSetProtocol(t *testing.T) {
	defer goleak.VerifyNone(t)
	factory := robot_mock.NewFactory()
	ds, events := newDriverStation(t, factory)
	assert.Equal(t, driverstation.DefaultProtocol, ds.Protocol())
	require.NoError(t, ds.SetProtocol("FRC 2014"))
	assert.Equal(t, driverstation.ProtocolFRC2014, ds.Protocol())
	assert.Equal(t, "FRC 2014", ds.Status().Protocol)
	transports := factory.Transports()
	require.Len(t, transports, 2)
	assert.Equal(t, 1, transports[1].RebindCount())
	// No NetConsole socket for 2014
	bindings := transports[1].Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, 1150, bindings[0].LocalPort)
	assert.Equal(t, 1110, bindings[0].RemotePort)
	protocolEvents := events.ofType(protocol.EventTypeProtocolChanged)
	require.Len(t, protocolEvents, 1)
	assert.Equal(t, "FRC 2014", protocolEvents[0].Message)
	err := ds.SetProtocol("FRC 2099")
	assert.Error(t, err)
	assert.Len(t, factory.Transports(), 2)
	require.NoError(t, ds.Close())
}

func TestInvalidTeamNumber(t *testing.T) {
	defer goleak.VerifyNone(t)
	factory := robot_mock.NewFactory()
	_, err := driverstation.New(
		driverstation.WithTeam(30000),
		driverstation.WithTransportFunc(factory.New),
		driverstation.WithLookup(noLookup),
	)
	require.ErrorIs(t, err, discovery.ErrInvalidTeamNumber)
	assert.Empty(t, factory.Transports())
	ds, events := newDriverStation(t, factory)
	require.ErrorIs(t, ds.SetTeamNumber(30000), discovery.ErrInvalidTeamNumber)
	assert.Equal(t, uint(118), ds.TeamNumber())
	assert.Len(t, factory.Transports(), 1)
	assert.Empty(t, events.ofType(protocol.EventTypeTeamNumberChanged))
	// The largest team with a static address is accepted
	require.NoError(t, ds.SetTeamNumber(discovery.MaxTeamNumber))
	assert.Equal(t, uint(discovery.MaxTeamNumber), ds.Status().Team)
	require.NoError(t, ds.Close())
}

func TestBindFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	bindErr := errors.New("address already in use")
	factory := robot_mock.NewFactory(robot_mock.WithBindError(bindErr))
	events := &eventLog{}
	ds, err := driverstation.New(
		driverstation.WithTeam(118),
		driverstation.WithTransportFunc(factory.New),
		driverstation.WithLookup(noLookup),
		driverstation.WithEventFunc(events.handle),
	)
	assert.Nil(t, ds)
	require.ErrorIs(t, err, transport.ErrBindFailed)
	require.ErrorIs(t, err, bindErr)
	require.Len(t, factory.Transports(), 1)
	assert.Equal(t, 1, factory.Last().RebindCount())
	assert.True(t, factory.Last().Closed())
	bindEvents := events.ofType(protocol.EventTypeBindFailed)
	require.Len(t, bindEvents, 1)
	assert.ErrorIs(t, bindEvents[0].Err, transport.ErrBindFailed)
}

func TestCommandsWithoutProtocol(t *testing.T) {
	defer goleak.VerifyNone(t)
	robot := robot_mock.NewRobot(driverstation.ProtocolFRC2016)
	factory := robot_mock.NewFactory(robot_mock.WithRobot(robot))
	ds, events := newDriverStation(t, factory)
	require.NoError(t, ds.Close())
	// Close is idempotent
	require.NoError(t, ds.Close())
	err := ds.SetEnabled(true)
	require.ErrorIs(t, err, protocol.ErrRejectedCommand)
	require.ErrorIs(t, err, protocol.ErrNoActiveProtocol)
	rejected := events.ofType(protocol.EventTypeCommandRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, protocol.CommandTypeSetEnabled, rejected[0].Command.Type)
	status := ds.Status()
	assert.Equal(t, protocol.StateIdle, status.State)
	assert.Equal(t, uint(118), status.Team)
	assert.ErrorIs(t, ds.SetTeamNumber(254), protocol.ErrEngineShuttingDown)
	// The event channel is closed
	for range ds.Events() {
	}
}

func TestUnknownProtocol(t *testing.T) {
	_, err := driverstation.New(
		driverstation.WithProtocol("FRC 1999"),
		driverstation.WithTransportFunc(robot_mock.NewFactory().New),
	)
	assert.Error(t, err)
}

func TestProtocolByName(t *testing.T) {
	testDefs := []struct {
		name     string
		expected protocol.Descriptor
	}{
		{name: "2016", expected: driverstation.ProtocolFRC2016},
		{name: "frc 2015", expected: driverstation.ProtocolFRC2015},
		{name: " FRC 2014 ", expected: driverstation.ProtocolFRC2014},
	}
	for _, testDef := range testDefs {
		desc, ok := driverstation.ProtocolByName(testDef.name)
		if !ok {
			t.Fatalf("did not find protocol: %q", testDef.name)
		}
		if desc != testDef.expected {
			t.Errorf(
				"did not get expected protocol for %q: got %s, expected %s",
				testDef.name,
				desc.Name(),
				testDef.expected.Name(),
			)
		}
	}
	if _, ok := driverstation.ProtocolByName("2017"); ok {
		t.Errorf("unexpectedly found protocol 2017")
	}
	protocols := driverstation.Protocols()
	require.Len(t, protocols, 3)
	assert.Equal(t, "2016", protocols[0].Id())
}

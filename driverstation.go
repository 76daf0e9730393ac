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

// Package driverstation implements an FRC driver station session: it talks to a
// robot controller (and optionally the field management system) using one of the
// supported protocol versions, infers the connection status from the packets it
// receives and makes sure the robot is never left enabled without communications.
//
// The DriverStation type is the main entry point into this library. Operator
// commands are queued to the protocol engine without blocking and status changes
// are reported as events.
package driverstation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/transport"
)

const DefaultEventBufferSize = 256

// TransportFunc creates the transport for a protocol instance. A new transport is
// created every time the protocol or team number changes
type TransportFunc func() transport.Transport

// DriverStation manages the protocol engine for the selected protocol and team number
type DriverStation struct {
	logger          *slog.Logger
	resolver        *discovery.Resolver
	lookup          discovery.Lookup
	transportFunc   TransportFunc
	eventFunc       EventFunc
	eventChan       chan Event
	eventBufferSize int
	eventMutex      sync.RWMutex
	eventsClosed    bool
	practice        protocol.PracticeTimings
	timing          protocol.Timing
	timezone        string
	now             func() time.Time
	customAddress   string
	protocolName    string
	// Serializes protocol rebuilds and Close
	mutex     sync.Mutex
	transport transport.Transport
	closed    bool
	onceClose sync.Once
	// Read without holding mutex
	stateMutex sync.RWMutex
	team       uint
	desc       protocol.Descriptor
	station    protocol.Station
	engine     atomic.Pointer[protocol.Engine]
}

// New returns a DriverStation with the specified options and starts the protocol
// engine. An error is returned if the protocol is unknown or its sockets cannot be bound
func New(options ...DriverStationOptionFunc) (*DriverStation, error) {
	d := &DriverStation{
		eventBufferSize: DefaultEventBufferSize,
		practice:        protocol.DefaultPracticeTimings(),
		station:         protocol.DefaultStation,
		desc:            DefaultProtocol,
	}
	// Apply provided options functions
	for _, option := range options {
		option(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "driverstation")
	if d.protocolName != "" {
		desc, ok := ProtocolByName(d.protocolName)
		if !ok {
			return nil, fmt.Errorf("unknown protocol: %s", d.protocolName)
		}
		d.desc = desc
	}
	if err := discovery.ValidateTeamNumber(d.team); err != nil {
		return nil, err
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.transportFunc == nil {
		logger := d.logger
		d.transportFunc = func() transport.Transport {
			return transport.NewUDP(transport.WithLogger(logger))
		}
	}
	if d.lookup == nil {
		d.lookup = discovery.NewHostLookup(
			discovery.NewMDNS(discovery.WithMDNSLogger(d.logger)),
		)
	}
	if d.eventBufferSize <= 0 {
		d.eventBufferSize = DefaultEventBufferSize
	}
	d.eventChan = make(chan Event, d.eventBufferSize)
	d.resolver = discovery.NewResolver(d.customAddress)
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.rebuild(); err != nil {
		d.closeEvents()
		return nil, err
	}
	return d, nil
}

// Events returns the channel that events are delivered on. Events are dropped if
// the channel is full. The channel is closed by Close
func (d *DriverStation) Events() <-chan Event {
	return d.eventChan
}

// Status returns a snapshot of the session. An Idle snapshot is returned when no
// protocol engine is running
func (d *DriverStation) Status() Status {
	if engine := d.engine.Load(); engine != nil {
		return engine.Status()
	}
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return Status{
		Protocol: d.desc.Name(),
		Team:     d.team,
		State:    protocol.StateIdle,
		Station:  d.station,
	}
}

// Protocol returns the selected protocol
func (d *DriverStation) Protocol() protocol.Descriptor {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return d.desc
}

func (d *DriverStation) TeamNumber() uint {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return d.team
}

// SetTeamNumber restarts the session for a new team number. Team numbers above
// discovery.MaxTeamNumber are rejected and leave the session unchanged
func (d *DriverStation) SetTeamNumber(team uint) error {
	if err := discovery.ValidateTeamNumber(team); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return protocol.ErrEngineShuttingDown
	}
	if team == d.TeamNumber() && d.engine.Load() != nil {
		return nil
	}
	d.stateMutex.Lock()
	d.team = team
	d.stateMutex.Unlock()
	d.logger.Info("team number changed", "team", team)
	d.emit(Event{Type: protocol.EventTypeTeamNumberChanged, Team: team})
	return d.rebuild()
}

// SetProtocol restarts the session using another protocol, by id ("2016") or name ("FRC 2016")
func (d *DriverStation) SetProtocol(name string) error {
	desc, ok := ProtocolByName(name)
	if !ok {
		return fmt.Errorf("unknown protocol: %s", name)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return protocol.ErrEngineShuttingDown
	}
	if desc == d.Protocol() && d.engine.Load() != nil {
		return nil
	}
	d.stateMutex.Lock()
	d.desc = desc
	d.stateMutex.Unlock()
	d.logger.Info("protocol changed", "protocol", desc.Name())
	d.emit(Event{Type: protocol.EventTypeProtocolChanged, Message: desc.Name()})
	return d.rebuild()
}

// rebuild replaces the running engine and transport. It must be called with mutex held
func (d *DriverStation) rebuild() error {
	d.teardown()
	d.stateMutex.RLock()
	desc := d.desc
	team := d.team
	station := d.station
	d.stateMutex.RUnlock()
	tmpTransport := d.transportFunc()
	ports := desc.Ports()
	bindings := []transport.Binding{
		{
			Channel:    transport.ChannelRobot,
			LocalPort:  ports.RobotLocal,
			RemotePort: ports.RobotRemote,
		},
		{
			Channel:    transport.ChannelFMS,
			LocalPort:  ports.FMSLocal,
			RemotePort: ports.FMSRemote,
		},
	}
	if ports.NetConsoleLocal > 0 {
		bindings = append(
			bindings,
			transport.Binding{
				Channel:    transport.ChannelNetConsole,
				LocalPort:  ports.NetConsoleLocal,
				RemotePort: ports.NetConsoleRemote,
			},
		)
	}
	if err := tmpTransport.Rebind(bindings...); err != nil {
		_ = tmpTransport.Close()
		d.logger.Error(
			"failed to bind sockets",
			"protocol",
			desc.Name(),
			"error",
			err,
		)
		d.emit(Event{Type: protocol.EventTypeBindFailed, Err: err})
		return err
	}
	engine, err := protocol.New(protocol.NewConfig(
		protocol.WithDescriptor(desc),
		protocol.WithTransport(tmpTransport),
		protocol.WithResolver(d.resolver),
		protocol.WithLookup(d.lookup),
		protocol.WithLogger(d.logger),
		protocol.WithEventFunc(d.handleEngineEvent),
		protocol.WithTeam(team),
		protocol.WithStation(station),
		protocol.WithTiming(d.timing),
		protocol.WithPracticeTimings(d.practice),
		protocol.WithTimezone(d.timezone),
		protocol.WithClock(d.now),
	))
	if err != nil {
		_ = tmpTransport.Close()
		return err
	}
	d.transport = tmpTransport
	d.engine.Store(engine)
	engine.Start()
	d.logger.Info(
		"session started",
		"protocol",
		desc.Name(),
		"team",
		team,
	)
	return nil
}

// teardown stops the running engine and closes its transport. It must be called with mutex held
func (d *DriverStation) teardown() {
	if engine := d.engine.Swap(nil); engine != nil {
		engine.Stop()
		// Keep the operator's station selection for the next session
		station := engine.Status().Station
		d.stateMutex.Lock()
		d.station = station
		d.stateMutex.Unlock()
	}
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			d.logger.Warn("failed to close transport", "error", err)
		}
		d.transport = nil
	}
}

func (d *DriverStation) handleEngineEvent(evt Event) {
	d.emit(evt)
}

func (d *DriverStation) emit(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = d.now()
	}
	if d.eventFunc != nil {
		d.eventFunc(evt)
	}
	d.eventMutex.RLock()
	defer d.eventMutex.RUnlock()
	if d.eventsClosed {
		return
	}
	select {
	case d.eventChan <- evt:
	default:
		d.logger.Warn(
			"event buffer full, dropping event",
			"type",
			evt.Type.String(),
		)
	}
}

func (d *DriverStation) closeEvents() {
	d.eventMutex.Lock()
	defer d.eventMutex.Unlock()
	if d.eventsClosed {
		return
	}
	d.eventsClosed = true
	close(d.eventChan)
}

// submit forwards a command to the running engine. Failures are also reported
// with a CommandRejected event
func (d *DriverStation) submit(cmd protocol.Command) error {
	var err error
	if engine := d.engine.Load(); engine != nil {
		err = engine.Submit(cmd)
	} else {
		err = protocol.ErrNoActiveProtocol
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", protocol.ErrRejectedCommand, cmd.Type, err)
		d.emit(Event{
			Type:    protocol.EventTypeCommandRejected,
			Command: cmd,
			Err:     err,
		})
	}
	return err
}

// SetCustomAddress overrides the robot address. An empty address restores the
// protocol default addresses
func (d *DriverStation) SetCustomAddress(address string) error {
	d.resolver.SetCustomAddress(address)
	return d.submit(protocol.NewAddressChangedCommand())
}

func (d *DriverStation) CustomAddress() string {
	return d.resolver.CustomAddress()
}

// SetEnabled requests the robot to be enabled or disabled. Enabling is rejected
// without robot communications and code, or while emergency stopped
func (d *DriverStation) SetEnabled(enabled bool) error {
	return d.submit(protocol.NewSetEnabledCommand(enabled))
}

// SetControlMode changes the control mode. The robot is disabled first if needed
func (d *DriverStation) SetControlMode(mode protocol.ControlMode) error {
	return d.submit(protocol.NewSetControlModeCommand(mode))
}

func (d *DriverStation) StartAutonomous() error {
	return d.SetControlMode(protocol.ControlModeAutonomous)
}

func (d *DriverStation) StartTeleoperated() error {
	return d.SetControlMode(protocol.ControlModeTeleoperated)
}

func (d *DriverStation) StartTest() error {
	return d.SetControlMode(protocol.ControlModeTest)
}

// StartPractice selects practice mode. Enabling the robot starts the match sequence
func (d *DriverStation) StartPractice() error {
	return d.SetControlMode(protocol.ControlModePractice)
}

func (d *DriverStation) SetStation(station protocol.Station) error {
	return d.submit(protocol.NewSetStationCommand(station))
}

// RequestEmergencyStop disables the robot until the session is restarted
func (d *DriverStation) RequestEmergencyStop() error {
	return d.submit(protocol.NewEmergencyStopCommand())
}

func (d *DriverStation) RebootRobot() error {
	return d.submit(protocol.NewRebootRobotCommand())
}

func (d *DriverStation) RestartCode() error {
	return d.submit(protocol.NewRestartCodeCommand())
}

// SetJoysticks replaces the joystick inputs sent to the robot
func (d *DriverStation) SetJoysticks(joysticks []protocol.Joystick) error {
	return d.submit(protocol.NewSetJoysticksCommand(joysticks))
}

// Close stops the protocol engine, releases the sockets and closes the event channel
func (d *DriverStation) Close() error {
	var err error
	d.onceClose.Do(func() {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		d.closed = true
		if engine := d.engine.Swap(nil); engine != nil {
			engine.Stop()
		}
		if d.transport != nil {
			err = d.transport.Close()
			d.transport = nil
		}
		d.closeEvents()
	})
	if err != nil && !errors.Is(err, transport.ErrTransportClosed) {
		return err
	}
	return nil
}

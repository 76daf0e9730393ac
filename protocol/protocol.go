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

// Package protocol implements the driver station session engine shared by all
// protocol versions. Version specific framing lives in the Descriptor
// implementations under the frc20xx sub-packages.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/transport"
	"github.com/jinzhu/copier"
)

type lookupResult struct {
	generation uint64
	host       string
	addr       netip.Addr
	err        error
}

type probeResult struct {
	err error
}

type session struct {
	team         uint
	mode         ControlMode
	enabled      bool
	estop        bool
	station      Station
	joysticks    []Joystick
	rebootRobot  bool
	restartCode  bool
	resync       bool
	sendDateTime bool
	enabledAt    time.Time
	elapsed      time.Duration
}

type connectionStatus struct {
	robotComms bool
	robotCode  bool
	radioComms bool
	fmsComms   bool
	voltage    float64
	diag       Diagnostics
}

// Engine runs one protocol instance. All session and connection status fields are
// owned by a single update goroutine, which is fed by tickers, the transport
// receive callback and the command queue
type Engine struct {
	config        Config
	desc          Descriptor
	timing        Timing
	logger        *slog.Logger
	resolver      *discovery.Resolver
	stateMap      StateMap
	ctx           context.Context
	cancel        context.CancelFunc
	commandChan   chan Command
	inboxChan     chan any
	doneChan      chan struct{}
	waitGroup     sync.WaitGroup
	onceStart     sync.Once
	onceStop      sync.Once
	snapshotMutex sync.RWMutex
	snapshot      Status
	// Owned by the update goroutine
	state          State
	session        session
	status         connectionStatus
	practice       practiceMatch
	robotSeq       uint16
	fmsSeq         uint16
	sentPackets    uint64
	lastRobot      time.Time
	lastFMS        time.Time
	candidates     []string
	candidateIdx   int
	addrGeneration uint64
	resolved       map[string]netip.Addr
	pendingLookups map[string]bool
	robotAddr      string
	fmsAddr        string
	lastFMSCommand *FMSCommand
	probeInFlight  bool
	lastEnabled    bool
	lastStatusText string
}

// New returns an Engine in the Idle state. Call Start to begin sending packets
func New(cfg Config) (*Engine, error) {
	if cfg.Descriptor == nil {
		return nil, errors.New("no protocol descriptor provided")
	}
	if cfg.Transport == nil {
		return nil, errors.New("no transport provided")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = discovery.NewResolver("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = DefaultCommandQueueSize
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if !cfg.Station.Valid() {
		cfg.Station = DefaultStation
	}
	e := &Engine{
		config:      cfg,
		desc:        cfg.Descriptor,
		resolver:    cfg.Resolver,
		commandChan: make(chan Command, cfg.CommandQueueSize),
		inboxChan:   make(chan any, cfg.InboxSize),
		doneChan:    make(chan struct{}),
		state:       StateIdle,
		session: session{
			team:    cfg.Team,
			station: cfg.Station,
			mode:    ControlModeTeleoperated,
			resync:  true,
		},
		practice: practiceMatch{
			timings: cfg.Practice,
		},
		resolved:       make(map[string]netip.Addr),
		pendingLookups: make(map[string]bool),
	}
	e.logger = cfg.Logger.With(
		"component", "protocol",
		"protocol", e.desc.Name(),
	)
	e.timing = cfg.Timing.Merge(e.desc.Timing()).Merge(Timing{
		RadioProbeInterval: DefaultRadioProbeInterval,
		RadioProbeTimeout:  DefaultRadioProbeTimeout,
	})
	if e.timing.RobotInterval <= 0 || e.timing.FMSInterval <= 0 {
		return nil, fmt.Errorf("%s: invalid send intervals", e.desc.Name())
	}
	// Update state map with timeout
	e.stateMap = DefaultStateMap.Copy()
	for state, entry := range e.stateMap {
		if state != StateIdle {
			entry.Timeout = e.timing.RobotTimeout
			e.stateMap[state] = entry
		}
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.publish()
	return e, nil
}

// Descriptor returns the protocol descriptor
func (e *Engine) Descriptor() Descriptor {
	return e.desc
}

// Timing returns the effective timing after applying overrides
func (e *Engine) Timing() Timing {
	return e.timing
}

// StateMap returns the state transition table used by the engine
func (e *Engine) StateMap() StateMap {
	return e.stateMap.Copy()
}

// Start moves the engine to Connecting and starts the update loop
func (e *Engine) Start() {
	e.onceStart.Do(func() {
		e.begin()
		e.waitGroup.Add(1)
		go e.run()
	})
}

func (e *Engine) begin() {
	now := e.config.Now()
	e.lastRobot = now
	e.lastFMS = now
	e.transition(StateConnecting)
	e.refreshCandidates()
	e.config.Transport.OnReceive(e.deliverDatagram)
	e.publish()
}

// Stop shuts down the update loop and waits for all helper goroutines. No events
// are raised once Stop returns
func (e *Engine) Stop() {
	e.onceStop.Do(func() {
		e.cancel()
		e.waitGroup.Wait()
		e.config.Transport.OnReceive(nil)
		close(e.doneChan)
	})
}

// DoneChan returns a channel that is closed when the engine has stopped
func (e *Engine) DoneChan() <-chan struct{} {
	return e.doneChan
}

// Submit queues a command for the update loop without blocking
func (e *Engine) Submit(cmd Command) error {
	select {
	case <-e.ctx.Done():
		return ErrEngineShuttingDown
	default:
	}
	select {
	case e.commandChan <- cmd:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// Status returns a snapshot of the session and connection status
func (e *Engine) Status() Status {
	e.snapshotMutex.RLock()
	defer e.snapshotMutex.RUnlock()
	ret := e.snapshot
	ret.Joysticks = copyJoysticks(e.snapshot.Joysticks)
	return ret
}

// State returns the current connection state
func (e *Engine) State() State {
	e.snapshotMutex.RLock()
	defer e.snapshotMutex.RUnlock()
	return e.snapshot.State
}

func (e *Engine) run() {
	defer e.waitGroup.Done()
	robotTicker := time.NewTicker(e.timing.RobotInterval)
	defer robotTicker.Stop()
	fmsTicker := time.NewTicker(e.timing.FMSInterval)
	defer fmsTicker.Stop()
	var radioTickerChan <-chan time.Time
	if e.desc.Ports().RadioProbe > 0 && e.timing.RadioProbeInterval > 0 {
		radioTicker := time.NewTicker(e.timing.RadioProbeInterval)
		defer radioTicker.Stop()
		radioTickerChan = radioTicker.C
	}
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-robotTicker.C:
			e.robotTick(e.config.Now())
		case <-fmsTicker.C:
			e.fmsTick(e.config.Now())
		case <-radioTickerChan:
			e.startRadioProbe()
		case cmd := <-e.commandChan:
			e.handleCommand(e.config.Now(), cmd)
		case msg := <-e.inboxChan:
			e.handleMessage(e.config.Now(), msg)
		}
		e.finishUpdate(e.config.Now())
	}
}

// deliverDatagram is the transport receive callback. It never blocks the transport
func (e *Engine) deliverDatagram(dg transport.Datagram) {
	select {
	case <-e.ctx.Done():
	case e.inboxChan <- dg:
	default:
		e.logger.Debug(
			"inbox full, dropping datagram",
			"channel",
			dg.Channel.String(),
		)
	}
}

// deliver is used by helper goroutines to hand results to the update loop
func (e *Engine) deliver(msg any) {
	select {
	case <-e.ctx.Done():
	case e.inboxChan <- msg:
	}
}

func (e *Engine) handleMessage(now time.Time, msg any) {
	switch m := msg.(type) {
	case transport.Datagram:
		e.handleDatagram(now, m)
	case lookupResult:
		e.handleLookupResult(m)
	case probeResult:
		e.probeInFlight = false
		if m.err != nil {
			e.logger.Debug("radio probe failed", "error", m.err)
		}
		e.setRadioComms(m.err == nil)
	default:
		e.logger.Debug(fmt.Sprintf("ignoring unknown inbox message type %T", msg))
	}
}

func (e *Engine) finishUpdate(now time.Time) {
	e.updateElapsed(now)
	enabled := e.effectiveEnabled()
	if enabled != e.lastEnabled {
		e.lastEnabled = enabled
		e.emit(Event{Type: EventTypeEnabledChanged, Value: enabled})
	}
	e.publish()
}

func (e *Engine) publish() {
	s := Status{
		Protocol:      e.desc.Name(),
		Team:          e.session.team,
		State:         e.state,
		Mode:          e.session.mode,
		Enabled:       e.effectiveEnabled(),
		EmergencyStop: e.session.estop,
		Station:       e.session.station,
		RobotComms:    e.status.robotComms,
		RobotCode:     e.status.robotCode,
		RadioComms:    e.status.radioComms,
		FMSComms:      e.status.fmsComms,
		Voltage:       e.status.voltage,
		Diagnostics:   e.status.diag,
		ElapsedTime:   e.session.elapsed,
		PracticePhase: e.practice.phase,
		RobotAddress:  e.robotTarget(),
		FMSAddress:    e.fmsAddr,
	}
	s.Joysticks = copyJoysticks(e.session.joysticks)
	e.snapshotMutex.Lock()
	e.snapshot = s
	e.snapshotMutex.Unlock()
	if text := s.String(); text != e.lastStatusText {
		e.lastStatusText = text
		e.emit(Event{Type: EventTypeStatusChanged, Message: text})
	}
}

func (e *Engine) emit(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = e.config.Now()
	}
	if e.config.EventFunc != nil {
		e.config.EventFunc(evt)
	}
}

func (e *Engine) transition(to State) {
	if e.state == to {
		return
	}
	if !e.stateMap.CanTransition(e.state, to) {
		e.logger.Debug(
			"ignoring invalid state transition",
			"from",
			e.state.String(),
			"to",
			to.String(),
		)
		return
	}
	e.logger.Debug(
		"state transition",
		"from",
		e.state.String(),
		"to",
		to.String(),
	)
	e.state = to
	e.emit(Event{Type: EventTypeStateChanged, State: to})
}

func (e *Engine) effectiveEnabled() bool {
	if !e.session.enabled || e.session.estop {
		return false
	}
	if !e.status.robotComms || !e.status.robotCode {
		return false
	}
	if e.session.mode == ControlModePractice {
		return e.practice.phase.Enabled()
	}
	return true
}

func (e *Engine) controlState(now time.Time) ControlState {
	mode := e.session.mode
	if mode == ControlModePractice {
		mode = e.practice.phase.WireMode()
	}
	tz := e.config.Timezone
	if tz == "" {
		tz, _ = now.Zone()
	}
	return ControlState{
		Team:          e.session.team,
		Mode:          mode,
		Enabled:       e.effectiveEnabled(),
		EmergencyStop: e.session.estop,
		FMSAttached:   e.status.fmsComms,
		RobotComms:    e.status.robotComms,
		RadioComms:    e.status.radioComms,
		Station:       e.session.station,
		RebootRobot:   e.session.rebootRobot,
		RestartCode:   e.session.restartCode,
		Resync:        e.session.resync,
		SendDateTime:  e.session.sendDateTime,
		Time:          now,
		Timezone:      tz,
		SentPackets:   e.sentPackets,
		Joysticks:     e.session.joysticks,
		Voltage:       e.status.voltage,
	}
}

func (e *Engine) robotTick(now time.Time) {
	e.advancePractice(now)
	e.robotWatchdog(now)
	e.fmsWatchdog(now)
	data := e.desc.EncodeRobotPacket(e.controlState(now), e.robotSeq)
	e.robotSeq++
	e.sentPackets++
	target := e.robotTarget()
	if target == "" {
		return
	}
	if err := e.config.Transport.Send(transport.ChannelRobot, target, data); err != nil {
		e.logger.Debug(
			"failed to send robot packet",
			"address",
			target,
			"error",
			err,
		)
		return
	}
	e.status.diag.PacketsSent++
}

func (e *Engine) fmsTick(now time.Time) {
	e.fmsWatchdog(now)
	if e.fmsAddr == "" {
		return
	}
	data := e.desc.EncodeFMSPacket(e.controlState(now), e.fmsSeq)
	e.fmsSeq++
	if len(data) == 0 {
		return
	}
	if err := e.config.Transport.Send(transport.ChannelFMS, e.fmsAddr, data); err != nil {
		e.logger.Debug(
			"failed to send fms packet",
			"address",
			e.fmsAddr,
			"error",
			err,
		)
		return
	}
	e.status.diag.FMSPacketsSent++
}

func (e *Engine) robotWatchdog(now time.Time) {
	if now.Sub(e.lastRobot) < e.timing.RobotTimeout {
		return
	}
	e.status.diag.WatchdogExpirations++
	e.logger.Debug(
		"robot watchdog expired",
		"address",
		e.robotTarget(),
	)
	e.setRobotComms(now, false)
	e.setRobotCode(now, false)
	e.setVoltage(0)
	e.resetUsage()
	e.session.rebootRobot = false
	e.session.restartCode = false
	e.session.sendDateTime = false
	e.session.resync = true
	e.sentPackets = 0
	e.transition(StateDisconnected)
	e.advanceCandidate()
	e.lastRobot = now
}

func (e *Engine) fmsWatchdog(now time.Time) {
	if !e.status.fmsComms || now.Sub(e.lastFMS) < e.timing.FMSTimeout {
		return
	}
	e.logger.Debug("fms watchdog expired", "address", e.fmsAddr)
	e.setFMSComms(false)
	e.fmsAddr = ""
	e.lastFMSCommand = nil
}

func (e *Engine) handleDatagram(now time.Time, dg transport.Datagram) {
	switch dg.Channel {
	case transport.ChannelRobot:
		e.handleRobotPacket(now, dg)
	case transport.ChannelFMS:
		e.handleFMSPacket(now, dg)
	case transport.ChannelNetConsole:
		e.emit(Event{
			Type:    EventTypeNetConsoleMessage,
			Message: string(dg.Data),
		})
	}
}

func (e *Engine) handleRobotPacket(now time.Time, dg transport.Datagram) {
	status, err := e.desc.DecodeRobotPacket(dg.Data)
	if err != nil {
		e.status.diag.MalformedPackets++
		e.logger.Debug(
			"dropping robot packet",
			"source",
			dg.Source.String(),
			"error",
			err,
		)
		return
	}
	e.status.diag.PacketsReceived++
	e.lastRobot = now
	if e.robotAddr == "" && dg.Source.Addr().IsValid() {
		e.robotAddr = dg.Source.Addr().String()
		e.logger.Info("robot found", "address", e.robotAddr)
	}
	if status.EmergencyStop {
		e.setEmergencyStop(now)
	}
	e.setRobotComms(now, true)
	e.setRobotCode(now, status.CodePresent)
	e.setVoltage(status.Voltage)
	e.setUsage(status.Usage)
	e.session.sendDateTime = status.RequestDateTime
	e.session.resync = false
	if status.CodePresent {
		e.transition(StateConnectedHealthy)
	} else {
		e.transition(StateConnectedNoCode)
	}
}

func (e *Engine) handleFMSPacket(now time.Time, dg transport.Datagram) {
	cmd, err := e.desc.DecodeFMSPacket(dg.Data)
	if err != nil {
		e.status.diag.MalformedPackets++
		e.logger.Debug(
			"dropping fms packet",
			"source",
			dg.Source.String(),
			"error",
			err,
		)
		return
	}
	e.status.diag.FMSPacketsReceived++
	e.lastFMS = now
	if dg.Source.Addr().IsValid() {
		e.fmsAddr = dg.Source.Addr().String()
	}
	e.setFMSComms(true)
	// Only changes from the previous FMS frame are applied, so a rejected request
	// is reported once rather than on every frame
	prev := e.lastFMSCommand
	e.lastFMSCommand = &cmd
	if prev == nil || prev.Station != cmd.Station {
		e.handleCommand(now, Command{Type: CommandTypeSetStation, Source: CommandSourceFMS, Station: cmd.Station})
	}
	if cmd.EmergencyStop && (prev == nil || !prev.EmergencyStop) {
		e.handleCommand(now, Command{Type: CommandTypeEmergencyStop, Source: CommandSourceFMS})
	}
	if prev == nil || prev.Mode != cmd.Mode {
		if cmd.Mode != e.session.mode {
			e.handleCommand(now, Command{Type: CommandTypeSetControlMode, Source: CommandSourceFMS, Mode: cmd.Mode})
		}
	}
	if prev == nil || prev.Enabled != cmd.Enabled {
		e.handleCommand(now, Command{Type: CommandTypeSetEnabled, Source: CommandSourceFMS, Enabled: cmd.Enabled})
	}
}

func (e *Engine) handleCommand(now time.Time, cmd Command) {
	switch cmd.Type {
	case CommandTypeSetEnabled:
		if !cmd.Enabled {
			e.disable(now)
			return
		}
		if err := e.enableGuard(); err != nil {
			e.reject(cmd, err)
			return
		}
		if e.session.enabled {
			return
		}
		e.session.enabled = true
		e.session.enabledAt = now
		e.session.elapsed = 0
		e.logger.Info(
			"robot enabled",
			"mode",
			e.session.mode.String(),
			"source",
			cmd.Source.String(),
		)
		if e.session.mode == ControlModePractice {
			e.practice.begin(now)
			e.emit(Event{Type: EventTypePracticePhaseChanged, Phase: e.practice.phase})
		}
	case CommandTypeSetControlMode:
		if !cmd.Mode.Valid() {
			e.reject(cmd, ErrInvalidControlMode)
			return
		}
		if err := e.modeGuard(); err != nil {
			e.reject(cmd, err)
			return
		}
		if cmd.Mode == e.session.mode {
			return
		}
		e.disable(now)
		e.clearPractice()
		e.session.mode = cmd.Mode
		e.emit(Event{Type: EventTypeControlModeChanged, Mode: cmd.Mode})
	case CommandTypeSetStation:
		if !cmd.Station.Valid() {
			e.reject(cmd, ErrInvalidStation)
			return
		}
		if cmd.Station == e.session.station {
			return
		}
		e.session.station = cmd.Station
		e.emit(Event{Type: EventTypeStationChanged, Station: cmd.Station})
	case CommandTypeEmergencyStop:
		e.setEmergencyStop(now)
	case CommandTypeRebootRobot:
		e.logger.Info("requesting robot reboot")
		e.session.rebootRobot = true
	case CommandTypeRestartCode:
		e.logger.Info("requesting robot code restart")
		e.session.restartCode = true
	case CommandTypeSetJoysticks:
		e.session.joysticks = e.desc.JoystickLimits().Truncate(cmd.Joysticks)
	case CommandTypeAddressChanged:
		e.resetConnection(now)
	default:
		e.logger.Debug(fmt.Sprintf("ignoring unknown command type %d", cmd.Type))
	}
}

func (e *Engine) enableGuard() error {
	if e.session.estop {
		return ErrEmergencyStopped
	}
	return e.modeGuard()
}

func (e *Engine) modeGuard() error {
	if !e.status.robotComms {
		return ErrNoRobotCommunication
	}
	if !e.status.robotCode {
		return ErrNoRobotCode
	}
	return nil
}

func (e *Engine) reject(cmd Command, reason error) {
	e.status.diag.RejectedCommands++
	err := fmt.Errorf("%w: %s: %w", ErrRejectedCommand, cmd.Type, reason)
	e.logger.Info(
		"command rejected",
		"command",
		cmd.Type.String(),
		"source",
		cmd.Source.String(),
		"reason",
		reason.Error(),
	)
	e.emit(Event{
		Type:    EventTypeCommandRejected,
		Command: cmd,
		Err:     err,
	})
}

func (e *Engine) disable(now time.Time) {
	if !e.session.enabled {
		return
	}
	e.updateElapsed(now)
	e.session.enabled = false
	if e.practice.running() {
		e.practice.stop()
		e.emit(Event{Type: EventTypePracticePhaseChanged, Phase: e.practice.phase})
	}
}

func (e *Engine) clearPractice() {
	if e.practice.phase == PracticePhaseNone {
		return
	}
	e.practice.stop()
	e.emit(Event{Type: EventTypePracticePhaseChanged, Phase: e.practice.phase})
}

func (e *Engine) advancePractice(now time.Time) {
	if e.session.mode != ControlModePractice || !e.session.enabled {
		return
	}
	if !e.practice.advance(now) {
		return
	}
	e.emit(Event{Type: EventTypePracticePhaseChanged, Phase: e.practice.phase})
	if e.practice.phase == PracticePhaseFinished {
		e.updateElapsed(now)
		e.session.enabled = false
	}
}

func (e *Engine) updateElapsed(now time.Time) {
	if e.session.enabled {
		e.session.elapsed = now.Sub(e.session.enabledAt)
	}
}

func (e *Engine) setEmergencyStop(now time.Time) {
	if e.session.estop {
		return
	}
	e.logger.Warn("emergency stop")
	e.disable(now)
	e.session.estop = true
	e.emit(Event{Type: EventTypeEmergencyStopChanged, Value: true})
}

func (e *Engine) setRobotComms(now time.Time, comms bool) {
	if e.status.robotComms == comms {
		return
	}
	e.status.robotComms = comms
	e.logger.Info("robot communications changed", "comms", comms)
	e.emit(Event{Type: EventTypeCommunicationsChanged, Value: comms})
	if !comms {
		e.disable(now)
	}
}

func (e *Engine) setRobotCode(now time.Time, code bool) {
	if e.status.robotCode == code {
		return
	}
	e.status.robotCode = code
	e.logger.Info("robot code changed", "code", code)
	e.emit(Event{Type: EventTypeCodeChanged, Value: code})
	if !code {
		e.disable(now)
	}
}

func (e *Engine) setRadioComms(comms bool) {
	if e.status.radioComms == comms {
		return
	}
	e.status.radioComms = comms
	e.emit(Event{Type: EventTypeRadioChanged, Value: comms})
}

func (e *Engine) setFMSComms(comms bool) {
	if e.status.fmsComms == comms {
		return
	}
	e.status.fmsComms = comms
	e.logger.Info("fms communications changed", "comms", comms)
	e.emit(Event{Type: EventTypeFMSChanged, Value: comms})
}

func (e *Engine) setVoltage(voltage float64) {
	voltage = RoundVoltage(voltage, e.desc.MaxVoltage())
	if voltage == e.status.voltage {
		return
	}
	e.status.voltage = voltage
	e.emit(Event{Type: EventTypeVoltageChanged, Voltage: voltage})
}

func (e *Engine) setUsage(usage Usage) {
	diag := e.status.diag
	if usage.CPU >= 0 {
		diag.CPUUsage = clampPercent(usage.CPU)
	}
	if usage.RAM >= 0 {
		diag.RAMUsage = clampPercent(usage.RAM)
	}
	if usage.Disk >= 0 {
		diag.DiskUsage = clampPercent(usage.Disk)
	}
	if usage.CAN >= 0 {
		diag.CANUtilization = clampPercent(usage.CAN)
	}
	e.updateDiagnostics(diag)
}

func (e *Engine) resetUsage() {
	e.setUsage(Usage{})
}

func (e *Engine) updateDiagnostics(diag Diagnostics) {
	prev := e.status.diag
	e.status.diag = diag
	if prev.CPUUsage == diag.CPUUsage &&
		prev.RAMUsage == diag.RAMUsage &&
		prev.DiskUsage == diag.DiskUsage &&
		prev.CANUtilization == diag.CANUtilization {
		return
	}
	e.emit(Event{Type: EventTypeDiagnosticsChanged, Diagnostics: diag})
}

func (e *Engine) resetConnection(now time.Time) {
	e.logger.Debug("robot address changed, reconnecting")
	e.refreshCandidates()
	e.setRobotComms(now, false)
	e.setRobotCode(now, false)
	e.setVoltage(0)
	e.resetUsage()
	e.transition(StateConnecting)
	e.lastRobot = now
}

func (e *Engine) refreshCandidates() {
	e.addrGeneration++
	e.candidates = e.resolver.ResolveRobotAddress(e.session.team, e.desc)
	e.candidateIdx = 0
	e.resolved = make(map[string]netip.Addr)
	e.pendingLookups = make(map[string]bool)
	e.robotAddr = ""
	e.logger.Debug(
		"robot address candidates",
		"candidates",
		e.candidates,
	)
	e.resolveCandidate()
}

func (e *Engine) currentCandidate() string {
	if len(e.candidates) == 0 {
		return ""
	}
	return e.candidates[e.candidateIdx]
}

func (e *Engine) advanceCandidate() {
	if len(e.candidates) == 0 {
		return
	}
	e.robotAddr = ""
	// Host names are looked up again on the next pass
	for host := range e.resolved {
		if _, err := netip.ParseAddr(host); err != nil {
			delete(e.resolved, host)
		}
	}
	e.candidateIdx = (e.candidateIdx + 1) % len(e.candidates)
	e.resolveCandidate()
}

func (e *Engine) resolveCandidate() {
	host := e.currentCandidate()
	if host == "" {
		return
	}
	if _, ok := e.resolved[host]; ok {
		return
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		e.resolved[host] = addr.Unmap()
		return
	}
	if e.config.Lookup == nil || e.pendingLookups[host] {
		return
	}
	e.pendingLookups[host] = true
	generation := e.addrGeneration
	timeout := e.timing.RobotTimeout
	e.waitGroup.Add(1)
	go func() {
		defer e.waitGroup.Done()
		ctx, cancel := context.WithTimeout(e.ctx, timeout)
		defer cancel()
		addr, err := e.config.Lookup.Lookup(ctx, host)
		e.deliver(lookupResult{
			generation: generation,
			host:       host,
			addr:       addr,
			err:        err,
		})
	}()
}

func (e *Engine) handleLookupResult(result lookupResult) {
	if result.generation != e.addrGeneration {
		return
	}
	delete(e.pendingLookups, result.host)
	if result.err != nil {
		e.logger.Debug(
			"address lookup failed",
			"host",
			result.host,
			"error",
			result.err,
		)
		return
	}
	e.logger.Debug(
		"address lookup succeeded",
		"host",
		result.host,
		"address",
		result.addr.String(),
	)
	e.resolved[result.host] = result.addr.Unmap()
}

func (e *Engine) robotTarget() string {
	if e.robotAddr != "" {
		return e.robotAddr
	}
	if addr, ok := e.resolved[e.currentCandidate()]; ok {
		return addr.String()
	}
	return ""
}

func copyJoysticks(src []Joystick) []Joystick {
	if len(src) == 0 {
		return nil
	}
	var ret []Joystick
	if err := copier.CopyWithOption(&ret, src, copier.Option{DeepCopy: true}); err != nil {
		return nil
	}
	return ret
}

func (e *Engine) startRadioProbe() {
	if e.probeInFlight {
		return
	}
	addr := e.resolver.ResolveRadioAddress(e.session.team, e.desc)
	if addr == "" {
		return
	}
	port := e.desc.Ports().RadioProbe
	timeout := e.timing.RadioProbeTimeout
	e.probeInFlight = true
	e.waitGroup.Add(1)
	go func() {
		defer e.waitGroup.Done()
		ctx, cancel := context.WithTimeout(e.ctx, timeout)
		defer cancel()
		err := e.config.Transport.Probe(ctx, addr, port)
		e.deliver(probeResult{err: err})
	}()
}

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

// Package robot_mock provides an in-memory transport and a simulated robot for
// exercising the driver station without sockets
package robot_mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/blinklabs-io/godriverstation/transport"
)

// Sent records one datagram passed to Transport.Send
type Sent struct {
	Channel transport.Channel
	Address string
	Data    []byte
}

// Transport mocks a transport.Transport. Datagrams sent to the robot channel are
// answered by the attached Robot, if any
type Transport struct {
	mutex       sync.Mutex
	bindings    []transport.Binding
	rebindCount int
	handler     transport.ReceiveFunc
	sent        []Sent
	robot       *Robot
	bindErr     error
	probeErr    error
	closed      bool
}

type TransportOptionFunc func(*Transport)

// WithRobot attaches a simulated robot that answers robot channel datagrams
func WithRobot(robot *Robot) TransportOptionFunc {
	return func(t *Transport) {
		t.robot = robot
	}
}

// WithBindError makes every Rebind call fail with the provided error
func WithBindError(err error) TransportOptionFunc {
	return func(t *Transport) {
		t.bindErr = err
	}
}

// WithProbeError makes every radio probe fail with the provided error
func WithProbeError(err error) TransportOptionFunc {
	return func(t *Transport) {
		t.probeErr = err
	}
}

// NewTransport returns a new Transport with the provided options
func NewTransport(options ...TransportOptionFunc) *Transport {
	t := &Transport{}
	for _, option := range options {
		option(t)
	}
	return t
}

func (t *Transport) Rebind(bindings ...transport.Binding) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return transport.ErrTransportClosed
	}
	t.rebindCount++
	t.bindings = nil
	if t.bindErr != nil {
		return fmt.Errorf("%w: %w", transport.ErrBindFailed, t.bindErr)
	}
	t.bindings = append(t.bindings, bindings...)
	return nil
}

func (t *Transport) Send(channel transport.Channel, address string, data []byte) error {
	t.mutex.Lock()
	if t.closed {
		t.mutex.Unlock()
		return transport.ErrTransportClosed
	}
	t.sent = append(
		t.sent,
		Sent{
			Channel: channel,
			Address: address,
			Data:    append([]byte{}, data...),
		},
	)
	robot := t.robot
	t.mutex.Unlock()
	if robot == nil || channel != transport.ChannelRobot {
		return nil
	}
	if reply, ok := robot.respond(address, data); ok {
		t.Inject(reply)
	}
	return nil
}

func (t *Transport) OnReceive(handler transport.ReceiveFunc) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handler = handler
}

func (t *Transport) Probe(ctx context.Context, address string, port int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.probeErr
}

func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.closed = true
	t.bindings = nil
	return nil
}

// Inject delivers a datagram to the registered receive handler, as if it had
// arrived from the network
func (t *Transport) Inject(dg transport.Datagram) {
	t.mutex.Lock()
	handler := t.handler
	t.mutex.Unlock()
	if handler != nil {
		handler(dg)
	}
}

// RebindCount returns the number of Rebind calls
func (t *Transport) RebindCount() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.rebindCount
}

// Bindings returns the bindings from the last successful Rebind
func (t *Transport) Bindings() []transport.Binding {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return append([]transport.Binding{}, t.bindings...)
}

// Sent returns a copy of every datagram sent so far
func (t *Transport) Sent() []Sent {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return append([]Sent{}, t.sent...)
}

// SentTo returns the datagrams sent on a channel
func (t *Transport) SentTo(channel transport.Channel) []Sent {
	var ret []Sent
	for _, s := range t.Sent() {
		if s.Channel == channel {
			ret = append(ret, s)
		}
	}
	return ret
}

func (t *Transport) Closed() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.closed
}

// Factory creates a fresh Transport for each call and remembers all of them
type Factory struct {
	mutex      sync.Mutex
	options    []TransportOptionFunc
	transports []*Transport
}

func NewFactory(options ...TransportOptionFunc) *Factory {
	return &Factory{options: options}
}

// New returns a new Transport. It matches the driver station transport func signature
func (f *Factory) New() transport.Transport {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	t := NewTransport(f.options...)
	f.transports = append(f.transports, t)
	return t
}

// Transports returns every Transport created so far, oldest first
func (f *Factory) Transports() []*Transport {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]*Transport{}, f.transports...)
}

// Last returns the most recently created Transport, or nil
func (f *Factory) Last() *Transport {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if len(f.transports) == 0 {
		return nil
	}
	return f.transports[len(f.transports)-1]
}

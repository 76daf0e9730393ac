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

package robot_mock

import (
	"net/netip"
	"sync"

	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/transport"
)

// MockRobotAddress is the address the simulated robot answers from by default
var MockRobotAddress = netip.MustParseAddrPort("10.1.18.2:1110")

// Robot simulates a robot controller. It answers each control frame sent to its
// address with a status frame built from its current status
type Robot struct {
	mutex    sync.Mutex
	desc     protocol.Descriptor
	address  netip.AddrPort
	status   protocol.RobotStatus
	silent   bool
	seq      uint16
	received [][]byte
}

type RobotOptionFunc func(*Robot)

// WithAddress sets the address the robot answers on
func WithAddress(address netip.AddrPort) RobotOptionFunc {
	return func(r *Robot) {
		r.address = address
	}
}

// WithStatus sets the initial robot status
func WithStatus(status protocol.RobotStatus) RobotOptionFunc {
	return func(r *Robot) {
		r.status = status
	}
}

// NewRobot returns a robot speaking the protocol of the provided descriptor. By
// default it has code loaded and a 12.5 V battery
func NewRobot(desc protocol.Descriptor, options ...RobotOptionFunc) *Robot {
	r := &Robot{
		desc:    desc,
		address: MockRobotAddress,
		status: protocol.RobotStatus{
			CodePresent: true,
			Voltage:     12.5,
			Usage:       protocol.NoUsage(),
		},
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Robot) Address() netip.AddrPort {
	return r.address
}

// SetStatus replaces the status reported in subsequent replies
func (r *Robot) SetStatus(status protocol.RobotStatus) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.status = status
}

func (r *Robot) Status() protocol.RobotStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.status
}

// SetSilent stops (or resumes) replies, simulating a lost link
func (r *Robot) SetSilent(silent bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.silent = silent
}

// Received returns copies of the control frames addressed to the robot
func (r *Robot) Received() [][]byte {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ret := make([][]byte, 0, len(r.received))
	for _, data := range r.received {
		ret = append(ret, append([]byte{}, data...))
	}
	return ret
}

// StatusDatagram builds a status datagram as if it came from the robot
func (r *Robot) StatusDatagram() transport.Datagram {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.statusDatagram()
}

func (r *Robot) statusDatagram() transport.Datagram {
	data := r.desc.EncodeStatusPacket(r.status, r.seq)
	r.seq++
	return transport.Datagram{
		Channel: transport.ChannelRobot,
		Source:  r.address,
		Data:    data,
	}
}

func (r *Robot) respond(address string, data []byte) (transport.Datagram, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if address != r.address.Addr().String() {
		return transport.Datagram{}, false
	}
	r.received = append(r.received, append([]byte{}, data...))
	if r.silent {
		return transport.Datagram{}, false
	}
	return r.statusDatagram(), true
}

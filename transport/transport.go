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

// Package transport implements the socket layer used to exchange datagrams with
// the robot, the field management system and the NetConsole.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

var (
	// ErrBindFailed is returned by Rebind when a socket cannot be acquired
	ErrBindFailed      = errors.New("bind failed")
	ErrNotBound        = errors.New("channel is not bound")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrTransportClosed = errors.New("transport is closed")
)

// Channel identifies one of the logical links carried by a transport
type Channel uint8

const (
	ChannelRobot      Channel = 1
	ChannelFMS        Channel = 2
	ChannelNetConsole Channel = 3
)

var channelNames = map[Channel]string{
	ChannelRobot:      "robot",
	ChannelFMS:        "fms",
	ChannelNetConsole: "netconsole",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// Binding associates a channel with the local port it listens on and the remote
// port its datagrams are sent to. A local port of 0 binds an ephemeral port
type Binding struct {
	Channel    Channel
	LocalPort  int
	RemotePort int
}

// Datagram is a single received packet
type Datagram struct {
	Channel Channel
	Source  netip.AddrPort
	Data    []byte
}

// ReceiveFunc is called once for each datagram received
type ReceiveFunc func(Datagram)

// Transport owns the sockets for one protocol instance
type Transport interface {
	// Rebind closes any open sockets and opens one per binding. Errors wrap ErrBindFailed
	Rebind(bindings ...Binding) error
	// Send writes data to the IP address on the remote port of the channel. It never
	// blocks for longer than the transport write timeout
	Send(channel Channel, address string, data []byte) error
	// OnReceive registers the handler for received datagrams, replacing any previous one
	OnReceive(handler ReceiveFunc)
	// Probe attempts a TCP connection to the address and port, bounded by ctx
	Probe(ctx context.Context, address string, port int) error
	// Close releases all sockets
	Close() error
}

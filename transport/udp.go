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

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultWriteTimeout = 50 * time.Millisecond
	// Large enough for the 1024-byte frames of the oldest protocol
	maxDatagramSize = 2048
)

type udpChannel struct {
	binding Binding
	conn    *net.UDPConn
}

// UDP is the production Transport. Each bound channel gets its own socket, which
// is used both for receiving and for sending to the remote port
type UDP struct {
	logger        *slog.Logger
	listenAddress string
	writeTimeout  time.Duration
	mutex         sync.RWMutex
	channels      map[Channel]*udpChannel
	handler       atomic.Pointer[ReceiveFunc]
	readWaitGroup sync.WaitGroup
	closed        bool
}

type UDPOptionFunc func(*UDP)

// NewUDP returns an unbound UDP transport. Call Rebind to open sockets
func NewUDP(options ...UDPOptionFunc) *UDP {
	u := &UDP{
		writeTimeout: DefaultWriteTimeout,
		channels:     make(map[Channel]*udpChannel),
	}
	for _, option := range options {
		option(u)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	return u
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) UDPOptionFunc {
	return func(u *UDP) {
		u.logger = logger
	}
}

// WithListenAddress limits the sockets to a single local IP address
func WithListenAddress(address string) UDPOptionFunc {
	return func(u *UDP) {
		u.listenAddress = address
	}
}

// WithWriteTimeout specifies the deadline applied to each send
func WithWriteTimeout(timeout time.Duration) UDPOptionFunc {
	return func(u *UDP) {
		u.writeTimeout = timeout
	}
}

func (u *UDP) Rebind(bindings ...Binding) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if u.closed {
		return ErrTransportClosed
	}
	u.closeChannels()
	var listenIP net.IP
	if u.listenAddress != "" {
		listenIP = net.ParseIP(u.listenAddress)
		if listenIP == nil {
			return fmt.Errorf("%w: %w: %s", ErrBindFailed, ErrInvalidAddress, u.listenAddress)
		}
	}
	for _, binding := range bindings {
		conn, err := net.ListenUDP(
			"udp4",
			&net.UDPAddr{IP: listenIP, Port: binding.LocalPort},
		)
		if err != nil {
			u.closeChannels()
			return fmt.Errorf(
				"%w: %s port %d: %w",
				ErrBindFailed,
				binding.Channel,
				binding.LocalPort,
				err,
			)
		}
		ch := &udpChannel{
			binding: binding,
			conn:    conn,
		}
		u.channels[binding.Channel] = ch
		u.logger.Debug(
			"bound channel",
			"channel", binding.Channel.String(),
			"local", conn.LocalAddr().String(),
			"remote_port", binding.RemotePort,
		)
		u.readWaitGroup.Add(1)
		go u.readLoop(ch)
	}
	return nil
}

// closeChannels closes every socket and waits for the read loops to exit. The
// caller must hold the write lock
func (u *UDP) closeChannels() {
	for channel, ch := range u.channels {
		if err := ch.conn.Close(); err != nil {
			u.logger.Debug(
				"failed to close socket",
				"channel", channel.String(),
				"error", err,
			)
		}
		delete(u.channels, channel)
	}
	u.readWaitGroup.Wait()
}

func (u *UDP) readLoop(ch *udpChannel) {
	defer u.readWaitGroup.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := ch.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP errors from earlier sends surface here on some platforms
			u.logger.Debug(
				"read error",
				"channel", ch.binding.Channel.String(),
				"error", err,
			)
			continue
		}
		handler := u.handler.Load()
		if handler == nil {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		(*handler)(Datagram{
			Channel: ch.binding.Channel,
			Source:  netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()),
			Data:    data,
		})
	}
}

func (u *UDP) Send(channel Channel, address string, data []byte) error {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	u.mutex.RLock()
	defer u.mutex.RUnlock()
	if u.closed {
		return ErrTransportClosed
	}
	ch, ok := u.channels[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBound, channel)
	}
	if err := ch.conn.SetWriteDeadline(time.Now().Add(u.writeTimeout)); err != nil {
		return err
	}
	dest := netip.AddrPortFrom(addr, uint16(ch.binding.RemotePort)) // #nosec G115
	if _, err := ch.conn.WriteToUDPAddrPort(data, dest); err != nil {
		return fmt.Errorf("send to %s: %w", dest, err)
	}
	return nil
}

func (u *UDP) OnReceive(handler ReceiveFunc) {
	if handler == nil {
		u.handler.Store(nil)
		return
	}
	u.handler.Store(&handler)
}

func (u *UDP) Probe(ctx context.Context, address string, port int) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(
		ctx,
		"tcp",
		net.JoinHostPort(address, strconv.Itoa(port)),
	)
	if err != nil {
		return err
	}
	return conn.Close()
}

// LocalPort returns the local port bound for a channel, or 0 if it is not bound
func (u *UDP) LocalPort(channel Channel) int {
	u.mutex.RLock()
	defer u.mutex.RUnlock()
	ch, ok := u.channels[channel]
	if !ok {
		return 0
	}
	return ch.conn.LocalAddr().(*net.UDPAddr).Port
}

func (u *UDP) Close() error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	u.closeChannels()
	u.handler.Store(nil)
	return nil
}

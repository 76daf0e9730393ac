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

package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/ipv4"
)

const (
	MDNSPort = 5353
	// Used when the context has no deadline
	DefaultMDNSTimeout = 2 * time.Second
)

var (
	MDNSGroupIPv4 = netip.MustParseAddr("224.0.0.251")

	ErrHostNotFound = errors.New("host not found")
	ErrNotResponse  = errors.New("not a DNS response")
)

// MDNS performs one-shot multicast DNS lookups for .local names. Queries are sent
// from an ephemeral port, so responders answer with a unicast reply
type MDNS struct {
	logger *slog.Logger
	group  netip.AddrPort
	iface  *net.Interface
}

type MDNSOptionFunc func(*MDNS)

func NewMDNS(options ...MDNSOptionFunc) *MDNS {
	m := &MDNS{
		group: netip.AddrPortFrom(MDNSGroupIPv4, MDNSPort),
	}
	for _, option := range options {
		option(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// WithMDNSLogger specifies the logger
func WithMDNSLogger(logger *slog.Logger) MDNSOptionFunc {
	return func(m *MDNS) {
		m.logger = logger
	}
}

// WithMDNSGroup overrides the destination of queries
func WithMDNSGroup(group netip.AddrPort) MDNSOptionFunc {
	return func(m *MDNS) {
		m.group = group
	}
}

// WithMDNSInterface sends queries on a specific interface
func WithMDNSInterface(iface *net.Interface) MDNSOptionFunc {
	return func(m *MDNS) {
		m.iface = iface
	}
}

// Lookup returns the first IPv4 address answered for the host name
func (m *MDNS) Lookup(ctx context.Context, host string) (netip.Addr, error) {
	name := strings.TrimSuffix(host, ".")
	id := uint16(rand.N(0x10000)) // #nosec G404
	query, err := BuildQuery(id, name)
	if err != nil {
		return netip.Addr{}, err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return netip.Addr{}, err
	}
	defer conn.Close()
	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetMulticastTTL(255); err != nil {
		m.logger.Debug("failed to set multicast TTL", "error", err)
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		m.logger.Debug("failed to enable multicast loopback", "error", err)
	}
	if m.iface != nil {
		if err := pconn.SetMulticastInterface(m.iface); err != nil {
			return netip.Addr{}, err
		}
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultMDNSTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return netip.Addr{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()
	if _, err := conn.WriteToUDPAddrPort(query, m.group); err != nil {
		return netip.Addr{}, fmt.Errorf("mdns query for %s: %w", name, err)
	}
	buf := make([]byte, 9000)
	for {
		n, _, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return netip.Addr{}, ctx.Err()
			}
			return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrHostNotFound, name, err)
		}
		addr, err := ParseResponse(buf[:n], name)
		if err != nil {
			m.logger.Debug("ignoring mdns packet", "name", name, "error", err)
			continue
		}
		return addr, nil
	}
}

// BuildQuery returns a DNS query for the IPv4 address of name
func BuildQuery(id uint16, name string) ([]byte, error) {
	msg := &layers.DNS{
		ID:     id,
		OpCode: layers.DNSOpCodeQuery,
		Questions: []layers.DNSQuestion{
			{
				Name:  []byte(name),
				Type:  layers.DNSTypeA,
				Class: layers.DNSClassIN,
			},
		},
	}
	return serialize(msg)
}

// BuildResponse returns a DNS response carrying one A record
func BuildResponse(id uint16, name string, addr netip.Addr) ([]byte, error) {
	if !addr.Is4() {
		return nil, fmt.Errorf("not an IPv4 address: %s", addr)
	}
	msg := &layers.DNS{
		ID:     id,
		QR:     true,
		AA:     true,
		OpCode: layers.DNSOpCodeQuery,
		Answers: []layers.DNSResourceRecord{
			{
				Name:  []byte(name),
				Type:  layers.DNSTypeA,
				Class: layers.DNSClassIN,
				TTL:   120,
				IP:    net.IP(addr.AsSlice()),
			},
		},
	}
	return serialize(msg)
}

func serialize(msg *layers.DNS) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := msg.SerializeTo(buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseResponse returns the IPv4 address for name from a DNS response
func ParseResponse(data []byte, name string) (netip.Addr, error) {
	var msg layers.DNS
	if err := msg.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return netip.Addr{}, err
	}
	if !msg.QR {
		return netip.Addr{}, ErrNotResponse
	}
	records := append(msg.Answers, msg.Additionals...)
	for _, rr := range records {
		if rr.Type != layers.DNSTypeA {
			continue
		}
		if !strings.EqualFold(strings.TrimSuffix(string(rr.Name), "."), name) {
			continue
		}
		if addr, ok := netip.AddrFromSlice(rr.IP.To4()); ok {
			return addr, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %s", ErrHostNotFound, name)
}

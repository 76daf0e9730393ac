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
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Lookup resolves a host name to an IP address
type Lookup interface {
	Lookup(ctx context.Context, host string) (netip.Addr, error)
}

// LookupFunc adapts a function to the Lookup interface
type LookupFunc func(ctx context.Context, host string) (netip.Addr, error)

func (f LookupFunc) Lookup(ctx context.Context, host string) (netip.Addr, error) {
	return f(ctx, host)
}

// HostLookup sends .local names to mDNS and everything else to the system resolver
type HostLookup struct {
	mdns     *MDNS
	resolver *net.Resolver
}

func NewHostLookup(mdns *MDNS) *HostLookup {
	if mdns == nil {
		mdns = NewMDNS()
	}
	return &HostLookup{
		mdns:     mdns,
		resolver: net.DefaultResolver,
	}
}

func (h *HostLookup) Lookup(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	if strings.HasSuffix(strings.ToLower(strings.TrimSuffix(host, ".")), ".local") {
		return h.mdns.Lookup(ctx, host)
	}
	addrs, err := h.resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, err
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrHostNotFound, host)
	}
	return addrs[0].Unmap(), nil
}

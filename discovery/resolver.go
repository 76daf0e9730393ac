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

// Package discovery computes candidate robot and radio addresses and resolves
// robot host names to IP addresses.
package discovery

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	// Address of the robot controller when connected over USB
	USBAddress = "172.22.11.2"

	// Host parts of the team static addresses
	RadioHost uint8 = 1
	RobotHost uint8 = 2

	// MaxTeamNumber is the largest team number that maps onto a 10.TE.AM.x address
	MaxTeamNumber = 25599
)

var ErrInvalidTeamNumber = errors.New("invalid team number")

// ValidateTeamNumber returns an error wrapping ErrInvalidTeamNumber if the team
// has no static address
func ValidateTeamNumber(team uint) error {
	if team > MaxTeamNumber {
		return fmt.Errorf(
			"%w: %d (must be at most %d)",
			ErrInvalidTeamNumber,
			team,
			MaxTeamNumber,
		)
	}
	return nil
}

// AddressSource supplies the default addresses for a protocol version
type AddressSource interface {
	RobotAddresses(team uint) []string
	RadioAddress(team uint) string
}

// StaticIP returns the 10.TE.AM.x address for a team number
func StaticIP(team uint, host uint8) string {
	return fmt.Sprintf("10.%d.%d.%d", team/100, team%100, host)
}

// Resolver computes candidate addresses. It performs no network I/O and is safe
// for concurrent use
type Resolver struct {
	mutex         sync.RWMutex
	customAddress string
}

func NewResolver(customAddress string) *Resolver {
	r := &Resolver{}
	r.SetCustomAddress(customAddress)
	return r
}

// SetCustomAddress overrides automatic robot address resolution. An empty
// address restores automatic resolution
func (r *Resolver) SetCustomAddress(address string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.customAddress = strings.TrimSpace(address)
}

func (r *Resolver) CustomAddress() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.customAddress
}

// ResolveRobotAddress returns the ordered robot address candidates for a team
func (r *Resolver) ResolveRobotAddress(team uint, src AddressSource) []string {
	if custom := r.CustomAddress(); custom != "" {
		return []string{custom}
	}
	if src == nil {
		return nil
	}
	var ret []string
	seen := make(map[string]bool)
	for _, addr := range src.RobotAddresses(team) {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		ret = append(ret, addr)
	}
	return ret
}

// ResolveRadioAddress returns the radio address for a team
func (r *Resolver) ResolveRadioAddress(team uint, src AddressSource) string {
	if src == nil {
		return ""
	}
	return src.RadioAddress(team)
}

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

package protocol

import (
	"slices"
	"time"
)

type State struct {
	Id   uint
	Name string
}

func NewState(id uint, name string) State {
	return State{
		Id:   id,
		Name: name,
	}
}

func (s State) String() string {
	return s.Name
}

// Connected returns true for both connected states
func (s State) Connected() bool {
	return s == StateConnectedHealthy || s == StateConnectedNoCode
}

var (
	StateIdle             = NewState(0, "Idle")
	StateConnecting       = NewState(1, "Connecting")
	StateConnectedHealthy = NewState(2, "Connected")
	StateConnectedNoCode  = NewState(3, "Connected (No Code)")
	StateDisconnected     = NewState(4, "Disconnected")
)

type StateMapEntry struct {
	Transitions []State
	Timeout     time.Duration
}

type StateMap map[State]StateMapEntry

// Copy returns a copy of the state map. This is mostly for convenience,
// since we need to copy the state map in various places
func (s StateMap) Copy() StateMap {
	ret := StateMap{}
	for k, v := range s {
		ret[k] = v
	}
	return ret
}

// CanTransition reports whether the state map allows moving from one state to another
func (s StateMap) CanTransition(from State, to State) bool {
	entry, ok := s[from]
	if !ok {
		return false
	}
	return slices.Contains(entry.Transitions, to)
}

// DefaultStateMap describes the connection lifecycle shared by every protocol version.
// Every active state can fall back to Disconnected on timeout and to Connecting on
// an address change. The timeout is filled in from the protocol descriptor
var DefaultStateMap = StateMap{
	StateIdle: StateMapEntry{
		Transitions: []State{StateConnecting},
	},
	StateConnecting: StateMapEntry{
		Transitions: []State{
			StateConnecting,
			StateConnectedHealthy,
			StateConnectedNoCode,
			StateDisconnected,
		},
	},
	StateConnectedHealthy: StateMapEntry{
		Transitions: []State{
			StateConnecting,
			StateConnectedNoCode,
			StateDisconnected,
		},
	},
	StateConnectedNoCode: StateMapEntry{
		Transitions: []State{
			StateConnecting,
			StateConnectedHealthy,
			StateDisconnected,
		},
	},
	StateDisconnected: StateMapEntry{
		Transitions: []State{
			StateConnecting,
			StateConnectedHealthy,
			StateConnectedNoCode,
			StateDisconnected,
		},
	},
}

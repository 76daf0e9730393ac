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

// Package robotlog records driver station events to a file and reads them back.
//
// A log is a sequence of CBOR items: a Header followed by one Record per event
package robotlog

import (
	"errors"
	"time"

	"github.com/blinklabs-io/godriverstation/cbor"
	"github.com/blinklabs-io/godriverstation/protocol"
)

// FormatVersion is written to the header of every log
const FormatVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported robot log version")

// Header is the first item of a log
type Header struct {
	cbor.StructAsArray
	Version  uint
	Protocol string
	Team     uint
	Started  int64
}

func NewHeader(protocolName string, team uint, started time.Time) Header {
	return Header{
		Version:  FormatVersion,
		Protocol: protocolName,
		Team:     team,
		Started:  started.UnixNano(),
	}
}

func (h Header) StartTime() time.Time {
	return time.Unix(0, h.Started)
}

// Record is a single logged event
type Record struct {
	cbor.StructAsArray
	cbor.DecodeStoreCbor
	Time        int64
	Type        uint8
	Value       bool
	Voltage     float64
	Mode        uint8
	StateId     uint
	StateName   string
	Station     uint8
	Phase       uint8
	Team        uint
	Message     string
	Error       string
	Diagnostics []int
}

func (r *Record) UnmarshalCBOR(cborData []byte) error {
	return r.UnmarshalCborGeneric(cborData, r)
}

// NewRecord converts an event into a log record
func NewRecord(evt protocol.Event) Record {
	r := Record{
		Time:      evt.Time.UnixNano(),
		Type:      uint8(evt.Type),
		Value:     evt.Value,
		Voltage:   evt.Voltage,
		Mode:      uint8(evt.Mode),
		StateId:   evt.State.Id,
		StateName: evt.State.Name,
		Station:   evt.Station.Index(),
		Phase:     uint8(evt.Phase),
		Team:      evt.Team,
		Message:   evt.Message,
	}
	if evt.Type == protocol.EventTypeCommandRejected {
		r.Message = evt.Command.Type.String()
	}
	if evt.Err != nil {
		r.Error = evt.Err.Error()
	}
	if evt.Type == protocol.EventTypeDiagnosticsChanged {
		r.Diagnostics = []int{
			evt.Diagnostics.CPUUsage,
			evt.Diagnostics.RAMUsage,
			evt.Diagnostics.DiskUsage,
			evt.Diagnostics.CANUtilization,
		}
	}
	return r
}

// Event converts the record back into an event. Only the information needed to
// describe the event is restored
func (r Record) Event() protocol.Event {
	evt := protocol.Event{
		Type:    protocol.EventType(r.Type),
		Time:    time.Unix(0, r.Time),
		Value:   r.Value,
		Voltage: r.Voltage,
		Mode:    protocol.ControlMode(r.Mode),
		State:   protocol.NewState(r.StateId, r.StateName),
		Phase:   protocol.PracticePhase(r.Phase),
		Team:    r.Team,
		Message: r.Message,
	}
	if station, err := protocol.StationFromIndex(r.Station); err == nil {
		evt.Station = station
	}
	if r.Error != "" {
		evt.Err = errors.New(r.Error)
	}
	if len(r.Diagnostics) == 4 {
		evt.Diagnostics = protocol.Diagnostics{
			CPUUsage:       r.Diagnostics[0],
			RAMUsage:       r.Diagnostics[1],
			DiskUsage:      r.Diagnostics[2],
			CANUtilization: r.Diagnostics[3],
		}
	}
	return evt
}

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

package driverstation

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/protocol"
)

// DriverStationOptionFunc is a type that represents functions that modify the DriverStation config
type DriverStationOptionFunc func(*DriverStation)

// WithTeam specifies the team number
func WithTeam(team uint) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.team = team
	}
}

// WithProtocol specifies the protocol by id or name. The default is DefaultProtocol
func WithProtocol(name string) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.protocolName = name
	}
}

// WithCustomAddress specifies a robot address that replaces the protocol defaults
func WithCustomAddress(address string) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.customAddress = address
	}
}

// WithStation specifies the initial alliance station
func WithStation(station protocol.Station) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.station = station
	}
}

// WithLogger specifies the logger to use. This uses slog.Default() by default
func WithLogger(logger *slog.Logger) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.logger = logger
	}
}

// WithEventFunc specifies a callback for events. It is called synchronously from
// the protocol update loop and must not call SetTeamNumber, SetProtocol or Close
func WithEventFunc(eventFunc EventFunc) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.eventFunc = eventFunc
	}
}

// WithEventBufferSize specifies the size of the buffered channel returned by Events
func WithEventBufferSize(size int) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.eventBufferSize = size
	}
}

// WithTransportFunc specifies how transports are created. This is mostly useful for tests
func WithTransportFunc(transportFunc TransportFunc) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.transportFunc = transportFunc
	}
}

// WithLookup specifies the host name resolver for robot addresses
func WithLookup(lookup discovery.Lookup) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.lookup = lookup
	}
}

// WithPracticeTimings specifies the practice match phase durations
func WithPracticeTimings(timings protocol.PracticeTimings) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.practice = timings
	}
}

// WithTiming overrides the non-zero fields of the protocol timing
func WithTiming(timing protocol.Timing) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.timing = timing
	}
}

// WithTimezone specifies the timezone name sent to the robot
func WithTimezone(tz string) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.timezone = tz
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) DriverStationOptionFunc {
	return func(d *DriverStation) {
		d.now = now
	}
}

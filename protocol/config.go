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
	"log/slog"
	"time"

	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/transport"
)

const (
	DefaultCommandQueueSize = 64
	DefaultInboxSize        = 256
)

// Config holds the settings for an Engine
type Config struct {
	Descriptor       Descriptor
	Transport        transport.Transport
	Resolver         *discovery.Resolver
	Lookup           discovery.Lookup
	Logger           *slog.Logger
	EventFunc        EventFunc
	Team             uint
	Station          Station
	Timing           Timing
	Practice         PracticeTimings
	Timezone         string
	Now              func() time.Time
	CommandQueueSize int
	InboxSize        int
}

// EngineOptionFunc is a function that modifies a Config
type EngineOptionFunc func(*Config)

// NewConfig returns a Config with defaults, modified by the provided options
func NewConfig(options ...EngineOptionFunc) Config {
	c := Config{
		Station:          DefaultStation,
		Practice:         DefaultPracticeTimings(),
		CommandQueueSize: DefaultCommandQueueSize,
		InboxSize:        DefaultInboxSize,
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

func WithDescriptor(desc Descriptor) EngineOptionFunc {
	return func(c *Config) {
		c.Descriptor = desc
	}
}

func WithTransport(t transport.Transport) EngineOptionFunc {
	return func(c *Config) {
		c.Transport = t
	}
}

func WithResolver(r *discovery.Resolver) EngineOptionFunc {
	return func(c *Config) {
		c.Resolver = r
	}
}

func WithLookup(lookup discovery.Lookup) EngineOptionFunc {
	return func(c *Config) {
		c.Lookup = lookup
	}
}

func WithLogger(logger *slog.Logger) EngineOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

func WithEventFunc(eventFunc EventFunc) EngineOptionFunc {
	return func(c *Config) {
		c.EventFunc = eventFunc
	}
}

func WithTeam(team uint) EngineOptionFunc {
	return func(c *Config) {
		c.Team = team
	}
}

func WithStation(station Station) EngineOptionFunc {
	return func(c *Config) {
		c.Station = station
	}
}

// WithTiming overrides the non-zero fields of the descriptor timing
func WithTiming(timing Timing) EngineOptionFunc {
	return func(c *Config) {
		c.Timing = timing
	}
}

func WithPracticeTimings(timings PracticeTimings) EngineOptionFunc {
	return func(c *Config) {
		c.Practice = timings
	}
}

// WithTimezone specifies the timezone name sent with date/time sections
func WithTimezone(tz string) EngineOptionFunc {
	return func(c *Config) {
		c.Timezone = tz
	}
}

// WithClock replaces time.Now as the engine time source
func WithClock(now func() time.Time) EngineOptionFunc {
	return func(c *Config) {
		c.Now = now
	}
}

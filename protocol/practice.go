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
	"fmt"
	"time"
)

// Default practice match timings, in seconds
const (
	DefaultPracticeCountdown    = 5
	DefaultPracticeAutonomous   = 15
	DefaultPracticeDelay        = 1
	DefaultPracticeTeleoperated = 100
	DefaultPracticeEndGame      = 20
)

type PracticePhase uint8

const (
	PracticePhaseNone         PracticePhase = 0
	PracticePhaseCountdown    PracticePhase = 1
	PracticePhaseAutonomous   PracticePhase = 2
	PracticePhaseDelay        PracticePhase = 3
	PracticePhaseTeleoperated PracticePhase = 4
	PracticePhaseEndGame      PracticePhase = 5
	PracticePhaseFinished     PracticePhase = 6
)

var practicePhaseNames = map[PracticePhase]string{
	PracticePhaseNone:         "None",
	PracticePhaseCountdown:    "Countdown",
	PracticePhaseAutonomous:   "Autonomous",
	PracticePhaseDelay:        "Delay",
	PracticePhaseTeleoperated: "Teleoperated",
	PracticePhaseEndGame:      "End Game",
	PracticePhaseFinished:     "Finished",
}

func (p PracticePhase) String() string {
	if name, ok := practicePhaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PracticePhase(%d)", uint8(p))
}

// Enabled reports whether the robot is enabled during this phase
func (p PracticePhase) Enabled() bool {
	switch p {
	case PracticePhaseAutonomous, PracticePhaseTeleoperated, PracticePhaseEndGame:
		return true
	}
	return false
}

// WireMode returns the control mode sent to the robot during this phase
func (p PracticePhase) WireMode() ControlMode {
	switch p {
	case PracticePhaseCountdown, PracticePhaseAutonomous:
		return ControlModeAutonomous
	}
	return ControlModeTeleoperated
}

// PracticeTimings holds the durations of a practice match. EndGame is the
// portion at the end of the teleoperated period that is flagged as end game
type PracticeTimings struct {
	Countdown    time.Duration
	Autonomous   time.Duration
	Delay        time.Duration
	Teleoperated time.Duration
	EndGame      time.Duration
}

func DefaultPracticeTimings() PracticeTimings {
	return PracticeTimings{
		Countdown:    DefaultPracticeCountdown * time.Second,
		Autonomous:   DefaultPracticeAutonomous * time.Second,
		Delay:        DefaultPracticeDelay * time.Second,
		Teleoperated: DefaultPracticeTeleoperated * time.Second,
		EndGame:      DefaultPracticeEndGame * time.Second,
	}
}

// Total returns the length of the whole practice match
func (t PracticeTimings) Total() time.Duration {
	return t.Countdown + t.Autonomous + t.Delay + t.Teleoperated
}

// PhaseAt returns the phase a practice match is in after the given elapsed time
func (t PracticeTimings) PhaseAt(elapsed time.Duration) PracticePhase {
	if elapsed < 0 {
		return PracticePhaseNone
	}
	boundary := t.Countdown
	if elapsed < boundary {
		return PracticePhaseCountdown
	}
	boundary += t.Autonomous
	if elapsed < boundary {
		return PracticePhaseAutonomous
	}
	boundary += t.Delay
	if elapsed < boundary {
		return PracticePhaseDelay
	}
	boundary += t.Teleoperated
	if elapsed < boundary {
		if boundary-elapsed <= t.EndGame {
			return PracticePhaseEndGame
		}
		return PracticePhaseTeleoperated
	}
	return PracticePhaseFinished
}

type practiceMatch struct {
	timings PracticeTimings
	start   time.Time
	phase   PracticePhase
}

func (p *practiceMatch) begin(now time.Time) {
	p.start = now
	p.phase = p.timings.PhaseAt(0)
}

func (p *practiceMatch) stop() {
	p.phase = PracticePhaseNone
}

func (p *practiceMatch) running() bool {
	return p.phase != PracticePhaseNone && p.phase != PracticePhaseFinished
}

// advance updates the phase and returns true if it changed
func (p *practiceMatch) advance(now time.Time) bool {
	if !p.running() {
		return false
	}
	phase := p.timings.PhaseAt(now.Sub(p.start))
	if phase == p.phase {
		return false
	}
	p.phase = phase
	return true
}

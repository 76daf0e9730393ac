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

// The helpers below drive an Engine step by step from tests, without the run
// loop or real tickers

// StartManual performs the Start transition without launching the update loop
func (e *Engine) StartManual() {
	e.onceStart.Do(e.begin)
}

func (e *Engine) RobotTick() {
	now := e.config.Now()
	e.robotTick(now)
	e.finishUpdate(now)
}

func (e *Engine) FMSTick() {
	now := e.config.Now()
	e.fmsTick(now)
	e.finishUpdate(now)
}

func (e *Engine) ProbeRadio() {
	e.startRadioProbe()
}

// WaitHelpers waits for outstanding lookups and probes
func (e *Engine) WaitHelpers() {
	e.waitGroup.Wait()
}

// Drain processes every queued command and inbox message
func (e *Engine) Drain() {
	for {
		now := e.config.Now()
		select {
		case cmd := <-e.commandChan:
			e.handleCommand(now, cmd)
		case msg := <-e.inboxChan:
			e.handleMessage(now, msg)
		default:
			return
		}
		e.finishUpdate(now)
	}
}

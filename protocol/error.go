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

import "errors"

var ErrEngineShuttingDown = errors.New("protocol engine is shutting down")

// ErrMalformedPacket is returned by decoders when a frame is too short or fails
// checksum/structure validation. Malformed packets are dropped without altering
// connection status
var ErrMalformedPacket = errors.New("malformed packet")

// ErrRejectedCommand is wrapped by every command rejection reported through a
// CommandRejected event
var ErrRejectedCommand = errors.New("command rejected")

// Rejection reasons
var (
	ErrNoRobotCommunication = errors.New("no robot communication")
	ErrNoRobotCode          = errors.New("no robot code")
	ErrEmergencyStopped     = errors.New("robot is emergency stopped")
	ErrCommandQueueFull     = errors.New("command queue is full")
	ErrNoActiveProtocol     = errors.New("no active protocol")
	ErrInvalidStation       = errors.New("invalid station")
	ErrInvalidControlMode   = errors.New("invalid control mode")
)

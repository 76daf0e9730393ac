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

type EventType uint8

const (
	EventTypeNone                  EventType = 0
	EventTypeStatusChanged         EventType = 1
	EventTypeStateChanged          EventType = 2
	EventTypeCommunicationsChanged EventType = 3
	EventTypeCodeChanged           EventType = 4
	EventTypeVoltageChanged        EventType = 5
	EventTypeEnabledChanged        EventType = 6
	EventTypeControlModeChanged    EventType = 7
	EventTypeDiagnosticsChanged    EventType = 8
	EventTypeEmergencyStopChanged  EventType = 9
	EventTypeStationChanged        EventType = 10
	EventTypeRadioChanged          EventType = 11
	EventTypeFMSChanged            EventType = 12
	EventTypeCommandRejected       EventType = 13
	EventTypeBindFailed            EventType = 14
	EventTypeNetConsoleMessage     EventType = 15
	EventTypePracticePhaseChanged  EventType = 16
	EventTypeProtocolChanged       EventType = 17
	EventTypeTeamNumberChanged     EventType = 18
)

var eventTypeNames = map[EventType]string{
	EventTypeStatusChanged:         "StatusChanged",
	EventTypeStateChanged:          "StateChanged",
	EventTypeCommunicationsChanged: "CommunicationsChanged",
	EventTypeCodeChanged:           "CodeChanged",
	EventTypeVoltageChanged:        "VoltageChanged",
	EventTypeEnabledChanged:        "EnabledChanged",
	EventTypeControlModeChanged:    "ControlModeChanged",
	EventTypeDiagnosticsChanged:    "DiagnosticsChanged",
	EventTypeEmergencyStopChanged:  "EmergencyStopChanged",
	EventTypeStationChanged:        "StationChanged",
	EventTypeRadioChanged:          "RadioChanged",
	EventTypeFMSChanged:            "FMSChanged",
	EventTypeCommandRejected:       "CommandRejected",
	EventTypeBindFailed:            "BindFailed",
	EventTypeNetConsoleMessage:     "NetConsoleMessage",
	EventTypePracticePhaseChanged:  "PracticePhaseChanged",
	EventTypeProtocolChanged:       "ProtocolChanged",
	EventTypeTeamNumberChanged:     "TeamNumberChanged",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// Event is a change notification. Only the fields relevant to the event type are set:
//
//	CommunicationsChanged, CodeChanged, EnabledChanged, EmergencyStopChanged,
//	RadioChanged, FMSChanged: Value
//	VoltageChanged: Voltage
//	ControlModeChanged: Mode
//	StateChanged: State
//	StationChanged: Station
//	DiagnosticsChanged: Diagnostics
//	PracticePhaseChanged: Phase
//	CommandRejected: Command, Err
//	BindFailed: Err
//	StatusChanged, NetConsoleMessage, ProtocolChanged: Message
//	TeamNumberChanged: Team
type Event struct {
	Type        EventType
	Time        time.Time
	Value       bool
	Voltage     float64
	Mode        ControlMode
	State       State
	Station     Station
	Diagnostics Diagnostics
	Phase       PracticePhase
	Command     Command
	Message     string
	Team        uint
	Err         error
}

func (e Event) String() string {
	switch e.Type {
	case EventTypeCommunicationsChanged,
		EventTypeCodeChanged,
		EventTypeEnabledChanged,
		EventTypeEmergencyStopChanged,
		EventTypeRadioChanged,
		EventTypeFMSChanged:
		return fmt.Sprintf("%s: %t", e.Type, e.Value)
	case EventTypeVoltageChanged:
		return fmt.Sprintf("%s: %.2f V", e.Type, e.Voltage)
	case EventTypeControlModeChanged:
		return fmt.Sprintf("%s: %s", e.Type, e.Mode)
	case EventTypeStateChanged:
		return fmt.Sprintf("%s: %s", e.Type, e.State)
	case EventTypeStationChanged:
		return fmt.Sprintf("%s: %s", e.Type, e.Station)
	case EventTypeDiagnosticsChanged:
		return fmt.Sprintf(
			"%s: cpu=%d%% ram=%d%% disk=%d%% can=%d%%",
			e.Type,
			e.Diagnostics.CPUUsage,
			e.Diagnostics.RAMUsage,
			e.Diagnostics.DiskUsage,
			e.Diagnostics.CANUtilization,
		)
	case EventTypePracticePhaseChanged:
		return fmt.Sprintf("%s: %s", e.Type, e.Phase)
	case EventTypeCommandRejected, EventTypeBindFailed:
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	case EventTypeTeamNumberChanged:
		return fmt.Sprintf("%s: %d", e.Type, e.Team)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// EventFunc receives events synchronously on the goroutine that raised them
type EventFunc func(Event)

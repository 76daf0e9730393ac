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

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/blinklabs-io/godriverstation/protocol"
)

var errQuit = errors.New("quit")

const consoleHelp = `commands:
  enable | disable          enable or disable the robot
  estop                     emergency stop until restart
  auto | teleop | test      select the control mode
  practice                  select practice mode, then enable to start the match
  station <red1..blue3>     select the alliance station
  team <number>             change the team number
  protocol <id>             change the protocol
  address [ip]              set or clear the custom robot address
  reboot | restart          reboot the robot or restart the robot code
  status                    print the session status
  quit                      exit
`

// handleConsoleCommand runs one line typed on the console. It returns errQuit
// when the session should end
func handleConsoleCommand(ds *driverstation.DriverStation, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch strings.ToLower(fields[0]) {
	case "enable":
		return ds.SetEnabled(true)
	case "disable":
		return ds.SetEnabled(false)
	case "estop":
		return ds.RequestEmergencyStop()
	case "auto", "autonomous":
		return ds.StartAutonomous()
	case "teleop", "teleoperated":
		return ds.StartTeleoperated()
	case "test":
		return ds.StartTest()
	case "practice":
		return ds.StartPractice()
	case "station":
		station, err := protocol.ParseStation(strings.Join(fields[1:], ""))
		if err != nil {
			return err
		}
		return ds.SetStation(station)
	case "team":
		team, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid team number: %q", arg)
		}
		return ds.SetTeamNumber(uint(team))
	case "protocol":
		return ds.SetProtocol(strings.Join(fields[1:], " "))
	case "address":
		return ds.SetCustomAddress(arg)
	case "reboot":
		return ds.RebootRobot()
	case "restart":
		return ds.RestartCode()
	case "status":
		printStatus(out, ds.Status())
		return nil
	case "help", "?":
		fmt.Fprint(out, consoleHelp)
		return nil
	case "quit", "exit":
		return errQuit
	}
	return fmt.Errorf("unknown command: %s (try help)", fields[0])
}

func printStatus(out io.Writer, status driverstation.Status) {
	fmt.Fprintf(out, "%s team %d: %s\n", status.Protocol, status.Team, status)
	fmt.Fprintf(
		out,
		"  robot %s, radio %t, fms %t, station %s, %.2f V\n",
		valueOr(status.RobotAddress, "-"),
		status.RadioComms,
		status.FMSComms,
		status.Station,
		status.Voltage,
	)
	if status.PracticePhase != protocol.PracticePhaseNone {
		fmt.Fprintf(out, "  practice: %s\n", status.PracticePhase)
	}
}

func valueOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

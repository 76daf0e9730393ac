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

package metrics_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/godriverstation/internal/metrics"
	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testStatus() protocol.Status {
	return protocol.Status{
		Protocol:   "FRC 2016",
		Team:       118,
		State:      protocol.StateConnectedHealthy,
		Mode:       protocol.ControlModeAutonomous,
		Enabled:    true,
		Station:    protocol.DefaultStation,
		RobotComms: true,
		RobotCode:  true,
		Voltage:    12.5,
		Diagnostics: protocol.Diagnostics{
			CPUUsage:        42,
			RAMUsage:        -1,
			DiskUsage:       -1,
			CANUtilization:  3,
			PacketsSent:     100,
			PacketsReceived: 98,
		},
		ElapsedTime: 1500 * time.Millisecond,
	}
}

func TestCollector(t *testing.T) {
	collector := metrics.NewCollector(testStatus)
	// 1 info, 7 counters, 6 flags, voltage, elapsed and 2 usage values
	assert.Equal(t, 17, testutil.CollectAndCount(collector))
	expected := `
# HELP godriverstation_robot_battery_voltage Robot battery voltage.
# TYPE godriverstation_robot_battery_voltage gauge
godriverstation_robot_battery_voltage 12.5
# HELP godriverstation_robot_packets_sent_total Control packets sent to the robot.
# TYPE godriverstation_robot_packets_sent_total counter
godriverstation_robot_packets_sent_total 100
# HELP godriverstation_robot_usage_percent Robot resource usage.
# TYPE godriverstation_robot_usage_percent gauge
godriverstation_robot_usage_percent{resource="can"} 3
godriverstation_robot_usage_percent{resource="cpu"} 42
# HELP godriverstation_session_info Session information.
# TYPE godriverstation_session_info gauge
godriverstation_session_info{mode="Autonomous",protocol="FRC 2016",state="Connected",station="Red 1",team="118"} 1
`
	err := testutil.CollectAndCompare(
		collector,
		strings.NewReader(expected),
		"godriverstation_robot_battery_voltage",
		"godriverstation_robot_packets_sent_total",
		"godriverstation_robot_usage_percent",
		"godriverstation_session_info",
	)
	require.NoError(t, err)
}

func TestServer(t *testing.T) {
	defer goleak.VerifyNone(t)
	server, err := metrics.NewServer(
		"127.0.0.1:0",
		"",
		metrics.NewCollector(testStatus),
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "godriverstation_robot_communications 1")
	client.CloseIdleConnections()
	require.NoError(t, server.Stop(context.Background()))
}

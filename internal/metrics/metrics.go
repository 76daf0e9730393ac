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

// Package metrics exposes the driver station status to Prometheus
package metrics

import (
	"strconv"

	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "godriverstation"

// StatusFunc returns the current status snapshot
type StatusFunc func() protocol.Status

// Collector is a prometheus.Collector that reads a status snapshot on every scrape
type Collector struct {
	statusFunc StatusFunc

	info           *prometheus.Desc
	packetsSent    *prometheus.Desc
	packetsRecv    *prometheus.Desc
	malformed      *prometheus.Desc
	fmsPacketsSent *prometheus.Desc
	fmsPacketsRecv *prometheus.Desc
	watchdog       *prometheus.Desc
	rejected       *prometheus.Desc
	robotComms     *prometheus.Desc
	robotCode      *prometheus.Desc
	radioComms     *prometheus.Desc
	fmsComms       *prometheus.Desc
	enabled        *prometheus.Desc
	estop          *prometheus.Desc
	voltage        *prometheus.Desc
	elapsed        *prometheus.Desc
	usage          *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(statusFunc StatusFunc) *Collector {
	desc := func(subsystem string, name string, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help,
			labels,
			nil,
		)
	}
	return &Collector{
		statusFunc:     statusFunc,
		info:           desc("session", "info", "Session information.", "protocol", "team", "state", "mode", "station"),
		packetsSent:    desc("robot", "packets_sent_total", "Control packets sent to the robot."),
		packetsRecv:    desc("robot", "packets_received_total", "Status packets received from the robot."),
		malformed:      desc("robot", "malformed_packets_total", "Malformed packets dropped."),
		fmsPacketsSent: desc("fms", "packets_sent_total", "Status packets sent to the FMS."),
		fmsPacketsRecv: desc("fms", "packets_received_total", "Control packets received from the FMS."),
		watchdog:       desc("robot", "watchdog_expirations_total", "Robot communication timeouts."),
		rejected:       desc("session", "rejected_commands_total", "Commands rejected by the session."),
		robotComms:     desc("robot", "communications", "Whether the robot is communicating."),
		robotCode:      desc("robot", "code", "Whether the robot reports user code."),
		radioComms:     desc("radio", "communications", "Whether the radio answers probes."),
		fmsComms:       desc("fms", "communications", "Whether the FMS is communicating."),
		enabled:        desc("robot", "enabled", "Whether the robot is enabled."),
		estop:          desc("robot", "emergency_stopped", "Whether the robot is emergency stopped."),
		voltage:        desc("robot", "battery_voltage", "Robot battery voltage."),
		elapsed:        desc("robot", "enabled_seconds", "Time since the robot was enabled."),
		usage:          desc("robot", "usage_percent", "Robot resource usage.", "resource"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs() {
		ch <- d
	}
}

func (c *Collector) descs() []*prometheus.Desc {
	return []*prometheus.Desc{
		c.info,
		c.packetsSent,
		c.packetsRecv,
		c.malformed,
		c.fmsPacketsSent,
		c.fmsPacketsRecv,
		c.watchdog,
		c.rejected,
		c.robotComms,
		c.robotCode,
		c.radioComms,
		c.fmsComms,
		c.enabled,
		c.estop,
		c.voltage,
		c.elapsed,
		c.usage,
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	status := c.statusFunc()
	diag := status.Diagnostics
	ch <- prometheus.MustNewConstMetric(
		c.info,
		prometheus.GaugeValue,
		1,
		status.Protocol,
		strconv.FormatUint(uint64(status.Team), 10),
		status.State.String(),
		status.Mode.String(),
		status.Station.String(),
	)
	counters := []struct {
		desc  *prometheus.Desc
		value uint64
	}{
		{c.packetsSent, diag.PacketsSent},
		{c.packetsRecv, diag.PacketsReceived},
		{c.malformed, diag.MalformedPackets},
		{c.fmsPacketsSent, diag.FMSPacketsSent},
		{c.fmsPacketsRecv, diag.FMSPacketsReceived},
		{c.watchdog, diag.WatchdogExpirations},
		{c.rejected, diag.RejectedCommands},
	}
	for _, counter := range counters {
		ch <- prometheus.MustNewConstMetric(counter.desc, prometheus.CounterValue, float64(counter.value))
	}
	flags := []struct {
		desc  *prometheus.Desc
		value bool
	}{
		{c.robotComms, status.RobotComms},
		{c.robotCode, status.RobotCode},
		{c.radioComms, status.RadioComms},
		{c.fmsComms, status.FMSComms},
		{c.enabled, status.Enabled},
		{c.estop, status.EmergencyStop},
	}
	for _, flag := range flags {
		ch <- prometheus.MustNewConstMetric(flag.desc, prometheus.GaugeValue, boolToFloat(flag.value))
	}
	ch <- prometheus.MustNewConstMetric(c.voltage, prometheus.GaugeValue, status.Voltage)
	ch <- prometheus.MustNewConstMetric(c.elapsed, prometheus.GaugeValue, status.ElapsedTime.Seconds())
	usage := []struct {
		resource string
		value    int
	}{
		{"cpu", diag.CPUUsage},
		{"ram", diag.RAMUsage},
		{"disk", diag.DiskUsage},
		{"can", diag.CANUtilization},
	}
	for _, u := range usage {
		// Negative values are not reported by the robot
		if u.value < 0 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.usage, prometheus.GaugeValue, float64(u.value), u.resource)
	}
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

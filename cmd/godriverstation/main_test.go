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
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/internal/config"
	"github.com/blinklabs-io/godriverstation/internal/test/robot_mock"
	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/blinklabs-io/godriverstation/robotlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// syncBuffer is a bytes.Buffer that can be written from several goroutines
type syncBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProtocolsCommand(t *testing.T) {
	out, err := execute(t, "protocols")
	require.NoError(t, err)
	assert.Contains(t, out, "FRC 2016")
	assert.Contains(t, out, "FRC 2015")
	assert.Contains(t, out, "FRC 2014")
	assert.Contains(t, out, "1150/1110")
	// 2016 is listed first
	assert.Less(t, strings.Index(out, "FRC 2016"), strings.Index(out, "FRC 2014"))
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "--team", "118")
	require.NoError(t, err)
	assert.Contains(t, out, "protocol: FRC 2016")
	assert.Contains(t, out, "radio: 10.1.18.1")
	assert.Contains(t, out, "robot[0]: roboRIO-118-FRC.local")
	assert.Contains(t, out, "robot[1]: 10.1.18.2")
	assert.Contains(t, out, "robot[2]: 172.22.11.2")

	out, err = execute(t, "resolve", "-t", "254", "-p", "2014", "-a", "192.168.1.50")
	require.NoError(t, err)
	assert.Contains(t, out, "protocol: FRC 2014")
	assert.Contains(t, out, "robot[0]: 192.168.1.50")
	assert.NotContains(t, out, "robot[1]")

	_, err = execute(t, "resolve", "--protocol", "1999")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "godriverstation.yaml")
	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	// Existing files are kept unless forced
	_, err = execute(t, "config", "init", "-o", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "-o", path, "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "show", "-c", path, "--team", "254")
	require.NoError(t, err)
	assert.Contains(t, out, "team: 254")

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "practice:")
}

func TestLogDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.log")
	start := time.Date(2016, time.March, 5, 14, 0, 0, 0, time.UTC)
	rec, err := robotlog.Create(path, robotlog.NewHeader("FRC 2016", 118, start))
	require.NoError(t, err)
	rec.Record(protocol.Event{
		Type:    protocol.EventTypeVoltageChanged,
		Time:    start.Add(1500 * time.Millisecond),
		Voltage: 12.25,
	})
	require.NoError(t, rec.Close())

	out, err := execute(t, "log", "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "FRC 2016 team 118, started 2016-03-05T14:00:00Z")
	assert.Contains(t, out, "1.500  VoltageChanged: 12.25 V")

	out, err = execute(t, "log", "dump", "--raw", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	_, err = execute(t, "log", "dump", filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func newTestDriverStation(t *testing.T) *driverstation.DriverStation {
	t.Helper()
	robot := robot_mock.NewRobot(driverstation.ProtocolFRC2016)
	factory := robot_mock.NewFactory(robot_mock.WithRobot(robot))
	ds, err := driverstation.New(
		driverstation.WithTeam(118),
		driverstation.WithCustomAddress(robot_mock.MockRobotAddress.Addr().String()),
		driverstation.WithTransportFunc(factory.New),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ds.Close()
	})
	return ds
}

func TestHandleConsoleCommand(t *testing.T) {
	defer goleak.VerifyNone(t)
	ds := newTestDriverStation(t)
	var out bytes.Buffer
	testDefs := []struct {
		line    string
		wantErr bool
	}{
		{line: ""},
		{line: "teleop"},
		{line: "station blue 2"},
		{line: "station green"},
		{line: "team abc", wantErr: true},
		{line: "team 30000", wantErr: true},
		{line: "protocol 2099", wantErr: true},
		{line: "address 10.1.18.2"},
		{line: "restart"},
		{line: "status"},
		{line: "help"},
		{line: "dance", wantErr: true},
	}
	for _, testDef := range testDefs {
		err := handleConsoleCommand(ds, testDef.line, &out)
		if testDef.line == "station green" {
			assert.ErrorIs(t, err, protocol.ErrInvalidStation)
			continue
		}
		if testDef.wantErr {
			assert.Error(t, err, testDef.line)
		} else {
			assert.NoError(t, err, testDef.line)
		}
	}
	assert.ErrorIs(t, handleConsoleCommand(ds, "quit", &out), errQuit)
	assert.Contains(t, out.String(), "FRC 2016 team 118")
	assert.Contains(t, out.String(), "commands:")
	require.Eventually(
		t,
		func() bool {
			return ds.Status().Station == protocol.Station{Alliance: protocol.AllianceBlue, Position: 2}
		},
		2*time.Second,
		10*time.Millisecond,
	)
	require.NoError(t, ds.Close())
}

func TestRunSession(t *testing.T) {
	defer goleak.VerifyNone(t)
	robot := robot_mock.NewRobot(driverstation.ProtocolFRC2016)
	factory := robot_mock.NewFactory(robot_mock.WithRobot(robot))
	cfg := config.Default()
	cfg.Team = 118
	cfg.CustomAddress = robot_mock.MockRobotAddress.Addr().String()
	cfg.RobotLog.Enabled = true
	cfg.RobotLog.Path = filepath.Join(t.TempDir(), "robot.log")
	var out syncBuffer
	err := runSession(
		context.Background(),
		cfg,
		nil,
		strings.NewReader("bogus\nquit\n"),
		&out,
		false,
		driverstation.WithTransportFunc(factory.New),
		driverstation.WithLookup(discovery.LookupFunc(
			func(ctx context.Context, host string) (netip.Addr, error) {
				return netip.Addr{}, discovery.ErrHostNotFound
			},
		)),
	)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error: unknown command: bogus")
	assert.Contains(t, out.String(), "StateChanged: Connecting")
	f, err := os.Open(cfg.RobotLog.Path)
	require.NoError(t, err)
	defer f.Close()
	header, records, err := robotlog.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, uint(118), header.Team)
	assert.NotEmpty(t, records)
	assert.True(t, factory.Last().Closed())
}

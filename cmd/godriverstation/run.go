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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/blinklabs-io/godriverstation/internal/config"
	"github.com/blinklabs-io/godriverstation/internal/logging"
	"github.com/blinklabs-io/godriverstation/internal/metrics"
	"github.com/blinklabs-io/godriverstation/robotlog"
	"github.com/spf13/cobra"
)

func newRunCommand(f *globalFlags) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a driver station session",
		Long: `Start a driver station session and read operator commands from stdin.
Type "help" for the list of commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(
				ctx,
				cfg,
				logger.Logger,
				cmd.InOrStdin(),
				cmd.OutOrStdout(),
				quiet,
			)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print events")
	return cmd
}

// driverStationOptions converts the configuration into DriverStation options
func driverStationOptions(cfg *config.Config, logger *slog.Logger) []driverstation.DriverStationOptionFunc {
	return []driverstation.DriverStationOptionFunc{
		driverstation.WithTeam(cfg.Team),
		driverstation.WithProtocol(cfg.Protocol),
		driverstation.WithCustomAddress(cfg.CustomAddress),
		driverstation.WithStation(cfg.StationValue()),
		driverstation.WithPracticeTimings(cfg.PracticeTimings()),
		driverstation.WithTiming(cfg.Timing()),
		driverstation.WithTimezone(cfg.Timezone),
		driverstation.WithLogger(logger),
	}
}

func runSession(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	in io.Reader,
	out io.Writer,
	quiet bool,
	extraOptions ...driverstation.DriverStationOptionFunc,
) error {
	options := append(driverStationOptions(cfg, logger), extraOptions...)
	ds, err := driverstation.New(options...)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer ds.Close()

	var recorder *robotlog.Recorder
	if cfg.RobotLog.Enabled {
		recorder, err = robotlog.Create(
			cfg.RobotLog.Path,
			robotlog.NewHeader(ds.Protocol().Name(), ds.TeamNumber(), time.Now()),
			robotlog.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to open robot log: %w", err)
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("failed to close robot log", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		server, err := metrics.NewServer(
			cfg.Metrics.Listen,
			cfg.Metrics.Path,
			metrics.NewCollector(ds.Status),
			logger,
		)
		if err != nil {
			return err
		}
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(context.Background()); err != nil {
				logger.Error("failed to stop metrics server", "error", err)
			}
		}()
	}

	// Events are printed and recorded until the session is closed
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for evt := range ds.Events() {
			if recorder != nil {
				recorder.Record(evt)
			}
			if !quiet {
				fmt.Fprintf(out, "%s  %s\n", evt.Time.Format("15:04:05.000"), evt)
			}
		}
	}()

	// The console reader cannot be interrupted, so it is not waited for
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	printStatus(out, ds.Status())
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				// Keep running on end of input until interrupted
				lines = nil
				continue
			}
			if err := handleConsoleCommand(ds, line, out); err != nil {
				if errors.Is(err, errQuit) {
					break loop
				}
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
	if err := ds.Close(); err != nil {
		logger.Warn("failed to close session", "error", err)
	}
	<-eventsDone
	return nil
}

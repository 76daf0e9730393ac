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
	"github.com/blinklabs-io/godriverstation/internal/config"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile    string
	team          uint
	protocol      string
	customAddress string
}

func newRootCommand() *cobra.Command {
	f := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "godriverstation",
		Short: "FRC driver station",
		Long: `godriverstation talks to an FRC robot controller using the 2014, 2015 or 2016
driver station protocol. It keeps the robot disabled whenever communications
are lost and can report the session status to Prometheus.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(
		&f.configFile,
		"config",
		"c",
		"",
		"config file path",
	)
	cmd.PersistentFlags().UintVarP(
		&f.team,
		"team",
		"t",
		0,
		"team number (overrides the config file)",
	)
	cmd.PersistentFlags().StringVarP(
		&f.protocol,
		"protocol",
		"p",
		"",
		"protocol id or name, e.g. 2016 (overrides the config file)",
	)
	cmd.PersistentFlags().StringVarP(
		&f.customAddress,
		"address",
		"a",
		"",
		"custom robot address (overrides the config file)",
	)
	cmd.AddCommand(
		newRunCommand(f),
		newResolveCommand(f),
		newProtocolsCommand(),
		newLogCommand(),
		newConfigCommand(f),
	)
	return cmd
}

// loadConfig loads the config file and applies the command line overrides
func (f *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("team") {
		cfg.Team = f.team
	}
	if flags.Changed("protocol") {
		cfg.Protocol = f.protocol
	}
	if flags.Changed("address") {
		cfg.CustomAddress = f.customAddress
	}
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

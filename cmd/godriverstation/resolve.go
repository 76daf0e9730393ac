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
	"context"
	"fmt"
	"time"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/spf13/cobra"
)

func newResolveCommand(f *globalFlags) *cobra.Command {
	var lookup bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the robot and radio addresses for a team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}
			desc, ok := driverstation.ProtocolByName(cfg.Protocol)
			if !ok {
				return fmt.Errorf("unknown protocol: %s", cfg.Protocol)
			}
			resolver := discovery.NewResolver(cfg.CustomAddress)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "protocol: %s\n", desc.Name())
			fmt.Fprintf(out, "team: %d\n", cfg.Team)
			fmt.Fprintf(out, "radio: %s\n", resolver.ResolveRadioAddress(cfg.Team, desc))
			hostLookup := discovery.NewHostLookup(nil)
			for idx, host := range resolver.ResolveRobotAddress(cfg.Team, desc) {
				if !lookup {
					fmt.Fprintf(out, "robot[%d]: %s\n", idx, host)
					continue
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				addr, err := hostLookup.Lookup(ctx, host)
				cancel()
				if err != nil {
					fmt.Fprintf(out, "robot[%d]: %s (%v)\n", idx, host, err)
					continue
				}
				fmt.Fprintf(out, "robot[%d]: %s -> %s\n", idx, host, addr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&lookup, "lookup", "l", false, "resolve host names using mDNS/DNS")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "timeout for each lookup")
	return cmd
}

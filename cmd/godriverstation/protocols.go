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
	"fmt"
	"text/tabwriter"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/spf13/cobra"
)

func newProtocolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "protocols",
		Short: "List the supported protocols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROBOT PORTS\tFMS PORTS\tNETCONSOLE\tINTERVAL")
			for _, desc := range driverstation.Protocols() {
				ports := desc.Ports()
				netConsole := "-"
				if ports.NetConsoleLocal > 0 {
					netConsole = fmt.Sprintf("%d", ports.NetConsoleLocal)
				}
				fmt.Fprintf(
					w,
					"%s\t%s\t%d/%d\t%d/%d\t%s\t%s\n",
					desc.Id(),
					desc.Name(),
					ports.RobotLocal,
					ports.RobotRemote,
					ports.FMSLocal,
					ports.FMSRemote,
					netConsole,
					desc.Timing().RobotInterval,
				)
			}
			return w.Flush()
		},
	}
}

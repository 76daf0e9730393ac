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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blinklabs-io/godriverstation/robotlog"
	"github.com/spf13/cobra"
)

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Robot log tools",
	}
	cmd.AddCommand(newLogDumpCommand())
	return cmd
}

func newLogDumpCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the events of a robot log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return dumpLog(cmd.OutOrStdout(), f, raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "also print the CBOR of each record")
	return cmd
}

func dumpLog(out io.Writer, r io.Reader, raw bool) error {
	reader, err := robotlog.NewReader(r)
	if err != nil {
		return err
	}
	header := reader.Header()
	start := header.StartTime()
	fmt.Fprintf(
		out,
		"%s team %d, started %s\n",
		header.Protocol,
		header.Team,
		start.UTC().Format(time.RFC3339),
	)
	for {
		record, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		evt := record.Event()
		fmt.Fprintf(out, "%10.3f  %s\n", evt.Time.Sub(start).Seconds(), evt.String())
		if raw {
			fmt.Fprintf(out, "            %s\n", hex.EncodeToString(record.Cbor()))
		}
	}
}

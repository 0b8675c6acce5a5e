// Copyright 2025 uzqw
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
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uzqw/vex/internal/protocol"
)

func newQueryCmd() *cobra.Command {
	var host string
	var port string
	var dbName string
	var k int

	cmd := &cobra.Command{
		Use:   "query <vector-json>",
		Short: "Issue a one-shot VSEARCH against a running server and print the ordered keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vector := args[0]

			conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
			if err != nil {
				return fmt.Errorf("vexctl: connecting to %s:%s: %w", host, port, err)
			}
			defer conn.Close()

			writer := protocol.NewRESPWriter(conn)
			reader := protocol.NewRESPReader(conn)

			if err := writer.WriteArray([]string{"VSEARCH", vector, strconv.Itoa(k)}); err != nil {
				return err
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			keys, err := reader.ReadCommand()
			if err != nil {
				return fmt.Errorf("vexctl: reading response: %w", err)
			}

			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no matches)")
				return nil
			}
			for i, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%d) %s\n", i+1, key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Server host")
	cmd.Flags().StringVar(&port, "port", "6379", "Server port")
	cmd.Flags().StringVar(&dbName, "db", "", "Named database to query (reserved for multi-database servers)")
	cmd.Flags().IntVar(&k, "k", 10, "Number of nearest neighbors to return")

	return cmd
}

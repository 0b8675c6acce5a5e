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
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/uzqw/vex/internal/config"
	"github.com/uzqw/vex/internal/engine"
	"github.com/uzqw/vex/internal/recordstore"
	"github.com/uzqw/vex/internal/registry"
)

func newRebuildCmd() *cobra.Command {
	var configPath string
	var dbName string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Open a named table fresh and replay its record store into it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			dbCfg, ok := cfg.Lookup(dbName)
			if !ok {
				return fmt.Errorf("database %q not found in %s", dbName, configPath)
			}

			mode, err := engine.ParseMode(dbCfg.Mode)
			if err != nil {
				return err
			}
			tbl, err := engine.Open(dbCfg.Dims, mode)
			if err != nil {
				return err
			}

			store, err := recordstore.Open(dbCfg.DataDir)
			if err != nil {
				return err
			}

			reg := registry.New()
			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			result, err := recordstore.Replay(store, tbl, reg, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database %q rebuilt: %d loaded, %d skipped\n",
				dbCfg.Name, result.Loaded, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "vex.yaml", "Path to the database configuration file")
	cmd.Flags().StringVar(&dbName, "db", "", "Named database to rebuild")
	cmd.MarkFlagRequired("db")

	return cmd
}

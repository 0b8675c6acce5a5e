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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0, 2)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"rebuild", "query"}, names)
}

func TestRebuildCommandRequiresDB(t *testing.T) {
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"rebuild", "--config", "vex.yaml"})

	err := root.Execute()
	require.Error(t, err)
}

func TestRebuildCommandRunsAgainstConfig(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	configPath := filepath.Join(dir, "vex.yaml")

	body := "databases:\n" +
		"  - name: demo\n" +
		"    dims: 3\n" +
		"    mode: L2NORM\n" +
		"    data_dir: " + dataDir + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"rebuild", "--config", configPath, "--db", "demo"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "0 loaded, 0 skipped")
}

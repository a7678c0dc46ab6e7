// Copyright 2026 Supabase, Inc.
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

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetcheck/fleetcheck/go/viperutil/debug"
)

// AddConfigCommand adds the config subcommand, which prints the effective
// configuration with secrets redacted.
func AddConfigCommand(root *cobra.Command, fc *FleetCheck) {
	var format string
	var check bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				if err := fc.cfg.Validate(); err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}
			}
			return debug.Write(fc.stdout, fc.reg, cmd.Flags(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml or json)")
	cmd.Flags().BoolVar(&check, "validate", false, "fail when the configuration is invalid")
	root.AddCommand(cmd)
}

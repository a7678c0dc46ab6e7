// Copyright 2023 The Vitess Authors.
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
//
// Modifications Copyright 2025 Supabase, Inc.

// Package debug renders the effective configuration of a registry.
package debug

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/fleetcheck/fleetcheck/go/viperutil"
)

// Redacted replaces the value of secret-looking keys.
const Redacted = "<redacted>"

var secretMarkers = []string{"password", "secret", "token", "access-key", "access_key", "accesskey"}

// Dump is what Write renders.
type Dump struct {
	ConfigFile       string            `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	CommandLineFlags map[string]string `json:"command_line_flags" yaml:"command_line_flags"`
	Config           map[string]any    `json:"config" yaml:"config"`
}

// Collect gathers the changed flags of fs and every value of reg, with
// secrets redacted.
func Collect(reg *viperutil.Registry, fs *pflag.FlagSet) Dump {
	v := reg.Combined()
	d := Dump{
		ConfigFile:       v.ConfigFileUsed(),
		CommandLineFlags: map[string]string{},
		Config:           redact(v.AllSettings()),
	}
	if fs != nil {
		fs.VisitAll(func(flag *pflag.Flag) {
			if !flag.Changed {
				return
			}
			val := flag.Value.String()
			if isSecret(flag.Name) {
				val = Redacted
			}
			d.CommandLineFlags[flag.Name] = val
		})
	}
	return d
}

// Write renders the dump as "yaml" (the default) or "json".
func Write(w io.Writer, reg *viperutil.Registry, fs *pflag.FlagSet, format string) error {
	d := Collect(reg, fs)
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, m := range secretMarkers {
		if strings.Contains(k, m) {
			return true
		}
	}
	return false
}

func redact(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case isSecret(k):
			if v != nil && v != "" {
				v = Redacted
			}
		default:
			if sub, ok := v.(map[string]any); ok {
				v = redact(sub)
			}
		}
		out[k] = v
	}
	return out
}

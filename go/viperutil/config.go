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

package viperutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ViperConfig holds the flags that control where the config file comes from.
type ViperConfig struct {
	configPaths                Value[[]string]
	configType                 Value[string]
	configName                 Value[string]
	configFile                 Value[string]
	configFileNotFoundHandling Value[ConfigFileNotFoundHandling]
}

// DefaultConfigPaths are searched when --config-path is not given.
var DefaultConfigPaths = []string{".", "/etc/fleetcheck"}

func NewViperConfig(reg *Registry) *ViperConfig {
	return &ViperConfig{
		configPaths: Configure(
			reg,
			"config.paths",
			Options[[]string]{
				Default:  DefaultConfigPaths,
				EnvVars:  []string{"FLEETCHECK_CONFIG_PATH"},
				FlagName: "config-path",
			},
		),
		configType: Configure(
			reg,
			"config.type",
			Options[string]{
				EnvVars:  []string{"FLEETCHECK_CONFIG_TYPE"},
				FlagName: "config-type",
			},
		),
		configName: Configure(
			reg,
			"config.name",
			Options[string]{
				Default:  "fleetcheck",
				EnvVars:  []string{"FLEETCHECK_CONFIG_NAME"},
				FlagName: "config-name",
			},
		),
		configFile: Configure(
			reg,
			"config.file",
			Options[string]{
				EnvVars:  []string{"FLEETCHECK_CONFIG_FILE"},
				FlagName: "config-file",
			},
		),
		configFileNotFoundHandling: Configure(
			reg,
			"config.notfound.handling",
			Options[ConfigFileNotFoundHandling]{
				Default:  WarnOnConfigFileNotFound,
				GetFunc:  getHandlingValue,
				FlagName: "config-file-not-found-handling",
			},
		),
	}
}

// RegisterFlags installs the flags that control config-loading behavior.
func (vc *ViperConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSlice("config-path", vc.configPaths.Default(), "Paths to search for config files in.")
	fs.String("config-type", vc.configType.Default(), "Config file type (omit to infer config type from file extension).")
	fs.String("config-name", vc.configName.Default(), "Name of the config file (without extension) to search for.")
	fs.String("config-file", vc.configFile.Default(), "Full path of the config file (with extension) to use. If set, --config-path, --config-type, and --config-name are ignored.")

	h := vc.configFileNotFoundHandling.Default()
	fs.Var(&h, "config-file-not-found-handling", fmt.Sprintf("Behavior when a config file is not found. (Options: %s)", strings.Join(handlingNames, ", ")))

	BindFlags(fs, vc.configPaths, vc.configType, vc.configName, vc.configFile, vc.configFileNotFoundHandling)
}

// LoadConfig attempts to find, and then load, a config file for viper-backed
// config values to use.
//
// Config searching follows the behavior used by viper [1], namely:
//   - --config-file (full path, including extension) if set will be used to the
//     exclusion of all other flags.
//   - --config-type is required if the config file does not have one of viper's
//     supported extensions (.yaml, .yml, .json, and so on)
//
// --config-file-not-found-handling controls what happens when no file is
// found: a health check can run from flags and environment variables alone.
//
// Call Registry.Watch afterwards to follow edits of the loaded file.
//
// [1]: https://github.com/spf13/viper#reading-config-files.
func (vc *ViperConfig) LoadConfig(reg *Registry) error {
	reg.mu.Lock()
	var err error
	switch file := getStringLocked(reg, vc.configFile); file {
	case "":
		if name := getStringLocked(reg, vc.configName); name != "" {
			reg.static.SetConfigName(name)

			var paths []string
			_ = unmarshalKey(reg.static, vc.configPaths.Key(), &paths)
			for _, path := range paths {
				reg.static.AddConfigPath(path)
			}

			if cfgType := getStringLocked(reg, vc.configType); cfgType != "" {
				reg.static.SetConfigType(cfgType)
			}

			err = reg.static.ReadInConfig()
		}
	default:
		reg.static.SetConfigFile(file)
		err = reg.static.ReadInConfig()
	}
	used := reg.static.ConfigFileUsed()
	reg.mu.Unlock()

	if err == nil {
		if used != "" {
			slog.Debug("loaded config file", "file", used)
		}
		return nil
	}
	if !isConfigFileNotFoundError(err) {
		return err
	}

	switch vc.configFileNotFoundHandling.Get() {
	case IgnoreConfigFileNotFound:
		return nil
	case WarnOnConfigFileNotFound:
		slog.Warn("config file not found, using flags, environment and defaults", "file", used, "error", err)
		return nil
	case ExitOnConfigFileNotFound:
		slog.Error("config file not found", "file", used, "error", err)
		os.Exit(1)
	}
	slog.Error("config file not found", "file", used, "error", err)
	return err
}

// getStringLocked reads a string value while reg.mu is already held.
func getStringLocked(reg *Registry, v Value[string]) string {
	return reg.static.GetString(v.Key())
}

// isConfigFileNotFoundError checks if the error is caused because the file wasn't found.
func isConfigFileNotFoundError(err error) bool {
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}

// ConfigFileNotFoundHandling is an enum to control how LoadConfig treats errors
// of type viper.ConfigFileNotFoundError when loading a config.
type ConfigFileNotFoundHandling int

const (
	// IgnoreConfigFileNotFound causes LoadConfig to completely ignore a
	// ConfigFileNotFoundError (i.e. not even logging it).
	IgnoreConfigFileNotFound ConfigFileNotFoundHandling = iota
	// WarnOnConfigFileNotFound causes LoadConfig to log a warning and carry on
	// with defaults, environment variables, and flags.
	WarnOnConfigFileNotFound
	// ErrorOnConfigFileNotFound causes LoadConfig to return the
	// ConfigFileNotFoundError after logging an error.
	ErrorOnConfigFileNotFound
	// ExitOnConfigFileNotFound causes LoadConfig to exit the process.
	ExitOnConfigFileNotFound
)

var (
	handlingNames         []string
	handlingNamesToValues = map[string]int{
		"ignore": int(IgnoreConfigFileNotFound),
		"warn":   int(WarnOnConfigFileNotFound),
		"error":  int(ErrorOnConfigFileNotFound),
		"exit":   int(ExitOnConfigFileNotFound),
	}
	handlingValuesToNames map[int]string
)

func getHandlingValue(v *viper.Viper) func(key string) ConfigFileNotFoundHandling {
	return func(key string) (h ConfigFileNotFoundHandling) {
		if err := v.UnmarshalKey(key, &h, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(decodeHandlingValue))); err != nil {
			h = IgnoreConfigFileNotFound
			slog.Warn(fmt.Sprintf("failed to unmarshal %s: %s; defaulting to %s", key, err.Error(), h.String()))
		}

		return h
	}
}

func decodeHandlingValue(from, to reflect.Type, data any) (any, error) {
	var h ConfigFileNotFoundHandling
	if to != reflect.TypeOf(h) {
		return data, nil
	}

	switch {
	case from == reflect.TypeOf(h):
		return data.(ConfigFileNotFoundHandling), nil
	case from.Kind() == reflect.Int:
		return ConfigFileNotFoundHandling(data.(int)), nil
	case from.Kind() == reflect.String:
		if err := h.Set(data.(string)); err != nil {
			return h, err
		}

		return h, nil
	}

	return data, fmt.Errorf("invalid value for ConfigHandlingType: %v", data)
}

func init() {
	handlingNames = make([]string, 0, len(handlingNamesToValues))
	handlingValuesToNames = make(map[int]string, len(handlingNamesToValues))

	for name, val := range handlingNamesToValues {
		handlingValuesToNames[val] = name
		handlingNames = append(handlingNames, name)
	}

	sort.Strings(handlingNames)
}

func (h *ConfigFileNotFoundHandling) Set(arg string) error {
	larg := strings.ToLower(arg)
	if v, ok := handlingNamesToValues[larg]; ok {
		*h = ConfigFileNotFoundHandling(v)
		return nil
	}

	return fmt.Errorf("unknown handling name %s", arg)
}

func (h *ConfigFileNotFoundHandling) String() string {
	if name, ok := handlingValuesToNames[int(*h)]; ok {
		return name
	}

	return "<UNKNOWN>"
}

func (h *ConfigFileNotFoundHandling) Type() string { return "ConfigFileNotFoundHandling" }

// Copyright 2025 Supabase, Inc.
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

package viperutil

import (
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Registry holds the static and dynamic viper instances for configuration.
// Each command gets its own isolated registry.
//
// Static values come from defaults, environment, flags and the config file as
// it was when LoadConfig ran. Dynamic values additionally pick up later edits
// of that file once Watch has been started; for those keys a reloaded file
// wins over flags.
type Registry struct {
	fs afero.Fs

	mu sync.RWMutex
	// static is never touched by a reload.
	static *viper.Viper
	// dynamic is the most recent successful re-read of the config file, or
	// nil before the first reload.
	dynamic *viper.Viper

	subscribers []chan<- struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFs makes the registry read config files from fs instead of the OS
// filesystem. Tests use afero.NewMemMapFs.
func WithFs(fs afero.Fs) RegistryOption {
	return func(r *Registry) { r.fs = fs }
}

// NewRegistry creates a new isolated configuration registry.
//
// Example usage:
//
//	reg := viperutil.NewRegistry()
//	region := viperutil.Configure(reg, "aws.region", viperutil.Options[string]{
//	    Default:  "us-east-1",
//	    FlagName: "aws-region",
//	})
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(r)
	}
	r.static = viper.New()
	r.static.SetFs(r.fs)
	return r
}

// Combined returns a viper instance with every current value: static values
// overlaid by the latest reload.
func (reg *Registry) Combined() *viper.Viper {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	v := viper.New()
	_ = v.MergeConfigMap(reg.static.AllSettings())
	if reg.dynamic != nil {
		_ = v.MergeConfigMap(reg.dynamic.AllSettings())
	}
	v.SetConfigFile(reg.static.ConfigFileUsed())
	return v
}

// ConfigFileUsed returns the config file LoadConfig read, if any.
func (reg *Registry) ConfigFileUsed() string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.static.ConfigFileUsed()
}

// source returns the viper a key should be read from. Callers hold reg.mu.
func (reg *Registry) source(key string, dynamic bool) *viper.Viper {
	if dynamic && reg.dynamic != nil && reg.dynamic.InConfig(key) {
		return reg.dynamic
	}
	return reg.static
}

// decodeHooks are applied to every typed read so that strings coming from
// flags, environment variables and YAML decode into durations, slices and
// TextUnmarshaler types.
func decodeHooks(extra ...mapstructure.DecodeHookFunc) viper.DecoderConfigOption {
	hooks := append([]mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	}, extra...)
	return func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(hooks...)
		c.WeaklyTypedInput = true
	}
}

func unmarshalKey(v *viper.Viper, key string, out any) error {
	return v.UnmarshalKey(key, out, decodeHooks())
}

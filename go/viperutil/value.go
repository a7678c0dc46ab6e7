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
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options configures a single config value.
type Options[T any] struct {
	// Default is returned when no source sets the key.
	Default T
	// FlagName is the pflag bound by BindFlags. Empty means no flag.
	FlagName string
	// EnvVars are checked in order before the config file.
	EnvVars []string
	// Dynamic values follow edits of the config file after Watch starts.
	Dynamic bool
	// GetFunc overrides the typed read, for types that need custom decoding.
	GetFunc func(v *viper.Viper) func(key string) T
}

// Registerable is a value that can be bound to a flag.
type Registerable interface {
	Key() string
	bind(fs *pflag.FlagSet) error
}

// Value is a typed handle on one config key.
type Value[T any] interface {
	Registerable
	Get() T
	Default() T
	Set(v T)
}

type value[T any] struct {
	reg  *Registry
	key  string
	opts Options[T]
}

// Configure registers key in reg and returns a typed handle for it.
func Configure[T any](reg *Registry, key string, opts Options[T]) Value[T] {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.static.SetDefault(key, opts.Default)
	if len(opts.EnvVars) > 0 {
		_ = reg.static.BindEnv(append([]string{key}, opts.EnvVars...)...)
	}
	return &value[T]{reg: reg, key: key, opts: opts}
}

func (v *value[T]) Key() string { return v.key }
func (v *value[T]) Default() T  { return v.opts.Default }

// Get returns the current value. A value that cannot be decoded falls back to
// the default and logs a warning.
func (v *value[T]) Get() T {
	v.reg.mu.RLock()
	defer v.reg.mu.RUnlock()

	src := v.reg.source(v.key, v.opts.Dynamic)
	if v.opts.GetFunc != nil {
		return v.opts.GetFunc(src)(v.key)
	}

	var out T
	if err := unmarshalKey(src, v.key, &out); err != nil {
		slog.Warn("invalid config value, using default", "key", v.key, "error", err)
		return v.opts.Default
	}
	return out
}

// Set overrides every other source. Mostly useful in tests.
func (v *value[T]) Set(val T) {
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	v.reg.static.Set(v.key, val)
}

func (v *value[T]) bind(fs *pflag.FlagSet) error {
	if v.opts.FlagName == "" {
		return nil
	}
	f := fs.Lookup(v.opts.FlagName)
	if f == nil {
		return fmt.Errorf("flag %s for key %s is not defined", v.opts.FlagName, v.key)
	}

	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	return v.reg.static.BindPFlag(v.key, f)
}

// BindFlags binds each value to its flag in fs. The flags must already be
// defined; binding errors are logged.
func BindFlags(fs *pflag.FlagSet, values ...Registerable) {
	for _, v := range values {
		if err := v.bind(fs); err != nil {
			slog.Warn("failed to bind flag", "key", v.Key(), "error", err)
		}
	}
}

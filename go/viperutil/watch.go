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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// NotifyConfigReload subscribes ch to successful reloads. Notifications are
// sent non-blocking, so a slow reader may miss some; it will still observe
// the latest values on its next Get.
func NotifyConfigReload(reg *Registry, ch chan<- struct{}) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.subscribers = append(reg.subscribers, ch)
}

// Reload re-reads the config file into the dynamic layer. A file that fails
// to parse leaves the previous values in place.
func (reg *Registry) Reload() error {
	file := reg.ConfigFileUsed()
	if file == "" {
		return errors.New("no config file loaded")
	}

	nv := viper.New()
	nv.SetFs(reg.fs)
	nv.SetConfigFile(file)
	if err := nv.ReadInConfig(); err != nil {
		return fmt.Errorf("reloading %s: %w", file, err)
	}

	reg.mu.Lock()
	reg.dynamic = nv
	subs := append([]chan<- struct{}(nil), reg.subscribers...)
	reg.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Watch reloads the config file whenever it changes on disk, until the
// returned stop function is called. Stop waits for the watcher to exit.
// Without a loaded file, or on a non-OS filesystem, Watch does nothing.
func (reg *Registry) Watch(ctx context.Context) (stop func(), err error) {
	file := reg.ConfigFileUsed()
	if _, isOS := reg.fs.(*afero.OsFs); file == "" || !isOS {
		return func() {}, nil
	}
	file, err = filepath.Abs(file)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(file)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(file), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != file || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := reg.Reload(); err != nil {
					slog.WarnContext(ctx, "config reload failed", "file", file, "error", err)
					continue
				}
				slog.InfoContext(ctx, "config reloaded", "file", file)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "config watcher error", "error", err)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

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

package remotecmd

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/fleetcheck/fleetcheck/go/fcerrors"
)

// StorageUsage is the parsed `df` line for one filesystem.
type StorageUsage struct {
	PercentUsed float64
	Used        string
	Total       string
}

var safePath = regexp.MustCompile(`^/[A-Za-z0-9/_.\-]*$`)

// StorageCommand returns the shell command printing "<pct>% <used> <total>"
// for the filesystem holding path. The path must be absolute and may only
// contain letters, digits, '/', '_', '.' and '-'.
func StorageCommand(fsPath string) (string, error) {
	if !safePath.MatchString(fsPath) || path.Clean(fsPath) != fsPath {
		return "", fmt.Errorf("invalid filesystem path %q", fsPath)
	}
	return fmt.Sprintf("df -h %s | awk 'NR==2 {print $5, $3, $2}'", fsPath), nil
}

// ParseStorage parses the output of StorageCommand. It expects exactly three
// whitespace-separated tokens, the first being a percentage ending in '%'.
func ParseStorage(stdout string) (StorageUsage, error) {
	fields := strings.Fields(stdout)
	if len(fields) != 3 {
		return StorageUsage{}, fcerrors.FC1002(fmt.Sprintf("want 3 fields, got %d in %q", len(fields), stdout))
	}
	pct, ok := strings.CutSuffix(fields[0], "%")
	if !ok {
		return StorageUsage{}, fcerrors.FC1002(fmt.Sprintf("percentage %q has no %% suffix", fields[0]))
	}
	v, err := strconv.ParseFloat(pct, 64)
	if err != nil {
		return StorageUsage{}, fcerrors.Wrap(fcerrors.FC1002(fmt.Sprintf("percentage %q", fields[0])), err)
	}
	return StorageUsage{PercentUsed: v, Used: fields[1], Total: fields[2]}, nil
}

// Storage runs the usage command for fsPath on the host and parses the result.
func (p *Poller) Storage(ctx context.Context, resourceID, fsPath string) (StorageUsage, error) {
	cmd, err := StorageCommand(fsPath)
	if err != nil {
		return StorageUsage{}, err
	}
	out, err := p.Run(ctx, resourceID, cmd)
	if err != nil {
		return StorageUsage{}, err
	}
	return ParseStorage(out)
}

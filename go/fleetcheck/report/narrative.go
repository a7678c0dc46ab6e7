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

package report

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Narrative is the ordered, human-readable account of a run. Lines are kept
// in the order they were written and mirrored to the structured logger at
// debug level. Safe for concurrent use.
type Narrative struct {
	logger *slog.Logger

	mu    sync.Mutex
	lines []string
}

// NewNarrative creates an empty narrative. A nil logger disables mirroring.
func NewNarrative(logger *slog.Logger) *Narrative {
	return &Narrative{logger: logger}
}

// Println appends one line. Embedded newlines produce several lines.
func (n *Narrative) Println(line string) {
	parts := strings.Split(line, "\n")

	n.mu.Lock()
	n.lines = append(n.lines, parts...)
	n.mu.Unlock()

	if n.logger != nil {
		for _, p := range parts {
			if p != "" {
				n.logger.Debug("narrative", "line", p)
			}
		}
	}
}

// Printf formats and appends a line.
func (n *Narrative) Printf(format string, args ...any) {
	n.Println(fmt.Sprintf(format, args...))
}

// Heading appends a blank line followed by a section heading.
func (n *Narrative) Heading(title string) {
	n.Println("")
	n.Printf("### %s ###", title)
}

// Write implements io.Writer; a trailing newline does not add an empty line.
func (n *Narrative) Write(p []byte) (int, error) {
	n.Println(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// Block returns a detached narrative sharing this one's logger. Concurrent
// per-resource checks write into their own block, and the blocks are merged
// back with Append in a deterministic order.
func (n *Narrative) Block() *Narrative {
	return NewNarrative(n.logger)
}

// Append copies all lines of other to the end of n without re-logging them.
func (n *Narrative) Append(other *Narrative) {
	lines := other.Lines()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, lines...)
}

// Lines returns a copy of the lines written so far.
func (n *Narrative) Lines() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.lines))
	copy(out, n.lines)
	return out
}

// String joins all lines, each terminated by a newline.
func (n *Narrative) String() string {
	lines := n.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

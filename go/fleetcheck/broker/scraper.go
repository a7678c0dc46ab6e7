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

// Package broker reads per-node resource usage from a message broker's web
// console by parsing the node table out of its HTML page.
package broker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/fleetcheck/fleetcheck/go/fcerrors"
)

// maxPageSize bounds how much of the console page is read.
const maxPageSize = 4 << 20

// Node is one broker node row. Metrics holds only the cells that parsed as numbers.
type Node struct {
	Name    string
	Metrics map[string]float64
}

// Scraper fetches and parses the node table.
type Scraper struct {
	url        string
	client     *http.Client
	nameColumn string
	// columns maps a metric name (e.g. "CPU") to its table header text.
	columns map[string]string
}

// NewScraper creates a Scraper. Header matching is case-insensitive and
// ignores surrounding whitespace.
func NewScraper(url string, client *http.Client, nameColumn string, columns map[string]string) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{url: url, client: client, nameColumn: nameColumn, columns: columns}
}

// Nodes fetches the console page and returns its node rows in page order.
func (s *Scraper) Nodes(ctx context.Context) ([]Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fcerrors.Wrap(fcerrors.FC1001("broker console"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fcerrors.FC1001(fmt.Sprintf("broker console returned %d", resp.StatusCode))
	}
	return s.Parse(io.LimitReader(resp.Body, maxPageSize))
}

// Parse extracts node rows from an HTML document. The first table whose
// header row contains the name column is used.
func (s *Scraper) Parse(r io.Reader) ([]Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fcerrors.Wrap(fcerrors.FC1002("broker console html"), err)
	}

	for _, table := range findAll(doc, atom.Table) {
		rows := tableRows(table)
		if len(rows) == 0 {
			continue
		}
		idx := indexHeaders(rows[0])
		nameIdx, ok := idx[normalize(s.nameColumn)]
		if !ok {
			continue
		}

		nodes := make([]Node, 0, len(rows)-1)
		for _, row := range rows[1:] {
			if nameIdx >= len(row) || row[nameIdx] == "" {
				continue
			}
			n := Node{Name: row[nameIdx], Metrics: map[string]float64{}}
			for metric, header := range s.columns {
				col, ok := idx[normalize(header)]
				if !ok || col >= len(row) {
					continue
				}
				if v, ok := parseNumber(row[col]); ok {
					n.Metrics[metric] = v
				}
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	}
	return nil, fcerrors.FC1002(fmt.Sprintf("no table with a %q column", s.nameColumn))
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// tableRows returns the text of every th/td cell, row by row.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	for _, tr := range findAll(table, atom.Tr) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, strings.Join(strings.Fields(text(c)), " "))
			}
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

func text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(text(c))
		b.WriteByte(' ')
	}
	return b.String()
}

func indexHeaders(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[normalize(h)]; !dup {
			idx[normalize(h)] = i
		}
	}
	return idx
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var numberRE = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// parseNumber returns the first decimal number in a cell such as "42.5 %".
func parseNumber(cell string) (float64, bool) {
	m := numberRE.FindString(cell)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	return v, err == nil
}

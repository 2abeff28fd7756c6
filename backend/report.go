// Package backend emits what the frontend inferred about a program, in the form
// downstream code generators consume: signatures, rows and strategy tags
package backend

import (
	"bytes"
	"fmt"

	"github.com/cottand/rowfx/frontend/strategy"
	"gopkg.in/yaml.v3"
)

// ReportVersion is bumped whenever the shape of Report changes
const ReportVersion = "1"

type Report struct {
	Version string `yaml:"version"`
	Program string `yaml:"program"`
	Failed  bool   `yaml:"failed"`
	// Groups are the groups of mutually dependent functions, in the order they were inferred
	Groups      [][]string         `yaml:"groups,flow"`
	Functions   []FunctionReport   `yaml:"functions"`
	Diagnostics []DiagnosticReport `yaml:"diagnostics,omitempty"`
}

type FunctionReport struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
	// Row is the row performed by calling the function
	Row      string          `yaml:"row"`
	Poisoned bool            `yaml:"poisoned,omitempty"`
	Entry    bool            `yaml:"entry,omitempty"`
	Nodes    []NodeReport    `yaml:"nodes,omitempty"`
	Handlers []HandlerReport `yaml:"handlers,omitempty"`
}

// NodeReport describes an effectful node of a function body
type NodeReport struct {
	At       string        `yaml:"at"`
	Node     string        `yaml:"node"`
	Row      string        `yaml:"row"`
	Strategy *strategy.Tag `yaml:"strategy,omitempty"`
}

type HandlerReport struct {
	At         string         `yaml:"at"`
	Handled    string         `yaml:"handled"`
	Eliminated []string       `yaml:"eliminated,flow"`
	Result     string         `yaml:"result"`
	Clauses    []ClauseReport `yaml:"clauses"`
}

type ClauseReport struct {
	Op       string       `yaml:"op"`
	Strategy strategy.Tag `yaml:"strategy"`
}

type DiagnosticReport struct {
	At       string `yaml:"at,omitempty"`
	Severity string `yaml:"severity"`
	Code     string `yaml:"code"`
	Message  string `yaml:"message"`
}

// Function finds the report of a function by name
func (r *Report) Function(name string) (*FunctionReport, bool) {
	for i := range r.Functions {
		if r.Functions[i].Name == name {
			return &r.Functions[i], true
		}
	}
	return nil, false
}

func (r *Report) Marshal() ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return buf.Bytes(), nil
}

func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	if r.Version != ReportVersion {
		return nil, fmt.Errorf("unsupported report version %q", r.Version)
	}
	return &r, nil
}

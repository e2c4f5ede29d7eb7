// Package config parses the user-provided warehouse pipeline JSON config.
// DSNs and paths go through os.ExpandEnv so secrets can live in the
// environment (or a .env file) rather than the config file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ventasdwh/internal/sink"
	"ventasdwh/internal/star"
)

type Pipeline struct {
	Job     string        `json:"job"`
	Source  Source        `json:"source"`
	Sink    Sink          `json:"sink"`
	Runtime RuntimeConfig `json:"runtime"`
	Metrics Metrics       `json:"metrics"`
}

type Source struct {
	// Kind: "sql" | "csv"
	Kind string     `json:"kind"`
	SQL  *SQLSource `json:"sql,omitempty"`
	CSV  *CSVSource `json:"csv,omitempty"`
}

type SQLSource struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
	Schema string `json:"schema"`
}

type CSVSource struct {
	Dir    string `json:"dir"`
	Latin1 bool   `json:"latin1"`
}

type Sink struct {
	// Kind: "postgres" | "sqlite" | "mssql"
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// RuntimeConfig controls pipeline execution behavior.
type RuntimeConfig struct {
	// ChunkSize bounds how many sale lines are transformed at a time.
	// Defaults to 10000.
	ChunkSize int `json:"chunk_size"`

	// FactWriteMode: "replace" (default, rebuild the fact table) or "append"
	// (incremental load relying on the natural-key constraint).
	FactWriteMode string `json:"fact_write_mode"`

	// StrictKeys aborts the run when a transactional record has a missing or
	// blank natural-key field. When false such records are counted and skipped.
	StrictKeys bool `json:"strict_keys"`
}

type Metrics struct {
	// Backend: "" (none) | "datadog"
	Backend      string `json:"backend"`
	Tags         string `json:"tags"`
	FlushSeconds int    `json:"flush_seconds"`
}

// Load reads, expands and decodes a pipeline config file and applies defaults.
func Load(path string) (*Pipeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var p Pipeline
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	p.applyDefaults()
	p.expandEnv()
	return &p, nil
}

func (p *Pipeline) applyDefaults() {
	if p.Job == "" {
		p.Job = "ventas-dwh"
	}
	if p.Runtime.ChunkSize == 0 {
		p.Runtime.ChunkSize = star.DefaultChunkSize
	}
	if p.Runtime.FactWriteMode == "" {
		p.Runtime.FactWriteMode = string(sink.Replace)
	}
}

func (p *Pipeline) expandEnv() {
	if p.Source.SQL != nil {
		p.Source.SQL.DSN = os.ExpandEnv(p.Source.SQL.DSN)
	}
	if p.Source.CSV != nil {
		p.Source.CSV.Dir = os.ExpandEnv(p.Source.CSV.Dir)
	}
	p.Sink.DSN = os.ExpandEnv(p.Sink.DSN)
}

// Validate returns every problem found, not just the first, so a config can
// be fixed in one edit instead of one failed run per mistake.
func (p *Pipeline) Validate() []string {
	var issues []string

	switch p.Source.Kind {
	case "sql":
		if p.Source.SQL == nil {
			issues = append(issues, `source.kind="sql" requires a source.sql block`)
		} else {
			if p.Source.SQL.Driver == "" {
				issues = append(issues, "source.sql.driver is required")
			}
			if p.Source.SQL.DSN == "" {
				issues = append(issues, "source.sql.dsn is required")
			}
		}
	case "csv":
		if p.Source.CSV == nil {
			issues = append(issues, `source.kind="csv" requires a source.csv block`)
		} else if p.Source.CSV.Dir == "" {
			issues = append(issues, "source.csv.dir is required")
		}
	case "":
		issues = append(issues, "source.kind is required (sql or csv)")
	default:
		issues = append(issues, fmt.Sprintf("unknown source.kind=%q (want sql or csv)", p.Source.Kind))
	}

	switch p.Sink.Kind {
	case "postgres", "sqlite", "mssql":
		if p.Sink.DSN == "" {
			issues = append(issues, "sink.dsn is required")
		}
	case "":
		issues = append(issues, "sink.kind is required (postgres, sqlite or mssql)")
	default:
		issues = append(issues, fmt.Sprintf("unknown sink.kind=%q (want postgres, sqlite or mssql)", p.Sink.Kind))
	}

	if p.Runtime.ChunkSize < 0 {
		issues = append(issues, fmt.Sprintf("runtime.chunk_size must not be negative, got %d", p.Runtime.ChunkSize))
	}
	switch sink.WriteMode(p.Runtime.FactWriteMode) {
	case sink.Replace, sink.Append:
	default:
		issues = append(issues, fmt.Sprintf("unknown runtime.fact_write_mode=%q (want replace or append)", p.Runtime.FactWriteMode))
	}

	switch p.Metrics.Backend {
	case "", "datadog":
	default:
		issues = append(issues, fmt.Sprintf("unknown metrics.backend=%q (want datadog or empty)", p.Metrics.Backend))
	}

	return issues
}

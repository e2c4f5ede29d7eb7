// Command etl loads the retail sales warehouse: it extracts the POS reference
// and transactional sets from the configured source, builds the four
// dimensions and the fact table, and writes them to the configured sink.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"ventasdwh/internal/config"
	"ventasdwh/internal/metrics"
	"ventasdwh/internal/metrics/datadog"
	"ventasdwh/internal/sink"
	"ventasdwh/internal/source"
	"ventasdwh/internal/star"

	// Register all sink backends with the factory; the config selects one at
	// runtime. The blank imports also register the sqlite and sqlserver
	// database/sql drivers, which the SQL source can reuse.
	_ "ventasdwh/internal/sink/all"

	// database/sql driver for source.kind="sql" against Postgres.
	_ "github.com/lib/pq"
)

func main() {
	var (
		cfgPath        string
		metricsBackend string
		validate       bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/ventas.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend override (datadog, none)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(log)

	p, err := config.Load(cfgPath)
	if err != nil {
		log.Error("config load failed", "path", cfgPath, "err", err)
		os.Exit(1)
	}

	if issues := p.Validate(); len(issues) > 0 {
		for _, iss := range issues {
			fmt.Fprintln(os.Stderr, "config:", iss)
		}
		log.Error("configuration is invalid", "path", cfgPath, "issues", len(issues))
		os.Exit(1)
	}
	if validate {
		log.Info("configuration is valid", "path", cfgPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsDone := setupMetrics(ctx, log, p, metricsBackend)
	defer metricsDone()

	src, err := buildSource(ctx, p)
	if err != nil {
		log.Error("source init failed", "kind", p.Source.Kind, "err", err)
		os.Exit(1)
	}
	defer src.Close()

	snk, err := sink.New(ctx, sink.Config{Kind: p.Sink.Kind, DSN: p.Sink.DSN})
	if err != nil {
		log.Error("sink init failed", "kind", p.Sink.Kind, "err", err)
		os.Exit(1)
	}
	defer snk.Close()

	pipe := &star.Pipeline{
		Source:     src,
		Sink:       snk,
		Logger:     log,
		ChunkSize:  p.Runtime.ChunkSize,
		FactMode:   sink.WriteMode(p.Runtime.FactWriteMode),
		StrictKeys: p.Runtime.StrictKeys,
	}

	start := time.Now()
	log.Info("run starting", "job", p.Job, "source", p.Source.Kind, "sink", p.Sink.Kind,
		"chunk_size", pipe.ChunkSize, "fact_mode", p.Runtime.FactWriteMode)

	stats, err := pipe.Run(ctx)
	if err != nil {
		log.Error("run failed", "job", p.Job, "err", err, "stats", stats)
		metricsDone()
		os.Exit(1)
	}

	log.Info("run finished", "job", p.Job,
		"duration", time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics installs the configured metrics backend and returns a cleanup
// that stops it and flushes once more. The flag overrides the config so
// one-off runs can silence or enable metrics without an edit.
func setupMetrics(ctx context.Context, log *slog.Logger, p *config.Pipeline, override string) func() {
	backend := p.Metrics.Backend
	if override != "" {
		backend = override
	}

	switch backend {
	case "datadog":
		flushEvery := time.Duration(p.Metrics.FlushSeconds) * time.Second
		tags := datadog.ParseTagsCSV(p.Metrics.Tags)
		if envTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")); len(envTags) > 0 {
			tags = append(tags, envTags...)
		}

		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    p.Job,
			Tags:       tags,
			FlushEvery: flushEvery,
		})
		if err != nil {
			log.Warn("datadog metrics init failed, metrics disabled", "err", err)
			return func() {}
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", "backend", backend, "job", p.Job, "tags", tags)
		return func() {
			if err := b.Close(); err != nil {
				log.Warn("metrics shutdown flush failed", "err", err)
			}
		}

	case "", "none":
		// nop backend stays installed

	default:
		log.Warn("unknown metrics backend, metrics disabled", "backend", backend)
	}
	return func() {}
}

func buildSource(ctx context.Context, p *config.Pipeline) (source.Source, error) {
	switch p.Source.Kind {
	case "sql":
		return source.NewSQL(ctx, source.SQLConfig{
			Driver: p.Source.SQL.Driver,
			DSN:    p.Source.SQL.DSN,
			Schema: p.Source.SQL.Schema,
		})
	case "csv":
		return source.NewCSV(source.CSVConfig{
			Dir:    p.Source.CSV.Dir,
			Latin1: p.Source.CSV.Latin1,
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", p.Source.Kind)
	}
}

package main

import (
	"context"
	"testing"

	"ventasdwh/internal/config"
)

func TestBuildSource_UnknownKind(t *testing.T) {
	p := &config.Pipeline{Source: config.Source{Kind: "ftp"}}
	if _, err := buildSource(context.Background(), p); err == nil {
		t.Fatalf("buildSource() with unknown kind should fail")
	}
}

func TestBuildSource_CSV(t *testing.T) {
	p := &config.Pipeline{Source: config.Source{
		Kind: "csv",
		CSV:  &config.CSVSource{Dir: t.TempDir()},
	}}

	src, err := buildSource(context.Background(), p)
	if err != nil {
		t.Fatalf("buildSource() err=%v", err)
	}
	defer src.Close()
}

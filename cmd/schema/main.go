package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"satchel/server/internal/catalog"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the item catalog JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	data, err := catalog.SchemaJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build schema: %v\n", err)
		os.Exit(1)
	}

	if err := writeSchema(outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// writeSchema replaces outPath atomically so readers never see a partial file.
func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/go-jsonmerge"
	"github.com/agentflare-ai/go-jsonmerge/internal/config"
)

// formatFor picks the record format for path: the flag when given, then the
// file extension, then the configured default.
func formatFor(flag, path string, settings *config.Config) string {
	if flag != "" {
		return flag
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return "yaml"
	case ".json":
		return "json"
	}
	return settings.Format
}

func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}

func decodeRecord(data []byte, format string) (jsonmerge.Record, error) {
	switch format {
	case "json":
		return jsonmerge.Parse(data)
	case "yaml":
		return jsonmerge.ParseYAML(data)
	}
	return jsonmerge.Record{}, fmt.Errorf("%w: unknown format %q", cli.ErrUsage, format)
}

func readRecord(in io.Reader, path, format string) (jsonmerge.Record, error) {
	data, err := readInput(in, path)
	if err != nil {
		return jsonmerge.Record{}, err
	}
	r, err := decodeRecord(data, format)
	if err != nil {
		return jsonmerge.Record{}, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return r, nil
}

// readPatch reads a patch file. YAML patches are converted to their JSON
// wire form so both go through the same validation.
func readPatch(in io.Reader, path, format string) (jsonmerge.Patch, error) {
	data, err := readInput(in, path)
	if err != nil {
		return nil, err
	}
	if format == "yaml" {
		r, err := jsonmerge.ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", path, err)
		}
		if data, err = r.MarshalJSON(); err != nil {
			return nil, err
		}
	}
	p, err := jsonmerge.DecodePatch(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return p, nil
}

func encodeRecord(r jsonmerge.Record, format string) ([]byte, error) {
	if format == "yaml" {
		return jsonmerge.EncodeYAML(r)
	}
	d, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, d, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeRecord writes r to the file out, or to w when out is empty.
func writeRecord(w io.Writer, out string, r jsonmerge.Record, format string) error {
	d, err := encodeRecord(r, format)
	if err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	if out != "" {
		return os.WriteFile(out, d, 0o644)
	}
	_, err = w.Write(d)
	return err
}

func newLogger(w io.Writer, settings *config.Config, verbose bool) *slog.Logger {
	level, err := settings.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

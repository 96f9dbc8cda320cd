package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/scott-cotton/cli"
	"gopkg.in/yaml.v3"

	"github.com/agentflare-ai/go-jsonmerge"
	"github.com/agentflare-ai/go-jsonmerge/batch"
	"github.com/agentflare-ai/go-jsonmerge/internal/config"
	"github.com/agentflare-ai/go-jsonmerge/internal/render"
)

// manifest lists the documents a batch merge processes. Relative file names
// are resolved against the manifest's directory.
type manifest struct {
	Documents []manifestEntry `yaml:"documents"`
}

type manifestEntry struct {
	ID     string `yaml:"id"`
	Base   string `yaml:"base"`
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
	Out    string `yaml:"out,omitempty"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range m.Documents {
		e := &m.Documents[i]
		if e.ID == "" {
			return nil, fmt.Errorf("%s: document %d has no id", path, i)
		}
		for _, f := range []*string{&e.Base, &e.Local, &e.Remote, &e.Out} {
			if *f != "" && !filepath.IsAbs(*f) {
				*f = filepath.Join(dir, *f)
			}
		}
	}
	return &m, nil
}

type batchConfig struct {
	*cli.Command
	settings *config.Config

	Strategy string `cli:"name=strategy aliases=s desc='conflict strategy: local, remote or base'"`
	Format   string `cli:"name=format aliases=f desc='record format: json or yaml'"`
	Workers  int    `cli:"name=workers aliases=j desc='documents merged concurrently'"`
	Verbose  bool   `cli:"name=v desc='log debug output'"`
}

// BatchCommand returns the batch subcommand.
func BatchCommand(settings *config.Config) *cli.Command {
	cfg := &batchConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "batch").
		WithSynopsis("batch [-j workers] MANIFEST - merge many documents").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *batchConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: batch requires 1 argument, a manifest", cli.ErrUsage)
	}
	m, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	strategy, err := strategyFor(cfg.Strategy, cfg.settings)
	if err != nil {
		return err
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = cfg.settings.Workers
	}
	log := newLogger(cc.Err, cfg.settings, cfg.Verbose)

	jobs := make([]batch.MergeJob, len(m.Documents))
	for i, e := range m.Documents {
		jobs[i].ID = e.ID
		for _, f := range []struct {
			path string
			dst  *jsonmerge.Record
		}{{e.Base, &jobs[i].Base}, {e.Local, &jobs[i].Local}, {e.Remote, &jobs[i].Remote}} {
			if *f.dst, err = readRecord(cc.In, f.path, formatFor(cfg.Format, f.path, cfg.settings)); err != nil {
				return fmt.Errorf("document %s: %w", e.ID, err)
			}
		}
	}

	ctx := cc.Go
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	results, err := batch.NewRunner(workers, log, jsonmerge.WithStrategy(strategy)).Merge(ctx, jobs)
	if err != nil {
		return err
	}

	p := render.NewPrinter(cc.Err, render.UseColor(cc.Err))
	total := 0
	for i, res := range results {
		e := m.Documents[i]
		if e.Out != "" {
			if err := writeRecord(cc.Out, e.Out, res.Merged, formatFor(cfg.Format, e.Out, cfg.settings)); err != nil {
				return fmt.Errorf("document %s: %w", e.ID, err)
			}
		}
		fmt.Fprintf(cc.Out, "%s\t%d conflicts\n", res.ID, len(res.Conflicts))
		if err := p.Conflicts(res.Conflicts); err != nil {
			return err
		}
		total += len(res.Conflicts)
	}
	if total > 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/go-jsonmerge"
	"github.com/agentflare-ai/go-jsonmerge/internal/config"
	"github.com/agentflare-ai/go-jsonmerge/internal/render"
)

type mergeConfig struct {
	*cli.Command
	settings *config.Config

	Strategy      string `cli:"name=strategy aliases=s desc='conflict strategy: local, remote or base'"`
	Format        string `cli:"name=format aliases=f desc='record format: json or yaml'"`
	Out           string `cli:"name=o desc='write the merged record to this file'"`
	ConflictsJSON bool   `cli:"name=conflicts-json desc='report conflicts as JSON'"`
	Verbose       bool   `cli:"name=v desc='log debug output'"`
}

// MergeCommand returns the merge subcommand.
func MergeCommand(settings *config.Config) *cli.Command {
	cfg := &mergeConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "merge").
		WithSynopsis("merge [-s strategy] BASE LOCAL REMOTE - three-way merge").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *mergeConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 3 {
		return fmt.Errorf("%w: merge requires 3 arguments, base, local and remote", cli.ErrUsage)
	}
	strategy, err := strategyFor(cfg.Strategy, cfg.settings)
	if err != nil {
		return err
	}
	log := newLogger(cc.Err, cfg.settings, cfg.Verbose)

	var docs [3]jsonmerge.Record
	for i, path := range args {
		if docs[i], err = readRecord(cc.In, path, formatFor(cfg.Format, path, cfg.settings)); err != nil {
			return err
		}
	}
	merged, conflicts := jsonmerge.Merge(docs[0], docs[1], docs[2], jsonmerge.WithStrategy(strategy))
	log.Debug("merge finished", "strategy", strategy.String(), "conflicts", len(conflicts))

	if err := writeRecord(cc.Out, cfg.Out, merged, formatFor(cfg.Format, args[1], cfg.settings)); err != nil {
		return err
	}
	if err := reportConflicts(cc.Err, conflicts, cfg.ConflictsJSON); err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

func strategyFor(flag string, settings *config.Config) (jsonmerge.Strategy, error) {
	if flag == "" {
		return settings.MergeStrategy()
	}
	s, err := jsonmerge.ParseStrategy(flag)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	return s, nil
}

// reportConflicts writes conflicts to w, the error stream, keeping the output
// stream for the merged record.
func reportConflicts(w io.Writer, conflicts []jsonmerge.Conflict, asJSON bool) error {
	if len(conflicts) == 0 {
		return nil
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	}
	p := render.NewPrinter(w, render.UseColor(w))
	if err := p.Conflicts(conflicts); err != nil {
		return err
	}
	return p.Summary(conflicts)
}

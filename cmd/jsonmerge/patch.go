package main

import (
	"encoding/json"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/go-jsonmerge"
	"github.com/agentflare-ai/go-jsonmerge/internal/config"
)

type applyConfig struct {
	*cli.Command
	settings *config.Config

	Format string `cli:"name=format aliases=f desc='record format: json or yaml'"`
	Out    string `cli:"name=o desc='write the result to this file'"`
}

// ApplyCommand returns the apply subcommand.
func ApplyCommand(settings *config.Config) *cli.Command {
	cfg := &applyConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "apply").
		WithSynopsis("apply PATCH DOC - apply a JSON Patch").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *applyConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: apply requires 2 arguments, a patch and a document", cli.ErrUsage)
	}
	patch, err := readPatch(cc.In, args[0], formatFor(cfg.Format, args[0], cfg.settings))
	if err != nil {
		return err
	}
	format := formatFor(cfg.Format, args[1], cfg.settings)
	doc, err := readRecord(cc.In, args[1], format)
	if err != nil {
		return err
	}
	res, err := jsonmerge.Apply(doc, patch)
	if err != nil {
		return fmt.Errorf("error patching %s: %w", args[1], err)
	}
	return writeRecord(cc.Out, cfg.Out, res, format)
}

type replayConfig struct {
	*cli.Command
	settings *config.Config

	Format string `cli:"name=format aliases=f desc='record format: json or yaml'"`
	Out    string `cli:"name=o desc='write the result to this file'"`
	Log    string `cli:"name=log desc='replay a sequenced edit log instead of patch files'"`
}

// ReplayCommand returns the replay subcommand.
func ReplayCommand(settings *config.Config) *cli.Command {
	cfg := &replayConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "replay").
		WithSynopsis("replay DOC PATCH... | replay -log LOG DOC - apply patches in order").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *replayConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: replay requires a document", cli.ErrUsage)
	}
	format := formatFor(cfg.Format, args[0], cfg.settings)
	doc, err := readRecord(cc.In, args[0], format)
	if err != nil {
		return err
	}

	var res jsonmerge.Record
	if cfg.Log != "" {
		if len(args) != 1 {
			return fmt.Errorf("%w: replay -log takes only a document", cli.ErrUsage)
		}
		data, err := readInput(cc.In, cfg.Log)
		if err != nil {
			return err
		}
		entries, err := jsonmerge.DecodeLog(data)
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", cfg.Log, err)
		}
		if res, err = jsonmerge.ReplayLog(doc, entries); err != nil {
			return err
		}
		return writeRecord(cc.Out, cfg.Out, res, format)
	}

	patches := make([]jsonmerge.Patch, 0, len(args)-1)
	for _, path := range args[1:] {
		p, err := readPatch(cc.In, path, formatFor(cfg.Format, path, cfg.settings))
		if err != nil {
			return err
		}
		patches = append(patches, p)
	}
	if res, err = jsonmerge.Replay(doc, patches); err != nil {
		return err
	}
	return writeRecord(cc.Out, cfg.Out, res, format)
}

type diffConfig struct {
	*cli.Command
	settings *config.Config

	Format string `cli:"name=format aliases=f desc='record format: json or yaml'"`
}

// DiffCommand returns the diff subcommand.
func DiffCommand(settings *config.Config) *cli.Command {
	cfg := &diffConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "diff").
		WithSynopsis("diff FROM TO - print a patch turning FROM into TO").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *diffConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 arguments", cli.ErrUsage)
	}
	var docs [2]jsonmerge.Record
	for i, path := range args {
		if docs[i], err = readRecord(cc.In, path, formatFor(cfg.Format, path, cfg.settings)); err != nil {
			return err
		}
	}
	patch := jsonmerge.Diff(docs[0], docs[1])
	if patch == nil {
		patch = jsonmerge.Patch{}
	}
	enc := json.NewEncoder(cc.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(patch)
}

package main

import (
	"fmt"
	"slices"

	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/go-jsonmerge"
	"github.com/agentflare-ai/go-jsonmerge/internal/config"
)

type indexConfig struct {
	*cli.Command
	settings *config.Config

	Format string `cli:"name=format aliases=f desc='record format: json or yaml'"`
	Sorted bool   `cli:"name=sort desc='list leaves in path order instead of breadth-first'"`
}

// IndexCommand returns the index subcommand.
func IndexCommand(settings *config.Config) *cli.Command {
	cfg := &indexConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "index").
		WithSynopsis("index DOC - list leaf paths and values").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *indexConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: index requires 1 argument, a document", cli.ErrUsage)
	}
	doc, err := readRecord(cc.In, args[0], formatFor(cfg.Format, args[0], cfg.settings))
	if err != nil {
		return err
	}
	leaves := jsonmerge.Index(doc)
	if cfg.Sorted {
		sortLeaves(leaves)
	}
	for _, l := range leaves {
		fmt.Fprintf(cc.Out, "%s\t%s\n", l.Path, l.Value)
	}
	return nil
}

func sortLeaves(leaves []jsonmerge.Leaf) {
	slices.SortFunc(leaves, func(a, b jsonmerge.Leaf) int {
		return jsonmerge.ComparePaths(a.Path, b.Path)
	})
}

type getConfig struct {
	*cli.Command
	settings *config.Config

	Format string `cli:"name=format aliases=f desc='record format: json or yaml'"`
}

// GetCommand returns the get subcommand.
func GetCommand(settings *config.Config) *cli.Command {
	cfg := &getConfig{settings: settings}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "get").
		WithSynopsis("get DOC PATH - print the value at a path").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *getConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: get requires 2 arguments, a document and a path", cli.ErrUsage)
	}
	format := formatFor(cfg.Format, args[0], cfg.settings)
	doc, err := readRecord(cc.In, args[0], format)
	if err != nil {
		return err
	}
	p, err := jsonmerge.ParsePath(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	v, ok := jsonmerge.Resolve(doc, p).Get()
	if !ok {
		fmt.Fprintf(cc.Out, "%s: absent\n", args[1])
		return cli.ExitCodeErr(1)
	}
	return writeRecord(cc.Out, "", v, format)
}

package main

import (
	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/go-jsonmerge/internal/config"
)

const usageText = `jsonmerge - three-way merge and patch replay for JSON and YAML records

Usage:
  jsonmerge merge BASE LOCAL REMOTE     Merge two descendants of BASE
  jsonmerge batch MANIFEST              Merge every document listed in MANIFEST
  jsonmerge apply PATCH DOC             Apply a JSON Patch to DOC
  jsonmerge replay DOC PATCH...         Apply patches to DOC in order
  jsonmerge replay -log LOG DOC         Replay a sequenced edit log over DOC
  jsonmerge diff FROM TO                Print a patch turning FROM into TO
  jsonmerge index DOC                   List every leaf path of DOC
  jsonmerge get DOC PATH                Print the value at PATH

Any file argument may be "-" to read standard input. Records are read as
YAML when the file ends in .yml or .yaml, or when -format yaml is given.
Defaults come from jsonmerge.yml in the working directory.`

// MainCommand returns the root command.
func MainCommand(settings *config.Config) *cli.Command {
	return cli.NewCommand("jsonmerge").
		WithSynopsis("jsonmerge - merge and patch structured records").
		WithDescription(usageText).
		WithSubs(
			MergeCommand(settings),
			BatchCommand(settings),
			ApplyCommand(settings),
			ReplayCommand(settings),
			DiffCommand(settings),
			IndexCommand(settings),
			GetCommand(settings),
		)
}

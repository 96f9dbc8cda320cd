package main

import (
	"context"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/go-jsonmerge/internal/config"
)

func main() {
	settings, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsonmerge: %v\n", err)
		os.Exit(2)
	}
	cli.MainContext(context.Background(), MainCommand(settings))
}

// Command stenopro serves the transcription API and runs pipeline tasks.
//
//	stenopro [flags] [serve]          run the HTTP API and the pipeline
//	stenopro [flags] run <id>         process one record and exit
//	stenopro [flags] reprocess <id>   reset one record and process it again
//	stenopro [flags] migrate [up|down|version]
//	stenopro [flags] token <subject>  issue an API token
//	stenopro version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fernandomesquita/stenopro/app"
	"github.com/fernandomesquita/stenopro/config"
	"github.com/fernandomesquita/stenopro/version"
)

// exitUsage is returned for bad arguments.
const exitUsage = 2

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type globals struct {
	configFile string
	envFile    string
}

func (g globals) load() (*app.Config, error) {
	var opts []config.LoaderOption
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if g.envFile != "" {
		opts = append(opts, config.WithEnvFile(g.envFile))
	}
	return app.Load(opts...)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stenopro", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var g globals
	fs.StringVar(&g.configFile, "config", "", "path to the YAML config file")
	fs.StringVar(&g.envFile, "env-file", "", "path to a .env file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: stenopro [-config file] [-env-file file] [serve|run <id>|reprocess <id>|migrate [up|down|version]|token <subject>|version]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	name, rest := "serve", fs.Args()
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		fs.Usage()
		return exitUsage
	}
	if err := cmd(ctx, g, rest, stdout); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, ue.Error())
			return exitUsage
		}
		fmt.Fprintf(stderr, "stenopro %s: %v\n", name, err)
		return 1
	}
	return 0
}

type command func(ctx context.Context, g globals, args []string, stdout io.Writer) error

var commands = map[string]command{
	"serve":     serveCmd,
	"run":       runCmd,
	"reprocess": reprocessCmd,
	"migrate":   migrateCmd,
	"token":     tokenCmd,
	"version":   versionCmd,
}

type usageError string

func (e usageError) Error() string { return "usage: stenopro " + string(e) }

func versionCmd(_ context.Context, _ globals, _ []string, stdout io.Writer) error {
	fmt.Fprintf(stdout, "stenopro %s\n", version.Get())
	return nil
}

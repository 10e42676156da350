// Package main provides the segwire CLI entrypoint.
//
// Usage:
//
//	segwire <command> [subcommand] [options]
//
// Exit codes:
//   - 0: success
//   - 1: usage or configuration error
//   - 2: transport or storage failure
//   - 3: message refused by the segmenter, or incomplete under join --strict
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/cli/cmd"
	"github.com/pithecene-io/segwire/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// osExit is replaced in tests.
var osExit = os.Exit

func newApp() *cli.App {
	return &cli.App{
		Name:           "segwire",
		Usage:          "Split oversized messages into stamped wire units and reassemble them",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.SplitCommand(),
			cmd.JoinCommand(),
			cmd.SendCommand(),
			cmd.ListenCommand(),
			cmd.InspectCommand(),
			cmd.StatsCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		osExit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	w := errWriter(c)

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			_, _ = fmt.Fprintln(w, msg)
		}
		osExit(code)
		return
	}

	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	osExit(1)
}

func errWriter(c *cli.Context) io.Writer {
	if c != nil && c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

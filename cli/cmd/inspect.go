package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/cli/reader"
	"github.com/pithecene-io/segwire/cli/render"
	"github.com/pithecene-io/segwire/cli/tui"
	"github.com/pithecene-io/segwire/iox"
	"github.com/pithecene-io/segwire/transport/stream"
)

// InspectCommand returns the inspect command.
// Inspect decodes one unit, or summarizes a stream of units with --frames or --lines.
// It never reassembles or writes anything.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Describe a wire unit or summarize a stream of units",
		ArgsUsage: "[file|-]",
		Flags: append(ReadOnlyFlags(),
			&cli.BoolFlag{Name: "frames", Usage: "Input is a stream of length-prefixed frames"},
			&cli.BoolFlag{Name: "lines", Usage: "Input is one unit per line"},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.Bool("frames") && c.Bool("lines") {
		return usageError(fmt.Errorf("--frames and --lines are mutually exclusive"))
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}

	var (
		view     any
		viewType string
	)
	if c.Bool("frames") || c.Bool("lines") {
		units, err := readUnits(c)
		if err != nil {
			return err
		}
		view, viewType = reader.SummarizeStream(units), tui.ViewInspectStream
	} else {
		data, err := iox.ReadAll(c.Args().First(), stdin(c))
		if err != nil {
			return usageError(err)
		}
		// Trailing newline from shells and editors is not part of the unit.
		unit := strings.TrimSuffix(string(data), "\n")
		view, viewType = reader.InspectUnit(unit), tui.ViewInspectUnit
	}

	if c.Bool("tui") {
		return r.RenderTUI(viewType, view)
	}
	return r.Render(view)
}

// readUnits drains the input stream into memory.
func readUnits(c *cli.Context) ([]string, error) {
	ctx := c.Context
	in, err := iox.OpenInput(c.Args().First(), stdin(c))
	if err != nil {
		return nil, usageError(err)
	}
	defer iox.DiscardClose(in)

	var opts []stream.Option
	if c.Bool("lines") {
		opts = append(opts, stream.WithLines())
	}
	sub, err := stream.NewSource(in, opts...).Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(sub)

	var units []string
	err = sub.Run(ctx, func(_ context.Context, unit string) error {
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("read units: %v", err), exitTransport)
	}
	return units, nil
}

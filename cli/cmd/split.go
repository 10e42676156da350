package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/iox"
	"github.com/pithecene-io/segwire/relay"
	"github.com/pithecene-io/segwire/transport"
	"github.com/pithecene-io/segwire/transport/stream"
)

// SplitCommand returns the split command.
// Split segments one message and writes its units to a byte stream.
func SplitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Segment a message into wire units (frames on stdout)",
		ArgsUsage: "[file|-]",
		Flags: joinFlags(commonFlags(), segmentFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "lines",
				Usage: "Write one unit per line instead of length-prefixed frames",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write units to this file instead of stdout",
			},
		}),
		Action: splitAction,
	}
}

func splitAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	logger, err := buildLogger(c, cfg, "split", "")
	if err != nil {
		return err
	}
	seg, err := buildSegmenter(cfg)
	if err != nil {
		return err
	}

	data, err := iox.ReadAll(c.Args().First(), stdin(c))
	if err != nil {
		return usageError(err)
	}
	message := string(data)
	if c.Bool("lines") && strings.Contains(message, "\n") {
		return usageError(fmt.Errorf("--lines cannot carry a message containing newlines; use frames"))
	}

	var out io.Writer = stdout(c)
	if path := c.String("output"); path != "" && path != iox.Stdio {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("create output: %v", err), exitTransport)
		}
		defer iox.DiscardClose(f)
		out = f
	}

	var pub transport.Publisher
	if c.Bool("lines") {
		pub = stream.NewLinePublisher(out)
	} else {
		pub = stream.NewPublisher(out)
	}

	sender, err := relay.NewSender(relay.SenderConfig{
		Segmenter: seg,
		Publisher: pub,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	res, err := sender.Send(c.Context, message)
	if err != nil {
		return exitFor(err)
	}

	logger.Info("message split", map[string]any{
		"message_id": res.ID,
		"units":      res.Units,
		"segmented":  res.Segmented,
		"size_bytes": len(message),
	})
	return nil
}

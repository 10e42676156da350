package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/cli/render"
	"github.com/pithecene-io/segwire/iox"
	"github.com/pithecene-io/segwire/metrics"
	"github.com/pithecene-io/segwire/relay"
)

// SendResponse is the rendered result of the send command.
type SendResponse struct {
	ID        string `json:"id,omitempty"`
	Units     int    `json:"units"`
	Segmented bool   `json:"segmented"`
	SizeBytes int    `json:"size_bytes"`
	Transport string `json:"transport"`
	Channel   string `json:"channel"`
}

// SendCommand returns the send command.
// Send segments one message and publishes its units over redis or webhook.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Segment a message and publish its units",
		ArgsUsage: "[file|-]",
		Flags: joinFlags(commonFlags(), segmentFlags(), transportFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "Message text (instead of reading a file or stdin)",
			},
			FormatFlag,
		}),
		Action: sendAction,
	}
}

func sendAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	channel := transportChannel(cfg)
	logger, err := buildLogger(c, cfg, "send", channel)
	if err != nil {
		return err
	}
	seg, err := buildSegmenter(cfg)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}

	message := c.String("message")
	if !c.IsSet("message") {
		data, err := iox.ReadAll(c.Args().First(), stdin(c))
		if err != nil {
			return usageError(err)
		}
		message = string(data)
	}

	pub, err := buildPublisher(cfg)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(pub)

	sender, err := relay.NewSender(relay.SenderConfig{
		Segmenter: seg,
		Publisher: pub,
		Collector: metrics.NewCollector(cfg.Transport.Type, channel, ""),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	res, err := sender.Send(c.Context, message)
	if err != nil {
		return exitFor(err)
	}

	return r.Render(SendResponse{
		ID:        res.ID,
		Units:     res.Units,
		Segmented: res.Segmented,
		SizeBytes: len(message),
		Transport: cfg.Transport.Type,
		Channel:   channel,
	})
}

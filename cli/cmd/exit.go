package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/segment"
)

// Exit codes shared by every command.
const (
	exitSuccess   = 0
	exitUsage     = 1 // bad flags, arguments, or configuration
	exitTransport = 2 // transport or storage failure
	exitProtocol  = 3 // message refused by the segmenter
)

// usageError wraps err as a cli.ExitCoder with exitUsage.
func usageError(err error) error {
	return cli.Exit(err.Error(), exitUsage)
}

// exitFor maps an operational error to a cli.ExitCoder. Errors that already
// carry an exit code pass through unchanged.
func exitFor(err error) error {
	if err == nil {
		return nil
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return err
	}

	var tooMany *segment.TooManySegmentsError
	if errors.As(err, &tooMany) {
		return cli.Exit(err.Error(), exitProtocol)
	}
	var badConfig *segment.ConfigurationError
	if errors.As(err, &badConfig) {
		return cli.Exit(err.Error(), exitUsage)
	}
	return cli.Exit(err.Error(), exitTransport)
}

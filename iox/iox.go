// Package iox provides I/O helpers for resource cleanup and CLI input.
package iox

import (
	"fmt"
	"io"
	"os"
)

// Stdio is the path that selects standard input or output.
const Stdio = "-"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// ReadAll reads the whole input named by path.
// An empty path or "-" reads from stdin.
func ReadAll(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == Stdio {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// OpenInput opens path for streaming reads.
// An empty path or "-" returns stdin wrapped so that closing it is a no-op.
func OpenInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == Stdio {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pithecene-io/segwire/frame"
)

// ErrNewlineInUnit is returned when a unit cannot be written as one line.
var ErrNewlineInUnit = errors.New("stream: unit contains a newline")

// LinePublisher writes each unit followed by '\n'.
// Safe for concurrent use.
type LinePublisher struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLinePublisher creates a publisher writing one unit per line to w.
func NewLinePublisher(w io.Writer) *LinePublisher {
	return &LinePublisher{w: w}
}

// Publish writes unit and a newline. Units containing '\n' are rejected.
func (p *LinePublisher) Publish(ctx context.Context, unit string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.IndexByte(unit, '\n') >= 0 {
		return ErrNewlineInUnit
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, unit+"\n")
	return err
}

// Close closes the underlying writer if it is an io.Closer.
func (p *LinePublisher) Close() error {
	if c, ok := p.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// lineReader yields newline-delimited units. The trailing newline is
// stripped; a final line without one is still a unit.
type lineReader struct {
	br  *bufio.Reader
	max int
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{br: bufio.NewReader(r), max: maxLen}
}

func (l *lineReader) ReadUnit() (string, error) {
	line, err := l.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", &frame.FrameError{Kind: frame.FrameErrorPartial, Msg: "failed to read line", Err: err}
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", io.EOF
	}
	line = strings.TrimSuffix(line, "\n")
	if l.max > 0 && len(line) > l.max {
		return "", &frame.FrameError{
			Kind: frame.FrameErrorTooLarge,
			Msg:  fmt.Sprintf("line size %d exceeds maximum %d", len(line), l.max),
		}
	}
	return line, nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Prompter asks yes/no questions on the terminal. Reads respect context
// cancellation so an interrupt during a prompt exits cleanly.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewPrompter creates a prompter over the given reader and writer.
// Nil arguments default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Confirm asks question and returns true only on an explicit yes. Empty
// input takes the default. Used before destructive operations such as
// executing an allocation plan or deleting a section.
func (p *Prompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	if _, err := fmt.Fprintf(p.writer, "%s %s ", FormatPrompt(question), SubtleStyle.Render(hint)); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(line) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine reads one trimmed line, returning early if ctx is canceled.
// The blocked read goroutine drains on the next call via the mutex.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		value, err := p.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && res.err != io.EOF {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

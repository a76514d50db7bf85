package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ConfirmationPrompt decides whether a gated tool call may proceed. A false
// result without error is an ordinary denial; the loop records it and moves
// on rather than aborting the session.
type ConfirmationPrompt interface {
	Confirm(ctx context.Context, action string) (bool, error)
}

// AutoApprove approves every action. Used for non-interactive runs.
type AutoApprove struct{}

func (AutoApprove) Confirm(context.Context, string) (bool, error) { return true, nil }

// AutoDeny denies every action. Useful in tests and locked-down runs.
type AutoDeny struct{}

func (AutoDeny) Confirm(context.Context, string) (bool, error) { return false, nil }

// TerminalPrompt asks for confirmation on the given reader/writer pair,
// typically stdin/stderr. Anything other than "y" or "yes" is a denial.
type TerminalPrompt struct {
	In  io.Reader
	Out io.Writer
}

func (p TerminalPrompt) Confirm(ctx context.Context, action string) (bool, error) {
	fmt.Fprintf(p.Out, "Allow %s? [y/N] ", action)

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.text)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

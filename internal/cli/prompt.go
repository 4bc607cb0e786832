package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/sync"
)

// newConfirm picks the deletion policy: --yes approves, an interactive
// terminal is asked, anything else declines
func newConfirm(ctx context.Context, yes bool, logger logging.Logger) sync.ConfirmFunc {
	if yes {
		return sync.AssumeYes
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Warn(ctx, "stdin is not a terminal, superseded files will be kept (use --yes to delete them)", nil)
		return nil
	}
	return promptConfirm(os.Stdin, os.Stderr)
}

// promptConfirm asks y/n, or p to print the files first
func promptConfirm(in io.Reader, out io.Writer) sync.ConfirmFunc {
	scanner := bufio.NewScanner(in)
	return func(ctx context.Context, paths []string) (bool, error) {
		for {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			fmt.Fprintf(out, "%d superseded local files will be deleted. Delete? [y/n/p(rint)] ", len(paths))
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return false, scanner.Err()
			}

			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "y", "yes":
				return true, nil
			case "n", "no":
				return false, nil
			case "p", "print":
				for _, p := range paths {
					fmt.Fprintf(out, "  %s\n", p)
				}
			default:
				fmt.Fprintln(out, "please answer y, n or p")
			}
		}
	}
}

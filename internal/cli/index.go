package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/versync/pkg/sync"
)

// NewIndexCommand creates the index command
func NewIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect or rebuild the level 1B mirror index",
		Long:  fmt.Sprintf(`The index (%s at the mirror root) lists every product file in the local mirror, one per line. It is rewritten after each sync.`, sync.IndexFileName),
	}

	cmd.AddCommand(newIndexShowCommand())
	cmd.AddCommand(newIndexRebuildCommand())

	return cmd
}

func newIndexShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			local, err := openLocal(s.cfg.Local.L1BDir)
			if err != nil {
				return err
			}
			defer local.Close()

			paths, err := sync.LoadIndex(commandContext(cmd), local)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newIndexRebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rescan the mirror and rewrite the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			local, err := openLocal(s.cfg.Local.L1BDir)
			if err != nil {
				return err
			}
			defer local.Close()

			ctx := commandContext(cmd)
			lock, err := sync.AcquireLock(sync.LockPath(local.Root()))
			if err != nil {
				return err
			}
			defer lock.Unlock()

			paths, err := sync.RebuildIndex(ctx, local, s.cfg.L1B.Pattern)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files in %s\n", len(paths), local.Root())
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the versync command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "versync",
		Short: "Keep local mirrors of versioned science products up to date",
		Long: `versync mirrors versioned level 1B products from one or more remote roots
over SFTP, keeping only the latest version and revision of each product
locally. It also mirrors the SPICE kernel tree and fetches auxiliary data
from the SDC team site.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewPlanCommand())
	rootCmd.AddCommand(NewSDCCommand())
	rootCmd.AddCommand(NewIndexCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/versync/pkg/compare"
	"github.com/sdejongh/versync/pkg/config"
	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/reconcile"
	"github.com/sdejongh/versync/pkg/storage"
	"github.com/sdejongh/versync/pkg/sync"
)

// SyncFlags holds sync command flags
type SyncFlags struct {
	DryRun    bool
	Yes       bool
	Pattern   string
	MinOrbit  int
	MaxOrbit  int
	Cruise    bool
	NoSpice   bool
	NoL1B     bool
	Parallel  int
	Bandwidth string
}

var syncFlags SyncFlags

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Bring the local mirrors up to date",
		Long: `Fetch the latest version of every level 1B product from the remote roots,
delete superseded local versions, and mirror the SPICE kernel tree.

Deletions are confirmed interactively unless --yes is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, syncFlags.DryRun)
		},
	}

	addSyncFlags(cmd)
	cmd.Flags().BoolVar(&syncFlags.DryRun, "dry-run", false, "plan only, don't transfer or delete")
	cmd.Flags().BoolVarP(&syncFlags.Yes, "yes", "y", false, "delete superseded files without asking")

	return cmd
}

// NewPlanCommand creates the plan command, a sync that never changes anything
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what sync would fetch and delete",
		Long:  `Compute the reconciliation plan without performing any file operations. This is equivalent to sync --dry-run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, true)
		},
	}

	addSyncFlags(cmd)
	return cmd
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&syncFlags.Pattern, "pattern", "", "file name glob (default from config, e.g. \"*.fits*\")")
	cmd.Flags().IntVar(&syncFlags.MinOrbit, "min-orbit", 0, "first orbit block to sync")
	cmd.Flags().IntVar(&syncFlags.MaxOrbit, "max-orbit", 0, "orbit block to stop before")
	cmd.Flags().BoolVar(&syncFlags.Cruise, "cruise", false, "also sync the cruise folder")
	cmd.Flags().BoolVar(&syncFlags.NoSpice, "no-spice", false, "skip the SPICE mirror")
	cmd.Flags().BoolVar(&syncFlags.NoL1B, "no-l1b", false, "skip level 1B products")
	cmd.Flags().IntVarP(&syncFlags.Parallel, "parallel", "p", 0, "number of parallel transfers (default from config)")
	cmd.Flags().StringVarP(&syncFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10MB\", \"1GiB\")")
}

func runSync(cmd *cobra.Command, dryRun bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := applySyncFlags(cmd, s.cfg); err != nil {
		return err
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := checkLocalDirs(s.cfg); err != nil {
		return err
	}

	if syncFlags.NoL1B && syncFlags.NoSpice {
		return fmt.Errorf("nothing to do: both --no-l1b and --no-spice given")
	}

	remote, err := dialRemote(ctx, s)
	if err != nil {
		return err
	}
	defer remote.Close()

	var statuses []models.SyncStatus

	if !syncFlags.NoL1B {
		report, err := runL1B(ctx, s, remote, dryRun)
		if err != nil {
			s.formatter.Error(err)
			return fmt.Errorf("level 1B sync failed: %w", err)
		}
		statuses = append(statuses, report.Status)
		if err := writeReport(s, report); err != nil {
			return err
		}
	}

	if !syncFlags.NoSpice {
		report, err := runSpice(ctx, s, remote, dryRun)
		if err != nil {
			s.formatter.Error(err)
			return fmt.Errorf("SPICE mirror failed: %w", err)
		}
		statuses = append(statuses, report.Status)
		if err := writeReport(s, report); err != nil {
			return err
		}
	}

	return exitFor(statuses...)
}

// applySyncFlags overrides config values with command-line flags
func applySyncFlags(cmd *cobra.Command, cfg *config.Config) error {
	if syncFlags.Pattern != "" {
		cfg.L1B.Pattern = syncFlags.Pattern
	}
	if cmd.Flags().Changed("min-orbit") {
		cfg.L1B.MinOrbit = syncFlags.MinOrbit
	}
	if cmd.Flags().Changed("max-orbit") {
		cfg.L1B.MaxOrbit = syncFlags.MaxOrbit
	}
	if cmd.Flags().Changed("cruise") {
		cfg.L1B.IncludeCruise = syncFlags.Cruise
	}
	if syncFlags.Parallel > 0 {
		cfg.Performance.MaxWorkers = syncFlags.Parallel
	}
	if syncFlags.Bandwidth != "" {
		limit, err := humanize.ParseBytes(syncFlags.Bandwidth)
		if err != nil {
			return fmt.Errorf("invalid bandwidth %q: %w", syncFlags.Bandwidth, err)
		}
		cfg.Performance.BandwidthLimit = int64(limit)
	}
	return nil
}

func runL1B(ctx context.Context, s *session, remote storage.Source, dryRun bool) (*models.SyncReport, error) {
	local, err := openLocal(s.cfg.Local.L1BDir)
	if err != nil {
		return nil, err
	}
	defer local.Close()

	scheme, err := s.cfg.Scheme()
	if err != nil {
		return nil, err
	}

	op := newOperation(s.cfg, models.KindL1B, local.Root())
	op.DryRun = dryRun
	op.AssumeYes = syncFlags.Yes

	remotes := make([]sync.RemoteSource, 0, len(s.cfg.Remote.Roots))
	for _, r := range s.cfg.Remote.Roots {
		remotes = append(remotes, sync.RemoteSource{
			Root:   reconcile.RemoteRoot{ID: r.ID, BaseDir: r.Dir},
			Source: remote,
		})
	}
	filter := sync.OrbitFilter{
		MinOrbit:      s.cfg.L1B.MinOrbit,
		MaxOrbit:      s.cfg.L1B.MaxOrbit,
		IncludeCruise: s.cfg.L1B.IncludeCruise,
	}

	logger := s.logger.WithFields(logging.Fields{"run": op.ID, "kind": op.Kind})
	engine := sync.NewEngine(local, remotes, filter, s.formatter, logger, op).
		WithScheme(scheme).
		WithLock(sync.LockPath(local.Root()))
	if !dryRun {
		engine.WithConfirm(newConfirm(ctx, syncFlags.Yes, logger))
	}

	return engine.Run(ctx)
}

func runSpice(ctx context.Context, s *session, remote storage.Source, dryRun bool) (*models.SyncReport, error) {
	local, err := openLocal(s.cfg.Local.SpiceDir)
	if err != nil {
		return nil, err
	}
	defer local.Close()

	comparator, err := compare.New(s.cfg.Spice.Comparison)
	if err != nil {
		return nil, err
	}

	op := newOperation(s.cfg, models.KindSPICE, local.Root())
	op.DryRun = dryRun

	logger := s.logger.WithFields(logging.Fields{"run": op.ID, "kind": op.Kind})
	mirror := sync.NewMirror(remote, s.cfg.Remote.SpiceDir, local, comparator, s.formatter, logger, op).
		WithLock(sync.LockPath(local.Root()))

	return mirror.Run(ctx)
}

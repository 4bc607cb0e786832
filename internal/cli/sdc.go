package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/versync/pkg/config"
	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/portal"
)

// SDCFlags holds sdc command flags
type SDCFlags struct {
	CheckOld  bool
	NoEUVM    bool
	NoReports bool
}

var sdcFlags SDCFlags

// NewSDCCommand creates the sdc command
func NewSDCCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sdc",
		Short: "Fetch EUVM data and integrated reports from the SDC team site",
		Long: fmt.Sprintf(`Log in to the SDC team site and fetch the newest EUVM L2B save file
and any new or revised integrated reports.

Credentials are read from %s and %s, or from a .env file
next to the config file.`, config.EnvSDCUsername, config.EnvSDCPassword),
		RunE: runSDC,
	}

	cmd.Flags().BoolVar(&sdcFlags.CheckOld, "check-old", false, "re-check every report, not only recent or missing ones")
	cmd.Flags().BoolVar(&sdcFlags.NoEUVM, "no-euvm", false, "skip the EUVM save file")
	cmd.Flags().BoolVar(&sdcFlags.NoReports, "no-reports", false, "skip integrated reports")

	return cmd
}

func runSDC(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.secrets.HasSDC() {
		return fmt.Errorf("SDC credentials missing: set %s and %s", config.EnvSDCUsername, config.EnvSDCPassword)
	}
	if err := checkLocalDirs(s.cfg); err != nil {
		return err
	}

	client, err := portal.NewClient(userAgent(), s.cfg.Remote.Timeout, s.logger)
	if err != nil {
		return err
	}

	var statuses []models.SyncStatus

	if !sdcFlags.NoEUVM {
		report, err := runEUVM(ctx, s, client)
		if err != nil {
			s.formatter.Error(err)
			return fmt.Errorf("EUVM sync failed: %w", err)
		}
		statuses = append(statuses, report.Status)
	}

	if !sdcFlags.NoReports {
		report, err := runReports(ctx, s, client)
		if err != nil {
			s.formatter.Error(err)
			return fmt.Errorf("integrated reports sync failed: %w", err)
		}
		statuses = append(statuses, report.Status)
	}

	return exitFor(statuses...)
}

func runEUVM(ctx context.Context, s *session, client *portal.Client) (*models.SyncReport, error) {
	local, err := openLocal(s.cfg.Local.EUVMDir)
	if err != nil {
		return nil, err
	}
	defer local.Close()

	page := s.cfg.Portal.EUVMURL
	if err := client.Login(ctx, page, s.secrets.SDCUsername, s.secrets.SDCPassword); err != nil {
		return nil, err
	}

	return finishPortalRun(s, models.KindEUVM, func(logger logging.Logger) (*models.SyncReport, error) {
		return portal.SyncEUVM(ctx, client, page, local, logger)
	})
}

func runReports(ctx context.Context, s *session, client *portal.Client) (*models.SyncReport, error) {
	local, err := openLocal(s.cfg.Local.ReportsDir)
	if err != nil {
		return nil, err
	}
	defer local.Close()

	page := s.cfg.Portal.ReportsURL
	if err := client.Login(ctx, page, s.secrets.SDCUsername, s.secrets.SDCPassword); err != nil {
		return nil, err
	}

	opts := portal.ReportOptions{
		CheckOld:   sdcFlags.CheckOld,
		WindowDays: s.cfg.Portal.ReportWindowDays,
	}
	return finishPortalRun(s, models.KindReports, func(logger logging.Logger) (*models.SyncReport, error) {
		return portal.SyncReports(ctx, client, page, local, opts, logger)
	})
}

// finishPortalRun tags the run, prints its report and saves it
func finishPortalRun(s *session, kind models.SyncKind, run func(logging.Logger) (*models.SyncReport, error)) (*models.SyncReport, error) {
	op := newOperation(s.cfg, kind, "")
	report, err := run(s.logger.WithFields(logging.Fields{"run": op.ID, "kind": kind}))
	if err != nil {
		return nil, err
	}
	report.OperationID = op.ID

	s.formatter.Plan(report)
	s.formatter.Complete(report)
	if err := writeReport(s, report); err != nil {
		return nil, err
	}
	return report, nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/versync/internal/platform"
	"github.com/sdejongh/versync/pkg/config"
	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/output"
	"github.com/sdejongh/versync/pkg/storage"
)

// ExitError carries a non-zero exit code derived from a report status
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// exitFor turns the worst of the given statuses into an ExitError, or nil
func exitFor(statuses ...models.SyncStatus) error {
	code := 0
	for _, s := range statuses {
		if c := s.ExitCode(); c > code {
			code = c
		}
	}
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}

// session bundles the configuration and collaborators every command needs
type session struct {
	cfg       *config.Config
	configDir string
	secrets   config.Secrets
	logger    logging.Logger
	formatter output.Formatter
}

// newSession loads the configuration, applies global flags and builds
// the logger and formatter
func newSession() (*session, error) {
	cfg, dir, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyGlobalFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	secrets, err := config.LoadSecrets(dir)
	if err != nil {
		return nil, err
	}

	formatter, err := createFormatter(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &session{
		cfg:       cfg,
		configDir: dir,
		secrets:   secrets,
		logger:    logger,
		formatter: formatter,
	}, nil
}

func (s *session) Close() error {
	return s.logger.Close()
}

// loadConfig loads configuration from file or returns default. It also
// returns the directory a .env file is looked up in.
func loadConfig() (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path = globalFlags.ConfigFile
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, "", err
		}
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, "", err
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(path), nil
}

// applyGlobalFlags overrides config values with command-line flags
func applyGlobalFlags(cfg *config.Config) {
	if globalFlags.Output != "" {
		cfg.Output.Format = globalFlags.Output
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}
	if globalFlags.Verbose {
		cfg.Logging.Level = "debug"
	}
	if globalFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = globalFlags.LogFile
	}
}

// createLogger logs to stderr and, when configured, to a rotating file.
// The console is left to the progress bar unless verbose output is asked for.
func createLogger(cfg *config.Config) (logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewNullLogger(), nil
	}

	lc := logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		File:       cfg.Logging.File,
		Format:     logging.Format(cfg.Logging.Format),
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	if !cfg.Output.Quiet && (cfg.Output.Format != "progress" || globalFlags.Verbose) {
		lc.Console = os.Stderr
	}
	return logging.New(lc)
}

func createFormatter(cfg *config.Config) (output.Formatter, error) {
	if cfg.Output.Quiet {
		return output.NopFormatter{}, nil
	}
	return output.New(cfg.Output.Format)
}

// newOperation creates a sync operation from configuration
func newOperation(cfg *config.Config, kind models.SyncKind, localDir string) *models.SyncOperation {
	return &models.SyncOperation{
		ID:               uuid.New().String(),
		Kind:             kind,
		LocalDir:         localDir,
		Pattern:          cfg.L1B.Pattern,
		ComparisonMethod: cfg.Spice.Comparison,
		ExcludePatterns:  cfg.Spice.Exclude,
		DeleteOrphans:    cfg.Spice.Delete,
		MaxWorkers:       cfg.Performance.MaxWorkers,
		BandwidthLimit:   cfg.Performance.BandwidthLimit,
		BufferSize:       cfg.Performance.BufferSize,
		CreatedAt:        time.Now(),
	}
}

// openLocal opens a local mirror directory, creating it first
func openLocal(dir string) (*storage.Local, error) {
	abs, err := platform.NormalizePath(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", abs, err)
	}
	return storage.NewLocal(abs)
}

// checkLocalDirs refuses overlapping mirror directories
func checkLocalDirs(cfg *config.Config) error {
	return platform.CheckDistinct(map[string]string{
		"local.l1b_dir":     cfg.Local.L1BDir,
		"local.spice_dir":   cfg.Local.SpiceDir,
		"local.euvm_dir":    cfg.Local.EUVMDir,
		"local.reports_dir": cfg.Local.ReportsDir,
	})
}

// dialRemote opens the SFTP session to the product host
func dialRemote(ctx context.Context, s *session) (*storage.SFTP, error) {
	r := s.cfg.Remote
	s.logger.Info(ctx, "connecting", logging.Fields{"host": r.Host, "user": r.Username})

	keyFile := r.KeyFile
	if keyFile != "" {
		if _, err := os.Stat(keyFile); err != nil {
			if s.secrets.SSHPassword == "" {
				return nil, fmt.Errorf("key file %s: %w", keyFile, err)
			}
			keyFile = ""
		}
	}

	src, err := storage.DialSFTP(ctx, storage.SFTPConfig{
		Host:                  r.Host,
		Port:                  r.Port,
		Username:              r.Username,
		Password:              s.secrets.SSHPassword,
		KeyFile:               keyFile,
		KnownHosts:            r.KnownHosts,
		InsecureIgnoreHostKey: r.InsecureIgnoreHostKey,
		Timeout:               r.Timeout,
		Root:                  "/",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", r.Host, err)
	}
	return src, nil
}

// writeReport saves the warnings and errors of a run when a report file
// is configured. Each run kind gets its own file.
func writeReport(s *session, report *models.SyncReport) error {
	path := s.cfg.Output.ReportFile
	if path == "" {
		return nil
	}
	ext := filepath.Ext(path)
	path = strings.TrimSuffix(path, ext) + "-" + string(report.Kind) + ext

	format := "human"
	if strings.EqualFold(ext, ".json") {
		format = "json"
	}
	if err := output.WriteReportFile(report, path, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"path"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sdejongh/versync/pkg/fileversion"
	"github.com/sdejongh/versync/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Local       LocalConfig       `yaml:"local"`
	Remote      RemoteConfig      `yaml:"remote"`
	L1B         L1BConfig         `yaml:"l1b"`
	Spice       SpiceConfig       `yaml:"spice"`
	Portal      PortalConfig      `yaml:"portal"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LocalConfig holds the local mirror directories
type LocalConfig struct {
	L1BDir     string `yaml:"l1b_dir"`
	SpiceDir   string `yaml:"spice_dir"`
	EUVMDir    string `yaml:"euvm_dir"`
	ReportsDir string `yaml:"reports_dir"`
}

// RemoteConfig describes the SFTP host that publishes products.
// The password, if any, comes from VERSYNC_SSH_PASSWORD.
type RemoteConfig struct {
	Host                  string        `yaml:"host"`
	Port                  int           `yaml:"port"`
	Username              string        `yaml:"username"`
	KeyFile               string        `yaml:"key_file"`
	KnownHosts            string        `yaml:"known_hosts"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key"`
	Timeout               time.Duration `yaml:"timeout"`
	// Roots are consulted in order; earlier roots win ties
	Roots    []RootConfig `yaml:"roots"`
	SpiceDir string       `yaml:"spice_dir"`
}

// RootConfig names one remote product tree
type RootConfig struct {
	ID  string `yaml:"id"`
	Dir string `yaml:"dir"`
}

// L1BConfig selects which versioned products are synchronized
type L1BConfig struct {
	Pattern        string `yaml:"pattern"`
	VersionPattern string `yaml:"version_pattern"`
	MinOrbit       int    `yaml:"min_orbit"`
	MaxOrbit       int    `yaml:"max_orbit"`
	IncludeCruise  bool   `yaml:"include_cruise"`
}

// SpiceConfig controls the SPICE kernel mirror
type SpiceConfig struct {
	Comparison models.ComparisonMethod `yaml:"comparison"`
	Delete     bool                    `yaml:"delete"`
	Exclude    []string                `yaml:"exclude,omitempty"`
}

// PortalConfig holds the SDC web pages. Credentials come from
// VERSYNC_SDC_USERNAME and VERSYNC_SDC_PASSWORD.
type PortalConfig struct {
	EUVMURL    string `yaml:"euvm_url"`
	ReportsURL string `yaml:"reports_url"`
	// ReportWindowDays bounds how far back reports are re-checked
	ReportWindowDays int `yaml:"report_window_days"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers     int   `yaml:"max_workers"`
	BufferSize     int   `yaml:"buffer_size"`
	BandwidthLimit int64 `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format     string `yaml:"format"`      // "human", "json" or "progress"
	Quiet      bool   `yaml:"quiet"`       // Suppress non-error output
	ReportFile string `yaml:"report_file"` // Written when a run has warnings or errors
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = console only)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Local: LocalConfig{
			L1BDir:     "~/maven/iuvs/l1b",
			SpiceDir:   "~/maven/spice",
			EUVMDir:    "~/maven/euvm/l2b",
			ReportsDir: "~/maven/integrated_reports",
		},
		Remote: RemoteConfig{
			Host:       "maven-iuvs-itf",
			Port:       22,
			KeyFile:    "~/.ssh/id_rsa",
			KnownHosts: "~/.ssh/known_hosts",
			Timeout:    30 * time.Second,
			Roots: []RootConfig{
				{ID: "production", Dir: "/maven_iuvs/production/products/level1b"},
				{ID: "stage", Dir: "/maven_iuvs/stage/products/level1b"},
			},
			SpiceDir: "/maven_iuvs/stage/anc/spice",
		},
		L1B: L1BConfig{
			Pattern:        "*.fits*",
			VersionPattern: fileversion.DefaultPattern,
			MinOrbit:       100,
			MaxOrbit:       100000,
			IncludeCruise:  false,
		},
		Spice: SpiceConfig{
			Comparison: models.CompareNameSize,
			Delete:     true,
		},
		Portal: PortalConfig{
			EUVMURL:          "https://lasp.colorado.edu/maven/data/sci/euv/l2b/",
			ReportsURL:       "https://lasp.colorado.edu/ops/maven/team/inst_ops.php?content=msa_ir&show_all",
			ReportWindowDays: 180,
		},
		Performance: PerformanceConfig{
			MaxWorkers:     4,
			BufferSize:     65536,
			BandwidthLimit: 0,
		},
		Output: OutputConfig{
			Format: "progress",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Local.L1BDir == "" {
		return &models.ValidationError{Field: "local.l1b_dir", Message: "is required"}
	}

	if c.Remote.Port < 1 || c.Remote.Port > 65535 {
		return &models.ValidationError{Field: "remote.port", Message: "must be between 1 and 65535"}
	}

	if len(c.Remote.Roots) == 0 {
		return &models.ValidationError{Field: "remote.roots", Message: "at least one root is required"}
	}
	seen := make(map[string]bool, len(c.Remote.Roots))
	for _, r := range c.Remote.Roots {
		if r.ID == "" || r.Dir == "" {
			return &models.ValidationError{Field: "remote.roots", Message: "every root needs an id and a dir"}
		}
		if !path.IsAbs(r.Dir) {
			return &models.ValidationError{Field: "remote.roots", Message: fmt.Sprintf("dir of root %q must be an absolute path", r.ID)}
		}
		if seen[r.ID] {
			return &models.ValidationError{Field: "remote.roots", Message: fmt.Sprintf("duplicate root id %q", r.ID)}
		}
		seen[r.ID] = true
	}
	if c.Remote.SpiceDir != "" && !path.IsAbs(c.Remote.SpiceDir) {
		return &models.ValidationError{Field: "remote.spice_dir", Message: "must be an absolute path"}
	}

	if !doublestar.ValidatePattern(c.L1B.Pattern) {
		return &models.ValidationError{Field: "l1b.pattern", Message: "is not a valid glob"}
	}
	if c.L1B.VersionPattern != "" {
		if _, err := fileversion.NewScheme(c.L1B.VersionPattern); err != nil {
			return &models.ValidationError{Field: "l1b.version_pattern", Message: err.Error()}
		}
	}
	if c.L1B.MinOrbit < 0 || c.L1B.MaxOrbit < c.L1B.MinOrbit {
		return &models.ValidationError{Field: "l1b.max_orbit", Message: "must not be below min_orbit"}
	}

	switch c.Spice.Comparison {
	case models.CompareNameSize, models.CompareTimestamp:
	default:
		return &models.ValidationError{Field: "spice.comparison", Message: "must be 'namesize' or 'timestamp'"}
	}
	for _, p := range c.Spice.Exclude {
		if !doublestar.ValidatePattern(p) {
			return &models.ValidationError{Field: "spice.exclude", Message: fmt.Sprintf("invalid pattern %q", p)}
		}
	}

	if c.Portal.ReportWindowDays < 1 {
		return &models.ValidationError{Field: "portal.report_window_days", Message: "must be at least 1"}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: "cannot be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true, "progress": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'json' or 'progress'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// Scheme compiles the configured version pattern, falling back to the
// default naming convention
func (c *Config) Scheme() (*fileversion.Scheme, error) {
	if c.L1B.VersionPattern == "" {
		return fileversion.DefaultScheme, nil
	}
	return fileversion.NewScheme(c.L1B.VersionPattern)
}

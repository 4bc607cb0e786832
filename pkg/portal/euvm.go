package portal

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/storage"
)

// EUVMPattern matches EUVM L2B save files in the local directory
const EUVMPattern = "*l2b*.sav"

// SyncEUVM keeps exactly one EUVM L2B save file locally: the newest one
// linked from pageURL. Older local save files are removed once the newest
// is in place.
func SyncEUVM(ctx context.Context, c *Client, pageURL string, local *storage.Local, logger logging.Logger) (*models.SyncReport, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	report := &models.SyncReport{
		Kind:      models.KindEUVM,
		LocalDir:  local.Root(),
		StartTime: time.Now(),
	}

	links, err := c.Links(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var saves []string
	for _, l := range links {
		if strings.Contains(l.URL, ".sav") {
			saves = append(saves, l.URL)
		}
	}
	report.Stats.RemoteFilesScanned = len(saves)
	if len(saves) == 0 {
		logger.Warn(ctx, "no EUVM save files linked", logging.Fields{"url": pageURL})
		report.Finish()
		return report, nil
	}
	sort.Strings(saves)
	latest := saves[len(saves)-1]
	name := fileName(latest)

	exists, err := local.Exists(ctx, name)
	if err != nil {
		return nil, err
	}

	if exists {
		report.Stats.FilesUnchanged = 1
		logger.Info(ctx, "EUVM file up to date", logging.Fields{"file": name})
	} else {
		report.Stats.FilesToFetch = 1
		if err := fetchTo(ctx, c, latest, local, name, report); err != nil {
			logger.Error(ctx, "EUVM download failed", err, logging.Fields{"url": latest})
			report.AddError(name, models.ActionFetch, err)
			report.Finish()
			return report, nil
		}
		logger.Info(ctx, "EUVM file fetched", logging.Fields{"file": name})
	}

	entries, err := local.ReadDir(ctx, ".")
	if err != nil {
		return nil, err
	}
	report.Stats.LocalFilesScanned = len(entries)
	for _, e := range entries {
		base := filepath.Base(e.RelativePath)
		if e.IsDir || base == name {
			continue
		}
		if ok, _ := doublestar.Match(EUVMPattern, base); !ok {
			continue
		}
		report.Stats.FilesToDelete++
		op := models.FileOperation{Path: base, Action: models.ActionDelete, Reason: "superseded by " + name}
		if err := local.Delete(ctx, base); err != nil {
			op.Error = err
			report.AddError(base, models.ActionDelete, err)
		} else {
			report.Stats.FilesDeleted++
		}
		report.Operations = append(report.Operations, op)
	}

	report.Finish()
	return report, nil
}

// fetchTo streams rawURL into name below local
func fetchTo(ctx context.Context, c *Client, rawURL string, local *storage.Local, name string, report *models.SyncReport) error {
	start := time.Now()
	body, size, err := c.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := local.Write(ctx, name, body, size, nil); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	op := models.FileOperation{
		Path:     name,
		Source:   rawURL,
		Action:   models.ActionFetch,
		Reason:   "newer file",
		Duration: time.Since(start),
	}
	if info, err := local.Stat(ctx, name); err == nil {
		op.BytesCopied = info.Size
	}
	report.Stats.FilesFetched++
	report.Stats.BytesTransferred += op.BytesCopied
	report.Operations = append(report.Operations, op)
	return nil
}

// fileName is the last path element of a link
func fileName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

package portal

import (
	"bytes"
	"context"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jonboulle/clockwork"

	"github.com/sdejongh/versync/pkg/logging"
	"github.com/sdejongh/versync/pkg/models"
	"github.com/sdejongh/versync/pkg/storage"
)

// DefaultReportWindow is how many days back reports are re-checked
const DefaultReportWindow = 180

const (
	viewLink     = "inst_ops.php?content=file&file="
	downloadLink = "download-file.php?public/"
)

// ReportOptions controls SyncReports
type ReportOptions struct {
	// CheckOld re-checks every linked report, not only recent or missing ones
	CheckOld bool
	// WindowDays defaults to DefaultReportWindow
	WindowDays int
	// Clock defaults to the real clock
	Clock clockwork.Clock
}

// SyncReports downloads the integrated reports linked from pageURL.
// Reports dated within the window, or missing locally, are downloaded and
// written only when their content changed.
func SyncReports(ctx context.Context, c *Client, pageURL string, local *storage.Local, opts ReportOptions, logger logging.Logger) (*models.SyncReport, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultReportWindow
	}

	report := &models.SyncReport{
		Kind:      models.KindReports,
		LocalDir:  local.Root(),
		StartTime: time.Now(),
	}

	links, err := c.Links(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	var reports []Link
	for _, l := range links {
		if strings.Contains(l.Text, ".txt") {
			reports = append(reports, l)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Text < reports[j].Text })
	report.Stats.RemoteFilesScanned = len(reports)

	entries, err := local.ReadDir(ctx, ".")
	if err != nil {
		return nil, err
	}
	present := mapset.NewThreadUnsafeSet[string]()
	for _, e := range entries {
		if !e.IsDir {
			present.Add(filepath.Base(e.RelativePath))
		}
	}
	report.Stats.LocalFilesScanned = present.Cardinality()

	cutoff := reportDate(opts.Clock.Now().AddDate(0, 0, -opts.WindowDays).Format("060102"))

	var candidates []Link
	for _, l := range reports {
		name := path.Base(l.Text)
		date, dated := reportDateOf(name)
		if opts.CheckOld || !present.Contains(name) || (dated && date > cutoff) {
			candidates = append(candidates, l)
		}
	}
	report.Stats.FilesToFetch = len(candidates)
	report.Stats.FilesUnchanged = len(reports) - len(candidates)

	logger.Info(ctx, "checking integrated reports", logging.Fields{
		"linked":     len(reports),
		"candidates": len(candidates),
		"check_old":  opts.CheckOld,
	})

	for _, l := range candidates {
		if ctx.Err() != nil {
			report.Status = models.StatusCancelled
			report.Finish()
			return report, ctx.Err()
		}

		name := path.Base(l.Text)
		changed, n, err := syncReport(ctx, c, l, local, name, present.Contains(name))
		if err != nil {
			logger.Warn(ctx, "report download failed", logging.Fields{"file": name, "error": err.Error()})
			report.AddError(name, models.ActionFetch, err)
			continue
		}
		if !changed {
			report.Stats.FilesUnchanged++
			continue
		}
		report.Stats.FilesFetched++
		report.Stats.BytesTransferred += n
		report.Operations = append(report.Operations, models.FileOperation{
			Path:        name,
			Source:      DownloadURL(l.URL),
			Action:      models.ActionFetch,
			Reason:      "new or changed report",
			BytesCopied: n,
		})
		logger.Debug(ctx, "report updated", logging.Fields{"file": name, "bytes": n})
	}

	report.Finish()
	return report, nil
}

// syncReport downloads one report and writes it when it differs from the
// local copy
func syncReport(ctx context.Context, c *Client, l Link, local *storage.Local, name string, exists bool) (bool, int64, error) {
	data, err := c.Download(ctx, DownloadURL(l.URL))
	if err != nil {
		return false, 0, err
	}

	if exists {
		rc, err := local.Read(ctx, name)
		if err == nil {
			current, err := io.ReadAll(rc)
			rc.Close()
			if err == nil && bytes.Equal(current, data) {
				return false, 0, nil
			}
		}
	}

	if err := local.Write(ctx, name, bytes.NewReader(data), int64(len(data)), nil); err != nil {
		return false, 0, err
	}
	return true, int64(len(data)), nil
}

// DownloadURL turns a report view link into its download link
func DownloadURL(viewURL string) string {
	return strings.Replace(viewURL, viewLink, downloadLink, 1)
}

// reportDateOf reads the YYMMDD date in the third underscore-separated
// field of a report name
func reportDateOf(name string) (int, bool) {
	fields := strings.Split(name, "_")
	if len(fields) < 3 {
		return 0, false
	}
	date := reportDate(fields[2])
	return date, date >= 0
}

// reportDate parses the leading six digits of s, or returns -1
func reportDate(s string) int {
	if len(s) < 6 {
		return -1
	}
	n, err := strconv.Atoi(s[:6])
	if err != nil {
		return -1
	}
	return n
}

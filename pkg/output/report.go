package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sdejongh/versync/pkg/models"
)

// WriteReportFile writes the warnings and errors of a run to a file.
// Format can be "human" or "json". Nothing is written for a clean run.
func WriteReportFile(report *models.SyncReport, path string, format string) error {
	if len(report.Warnings) == 0 && len(report.Errors) == 0 {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return writeReportJSON(report, file)
	default:
		return writeReportHuman(report, file)
	}
}

func writeReportHuman(report *models.SyncReport, w io.Writer) error {
	fmt.Fprintf(w, "Sync Report\n")
	fmt.Fprintf(w, "===========\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Run: %s\n", report.OperationID)
	fmt.Fprintf(w, "Kind: %s\n", report.Kind)
	fmt.Fprintf(w, "Mirror: %s\n", report.LocalDir)
	fmt.Fprintf(w, "Dry Run: %v\n\n", report.DryRun)

	byKind := make(map[models.WarningKind][]models.Warning)
	for _, warn := range report.Warnings {
		byKind[warn.Kind] = append(byKind[warn.Kind], warn)
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		warnings := byKind[models.WarningKind(k)]
		fmt.Fprintf(w, "%s (%d)\n", k, len(warnings))
		for _, warn := range warnings {
			fmt.Fprintf(w, "  %s\n    %s\n", warn.Path, warn.Message)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "errors (%d)\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s %s\n    %s\n", e.Operation, e.FilePath, e.Error)
		}
	}
	return nil
}

func writeReportJSON(report *models.SyncReport, w io.Writer) error {
	data := struct {
		OperationID string          `json:"operation_id"`
		Kind        string          `json:"kind"`
		LocalDir    string          `json:"local_dir"`
		DryRun      bool            `json:"dry_run"`
		Warnings    []JSONWarning   `json:"warnings"`
		Errors      []JSONErrorData `json:"errors"`
	}{
		OperationID: report.OperationID,
		Kind:        string(report.Kind),
		LocalDir:    report.LocalDir,
		DryRun:      report.DryRun,
		Warnings:    []JSONWarning{},
		Errors:      []JSONErrorData{},
	}
	for _, warn := range report.Warnings {
		data.Warnings = append(data.Warnings, JSONWarning{Kind: string(warn.Kind), Path: warn.Path, Message: warn.Message})
	}
	for _, e := range report.Errors {
		data.Errors = append(data.Errors, JSONErrorData{Path: e.FilePath, Operation: string(e.Operation), Error: e.Error})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/morozRed/swampmonster/internal/fileutil"
)

type RunSummary struct {
	Mode         string   `json:"mode"`
	Strategy     string   `json:"strategy"`
	RootPath     string   `json:"root_path"`
	OutputDir    string   `json:"output_dir,omitempty"`
	Database     string   `json:"database,omitempty"`
	StoredLinks  int64    `json:"stored_links,omitempty"`
	Files        int      `json:"files"`
	Events       int      `json:"events"`
	Edges        int      `json:"edges"`
	Sources      int      `json:"sources"`
	Sinks        int      `json:"sinks"`
	Pages        int      `json:"pages"`
	Rewritten    int      `json:"rewritten"`
	Unchanged    int      `json:"unchanged"`
	Diagnostics  int      `json:"diagnostics"`
	DurationMS   int64    `json:"duration_ms"`
	ChangedFiles []string `json:"changed_files,omitempty"`
}

type StatusSummary struct {
	Mode         string   `json:"mode"`
	RootPath     string   `json:"root_path"`
	OutputDir    string   `json:"output_dir"`
	Fresh        bool     `json:"fresh"`
	Scanned      int      `json:"scanned"`
	Changed      int      `json:"changed"`
	Added        int      `json:"added"`
	Deleted      int      `json:"deleted"`
	ChangedFiles []string `json:"changed_files,omitempty"`
	AddedFiles   []string `json:"added_files,omitempty"`
	DeletedFiles []string `json:"deleted_files,omitempty"`
}

func PrintRunSummary(summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	fmt.Printf("%s complete in %dms (%s)\n", summary.Mode, summary.DurationMS, summary.Strategy)
	if summary.OutputDir != "" {
		fmt.Printf("output: %s\n", summary.OutputDir)
	}
	if summary.Database != "" {
		fmt.Printf("database: %s links=%d\n", summary.Database, summary.StoredLinks)
	}
	fmt.Printf("events: %d edges=%d sources=%d sinks=%d\n", summary.Events, summary.Edges, summary.Sources, summary.Sinks)
	fmt.Printf("files: scanned=%d pages=%d rewritten=%d unchanged=%d\n", summary.Files, summary.Pages, summary.Rewritten, summary.Unchanged)
	if summary.Diagnostics > 0 {
		fmt.Printf("diagnostics: %d (see stderr)\n", summary.Diagnostics)
	}
	if len(summary.ChangedFiles) > 0 {
		fmt.Printf("changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	return nil
}

func PrintStatusSummary(summary StatusSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	state := "stale"
	if summary.Fresh {
		state = "fresh"
	}
	fmt.Printf("status: %s scanned=%d changed=%d added=%d deleted=%d\n",
		state, summary.Scanned, summary.Changed, summary.Added, summary.Deleted)
	if len(summary.ChangedFiles) > 0 {
		fmt.Printf("changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	if len(summary.AddedFiles) > 0 {
		fmt.Printf("added files (%d): %s\n", len(summary.AddedFiles), SummarizePaths(summary.AddedFiles, 8))
	}
	if len(summary.DeletedFiles) > 0 {
		fmt.Printf("deleted files (%d): %s\n", len(summary.DeletedFiles), SummarizePaths(summary.DeletedFiles, 8))
	}
	if !summary.Fresh {
		fmt.Printf("run `swampmonster analyse %s` to refresh the report\n", summary.RootPath)
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}

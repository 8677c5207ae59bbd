package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/events"
	"github.com/morozRed/swampmonster/internal/fileutil"
	"github.com/morozRed/swampmonster/internal/languages"
	"github.com/morozRed/swampmonster/internal/model"
)

// SourcesFile records the hash of every analysed source file so status can
// tell whether a report is stale.
const SourcesFile = "sources.json"

func ReportDiagnostics(diagnostics []codemodel.Diagnostic) {
	for _, d := range diagnostics {
		if d.Language != "" {
			fmt.Fprintf(os.Stderr, "[%s] %s (%s): %s\n", d.Severity, d.File, d.Language, d.Message)
			continue
		}
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", d.Severity, d.File, d.Message)
	}
}

// CountEdges totals the classified references of result.
func CountEdges(result *events.Result) (edges, sources, sinks int) {
	for _, sym := range result.Symbols() {
		for _, edge := range result.Edges(sym) {
			edges++
			switch edge.Classification {
			case model.Source:
				sources++
			case model.Sink:
				sinks++
			}
		}
	}
	return edges, sources, sinks
}

func WriteSourceManifest(root, outputDir string, ignoreRules []string) error {
	hashes, err := fileutil.ScanFileHashes(root, languages.NewDefaultRegistry(), ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to hash source files: %w", err)
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode source manifest: %w", err)
	}
	if err := fileutil.WriteIfChanged(filepath.Join(outputDir, SourcesFile), append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write source manifest: %w", err)
	}
	return nil
}

func LoadSourceManifest(outputDir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, SourcesFile))
	if err != nil {
		return nil, err
	}
	hashes := map[string]string{}
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", SourcesFile, err)
	}
	return hashes, nil
}

// DiffManifests compares recorded hashes with current ones. Results are
// sorted.
func DiffManifests(recorded, current map[string]string) (changed, added, deleted []string) {
	for file, hash := range current {
		prev, ok := recorded[file]
		switch {
		case !ok:
			added = append(added, file)
		case prev != hash:
			changed = append(changed, file)
		}
	}
	for file := range recorded {
		if _, ok := current[file]; !ok {
			deleted = append(deleted, file)
		}
	}
	sort.Strings(changed)
	sort.Strings(added)
	sort.Strings(deleted)
	return changed, added, deleted
}

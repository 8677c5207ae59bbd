package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morozRed/swampmonster/internal/config"
	"github.com/morozRed/swampmonster/internal/fileutil"
	"github.com/morozRed/swampmonster/internal/languages"
)

func RunStatus(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	root, err := resolveRoot(path)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	output, err := OptionalStringFlag(cmd, "output")
	if err != nil {
		return err
	}
	if output == "" {
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		output = cfg.Output
	}
	outputDir := resolveOutputDir(root, output)

	recorded, err := LoadSourceManifest(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no report found in %s; run `swampmonster analyse %s`", outputDir, root)
		}
		return err
	}

	ignoreRules, err := LoadIgnoreRules(root)
	if err != nil {
		return err
	}
	current, err := fileutil.ScanFileHashes(root, languages.NewDefaultRegistry(), ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}

	changed, added, deleted := DiffManifests(recorded, current)
	summary := StatusSummary{
		Mode:         "status",
		RootPath:     root,
		OutputDir:    outputDir,
		Fresh:        len(changed)+len(added)+len(deleted) == 0,
		Scanned:      len(current),
		Changed:      len(changed),
		Added:        len(added),
		Deleted:      len(deleted),
		ChangedFiles: changed,
		AddedFiles:   added,
		DeletedFiles: deleted,
	}
	return PrintStatusSummary(summary, asJSON)
}

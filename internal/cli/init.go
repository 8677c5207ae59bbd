package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/morozRed/swampmonster/internal/config"
	"github.com/morozRed/swampmonster/internal/fileutil"
)

const ignoreTemplate = `# Paths excluded from analysis, gitignore syntax.
# bin/, obj/, packages/ and .vs/ are always excluded.
# Generated/
# *.Designer.cs
`

const envTemplate = `# Defaults for swampmonster analyse; command line flags take precedence.
# SWAMPMONSTER_OUTPUT=.swampmonster
# SWAMPMONSTER_CONCURRENCY=8
# SWAMPMONSTER_AGG=false
# SWAMPMONSTER_HANDLER_TYPES=PropertyChangedEventHandler
# SWAMPMONSTER_DB=
`

// RunInit writes commented templates for the ignore and env files. Existing
// files are left alone.
func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}

	for _, file := range []struct {
		name    string
		content string
	}{
		{IgnoreFile, ignoreTemplate},
		{config.EnvFile, envTemplate},
	} {
		path := filepath.Join(rootPath, file.name)
		if err := fileutil.WriteIfMissing(path, []byte(file.content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.name, err)
		}
	}

	fmt.Printf("Initialized %s and %s in %s\n", IgnoreFile, config.EnvFile, rootPath)
	return nil
}

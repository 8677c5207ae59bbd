package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morozRed/swampmonster/internal/fileutil"
	"github.com/morozRed/swampmonster/internal/search"
	"github.com/morozRed/swampmonster/internal/storage"
)

// SearchMatch is one event returned by the search command.
type SearchMatch struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	File    string  `json:"file,omitempty"`
	Line    int     `json:"line,omitempty"`
	Sources int     `json:"sources"`
	Sinks   int     `json:"sinks"`
	Score   float64 `json:"score,omitempty"`
	// Links are the stored link rows of the declaration file for this event,
	// available with --db only.
	Links []storage.LinkRow `json:"links,omitempty"`
}

func RunSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("search query is empty")
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to read --limit flag: %w", err)
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	dbPath, err := OptionalStringFlag(cmd, "db")
	if err != nil {
		return err
	}

	var matches []SearchMatch
	if dbPath != "" {
		matches, err = searchDatabase(dbPath, query, limit)
	} else {
		reportDir, flagErr := OptionalStringFlag(cmd, "report")
		if flagErr != nil {
			return flagErr
		}
		if reportDir == "" {
			reportDir = DefaultOutputDir
		}
		matches, err = searchReport(reportDir, query, limit)
	}
	if err != nil {
		return err
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{"query": query, "matches": matches})
	}
	if len(matches) == 0 {
		fmt.Printf("no events match %q\n", query)
		return nil
	}
	for _, m := range matches {
		location := m.File
		if m.Line > 0 {
			location = fmt.Sprintf("%s:%d", m.File, m.Line)
		}
		fmt.Printf("%s [%s] %s sources=%d sinks=%d\n", m.Name, m.Kind, location, m.Sources, m.Sinks)
		for _, link := range m.Links {
			fmt.Printf("  %s -> %s\n", link.Direction, link.TargetFile)
		}
	}
	return nil
}

func searchReport(reportDir, query string, limit int) ([]SearchMatch, error) {
	index, err := search.Load(reportDir)
	if err != nil {
		return nil, err
	}
	var matches []SearchMatch
	for _, hit := range search.Search(index, query, limit) {
		doc, ok := index.Document(hit.ID)
		if !ok {
			continue
		}
		matches = append(matches, SearchMatch{
			Name:    doc.Name,
			Kind:    doc.Kind,
			File:    doc.File,
			Line:    doc.Line,
			Sources: doc.Sources,
			Sinks:   doc.Sinks,
			Score:   hit.Score,
		})
	}
	return matches, nil
}

func searchDatabase(path, query string, limit int) ([]SearchMatch, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database %s not found (run swampmonster analyse --db %s)", path, path)
		}
		return nil, fmt.Errorf("failed to access database: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.FindEvents(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	matches := make([]SearchMatch, 0, len(rows))
	for _, row := range rows {
		match := SearchMatch{
			Name:    row.Name,
			Kind:    row.Kind,
			File:    row.File,
			Line:    row.Line,
			Sources: row.Sources,
			Sinks:   row.Sinks,
		}
		if row.File != "" {
			links, err := db.LinksForFile(row.File)
			if err != nil {
				return nil, err
			}
			for _, link := range links {
				if link.Event == row.Name {
					match.Links = append(match.Links, link)
				}
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

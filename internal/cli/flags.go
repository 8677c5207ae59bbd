package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/morozRed/swampmonster/internal/config"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string, fallback bool) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return fallback, nil
	}
	if !cmd.Flags().Changed(name) {
		return fallback, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// AnalyseOptions is the resolved configuration of one analyse invocation.
type AnalyseOptions struct {
	Path         string
	Output       string
	Aggregator   bool
	Concurrency  int
	HandlerTypes []string
	DB           string
	CacheSize    int
	JSON         bool
	Watch        bool
	Debounce     time.Duration
}

// ParseAnalyseOptions merges command flags over cfg. A flag left at its
// default does not override a configured value.
func ParseAnalyseOptions(cmd *cobra.Command, path string, cfg *config.Config) (AnalyseOptions, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	opts := AnalyseOptions{
		Path:         path,
		Output:       cfg.Output,
		Aggregator:   cfg.Aggregator,
		Concurrency:  cfg.Concurrency,
		HandlerTypes: cfg.HandlerTypes,
		DB:           cfg.DB,
		CacheSize:    cfg.CacheSize,
		Debounce:     defaultDebounce,
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("output") {
		if opts.Output, err = OptionalStringFlag(cmd, "output"); err != nil {
			return opts, err
		}
	}
	if opts.Aggregator, err = OptionalBoolFlag(cmd, "agg", opts.Aggregator); err != nil {
		return opts, err
	}
	if flags.Changed("concurrency") {
		if opts.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return opts, fmt.Errorf("failed to read --concurrency flag: %w", err)
		}
		if opts.Concurrency < 0 {
			return opts, fmt.Errorf("--concurrency must be >= 0")
		}
	}
	if flags.Changed("handler-type") {
		if opts.HandlerTypes, err = flags.GetStringSlice("handler-type"); err != nil {
			return opts, fmt.Errorf("failed to read --handler-type flag: %w", err)
		}
	}
	if flags.Changed("db") {
		if opts.DB, err = OptionalStringFlag(cmd, "db"); err != nil {
			return opts, err
		}
	}
	if opts.JSON, err = OptionalBoolFlag(cmd, "json", false); err != nil {
		return opts, err
	}
	if opts.Watch, err = OptionalBoolFlag(cmd, "watch", false); err != nil {
		return opts, err
	}
	if flags.Lookup("debounce") != nil && flags.Changed("debounce") {
		if opts.Debounce, err = flags.GetDuration("debounce"); err != nil {
			return opts, fmt.Errorf("failed to read --debounce flag: %w", err)
		}
	}

	if opts.Aggregator && len(opts.HandlerTypes) > 0 {
		return opts, fmt.Errorf("--handler-type only applies to structural analysis, not --agg")
	}
	return opts, nil
}

// Package cli wires the edtrack commands together.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"edtrack/internal/config"
	"edtrack/internal/log"
)

// BuildInfo is stamped into the binary at link time
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// options holds the persistent flags shared by every command
type options struct {
	configPath string
	journalDir string
	logLevel   string
	jsonOutput bool
}

// NewRootCmd builds the command tree
func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "edtrack",
		Short: "Track missions, cargo, mining and exploration from the game journal",
		Long: `edtrack follows the Elite Dangerous journal and keeps derived state:
massacre mission progress, the cargo hold, mining sessions, exploration
sales and unclaimed combat vouchers. State is always rebuilt from the
journal, so it survives restarts without a database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "edtrack.yaml", "config file")
	root.PersistentFlags().StringVar(&opts.journalDir, "dir", "", "journal directory (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newReplayCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd(opts, info))
	return root
}

// Execute runs the root command
func Execute(info BuildInfo) {
	if err := NewRootCmd(info).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.journalDir != "" {
		cfg.Journal.Dir = opts.journalDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	log.SetLevel(cfg.Logging.Level)
	return cfg, nil
}

// writeJSON prints v indented
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// regsort searches for the shortest branch-free program that sorts N
// values held in registers, using only compare, move and conditional-move
// instructions.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fortiblox/regsort/pkg/config"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

type rootOpts struct {
	cfgFile   string
	logLevel  string
	logFormat string
}

var rootOpt rootOpts

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Errorf("regsort: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "regsort",
		Short:         "Search for optimal branch-free register sorting programs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rootOpt.cfgFile, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&rootOpt.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&rootOpt.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newSearchCmd(), newTablesCmd(), newInspectCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regsort %s (%s)\n", Version, GitCommit)
		},
	}
}

// loadConfig reads the configuration file and applies the persistent log
// flags. Command flags are applied by the caller, which validates again.
func loadConfig() (config.File, error) {
	f, err := config.Load(rootOpt.cfgFile)
	if err != nil {
		return f, err
	}
	if rootOpt.logLevel != "" {
		f.Log.Level = rootOpt.logLevel
	}
	if rootOpt.logFormat != "" {
		f.Log.Format = rootOpt.logFormat
	}
	return f, f.Validate()
}

// setupLogger installs the configured formatter and level on the standard
// logger and returns it.
func setupLogger(f config.File) (*logrus.Logger, error) {
	log, err := f.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	std := logrus.StandardLogger()
	std.SetOutput(log.Out)
	std.SetLevel(log.GetLevel())
	std.SetFormatter(log.Formatter)
	return std, nil
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/config"
	"github.com/byteowlz/pagebridge/internal/logging"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitNetworkError = 1
	ExitProcessError = 2
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "pagebridge",
	Short: "Host extension-style content and popup contexts for a page",
	Long: `pagebridge loads a page into a content context, initializes its extraction
module, and answers extractContent requests from the popup, native messaging
hosts, or HTTP clients.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/pagebridge/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-content output")

	rootCmd.AddCommand(extractCmd, openCmd, serveCmd, configCmd)
	configCmd.AddCommand(configInitCmd)
}

// setup loads the config, creating defaults on first run, and builds the logger
func setup(logOpts logging.Options) (*config.Config, *zap.Logger, error) {
	if cfgFile == "" {
		if path, err := config.DefaultPath(); err == nil {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				if createErr := config.Default().CreateExampleConfig(path); createErr == nil && !quiet {
					fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
				}
			}
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, exitError(ExitConfigError, "failed to load config: %v", err)
	}

	logOpts.Level = cfg.Logging.Level
	logOpts.File = cfg.Logging.File
	logOpts.Verbose = logOpts.Verbose || verbose
	logOpts.Quiet = logOpts.Quiet || quiet
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, nil, exitError(ExitConfigError, "%v", err)
	}

	created, err := ensureExtension(cfg)
	if err != nil {
		return nil, nil, exitError(ExitFileIOError, "failed to write extension payloads: %v", err)
	}
	for _, path := range created {
		logger.Info("created default payload", zap.String("path", path))
	}

	if verbose {
		logger.Debug("configuration loaded",
			zap.String("extension_root", cfg.Extension.Root),
			zap.String("default_mode", cfg.Extraction.DefaultMode))
	}
	return cfg, logger, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the example config and default extension payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return exitError(ExitConfigError, "%v", err)
			}
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return exitError(ExitInvalidInput, "config file already exists: %s (use --force to overwrite)", path)
		}
		if err := config.Default().CreateExampleConfig(path); err != nil {
			return exitError(ExitFileIOError, "failed to write config: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

		cfg, err := config.Load(path)
		if err != nil {
			return exitError(ExitConfigError, "failed to load config: %v", err)
		}
		created, err := ensureExtension(cfg)
		if err != nil {
			return exitError(ExitFileIOError, "failed to write extension payloads: %v", err)
		}
		for _, p := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...any) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}

// littrfix patches rendered littr pages: it links hashtags, mentions and
// URLs in posts, inlines linked images and wires the page interactions the
// front end expects.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"littrfix/config"
	"littrfix/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	logLevel   string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "littrfix",
	Short: "Patch rendered littr pages",
	Long: `littrfix runs the littr front-end fixups against a rendered page.

Posts get links for #hashtags, @mentions and URLs, image links become inline
images, and the page's interactive parts (mode switch, share, tab scrolling,
login autofill, Ctrl+Enter submit) get their handlers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return config.FormatError(err)
		}

		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Print the default configuration",
	Long:  "Print the default configuration. Redirect it to ~/.config/littrfix/config.toml to customise.",
	Args:  cobra.NoArgs,
	// No config or logger needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), config.DefaultTOML())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/littrfix/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(fixCmd, watchCmd, shareCmd, modeCmd, initConfigCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

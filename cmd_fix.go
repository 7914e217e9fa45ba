package main

import (
	"littrfix/fixer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixJS        bool
	fixMaxCycles int
	fixOutput    string
)

var fixCmd = &cobra.Command{
	Use:   "fix <file|url>",
	Short: "Patch a page once and print it",
	Long: `Load a saved page or fetch a URL, run fixup cycles until the page is
stable and print the patched HTML.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixJS, "js", false, "render the page in Chrome before patching")
	fixCmd.Flags().IntVar(&fixMaxCycles, "max-cycles", 10, "upper bound on fixup cycles")
	fixCmd.Flags().StringVarP(&fixOutput, "output", "o", "", "write the page here instead of stdout")
}

func runFix(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, release, err := openPrefs(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	d, location, err := newFetcher(cfg, logger).Document(ctx, args[0], fixJS || cfg.Fetcher.JavaScript)
	if err != nil {
		return err
	}

	f, err := fixer.New(fixerOptions(cfg, location), fixer.Capabilities{Prefs: store}, logger)
	if err != nil {
		return err
	}
	ctrl := fixer.NewController(f, logger)
	defer ctrl.Close()

	ctrl.Load(ctx, d)
	cycles := fixUntilStable(ctx, ctrl, fixMaxCycles)
	logger.Debug("page patched", zap.String("src", args[0]), zap.Int("cycles", cycles))

	out, err := d.HTML()
	if err != nil {
		return err
	}
	return writeOutput(fixOutput, out)
}

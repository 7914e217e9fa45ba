package main

import (
	"os"

	"littrfix/share"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var shareJS bool

var shareCmd = &cobra.Command{
	Use:   "share <file|url>",
	Short: "Show a QR code for sharing a page",
	Long: `Build the share request for a page (canonical link, then location) and
render it as a QR code: as text on a terminal, otherwise as a PNG file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, location, err := newFetcher(cfg, logger).Document(ctx, args[0], shareJS || cfg.Fetcher.JavaScript)
		if err != nil {
			return err
		}
		if cfg.Fixer.Location != "" {
			location = cfg.Fixer.Location
		}

		sharer := share.NewQRSharer()
		sharer.Out = os.Stdout
		if cfg.Share.Dir != "" {
			sharer.Dir = cfg.Share.Dir
		}
		if cfg.Share.Size > 0 {
			sharer.Size = cfg.Share.Size
		}

		req := share.FromDocument(d, location)
		logger.Debug("sharing", zap.String("url", req.URL))
		return sharer.Share(ctx, req)
	},
}

func init() {
	shareCmd.Flags().BoolVar(&shareJS, "js", false, "render the page in Chrome first")
}

package main

import (
	"fmt"

	"littrfix/prefs"
	"littrfix/theme"

	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:       "mode [dark|light]",
	Short:     "Show or set the persisted colour mode",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, release, err := openPrefs(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer release()

		if len(args) == 1 {
			if err := setMode(cmd, store, args[0]); err != nil {
				return err
			}
		}

		light, err := prefs.Has(ctx, store, theme.LightModeKey)
		if err != nil {
			return err
		}
		mode := theme.Dark
		if light {
			mode = theme.Light
		}
		fmt.Fprintln(cmd.OutOrStdout(), mode)
		return nil
	},
}

func setMode(cmd *cobra.Command, store prefs.Store, mode string) error {
	if mode == theme.Light.String() {
		return store.Set(cmd.Context(), theme.LightModeKey, "1")
	}
	return store.Delete(cmd.Context(), theme.LightModeKey)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/herd/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify herd configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at <home>/config.yaml
Project-specific overrides can be placed in .herd.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			for _, key := range config.Keys() {
				value, _ := a.cfg.Value(key)
				fmt.Fprintf(out, "%s: %s\n", key, value)
			}
			fmt.Fprintf(out, "api key source: %s\n", config.GetAPIKeySource(a.cfg))
			return nil
		case 1:
			value, err := a.cfg.Value(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			if err := a.cfg.SetValue(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(a.cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			value, _ := a.cfg.Value(args[0])
			fmt.Fprintf(out, "Set %s = %s\n", args[0], value)
			return nil
		}
	}),
}

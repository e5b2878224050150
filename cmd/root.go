// Package cmd assembles the wavepulse command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wavepulse/wavepulse-go/cmd/capture"
	"github.com/wavepulse/wavepulse-go/cmd/validate"
	"github.com/wavepulse/wavepulse-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "wavepulse",
		Short:   "WavePulse radio livestream capture scheduler",
		Long:    "Records configured radio livestreams during their scheduled windows and publishes fixed-duration audio segments for downstream processing.",
		Version: settings.Version,
	}

	var configFile string
	setupFlags(rootCmd, settings, &configFile)

	rootCmd.AddCommand(
		capture.Command(settings),
		validate.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if configFile == "" {
			return nil
		}
		return conf.LoadFile(configFile, settings)
	}

	return rootCmd
}

// setupFlags binds the global flags. Defaults come from viper so the config
// file and environment apply, with command-line flags taking precedence.
// Each flag binds to its full settings key; a bare "assets" or "timezone"
// binding would shadow the assets.* and main.* sections when an explicit
// --config file is re-unmarshaled.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(configFile, "config", "", "Path to an explicit config file")
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Assets.Root, "assets", viper.GetString("assets.root"), "Path to the assets root directory")
	flags.StringVar(&settings.Main.Timezone, "timezone", viper.GetString("main.timezone"), "IANA timezone for window evaluation")

	bindings := map[string]string{
		"debug":         "debug",
		"assets.root":   "assets",
		"main.timezone": "timezone",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			cobra.CheckErr(err)
		}
	}
}

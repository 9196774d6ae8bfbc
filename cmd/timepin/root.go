package main

import (
	"github.com/spf13/cobra"

	"github.com/pboyd/timepin"
)

var (
	configPath string
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:          "timepin",
	Short:        "Hook a native setter behind a runtime name lookup and pin its argument",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (defaults to $"+timepin.ConfigEnv+")")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")

	rootCmd.AddCommand(attachCmd, symbolsCmd)
}

// loadConfig reads --config, or $TIMEPIN_CONFIG, and applies logging.
func loadConfig() (timepin.Config, error) {
	var (
		cfg timepin.Config
		err error
	)
	if configPath != "" {
		cfg, err = timepin.LoadConfig(configPath)
	} else {
		cfg, err = timepin.ConfigFromEnv()
	}
	if err != nil {
		return timepin.Config{}, err
	}

	if verbosity > 0 {
		cfg.Log.Verbosity = verbosity
	}
	cfg.Log.Apply()
	return cfg, nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/dfa/inspect"
)

// initCmd: dfa init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := initConfigurationFile(cfgFile)
		if err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		fmt.Printf("Configuration file created/updated: %s\n", path)
	},
}

// initConfigurationFile writes the default rules and limits to
// configurationPath, or to the default file when it is empty.
func initConfigurationFile(configurationPath string) (string, error) {
	if configurationPath == "" {
		configurationPath = inspect.DefaultConfigFile
	}

	d, err := yaml.Marshal(inspect.DefaultConfig())
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(configurationPath, d, 0o644); err != nil {
		return "", err
	}
	return configurationPath, nil
}

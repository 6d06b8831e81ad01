// Package cmd contains the command line applications for the project.
package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediarelay/pkg/configs"
)

var (
	// configPath 配置文件或所在目录.
	configPath string
	// debug 覆盖 server.debug.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "mediarelay",
		Short: "A time-limited byte-range media streaming relay",
		Long: `mediarelay decodes a time-limited token into an upstream media URL and relays
the requested byte range to the client, so browsers can seek through remote video
without exposing the upstream address.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode (overrides server.debug)")

	registerServeCommands()
	registerConfigsCommands()
	registerTokenCommands()
	registerVersionCommands()
}

// applyDebugFlag 通过环境变量让 --debug 覆盖配置文件中的 server.debug.
func applyDebugFlag() error {
	if !debug {
		return nil
	}

	return os.Setenv(configs.EnvPrefix+"_SERVER_DEBUG", strconv.FormatBool(debug))
}

// loadConfig 加载配置.
func loadConfig() error {
	if err := applyDebugFlag(); err != nil {
		return err
	}

	return configs.InitConfig(configPath)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

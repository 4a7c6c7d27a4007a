package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/espforge/espforge/config"
)

var (
	// Version is the application version
	Version = "dev"

	// cfgFile is the path to the config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "espforge",
		Short: "espforge - ESP32 firmware image composer",
		Long: `espforge packages the binaries produced by an ESP32 build into
flashable firmware images. It detects the chip variant from the built
bootloader, merges bootloader, partition table, boot selector and
application into a single factory image, and keeps the version-keyed
release tree those images live in.`,
	}
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext executes the root command with a context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is espforge.toml in the working directory)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}

	switch {
	case viper.GetBool("verbose"):
		log.SetLevel(log.DebugLevel)
	default:
		if level, err := log.ParseLevel(viper.GetString("logging.level")); err == nil {
			log.SetLevel(level)
		}
	}
}

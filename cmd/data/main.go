package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dataassist/internal/config"
	"dataassist/internal/logging"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	jsonOutput bool
	quietFlag  bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "data",
	Short: "data - personal productivity assistant",
	Long:  "DATA: chat over your tasks, email, and calendar with a privacy filter in front of the model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config commands manage the file themselves.
		switch cmd.Name() {
		case "help", "version", "init":
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		return logging.Initialize(cfg.Logging.Dir, logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("data version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".data/config.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

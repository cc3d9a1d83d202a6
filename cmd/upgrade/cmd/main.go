package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-upgrade/pkg/config"
	"github.com/redbco/redb-upgrade/pkg/logger"
)

var (
	configFile string
	cfg        *config.Config
	log        *logger.Logger

	// Build information variables
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("reDB Upgrade %s\n", Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redb-upgrade",
	Short: "Plan schema upgrades",
	Long: "Computes the ordered sequence of create, remove, move, property and data actions that upgrades " +
		"a source schema model into a target schema model.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// initialize loads the configuration and sets up the logger
func initialize() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	log = logger.New("upgrade", Version)
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if cfg.Logging.Color != nil {
		log.SetColor(*cfg.Logging.Color)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	setupCommands()
}

func main() {
	Execute()
}

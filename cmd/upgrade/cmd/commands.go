package main

import (
	"github.com/spf13/cobra"

	"github.com/redbco/redb-upgrade/cmd/upgrade/internal/planning"
)

// setupCommands initializes all commands and their relationships
func setupCommands() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

var opts planning.Options

// addModelFlags registers the input file flags shared by every planning command
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opts.SourcePath, "source", "", "Source model file (YAML)")
	cmd.Flags().StringVar(&opts.TargetPath, "target", "", "Target model file (YAML)")
	cmd.Flags().StringVar(&opts.HintsPath, "hints", "", "Hint file (YAML)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
}

func runner(cmd *cobra.Command) *planning.Runner {
	return planning.NewRunner(cfg, log, cmd.OutOrStdout())
}

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the upgrade sequence",
	Long:  `Compare the source and target models and print the validated upgrade sequence, grouped by stage and node (text) or flat (json).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner(cmd).Plan(opts)
	},
}

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Print the difference between two models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner(cmd).Diff(opts)
	},
}

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Replay the upgrade sequence and check the result",
	Long:  `Plan the upgrade, replay the flat sequence on a fresh copy of the source model and compare the result with the target. Exits non-zero when a difference remains.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner(cmd).Validate(opts)
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo()
	},
}

func init() {
	addModelFlags(planCmd)
	planCmd.Flags().StringVar(&opts.Format, "format", "", "Output format: text or json (default from config)")

	addModelFlags(diffCmd)
	addModelFlags(validateCmd)
}

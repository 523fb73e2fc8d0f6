package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"provkit/internal/app"
	"provkit/internal/errors"
)

// version is set at build time via ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "provkit",
	Short:   "ProvKit - Remote server provisioning engine",
	Version: version,
	Long: `ProvKit executes provisioning plans against remote servers over SSH,
WinRM, Ansible, containers, and cloud session transports, with pooled
connections and chainable command flows.`,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Run a provisioning plan",
	Long: `Apply parses a plan YAML file, acquires the declared connections from
the pool, and runs every flow against its target in the declared order.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			fmt.Fprintln(os.Stderr, "Error: --file flag is required")
			os.Exit(1)
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if err := app.Apply(file, dryRun); err != nil {
			errors.HandleError(err)
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a provisioning plan without running it",
	Long: `Validate parses a plan YAML file and compiles every flow step through
the recipe registry, reporting configuration problems without touching
any target host.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			fmt.Fprintln(os.Stderr, "Error: --file flag is required")
			os.Exit(1)
		}

		if err := app.Validate(file); err != nil {
			errors.HandleError(err)
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		fmt.Println("Plan is valid.")
	},
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Path to the plan YAML file (required)")
	applyCmd.Flags().Bool("dry-run", false, "Print the steps that would run without executing any command")
	if err := applyCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for apply command", "error", err)
	}
	rootCmd.AddCommand(applyCmd)

	validateCmd.Flags().StringP("file", "f", "", "Path to the plan YAML file (required)")
	if err := validateCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for validate command", "error", err)
	}
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cli provides the command-line interface for Phasecalc
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/config"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

var (
	cfgFile     string
	projectRoot string
	verbosity   string
	version     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "phasecalc",
	Short: "Batch phase-diagram calculations over composition sweeps",
	Long: `⚗️ Phasecalc - Phase diagrams for multicomponent alloys, one system at a time

Phasecalc drives a Thermo-Calc engine through a mesh of alloy compositions.
For every constant concentration it sweeps the two changing elements across
the grid, calculates an isoplethal phase diagram per interior point, and
saves each result as soon as it lands.`,

	Run: func(cmd *cobra.Command, args []string) {
		// Check if version flag is set
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("⚗️ Phasecalc v%s\n", version)
			return
		}
		// If no subcommand, show help
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	// Set up config initialization
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: phasecalc.config.json)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	// Add version flag
	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newMeshCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in project root
		viper.AddConfigPath(projectRoot)
		viper.SetConfigName("phasecalc.config")
		viper.SetConfigType("json")
	}

	// Read in environment variables
	viper.SetEnvPrefix("PHASECALC")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		if verbosity == "debug" {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// Helper functions

func printSuccess(message string) {
	fmt.Printf("⚗️ %s %s\n", color.GreenString("[Phasecalc]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "⚗️ %s %s\n", color.RedString("[Phasecalc]"), message)
}

func printInfo(message string) {
	fmt.Printf("⚗️ %s %s\n", color.CyanString("[Phasecalc]"), message)
}

func printWarning(message string) {
	fmt.Printf("⚗️ %s %s\n", color.YellowString("[Phasecalc]"), message)
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if found, err := config.FindConfig(projectRoot); err == nil {
		return found
	}
	return filepath.Join(projectRoot, "phasecalc.config.json")
}

func loadProjectConfig(path string) (*types.ProjectConfig, error) {
	manager := config.NewManager(logger.CreateLogger("", "error"))
	return manager.LoadConfig(path)
}

// createRunLogger builds the sweep logger from the logging config. The
// verbosity flag wins when it is set to anything but its default.
func createRunLogger(cfg *types.ProjectConfig) logger.Logger {
	logFile := ""
	level := verbosity
	if cfg.Logging != nil {
		logFile = cfg.Logging.File
		if verbosity == "info" && cfg.Logging.Level != "" {
			level = string(cfg.Logging.Level)
		}
	}
	return logger.CreateLogger(logFile, level)
}

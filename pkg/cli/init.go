package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/config"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

func newInitCmd() *cobra.Command {
	var force bool
	var simulated bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Phasecalc configuration",
		Long: `Create a configuration file for the canonical five-element sweep:
Al and Cr changing, Co, Fe and Ni held at each constant concentration.
Edit the file afterwards to change elements, concentrations or the engine.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force, simulated)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	cmd.Flags().BoolVar(&simulated, "simulated", false, "configure the simulated engine instead of a gateway")

	return cmd
}

func runInit(force, simulated bool) error {
	configPath := getConfigPath()

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration already exists. Use --force to overwrite")
	}

	manager := config.NewManager(logger.CreateLogger("", verbosity))
	cfg := manager.GetDefaultConfig()

	if simulated {
		cfg.Engine.Mode = types.EngineModeSimulated
		printInfo("Engine mode set to simulated; runs will synthesize diagrams")
	}

	if err := manager.SaveConfig(cfg, configPath); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("Created configuration at %s", configPath))
	printInfo("Edit the configuration to customize elements, concentrations and the engine")

	return nil
}

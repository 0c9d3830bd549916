package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/mesh"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

func newMeshCmd() *cobra.Command {
	var constant float64
	var check bool

	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Inspect the composition mesh",
		Long: `Print the composition grid for one constant concentration, or check that
every configured constant produces a valid mesh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMesh(constant, check, cmd.Flags().Changed("constant"))
		},
	}

	cmd.Flags().Float64VarP(&constant, "constant", "c", 0, "constant concentration to print (default: first configured)")
	cmd.Flags().BoolVar(&check, "check", false, "validate every configured constant concentration")

	return cmd
}

func newResultsCmd() *cobra.Command {
	var jsonOut bool
	var follow bool

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List stored calculation results",
		Long: `List the phase-diagram results in the output directory. With --follow,
keep watching the directory and report new results as they are saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(jsonOut, follow)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print full results as JSON")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "watch the output directory for new results")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show run and output-directory status",
		Long:  `Report whether a run is in progress and how many results are stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long:  `Check that the configuration file is valid and every constant concentration yields a usable mesh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Phasecalc",
		Long:  `Print the version number of Phasecalc`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("⚗️ Phasecalc v%s\n", version)
		},
	}
}

// Implementation functions

func runMesh(constant float64, check, constantSet bool) error {
	cfg, err := loadProjectConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if check {
		for _, c := range cfg.ConstantConcentrations {
			spec := meshSpecFor(cfg, c)
			if err := spec.Validate(); err != nil {
				printError(fmt.Sprintf("constant %.3f: %v", c, err))
				return err
			}
			printSuccess(fmt.Sprintf("constant %.3f: sweep 0 to %.3f over %d points",
				c, spec.SweepMax(), spec.Points))
		}
		return nil
	}

	if !constantSet {
		if len(cfg.ConstantConcentrations) == 0 {
			return fmt.Errorf("no constant concentrations configured")
		}
		constant = cfg.ConstantConcentrations[0]
	}

	grid, err := meshSpecFor(cfg, constant).Generate()
	if err != nil {
		return err
	}

	printInfo(fmt.Sprintf("Mesh for constant concentration %.3f (%d points)", constant, grid.Points()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "POINT"
	for _, element := range grid.Elements() {
		header += "\t" + element
	}
	fmt.Fprintln(w, header+"\tSUM")

	for col := 0; col < grid.Points(); col++ {
		row := fmt.Sprintf("%d", col)
		if col == 0 || col == grid.Points()-1 {
			row += "*"
		}
		for r := 0; r < grid.Rows(); r++ {
			row += fmt.Sprintf("\t%.3f", grid.At(r, col))
		}
		fmt.Fprintf(w, "%s\t%.3f\n", row, grid.ColumnSum(col))
	}
	w.Flush()

	printInfo("Points marked * are sweep endpoints and are skipped during runs")
	return nil
}

func runResults(jsonOut, follow bool) error {
	cfg, err := loadProjectConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.CreateLogger("", verbosity)
	store := results.NewStore(cfg.GetOutputDir(), log)

	if jsonOut {
		all, err := store.LoadAll(context.Background())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	infos, err := store.Discover()
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		printWarning(fmt.Sprintf("No results in %s. Run 'phasecalc run' to calculate.", cfg.GetOutputDir()))
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tCOMPOSITION\tSIZE\tMODIFIED")
		fmt.Fprintln(w, "----\t-----------\t----\t--------")

		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				info.Name,
				results.FormatComposition(info.Composition),
				info.Size,
				info.ModTime.Format("2006-01-02 15:04:05"),
			)
		}
		w.Flush()

		printInfo(fmt.Sprintf("%d results in %s", len(infos), cfg.GetOutputDir()))
	}

	if !follow {
		return nil
	}

	// Keep watching the output directory until interrupted
	follower := results.NewFollower(store, log)
	follower.AddCallback(func(info results.ResultInfo, result *results.Result, err error) {
		if err != nil {
			printError(fmt.Sprintf("Result watch error: %v", err))
			return
		}
		printSuccess(fmt.Sprintf("New result: %s (%d phase groups)", info.Name, len(result.Data.Groups)))
	})

	if err := follower.Start(); err != nil {
		return fmt.Errorf("failed to watch output directory: %w", err)
	}
	defer follower.Stop()

	printInfo("Watching for new results... (Ctrl-C to stop)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	return nil
}

func runStatus() error {
	cfg, err := loadProjectConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	outputDir := cfg.GetOutputDir()

	info, err := results.InspectRunLock(outputDir)
	switch {
	case err != nil:
		printWarning(fmt.Sprintf("Could not read run lock: %v", err))
	case info == nil:
		printInfo("No run in progress")
	case info.IsLive():
		printWarning(fmt.Sprintf("Run %s in progress (pid %d, started %s)",
			info.RunID, info.ProcessID, info.StartedAt.Format("15:04:05")))
	default:
		printWarning(fmt.Sprintf("Stale run lock from pid %d (last heartbeat %s); the next run will replace it",
			info.ProcessID, info.Heartbeat.Format("15:04:05")))
	}

	log := logger.CreateLogger("", "error")
	store := results.NewStore(outputDir, log)
	infos, err := store.Discover()
	if err != nil {
		return err
	}

	total := (cfg.GetGridPoints() - 2) * len(cfg.ConstantConcentrations)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Output directory\t%s\n", outputDir)
	fmt.Fprintf(w, "Stored results\t%d of %d systems\n", len(infos), total)
	fmt.Fprintf(w, "Engine mode\t%s\n", engineModeLabel(cfg))
	fmt.Fprintf(w, "Database\t%s\n", cfg.GetDatabase())
	w.Flush()

	return nil
}

func runValidate() error {
	configPath := getConfigPath()

	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		printError(fmt.Sprintf("Configuration is invalid: %v", err))
		return err
	}

	printSuccess("Configuration is valid")

	perSweep := cfg.GetGridPoints() - 2
	tRange := cfg.GetTemperatureRange()
	printInfo(fmt.Sprintf("%d elements, %d constant concentrations, %d systems per sweep (%d total)",
		len(cfg.Elements), len(cfg.ConstantConcentrations), perSweep,
		perSweep*len(cfg.ConstantConcentrations)))
	printInfo(fmt.Sprintf("Temperature %g-%g K, database %s, timeout %s",
		tRange.Min, tRange.Max, cfg.GetDatabase(), cfg.GetTimeout()))

	return nil
}

// Helpers shared by the informational commands

func meshSpecFor(cfg *types.ProjectConfig, constant float64) mesh.Spec {
	return mesh.Spec{
		Elements:              cfg.Elements,
		Points:                cfg.GetGridPoints(),
		ChangingIndices:       cfg.ChangingElements,
		ConstantIndices:       cfg.ConstantElements,
		ConstantConcentration: constant,
	}
}

func engineModeLabel(cfg *types.ProjectConfig) string {
	if cfg.Engine.Mode == "" {
		return string(types.EngineModeGateway) + " (default)"
	}
	return string(cfg.Engine.Mode)
}

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/calculator"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

func newRunCmd() *cobra.Command {
	var dryRun bool
	var engineMode string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the phase-diagram sweep",
		Long: `Run the full composition sweep. For each constant concentration the mesh
is generated and every interior grid point becomes one engine calculation;
the two endpoint columns collapse the swept axis and are always skipped.

Systems the engine reports as unrecoverable are logged and skipped; the run
continues with the next system. Interrupt with Ctrl-C to stop after the
system in flight.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(dryRun, engineMode)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the systems a run would calculate, without calculating")
	cmd.Flags().StringVar(&engineMode, "engine", "", "override engine mode (gateway, simulated)")

	return cmd
}

func runSweep(dryRun bool, engineMode string) error {
	configPath := getConfigPath()
	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if engineMode != "" {
		cfg.Engine.Mode = types.EngineMode(engineMode)
	}

	log := createRunLogger(cfg)

	// Build dependencies and the calculator
	factory := calculator.NewDependencyFactory(cfg, log)
	deps := factory.CreateDefaults()
	c := calculator.New(cfg, log, deps)

	if dryRun {
		return printPlan(c)
	}

	printInfo(fmt.Sprintf("Starting Phasecalc v%s", version))
	printInfo(fmt.Sprintf("Engine %s, database %s, output %s",
		deps.Engine.Mode(), cfg.GetDatabase(), cfg.GetOutputDir()))

	summary, err := c.Run()
	if err != nil {
		if summary != nil && summary.Attempted > 0 {
			printError(fmt.Sprintf("Run aborted after %d systems", summary.Attempted))
		}
		return err
	}

	if len(summary.Failures) > 0 {
		printWarning(fmt.Sprintf("%d systems could not be calculated:", len(summary.Failures)))
		for _, failure := range summary.Failures {
			fmt.Printf("  ✗ #%d %s\n", failure.SystemNumber, results.FormatComposition(failure.Composition))
		}
	}

	if summary.Interrupted {
		printWarning(fmt.Sprintf("Run interrupted: %d calculated, %d failed, %d systems left",
			summary.Succeeded, summary.Failed, countPlanned(c)-summary.Attempted))
		return nil
	}

	printSuccess(fmt.Sprintf("Run complete: %d calculated, %d failed in %s",
		summary.Succeeded, summary.Failed, summary.Elapsed.Round(time.Second)))
	return nil
}

func printPlan(c *calculator.Calculator) error {
	plan, err := c.Plan()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCONSTANT\tCOMPOSITION\tAXIS MAX")
	fmt.Fprintln(w, "-\t--------\t-----------\t--------")

	for _, point := range plan {
		fmt.Fprintf(w, "%d\t%.3f\t%s\t%.3f\n",
			point.SystemNumber,
			point.Constant,
			results.FormatComposition(point.Composition),
			point.AxisMax,
		)
	}
	w.Flush()

	printInfo(fmt.Sprintf("%d systems planned", len(plan)))
	return nil
}

func countPlanned(c *calculator.Calculator) int {
	plan, err := c.Plan()
	if err != nil {
		return 0
	}
	return len(plan)
}

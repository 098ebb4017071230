package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/molcom-sim/molcom-sim/sim"
	"github.com/molcom-sim/molcom-sim/sim/record"
)

var (
	// CLI flags shared by the subcommands
	configPath string // Path to the scenario YAML file
	seed       int64  // Master seed for all RNG streams
	logLevel   string // Log verbosity level
	outputPath string // Optional CSV destination for observations

	// Record stream toggles
	recordAbsorptions bool
	recordReactions   bool
	recordTransfers   bool
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "molcom-sim",
	Short: "Hybrid stochastic reaction-diffusion simulator for molecular communication",
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadScenario() *sim.Scenario {
	if configPath == "" {
		logrus.Fatal("Scenario file not provided. Exiting simulation.")
	}
	sc, err := sim.LoadScenario(configPath)
	if err != nil {
		logrus.Fatalf("Could not load scenario: %v", err)
	}
	return sc
}

// runCmd executes the simulation using the scenario from --config
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reaction-diffusion simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc := loadScenario()

		rec := record.NewRecorder(record.Config{
			Absorptions:  recordAbsorptions,
			Reactions:    recordReactions,
			Transfers:    recordTransfers,
			Observations: true,
		})

		logrus.Infof("Starting simulation: %d regions, %d species, horizon=%gs, seed=%d",
			len(sc.Regions), len(sc.Species), sc.Environment.Horizon, seed)
		startTime := time.Now()

		s, err := sc.Build(seed, rec)
		if err != nil {
			logrus.Fatalf("Could not build simulation: %v", err)
		}
		s.Run()
		s.Metrics.Print(s.Clock)

		if outputPath != "" {
			if err := writeObservations(outputPath, sc, rec.Observations); err != nil {
				logrus.Fatalf("Could not write observations: %v", err)
			}
			logrus.Infof("Wrote %d observations to %s", len(rec.Observations), outputPath)
		}

		logrus.Infof("Simulation complete in %v: %d observations collected.",
			time.Since(startTime), len(rec.Observations))
	},
}

// writeObservations exports the observation stream as CSV: one row per tick,
// one column per species.
func writeObservations(path string, sc *sim.Scenario, obs []record.Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time", "actor"}
	for _, sp := range sc.Species {
		header = append(header, sp.Label)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, o := range obs {
		row := []string{fmt.Sprintf("%g", o.Time), o.Actor}
		for _, n := range o.Counts {
			row = append(row, strconv.Itoa(n))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// validateCmd runs setup-time validation only: scenario structure, region
// hierarchy, and reaction table compilation.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario without running it",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc := loadScenario()

		if err := sc.Validate(); err != nil {
			logrus.Fatalf("Scenario invalid: %v", err)
		}
		arena, err := sc.BuildArena()
		if err != nil {
			logrus.Fatalf("Region hierarchy invalid: %v", err)
		}
		if err := sim.CompileReactions(arena, sc.ReactionSpecs()); err != nil {
			logrus.Fatalf("Reaction definitions invalid: %v", err)
		}
		logrus.Infof("Scenario valid: %d regions, %d species, %d reactions.",
			len(sc.Regions), len(sc.Species), len(sc.Reactions))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the scenario YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for all random streams")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write the observation stream to a CSV file")
	runCmd.Flags().BoolVar(&recordAbsorptions, "record-absorptions", false, "Collect per-molecule absorption records")
	runCmd.Flags().BoolVar(&recordReactions, "record-reactions", false, "Collect per-firing reaction records")
	runCmd.Flags().BoolVar(&recordTransfers, "record-transfers", false, "Collect region-crossing records")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

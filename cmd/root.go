package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kcarline/hammock/model"
)

var verbose bool
var modelName string
var dataFile string
var numChains int
var randomSeed int64
var initRadius float64
var initFiles []string
var numWarmup int
var numSamples int
var thin int
var refresh int
var metricName string
var metricFiles []string
var stepsize float64
var stepsizeJitter float64
var maxDepth int
var outputDir string
var saveStartParams bool
var saveWarmup bool
var saveDiagnostics bool
var saveMetric bool
var adaptDelta float64
var adaptGamma float64
var adaptKappa float64
var adaptT0 float64
var initBuffer int
var termBuffer int
var adaptWindow int
var parallelChains bool
var monitorAddr string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hammock",
	Short: "Adaptive HMC sampling for registered models",
	Long: `hammock runs adaptive Hamiltonian Monte Carlo over one or more chains.
Among other features:

  - Unit, diagonal, and dense inverse metrics with warmup adaptation
  - Dual-averaging stepsize tuning toward a target acceptance statistic
  - Per-chain CSV/JSON output files (draws, start params, gradients, metric)
  - JSON data contexts for model data, initial values, and precomputed metrics
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSample()
	},
}

// modelsCmd lists every model the binary can sample from.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the registered model names",
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range model.Names() {
			fmt.Println(n)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")

	rootCmd.Flags().StringVarP(&modelName, "model", "m", "", "Name of the model to sample (see the models subcommand)")
	rootCmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON data file for the model")
	rootCmd.Flags().IntVarP(&numChains, "chains", "c", 1, "Number of chains to run")
	rootCmd.Flags().Int64VarP(&randomSeed, "seed", "r", 1, "Random seed (each chain derives its own stream)")
	rootCmd.Flags().Float64Var(&initRadius, "init-radius", 2.0, "Uniform(-R,R) initialization radius")
	rootCmd.Flags().StringSliceVar(&initFiles, "init", nil, "JSON initial-value files (one shared or one per chain)")

	rootCmd.Flags().IntVar(&numWarmup, "warmup", 1000, "Warmup (adaptation) iterations per chain")
	rootCmd.Flags().IntVar(&numSamples, "samples", 1000, "Sampling iterations per chain")
	rootCmd.Flags().IntVar(&thin, "thin", 1, "Keep every Nth draw")
	rootCmd.Flags().IntVar(&refresh, "refresh", 100, "Progress logging interval in iterations (0 disables)")

	rootCmd.Flags().StringVar(&metricName, "metric", "diag_e", "Metric kind: unit_e, diag_e, or dense_e")
	rootCmd.Flags().StringSliceVar(&metricFiles, "metric-file", nil, "JSON precomputed inverse metric files (one shared or one per chain)")
	rootCmd.Flags().Float64Var(&stepsize, "stepsize", 1.0, "Initial leapfrog stepsize")
	rootCmd.Flags().Float64Var(&stepsizeJitter, "stepsize-jitter", 0.0, "Per-transition stepsize jitter fraction in [0,1]")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", 10, "Trajectory length cap of 2^depth leapfrog steps")

	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default is a fresh temp directory)")
	rootCmd.Flags().BoolVar(&saveStartParams, "save-start-params", false, "Write each chain's starting point to a CSV file")
	rootCmd.Flags().BoolVar(&saveWarmup, "save-warmup", false, "Include warmup draws in the sample output")
	rootCmd.Flags().BoolVar(&saveDiagnostics, "save-diagnostics", false, "Write per-draw gradients to a CSV file")
	rootCmd.Flags().BoolVar(&saveMetric, "save-metric", false, "Write each chain's adapted metric to a JSON file")

	rootCmd.Flags().Float64Var(&adaptDelta, "delta", 0.8, "Target acceptance statistic for stepsize adaptation")
	rootCmd.Flags().Float64Var(&adaptGamma, "gamma", 0.05, "Dual-averaging regularization scale")
	rootCmd.Flags().Float64Var(&adaptKappa, "kappa", 0.75, "Dual-averaging relaxation exponent")
	rootCmd.Flags().Float64Var(&adaptT0, "t0", 10.0, "Dual-averaging iteration offset")
	rootCmd.Flags().IntVar(&initBuffer, "init-buffer", 75, "Warmup iterations before metric adaptation starts")
	rootCmd.Flags().IntVar(&termBuffer, "term-buffer", 50, "Warmup iterations reserved for final stepsize tuning")
	rootCmd.Flags().IntVar(&adaptWindow, "window", 25, "Starting width of the metric adaptation window")

	rootCmd.Flags().BoolVar(&parallelChains, "parallel", false, "Run chains concurrently instead of sequentially")
	rootCmd.Flags().StringVar(&monitorAddr, "monitor", "", "Serve expvar progress over HTTP at this address (e.g. :8000)")

	rootCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

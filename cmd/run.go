package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/metric"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/sampler"
	"github.com/kcarline/hammock/writer"
)

// runSample translates the flag state into a run configuration and drives the
// chains to completion. Ctrl-C interrupts the run cleanly between transitions.
func runSample() error {
	log := logging.New(verbose)
	defer log.Sync()

	kind, err := metric.ParseKind(metricName)
	if err != nil {
		return err
	}

	args := sampler.Args{
		NumChains:       numChains,
		RandomSeed:      randomSeed,
		InitRadius:      initRadius,
		DataFile:        dataFile,
		InitFiles:       initFiles,
		NumWarmup:       numWarmup,
		NumSamples:      numSamples,
		Thin:            thin,
		Refresh:         refresh,
		Metric:          kind,
		MetricFiles:     metricFiles,
		Stepsize:        stepsize,
		StepsizeJitter:  stepsizeJitter,
		MaxDepth:        maxDepth,
		OutputDir:       outputDir,
		SaveStartParams: saveStartParams,
		SaveWarmup:      saveWarmup,
		SaveDiagnostics: saveDiagnostics,
		SaveMetric:      saveMetric,
		Delta:           adaptDelta,
		Gamma:           adaptGamma,
		Kappa:           adaptKappa,
		T0:              adaptT0,
		InitBuffer:      initBuffer,
		TermBuffer:      termBuffer,
		Window:          adaptWindow,
		ParallelChains:  parallelChains,
	}
	if err := args.Validate(); err != nil {
		return err
	}

	dataCtx, err := data.FromFile(dataFile)
	if err != nil {
		return err
	}
	m, err := model.Lookup(modelName, dataCtx)
	if err != nil {
		return err
	}

	dir := args.OutputDir
	if dir == "" {
		if dir, err = writer.TempOutputDir(); err != nil {
			return err
		}
	}
	log.Infof("Model %s: %d chains, %d warmup + %d samples, metric %s",
		m.Name(), args.NumChains, args.NumWarmup, args.NumSamples, args.Metric)
	log.Infof("Writing output to %s", dir)

	sets, err := writer.NewChainSets(writer.Options{
		Dir:             dir,
		ModelName:       m.Name(),
		NumChains:       args.NumChains,
		SaveStartParams: args.SaveStartParams,
		SaveDiagnostics: args.SaveDiagnostics,
		SaveMetric:      args.SaveMetric,
	})
	if err != nil {
		return err
	}

	if monitorAddr != "" {
		mon := &monitor{addr: monitorAddr}
		if err := mon.Start(); err != nil {
			return err
		}
		defer mon.Stop()

		mon.Chains.Set(int64(args.NumChains))
		mon.Warmup.Set(int64(args.NumWarmup))
		mon.Samples.Set(int64(args.NumSamples))
		for i := range sets {
			sets[i].Samples = writer.NewCounting(sets[i].Samples, mon.DrawsWritten)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := sampler.RunChains(ctx, m, &args, sets, log)
	elapsed := time.Since(start)

	for i := range sets {
		if cerr := sets[i].Close(); cerr != nil && runErr == nil {
			runErr = cerr
		}
	}
	if runErr != nil {
		return runErr
	}

	log.Infof("Run finished in %v, output in %s", elapsed, dir)
	return nil
}

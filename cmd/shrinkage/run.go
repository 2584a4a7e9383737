package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aouyang1/go-shrinkage"
	"github.com/aouyang1/go-shrinkage/config"
	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var ErrNoConfig = errors.New("no suite configuration provided")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every experiment of a suite and write the reports",
		Args:  cobra.NoArgs,
		RunE:  runSuite,
	}
	cmd.Flags().String("config", "", "path to the suite yaml")
	cmd.Flags().String("out", "", "output directory, overrides the suite output")
	cmd.Flags().Int("parallel", 0, "experiments run at once, overrides the suite parallelism")
	cmd.Flags().Uint64("seed", 0, "seed of experiments without their own, overrides the suite seed")
	cmd.Flags().String("oracle", "", "posterior oracle (laplace, rscript), overrides the suite oracle")
	cmd.Flags().String("cpuprofile", "", "write a cpu profile into this directory")
	return cmd
}

func runSuite(cmd *cobra.Command, args []string) error {
	v, err := bindFlags(cmd.Flags())
	if err != nil {
		return err
	}
	if dir := v.GetString("cpuprofile"); dir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
	}

	path := v.GetString("config")
	if path == "" {
		return ErrNoConfig
	}
	suite, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("unable to load suite %s, %w", path, err)
	}
	if out := v.GetString("out"); out != "" {
		suite.Output = out
	}
	if parallel := v.GetInt("parallel"); parallel > 0 {
		suite.Parallel = parallel
	}
	if seed := v.GetUint64("seed"); seed != 0 {
		suite.Seed = seed
	}
	if o := v.GetString("oracle"); o != "" {
		suite.Oracle = o
	}
	if err := suite.Validate(); err != nil {
		return err
	}
	if suite.Output == "" {
		suite.Output = "."
	}

	experiments, err := buildExperiments(suite)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	reports, runErr := shrinkage.RunSuite(ctx, experiments, suite.Parallel)

	for _, report := range reports {
		if report == nil {
			continue
		}
		dir := filepath.Join(suite.Output, report.Name)
		if err := report.Save(dir, suite.Diagnostics.Bins); err != nil {
			return fmt.Errorf("unable to save %s, %w", report.Name, err)
		}
		if err := report.TablePrint(cmd.OutOrStdout(), "", "  "); err != nil {
			return err
		}
		slog.Info("saved report", "experiment", report.Name, "run_id", report.RunID, "dir", dir)
	}
	return runErr
}

func buildExperiments(suite *config.Suite) ([]*shrinkage.Experiment, error) {
	o, err := newOracle(suite.Oracle)
	if err != nil {
		return nil, err
	}
	loader := dataset.NewCSVLoader(dataset.NewLocatorFetcher(suite.FetchOptions()))

	experiments := make([]*shrinkage.Experiment, 0, len(suite.Experiments))
	for _, ec := range suite.Experiments {
		opt := &shrinkage.Options{
			Name:          ec.Name,
			Source:        ec.Source,
			Preprocess:    ec.PreprocessOptions(),
			Priors:        ec.Priors,
			Sampler:       suite.Sampler,
			Seed:          suite.SeedFor(ec),
			Tau:           ec.Tau,
			AUCFromScores: ec.AUCFromScores,
			Diagnostics:   suite.Diagnostics,
		}
		e, err := shrinkage.New(opt, loader, o)
		if err != nil {
			return nil, fmt.Errorf("experiment %s, %w", ec.Name, err)
		}
		experiments = append(experiments, e)
	}
	return experiments, nil
}

func newOracle(name string) (oracle.Oracle, error) {
	switch name {
	case config.OracleLaplace:
		return oracle.NewLaplaceOracle(nil)
	case config.OracleRscript:
		return oracle.NewRscriptOracle(nil)
	default:
		return nil, fmt.Errorf("%q, %w", name, config.ErrUnknownOracle)
	}
}

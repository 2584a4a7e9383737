package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"github.com/spf13/cobra"
)

// Output file names written by the simulate command
const (
	FeaturesFile = "features.csv"
	ResponseFile = "response.csv"
	idColumn     = "sample"
)

// countScale shrinks the log scale response so round(exp(y)) stays in a realistic count range
const countScale = 0.3

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic feature and response table pair",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	defaults := dataset.NewDefaultSimulateOptions()
	cmd.Flags().String("out", ".", "output directory")
	cmd.Flags().Int("samples", defaults.Samples, "number of samples")
	cmd.Flags().Int("features", defaults.Features, "number of features")
	cmd.Flags().Int("informative", defaults.Informative, "number of features with a non-zero coefficient")
	cmd.Flags().Float64("noise", defaults.Noise, "standard deviation of the response noise")
	cmd.Flags().String("outcome", string(preprocess.Continuous), "outcome type the response is generated for")
	cmd.Flags().Uint64("seed", defaults.Seed, "random seed")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	v, err := bindFlags(cmd.Flags())
	if err != nil {
		return err
	}
	outcome := preprocess.Outcome(v.GetString("outcome"))
	if !outcome.Valid() {
		return fmt.Errorf("%q, %w", outcome, preprocess.ErrUnknownOutcome)
	}

	opt := dataset.NewDefaultSimulateOptions()
	opt.Samples = v.GetInt("samples")
	opt.Features = v.GetInt("features")
	opt.Informative = min(v.GetInt("informative"), opt.Features)
	opt.Noise = v.GetFloat64("noise")
	opt.Seed = v.GetUint64("seed")

	features, response, beta, err := dataset.Simulate(opt)
	if err != nil {
		return err
	}
	if outcome == preprocess.Count {
		if response, err = scaleResponse(response, countScale); err != nil {
			return err
		}
	}

	out := v.GetString("out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	if err := writeTable(filepath.Join(out, FeaturesFile), features.WriteCSV); err != nil {
		return fmt.Errorf("unable to write features, %w", err)
	}
	if err := writeTable(filepath.Join(out, ResponseFile), response.WriteCSV); err != nil {
		return fmt.Errorf("unable to write response, %w", err)
	}
	slog.Info("simulated dataset", "dir", out, "outcome", outcome, "samples", opt.Samples, "features", opt.Features, "coefficients", beta)
	return nil
}

// scaleResponse multiplies the continuous response columns leaving the survival columns as is
func scaleResponse(response *dataset.ResponseTable, scale float64) (*dataset.ResponseTable, error) {
	columns := make([][]float64, len(response.Columns))
	for j, col := range response.Columns {
		vals, err := response.Column(col)
		if err != nil {
			return nil, err
		}
		if col == dataset.SimulatedResponse || col == dataset.SimulatedAltResponse {
			vals = dataset.Series(vals).Scale(scale)
		}
		columns[j] = vals
	}
	rows := make([][]float64, response.Len())
	for i := range rows {
		rows[i] = make([]float64, len(columns))
		for j := range columns {
			rows[i][j] = columns[j][i]
		}
	}
	return dataset.NewResponseTable(response.IDs, response.Columns, rows)
}

func writeTable(path string, write func(w io.Writer, idColumn string) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, idColumn); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

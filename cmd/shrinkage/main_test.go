package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aouyang1/go-shrinkage"
	"github.com/aouyang1/go-shrinkage/config"
	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSimulateCmd(t *testing.T) {
	testData := map[string]struct {
		args []string
		err  error
	}{
		"continuous":      {[]string{"--outcome", "continuous", "--samples", "12"}, nil},
		"count":           {[]string{"--outcome", "count", "--samples", "12"}, nil},
		"unknown outcome": {[]string{"--outcome", "ordinal"}, preprocess.ErrUnknownOutcome},
		"bad log level":   {[]string{"--log-level", "loud"}, ErrUnknownLogLevel},
		"bad log format":  {[]string{"--log-format", "xml"}, ErrUnknownLogFormat},
		"no samples":      {[]string{"--samples", "0"}, dataset.ErrInvalidSimulation},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			args := append([]string{"simulate", "--out", dir}, td.args...)
			_, err := execute(t, args...)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)

			f, err := os.Open(filepath.Join(dir, ResponseFile))
			require.Nil(t, err)
			defer f.Close()
			tbl, err := dataset.ReadTable(f, idColumn)
			require.Nil(t, err)
			assert.Len(t, tbl.IDs, 12)
			assert.Equal(t, []string{dataset.SimulatedResponse, dataset.SimulatedAltResponse, dataset.SimulatedTime, dataset.SimulatedStatus}, tbl.Columns)
			assert.FileExists(t, filepath.Join(dir, FeaturesFile))
		})
	}
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	_, err := execute(t, "simulate", "--out", data, "--samples", "30")
	require.Nil(t, err)

	suite := fmt.Sprintf(`output: %s
sampler:
  burn_in: 10
  draws: 100
  thin: 1
diagnostics:
  top_k: 2
  max_lag: 5
  bins: 10
experiments:
  - name: continuous
    outcome: continuous
    response_column: y
    priors: [ridge, lasso]
    source:
      features: %s
      response: %s
      id_column: sample
  - name: survival
    outcome: survival
    response_column: y
    priors: [hs]
    source:
      features: %s
      response: %s
`, filepath.Join(dir, "unused"), filepath.Join(data, FeaturesFile), filepath.Join(data, ResponseFile), filepath.Join(data, FeaturesFile), filepath.Join(data, ResponseFile))
	suitePath := filepath.Join(dir, "suite.yaml")
	require.Nil(t, os.WriteFile(suitePath, []byte(suite), 0o644))

	testData := map[string]struct {
		args []string
		err  error
	}{
		"no config":      {[]string{"run"}, ErrNoConfig},
		"unknown oracle": {[]string{"run", "--config", suitePath, "--oracle", "mcmc"}, config.ErrUnknownOracle},
		"missing config": {[]string{"run", "--config", filepath.Join(dir, "missing.yaml")}, os.ErrNotExist},
		"valid":          {[]string{"run", "--config", suitePath, "--out", filepath.Join(dir, "out"), "--parallel", "2"}, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			stdout, err := execute(t, td.args...)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Contains(t, stdout, "Experiment continuous")
			assert.Contains(t, stdout, "Experiment survival")

			f, err := os.Open(filepath.Join(dir, "out", "continuous", shrinkage.SummaryCSVFile))
			require.Nil(t, err)
			defer f.Close()
			records, err := csv.NewReader(f).ReadAll()
			require.Nil(t, err)
			require.Len(t, records, 5)
			assert.Equal(t, "NA", records[1][2])
			assert.NotEqual(t, "NA", records[3][2])

			assert.FileExists(t, filepath.Join(dir, "out", "survival", shrinkage.ReportFile))
			assert.NoDirExists(t, filepath.Join(dir, "unused"))
		})
	}
}

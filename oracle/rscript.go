package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"github.com/aouyang1/go-shrinkage/dataset"
)

const (
	DefaultRscript        = "Rscript"
	DefaultRscriptTimeout = 30 * time.Minute

	// stderr beyond this many bytes is dropped from error messages
	maxStderrBytes = 4096
)

var (
	ErrRscriptFailed = errors.New("rscript failed")
	ErrBadSamples    = errors.New("sample file does not match the expected shape")
)

var bayesregModel = map[Family]string{
	Gaussian: "gaussian",
	Logistic: "logistic",
	Poisson:  "poisson",
}

var scriptTmpl = template.Must(template.New("bayesreg").Parse(`suppressPackageStartupMessages(library(bayesreg))
set.seed({{.Seed}})
X <- read.csv("x.csv", row.names = 1)
y <- read.csv("y.csv", row.names = 1)$y
df <- data.frame(X, y = y)
{{- if eq .Model "logistic"}}
df$y <- factor(df$y)
{{- end}}
fit <- bayesreg(y ~ ., data = df, model = "{{.Model}}", prior = "{{.Prior}}", n.samples = {{.Draws}}, burnin = {{.BurnIn}}, thin = {{.Thin}})
write.csv(t(fit$beta), "beta.csv")
write.csv(data.frame(beta0 = as.vector(fit$beta0)), "beta0.csv")
`))

// RscriptOptions configures the RscriptOracle
type RscriptOptions struct {
	// Binary is the Rscript executable, looked up on PATH when not absolute
	Binary string

	// WorkDir is the parent of the per fit temporary directories. Defaults to the system
	// temporary directory.
	WorkDir string

	// KeepFiles leaves the generated script, inputs and samples on disk
	KeepFiles bool

	Timeout time.Duration
}

// NewDefaultRscriptOptions returns options running Rscript from PATH
func NewDefaultRscriptOptions() *RscriptOptions {
	return &RscriptOptions{
		Binary:  DefaultRscript,
		Timeout: DefaultRscriptTimeout,
	}
}

// Validate fills unset fields with defaults
func (r *RscriptOptions) Validate() (*RscriptOptions, error) {
	if r == nil {
		r = NewDefaultRscriptOptions()
	}
	if r.Binary == "" {
		r.Binary = DefaultRscript
	}
	if r.Timeout < 0 {
		return nil, fmt.Errorf("negative timeout, %w", ErrInvalidSampler)
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultRscriptTimeout
	}
	return r, nil
}

// RscriptOracle samples the posterior with the bayesreg R package. The data is exchanged
// through csv files in a temporary directory.
type RscriptOracle struct {
	opt *RscriptOptions
}

// NewRscriptOracle creates an RscriptOracle. The Rscript binary must be resolvable.
func NewRscriptOracle(opt *RscriptOptions) (*RscriptOracle, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(opt.Binary); err != nil {
		return nil, fmt.Errorf("%s, %w", opt.Binary, err)
	}
	return &RscriptOracle{opt: opt}, nil
}

// Fit writes the inputs, runs bayesreg and reads back the posterior samples
func (r *RscriptOracle) Fit(ctx context.Context, in Input) (*Result, error) {
	sampler, err := in.Sampler.Validate()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(r.opt.WorkDir, "bayesreg-*")
	if err != nil {
		return nil, err
	}
	if r.opt.KeepFiles {
		slog.Info("keeping bayesreg files", "dir", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	if err := writeInputs(dir, in); err != nil {
		return nil, err
	}
	script, err := renderScript(in, sampler)
	if err != nil {
		return nil, err
	}
	scriptPath := filepath.Join(dir, "fit.R")
	if err := os.WriteFile(scriptPath, script, 0o644); err != nil {
		return nil, err
	}

	if err := r.run(ctx, dir, scriptPath); err != nil {
		return nil, err
	}

	res, err := readSamples(dir, in, sampler)
	if err != nil {
		return nil, err
	}
	if err := res.Summarize(); err != nil {
		return nil, err
	}
	res.RMSE, err = rootMeanSquaredError(res, in.X, in.Y)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *RscriptOracle) run(ctx context.Context, dir, scriptPath string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opt.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.opt.Binary, "--vanilla", scriptPath)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w, %w", ErrRscriptFailed, ctxErr)
	}
	if err != nil {
		msg := stderr.Bytes()
		if len(msg) > maxStderrBytes {
			msg = msg[len(msg)-maxStderrBytes:]
		}
		return fmt.Errorf("%s, %w, %w", bytes.TrimSpace(msg), ErrRscriptFailed, err)
	}
	slog.Debug("ran bayesreg", "dir", dir, "elapsed", time.Since(start))
	return nil
}

func renderScript(in Input, sampler *SamplerConfig) ([]byte, error) {
	var buf bytes.Buffer
	err := scriptTmpl.Execute(&buf, struct {
		Seed   uint64
		Model  string
		Prior  string
		Draws  int
		BurnIn int
		Thin   int
	}{
		Seed:   in.Seed,
		Model:  bayesregModel[in.Family],
		Prior:  string(in.Prior),
		Draws:  sampler.Draws,
		BurnIn: sampler.BurnIn,
		Thin:   sampler.Thin,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeInputs stores the design and response with positional column names so R does not
// rewrite feature names
func writeInputs(dir string, in Input) error {
	m, n := in.X.Dims()
	ids := make([]string, m)
	for i := range m {
		ids[i] = strconv.Itoa(i + 1)
	}
	cols := make([]string, n)
	for j := range n {
		cols[j] = "v" + strconv.Itoa(j+1)
	}

	if err := writeCSV(filepath.Join(dir, "x.csv"), ids, cols, in.X.At); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "y.csv"), ids, []string{"y"}, func(row, _ int) float64 {
		return in.Y[row]
	})
}

func writeCSV(path string, ids, cols []string, value func(row, col int) float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteTable(f, "id", ids, cols, value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readSamples(dir string, in Input, sampler *SamplerConfig) (*Result, error) {
	beta, err := readCSV(filepath.Join(dir, "beta.csv"))
	if err != nil {
		return nil, err
	}
	beta0, err := readCSV(filepath.Join(dir, "beta0.csv"))
	if err != nil {
		return nil, err
	}
	if len(beta.Columns) != len(in.Features) || len(beta0.Columns) != 1 || len(beta.Rows) != len(beta0.Rows) {
		return nil, fmt.Errorf("beta is %dx%d and beta0 is %dx%d, %w",
			len(beta.Rows), len(beta.Columns), len(beta0.Rows), len(beta0.Columns), ErrBadSamples)
	}

	res := &Result{
		Prior:     in.Prior,
		Family:    in.Family,
		Seed:      in.Seed,
		Sampler:   *sampler,
		Formula:   Formula(in.Response, in.Features),
		Features:  append([]string(nil), in.Features...),
		Coef:      beta.Rows,
		Intercept: make([]float64, len(beta0.Rows)),
	}
	for i, row := range beta0.Rows {
		res.Intercept[i] = row[0]
	}
	return res, nil
}

func readCSV(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrRscriptFailed, err)
	}
	defer f.Close()
	return dataset.ReadTable(f, "")
}

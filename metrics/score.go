// Package metrics scores fitted models against observed outcomes
package metrics

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrResLenMismatch  = errors.New("predicted and actual have different lengths")
	ErrMetricUndefined = errors.New("metric is undefined for the observed outcomes")
)

// Name identifies a performance metric
type Name string

const (
	NameRMSE   Name = "RMSE"
	NameAUC    Name = "AUC"
	NameCIndex Name = "C-index"
)

// MSE computes the mean squared error, sum((y-yhat)^2)/n, over the pairs where both values
// are present. A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}

	mse := 0.0
	n := 0
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		mse += math.Pow(actual[i]-predicted[i], 2.0)
		n++
	}
	if n == 0 {
		return math.NaN(), fmt.Errorf("no paired values, %w", ErrMetricUndefined)
	}
	mse /= float64(n)
	return mse, nil
}

// RMSE computes the root mean squared error
func RMSE(predicted, actual []float64) (float64, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return math.NaN(), err
	}
	return math.Sqrt(mse), nil
}

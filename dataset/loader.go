package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Source locates the feature and response tables of a dataset
type Source struct {
	Features string `yaml:"features" json:"features"`
	Response string `yaml:"response" json:"response"`

	// IDColumn names the sample identifier column of both tables. The first column is used
	// when empty.
	IDColumn string `yaml:"id_column" json:"id_column,omitempty"`
}

// Loader returns a feature matrix and response table with matching sample identifiers
type Loader interface {
	Load(ctx context.Context, src Source) (*FeatureMatrix, *ResponseTable, error)
}

// CSVLoader reads csv tables through a Fetcher
type CSVLoader struct {
	fetcher Fetcher
}

// NewCSVLoader creates a loader backed by the fetcher. A LocatorFetcher with default options
// is used if none is provided.
func NewCSVLoader(fetcher Fetcher) *CSVLoader {
	if fetcher == nil {
		fetcher = NewLocatorFetcher(nil)
	}
	return &CSVLoader{fetcher: fetcher}
}

// Load fetches both tables and aligns the response rows to the feature rows
func (c *CSVLoader) Load(ctx context.Context, src Source) (*FeatureMatrix, *ResponseTable, error) {
	featTbl, err := c.readTable(ctx, src.Features, src.IDColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load features from %s, %w, %w", src.Features, ErrDataUnavailable, err)
	}
	respTbl, err := c.readTable(ctx, src.Response, src.IDColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load response from %s, %w, %w", src.Response, ErrDataUnavailable, err)
	}

	features, err := NewFeatureMatrix(featTbl.IDs, featTbl.Columns, featTbl.Rows)
	if err != nil {
		return nil, nil, tableError("feature", err)
	}
	response, err := NewResponseTable(respTbl.IDs, respTbl.Columns, respTbl.Rows)
	if err != nil {
		return nil, nil, tableError("response", err)
	}

	aligned, err := Align(features, response)
	if err != nil {
		return nil, nil, err
	}

	m, n := features.Dims()
	slog.Info("loaded dataset", "features", src.Features, "response", src.Response, "samples", m, "predictors", n, "outcomes", len(aligned.Columns))
	return features, aligned, nil
}

// tableError keeps alignment failures distinct from unreadable tables
func tableError(kind string, err error) error {
	if errors.Is(err, ErrAlignment) {
		return fmt.Errorf("invalid %s table, %w", kind, err)
	}
	return fmt.Errorf("invalid %s table, %w, %w", kind, ErrDataUnavailable, err)
}

func (c *CSVLoader) readTable(ctx context.Context, locator, idColumn string) (*Table, error) {
	rc, err := c.fetcher.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadTable(rc, idColumn)
}

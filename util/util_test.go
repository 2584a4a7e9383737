package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndentExpand(t *testing.T) {
	testData := map[string]struct {
		indent   string
		growth   int
		expected string
	}{
		"none":  {"  ", 0, ""},
		"one":   {"  ", 1, "  "},
		"three": {"\t", 3, "\t\t\t"},
		"empty": {"", 2, ""},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, IndentExpand(td.indent, td.growth))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1.235", FormatValue(1.23456, 3))
	assert.Equal(t, NA, FormatValue(math.NaN(), 3))
	assert.Equal(t, "-2", FormatValue(-2, 0))
}

// Package util holds small formatting helpers shared by the table printers
package util

import (
	"math"
	"strconv"
)

// NA is printed in place of undefined values
const NA = "NA"

func IndentExpand(indent string, growth int) string {
	indentByte := []byte(indent)
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indentByte...)
	}
	return string(out)
}

// FormatValue formats v with the given number of decimals, or NA when v is NaN
func FormatValue(v float64, decimals int) string {
	if math.IsNaN(v) {
		return NA
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

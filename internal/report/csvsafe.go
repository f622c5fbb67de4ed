// Package report writes the production price export and the audit file.
package report

import (
	"strconv"
	"strings"
)

// formulaPrefixes make spreadsheet tools evaluate a cell.
const formulaPrefixes = "=+-@|%\t\r\n"

// EscapeCSVCell prefixes a quote to cells a spreadsheet would read as a
// formula. Plain numbers, negative ones included, pass through.
func EscapeCSVCell(value string) string {
	if value == "" || !strings.ContainsRune(formulaPrefixes, rune(value[0])) {
		return value
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	return "'" + value
}

// EscapeCSVRow escapes all cells in a row
func EscapeCSVRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCSVCell(cell)
	}
	return escaped
}

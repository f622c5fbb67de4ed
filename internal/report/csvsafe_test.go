package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeCSVCell(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"style", "DD1391-100", "DD1391-100"},
		{"number", "123.45", "123.45"},
		{"negative_number", "-12.5", "-12.5"},
		{"signed_number", "+3", "+3"},
		{"internal_equal", "A=B", "A=B"},

		{"formula_equal", "=SUM(A1:A10)", "'=SUM(A1:A10)"},
		{"formula_minus", "-2+3+cmd|' /C calc'!A0", "'-2+3+cmd|' /C calc'!A0"},
		{"formula_at", "@SUM(A:A)", "'@SUM(A:A)"},
		{"formula_pipe", "|echo test", "'|echo test"},
		{"formula_percent", "%PATH%", "'%PATH%"},
		{"tab_start", "\t=EXEC()", "'\t=EXEC()"},
		{"newline_start", "\n=FORMULA()", "'\n=FORMULA()"},
		{"carriage_return", "\r=DATA()", "'\r=DATA()"},
		{"product_name", "-Air Max", "'-Air Max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeCSVCell(tt.input))
		})
	}
}

func TestEscapeCSVRow(t *testing.T) {
	input := []string{"A-1", "=HYPERLINK(\"x\")", "100.50", "-50", "@malicious"}
	expected := []string{"A-1", "'=HYPERLINK(\"x\")", "100.50", "-50", "'@malicious"}
	assert.Equal(t, expected, EscapeCSVRow(input))
}

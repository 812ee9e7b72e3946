package money

import "testing"

func TestFormatCents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{100, "$1.00"},
		{2000, "$20.00"},
		{123456, "$1234.56"},
		{-150, "$-1.50"},
	}
	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Fatalf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

package token

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{1_500_000, 6, "1.5"},
		{171_000_000_000_000_000, 6, "171000000000"},
		{1, 9, "0.000000001"},
		{0, 18, "0"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.amount, tc.decimals); got != tc.want {
			t.Fatalf("FormatAmount(%d, %d) = %s, want %s", tc.amount, tc.decimals, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1.25", 6)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 1_250_000 {
		t.Fatalf("expected 1250000, got %d", got)
	}
	if _, err := ParseAmount("0.0000001", 6); err == nil {
		t.Fatalf("expected precision error")
	}
	if _, err := ParseAmount("-1", 6); err == nil {
		t.Fatalf("expected negative amount error")
	}
	if _, err := ParseAmount("18446744073709551616", 0); err == nil {
		t.Fatalf("expected range error")
	}
}

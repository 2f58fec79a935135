package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRoundDownTruncates(t *testing.T) {
	tests := []struct {
		value     string
		precision int
		want      string
	}{
		{"0.5009", 3, "0.5"},
		{"0.1239", 3, "0.123"},
		{"205.0098", 2, "205"},
		{"-1.239", 2, "-1.23"},
		{"7.9", 0, "7"},
	}
	for _, tt := range tests {
		got := RoundDown(d(tt.value), tt.precision)
		if got.String() != tt.want {
			t.Errorf("RoundDown(%s, %d) = %s, want %s", tt.value, tt.precision, got, tt.want)
		}
	}
}

func TestFormatKeepsScale(t *testing.T) {
	if got := Format(d("99"), 2); got != "99.00" {
		t.Errorf("Format(99, 2) = %q, want 99.00", got)
	}
	if got := Format(d("0.1509"), 3); got != "0.150" {
		t.Errorf("Format(0.1509, 3) = %q, want 0.150", got)
	}
	if got := Format(d("42.7"), 0); got != "42" {
		t.Errorf("Format(42.7, 0) = %q, want 42", got)
	}
}

func TestTickSize(t *testing.T) {
	if !TickSize(2).Equal(d("0.01")) {
		t.Errorf("TickSize(2) = %s", TickSize(2))
	}
	if !TickSize(0).Equal(d("1")) {
		t.Errorf("TickSize(0) = %s", TickSize(0))
	}
}

func TestComputeSLFromEntry(t *testing.T) {
	// LONG: entry 100.00, 1% -> 99.00
	sl := ComputeSLFromEntry(d("100"), 2, "LONG", d("0.01"))
	if !sl.Equal(d("99")) {
		t.Errorf("LONG SL = %s, want 99", sl)
	}
	// SHORT mirror: 101.00
	sl = ComputeSLFromEntry(d("100"), 2, "SHORT", d("0.01"))
	if !sl.Equal(d("101")) {
		t.Errorf("SHORT SL = %s, want 101", sl)
	}
	// Degenerate pct: result may not land on the entry, push one tick away.
	sl = ComputeSLFromEntry(d("100"), 2, "LONG", d("0"))
	if !sl.Equal(d("99.99")) {
		t.Errorf("LONG SL with 0%% = %s, want 99.99", sl)
	}
	sl = ComputeSLFromEntry(d("100"), 2, "SHORT", d("0"))
	if !sl.Equal(d("100.01")) {
		t.Errorf("SHORT SL with 0%% = %s, want 100.01", sl)
	}
}

func TestComputeTPFromEntry(t *testing.T) {
	tp := ComputeTPFromEntry(d("100"), 2, "LONG", d("0.01"))
	if !tp.Equal(d("101")) {
		t.Errorf("LONG TP = %s, want 101", tp)
	}
	tp = ComputeTPFromEntry(d("100"), 2, "SHORT", d("0.02"))
	if !tp.Equal(d("98")) {
		t.Errorf("SHORT TP = %s, want 98", tp)
	}
	// Tiny target collapses onto the entry after truncation: snap one tick.
	tp = ComputeTPFromEntry(d("100"), 2, "LONG", d("0.00001"))
	if !tp.Equal(d("100.01")) {
		t.Errorf("LONG TP snap = %s, want 100.01", tp)
	}
	tp = ComputeTPFromEntry(d("100"), 2, "SHORT", d("0.00001"))
	if !tp.Equal(d("99.99")) {
		t.Errorf("SHORT TP snap = %s, want 99.99", tp)
	}
}

func TestClampSLNotInstant(t *testing.T) {
	// LONG SL must stay at least 2 ticks under the market.
	sl := ClampSLNotInstant("LONG", d("100.00"), d("100.01"), 2, 2)
	if !sl.Equal(d("99.99")) {
		t.Errorf("clamped LONG SL = %s, want 99.99", sl)
	}
	// Already far enough: untouched.
	sl = ClampSLNotInstant("LONG", d("99.00"), d("100.00"), 2, 2)
	if !sl.Equal(d("99.00")) {
		t.Errorf("LONG SL = %s, want 99.00 unchanged", sl)
	}
	// SHORT mirror.
	sl = ClampSLNotInstant("SHORT", d("100.00"), d("99.99"), 2, 2)
	if !sl.Equal(d("100.01")) {
		t.Errorf("clamped SHORT SL = %s, want 100.01", sl)
	}
	sl = ClampSLNotInstant("SHORT", d("101.00"), d("100.00"), 2, 2)
	if !sl.Equal(d("101.00")) {
		t.Errorf("SHORT SL = %s, want 101.00 unchanged", sl)
	}
}

func TestSideMatches(t *testing.T) {
	if !SideMatches("LONG", "BUY") || !SideMatches("LONG", "LONG") {
		t.Error("LONG should match BUY and LONG")
	}
	if !SideMatches("SHORT", "SELL") || !SideMatches("SHORT", "SHORT") {
		t.Error("SHORT should match SELL and SHORT")
	}
	if SideMatches("LONG", "SELL") || SideMatches("SHORT", "BUY") {
		t.Error("crossed sides must not match")
	}
}

func TestDLenient(t *testing.T) {
	if !D("1.5").Equal(d("1.5")) {
		t.Error("D should parse valid decimals")
	}
	if !D("").IsZero() || !D("garbage").IsZero() {
		t.Error("D should return zero on malformed input")
	}
}

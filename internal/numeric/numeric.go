// Package numeric holds the decimal helpers shared by the executor and the
// position monitor. All exchange-bound prices and quantities go through
// these functions: the exchange rejects over-precise values, so rounding is
// always truncation toward zero, never half-up.
package numeric

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// D converts an arbitrary string into a decimal, returning zero on garbage.
// Mirrors how exchange payloads are read: absent or malformed fields count
// as zero rather than aborting the caller.
func D(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundDown truncates value to the given number of fractional digits.
func RoundDown(value decimal.Decimal, precision int) decimal.Decimal {
	if precision <= 0 {
		return value.Truncate(0)
	}
	return value.Truncate(int32(precision))
}

// Format truncates value to precision and renders it with exactly that many
// fractional digits, the form the exchange echoes back in conditional-order
// listings. Keeping the scale stable matters: provisional stop-loss orders
// are later matched by price string.
func Format(value decimal.Decimal, precision int) string {
	if precision <= 0 {
		return RoundDown(value, 0).StringFixed(0)
	}
	return RoundDown(value, precision).StringFixed(int32(precision))
}

// TickSize returns the minimum price increment at the given quote
// precision: 10^(-qp), or 1 when qp <= 0.
func TickSize(quotePrecision int) decimal.Decimal {
	if quotePrecision <= 0 {
		return one
	}
	return decimal.New(1, -int32(quotePrecision))
}

// ClampSLNotInstant pulls a stop-loss away from the current market price so
// that submitting it cannot trigger it immediately. A LONG stop must sit at
// least minTicksAway ticks below current; a SHORT stop the mirror above.
func ClampSLNotInstant(side string, sl, current decimal.Decimal, quotePrecision, minTicksAway int) decimal.Decimal {
	if minTicksAway < 1 {
		minTicksAway = 1
	}
	ticks := TickSize(quotePrecision).Mul(decimal.NewFromInt(int64(minTicksAway)))
	if side == "LONG" {
		maxSL := current.Sub(ticks)
		if sl.GreaterThanOrEqual(maxSL) {
			sl = RoundDown(maxSL, quotePrecision)
		}
	} else {
		minSL := current.Add(ticks)
		if sl.LessThanOrEqual(minSL) {
			sl = RoundDown(minSL, quotePrecision)
		}
	}
	return sl
}

// ComputeSLFromEntry derives the stop-loss from the entry price. The result
// always sits on the losing side of the entry; when truncation collapses it
// onto the entry it is pushed one tick away.
func ComputeSLFromEntry(entry decimal.Decimal, quotePrecision int, side string, slPct decimal.Decimal) decimal.Decimal {
	t := TickSize(quotePrecision)
	var sl decimal.Decimal
	if side == "LONG" {
		sl = RoundDown(entry.Mul(one.Sub(slPct)), quotePrecision)
		if sl.GreaterThanOrEqual(entry) {
			sl = RoundDown(entry.Sub(t), quotePrecision)
		}
	} else {
		sl = RoundDown(entry.Mul(one.Add(slPct)), quotePrecision)
		if sl.LessThanOrEqual(entry) {
			sl = RoundDown(entry.Add(t), quotePrecision)
		}
	}
	return sl
}

// ComputeTPFromEntry derives a take-profit target from the entry price. The
// result always sits on the winning side of the entry, at least one tick
// away.
func ComputeTPFromEntry(entry decimal.Decimal, quotePrecision int, side string, targetPct decimal.Decimal) decimal.Decimal {
	t := TickSize(quotePrecision)
	var tp decimal.Decimal
	if side == "LONG" {
		tp = RoundDown(entry.Mul(one.Add(targetPct)), quotePrecision)
		if tp.LessThanOrEqual(entry) {
			tp = RoundDown(entry.Add(t), quotePrecision)
		}
	} else {
		tp = RoundDown(entry.Mul(one.Sub(targetPct)), quotePrecision)
		if tp.GreaterThanOrEqual(entry) {
			tp = RoundDown(entry.Sub(t), quotePrecision)
		}
	}
	return tp
}

// SideMatches reports whether an exchange-reported side satisfies the
// preferred position side. The exchange reports BUY/SELL on some endpoints
// and LONG/SHORT on others.
func SideMatches(prefer, got string) bool {
	switch prefer {
	case "LONG":
		return got == "LONG" || got == "BUY"
	case "SHORT":
		return got == "SHORT" || got == "SELL"
	}
	return got == prefer
}

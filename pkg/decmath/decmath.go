// Package decmath provides exp, ln and pow on cosmos LegacyDec values.
//
// LegacyDec carries 18 fractional decimal digits, so every routine here
// range-reduces its argument into a small interval first and then evaluates a
// fast-converging series, the same technique audited fixed-point libraries
// (Aave's MathUtils, PRBMath) use. Absolute error is bounded by a few units
// in the last (1e-18) place per operation.
package decmath

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// Errors
var (
	ErrExpOverflow   = errors.Register("decmath", 1, "exp argument too large")
	ErrLnNonPositive = errors.Register("decmath", 2, "ln of non-positive value")
	ErrPowBase       = errors.Register("decmath", 3, "pow base must be positive")
)

// MaxExpArg bounds Exp inputs; e^135 already exceeds the LegacyDec range.
var MaxExpArg = math.LegacyNewDec(100)

var (
	ln2 = math.LegacyMustNewDecFromStr("0.693147180559945309")
	one = math.LegacyOneDec()
	two = math.LegacyNewDec(2)
)

// Exp computes e^x. Arguments may be negative; |x| must not exceed MaxExpArg.
func Exp(x math.LegacyDec) (math.LegacyDec, error) {
	if x.IsZero() {
		return math.LegacyOneDec(), nil
	}
	if x.IsNegative() {
		ex, err := Exp(x.Neg())
		if err != nil {
			return math.LegacyDec{}, err
		}
		return one.Quo(ex), nil
	}
	if x.GT(MaxExpArg) {
		return math.LegacyDec{}, ErrExpOverflow.Wrapf("exp(%s)", x)
	}

	// e^x = 2^n * e^r with r in [0, ln2)
	n := x.Quo(ln2).TruncateInt64()
	r := x.Sub(ln2.MulInt64(n))
	if r.IsNegative() {
		// Quo rounds to nearest; pull the quotient back down.
		n--
		r = r.Add(ln2)
	}

	// Maclaurin series for e^r; r < 0.7 so terms vanish below 1e-18 by k~20.
	term := math.LegacyOneDec()
	sum := math.LegacyOneDec()
	for k := int64(1); k <= 32; k++ {
		term = term.Mul(r).QuoInt64(k)
		if term.IsZero() {
			break
		}
		sum = sum.Add(term)
	}

	if n == 0 {
		return sum, nil
	}
	return sum.Mul(two.Power(uint64(n))), nil
}

// Ln computes the natural logarithm of x; x must be strictly positive.
func Ln(x math.LegacyDec) (math.LegacyDec, error) {
	if x.IsNil() || !x.IsPositive() {
		return math.LegacyDec{}, ErrLnNonPositive.Wrapf("ln(%s)", x)
	}
	if x.Equal(one) {
		return math.LegacyZeroDec(), nil
	}

	// x = m * 2^k with m in [1, 2)
	m := x
	k := int64(0)
	for m.GTE(two) {
		m = m.Quo(two)
		k++
	}
	for m.LT(one) {
		m = m.Mul(two)
		k--
	}

	// ln m = 2 * atanh((m-1)/(m+1)); y < 1/3 on [1, 2)
	y := m.Sub(one).Quo(m.Add(one))
	y2 := y.Mul(y)
	term := y
	sum := y
	for i := int64(3); i <= 45; i += 2 {
		term = term.Mul(y2)
		if term.IsZero() {
			break
		}
		sum = sum.Add(term.QuoInt64(i))
	}
	lnm := sum.Mul(two)

	return math.LegacyNewDec(k).Mul(ln2).Add(lnm), nil
}

// Pow computes base^exp for strictly positive base and arbitrary exp.
func Pow(base, exp math.LegacyDec) (math.LegacyDec, error) {
	if base.IsNil() || !base.IsPositive() {
		return math.LegacyDec{}, ErrPowBase.Wrapf("pow(%s, %s)", base, exp)
	}
	if exp.IsZero() {
		return math.LegacyOneDec(), nil
	}
	if base.Equal(one) {
		return math.LegacyOneDec(), nil
	}
	lnb, err := Ln(base)
	if err != nil {
		return math.LegacyDec{}, err
	}
	return Exp(exp.Mul(lnb))
}

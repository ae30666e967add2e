package decmath

import (
	"testing"

	"cosmossdk.io/math"
)

// assertClose checks |got - want| <= tol
func assertClose(t *testing.T, name string, got, want, tol math.LegacyDec) {
	t.Helper()
	diff := got.Sub(want).Abs()
	if diff.GT(tol) {
		t.Errorf("%s: got %s, want %s (diff %s)", name, got, want, diff)
	}
}

func TestExpKnownValues(t *testing.T) {
	tol := math.LegacyMustNewDecFromStr("0.000000000000001")

	testCases := []struct {
		name string
		x    string
		want string
	}{
		{"zero", "0", "1"},
		{"one", "1", "2.718281828459045235"},
		{"two", "2", "7.389056098930650227"},
		{"half", "0.5", "1.648721270700128147"},
		{"ln2", "0.693147180559945309", "2"},
		{"neg one", "-1", "0.367879441171442322"},
		{"neg half", "-0.5", "0.606530659712633424"},
		{"ten", "10", "22026.465794806716516958"},
		{"small", "0.000001", "1.000001000000500000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := math.LegacyMustNewDecFromStr(tc.x)
			got, err := Exp(x)
			if err != nil {
				t.Fatalf("Exp(%s): %v", tc.x, err)
			}
			want := math.LegacyMustNewDecFromStr(tc.want)
			// scale tolerance with the magnitude of the result
			scaled := tol
			if want.GT(math.LegacyOneDec()) {
				scaled = tol.Mul(want)
			}
			assertClose(t, "exp", got, want, scaled)
		})
	}
}

func TestExpOverflow(t *testing.T) {
	if _, err := Exp(math.LegacyNewDec(101)); err == nil {
		t.Error("expected overflow error for exp(101)")
	}
}

func TestLnKnownValues(t *testing.T) {
	tol := math.LegacyMustNewDecFromStr("0.000000000000001")

	testCases := []struct {
		name string
		x    string
		want string
	}{
		{"one", "1", "0"},
		{"two", "2", "0.693147180559945309"},
		{"e", "2.718281828459045235", "1"},
		{"ten", "10", "2.302585092994045684"},
		{"half", "0.5", "-0.693147180559945309"},
		{"tenth", "0.1", "-2.302585092994045684"},
		{"large", "1000000", "13.815510557964274104"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := math.LegacyMustNewDecFromStr(tc.x)
			got, err := Ln(x)
			if err != nil {
				t.Fatalf("Ln(%s): %v", tc.x, err)
			}
			assertClose(t, "ln", got, math.LegacyMustNewDecFromStr(tc.want), tol)
		})
	}
}

func TestLnDomain(t *testing.T) {
	if _, err := Ln(math.LegacyZeroDec()); err == nil {
		t.Error("expected error for ln(0)")
	}
	if _, err := Ln(math.LegacyNewDec(-1)); err == nil {
		t.Error("expected error for ln(-1)")
	}
}

func TestLnExpRoundTrip(t *testing.T) {
	tol := math.LegacyMustNewDecFromStr("0.00000000000001")

	for _, s := range []string{"0.001", "0.5", "1", "1.5", "3.75", "100", "12345.6789"} {
		x := math.LegacyMustNewDecFromStr(s)
		lnx, err := Ln(x)
		if err != nil {
			t.Fatalf("Ln(%s): %v", s, err)
		}
		back, err := Exp(lnx)
		if err != nil {
			t.Fatalf("Exp(Ln(%s)): %v", s, err)
		}
		assertClose(t, "round trip "+s, back, x, tol.Mul(x))
	}
}

func TestPow(t *testing.T) {
	tol := math.LegacyMustNewDecFromStr("0.00000000000001")

	testCases := []struct {
		name       string
		base, exp  string
		want       string
	}{
		{"square root", "4", "0.5", "2"},
		{"identity", "7.25", "1", "7.25"},
		{"zero exp", "3", "0", "1"},
		{"cube", "2", "3", "8"},
		{"fractional", "2", "0.333333333333333333", "1.259921049894873164"},
		{"negative exp", "2", "-1", "0.5"},
		{"sub-one base", "0.25", "0.5", "0.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Pow(math.LegacyMustNewDecFromStr(tc.base), math.LegacyMustNewDecFromStr(tc.exp))
			if err != nil {
				t.Fatalf("Pow(%s, %s): %v", tc.base, tc.exp, err)
			}
			want := math.LegacyMustNewDecFromStr(tc.want)
			scaled := tol
			if want.GT(math.LegacyOneDec()) {
				scaled = tol.Mul(want)
			}
			assertClose(t, "pow", got, want, scaled)
		})
	}
}

func TestPowDomain(t *testing.T) {
	if _, err := Pow(math.LegacyZeroDec(), math.LegacyOneDec()); err == nil {
		t.Error("expected error for pow(0, 1)")
	}
	if _, err := Pow(math.LegacyNewDec(-2), math.LegacyNewDec(2)); err == nil {
		t.Error("expected error for pow(-2, 2)")
	}
}

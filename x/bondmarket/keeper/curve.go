package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/bond-amm/pkg/decmath"
	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// taylorCutoff switches f1 to its first-order expansion when tau/lambda is
// small enough that the closed form (1 - e^(-ratio)) / ratio cancels
// catastrophically in fixed point.
var taylorCutoff = math.LegacyMustNewDecFromStr("0.01")

// AnchorRate evaluates the Nelson-Siegel term structure at a maturity offset:
//
//	r*(tau) = beta0 + beta1*f1 + beta2*f2
//	f1 = (1 - e^(-tau/lambda)) / (tau/lambda)
//	f2 = f1 - e^(-tau/lambda)
//
// At tau=0 the loadings collapse to f1=1, f2=0, so the rate is exactly
// beta0 + beta1.
func AnchorRate(tauSeconds int64, cp types.CurveParams) (math.LegacyDec, error) {
	if tauSeconds == 0 {
		return cp.Beta0.Add(cp.Beta1), nil
	}

	ratio := math.LegacyNewDec(tauSeconds).Quo(math.LegacyNewDec(cp.DecayTimescale))
	decay, err := decmath.Exp(ratio.Neg())
	if err != nil {
		return math.LegacyDec{}, err
	}

	var f1 math.LegacyDec
	if ratio.LT(taylorCutoff) {
		// f1 ~ 1 - ratio/2 near zero
		f1 = math.LegacyOneDec().Sub(ratio.QuoInt64(2))
	} else {
		f1 = math.LegacyOneDec().Sub(decay).Quo(ratio)
	}
	f2 := f1.Sub(decay)

	return cp.Beta0.Add(cp.Beta1.Mul(f1)).Add(cp.Beta2.Mul(f2)), nil
}

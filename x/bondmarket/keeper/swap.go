package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/bond-amm/pkg/decmath"
	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// SwapResult is the new reserve state produced by the invariant solver.
type SwapResult struct {
	// ShadowReserveNew is X after the trade.
	ShadowReserveNew math.LegacyDec
	// PrincipalNew is y after the trade.
	PrincipalNew math.LegacyDec
	// CashDelta is positive when the pool's cash holdings increase.
	CashDelta math.LegacyDec
	// PsiNew is the post-trade utilization ratio.
	PsiNew math.LegacyDec
}

// ComputeSwap converts a signed bond-amount trade into new reserve state.
// bondAmount > 0 is a borrow (pool pays cash, takes on bond exposure),
// bondAmount < 0 is a lend. shadowReserve and principal must be positive;
// liquidPrincipal bounds how much cash can actually leave the pool.
//
// The curvature exponent alpha(tau) = 1/(1 + kappa*tauYears) flattens the
// invariant K*x^alpha + y^alpha = C toward a linear exchange as maturity
// approaches; at tau=0 the whole computation degenerates to
// yNew = y - delta, XNew = X + delta.
func ComputeSwap(
	tauSeconds int64,
	bondAmount math.LegacyDec,
	shadowReserve math.LegacyDec,
	principal math.LegacyDec,
	liquidPrincipal math.LegacyDec,
	params types.Params,
) (*SwapResult, error) {
	if bondAmount.IsNil() || bondAmount.IsZero() {
		return nil, types.ErrZeroAmount
	}
	if !shadowReserve.IsPositive() || !principal.IsPositive() {
		return nil, types.ErrInvariantViolated.Wrap("empty reserves")
	}

	psi := shadowReserve.Quo(principal)

	if tauSeconds == 0 {
		return settleLinear(bondAmount, shadowReserve, principal, liquidPrincipal, params)
	}

	tauYears := math.LegacyNewDec(tauSeconds).QuoInt64(types.SecondsPerYear)

	// alpha(tau) = 1 / (1 + kappa*tauYears)
	alpha := math.LegacyOneDec().Quo(math.LegacyOneDec().Add(params.Pricing.Kappa.Mul(tauYears)))

	rstar, err := AnchorRate(tauSeconds, params.Curve)
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}

	// r_tot = kappa*ln(psi) + r*: utilization pressure self-balances rates
	lnPsi, err := decmath.Ln(psi)
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}
	rtot := params.Pricing.Kappa.Mul(lnPsi).Add(rstar)

	// p(tau) = e^(-r_tot*tauYears), virtual inventory x = X/p
	price, err := decmath.Exp(rtot.Mul(tauYears).Neg())
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}
	x := shadowReserve.Quo(price)

	// K(tau) = e^(-tauYears*r**alpha)
	coefK, err := decmath.Exp(tauYears.Mul(rstar).Mul(alpha).Neg())
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}

	// C = K*x^alpha + y^alpha
	xAlpha, err := decmath.Pow(x, alpha)
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}
	yAlpha, err := decmath.Pow(principal, alpha)
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}
	constC := coefK.Mul(xAlpha).Add(yAlpha)

	xNew := x.Add(bondAmount)
	if !xNew.IsPositive() {
		return nil, types.ErrInvariantViolated.Wrapf("virtual inventory %s exhausted by trade %s", x, bondAmount)
	}

	xNewAlpha, err := decmath.Pow(xNew, alpha)
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}
	yAlphaNew := constC.Sub(coefK.Mul(xNewAlpha))
	if !yAlphaNew.IsPositive() {
		return nil, types.ErrInvariantViolated.Wrapf("principal exhausted by trade %s", bondAmount)
	}
	principalNew, err := decmath.Pow(yAlphaNew, math.LegacyOneDec().Quo(alpha))
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}

	// psiNew = (y/yNew)^alpha * (psi+1) - 1, XNew = psiNew*yNew
	ratioAlpha, err := decmath.Pow(principal.Quo(principalNew), alpha)
	if err != nil {
		return nil, types.ErrInvariantViolated.Wrap(err.Error())
	}
	psiNew := ratioAlpha.Mul(psi.Add(math.LegacyOneDec())).Sub(math.LegacyOneDec())

	return finishSwap(psiNew, psiNew.Mul(principalNew), principalNew, principal, liquidPrincipal, params)
}

// settleLinear is the tau=0 degeneration: price, alpha and K all collapse to
// one, so the exchange is a face-value cash swap.
func settleLinear(
	bondAmount, shadowReserve, principal, liquidPrincipal math.LegacyDec,
	params types.Params,
) (*SwapResult, error) {
	xNew := shadowReserve.Add(bondAmount)
	if !xNew.IsPositive() {
		return nil, types.ErrInvariantViolated.Wrapf("shadow reserve %s exhausted by settlement %s", shadowReserve, bondAmount)
	}
	principalNew := principal.Sub(bondAmount)
	if !principalNew.IsPositive() {
		return nil, types.ErrInvariantViolated.Wrapf("principal %s exhausted by settlement %s", principal, bondAmount)
	}

	// (y/yNew)^1 * (psi+1) - 1 reduces to XNew/yNew, so XNew = X + delta holds
	// exactly rather than through the power formula.
	psiNew := xNew.Quo(principalNew)

	return finishSwap(psiNew, xNew, principalNew, principal, liquidPrincipal, params)
}

// finishSwap applies the utilization band and liquidity checks shared by the
// general and settlement paths.
func finishSwap(
	psiNew, shadowReserveNew, principalNew, principal, liquidPrincipal math.LegacyDec,
	params types.Params,
) (*SwapResult, error) {
	if psiNew.LT(params.Pricing.PsiMin) || psiNew.GT(params.Pricing.PsiMax) {
		return nil, types.ErrRateOutOfBounds.Wrapf("utilization %s outside [%s, %s]",
			psiNew, params.Pricing.PsiMin, params.Pricing.PsiMax)
	}

	cashDelta := principalNew.Sub(principal)
	if cashDelta.IsNegative() {
		// Cash leaves the pool: vault-held principal cannot be lent out.
		outflow := cashDelta.Neg()
		if liquidPrincipal.LT(outflow) {
			return nil, types.ErrInsufficientLiquidPrincipal.Wrapf("need %s liquid, have %s", outflow, liquidPrincipal)
		}
	}

	return &SwapResult{
		ShadowReserveNew: shadowReserveNew,
		PrincipalNew:     principalNew,
		CashDelta:        cashDelta,
		PsiNew:           psiNew,
	}, nil
}

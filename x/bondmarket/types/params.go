package types

import (
	"fmt"

	"cosmossdk.io/math"
)

// CurveParams holds the Nelson-Siegel term-structure coefficients.
type CurveParams struct {
	// Beta0 is the long-run level.
	Beta0 math.LegacyDec `json:"beta0"`
	// Beta1 is the short-end slope.
	Beta1 math.LegacyDec `json:"beta1"`
	// Beta2 is the mid-curve curvature hump.
	Beta2 math.LegacyDec `json:"beta2"`
	// DecayTimescale is lambda, in seconds.
	DecayTimescale int64 `json:"decay_timescale"`
}

// PricingParams bounds the invariant solver.
type PricingParams struct {
	// Kappa is the rate-sensitivity coefficient.
	Kappa math.LegacyDec `json:"kappa"`
	// TauMin/TauMax bound tradeable time-to-maturity, in seconds.
	TauMin int64 `json:"tau_min"`
	TauMax int64 `json:"tau_max"`
	// PsiMin/PsiMax bound the utilization ratio after a trade.
	PsiMin math.LegacyDec `json:"psi_min"`
	PsiMax math.LegacyDec `json:"psi_max"`
}

// SolvencyParams weight the risk-adjusted equity floor.
type SolvencyParams struct {
	// WeightTimescale is lambda_w, in seconds.
	WeightTimescale int64 `json:"weight_timescale"`
	// BorrowerHaircut is eta_b: far-dated borrower notional is trusted less.
	BorrowerHaircut math.LegacyDec `json:"borrower_haircut"`
	// LenderPremium is eta_l: far-dated lender claims weigh heavier.
	LenderPremium math.LegacyDec `json:"lender_premium"`
	// VaultWeight haircuts the vault's equity contribution (0..1).
	VaultWeight math.LegacyDec `json:"vault_weight"`
	// FloorPerShare is rho, the minimum risk equity per LP share.
	FloorPerShare math.LegacyDec `json:"floor_per_share"`
}

// Params is the immutable pool configuration, set at construction.
type Params struct {
	Curve    CurveParams    `json:"curve"`
	Pricing  PricingParams  `json:"pricing"`
	Solvency SolvencyParams `json:"solvency"`
}

// DefaultParams returns the reference configuration
func DefaultParams() Params {
	return Params{
		Curve: CurveParams{
			Beta0:          math.LegacyMustNewDecFromStr("0.05"),  // 5%
			Beta1:          math.LegacyMustNewDecFromStr("-0.02"), // -2%
			Beta2:          math.LegacyMustNewDecFromStr("0.01"),  // 1%
			DecayTimescale: 2 * SecondsPerYear,
		},
		Pricing: PricingParams{
			Kappa:  math.LegacyMustNewDecFromStr("0.5"),
			TauMin: 3600,                // 1 hour
			TauMax: 10 * SecondsPerYear, // 10 years
			PsiMin: math.LegacyMustNewDecFromStr("0.1"),
			PsiMax: math.LegacyMustNewDecFromStr("10"),
		},
		Solvency: SolvencyParams{
			WeightTimescale: SecondsPerYear,
			BorrowerHaircut: math.LegacyMustNewDecFromStr("0.2"),
			LenderPremium:   math.LegacyMustNewDecFromStr("0.1"),
			VaultWeight:     math.LegacyOneDec(),
			FloorPerShare:   math.LegacyZeroDec(),
		},
	}
}

// Validate checks parameter consistency
func (p Params) Validate() error {
	if p.Curve.DecayTimescale <= 0 {
		return fmt.Errorf("curve decay timescale must be positive, got %d", p.Curve.DecayTimescale)
	}
	if p.Pricing.Kappa.IsNil() || p.Pricing.Kappa.IsNegative() {
		return fmt.Errorf("kappa must be non-negative, got %s", p.Pricing.Kappa)
	}
	if p.Pricing.TauMin < 0 || p.Pricing.TauMax <= p.Pricing.TauMin {
		return fmt.Errorf("invalid tau band [%d, %d]", p.Pricing.TauMin, p.Pricing.TauMax)
	}
	if p.Pricing.PsiMin.IsNil() || !p.Pricing.PsiMin.IsPositive() {
		return fmt.Errorf("psi min must be positive, got %s", p.Pricing.PsiMin)
	}
	if p.Pricing.PsiMax.LTE(p.Pricing.PsiMin) {
		return fmt.Errorf("psi max %s must exceed psi min %s", p.Pricing.PsiMax, p.Pricing.PsiMin)
	}
	if p.Solvency.WeightTimescale <= 0 {
		return fmt.Errorf("solvency weight timescale must be positive, got %d", p.Solvency.WeightTimescale)
	}
	if p.Solvency.BorrowerHaircut.IsNegative() || p.Solvency.BorrowerHaircut.GT(math.LegacyOneDec()) {
		return fmt.Errorf("borrower haircut must be in [0, 1], got %s", p.Solvency.BorrowerHaircut)
	}
	if p.Solvency.LenderPremium.IsNegative() {
		return fmt.Errorf("lender premium must be non-negative, got %s", p.Solvency.LenderPremium)
	}
	if p.Solvency.VaultWeight.IsNegative() || p.Solvency.VaultWeight.GT(math.LegacyOneDec()) {
		return fmt.Errorf("vault weight must be in [0, 1], got %s", p.Solvency.VaultWeight)
	}
	if p.Solvency.FloorPerShare.IsNegative() {
		return fmt.Errorf("floor per share must be non-negative, got %s", p.Solvency.FloorPerShare)
	}
	return nil
}

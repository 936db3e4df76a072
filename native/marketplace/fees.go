package marketplace

import "math/big"

var bpDenom = big.NewInt(basisPointDenominator)

// FeeInputs are the settlement-time parameters of the platform fee
// computation. The maker is always the resting side; the taker is the party
// whose signature triggered the settlement.
type FeeInputs struct {
	Price *big.Int
	// MakerFeeBp may be negative: a rebate funded out of the taker fee.
	MakerFeeBp int16
	TakerFeeBp uint16
	// SellerIsTaker flips fee attribution: the seller receives the full
	// price plus the maker rebate and pays the platform fee out of pocket.
	SellerIsTaker bool
}

// FeeBreakdown is the result of the platform fee computation.
type FeeBreakdown struct {
	// MakerFee is negative when the maker rate is a rebate.
	MakerFee *big.Int
	TakerFee *big.Int
	// SellerReceives is the amount paid to the seller for the asset.
	SellerReceives *big.Int
	// PlatformFeeTotal is MakerFee plus TakerFee, paid by the taker (or the
	// designated payer). Never negative for valid rate bounds.
	PlatformFeeTotal *big.Int
}

// ValidateFeeBps checks the platform rate bounds: the taker rate within
// [0, MaxTakerFeeBp], the maker rate within [-TakerFeeBp, MaxMakerFeeBp].
func ValidateFeeBps(makerFeeBp int16, takerFeeBp uint16) error {
	if takerFeeBp > MaxTakerFeeBp {
		return ErrInvalidPlatformFeeBp
	}
	if makerFeeBp > MaxMakerFeeBp || int32(makerFeeBp) < -int32(takerFeeBp) {
		return ErrInvalidPlatformFeeBp
	}
	return nil
}

// ValidatePrice checks a price against (0, MaxPrice].
func ValidatePrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if price.Cmp(new(big.Int).SetUint64(MaxPrice)) > 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ComputeFees derives the platform fee legs for one settlement. Fee products
// truncate toward zero, which matters for negative maker rates.
func ComputeFees(in FeeInputs) (FeeBreakdown, error) {
	if err := ValidatePrice(in.Price); err != nil {
		return FeeBreakdown{}, err
	}
	if err := ValidateFeeBps(in.MakerFeeBp, in.TakerFeeBp); err != nil {
		return FeeBreakdown{}, err
	}
	makerFee := new(big.Int).Mul(in.Price, big.NewInt(int64(in.MakerFeeBp)))
	makerFee.Quo(makerFee, bpDenom)
	takerFee := new(big.Int).Mul(in.Price, new(big.Int).SetUint64(uint64(in.TakerFeeBp)))
	takerFee.Quo(takerFee, bpDenom)

	sellerReceives := new(big.Int).Set(in.Price)
	if in.SellerIsTaker {
		sellerReceives.Add(sellerReceives, makerFee)
	} else {
		sellerReceives.Sub(sellerReceives, makerFee)
	}
	if sellerReceives.Sign() < 0 {
		return FeeBreakdown{}, ErrNumericalOverflow
	}
	total := new(big.Int).Add(makerFee, takerFee)
	if total.Sign() < 0 {
		return FeeBreakdown{}, ErrNumericalOverflow
	}
	return FeeBreakdown{
		MakerFee:         makerFee,
		TakerFee:         takerFee,
		SellerReceives:   sellerReceives,
		PlatformFeeTotal: total,
	}, nil
}

// ComputeRoyalty derives the creator royalty total: the seller-declared rate
// applied to the price, then scaled by the buyer's declared participation,
// flooring at each step.
func ComputeRoyalty(price *big.Int, royaltyBp uint16, buyerRoyaltyBp uint16) (*big.Int, error) {
	if royaltyBp > basisPointDenominator || buyerRoyaltyBp > basisPointDenominator {
		return nil, ErrInvalidBasisPoints
	}
	full := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(royaltyBp)))
	full.Quo(full, bpDenom)
	full.Mul(full, new(big.Int).SetUint64(uint64(buyerRoyaltyBp)))
	full.Quo(full, bpDenom)
	return full, nil
}

// SplitRoyalty divides a royalty total across creators by whole-percent
// share, flooring each cut. Flooring dust stays with the payer rather than
// being redistributed.
func SplitRoyalty(total *big.Int, creators []Creator) []*big.Int {
	out := make([]*big.Int, len(creators))
	hundred := big.NewInt(100)
	for i, c := range creators {
		cut := new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(c.Share)))
		cut.Quo(cut, hundred)
		out[i] = cut
	}
	return out
}

// ReferralFee is the referral cut of the price at rate bp, truncated.
func ReferralFee(price *big.Int, bp uint16) *big.Int {
	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(bp)))
	return fee.Quo(fee, bpDenom)
}

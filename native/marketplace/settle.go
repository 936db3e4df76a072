package marketplace

import (
	"math/big"

	nativecommon "github.com/me-foundation/m2/native/common"
)

// ExecuteSaleParams identifies the matched listing and bid and carries the
// settlement-time fee rates.
type ExecuteSaleParams struct {
	MarketplaceID [32]byte
	Buyer         [20]byte
	Seller        [20]byte
	AssetMint     [32]byte
	PaymentMint   [32]byte
	Price         *big.Int
	Size          uint64
	// MakerFeeBp and TakerFeeBp only take effect when the marketplace
	// notary co-signs; otherwise the platform defaults apply.
	MakerFeeBp int16
	TakerFeeBp uint16
	// Creators are the royalty payout destinations, in registry order.
	Creators [][20]byte
	// Payer overrides who pays the platform fee and settlement rent;
	// defaults to the taker.
	Payer   *[20]byte
	Signers Signers
}

// SaleReceipt reports every money leg of a completed settlement.
type SaleReceipt struct {
	MarketplaceID    [32]byte
	Buyer            [20]byte
	Seller           [20]byte
	AssetMint        [32]byte
	PaymentMint      [32]byte
	Price            *big.Int
	MakerFee         *big.Int
	TakerFee         *big.Int
	PlatformFee      *big.Int
	BuyerReferralFee *big.Int
	SellerReferralFee *big.Int
	TreasuryFee      *big.Int
	RoyaltyPaid      *big.Int
	SellerReceives   *big.Int
}

// ExecuteSale settles a matched listing and bid: it pays the seller and the
// creators out of the buyer's escrow, collects the platform fee from the
// taker, hands the asset to the buyer and retires both records. All steps
// land atomically or not at all.
func (e *Engine) ExecuteSale(p ExecuteSaleParams) (*SaleReceipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	buyerSigned := p.Signers.Signed(p.Buyer)
	sellerSigned := p.Signers.Signed(p.Seller)
	if !buyerSigned && !sellerSigned {
		return nil, ErrSaleRequiresSigner
	}
	if err := ValidatePrice(p.Price); err != nil {
		return nil, err
	}
	if err := ValidateFeeBps(p.MakerFeeBp, p.TakerFeeBp); err != nil {
		return nil, err
	}
	sellerIsTaker := sellerSigned && !buyerSigned
	taker := p.Buyer
	if sellerIsTaker {
		taker = p.Seller
	}
	payer := taker
	if p.Payer != nil {
		payer = *p.Payer
		if !p.Signers.Signed(payer) {
			return nil, ErrNoValidSigner
		}
	}

	st, store, ledger, custodian, err := e.begin()
	if err != nil {
		return nil, err
	}
	m, err := e.marketplace(st, p.MarketplaceID)
	if err != nil {
		return nil, err
	}

	sellKey := SellOrderKey(p.MarketplaceID, p.Seller, p.AssetMint, p.PaymentMint)
	buyKey := BuyOrderKey(p.MarketplaceID, p.Buyer, p.AssetMint, p.PaymentMint)
	sell, err := store.ReadSellOrder(sellKey)
	if err == ErrEmptyTradeState {
		return nil, ErrBothPartiesNeedToAgree
	}
	if err != nil {
		return nil, err
	}
	bid, err := store.ReadBuyOrder(buyKey)
	if err == ErrEmptyTradeState {
		return nil, ErrBothPartiesNeedToAgree
	}
	if err != nil {
		return nil, err
	}

	if sell.Price.Cmp(p.Price) != 0 || bid.Price.Cmp(p.Price) != 0 {
		return nil, ErrBothPartiesNeedToAgree
	}
	if sell.Size != p.Size || bid.Size != p.Size || p.Size == 0 {
		return nil, ErrBothPartiesNeedToAgree
	}
	if sell.AssetMint != p.AssetMint || bid.AssetMint != p.AssetMint {
		return nil, ErrBothPartiesNeedToAgree
	}
	if sell.PaymentMint != p.PaymentMint || bid.PaymentMint != p.PaymentMint {
		return nil, ErrBothPartiesNeedToAgree
	}
	now := e.now()
	if sell.ExpiryAt > 0 && now > sell.ExpiryAt {
		return nil, ErrInvalidExpiry
	}
	if bid.ExpiryAt > 0 && now > bid.ExpiryAt {
		return nil, ErrInvalidExpiry
	}

	holding, ok, err := st.TokenAccountGet(sell.HoldingAccount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUninitializedAccount
	}
	strategy := custodian.DetectStrategy(holding)
	if strategy == StrategyNone {
		return nil, ErrInvalidAccountState
	}

	escrow := EscrowAddress(p.MarketplaceID, p.Buyer)

	royaltyPaid, err := e.payRoyalties(ledger, custodian, strategy, sell, bid, p.Creators, escrow, payer)
	if err != nil {
		return nil, err
	}

	makerBp, takerBp := effectiveFeeBps(m, p.Signers, p.MakerFeeBp, p.TakerFeeBp)
	fees, err := ComputeFees(FeeInputs{
		Price:         p.Price,
		MakerFeeBp:    makerBp,
		TakerFeeBp:    takerBp,
		SellerIsTaker: sellerIsTaker,
	})
	if err != nil {
		return nil, err
	}

	if err := ledger.Pay(PayParams{
		Mint:   p.PaymentMint,
		Source: escrow,
		Dest:   p.Seller,
		Payer:  payer,
		Amount: fees.SellerReceives,
	}); err != nil {
		return nil, err
	}

	// The platform fee comes from the buyer's escrow unless the seller took
	// the sale, in which case the payer covers it out of pocket.
	feeSource := escrow
	if sellerIsTaker {
		feeSource = payer
	}
	buyerRef, sellerRef, treasuryFee, err := e.payPlatformFee(ledger, m, sell, bid, fees.PlatformFeeTotal, feeSource, payer, p.PaymentMint)
	if err != nil {
		return nil, err
	}

	if err := custodian.Settle(sell, p.Buyer, payer); err != nil {
		return nil, err
	}

	if err := store.Retire(sellKey, p.Seller); err != nil {
		return nil, err
	}
	if err := store.Retire(buyKey, p.Buyer); err != nil {
		return nil, err
	}
	if p.PaymentMint == NativeMint {
		if err := e.tryCloseEscrow(ledger, escrow, p.Buyer); err != nil {
			return nil, err
		}
	}

	receipt := &SaleReceipt{
		MarketplaceID:     p.MarketplaceID,
		Buyer:             p.Buyer,
		Seller:            p.Seller,
		AssetMint:         p.AssetMint,
		PaymentMint:       p.PaymentMint,
		Price:             new(big.Int).Set(p.Price),
		MakerFee:          fees.MakerFee,
		TakerFee:          fees.TakerFee,
		PlatformFee:       fees.PlatformFeeTotal,
		BuyerReferralFee:  buyerRef,
		SellerReferralFee: sellerRef,
		TreasuryFee:       treasuryFee,
		RoyaltyPaid:       royaltyPaid,
		SellerReceives:    fees.SellerReceives,
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	e.emit(newSaleExecutedEvent(receipt))
	return receipt, nil
}

// payRoyalties distributes the creator royalty out of the buyer's escrow.
// Native cuts that would leave a destination below its viable minimum are
// skipped rather than redistributed; token cuts only skip when zero.
func (e *Engine) payRoyalties(ledger *Ledger, custodian *Custodian, strategy CustodyStrategy, sell *SellOrder, bid *BuyOrder, creators [][20]byte, escrow, payer [20]byte) (*big.Int, error) {
	paid := big.NewInt(0)
	if e.royalties == nil {
		return paid, nil
	}
	info, ok, err := e.royalties.RoyaltyInfo(sell.AssetMint)
	if err != nil {
		return nil, err
	}
	if !ok || len(info.Creators) == 0 {
		return paid, nil
	}
	royaltyBp := custodian.RoyaltyBpFor(strategy, sell.Price, info.RoyaltyBp)
	total, err := ComputeRoyalty(sell.Price, royaltyBp, bid.RoyaltyBp)
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return paid, nil
	}
	if len(creators) < len(info.Creators) {
		return nil, ErrMissingCreatorAccount
	}
	cuts := SplitRoyalty(total, info.Creators)
	floor := new(big.Int).SetUint64(MinViableBalance)
	for i, c := range info.Creators {
		if creators[i] != c.Address {
			return nil, ErrPublicKeyMismatch
		}
		cut := cuts[i]
		if cut.Sign() == 0 {
			continue
		}
		if sell.PaymentMint == NativeMint {
			bal, err := ledger.NativeBalance(c.Address)
			if err != nil {
				return nil, err
			}
			if new(big.Int).Add(bal, cut).Cmp(floor) < 0 {
				continue
			}
		}
		if err := ledger.Pay(PayParams{
			Mint:   sell.PaymentMint,
			Source: escrow,
			Dest:   c.Address,
			Payer:  payer,
			Amount: cut,
		}); err != nil {
			return nil, err
		}
		paid.Add(paid, cut)
	}
	return paid, nil
}

// payPlatformFee splits the platform fee into referral cuts and the treasury
// remainder. Referral cuts are capped so the three legs always sum to the
// platform fee exactly.
func (e *Engine) payPlatformFee(ledger *Ledger, m *Marketplace, sell *SellOrder, bid *BuyOrder, total *big.Int, source, payer [20]byte, paymentMint [32]byte) (*big.Int, *big.Int, *big.Int, error) {
	zero := big.NewInt(0)
	if total.Sign() == 0 {
		return zero, zero, zero, nil
	}
	remaining := new(big.Int).Set(total)
	buyerRef := big.NewInt(0)
	if bid.BuyerReferral != ([20]byte{}) && m.BuyerReferralBp > 0 {
		buyerRef = ReferralFee(sell.Price, m.BuyerReferralBp)
		if buyerRef.Cmp(remaining) > 0 {
			buyerRef.Set(remaining)
		}
		remaining.Sub(remaining, buyerRef)
	}
	sellerRef := big.NewInt(0)
	if sell.SellerReferral != ([20]byte{}) && m.SellerReferralBp > 0 {
		sellerRef = ReferralFee(sell.Price, m.SellerReferralBp)
		if sellerRef.Cmp(remaining) > 0 {
			sellerRef.Set(remaining)
		}
		remaining.Sub(remaining, sellerRef)
	}
	if buyerRef.Sign() > 0 {
		if err := ledger.Pay(PayParams{Mint: paymentMint, Source: source, Dest: bid.BuyerReferral, Payer: payer, Amount: buyerRef}); err != nil {
			return nil, nil, nil, err
		}
	}
	if sellerRef.Sign() > 0 {
		if err := ledger.Pay(PayParams{Mint: paymentMint, Source: source, Dest: sell.SellerReferral, Payer: payer, Amount: sellerRef}); err != nil {
			return nil, nil, nil, err
		}
	}
	if remaining.Sign() > 0 {
		if err := ledger.Pay(PayParams{Mint: paymentMint, Source: source, Dest: m.Treasury, Payer: payer, Amount: remaining}); err != nil {
			return nil, nil, nil, err
		}
	}
	return buyerRef, sellerRef, remaining, nil
}

package marketplace

import (
	"fmt"
	"math/big"
	"time"

	"github.com/me-foundation/m2/core/events"
	"github.com/me-foundation/m2/core/types"
	nativecommon "github.com/me-foundation/m2/native/common"
)

// moduleName keys the operator pause switch. Exits (cancels, withdrawals)
// stay open while paused; only new exposure is blocked.
const moduleName = "marketplace"

// Engine is the marketplace settlement engine. Every operation runs against
// a copy-on-write overlay of the configured state and commits only after the
// last step succeeded, so a failure anywhere leaves no partial effects.
type Engine struct {
	state     State
	royalties RoyaltyRegistry
	policy    LockPolicy
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	nowFn     func() int64
}

// NewEngine returns an engine with no state bound yet.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState binds the persistence backend.
func (e *Engine) SetState(st State) { e.state = st }

// SetRoyaltyRegistry binds the royalty resolver used at settlement.
func (e *Engine) SetRoyaltyRegistry(r RoyaltyRegistry) { e.royalties = r }

// SetLockPolicy binds the transfer policy hook for policy-locked assets.
func (e *Engine) SetLockPolicy(p LockPolicy) { e.policy = p }

// SetEmitter overrides the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPauses binds the operator pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the clock, primarily for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now != nil {
		e.nowFn = now
	}
}

func (e *Engine) now() int64 { return e.nowFn() }

func (e *Engine) emit(evt *types.Event) {
	if evt == nil {
		return
	}
	e.emitter.Emit(marketplaceEvent{evt: evt})
}

func (e *Engine) begin() (*stagedState, *RecordStore, *Ledger, *Custodian, error) {
	if e.state == nil {
		return nil, nil, nil, nil, fmt.Errorf("marketplace: engine state not configured")
	}
	st := stage(e.state)
	ledger := &Ledger{state: st}
	return st, &RecordStore{state: st}, ledger, &Custodian{ledger: ledger, policy: e.policy}, nil
}

func (e *Engine) marketplace(st State, id [32]byte) (*Marketplace, error) {
	m, ok, err := st.MarketplaceGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMarketplaceNotFound
	}
	return m, nil
}

// CreateMarketplaceParams configures a new marketplace.
type CreateMarketplaceParams struct {
	Creator                       [20]byte
	Authority                     [20]byte
	Notary                        [20]byte
	TreasuryWithdrawalDestination [20]byte
	SellerFeeBp                   uint16
	BuyerReferralBp               uint16
	SellerReferralBp              uint16
	RequiresNotary                bool
	NotaryEnforcePct              uint8
	Signers                       Signers
}

// CreateMarketplace registers a marketplace config for the creator. One
// config exists per creator key.
func (e *Engine) CreateMarketplace(p CreateMarketplaceParams) (*Marketplace, error) {
	if !p.Signers.Signed(p.Creator) {
		return nil, ErrNoValidSigner
	}
	if p.SellerFeeBp > basisPointDenominator || p.BuyerReferralBp > basisPointDenominator || p.SellerReferralBp > basisPointDenominator {
		return nil, ErrInvalidBasisPoints
	}
	if uint32(p.BuyerReferralBp)+uint32(p.SellerReferralBp) > uint32(p.SellerFeeBp) {
		return nil, ErrInvalidBasisPoints
	}
	if p.NotaryEnforcePct > 100 {
		return nil, ErrInvalidBasisPoints
	}
	st, _, _, _, err := e.begin()
	if err != nil {
		return nil, err
	}
	id := MarketplaceKey(p.Creator)
	if _, ok, err := st.MarketplaceGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMarketplaceExists
	}
	authority := p.Authority
	if authority == ([20]byte{}) {
		authority = p.Creator
	}
	dest := p.TreasuryWithdrawalDestination
	if dest == ([20]byte{}) {
		dest = p.Creator
	}
	m := &Marketplace{
		ID:                            id,
		Creator:                       p.Creator,
		Authority:                     authority,
		Notary:                        p.Notary,
		Treasury:                      TreasuryAddress(id),
		TreasuryWithdrawalDestination: dest,
		SellerFeeBp:                   p.SellerFeeBp,
		BuyerReferralBp:               p.BuyerReferralBp,
		SellerReferralBp:              p.SellerReferralBp,
		RequiresNotary:                p.RequiresNotary,
		NotaryEnforcePct:              p.NotaryEnforcePct,
	}
	if err := st.MarketplacePut(m); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	e.emit(newMarketplaceCreatedEvent(m))
	return m.Clone(), nil
}

// UpdateMarketplaceParams carries the optional config rotations; nil fields
// stay unchanged.
type UpdateMarketplaceParams struct {
	MarketplaceID                 [32]byte
	Authority                     *[20]byte
	Notary                        *[20]byte
	TreasuryWithdrawalDestination *[20]byte
	SellerFeeBp                   *uint16
	BuyerReferralBp               *uint16
	SellerReferralBp              *uint16
	RequiresNotary                *bool
	NotaryEnforcePct              *uint8
	Signers                       Signers
}

// UpdateMarketplace rotates config fields. Only the current authority may
// call it.
func (e *Engine) UpdateMarketplace(p UpdateMarketplaceParams) (*Marketplace, error) {
	st, _, _, _, err := e.begin()
	if err != nil {
		return nil, err
	}
	m, err := e.marketplace(st, p.MarketplaceID)
	if err != nil {
		return nil, err
	}
	if !p.Signers.Signed(m.Authority) {
		return nil, ErrNoValidSigner
	}
	if p.Authority != nil {
		m.Authority = *p.Authority
	}
	if p.Notary != nil {
		m.Notary = *p.Notary
	}
	if p.TreasuryWithdrawalDestination != nil {
		m.TreasuryWithdrawalDestination = *p.TreasuryWithdrawalDestination
	}
	if p.SellerFeeBp != nil {
		if *p.SellerFeeBp > basisPointDenominator {
			return nil, ErrInvalidBasisPoints
		}
		m.SellerFeeBp = *p.SellerFeeBp
	}
	if p.BuyerReferralBp != nil {
		if *p.BuyerReferralBp > basisPointDenominator {
			return nil, ErrInvalidBasisPoints
		}
		m.BuyerReferralBp = *p.BuyerReferralBp
	}
	if p.SellerReferralBp != nil {
		if *p.SellerReferralBp > basisPointDenominator {
			return nil, ErrInvalidBasisPoints
		}
		m.SellerReferralBp = *p.SellerReferralBp
	}
	if p.RequiresNotary != nil {
		m.RequiresNotary = *p.RequiresNotary
	}
	if p.NotaryEnforcePct != nil {
		if *p.NotaryEnforcePct > 100 {
			return nil, ErrInvalidBasisPoints
		}
		m.NotaryEnforcePct = *p.NotaryEnforcePct
	}
	if uint32(m.BuyerReferralBp)+uint32(m.SellerReferralBp) > uint32(m.SellerFeeBp) {
		return nil, ErrInvalidBasisPoints
	}
	if err := st.MarketplacePut(m); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	e.emit(newMarketplaceUpdatedEvent(m))
	return m.Clone(), nil
}

// Deposit moves funds from the payer into the wallet's escrow payment
// account for the marketplace. Native deposits always leave the escrow at or
// above its viable minimum.
func (e *Engine) Deposit(marketplaceID [32]byte, wallet [20]byte, payer *[20]byte, mint [32]byte, amount *big.Int, sig Signers) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if !sig.Signed(wallet) {
		return ErrNoValidSigner
	}
	from := wallet
	if payer != nil {
		from = *payer
		if !sig.Signed(from) {
			return ErrNoValidSigner
		}
	}
	st, _, ledger, _, err := e.begin()
	if err != nil {
		return err
	}
	if _, err := e.marketplace(st, marketplaceID); err != nil {
		return err
	}
	escrow := EscrowAddress(marketplaceID, wallet)
	moved := new(big.Int).Set(amount)
	if mint == NativeMint {
		bal, err := ledger.NativeBalance(escrow)
		if err != nil {
			return err
		}
		floor := new(big.Int).SetUint64(MinViableBalance)
		if need := new(big.Int).Sub(floor, new(big.Int).Add(bal, moved)); need.Sign() > 0 {
			moved.Add(moved, need)
		}
		if err := ledger.TransferNative(from, escrow, moved); err != nil {
			return err
		}
	} else {
		if err := ledger.Pay(PayParams{Mint: mint, Source: from, Dest: escrow, Payer: from, Amount: moved}); err != nil {
			return err
		}
	}
	if err := st.Commit(); err != nil {
		return err
	}
	e.emit(newEscrowEvent(EventTypeEscrowDeposited, marketplaceID, wallet, mint, moved))
	return nil
}

// Withdraw moves funds from the wallet's escrow back to the wallet. Either
// the wallet or the marketplace authority may sign. Native withdrawals are
// capped at the escrow balance, and a residual at or below the viable
// minimum is swept out with them.
func (e *Engine) Withdraw(marketplaceID [32]byte, wallet [20]byte, mint [32]byte, amount *big.Int, sig Signers) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidPrice
	}
	st, _, ledger, _, err := e.begin()
	if err != nil {
		return err
	}
	m, err := e.marketplace(st, marketplaceID)
	if err != nil {
		return err
	}
	if !sig.Signed(wallet) && !sig.Signed(m.Authority) {
		return ErrNoValidSigner
	}
	escrow := EscrowAddress(marketplaceID, wallet)
	moved := new(big.Int).Set(amount)
	if mint == NativeMint {
		bal, err := ledger.NativeBalance(escrow)
		if err != nil {
			return err
		}
		if moved.Cmp(bal) > 0 {
			moved.Set(bal)
		}
		if err := ledger.TransferNative(escrow, wallet, moved); err != nil {
			return err
		}
		if err := e.tryCloseEscrow(ledger, escrow, wallet); err != nil {
			return err
		}
	} else {
		if err := ledger.Pay(PayParams{Mint: mint, Source: escrow, Dest: wallet, Payer: wallet, Amount: moved}); err != nil {
			return err
		}
	}
	if err := st.Commit(); err != nil {
		return err
	}
	e.emit(newEscrowEvent(EventTypeEscrowWithdrawn, marketplaceID, wallet, mint, moved))
	return nil
}

// tryCloseEscrow sweeps a native escrow residual at or below the viable
// minimum back to the wallet so no dust account lingers.
func (e *Engine) tryCloseEscrow(ledger *Ledger, escrow, wallet [20]byte) error {
	bal, err := ledger.NativeBalance(escrow)
	if err != nil {
		return err
	}
	if bal.Sign() <= 0 || bal.Cmp(new(big.Int).SetUint64(MinViableBalance)) > 0 {
		return nil
	}
	return ledger.TransferNative(escrow, wallet, bal)
}

// ListParams describes a listing request.
type ListParams struct {
	MarketplaceID  [32]byte
	Seller         [20]byte
	SellerReferral [20]byte
	AssetMint      [32]byte
	PaymentMint    [32]byte
	Price          *big.Int
	Size           uint64
	// ExpiryAt is a unix time; zero means no expiry.
	ExpiryAt int64
	Custody  CustodyMode
	// Payer covers record rent; defaults to the seller.
	Payer   *[20]byte
	Signers Signers
}

// List creates a listing, taking custody of the asset, or re-prices an
// existing one in place. A legacy record under the same key is migrated as
// part of the write.
func (e *Engine) List(p ListParams) (*SellOrder, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !p.Signers.Signed(p.Seller) {
		return nil, ErrNoValidSigner
	}
	if err := ValidatePrice(p.Price); err != nil {
		return nil, err
	}
	if p.Size == 0 {
		return nil, ErrInvalidSize
	}
	now := e.now()
	if p.ExpiryAt < 0 || (p.ExpiryAt > 0 && p.ExpiryAt <= now) {
		return nil, ErrInvalidExpiry
	}
	payer := p.Seller
	if p.Payer != nil {
		payer = *p.Payer
		if !p.Signers.Signed(payer) {
			return nil, ErrNoValidSigner
		}
	}
	st, store, _, custodian, err := e.begin()
	if err != nil {
		return nil, err
	}
	m, err := e.marketplace(st, p.MarketplaceID)
	if err != nil {
		return nil, err
	}
	if err := assertValidNotary(m, p.Signers, now); err != nil {
		return nil, err
	}
	key := SellOrderKey(p.MarketplaceID, p.Seller, p.AssetMint, p.PaymentMint)
	existing, err := store.ReadSellOrder(key)
	if err != nil && err != ErrEmptyTradeState {
		return nil, err
	}

	order := &SellOrder{
		MarketplaceID:  p.MarketplaceID,
		Seller:         p.Seller,
		SellerReferral: p.SellerReferral,
		AssetMint:      p.AssetMint,
		PaymentMint:    p.PaymentMint,
		Price:          new(big.Int).Set(p.Price),
		Size:           p.Size,
		ExpiryAt:       p.ExpiryAt,
		Custody:        p.Custody,
	}
	if existing != nil {
		// Re-list in place: custody must still be in force and the
		// quantity cannot change under the live record.
		if p.Size != existing.Size {
			return nil, ErrInvalidSize
		}
		holding, ok, err := st.TokenAccountGet(existing.HoldingAccount)
		if err != nil {
			return nil, err
		}
		if !ok || custodian.DetectStrategy(holding) == StrategyNone {
			return nil, ErrInvalidAccountState
		}
		order.HoldingAccount = existing.HoldingAccount
		order.Custody = existing.Custody
	} else {
		holdingAddr, err := custodian.Take(p.Seller, p.AssetMint, p.Size, p.Custody, payer)
		if err != nil {
			return nil, err
		}
		order.HoldingAccount = holdingAddr
	}
	_, migrated, err := store.WriteSellOrder(key, order, payer)
	if err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	if migrated {
		e.emit(newRecordMigratedEvent(key, "sell_order"))
	}
	e.emit(newListedEvent(key, order))
	return order.Clone(), nil
}

// CancelListParams names the listing to retire plus the terms the caller
// believes it carries; they must match the record.
type CancelListParams struct {
	MarketplaceID [32]byte
	Seller        [20]byte
	AssetMint     [32]byte
	PaymentMint   [32]byte
	Price         *big.Int
	Size          uint64
	ExpiryAt      int64
	Signers       Signers
}

// CancelList retires a listing and returns the asset to the seller. Beyond
// the seller, the emergency cancel key may always retire it and a co-signing
// notary may under the enforcement draw. A missing or already-retired record
// fails with ErrEmptyTradeState.
func (e *Engine) CancelList(p CancelListParams) error {
	st, store, _, custodian, err := e.begin()
	if err != nil {
		return err
	}
	m, err := e.marketplace(st, p.MarketplaceID)
	if err != nil {
		return err
	}
	key := SellOrderKey(p.MarketplaceID, p.Seller, p.AssetMint, p.PaymentMint)
	order, err := store.ReadSellOrder(key)
	if err != nil {
		return err
	}
	if err := verifyOfferTerms(order.Price, order.Size, order.ExpiryAt, p.Price, p.Size, p.ExpiryAt); err != nil {
		return err
	}
	if !cancelAuthorized(m, p.Seller, p.Signers, e.now()) {
		return ErrNoValidSigner
	}
	if err := custodian.Release(order, p.Seller); err != nil {
		return err
	}
	if err := store.Retire(key, p.Seller); err != nil {
		return err
	}
	if err := st.Commit(); err != nil {
		return err
	}
	e.emit(newOfferCancelledEvent(EventTypeListCancelled, key, p.MarketplaceID, p.Seller, p.AssetMint))
	return nil
}

// verifyOfferTerms checks the caller's view of an offer against the stored
// record before it is retired.
func verifyOfferTerms(price *big.Int, size uint64, expiry int64, wantPrice *big.Int, wantSize uint64, wantExpiry int64) error {
	if wantPrice == nil || price.Cmp(wantPrice) != 0 {
		return ErrInvalidPrice
	}
	if size != wantSize {
		return ErrInvalidSize
	}
	if expiry != wantExpiry {
		return ErrInvalidExpiry
	}
	return nil
}

// BidParams describes a bid request.
type BidParams struct {
	MarketplaceID [32]byte
	Buyer         [20]byte
	BuyerReferral [20]byte
	AssetMint     [32]byte
	PaymentMint   [32]byte
	Price         *big.Int
	Size          uint64
	// ExpiryAt is a unix time; zero applies the default bid expiry.
	ExpiryAt int64
	// RoyaltyBp is the buyer's royalty participation.
	RoyaltyBp uint16
	// Payer funds the escrow top-up and record rent; defaults to the buyer.
	Payer   *[20]byte
	Signers Signers
}

// Bid places or re-prices a bid. Native bids top the buyer's escrow up to
// the bid price; token bids only verify the escrow already carries it.
func (e *Engine) Bid(p BidParams) (*BuyOrder, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !p.Signers.Signed(p.Buyer) {
		return nil, ErrNoValidSigner
	}
	if err := ValidatePrice(p.Price); err != nil {
		return nil, err
	}
	if p.Size == 0 {
		return nil, ErrInvalidSize
	}
	if p.RoyaltyBp > basisPointDenominator {
		return nil, ErrInvalidBasisPoints
	}
	now := e.now()
	expiry := p.ExpiryAt
	if expiry == 0 {
		expiry = now + DefaultBidExpirySeconds
	}
	if expiry < 0 || expiry <= now {
		return nil, ErrInvalidExpiry
	}
	payer := p.Buyer
	if p.Payer != nil {
		payer = *p.Payer
		if !p.Signers.Signed(payer) {
			return nil, ErrNoValidSigner
		}
	}
	st, store, ledger, _, err := e.begin()
	if err != nil {
		return nil, err
	}
	m, err := e.marketplace(st, p.MarketplaceID)
	if err != nil {
		return nil, err
	}
	if err := assertValidNotary(m, p.Signers, now); err != nil {
		return nil, err
	}
	escrow := EscrowAddress(p.MarketplaceID, p.Buyer)
	if p.PaymentMint == NativeMint {
		bal, err := ledger.NativeBalance(escrow)
		if err != nil {
			return nil, err
		}
		if short := new(big.Int).Sub(p.Price, bal); short.Sign() > 0 {
			if err := ledger.TransferNative(payer, escrow, short); err != nil {
				return nil, err
			}
		}
	} else {
		ta, ok, err := ledger.TokenAccount(escrow, p.PaymentMint)
		if err != nil {
			return nil, err
		}
		if !ok || derefOrZero(ta.Amount).Cmp(p.Price) < 0 {
			return nil, ErrInsufficientFunds
		}
	}
	order := &BuyOrder{
		MarketplaceID: p.MarketplaceID,
		Buyer:         p.Buyer,
		BuyerReferral: p.BuyerReferral,
		AssetMint:     p.AssetMint,
		PaymentMint:   p.PaymentMint,
		Price:         new(big.Int).Set(p.Price),
		Size:          p.Size,
		ExpiryAt:      expiry,
		RoyaltyBp:     p.RoyaltyBp,
	}
	key := BuyOrderKey(p.MarketplaceID, p.Buyer, p.AssetMint, p.PaymentMint)
	_, migrated, err := store.WriteBuyOrder(key, order, payer)
	if err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	if migrated {
		e.emit(newRecordMigratedEvent(key, "buy_order"))
	}
	e.emit(newBidPlacedEvent(key, order))
	return order.Clone(), nil
}

// CancelBidParams names the bid to retire plus the terms the caller believes
// it carries; they must match the record.
type CancelBidParams struct {
	MarketplaceID [32]byte
	Buyer         [20]byte
	AssetMint     [32]byte
	PaymentMint   [32]byte
	Price         *big.Int
	Size          uint64
	ExpiryAt      int64
	Signers       Signers
}

// CancelBid retires a bid. Escrowed funds stay in escrow for withdrawal, but
// a native residual at or below the viable minimum is swept back to the
// buyer. A missing or already-retired record fails with ErrEmptyTradeState.
func (e *Engine) CancelBid(p CancelBidParams) error {
	st, store, ledger, _, err := e.begin()
	if err != nil {
		return err
	}
	m, err := e.marketplace(st, p.MarketplaceID)
	if err != nil {
		return err
	}
	key := BuyOrderKey(p.MarketplaceID, p.Buyer, p.AssetMint, p.PaymentMint)
	order, err := store.ReadBuyOrder(key)
	if err != nil {
		return err
	}
	if err := verifyOfferTerms(order.Price, order.Size, order.ExpiryAt, p.Price, p.Size, p.ExpiryAt); err != nil {
		return err
	}
	if !cancelAuthorized(m, p.Buyer, p.Signers, e.now()) {
		return ErrNoValidSigner
	}
	if err := store.Retire(key, p.Buyer); err != nil {
		return err
	}
	if p.PaymentMint == NativeMint {
		if err := e.tryCloseEscrow(ledger, EscrowAddress(p.MarketplaceID, p.Buyer), p.Buyer); err != nil {
			return err
		}
	}
	if err := st.Commit(); err != nil {
		return err
	}
	e.emit(newOfferCancelledEvent(EventTypeBidCancelled, key, p.MarketplaceID, p.Buyer, p.AssetMint))
	return nil
}

// WithdrawFromTreasury sweeps accumulated fees to the configured
// destination. The call is permissionless but must leave the treasury with
// its minimum residual.
func (e *Engine) WithdrawFromTreasury(marketplaceID [32]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidPrice
	}
	st, _, ledger, _, err := e.begin()
	if err != nil {
		return err
	}
	m, err := e.marketplace(st, marketplaceID)
	if err != nil {
		return err
	}
	bal, err := ledger.NativeBalance(m.Treasury)
	if err != nil {
		return err
	}
	rest := new(big.Int).Sub(bal, amount)
	if rest.Cmp(new(big.Int).SetUint64(MinTreasuryResidual)) < 0 {
		return ErrTreasuryResidualTooLow
	}
	if err := ledger.TransferNative(m.Treasury, m.TreasuryWithdrawalDestination, amount); err != nil {
		return err
	}
	if err := st.Commit(); err != nil {
		return err
	}
	e.emit(newTreasuryWithdrawnEvent(marketplaceID, m.TreasuryWithdrawalDestination, amount))
	return nil
}

// Marketplace returns the config record for id.
func (e *Engine) Marketplace(id [32]byte) (*Marketplace, error) {
	if e.state == nil {
		return nil, fmt.Errorf("marketplace: engine state not configured")
	}
	return e.marketplace(e.state, id)
}

// SellOrder returns the live listing for the given identity, if any.
func (e *Engine) SellOrder(marketplaceID [32]byte, seller [20]byte, assetMint, paymentMint [32]byte) (*SellOrder, error) {
	if e.state == nil {
		return nil, fmt.Errorf("marketplace: engine state not configured")
	}
	store := &RecordStore{state: e.state}
	return store.ReadSellOrder(SellOrderKey(marketplaceID, seller, assetMint, paymentMint))
}

// BuyOrder returns the live bid for the given identity, if any.
func (e *Engine) BuyOrder(marketplaceID [32]byte, buyer [20]byte, assetMint, paymentMint [32]byte) (*BuyOrder, error) {
	if e.state == nil {
		return nil, fmt.Errorf("marketplace: engine state not configured")
	}
	store := &RecordStore{state: e.state}
	return store.ReadBuyOrder(BuyOrderKey(marketplaceID, buyer, assetMint, paymentMint))
}

// EscrowBalance returns the wallet's escrowed balance in the given medium.
func (e *Engine) EscrowBalance(marketplaceID [32]byte, wallet [20]byte, mint [32]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, fmt.Errorf("marketplace: engine state not configured")
	}
	ledger := &Ledger{state: e.state}
	escrow := EscrowAddress(marketplaceID, wallet)
	if mint == NativeMint {
		return ledger.NativeBalance(escrow)
	}
	ta, ok, err := ledger.TokenAccount(escrow, mint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return derefOrZero(ta.Amount), nil
}

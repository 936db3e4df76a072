package marketplace

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Network-wide settlement limits. Prices and balances are denominated in the
// smallest native unit; basis points are out of 10_000.
const (
	// MaxPrice caps any listing or bid at 8 million whole units.
	MaxPrice = 8_000_000 * 1_000_000_000

	DefaultMakerFeeBp int16  = 0
	DefaultTakerFeeBp uint16 = 250
	MaxMakerFeeBp     int16  = 500
	MaxTakerFeeBp     uint16 = 500

	// MinViableBalance is the rent floor for a zero-length record. A record
	// or payment account whose balance would drop below its viable minimum
	// cannot be left behind by a settlement step.
	MinViableBalance uint64 = 890_880
	// RentPerByte extends the viable minimum for sized records.
	RentPerByte uint64 = 6_960

	// MinTreasuryResidual is the balance a treasury withdrawal must leave
	// behind so the marketplace config stays funded.
	MinTreasuryResidual uint64 = 1_000_000_000

	// DefaultBidExpirySeconds is applied when a bid is placed with no
	// explicit expiry.
	DefaultBidExpirySeconds int64 = 7 * 24 * 60 * 60

	basisPointDenominator = 10_000

	// tokenAccountSize is the serialized footprint of a holding account,
	// used to price its rent when settlement has to create one.
	tokenAccountSize = 165
)

// CustodyMode records how a listed asset is held for the life of the listing.
type CustodyMode uint8

const (
	// CustodySellerDelegated leaves the asset in the seller's holding
	// account with transfer authority delegated to the engine.
	CustodySellerDelegated CustodyMode = iota
	// CustodyEngineHeld moves the asset (or its ownership) under the
	// engine authority until the listing settles or is cancelled.
	CustodyEngineHeld
)

// CustodyStrategy is the mechanism detected on the ledger at settlement time.
type CustodyStrategy uint8

const (
	// StrategyNone means the asset is not under engine custody at all.
	StrategyNone CustodyStrategy = iota
	// StrategyDirect means the holding account is owned by the engine
	// authority.
	StrategyDirect
	// StrategyDelegated means the seller still owns the holding account but
	// the engine authority holds a transfer delegation over it.
	StrategyDelegated
	// StrategyPolicyLock means the holding account is frozen under an
	// external transfer policy that the engine must unlock through.
	StrategyPolicyLock
)

// NativeMint is the zero mint identifier. Records and transfers carrying it
// settle in the native unit instead of a fungible token.
var NativeMint [32]byte

// Marketplace is the per-market configuration record. One exists per creator
// and every offer references its ID.
type Marketplace struct {
	ID        [32]byte
	Creator   [20]byte
	Authority [20]byte
	Notary    [20]byte
	Treasury  [20]byte
	// TreasuryWithdrawalDestination receives permissionless treasury sweeps.
	TreasuryWithdrawalDestination [20]byte
	// SellerFeeBp is retained from record layout compatibility; fee rates
	// used at settlement arrive with the settlement call.
	SellerFeeBp     uint16
	BuyerReferralBp uint16
	SellerReferralBp uint16
	// RequiresNotary gates listings, bids and owner cancellations behind a
	// notary co-signature, enforced probabilistically.
	RequiresNotary bool
	// NotaryEnforcePct is the enforcement probability in whole percent,
	// 0 to 100.
	NotaryEnforcePct uint8
}

// Clone returns a deep copy.
func (m *Marketplace) Clone() *Marketplace {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// SellOrder is a live listing. HoldingAccount identifies the token account
// the asset sits in while listed; for native-custody markets it is the
// engine-side holding account.
type SellOrder struct {
	MarketplaceID  [32]byte
	Seller         [20]byte
	SellerReferral [20]byte
	AssetMint      [32]byte
	HoldingAccount [32]byte
	Price          *big.Int
	Size           uint64
	// ExpiryAt is the unix time after which the listing is dead; zero means
	// no expiry.
	ExpiryAt int64
	// Custody is how the asset is held while listed.
	Custody CustodyMode
	// PaymentMint is the settlement medium; NativeMint for the native unit.
	PaymentMint [32]byte
	Bump        uint8
	// Version is 1 for legacy records that have not been migrated yet.
	Version uint8
}

// Clone returns a deep copy.
func (o *SellOrder) Clone() *SellOrder {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Price = cloneBigInt(o.Price)
	return &cp
}

// BuyOrder is a live bid. Funds backing it sit in the buyer's escrow payment
// account for the order's marketplace.
type BuyOrder struct {
	MarketplaceID [32]byte
	Buyer         [20]byte
	BuyerReferral [20]byte
	AssetMint     [32]byte
	Price         *big.Int
	Size          uint64
	ExpiryAt      int64
	// RoyaltyBp is the buyer-side royalty participation in basis points:
	// the fraction of the seller-declared royalty the buyer agrees to fund.
	RoyaltyBp   uint16
	PaymentMint [32]byte
	Bump        uint8
	Version     uint8
}

// Clone returns a deep copy.
func (o *BuyOrder) Clone() *BuyOrder {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Price = cloneBigInt(o.Price)
	return &cp
}

// TokenAccount is a fungible or unique asset holding account on the payment
// ledger. A zero Delegate means no delegation is in force.
type TokenAccount struct {
	Address         [32]byte
	Mint            [32]byte
	Owner           [20]byte
	Delegate        [20]byte
	DelegatedAmount *big.Int
	Amount          *big.Int
	// Locked marks accounts frozen under an external transfer policy.
	Locked bool
	// Rent is the native balance parked on the account to keep it viable.
	Rent *big.Int
}

// Clone returns a deep copy.
func (t *TokenAccount) Clone() *TokenAccount {
	if t == nil {
		return nil
	}
	cp := *t
	cp.DelegatedAmount = cloneBigInt(t.DelegatedAmount)
	cp.Amount = cloneBigInt(t.Amount)
	cp.Rent = cloneBigInt(t.Rent)
	return &cp
}

// Creator is one royalty recipient with a whole-percent share. Shares across
// a mint's creator set sum to 100.
type Creator struct {
	Address [20]byte
	Share   uint8
}

// Signers is the set of addresses whose signatures authorize the current
// call.
type Signers struct {
	addrs map[[20]byte]struct{}
}

// NewSigners builds a signer set from the given addresses.
func NewSigners(addrs ...[20]byte) Signers {
	s := Signers{addrs: make(map[[20]byte]struct{}, len(addrs))}
	for _, a := range addrs {
		s.addrs[a] = struct{}{}
	}
	return s
}

// Signed reports whether addr is in the signer set.
func (s Signers) Signed(addr [20]byte) bool {
	_, ok := s.addrs[addr]
	return ok
}

// CancelAuthority is the network-wide emergency cancel key. It may retire any
// offer regardless of marketplace policy.
var CancelAuthority = deriveAddress("m2:cancel_authority")

// EngineAuthority owns engine-held asset accounts and carries delegations on
// seller-held ones.
var EngineAuthority = deriveAddress("m2:signer")

func deriveAddress(seed string) [20]byte {
	var addr [20]byte
	h := ethcrypto.Keccak256([]byte(seed))
	copy(addr[:], h[12:])
	return addr
}

// MarketplaceKey derives the record key for a creator's marketplace config.
func MarketplaceKey(creator [20]byte) [32]byte {
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256([]byte("m2:marketplace"), creator[:]))
	return key
}

// EscrowAddress derives the buyer payment account for a marketplace.
func EscrowAddress(marketplaceID [32]byte, wallet [20]byte) [20]byte {
	var addr [20]byte
	h := ethcrypto.Keccak256([]byte("m2:escrow"), marketplaceID[:], wallet[:])
	copy(addr[:], h[12:])
	return addr
}

// TreasuryAddress derives the fee treasury account for a marketplace.
func TreasuryAddress(marketplaceID [32]byte) [20]byte {
	var addr [20]byte
	h := ethcrypto.Keccak256([]byte("m2:treasury"), marketplaceID[:])
	copy(addr[:], h[12:])
	return addr
}

// SellOrderKey derives the record key for a listing.
func SellOrderKey(marketplaceID [32]byte, seller [20]byte, assetMint [32]byte, paymentMint [32]byte) [32]byte {
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256([]byte("m2:sell_order"), marketplaceID[:], seller[:], assetMint[:], paymentMint[:]))
	return key
}

// BuyOrderKey derives the record key for a bid.
func BuyOrderKey(marketplaceID [32]byte, buyer [20]byte, assetMint [32]byte, paymentMint [32]byte) [32]byte {
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256([]byte("m2:buy_order"), marketplaceID[:], buyer[:], assetMint[:], paymentMint[:]))
	return key
}

// TokenAccountAddress derives the canonical holding account for an owner and
// mint pair.
func TokenAccountAddress(owner [20]byte, mint [32]byte) [32]byte {
	var addr [32]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("m2:token_account"), owner[:], mint[:]))
	return addr
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func derefOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

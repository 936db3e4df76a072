package marketplace

import "errors"

var (
	// ErrMarketplaceNotFound is returned when an operation references a
	// marketplace config that does not exist.
	ErrMarketplaceNotFound = errors.New("marketplace: config not found")
	// ErrMarketplaceExists is returned when creating a config whose key is
	// already occupied.
	ErrMarketplaceExists = errors.New("marketplace: config already exists")
	// ErrUninitializedAccount is returned when a required ledger account is
	// missing.
	ErrUninitializedAccount = errors.New("marketplace: uninitialized account")
	// ErrIncorrectOwner is returned when a holding account is owned by an
	// unexpected party.
	ErrIncorrectOwner = errors.New("marketplace: incorrect account owner")
	// ErrPublicKeyMismatch is returned when a caller-supplied identity does
	// not match the recorded one.
	ErrPublicKeyMismatch = errors.New("marketplace: public key mismatch")
	// ErrNoValidSigner is returned when none of the parties authorized to
	// perform the operation have signed it.
	ErrNoValidSigner = errors.New("marketplace: no valid signer present")
	// ErrSaleRequiresSigner is returned when a settlement carries neither
	// the buyer's nor the seller's signature.
	ErrSaleRequiresSigner = errors.New("marketplace: sale requires a party signature")
	// ErrBothPartiesNeedToAgree is returned when settlement cannot find a
	// live listing and a live bid for the same terms.
	ErrBothPartiesNeedToAgree = errors.New("marketplace: both parties need to agree to the sale")
	// ErrEmptyTradeState is returned when an offer record is absent or has
	// been retired.
	ErrEmptyTradeState = errors.New("marketplace: empty trade record")
	// ErrInvalidSchemaTag is returned when a record's leading tag matches no
	// known layout version.
	ErrInvalidSchemaTag = errors.New("marketplace: invalid record schema tag")
	// ErrInvalidRecordSize is returned when a record body does not match its
	// tagged layout.
	ErrInvalidRecordSize = errors.New("marketplace: invalid record size")
	// ErrInvalidPrice is returned for prices outside (0, MaxPrice].
	ErrInvalidPrice = errors.New("marketplace: invalid price")
	// ErrInvalidSize is returned for zero-quantity offers.
	ErrInvalidSize = errors.New("marketplace: invalid size")
	// ErrInvalidExpiry is returned when an offer's expiry has passed or a
	// requested expiry is malformed.
	ErrInvalidExpiry = errors.New("marketplace: invalid or elapsed expiry")
	// ErrInvalidBasisPoints is returned for fee or royalty rates outside
	// their permitted ranges.
	ErrInvalidBasisPoints = errors.New("marketplace: basis points out of range")
	// ErrInvalidPlatformFeeBp is returned when maker and taker rates violate
	// the platform bounds, including maker below -taker.
	ErrInvalidPlatformFeeBp = errors.New("marketplace: invalid platform fee basis points")
	// ErrNumericalOverflow is returned when a money computation leaves the
	// representable range.
	ErrNumericalOverflow = errors.New("marketplace: numerical overflow")
	// ErrInsufficientFunds is returned when a debit exceeds the available
	// balance.
	ErrInsufficientFunds = errors.New("marketplace: insufficient funds")
	// ErrInvalidTokenMint is returned when an account's mint does not match
	// the operation's.
	ErrInvalidTokenMint = errors.New("marketplace: invalid token mint")
	// ErrInvalidTokenAmount is returned when a holding account does not
	// carry the offered quantity.
	ErrInvalidTokenAmount = errors.New("marketplace: invalid token amount")
	// ErrInvalidAccountState is returned when ledger custody state
	// contradicts the operation, e.g. a stranded asset being re-listed.
	ErrInvalidAccountState = errors.New("marketplace: invalid account state")
	// ErrInvalidNotary is returned when notary policy demands a co-signature
	// that is absent or from the wrong key.
	ErrInvalidNotary = errors.New("marketplace: invalid notary signature")
	// ErrMissingCreatorAccount is returned when a royalty payout has no
	// destination for a registered creator.
	ErrMissingCreatorAccount = errors.New("marketplace: missing creator account")
	// ErrBuyerDelegatePresent is returned when the buyer's receiving account
	// ends up with a foreign delegate after settlement.
	ErrBuyerDelegatePresent = errors.New("marketplace: buyer holding account cannot carry a delegate")
	// ErrTreasuryResidualTooLow is returned when a treasury withdrawal would
	// leave less than the required residual.
	ErrTreasuryResidualTooLow = errors.New("marketplace: treasury residual too low")
)

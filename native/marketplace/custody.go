package marketplace

import "math/big"

// LockPolicy is the hook for assets governed by an external transfer policy.
// Such assets stay in the owner's holding account but are frozen; the engine
// must unlock through the policy to move them and re-locks the new owner
// afterwards. The policy may also override the royalty rate at settlement.
type LockPolicy interface {
	Lock(st State, tokenAccount [32]byte) error
	Unlock(st State, tokenAccount [32]byte) error
	// RoyaltyBp may adjust the declared rate for a policy-governed sale.
	RoyaltyBp(price *big.Int, declaredBp uint16) uint16
}

// Custodian takes and releases custody of listed assets. All methods run
// against the ledger built over the caller's staged state.
type Custodian struct {
	ledger *Ledger
	policy LockPolicy
}

// DetectStrategy derives the custody mechanism from ledger state alone;
// caller claims are never trusted. StrategyNone means the asset is free.
func (c *Custodian) DetectStrategy(holding *TokenAccount) CustodyStrategy {
	switch {
	case holding.Owner == EngineAuthority:
		return StrategyDirect
	case holding.Locked:
		return StrategyPolicyLock
	case holding.Delegate == EngineAuthority && derefOrZero(holding.DelegatedAmount).Sign() > 0:
		return StrategyDelegated
	default:
		return StrategyNone
	}
}

// Take places size units of the seller's asset under engine custody for a new
// listing, using the strategy implied by the custody mode and the policy
// hook. It returns the holding account the listing should reference.
//
// Re-listing over an asset already in custody is only legal when a live
// record exists for it; the engine checks that before calling Take, so an
// already-custodied asset here is a stranded state.
func (c *Custodian) Take(seller [20]byte, mint [32]byte, size uint64, mode CustodyMode, payer [20]byte) ([32]byte, error) {
	var zero [32]byte
	holding, ok, err := c.ledger.TokenAccount(seller, mint)
	if err != nil {
		return zero, err
	}
	if !ok {
		// The asset may already sit in the engine holding account from a
		// stranded prior listing. That state is not re-listable here.
		if engineHeld, ok2, err2 := c.ledger.TokenAccount(EngineAuthority, mint); err2 != nil {
			return zero, err2
		} else if ok2 && derefOrZero(engineHeld.Amount).Sign() > 0 {
			return zero, ErrInvalidAccountState
		}
		return zero, ErrUninitializedAccount
	}
	if derefOrZero(holding.Amount).Uint64() < size {
		return zero, ErrInvalidTokenAmount
	}
	if holding.Locked {
		// Policy-governed assets stay put; the lock is already in force.
		if c.policy == nil {
			return zero, ErrInvalidAccountState
		}
		return holding.Address, nil
	}
	switch mode {
	case CustodyEngineHeld:
		dst, err := c.ledger.EnsureTokenAccount(EngineAuthority, mint, payer)
		if err != nil {
			return zero, err
		}
		if err := c.ledger.MoveToken(holding, dst, new(big.Int).SetUint64(size), seller); err != nil {
			return zero, err
		}
		return dst.Address, nil
	case CustodySellerDelegated:
		holding.Delegate = EngineAuthority
		holding.DelegatedAmount = new(big.Int).SetUint64(size)
		if err := c.ledger.state.TokenAccountPut(holding); err != nil {
			return zero, err
		}
		return holding.Address, nil
	default:
		return zero, ErrInvalidAccountState
	}
}

// Release returns a listed asset to its seller when the listing is retired
// without a sale.
func (c *Custodian) Release(o *SellOrder, payer [20]byte) error {
	holding, ok, err := c.ledger.state.TokenAccountGet(o.HoldingAccount)
	if err != nil {
		return err
	}
	if !ok {
		// Nothing to release; the asset already left custody.
		return nil
	}
	switch c.DetectStrategy(holding) {
	case StrategyDirect:
		dst, err := c.ledger.EnsureTokenAccount(o.Seller, o.AssetMint, payer)
		if err != nil {
			return err
		}
		return c.ledger.MoveToken(holding, dst, new(big.Int).SetUint64(o.Size), o.Seller)
	case StrategyDelegated:
		if holding.Owner != o.Seller {
			return ErrIncorrectOwner
		}
		holding.Delegate = [20]byte{}
		holding.DelegatedAmount = big.NewInt(0)
		return c.ledger.state.TokenAccountPut(holding)
	case StrategyPolicyLock:
		// The lock belongs to the policy, not the listing; it stays.
		return nil
	default:
		return nil
	}
}

// Settle moves the sold asset to the buyer using whichever custody strategy
// is in force on the ledger, and leaves delegation and lock state neutral on
// the seller side. The buyer's receiving account must not end up carrying a
// foreign delegate.
func (c *Custodian) Settle(o *SellOrder, buyer [20]byte, payer [20]byte) error {
	holding, ok, err := c.ledger.state.TokenAccountGet(o.HoldingAccount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUninitializedAccount
	}
	if holding.Mint != o.AssetMint {
		return ErrInvalidTokenMint
	}
	size := new(big.Int).SetUint64(o.Size)
	if derefOrZero(holding.Amount).Cmp(size) < 0 {
		return ErrInvalidTokenAmount
	}
	strategy := c.DetectStrategy(holding)
	if strategy == StrategyNone {
		return ErrInvalidAccountState
	}
	dst, err := c.ledger.EnsureTokenAccount(buyer, o.AssetMint, payer)
	if err != nil {
		return err
	}
	if dst.Delegate != ([20]byte{}) && dst.Delegate != EngineAuthority {
		return ErrBuyerDelegatePresent
	}
	switch strategy {
	case StrategyDirect:
		if err := c.ledger.MoveToken(holding, dst, size, o.Seller); err != nil {
			return err
		}
	case StrategyDelegated:
		if holding.Owner != o.Seller {
			return ErrIncorrectOwner
		}
		if derefOrZero(holding.DelegatedAmount).Cmp(size) < 0 {
			return ErrInvalidAccountState
		}
		holding.Delegate = [20]byte{}
		holding.DelegatedAmount = big.NewInt(0)
		if err := c.ledger.MoveToken(holding, dst, size, o.Seller); err != nil {
			return err
		}
	case StrategyPolicyLock:
		if c.policy == nil {
			return ErrInvalidAccountState
		}
		if err := c.policy.Unlock(c.ledger.state, holding.Address); err != nil {
			return err
		}
		holding.Locked = false
		if err := c.ledger.MoveToken(holding, dst, size, o.Seller); err != nil {
			return err
		}
		// The mint stays policy-governed in the buyer's hands.
		dst.Locked = true
		if err := c.ledger.state.TokenAccountPut(dst); err != nil {
			return err
		}
		if err := c.policy.Lock(c.ledger.state, dst.Address); err != nil {
			return err
		}
	}
	// Clearing delegation must survive the receiving account check above.
	if dst.Delegate == EngineAuthority {
		dst.Delegate = [20]byte{}
		dst.DelegatedAmount = big.NewInt(0)
		return c.ledger.state.TokenAccountPut(dst)
	}
	return nil
}

// RoyaltyBpFor lets a policy adjust the declared royalty rate for
// policy-locked sales; other strategies use the declared rate unchanged.
func (c *Custodian) RoyaltyBpFor(strategy CustodyStrategy, price *big.Int, declaredBp uint16) uint16 {
	if strategy == StrategyPolicyLock && c.policy != nil {
		return c.policy.RoyaltyBp(price, declaredBp)
	}
	return declaredBp
}

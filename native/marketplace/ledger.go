package marketplace

import (
	"fmt"
	"math/big"
)

// Ledger adapts the engine's money and asset movements onto State. Native
// value lives on plain accounts; fungible and unique assets live on token
// accounts keyed by (owner, mint).
type Ledger struct {
	state State
}

// NativeBalance reads the native balance of addr.
func (l *Ledger) NativeBalance(addr [20]byte) (*big.Int, error) {
	acc, err := l.state.AccountGet(addr)
	if err != nil {
		return nil, err
	}
	return derefOrZero(acc.Balance), nil
}

// TransferNative moves amount between native accounts. A zero amount is a
// no-op; a debit past the source balance fails without effects.
func (l *Ledger) TransferNative(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNumericalOverflow
	}
	src, err := l.state.AccountGet(from)
	if err != nil {
		return err
	}
	if derefOrZero(src.Balance).Cmp(amount) < 0 {
		return fmt.Errorf("%w: need %s", ErrInsufficientFunds, amount)
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	if err := l.state.AccountPut(from, src); err != nil {
		return err
	}
	dst, err := l.state.AccountGet(to)
	if err != nil {
		return err
	}
	dst.Balance = new(big.Int).Add(derefOrZero(dst.Balance), amount)
	return l.state.AccountPut(to, dst)
}

// CreditNative adds amount to a native account. It hands back value already
// debited elsewhere, such as rent parked on a closed record or holding
// account.
func (l *Ledger) CreditNative(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	dst, err := l.state.AccountGet(to)
	if err != nil {
		return err
	}
	dst.Balance = new(big.Int).Add(derefOrZero(dst.Balance), amount)
	return l.state.AccountPut(to, dst)
}

// TokenAccount loads the canonical holding account for owner and mint.
func (l *Ledger) TokenAccount(owner [20]byte, mint [32]byte) (*TokenAccount, bool, error) {
	return l.state.TokenAccountGet(TokenAccountAddress(owner, mint))
}

// EnsureTokenAccount loads or creates the canonical holding account for
// owner and mint, charging payer the account rent on creation.
func (l *Ledger) EnsureTokenAccount(owner [20]byte, mint [32]byte, payer [20]byte) (*TokenAccount, error) {
	addr := TokenAccountAddress(owner, mint)
	ta, ok, err := l.state.TokenAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		if ta.Mint != mint {
			return nil, ErrInvalidTokenMint
		}
		return ta, nil
	}
	rent := minViableBalance(tokenAccountSize)
	payerAcc, err := l.state.AccountGet(payer)
	if err != nil {
		return nil, err
	}
	if derefOrZero(payerAcc.Balance).Cmp(rent) < 0 {
		return nil, ErrInsufficientFunds
	}
	payerAcc.Balance = new(big.Int).Sub(payerAcc.Balance, rent)
	if err := l.state.AccountPut(payer, payerAcc); err != nil {
		return nil, err
	}
	ta = &TokenAccount{
		Address: addr,
		Mint:    mint,
		Owner:   owner,
		Amount:  big.NewInt(0),
		Rent:    rent,
	}
	if err := l.state.TokenAccountPut(ta); err != nil {
		return nil, err
	}
	return ta, nil
}

// MoveToken moves amount of mint from one holding account to another and
// closes the source if it empties, refunding its rent to rentReceiver.
// Both accounts must already exist.
func (l *Ledger) MoveToken(src, dst *TokenAccount, amount *big.Int, rentReceiver [20]byte) error {
	if src.Mint != dst.Mint {
		return ErrInvalidTokenMint
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidTokenAmount
	}
	if derefOrZero(src.Amount).Cmp(amount) < 0 {
		return ErrInvalidTokenAmount
	}
	src.Amount = new(big.Int).Sub(src.Amount, amount)
	dst.Amount = new(big.Int).Add(derefOrZero(dst.Amount), amount)
	if err := l.state.TokenAccountPut(dst); err != nil {
		return err
	}
	if src.Amount.Sign() == 0 {
		if err := l.CreditNative(rentReceiver, src.Rent); err != nil {
			return err
		}
		return l.state.TokenAccountDelete(src.Address)
	}
	return l.state.TokenAccountPut(src)
}

// PayParams describes one settlement-time payment leg.
type PayParams struct {
	// Mint selects the medium; NativeMint pays in the native unit.
	Mint [32]byte
	// Source is debited. For native payments it is a plain account; for
	// token payments it is the owner of the source holding account.
	Source [20]byte
	// Dest is credited, creating a holding account on demand for token
	// payments.
	Dest [20]byte
	// Payer covers holding-account rent when one must be created.
	Payer  [20]byte
	Amount *big.Int
}

// Pay executes one payment leg in the order's payment medium.
func (l *Ledger) Pay(p PayParams) error {
	if p.Amount == nil || p.Amount.Sign() == 0 {
		return nil
	}
	if p.Mint == NativeMint {
		return l.TransferNative(p.Source, p.Dest, p.Amount)
	}
	srcAddr := TokenAccountAddress(p.Source, p.Mint)
	src, ok, err := l.state.TokenAccountGet(srcAddr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUninitializedAccount
	}
	dst, err := l.EnsureTokenAccount(p.Dest, p.Mint, p.Payer)
	if err != nil {
		return err
	}
	return l.MoveToken(src, dst, p.Amount, p.Source)
}

package marketplace

import (
	"bytes"
	"math/big"
)

// RecordStore manages the offer record slots: allocation, rent top-up, the
// in-place legacy migration and retirement. It runs over whatever State it is
// given, so engine operations hand it their staged overlay.
type RecordStore struct {
	state State
}

// minViableBalance is the rent floor for a record of the given size.
func minViableBalance(size int) *big.Int {
	v := new(big.Int).SetUint64(MinViableBalance)
	v.Add(v, new(big.Int).Mul(new(big.Int).SetUint64(RentPerByte), big.NewInt(int64(size))))
	return v
}

func isZeroTag(data []byte) bool {
	if len(data) < 8 {
		return true
	}
	for _, b := range data[:8] {
		if b != 0 {
			return false
		}
	}
	return true
}

// prepare readies the slot at key for a write of the current layout version:
// a missing or blank slot is allocated, a legacy-sized slot is migrated in
// place (payload zeroed, grown, retagged), and a current slot is reused.
// Rent shortfalls are charged to payer. Migration is idempotent: a slot
// already at the current layout passes through untouched.
func (s *RecordStore) prepare(key [32]byte, v1Tag, v2Tag [8]byte, v1Size, v2Size int, payer [20]byte) (*Slot, bool, bool, error) {
	slot, ok, err := s.state.SlotGet(key)
	if err != nil {
		return nil, false, false, err
	}
	if !ok {
		slot = &Slot{Balance: big.NewInt(0)}
	}
	fresh, migrated := false, false
	switch {
	case isZeroTag(slot.Data):
		slot.Data = make([]byte, v2Size)
		fresh = true
	case bytes.Equal(slot.Data[:8], v1Tag[:]) && len(slot.Data) == v1Size:
		grown := make([]byte, v2Size)
		copy(grown[:8], v2Tag[:])
		slot.Data = grown
		migrated = true
	case bytes.Equal(slot.Data[:8], v2Tag[:]) && len(slot.Data) == v2Size:
		// Already at the current layout.
	default:
		return nil, false, false, ErrInvalidSchemaTag
	}
	if err := s.topUp(slot, len(slot.Data), payer); err != nil {
		return nil, false, false, err
	}
	return slot, fresh, migrated, nil
}

// topUp moves rent from payer onto the slot until it is viable for size.
func (s *RecordStore) topUp(slot *Slot, size int, payer [20]byte) error {
	need := minViableBalance(size)
	bal := derefOrZero(slot.Balance)
	if bal.Cmp(need) >= 0 {
		return nil
	}
	short := new(big.Int).Sub(need, bal)
	acc, err := s.state.AccountGet(payer)
	if err != nil {
		return err
	}
	if acc.Balance.Cmp(short) < 0 {
		return ErrInsufficientFunds
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, short)
	if err := s.state.AccountPut(payer, acc); err != nil {
		return err
	}
	slot.Balance = need
	return nil
}

// WriteSellOrder creates or replaces the listing at key, migrating a legacy
// slot first. It reports whether the slot was freshly allocated and whether a
// legacy migration happened.
func (s *RecordStore) WriteSellOrder(key [32]byte, o *SellOrder, payer [20]byte) (bool, bool, error) {
	slot, fresh, migrated, err := s.prepare(key, TagSellOrderV1, TagSellOrderV2, sellOrderV1Size, sellOrderV2Size, payer)
	if err != nil {
		return false, false, err
	}
	o.Version = 2
	data, err := EncodeSellOrder(o)
	if err != nil {
		return false, false, err
	}
	slot.Data = data
	return fresh, migrated, s.state.SlotPut(key, slot)
}

// WriteBuyOrder creates or replaces the bid at key, migrating a legacy slot
// first.
func (s *RecordStore) WriteBuyOrder(key [32]byte, o *BuyOrder, payer [20]byte) (bool, bool, error) {
	slot, fresh, migrated, err := s.prepare(key, TagBuyOrderV1, TagBuyOrderV2, buyOrderV1Size, buyOrderV2Size, payer)
	if err != nil {
		return false, false, err
	}
	o.Version = 2
	data, err := EncodeBuyOrder(o)
	if err != nil {
		return false, false, err
	}
	slot.Data = data
	return fresh, migrated, s.state.SlotPut(key, slot)
}

// ReadSellOrder decodes the listing at key, normalizing legacy records to
// the current layout. Absent or retired slots read as ErrEmptyTradeState.
func (s *RecordStore) ReadSellOrder(key [32]byte) (*SellOrder, error) {
	slot, ok, err := s.state.SlotGet(key)
	if err != nil {
		return nil, err
	}
	if !ok || isZeroTag(slot.Data) {
		return nil, ErrEmptyTradeState
	}
	order, err := DecodeSellOrder(slot.Data)
	if err != nil {
		return nil, err
	}
	return UpgradeSellOrder(order), nil
}

// ReadBuyOrder decodes the bid at key, normalizing legacy records to the
// current layout. Absent or retired slots read as ErrEmptyTradeState.
func (s *RecordStore) ReadBuyOrder(key [32]byte) (*BuyOrder, error) {
	slot, ok, err := s.state.SlotGet(key)
	if err != nil {
		return nil, err
	}
	if !ok || isZeroTag(slot.Data) {
		return nil, ErrEmptyTradeState
	}
	order, err := DecodeBuyOrder(slot.Data)
	if err != nil {
		return nil, err
	}
	return UpgradeBuyOrder(order), nil
}

// Retire clears the slot at key and refunds its parked balance to target. It
// never fails on a slot that is already gone.
func (s *RecordStore) Retire(key [32]byte, target [20]byte) error {
	slot, ok, err := s.state.SlotGet(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	refund := derefOrZero(slot.Balance)
	if refund.Sign() > 0 {
		acc, err := s.state.AccountGet(target)
		if err != nil {
			return err
		}
		acc.Balance = new(big.Int).Add(acc.Balance, refund)
		if err := s.state.AccountPut(target, acc); err != nil {
			return err
		}
	}
	return s.state.SlotDelete(key)
}

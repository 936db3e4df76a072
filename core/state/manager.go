package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/me-foundation/m2/core/types"
	"github.com/me-foundation/m2/native/marketplace"
	"github.com/me-foundation/m2/storage"
)

// Key prefixes partition the flat key space of the backing database.
var (
	prefixAccount      = []byte("m2/acct/")
	prefixSlot         = []byte("m2/slot/")
	prefixTokenAccount = []byte("m2/tokacct/")
	prefixMarketplace  = []byte("m2/mkt/")
)

// Manager persists engine state in a storage.Database. Accounts, record
// slots and token accounts serialize with RLP; marketplace configs use their
// wire codec so the stored bytes stay schema tagged.
type Manager struct {
	db storage.Database
}

// NewManager wraps db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func dbKey(prefix, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(suffix))
	key = append(key, prefix...)
	return append(key, suffix...)
}

// MarketplaceGet implements marketplace.State.
func (m *Manager) MarketplaceGet(id [32]byte) (*marketplace.Marketplace, bool, error) {
	raw, err := m.db.Get(dbKey(prefixMarketplace, id[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	mk, err := marketplace.DecodeMarketplace(raw)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode marketplace %x: %w", id, err)
	}
	return mk, true, nil
}

// MarketplacePut implements marketplace.State.
func (m *Manager) MarketplacePut(mk *marketplace.Marketplace) error {
	return m.db.Put(dbKey(prefixMarketplace, mk.ID[:]), marketplace.EncodeMarketplace(mk))
}

// SlotGet implements marketplace.State.
func (m *Manager) SlotGet(key [32]byte) (*marketplace.Slot, bool, error) {
	raw, err := m.db.Get(dbKey(prefixSlot, key[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var slot marketplace.Slot
	if err := rlp.DecodeBytes(raw, &slot); err != nil {
		return nil, false, fmt.Errorf("state: decode slot %x: %w", key, err)
	}
	return &slot, true, nil
}

// SlotPut implements marketplace.State.
func (m *Manager) SlotPut(key [32]byte, slot *marketplace.Slot) error {
	raw, err := rlp.EncodeToBytes(slot)
	if err != nil {
		return err
	}
	return m.db.Put(dbKey(prefixSlot, key[:]), raw)
}

// SlotDelete implements marketplace.State.
func (m *Manager) SlotDelete(key [32]byte) error {
	return m.db.Delete(dbKey(prefixSlot, key[:]))
}

// AccountGet implements marketplace.State; missing accounts read as zero.
func (m *Manager) AccountGet(addr [20]byte) (*types.Account, error) {
	raw, err := m.db.Get(dbKey(prefixAccount, addr[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return types.EnsureAccount(nil), nil
	}
	if err != nil {
		return nil, err
	}
	var acc types.Account
	if err := rlp.DecodeBytes(raw, &acc); err != nil {
		return nil, fmt.Errorf("state: decode account %x: %w", addr, err)
	}
	return types.EnsureAccount(&acc), nil
}

// AccountPut implements marketplace.State.
func (m *Manager) AccountPut(addr [20]byte, acc *types.Account) error {
	raw, err := rlp.EncodeToBytes(types.EnsureAccount(acc))
	if err != nil {
		return err
	}
	return m.db.Put(dbKey(prefixAccount, addr[:]), raw)
}

// TokenAccountGet implements marketplace.State.
func (m *Manager) TokenAccountGet(addr [32]byte) (*marketplace.TokenAccount, bool, error) {
	raw, err := m.db.Get(dbKey(prefixTokenAccount, addr[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ta marketplace.TokenAccount
	if err := rlp.DecodeBytes(raw, &ta); err != nil {
		return nil, false, fmt.Errorf("state: decode token account %x: %w", addr, err)
	}
	return &ta, true, nil
}

// TokenAccountPut implements marketplace.State.
func (m *Manager) TokenAccountPut(ta *marketplace.TokenAccount) error {
	raw, err := rlp.EncodeToBytes(ta)
	if err != nil {
		return err
	}
	return m.db.Put(dbKey(prefixTokenAccount, ta.Address[:]), raw)
}

// TokenAccountDelete implements marketplace.State.
func (m *Manager) TokenAccountDelete(addr [32]byte) error {
	return m.db.Delete(dbKey(prefixTokenAccount, addr[:]))
}

package marketplace

import (
	"math/big"
	"sort"

	"github.com/me-foundation/m2/core/types"
)

// Slot is one offer record cell: an opaque tagged payload plus the native
// balance parked on it to keep it viable.
type Slot struct {
	Data    []byte
	Balance *big.Int
}

// Clone returns a deep copy.
func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	cp := &Slot{Balance: cloneBigInt(s.Balance)}
	if s.Data != nil {
		cp.Data = append([]byte(nil), s.Data...)
	}
	return cp
}

// State is the persistence surface the settlement engine runs against.
// Implementations must return copies the caller may mutate freely.
type State interface {
	MarketplaceGet(id [32]byte) (*Marketplace, bool, error)
	MarketplacePut(m *Marketplace) error

	SlotGet(key [32]byte) (*Slot, bool, error)
	SlotPut(key [32]byte, slot *Slot) error
	SlotDelete(key [32]byte) error

	// AccountGet never returns nil; missing accounts read as zero-balance.
	AccountGet(addr [20]byte) (*types.Account, error)
	AccountPut(addr [20]byte, account *types.Account) error

	TokenAccountGet(addr [32]byte) (*TokenAccount, bool, error)
	TokenAccountPut(account *TokenAccount) error
	TokenAccountDelete(addr [32]byte) error
}

// stagedState is a copy-on-write overlay. Every engine operation runs against
// one and commits it only after the last step has succeeded, so a failure in
// any step leaves the parent state untouched.
type stagedState struct {
	parent State

	marketplaces map[[32]byte]*Marketplace
	slots        map[[32]byte]*Slot
	slotGone     map[[32]byte]bool
	accounts     map[[20]byte]*types.Account
	tokens       map[[32]byte]*TokenAccount
	tokenGone    map[[32]byte]bool
}

func stage(parent State) *stagedState {
	return &stagedState{
		parent:       parent,
		marketplaces: make(map[[32]byte]*Marketplace),
		slots:        make(map[[32]byte]*Slot),
		slotGone:     make(map[[32]byte]bool),
		accounts:     make(map[[20]byte]*types.Account),
		tokens:       make(map[[32]byte]*TokenAccount),
		tokenGone:    make(map[[32]byte]bool),
	}
}

func (s *stagedState) MarketplaceGet(id [32]byte) (*Marketplace, bool, error) {
	if m, ok := s.marketplaces[id]; ok {
		return m.Clone(), true, nil
	}
	return s.parent.MarketplaceGet(id)
}

func (s *stagedState) MarketplacePut(m *Marketplace) error {
	s.marketplaces[m.ID] = m.Clone()
	return nil
}

func (s *stagedState) SlotGet(key [32]byte) (*Slot, bool, error) {
	if s.slotGone[key] {
		return nil, false, nil
	}
	if slot, ok := s.slots[key]; ok {
		return slot.Clone(), true, nil
	}
	return s.parent.SlotGet(key)
}

func (s *stagedState) SlotPut(key [32]byte, slot *Slot) error {
	delete(s.slotGone, key)
	s.slots[key] = slot.Clone()
	return nil
}

func (s *stagedState) SlotDelete(key [32]byte) error {
	delete(s.slots, key)
	s.slotGone[key] = true
	return nil
}

func (s *stagedState) AccountGet(addr [20]byte) (*types.Account, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	return s.parent.AccountGet(addr)
}

func (s *stagedState) AccountPut(addr [20]byte, account *types.Account) error {
	s.accounts[addr] = account.Clone()
	return nil
}

func (s *stagedState) TokenAccountGet(addr [32]byte) (*TokenAccount, bool, error) {
	if s.tokenGone[addr] {
		return nil, false, nil
	}
	if t, ok := s.tokens[addr]; ok {
		return t.Clone(), true, nil
	}
	return s.parent.TokenAccountGet(addr)
}

func (s *stagedState) TokenAccountPut(account *TokenAccount) error {
	delete(s.tokenGone, account.Address)
	s.tokens[account.Address] = account.Clone()
	return nil
}

func (s *stagedState) TokenAccountDelete(addr [32]byte) error {
	delete(s.tokens, addr)
	s.tokenGone[addr] = true
	return nil
}

// Commit flushes the overlay into the parent in a deterministic order.
func (s *stagedState) Commit() error {
	for _, id := range sortedKeys32(mapKeys32m(s.marketplaces)) {
		if err := s.parent.MarketplacePut(s.marketplaces[id]); err != nil {
			return err
		}
	}
	for _, addr := range sortedKeys20(s.accounts) {
		if err := s.parent.AccountPut(addr, s.accounts[addr]); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys32(mapKeys32s(s.slots)) {
		if err := s.parent.SlotPut(key, s.slots[key]); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys32(mapKeys32b(s.slotGone)) {
		if err := s.parent.SlotDelete(key); err != nil {
			return err
		}
	}
	for _, addr := range sortedKeys32(mapKeys32t(s.tokens)) {
		if err := s.parent.TokenAccountPut(s.tokens[addr]); err != nil {
			return err
		}
	}
	for _, addr := range sortedKeys32(mapKeys32b(s.tokenGone)) {
		if err := s.parent.TokenAccountDelete(addr); err != nil {
			return err
		}
	}
	return nil
}

func mapKeys32m(m map[[32]byte]*Marketplace) [][32]byte {
	keys := make([][32]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func mapKeys32s(m map[[32]byte]*Slot) [][32]byte {
	keys := make([][32]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func mapKeys32t(m map[[32]byte]*TokenAccount) [][32]byte {
	keys := make([][32]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func mapKeys32b(m map[[32]byte]bool) [][32]byte {
	keys := make([][32]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortedKeys32(keys [][32]byte) [][32]byte {
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i][:]) < string(keys[j][:])
	})
	return keys
}

func sortedKeys20(m map[[20]byte]*types.Account) [][20]byte {
	keys := make([][20]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i][:]) < string(keys[j][:])
	})
	return keys
}

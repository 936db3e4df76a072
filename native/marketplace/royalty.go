package marketplace

import "sync"

// RoyaltyInfo is the creator set and royalty rate declared for a mint.
type RoyaltyInfo struct {
	RoyaltyBp uint16
	Creators  []Creator
}

// Clone returns a deep copy.
func (r *RoyaltyInfo) Clone() *RoyaltyInfo {
	if r == nil {
		return nil
	}
	cp := &RoyaltyInfo{RoyaltyBp: r.RoyaltyBp}
	cp.Creators = append([]Creator(nil), r.Creators...)
	return cp
}

// RoyaltyRegistry resolves the royalty declaration of an asset mint. A mint
// with no declaration settles royalty-free.
type RoyaltyRegistry interface {
	RoyaltyInfo(mint [32]byte) (*RoyaltyInfo, bool, error)
}

// StaticRoyaltyRegistry is an in-memory registry fed by the node operator or
// an asset-metadata ingest.
type StaticRoyaltyRegistry struct {
	mu   sync.RWMutex
	info map[[32]byte]*RoyaltyInfo
}

// NewStaticRoyaltyRegistry returns an empty registry.
func NewStaticRoyaltyRegistry() *StaticRoyaltyRegistry {
	return &StaticRoyaltyRegistry{info: make(map[[32]byte]*RoyaltyInfo)}
}

// Register declares the royalty terms for a mint. Creator shares must sum to
// exactly 100 and the rate must stay within the basis-point range.
func (r *StaticRoyaltyRegistry) Register(mint [32]byte, info *RoyaltyInfo) error {
	if info == nil || info.RoyaltyBp > basisPointDenominator {
		return ErrInvalidBasisPoints
	}
	var sum int
	for _, c := range info.Creators {
		sum += int(c.Share)
	}
	if len(info.Creators) > 0 && sum != 100 {
		return ErrInvalidBasisPoints
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info[mint] = info.Clone()
	return nil
}

// RoyaltyInfo implements RoyaltyRegistry.
func (r *StaticRoyaltyRegistry) RoyaltyInfo(mint [32]byte) (*RoyaltyInfo, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.info[mint]
	if !ok {
		return nil, false, nil
	}
	return info.Clone(), true, nil
}

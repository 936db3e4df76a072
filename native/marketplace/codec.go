package marketplace

import (
	"bytes"
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Every persisted record opens with an 8-byte schema tag derived from the
// layout name. Bodies are fixed-size little-endian.
func schemaTag(name string) [8]byte {
	var tag [8]byte
	copy(tag[:], ethcrypto.Keccak256([]byte(name))[:8])
	return tag
}

var (
	TagMarketplace = schemaTag("m2:marketplace:v1")
	TagSellOrderV1 = schemaTag("m2:sell_order:v1")
	TagSellOrderV2 = schemaTag("m2:sell_order:v2")
	TagBuyOrderV1  = schemaTag("m2:buy_order:v1")
	TagBuyOrderV2  = schemaTag("m2:buy_order:v2")
)

const (
	marketplaceSize = 8 + 20*4 + 2*3 + 1 + 1
	sellOrderV1Size = 8 + 32 + 20 + 20 + 32 + 32 + 8 + 8 + 8 + 1
	sellOrderV2Size = sellOrderV1Size + 32
	buyOrderV1Size  = 8 + 32 + 20 + 20 + 32 + 8 + 8 + 8 + 1
	buyOrderV2Size  = buyOrderV1Size + 2 + 32
)

type recordWriter struct {
	buf bytes.Buffer
}

func (w *recordWriter) tag(t [8]byte)     { w.buf.Write(t[:]) }
func (w *recordWriter) bytes20(b [20]byte) { w.buf.Write(b[:]) }
func (w *recordWriter) bytes32(b [32]byte) { w.buf.Write(b[:]) }
func (w *recordWriter) u8(v uint8)        { w.buf.WriteByte(v) }

func (w *recordWriter) u16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *recordWriter) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *recordWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *recordWriter) bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

type recordReader struct {
	data []byte
	off  int
}

func (r *recordReader) bytes20() [20]byte {
	var b [20]byte
	copy(b[:], r.data[r.off:r.off+20])
	r.off += 20
	return b
}

func (r *recordReader) bytes32() [32]byte {
	var b [32]byte
	copy(b[:], r.data[r.off:r.off+32])
	r.off += 32
	return b
}

func (r *recordReader) u8() uint8 {
	v := r.data[r.off]
	r.off++
	return v
}

func (r *recordReader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *recordReader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *recordReader) i64() int64 { return int64(r.u64()) }

func (r *recordReader) bool() bool { return r.u8() != 0 }

// EncodeMarketplace serializes a config record. The ID and treasury address
// are derivable from the creator and are not stored.
func EncodeMarketplace(m *Marketplace) []byte {
	w := &recordWriter{}
	w.tag(TagMarketplace)
	w.bytes20(m.Creator)
	w.bytes20(m.Authority)
	w.bytes20(m.Notary)
	w.bytes20(m.TreasuryWithdrawalDestination)
	w.u16(m.SellerFeeBp)
	w.u16(m.BuyerReferralBp)
	w.u16(m.SellerReferralBp)
	w.bool(m.RequiresNotary)
	w.u8(m.NotaryEnforcePct)
	return w.buf.Bytes()
}

// DecodeMarketplace parses a config record.
func DecodeMarketplace(data []byte) (*Marketplace, error) {
	if len(data) != marketplaceSize {
		return nil, ErrInvalidRecordSize
	}
	if !bytes.Equal(data[:8], TagMarketplace[:]) {
		return nil, ErrInvalidSchemaTag
	}
	r := &recordReader{data: data, off: 8}
	m := &Marketplace{
		Creator:                       r.bytes20(),
		Authority:                     r.bytes20(),
		Notary:                        r.bytes20(),
		TreasuryWithdrawalDestination: r.bytes20(),
		SellerFeeBp:                   r.u16(),
		BuyerReferralBp:               r.u16(),
		SellerReferralBp:              r.u16(),
		RequiresNotary:                r.bool(),
		NotaryEnforcePct:              r.u8(),
	}
	m.ID = MarketplaceKey(m.Creator)
	m.Treasury = TreasuryAddress(m.ID)
	return m, nil
}

// foldSellExpiry packs custody mode into the expiry sign: a negative raw
// value marks engine custody, and a magnitude of at most one means no
// expiry.
func foldSellExpiry(expiryAt int64, custody CustodyMode) int64 {
	raw := expiryAt
	if raw == 0 {
		raw = 1
	}
	if custody == CustodyEngineHeld {
		raw = -raw
	}
	return raw
}

func unfoldSellExpiry(raw int64) (int64, CustodyMode) {
	custody := CustodySellerDelegated
	if raw < 0 {
		custody = CustodyEngineHeld
		raw = -raw
	}
	if raw <= 1 {
		return 0, custody
	}
	return raw, custody
}

func normalizeExpiry(raw int64) int64 {
	if raw < 0 {
		raw = -raw
	}
	if raw <= 1 {
		return 0
	}
	return raw
}

// EncodeSellOrder serializes a listing in the current layout version.
func EncodeSellOrder(o *SellOrder) ([]byte, error) {
	price, err := priceToUint64(o.Price)
	if err != nil {
		return nil, err
	}
	w := &recordWriter{}
	w.tag(TagSellOrderV2)
	w.bytes32(o.MarketplaceID)
	w.bytes20(o.Seller)
	w.bytes20(o.SellerReferral)
	w.bytes32(o.AssetMint)
	w.bytes32(o.HoldingAccount)
	w.u64(price)
	w.u64(o.Size)
	w.i64(foldSellExpiry(o.ExpiryAt, o.Custody))
	w.u8(o.Bump)
	w.bytes32(o.PaymentMint)
	return w.buf.Bytes(), nil
}

// DecodeSellOrder parses a listing record of either layout version.
func DecodeSellOrder(data []byte) (*SellOrder, error) {
	if len(data) < 8 {
		return nil, ErrInvalidRecordSize
	}
	var version uint8
	switch {
	case bytes.Equal(data[:8], TagSellOrderV1[:]):
		version = 1
		if len(data) != sellOrderV1Size {
			return nil, ErrInvalidRecordSize
		}
	case bytes.Equal(data[:8], TagSellOrderV2[:]):
		version = 2
		if len(data) != sellOrderV2Size {
			return nil, ErrInvalidRecordSize
		}
	default:
		return nil, ErrInvalidSchemaTag
	}
	r := &recordReader{data: data, off: 8}
	o := &SellOrder{Version: version}
	o.MarketplaceID = r.bytes32()
	o.Seller = r.bytes20()
	o.SellerReferral = r.bytes20()
	o.AssetMint = r.bytes32()
	o.HoldingAccount = r.bytes32()
	o.Price = new(big.Int).SetUint64(r.u64())
	o.Size = r.u64()
	o.ExpiryAt, o.Custody = unfoldSellExpiry(r.i64())
	o.Bump = r.u8()
	if version >= 2 {
		o.PaymentMint = r.bytes32()
	}
	return o, nil
}

// EncodeBuyOrder serializes a bid in the current layout version.
func EncodeBuyOrder(o *BuyOrder) ([]byte, error) {
	price, err := priceToUint64(o.Price)
	if err != nil {
		return nil, err
	}
	w := &recordWriter{}
	w.tag(TagBuyOrderV2)
	w.bytes32(o.MarketplaceID)
	w.bytes20(o.Buyer)
	w.bytes20(o.BuyerReferral)
	w.bytes32(o.AssetMint)
	w.u64(price)
	w.u64(o.Size)
	raw := o.ExpiryAt
	if raw == 0 {
		raw = 1
	}
	w.i64(raw)
	w.u8(o.Bump)
	w.u16(o.RoyaltyBp)
	w.bytes32(o.PaymentMint)
	return w.buf.Bytes(), nil
}

// DecodeBuyOrder parses a bid record of either layout version.
func DecodeBuyOrder(data []byte) (*BuyOrder, error) {
	if len(data) < 8 {
		return nil, ErrInvalidRecordSize
	}
	var version uint8
	switch {
	case bytes.Equal(data[:8], TagBuyOrderV1[:]):
		version = 1
		if len(data) != buyOrderV1Size {
			return nil, ErrInvalidRecordSize
		}
	case bytes.Equal(data[:8], TagBuyOrderV2[:]):
		version = 2
		if len(data) != buyOrderV2Size {
			return nil, ErrInvalidRecordSize
		}
	default:
		return nil, ErrInvalidSchemaTag
	}
	r := &recordReader{data: data, off: 8}
	o := &BuyOrder{Version: version}
	o.MarketplaceID = r.bytes32()
	o.Buyer = r.bytes20()
	o.BuyerReferral = r.bytes20()
	o.AssetMint = r.bytes32()
	o.Price = new(big.Int).SetUint64(r.u64())
	o.Size = r.u64()
	o.ExpiryAt = normalizeExpiry(r.i64())
	o.Bump = r.u8()
	if version >= 2 {
		o.RoyaltyBp = r.u16()
		o.PaymentMint = r.bytes32()
	}
	return o, nil
}

// UpgradeSellOrder lifts a legacy listing to the current layout. Missing
// fields take the native defaults.
func UpgradeSellOrder(o *SellOrder) *SellOrder {
	up := o.Clone()
	if up.Version < 2 {
		up.PaymentMint = NativeMint
		up.Version = 2
	}
	return up
}

// UpgradeBuyOrder lifts a legacy bid to the current layout.
func UpgradeBuyOrder(o *BuyOrder) *BuyOrder {
	up := o.Clone()
	if up.Version < 2 {
		up.RoyaltyBp = 0
		up.PaymentMint = NativeMint
		up.Version = 2
	}
	return up
}

func priceToUint64(price *big.Int) (uint64, error) {
	if price == nil || price.Sign() < 0 || !price.IsUint64() {
		return 0, ErrNumericalOverflow
	}
	return price.Uint64(), nil
}

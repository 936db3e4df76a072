package marketplace

import (
	"bytes"
	"math/big"
	"testing"
)

func testSellOrder() *SellOrder {
	return &SellOrder{
		MarketplaceID:  testKey(0x01),
		Seller:         testAddr(0x02),
		SellerReferral: testAddr(0x03),
		AssetMint:      testKey(0x04),
		HoldingAccount: testKey(0x05),
		Price:          big.NewInt(1_500_000),
		Size:           1,
		ExpiryAt:       1_900_000_000,
		Custody:        CustodyEngineHeld,
		PaymentMint:    NativeMint,
		Bump:           7,
	}
}

func testBuyOrder() *BuyOrder {
	return &BuyOrder{
		MarketplaceID: testKey(0x01),
		Buyer:         testAddr(0x06),
		BuyerReferral: testAddr(0x07),
		AssetMint:     testKey(0x04),
		Price:         big.NewInt(1_500_000),
		Size:          1,
		ExpiryAt:      1_900_000_000,
		RoyaltyBp:     10_000,
		PaymentMint:   testKey(0x08),
		Bump:          3,
	}
}

func TestSellOrderRoundTrip(t *testing.T) {
	o := testSellOrder()
	data, err := EncodeSellOrder(o)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) != sellOrderV2Size {
		t.Fatalf("encoded size = %d, want %d", len(data), sellOrderV2Size)
	}
	got, err := DecodeSellOrder(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
	got.Version = 0
	o.Version = 0
	if got.Price.Cmp(o.Price) != 0 {
		t.Fatalf("price = %s, want %s", got.Price, o.Price)
	}
	got.Price, o.Price = nil, nil
	if *got != *o {
		t.Fatalf("round trip mismatch: %+v != %+v", got, o)
	}
}

func TestBuyOrderRoundTrip(t *testing.T) {
	o := testBuyOrder()
	data, err := EncodeBuyOrder(o)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeBuyOrder(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
	if got.Buyer != o.Buyer || got.RoyaltyBp != o.RoyaltyBp || got.PaymentMint != o.PaymentMint {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Price.Cmp(o.Price) != 0 {
		t.Fatalf("price = %s, want %s", got.Price, o.Price)
	}
}

func TestSellExpiryFolding(t *testing.T) {
	cases := []struct {
		expiry  int64
		custody CustodyMode
	}{
		{0, CustodySellerDelegated},
		{0, CustodyEngineHeld},
		{1_900_000_000, CustodySellerDelegated},
		{1_900_000_000, CustodyEngineHeld},
	}
	for _, tc := range cases {
		o := testSellOrder()
		o.ExpiryAt = tc.expiry
		o.Custody = tc.custody
		data, err := EncodeSellOrder(o)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeSellOrder(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ExpiryAt != tc.expiry || got.Custody != tc.custody {
			t.Fatalf("expiry/custody = %d/%d, want %d/%d", got.ExpiryAt, got.Custody, tc.expiry, tc.custody)
		}
	}
}

// legacySellOrderBytes builds a v1-layout record for migration tests: the v2
// body minus the trailing payment mint, under the v1 tag.
func legacySellOrderBytes(t *testing.T, o *SellOrder) []byte {
	t.Helper()
	data, err := EncodeSellOrder(o)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	legacy := append([]byte(nil), data[:sellOrderV1Size]...)
	copy(legacy[:8], TagSellOrderV1[:])
	return legacy
}

func legacyBuyOrderBytes(t *testing.T, o *BuyOrder) []byte {
	t.Helper()
	data, err := EncodeBuyOrder(o)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	legacy := append([]byte(nil), data[:buyOrderV1Size]...)
	copy(legacy[:8], TagBuyOrderV1[:])
	return legacy
}

func TestDecodeLegacySellOrder(t *testing.T) {
	o := testSellOrder()
	got, err := DecodeSellOrder(legacySellOrderBytes(t, o))
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1", got.Version)
	}
	if got.PaymentMint != NativeMint {
		t.Fatal("legacy record should carry no payment mint")
	}
	up := UpgradeSellOrder(got)
	if up.Version != 2 || up.PaymentMint != NativeMint {
		t.Fatalf("upgrade: %+v", up)
	}
	if got.Version != 1 {
		t.Fatal("upgrade must not mutate its input")
	}
}

func TestDecodeLegacyBuyOrder(t *testing.T) {
	o := testBuyOrder()
	got, err := DecodeBuyOrder(legacyBuyOrderBytes(t, o))
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if got.Version != 1 || got.RoyaltyBp != 0 {
		t.Fatalf("legacy decode: %+v", got)
	}
	up := UpgradeBuyOrder(got)
	if up.Version != 2 || up.PaymentMint != NativeMint {
		t.Fatalf("upgrade: %+v", up)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	data, err := EncodeSellOrder(testSellOrder())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data[0] ^= 0xff
	if _, err := DecodeSellOrder(data); err != ErrInvalidSchemaTag {
		t.Fatalf("err = %v, want ErrInvalidSchemaTag", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	data, err := EncodeBuyOrder(testBuyOrder())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeBuyOrder(data[:len(data)-1]); err != ErrInvalidRecordSize {
		t.Fatalf("err = %v, want ErrInvalidRecordSize", err)
	}
}

func TestMarketplaceRoundTrip(t *testing.T) {
	m := &Marketplace{
		Creator:                       testAddr(0x11),
		Authority:                     testAddr(0x12),
		Notary:                        testAddr(0x13),
		TreasuryWithdrawalDestination: testAddr(0x14),
		SellerFeeBp:                   250,
		BuyerReferralBp:               100,
		SellerReferralBp:              50,
		RequiresNotary:                true,
		NotaryEnforcePct:              80,
	}
	m.ID = MarketplaceKey(m.Creator)
	m.Treasury = TreasuryAddress(m.ID)
	got, err := DecodeMarketplace(EncodeMarketplace(m))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *m {
		t.Fatalf("round trip mismatch: %+v != %+v", got, m)
	}
}

func TestSchemaTagsDistinct(t *testing.T) {
	tags := [][8]byte{TagMarketplace, TagSellOrderV1, TagSellOrderV2, TagBuyOrderV1, TagBuyOrderV2}
	for i := range tags {
		for j := i + 1; j < len(tags); j++ {
			if bytes.Equal(tags[i][:], tags[j][:]) {
				t.Fatalf("tags %d and %d collide", i, j)
			}
		}
	}
}

package marketplace

import (
	"bytes"
	"math/big"
	"testing"
)

func TestWriteSellOrderMigratesLegacySlot(t *testing.T) {
	st := newMockState()
	store := &RecordStore{state: st}
	payer := testAddr(0x10)
	st.setBalance(payer, 100_000_000)

	o := testSellOrder()
	key := SellOrderKey(o.MarketplaceID, o.Seller, o.AssetMint, NativeMint)
	legacy := legacySellOrderBytes(t, o)
	if err := st.SlotPut(key, &Slot{Data: legacy, Balance: minViableBalance(len(legacy))}); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	fresh, migrated, err := store.WriteSellOrder(key, o.Clone(), payer)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if fresh || !migrated {
		t.Fatalf("fresh=%v migrated=%v, want false/true", fresh, migrated)
	}
	slot, ok, _ := st.SlotGet(key)
	if !ok || len(slot.Data) != sellOrderV2Size {
		t.Fatalf("slot size = %d, want %d", len(slot.Data), sellOrderV2Size)
	}
	if !bytes.Equal(slot.Data[:8], TagSellOrderV2[:]) {
		t.Fatal("slot not retagged")
	}
	// Rent was topped up to the grown size out of the payer's balance.
	if slot.Balance.Cmp(minViableBalance(sellOrderV2Size)) != 0 {
		t.Fatalf("slot balance = %s", slot.Balance)
	}
	topUp := new(big.Int).Sub(minViableBalance(sellOrderV2Size), minViableBalance(sellOrderV1Size))
	want := new(big.Int).Sub(big.NewInt(100_000_000), topUp)
	if st.balance(payer).Cmp(want) != 0 {
		t.Fatalf("payer = %s, want %s", st.balance(payer), want)
	}

	// Migration is idempotent: a second write changes neither size nor rent.
	if _, migrated, err = store.WriteSellOrder(key, o.Clone(), payer); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if migrated {
		t.Fatal("second write reported a migration")
	}
	again, _, _ := st.SlotGet(key)
	if len(again.Data) != sellOrderV2Size || again.Balance.Cmp(slot.Balance) != 0 {
		t.Fatal("second write changed slot shape")
	}
}

func TestReadNormalizesLegacyRecords(t *testing.T) {
	st := newMockState()
	store := &RecordStore{state: st}

	sell := testSellOrder()
	sellKey := SellOrderKey(sell.MarketplaceID, sell.Seller, sell.AssetMint, NativeMint)
	legacySell := legacySellOrderBytes(t, sell)
	if err := st.SlotPut(sellKey, &Slot{Data: legacySell, Balance: minViableBalance(len(legacySell))}); err != nil {
		t.Fatalf("seed sell slot: %v", err)
	}
	gotSell, err := store.ReadSellOrder(sellKey)
	if err != nil {
		t.Fatalf("read sell: %v", err)
	}
	if gotSell.Version != 2 || gotSell.PaymentMint != NativeMint {
		t.Fatalf("legacy listing not normalized: version=%d mint=%x", gotSell.Version, gotSell.PaymentMint)
	}
	// The stored bytes stay legacy until the next write migrates them.
	slot, _, _ := st.SlotGet(sellKey)
	if !bytes.Equal(slot.Data[:8], TagSellOrderV1[:]) {
		t.Fatal("read must not rewrite the slot")
	}

	bid := testBuyOrder()
	bid.PaymentMint = NativeMint
	bidKey := BuyOrderKey(bid.MarketplaceID, bid.Buyer, bid.AssetMint, NativeMint)
	legacyBid := legacyBuyOrderBytes(t, bid)
	if err := st.SlotPut(bidKey, &Slot{Data: legacyBid, Balance: minViableBalance(len(legacyBid))}); err != nil {
		t.Fatalf("seed bid slot: %v", err)
	}
	gotBid, err := store.ReadBuyOrder(bidKey)
	if err != nil {
		t.Fatalf("read bid: %v", err)
	}
	if gotBid.Version != 2 || gotBid.RoyaltyBp != 0 {
		t.Fatalf("legacy bid not normalized: %+v", gotBid)
	}
}

func TestWriteBuyOrderMigratesLegacySlot(t *testing.T) {
	st := newMockState()
	store := &RecordStore{state: st}
	payer := testAddr(0x10)
	st.setBalance(payer, 100_000_000)

	o := testBuyOrder()
	o.PaymentMint = NativeMint
	key := BuyOrderKey(o.MarketplaceID, o.Buyer, o.AssetMint, NativeMint)
	legacy := legacyBuyOrderBytes(t, o)
	if err := st.SlotPut(key, &Slot{Data: legacy, Balance: minViableBalance(len(legacy))}); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	_, migrated, err := store.WriteBuyOrder(key, o.Clone(), payer)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !migrated {
		t.Fatal("expected a migration")
	}
	got, err := store.ReadBuyOrder(key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Version != 2 || got.Price.Cmp(o.Price) != 0 {
		t.Fatalf("migrated record: %+v", got)
	}
}

func TestWriteRejectsForeignTag(t *testing.T) {
	st := newMockState()
	store := &RecordStore{state: st}
	o := testSellOrder()
	key := SellOrderKey(o.MarketplaceID, o.Seller, o.AssetMint, NativeMint)
	bad := make([]byte, sellOrderV1Size)
	copy(bad[:8], TagBuyOrderV1[:])
	if err := st.SlotPut(key, &Slot{Data: bad, Balance: big.NewInt(0)}); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	if _, _, err := store.WriteSellOrder(key, o.Clone(), testAddr(0x10)); err != ErrInvalidSchemaTag {
		t.Fatalf("err = %v, want ErrInvalidSchemaTag", err)
	}
}

func TestRetireRefundsAndClears(t *testing.T) {
	st := newMockState()
	store := &RecordStore{state: st}
	payer := testAddr(0x10)
	st.setBalance(payer, 100_000_000)

	o := testSellOrder()
	key := SellOrderKey(o.MarketplaceID, o.Seller, o.AssetMint, NativeMint)
	if _, _, err := store.WriteSellOrder(key, o.Clone(), payer); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := testAddr(0x20)
	if err := store.Retire(key, target); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if st.balance(target).Cmp(minViableBalance(sellOrderV2Size)) != 0 {
		t.Fatalf("refund = %s", st.balance(target))
	}
	if _, err := store.ReadSellOrder(key); err != ErrEmptyTradeState {
		t.Fatalf("read after retire: %v", err)
	}
	// Retiring a retired record is not an error.
	if err := store.Retire(key, target); err != nil {
		t.Fatalf("second retire: %v", err)
	}
}

func TestWriteFailsWithoutRentFunds(t *testing.T) {
	st := newMockState()
	store := &RecordStore{state: st}
	o := testSellOrder()
	key := SellOrderKey(o.MarketplaceID, o.Seller, o.AssetMint, NativeMint)
	if _, _, err := store.WriteSellOrder(key, o.Clone(), testAddr(0x30)); err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

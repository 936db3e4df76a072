package marketplace

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/me-foundation/m2/core/types"
)

// Event types emitted by the settlement engine.
const (
	EventTypeMarketplaceCreated = "marketplace.created"
	EventTypeMarketplaceUpdated = "marketplace.updated"
	EventTypeEscrowDeposited    = "marketplace.escrow.deposited"
	EventTypeEscrowWithdrawn    = "marketplace.escrow.withdrawn"
	EventTypeListed             = "marketplace.offer.listed"
	EventTypeListCancelled      = "marketplace.offer.cancelled"
	EventTypeBidPlaced          = "marketplace.bid.placed"
	EventTypeBidCancelled       = "marketplace.bid.cancelled"
	EventTypeSaleExecuted       = "marketplace.sale.executed"
	EventTypeRecordMigrated     = "marketplace.record.migrated"
	EventTypeTreasuryWithdrawn  = "marketplace.treasury.withdrawn"
)

func hexAddr(a [20]byte) string { return hex.EncodeToString(a[:]) }
func hexKey(k [32]byte) string  { return hex.EncodeToString(k[:]) }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newMarketplaceCreatedEvent(m *Marketplace) *types.Event {
	return &types.Event{
		Type: EventTypeMarketplaceCreated,
		Attributes: map[string]string{
			"marketplace": hexKey(m.ID),
			"creator":     hexAddr(m.Creator),
			"authority":   hexAddr(m.Authority),
			"treasury":    hexAddr(m.Treasury),
		},
	}
}

func newMarketplaceUpdatedEvent(m *Marketplace) *types.Event {
	return &types.Event{
		Type: EventTypeMarketplaceUpdated,
		Attributes: map[string]string{
			"marketplace": hexKey(m.ID),
			"authority":   hexAddr(m.Authority),
			"notary":      hexAddr(m.Notary),
		},
	}
}

func newEscrowEvent(eventType string, marketplaceID [32]byte, wallet [20]byte, mint [32]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"marketplace": hexKey(marketplaceID),
			"wallet":      hexAddr(wallet),
			"mint":        hexKey(mint),
			"amount":      amountString(amount),
		},
	}
}

func newListedEvent(key [32]byte, o *SellOrder) *types.Event {
	return &types.Event{
		Type: EventTypeListed,
		Attributes: map[string]string{
			"record":      hexKey(key),
			"marketplace": hexKey(o.MarketplaceID),
			"seller":      hexAddr(o.Seller),
			"assetMint":   hexKey(o.AssetMint),
			"paymentMint": hexKey(o.PaymentMint),
			"price":       amountString(o.Price),
			"size":        strconv.FormatUint(o.Size, 10),
			"expiry":      strconv.FormatInt(o.ExpiryAt, 10),
		},
	}
}

func newBidPlacedEvent(key [32]byte, o *BuyOrder) *types.Event {
	return &types.Event{
		Type: EventTypeBidPlaced,
		Attributes: map[string]string{
			"record":      hexKey(key),
			"marketplace": hexKey(o.MarketplaceID),
			"buyer":       hexAddr(o.Buyer),
			"assetMint":   hexKey(o.AssetMint),
			"paymentMint": hexKey(o.PaymentMint),
			"price":       amountString(o.Price),
			"size":        strconv.FormatUint(o.Size, 10),
			"expiry":      strconv.FormatInt(o.ExpiryAt, 10),
			"royaltyBp":   strconv.FormatUint(uint64(o.RoyaltyBp), 10),
		},
	}
}

func newOfferCancelledEvent(eventType string, key [32]byte, marketplaceID [32]byte, owner [20]byte, assetMint [32]byte) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"record":      hexKey(key),
			"marketplace": hexKey(marketplaceID),
			"owner":       hexAddr(owner),
			"assetMint":   hexKey(assetMint),
		},
	}
}

func newSaleExecutedEvent(r *SaleReceipt) *types.Event {
	return &types.Event{
		Type: EventTypeSaleExecuted,
		Attributes: map[string]string{
			"marketplace":    hexKey(r.MarketplaceID),
			"buyer":          hexAddr(r.Buyer),
			"seller":         hexAddr(r.Seller),
			"assetMint":      hexKey(r.AssetMint),
			"paymentMint":    hexKey(r.PaymentMint),
			"price":          amountString(r.Price),
			"makerFee":       amountString(r.MakerFee),
			"takerFee":       amountString(r.TakerFee),
			"platformFee":    amountString(r.PlatformFee),
			"royalty":        amountString(r.RoyaltyPaid),
			"sellerReceives": amountString(r.SellerReceives),
		},
	}
}

func newRecordMigratedEvent(key [32]byte, kind string) *types.Event {
	return &types.Event{
		Type: EventTypeRecordMigrated,
		Attributes: map[string]string{
			"record": hexKey(key),
			"kind":   kind,
		},
	}
}

func newTreasuryWithdrawnEvent(marketplaceID [32]byte, dest [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTreasuryWithdrawn,
		Attributes: map[string]string{
			"marketplace": hexKey(marketplaceID),
			"destination": hexAddr(dest),
			"amount":      amountString(amount),
		},
	}
}

// marketplaceEvent adapts a types.Event to the emitter interface.
type marketplaceEvent struct {
	evt *types.Event
}

func (e marketplaceEvent) EventType() string { return e.evt.Type }

// Event exposes the underlying attribute payload.
func (e marketplaceEvent) Event() *types.Event { return e.evt }

package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/me-foundation/m2/native/marketplace"
	"github.com/me-foundation/m2/observability/metrics"
)

func (s *Server) methodTable() map[string]methodSpec {
	return map[string]methodSpec{
		"m2_createMarketplace":    {handler: s.createMarketplace, mutating: true},
		"m2_updateMarketplace":    {handler: s.updateMarketplace, mutating: true},
		"m2_deposit":              {handler: s.deposit, mutating: true},
		"m2_withdraw":             {handler: s.withdraw, mutating: true},
		"m2_list":                 {handler: s.list, mutating: true},
		"m2_cancelList":           {handler: s.cancelList, mutating: true},
		"m2_bid":                  {handler: s.bid, mutating: true},
		"m2_cancelBid":            {handler: s.cancelBid, mutating: true},
		"m2_executeSale":          {handler: s.executeSale, mutating: true},
		"m2_withdrawFromTreasury": {handler: s.withdrawFromTreasury, mutating: true},
		"m2_getMarketplace":       {handler: s.getMarketplace},
		"m2_getSellOrder":         {handler: s.getSellOrder},
		"m2_getBuyOrder":          {handler: s.getBuyOrder},
		"m2_getEscrowBalance":     {handler: s.getEscrowBalance},
	}
}

func parseAddr(s string) ([20]byte, error) {
	var a [20]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != 20 {
		return a, fmt.Errorf("invalid address %q", s)
	}
	copy(a[:], raw)
	return a, nil
}

func parseOptAddr(s string) (*[20]byte, error) {
	if s == "" {
		return nil, nil
	}
	a, err := parseAddr(s)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func parseKey(s string) ([32]byte, error) {
	var k [32]byte
	if s == "" {
		// Empty means the native mint / zero key.
		return k, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != 32 {
		return k, fmt.Errorf("invalid key %q", s)
	}
	copy(k[:], raw)
	return k, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseSigners(list []string) (marketplace.Signers, error) {
	addrs := make([][20]byte, 0, len(list))
	for _, s := range list {
		a, err := parseAddr(s)
		if err != nil {
			return marketplace.Signers{}, err
		}
		addrs = append(addrs, a)
	}
	return marketplace.NewSigners(addrs...), nil
}

func encAddr(a [20]byte) string { return "0x" + hex.EncodeToString(a[:]) }
func encKey(k [32]byte) string  { return "0x" + hex.EncodeToString(k[:]) }

func marketplaceView(m *marketplace.Marketplace) map[string]interface{} {
	return map[string]interface{}{
		"id":                            encKey(m.ID),
		"creator":                       encAddr(m.Creator),
		"authority":                     encAddr(m.Authority),
		"notary":                        encAddr(m.Notary),
		"treasury":                      encAddr(m.Treasury),
		"treasuryWithdrawalDestination": encAddr(m.TreasuryWithdrawalDestination),
		"sellerFeeBp":                   m.SellerFeeBp,
		"buyerReferralBp":               m.BuyerReferralBp,
		"sellerReferralBp":              m.SellerReferralBp,
		"requiresNotary":                m.RequiresNotary,
		"notaryEnforcePct":              m.NotaryEnforcePct,
	}
}

func sellOrderView(o *marketplace.SellOrder) map[string]interface{} {
	return map[string]interface{}{
		"marketplace":    encKey(o.MarketplaceID),
		"seller":         encAddr(o.Seller),
		"sellerReferral": encAddr(o.SellerReferral),
		"assetMint":      encKey(o.AssetMint),
		"paymentMint":    encKey(o.PaymentMint),
		"holdingAccount": encKey(o.HoldingAccount),
		"price":          o.Price.String(),
		"size":           o.Size,
		"expiryAt":       o.ExpiryAt,
		"engineHeld":     o.Custody == marketplace.CustodyEngineHeld,
	}
}

func buyOrderView(o *marketplace.BuyOrder) map[string]interface{} {
	return map[string]interface{}{
		"marketplace":   encKey(o.MarketplaceID),
		"buyer":         encAddr(o.Buyer),
		"buyerReferral": encAddr(o.BuyerReferral),
		"assetMint":     encKey(o.AssetMint),
		"paymentMint":   encKey(o.PaymentMint),
		"price":         o.Price.String(),
		"size":          o.Size,
		"expiryAt":      o.ExpiryAt,
		"royaltyBp":     o.RoyaltyBp,
	}
}

func receiptView(r *marketplace.SaleReceipt) map[string]interface{} {
	return map[string]interface{}{
		"marketplace":       encKey(r.MarketplaceID),
		"buyer":             encAddr(r.Buyer),
		"seller":            encAddr(r.Seller),
		"assetMint":         encKey(r.AssetMint),
		"paymentMint":       encKey(r.PaymentMint),
		"price":             r.Price.String(),
		"makerFee":          r.MakerFee.String(),
		"takerFee":          r.TakerFee.String(),
		"platformFee":       r.PlatformFee.String(),
		"buyerReferralFee":  r.BuyerReferralFee.String(),
		"sellerReferralFee": r.SellerReferralFee.String(),
		"treasuryFee":       r.TreasuryFee.String(),
		"royaltyPaid":       r.RoyaltyPaid.String(),
		"sellerReceives":    r.SellerReceives.String(),
	}
}

type createMarketplaceParams struct {
	Creator                       string   `json:"creator"`
	Authority                     string   `json:"authority"`
	Notary                        string   `json:"notary"`
	TreasuryWithdrawalDestination string   `json:"treasuryWithdrawalDestination"`
	SellerFeeBp                   uint16   `json:"sellerFeeBp"`
	BuyerReferralBp               uint16   `json:"buyerReferralBp"`
	SellerReferralBp              uint16   `json:"sellerReferralBp"`
	RequiresNotary                bool     `json:"requiresNotary"`
	NotaryEnforcePct              uint8    `json:"notaryEnforcePct"`
	Signers                       []string `json:"signers"`
}

func (s *Server) createMarketplace(raw json.RawMessage) (interface{}, *rpcError) {
	var p createMarketplaceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	creator, err := parseAddr(p.Creator)
	if err != nil {
		return nil, invalidParams(err)
	}
	var authority, notary, dest [20]byte
	for _, pair := range []struct {
		src string
		dst *[20]byte
	}{{p.Authority, &authority}, {p.Notary, &notary}, {p.TreasuryWithdrawalDestination, &dest}} {
		if pair.src == "" {
			continue
		}
		if *pair.dst, err = parseAddr(pair.src); err != nil {
			return nil, invalidParams(err)
		}
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, invalidParams(err)
	}
	m, err := s.engine.CreateMarketplace(marketplace.CreateMarketplaceParams{
		Creator:                       creator,
		Authority:                     authority,
		Notary:                        notary,
		TreasuryWithdrawalDestination: dest,
		SellerFeeBp:                   p.SellerFeeBp,
		BuyerReferralBp:               p.BuyerReferralBp,
		SellerReferralBp:              p.SellerReferralBp,
		RequiresNotary:                p.RequiresNotary,
		NotaryEnforcePct:              p.NotaryEnforcePct,
		Signers:                       sig,
	})
	metrics.Marketplace().ObserveOperation("createMarketplace", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return marketplaceView(m), nil
}

type updateMarketplaceParams struct {
	MarketplaceID                 string   `json:"marketplace"`
	Authority                     *string  `json:"authority"`
	Notary                        *string  `json:"notary"`
	TreasuryWithdrawalDestination *string  `json:"treasuryWithdrawalDestination"`
	SellerFeeBp                   *uint16  `json:"sellerFeeBp"`
	BuyerReferralBp               *uint16  `json:"buyerReferralBp"`
	SellerReferralBp              *uint16  `json:"sellerReferralBp"`
	RequiresNotary                *bool    `json:"requiresNotary"`
	NotaryEnforcePct              *uint8   `json:"notaryEnforcePct"`
	Signers                       []string `json:"signers"`
}

func (s *Server) updateMarketplace(raw json.RawMessage) (interface{}, *rpcError) {
	var p updateMarketplaceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, invalidParams(err)
	}
	params := marketplace.UpdateMarketplaceParams{
		MarketplaceID:    id,
		SellerFeeBp:      p.SellerFeeBp,
		BuyerReferralBp:  p.BuyerReferralBp,
		SellerReferralBp: p.SellerReferralBp,
		RequiresNotary:   p.RequiresNotary,
		NotaryEnforcePct: p.NotaryEnforcePct,
		Signers:          sig,
	}
	for _, pair := range []struct {
		src *string
		dst **[20]byte
	}{
		{p.Authority, &params.Authority},
		{p.Notary, &params.Notary},
		{p.TreasuryWithdrawalDestination, &params.TreasuryWithdrawalDestination},
	} {
		if pair.src == nil {
			continue
		}
		a, err := parseAddr(*pair.src)
		if err != nil {
			return nil, invalidParams(err)
		}
		*pair.dst = &a
	}
	m, err := s.engine.UpdateMarketplace(params)
	metrics.Marketplace().ObserveOperation("updateMarketplace", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return marketplaceView(m), nil
}

type escrowParams struct {
	MarketplaceID string   `json:"marketplace"`
	Wallet        string   `json:"wallet"`
	Payer         string   `json:"payer"`
	Mint          string   `json:"mint"`
	Amount        string   `json:"amount"`
	Signers       []string `json:"signers"`
}

func (s *Server) deposit(raw json.RawMessage) (interface{}, *rpcError) {
	p, parsed, rpcErr := s.parseEscrowParams(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payer, err := parseOptAddr(p.Payer)
	if err != nil {
		return nil, invalidParams(err)
	}
	err = s.engine.Deposit(parsed.id, parsed.wallet, payer, parsed.mint, parsed.amount, parsed.sig)
	metrics.Marketplace().ObserveOperation("deposit", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) withdraw(raw json.RawMessage) (interface{}, *rpcError) {
	_, parsed, rpcErr := s.parseEscrowParams(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	err := s.engine.Withdraw(parsed.id, parsed.wallet, parsed.mint, parsed.amount, parsed.sig)
	metrics.Marketplace().ObserveOperation("withdraw", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return map[string]bool{"ok": true}, nil
}

type parsedEscrow struct {
	id     [32]byte
	wallet [20]byte
	mint   [32]byte
	amount *big.Int
	sig    marketplace.Signers
}

func (s *Server) parseEscrowParams(raw json.RawMessage) (*escrowParams, *parsedEscrow, *rpcError) {
	var p escrowParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, nil, invalidParams(err)
	}
	wallet, err := parseAddr(p.Wallet)
	if err != nil {
		return nil, nil, invalidParams(err)
	}
	mint, err := parseKey(p.Mint)
	if err != nil {
		return nil, nil, invalidParams(err)
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return nil, nil, invalidParams(err)
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, nil, invalidParams(err)
	}
	return &p, &parsedEscrow{id: id, wallet: wallet, mint: mint, amount: amount, sig: sig}, nil
}

type listParams struct {
	MarketplaceID  string   `json:"marketplace"`
	Seller         string   `json:"seller"`
	SellerReferral string   `json:"sellerReferral"`
	AssetMint      string   `json:"assetMint"`
	PaymentMint    string   `json:"paymentMint"`
	Price          string   `json:"price"`
	Size           uint64   `json:"size"`
	ExpiryAt       int64    `json:"expiryAt"`
	EngineHeld     bool     `json:"engineHeld"`
	Payer          string   `json:"payer"`
	Signers        []string `json:"signers"`
}

func (s *Server) list(raw json.RawMessage) (interface{}, *rpcError) {
	var p listParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	seller, err := parseAddr(p.Seller)
	if err != nil {
		return nil, invalidParams(err)
	}
	referral, err := parseOptAddr(p.SellerReferral)
	if err != nil {
		return nil, invalidParams(err)
	}
	assetMint, err := parseKey(p.AssetMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	paymentMint, err := parseKey(p.PaymentMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	price, err := parseAmount(p.Price)
	if err != nil {
		return nil, invalidParams(err)
	}
	payer, err := parseOptAddr(p.Payer)
	if err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, invalidParams(err)
	}
	custody := marketplace.CustodySellerDelegated
	if p.EngineHeld {
		custody = marketplace.CustodyEngineHeld
	}
	params := marketplace.ListParams{
		MarketplaceID: id,
		Seller:        seller,
		AssetMint:     assetMint,
		PaymentMint:   paymentMint,
		Price:         price,
		Size:          p.Size,
		ExpiryAt:      p.ExpiryAt,
		Custody:       custody,
		Payer:         payer,
		Signers:       sig,
	}
	if referral != nil {
		params.SellerReferral = *referral
	}
	o, err := s.engine.List(params)
	metrics.Marketplace().ObserveOperation("list", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return sellOrderView(o), nil
}

type cancelParams struct {
	MarketplaceID string   `json:"marketplace"`
	Owner         string   `json:"owner"`
	AssetMint     string   `json:"assetMint"`
	PaymentMint   string   `json:"paymentMint"`
	Price         string   `json:"price"`
	Size          uint64   `json:"size"`
	ExpiryAt      int64    `json:"expiryAt"`
	Signers       []string `json:"signers"`
}

type parsedCancel struct {
	id          [32]byte
	owner       [20]byte
	assetMint   [32]byte
	paymentMint [32]byte
	price       *big.Int
	size        uint64
	expiryAt    int64
	sig         marketplace.Signers
}

func (s *Server) parseCancelParams(raw json.RawMessage) (*parsedCancel, *rpcError) {
	var p cancelParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	owner, err := parseAddr(p.Owner)
	if err != nil {
		return nil, invalidParams(err)
	}
	assetMint, err := parseKey(p.AssetMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	paymentMint, err := parseKey(p.PaymentMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	price, err := parseAmount(p.Price)
	if err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, invalidParams(err)
	}
	return &parsedCancel{
		id:          id,
		owner:       owner,
		assetMint:   assetMint,
		paymentMint: paymentMint,
		price:       price,
		size:        p.Size,
		expiryAt:    p.ExpiryAt,
		sig:         sig,
	}, nil
}

func (s *Server) cancelList(raw json.RawMessage) (interface{}, *rpcError) {
	p, rpcErr := s.parseCancelParams(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	err := s.engine.CancelList(marketplace.CancelListParams{
		MarketplaceID: p.id,
		Seller:        p.owner,
		AssetMint:     p.assetMint,
		PaymentMint:   p.paymentMint,
		Price:         p.price,
		Size:          p.size,
		ExpiryAt:      p.expiryAt,
		Signers:       p.sig,
	})
	metrics.Marketplace().ObserveOperation("cancelList", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) cancelBid(raw json.RawMessage) (interface{}, *rpcError) {
	p, rpcErr := s.parseCancelParams(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	err := s.engine.CancelBid(marketplace.CancelBidParams{
		MarketplaceID: p.id,
		Buyer:         p.owner,
		AssetMint:     p.assetMint,
		PaymentMint:   p.paymentMint,
		Price:         p.price,
		Size:          p.size,
		ExpiryAt:      p.expiryAt,
		Signers:       p.sig,
	})
	metrics.Marketplace().ObserveOperation("cancelBid", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return map[string]bool{"ok": true}, nil
}

type bidParams struct {
	MarketplaceID string   `json:"marketplace"`
	Buyer         string   `json:"buyer"`
	BuyerReferral string   `json:"buyerReferral"`
	AssetMint     string   `json:"assetMint"`
	PaymentMint   string   `json:"paymentMint"`
	Price         string   `json:"price"`
	Size          uint64   `json:"size"`
	ExpiryAt      int64    `json:"expiryAt"`
	RoyaltyBp     uint16   `json:"royaltyBp"`
	Payer         string   `json:"payer"`
	Signers       []string `json:"signers"`
}

func (s *Server) bid(raw json.RawMessage) (interface{}, *rpcError) {
	var p bidParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	buyer, err := parseAddr(p.Buyer)
	if err != nil {
		return nil, invalidParams(err)
	}
	referral, err := parseOptAddr(p.BuyerReferral)
	if err != nil {
		return nil, invalidParams(err)
	}
	assetMint, err := parseKey(p.AssetMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	paymentMint, err := parseKey(p.PaymentMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	price, err := parseAmount(p.Price)
	if err != nil {
		return nil, invalidParams(err)
	}
	payer, err := parseOptAddr(p.Payer)
	if err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, invalidParams(err)
	}
	params := marketplace.BidParams{
		MarketplaceID: id,
		Buyer:         buyer,
		AssetMint:     assetMint,
		PaymentMint:   paymentMint,
		Price:         price,
		Size:          p.Size,
		ExpiryAt:      p.ExpiryAt,
		RoyaltyBp:     p.RoyaltyBp,
		Payer:         payer,
		Signers:       sig,
	}
	if referral != nil {
		params.BuyerReferral = *referral
	}
	o, err := s.engine.Bid(params)
	metrics.Marketplace().ObserveOperation("bid", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return buyOrderView(o), nil
}

type executeSaleParams struct {
	MarketplaceID string   `json:"marketplace"`
	Buyer         string   `json:"buyer"`
	Seller        string   `json:"seller"`
	AssetMint     string   `json:"assetMint"`
	PaymentMint   string   `json:"paymentMint"`
	Price         string   `json:"price"`
	Size          uint64   `json:"size"`
	MakerFeeBp    int16    `json:"makerFeeBp"`
	TakerFeeBp    uint16   `json:"takerFeeBp"`
	Creators      []string `json:"creators"`
	Payer         string   `json:"payer"`
	Signers       []string `json:"signers"`
}

func (s *Server) executeSale(raw json.RawMessage) (interface{}, *rpcError) {
	var p executeSaleParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	buyer, err := parseAddr(p.Buyer)
	if err != nil {
		return nil, invalidParams(err)
	}
	seller, err := parseAddr(p.Seller)
	if err != nil {
		return nil, invalidParams(err)
	}
	assetMint, err := parseKey(p.AssetMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	paymentMint, err := parseKey(p.PaymentMint)
	if err != nil {
		return nil, invalidParams(err)
	}
	price, err := parseAmount(p.Price)
	if err != nil {
		return nil, invalidParams(err)
	}
	creators := make([][20]byte, 0, len(p.Creators))
	for _, c := range p.Creators {
		a, err := parseAddr(c)
		if err != nil {
			return nil, invalidParams(err)
		}
		creators = append(creators, a)
	}
	payer, err := parseOptAddr(p.Payer)
	if err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseSigners(p.Signers)
	if err != nil {
		return nil, invalidParams(err)
	}
	receipt, err := s.engine.ExecuteSale(marketplace.ExecuteSaleParams{
		MarketplaceID: id,
		Buyer:         buyer,
		Seller:        seller,
		AssetMint:     assetMint,
		PaymentMint:   paymentMint,
		Price:         price,
		Size:          p.Size,
		MakerFeeBp:    p.MakerFeeBp,
		TakerFeeBp:    p.TakerFeeBp,
		Creators:      creators,
		Payer:         payer,
		Signers:       sig,
	})
	metrics.Marketplace().ObserveOperation("executeSale", err)
	if err != nil {
		return nil, errResponse(err)
	}
	metrics.Marketplace().ObserveSale(receipt.Price)
	return receiptView(receipt), nil
}

type treasuryParams struct {
	MarketplaceID string `json:"marketplace"`
	Amount        string `json:"amount"`
}

func (s *Server) withdrawFromTreasury(raw json.RawMessage) (interface{}, *rpcError) {
	var p treasuryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return nil, invalidParams(err)
	}
	err = s.engine.WithdrawFromTreasury(id, amount)
	metrics.Marketplace().ObserveOperation("withdrawFromTreasury", err)
	if err != nil {
		return nil, errResponse(err)
	}
	return map[string]bool{"ok": true}, nil
}

type marketplaceQuery struct {
	MarketplaceID string `json:"marketplace"`
}

func (s *Server) getMarketplace(raw json.RawMessage) (interface{}, *rpcError) {
	var p marketplaceQuery
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(p.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	m, err := s.engine.Marketplace(id)
	if err != nil {
		return nil, errResponse(err)
	}
	return marketplaceView(m), nil
}

type orderQuery struct {
	MarketplaceID string `json:"marketplace"`
	Owner         string `json:"owner"`
	AssetMint     string `json:"assetMint"`
	PaymentMint   string `json:"paymentMint"`
}

func (q orderQuery) parse() ([32]byte, [20]byte, [32]byte, [32]byte, error) {
	id, err := parseKey(q.MarketplaceID)
	if err != nil {
		return id, [20]byte{}, [32]byte{}, [32]byte{}, err
	}
	owner, err := parseAddr(q.Owner)
	if err != nil {
		return id, owner, [32]byte{}, [32]byte{}, err
	}
	assetMint, err := parseKey(q.AssetMint)
	if err != nil {
		return id, owner, assetMint, [32]byte{}, err
	}
	paymentMint, err := parseKey(q.PaymentMint)
	return id, owner, assetMint, paymentMint, err
}

func (s *Server) getSellOrder(raw json.RawMessage) (interface{}, *rpcError) {
	var q orderQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, invalidParams(err)
	}
	id, owner, assetMint, paymentMint, err := q.parse()
	if err != nil {
		return nil, invalidParams(err)
	}
	o, err := s.engine.SellOrder(id, owner, assetMint, paymentMint)
	if err != nil {
		return nil, errResponse(err)
	}
	return sellOrderView(o), nil
}

func (s *Server) getBuyOrder(raw json.RawMessage) (interface{}, *rpcError) {
	var q orderQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, invalidParams(err)
	}
	id, owner, assetMint, paymentMint, err := q.parse()
	if err != nil {
		return nil, invalidParams(err)
	}
	o, err := s.engine.BuyOrder(id, owner, assetMint, paymentMint)
	if err != nil {
		return nil, errResponse(err)
	}
	return buyOrderView(o), nil
}

type escrowQuery struct {
	MarketplaceID string `json:"marketplace"`
	Wallet        string `json:"wallet"`
	Mint          string `json:"mint"`
}

func (s *Server) getEscrowBalance(raw json.RawMessage) (interface{}, *rpcError) {
	var q escrowQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, invalidParams(err)
	}
	id, err := parseKey(q.MarketplaceID)
	if err != nil {
		return nil, invalidParams(err)
	}
	wallet, err := parseAddr(q.Wallet)
	if err != nil {
		return nil, invalidParams(err)
	}
	mint, err := parseKey(q.Mint)
	if err != nil {
		return nil, invalidParams(err)
	}
	bal, err := s.engine.EscrowBalance(id, wallet, mint)
	if err != nil {
		return nil, errResponse(err)
	}
	return map[string]string{"balance": bal.String()}, nil
}

package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/me-foundation/m2/config"
	"github.com/me-foundation/m2/core/state"
	"github.com/me-foundation/m2/core/types"
	"github.com/me-foundation/m2/native/marketplace"
	"github.com/me-foundation/m2/storage"
)

func rpcAddr(b byte) string {
	var a [20]byte
	a[0] = b
	return "0x" + hex.EncodeToString(a[:])
}

func rpcKey(b byte) string {
	var k [32]byte
	k[0] = b
	return "0x" + hex.EncodeToString(k[:])
}

type rpcHarness struct {
	srv     *Server
	manager *state.Manager
	token   string

	creator string
	seller  string
	buyer   string
	asset   string
}

func newRPCHarness(t *testing.T, cfg config.RPC) *rpcHarness {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	engine := marketplace.NewEngine()
	engine.SetState(manager)
	engine.SetNowFunc(func() int64 { return 1_800_000_000 })

	h := &rpcHarness{
		manager: manager,
		token:   cfg.AuthToken,
		creator: rpcAddr(0x01),
		seller:  rpcAddr(0x02),
		buyer:   rpcAddr(0x03),
		asset:   rpcKey(0xaa),
	}

	registry := marketplace.NewStaticRoyaltyRegistry()
	var assetMint [32]byte
	assetMint[0] = 0xaa
	err := registry.Register(assetMint, &marketplace.RoyaltyInfo{
		RoyaltyBp: 500,
		Creators:  []marketplace.Creator{{Address: mustAddr(t, h.creator), Share: 100}},
	})
	if err != nil {
		t.Fatalf("register royalty: %v", err)
	}
	engine.SetRoyaltyRegistry(registry)

	for _, addr := range []string{h.creator, h.seller, h.buyer} {
		if err := manager.AccountPut(mustAddr(t, addr), &types.Account{Balance: big.NewInt(10_000_000_000)}); err != nil {
			t.Fatalf("fund %s: %v", addr, err)
		}
	}
	seller := mustAddr(t, h.seller)
	err = manager.TokenAccountPut(&marketplace.TokenAccount{
		Address: marketplace.TokenAccountAddress(seller, assetMint),
		Mint:    assetMint,
		Owner:   seller,
		Amount:  big.NewInt(1),
		Rent:    big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("mint asset: %v", err)
	}

	h.srv = NewServer(engine, cfg, nil)
	return h
}

func mustAddr(t *testing.T, s string) [20]byte {
	t.Helper()
	a, err := parseAddr(s)
	if err != nil {
		t.Fatalf("parse addr %s: %v", s, err)
	}
	return a
}

func (h *rpcHarness) call(t *testing.T, method string, params interface{}) response {
	t.Helper()
	return h.callFrom(t, "192.0.2.1:4000", h.token, method, params)
}

func (h *rpcHarness) callFrom(t *testing.T, remote, token, method string, params interface{}) response {
	t.Helper()
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  method,
		Params:  mustJSON(t, params),
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	req.RemoteAddr = remote
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return raw
}

func resultMap(t *testing.T, resp response) map[string]interface{} {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	m, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result is %T, want object", resp.Result)
	}
	return m
}

func TestServerSettlementFlow(t *testing.T) {
	h := newRPCHarness(t, config.RPC{AuthToken: "secret"})

	created := resultMap(t, h.call(t, "m2_createMarketplace", map[string]interface{}{
		"creator": h.creator,
		"signers": []string{h.creator},
	}))
	mktID, _ := created["id"].(string)
	if mktID == "" {
		t.Fatalf("create returned no marketplace id: %v", created)
	}

	price := "1000000"
	resp := h.call(t, "m2_deposit", map[string]interface{}{
		"marketplace": mktID,
		"wallet":      h.buyer,
		"amount":      "2000000",
		"signers":     []string{h.buyer},
	})
	if resp.Error != nil {
		t.Fatalf("deposit: %v", resp.Error)
	}

	listed := resultMap(t, h.call(t, "m2_list", map[string]interface{}{
		"marketplace": mktID,
		"seller":      h.seller,
		"assetMint":   h.asset,
		"price":       price,
		"size":        1,
		"engineHeld":  true,
		"signers":     []string{h.seller},
	}))
	if !listed["engineHeld"].(bool) {
		t.Fatalf("listing not engine held: %v", listed)
	}

	bid := resultMap(t, h.call(t, "m2_bid", map[string]interface{}{
		"marketplace": mktID,
		"buyer":       h.buyer,
		"assetMint":   h.asset,
		"price":       price,
		"size":        1,
		"royaltyBp":   10000,
		"signers":     []string{h.buyer},
	}))
	if bid["price"].(string) != price {
		t.Fatalf("bid price = %v, want %s", bid["price"], price)
	}

	receipt := resultMap(t, h.call(t, "m2_executeSale", map[string]interface{}{
		"marketplace": mktID,
		"buyer":       h.buyer,
		"seller":      h.seller,
		"assetMint":   h.asset,
		"price":       price,
		"size":        1,
		"creators":    []string{h.creator},
		"signers":     []string{h.seller},
	}))
	// 250bp default taker fee on the seller as taker; 5% royalty in full.
	if receipt["takerFee"].(string) != "25000" {
		t.Fatalf("takerFee = %v, want 25000", receipt["takerFee"])
	}
	if receipt["royaltyPaid"].(string) != "50000" {
		t.Fatalf("royaltyPaid = %v, want 50000", receipt["royaltyPaid"])
	}
	if receipt["sellerReceives"].(string) != price {
		t.Fatalf("sellerReceives = %v, want %s", receipt["sellerReceives"], price)
	}

	resp = h.call(t, "m2_getSellOrder", map[string]interface{}{
		"marketplace": mktID,
		"owner":       h.seller,
		"assetMint":   h.asset,
	})
	if resp.Error == nil {
		t.Fatalf("sell order should be retired after settlement")
	}

	var assetMint [32]byte
	assetMint[0] = 0xaa
	holding, ok, err := h.manager.TokenAccountGet(marketplace.TokenAccountAddress(mustAddr(t, h.buyer), assetMint))
	if err != nil || !ok {
		t.Fatalf("buyer holding missing: ok=%v err=%v", ok, err)
	}
	if holding.Amount.Int64() != 1 {
		t.Fatalf("buyer holds %s, want 1", holding.Amount)
	}
}

func TestServerAuth(t *testing.T) {
	h := newRPCHarness(t, config.RPC{AuthToken: "secret"})

	resp := h.callFrom(t, "192.0.2.1:4000", "", "m2_createMarketplace", map[string]interface{}{
		"creator": h.creator,
		"signers": []string{h.creator},
	})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("missing token: got %v, want code %d", resp.Error, codeUnauthorized)
	}

	resp = h.callFrom(t, "192.0.2.1:4000", "wrong", "m2_getMarketplace", map[string]interface{}{
		"marketplace": rpcKey(0x01),
	})
	if resp.Error == nil || resp.Error.Code == codeUnauthorized {
		t.Fatalf("read methods must not require auth, got %v", resp.Error)
	}
}

func TestServerMethodNotFound(t *testing.T) {
	h := newRPCHarness(t, config.RPC{})
	resp := h.call(t, "m2_noSuchMethod", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("got %v, want code %d", resp.Error, codeMethodNotFound)
	}
}

func TestServerInvalidParams(t *testing.T) {
	h := newRPCHarness(t, config.RPC{})
	resp := h.call(t, "m2_createMarketplace", map[string]interface{}{
		"creator": "0xnothex",
		"signers": []string{},
	})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("got %v, want code %d", resp.Error, codeInvalidParams)
	}
}

func TestServerQuota(t *testing.T) {
	h := newRPCHarness(t, config.RPC{MaxRequestsPerMinute: 2})
	query := map[string]interface{}{"marketplace": rpcKey(0x01)}

	for i := 0; i < 2; i++ {
		resp := h.callFrom(t, "192.0.2.7:1000", "", "m2_getMarketplace", query)
		if resp.Error != nil && resp.Error.Code == codeQuotaExceeded {
			t.Fatalf("request %d throttled too early", i+1)
		}
	}
	resp := h.callFrom(t, "192.0.2.7:1000", "", "m2_getMarketplace", query)
	if resp.Error == nil || resp.Error.Code != codeQuotaExceeded {
		t.Fatalf("got %v, want code %d", resp.Error, codeQuotaExceeded)
	}
	// Other remotes keep their own budget.
	resp = h.callFrom(t, "192.0.2.8:1000", "", "m2_getMarketplace", query)
	if resp.Error != nil && resp.Error.Code == codeQuotaExceeded {
		t.Fatalf("separate remote throttled: %v", resp.Error)
	}
}

func TestServerRejectsMalformedBody(t *testing.T) {
	h := newRPCHarness(t, config.RPC{})
	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte("{not json")))
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("got %v, want code %d", resp.Error, codeParseError)
	}
}

func TestServerRejectsGet(t *testing.T) {
	h := newRPCHarness(t, config.RPC{})
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != 405 {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestServerBatchUnsupportedMethodsIsolated(t *testing.T) {
	h := newRPCHarness(t, config.RPC{AuthToken: "secret"})
	// A failing call must not poison later calls on the same server.
	bad := h.call(t, "m2_getMarketplace", map[string]interface{}{"marketplace": rpcKey(0x55)})
	if bad.Error == nil {
		t.Fatalf("expected lookup failure for unknown marketplace")
	}
	good := h.call(t, "m2_createMarketplace", map[string]interface{}{
		"creator": h.creator,
		"signers": []string{h.creator},
	})
	if good.Error != nil {
		t.Fatalf("create after failed lookup: %v", good.Error)
	}
}

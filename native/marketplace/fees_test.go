package marketplace

import (
	"math/big"
	"testing"
)

func TestComputeFeesSellerTaker(t *testing.T) {
	fees, err := ComputeFees(FeeInputs{
		Price:         big.NewInt(1_000_000),
		MakerFeeBp:    100,
		TakerFeeBp:    250,
		SellerIsTaker: true,
	})
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	if got := fees.MakerFee.Int64(); got != 10_000 {
		t.Fatalf("maker fee = %d, want 10000", got)
	}
	if got := fees.TakerFee.Int64(); got != 25_000 {
		t.Fatalf("taker fee = %d, want 25000", got)
	}
	if got := fees.SellerReceives.Int64(); got != 1_010_000 {
		t.Fatalf("seller receives = %d, want 1010000", got)
	}
	if got := fees.PlatformFeeTotal.Int64(); got != 35_000 {
		t.Fatalf("platform fee = %d, want 35000", got)
	}
}

func TestComputeFeesBuyerTaker(t *testing.T) {
	fees, err := ComputeFees(FeeInputs{
		Price:      big.NewInt(1_000_000),
		MakerFeeBp: 100,
		TakerFeeBp: 250,
	})
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	if got := fees.SellerReceives.Int64(); got != 990_000 {
		t.Fatalf("seller receives = %d, want 990000", got)
	}
	if got := fees.PlatformFeeTotal.Int64(); got != 35_000 {
		t.Fatalf("platform fee = %d, want 35000", got)
	}
}

func TestComputeFeesNegativeMaker(t *testing.T) {
	fees, err := ComputeFees(FeeInputs{
		Price:      big.NewInt(1_000_001),
		MakerFeeBp: -100,
		TakerFeeBp: 250,
	})
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	// -100bp of 1000001 truncates toward zero.
	if got := fees.MakerFee.Int64(); got != -10_000 {
		t.Fatalf("maker fee = %d, want -10000", got)
	}
	if got := fees.SellerReceives.Int64(); got != 1_010_001 {
		t.Fatalf("seller receives = %d, want 1010001", got)
	}
	if got := fees.PlatformFeeTotal.Int64(); got != 15_000 {
		t.Fatalf("platform fee = %d, want 15000", got)
	}
}

func TestComputeFeesPlatformBound(t *testing.T) {
	// Platform fee never exceeds (MaxMakerFeeBp+MaxTakerFeeBp)/10000 of price.
	price := big.NewInt(123_456_789)
	fees, err := ComputeFees(FeeInputs{Price: price, MakerFeeBp: MaxMakerFeeBp, TakerFeeBp: MaxTakerFeeBp})
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	bound := new(big.Int).Mul(price, big.NewInt(int64(MaxMakerFeeBp)+int64(MaxTakerFeeBp)))
	bound.Quo(bound, big.NewInt(10_000))
	if fees.PlatformFeeTotal.Cmp(bound) > 0 {
		t.Fatalf("platform fee %s exceeds bound %s", fees.PlatformFeeTotal, bound)
	}
}

func TestValidateFeeBps(t *testing.T) {
	cases := []struct {
		maker int16
		taker uint16
		ok    bool
	}{
		{0, 250, true},
		{500, 500, true},
		{-250, 250, true},
		{-251, 250, false},
		{501, 250, false},
		{0, 501, false},
	}
	for _, tc := range cases {
		err := ValidateFeeBps(tc.maker, tc.taker)
		if tc.ok && err != nil {
			t.Fatalf("maker=%d taker=%d: unexpected error %v", tc.maker, tc.taker, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("maker=%d taker=%d: expected error", tc.maker, tc.taker)
		}
	}
}

func TestValidatePrice(t *testing.T) {
	if err := ValidatePrice(big.NewInt(0)); err == nil {
		t.Fatal("zero price accepted")
	}
	if err := ValidatePrice(nil); err == nil {
		t.Fatal("nil price accepted")
	}
	max := new(big.Int).SetUint64(MaxPrice)
	if err := ValidatePrice(max); err != nil {
		t.Fatalf("max price rejected: %v", err)
	}
	if err := ValidatePrice(new(big.Int).Add(max, big.NewInt(1))); err == nil {
		t.Fatal("above-max price accepted")
	}
}

func TestComputeRoyalty(t *testing.T) {
	got, err := ComputeRoyalty(big.NewInt(1_000_000), 500, 10_000)
	if err != nil {
		t.Fatalf("compute royalty: %v", err)
	}
	if got.Int64() != 50_000 {
		t.Fatalf("royalty = %d, want 50000", got.Int64())
	}
	// Half participation floors after the full-rate floor.
	got, err = ComputeRoyalty(big.NewInt(999), 500, 5_000)
	if err != nil {
		t.Fatalf("compute royalty: %v", err)
	}
	// floor(floor(999*500/10000)*5000/10000) = floor(49*0.5) = 24
	if got.Int64() != 24 {
		t.Fatalf("royalty = %d, want 24", got.Int64())
	}
	if _, err := ComputeRoyalty(big.NewInt(1), 10_001, 0); err == nil {
		t.Fatal("out-of-range royalty bp accepted")
	}
}

func TestSplitRoyalty(t *testing.T) {
	a, b := testAddr(0xa1), testAddr(0xa2)
	cuts := SplitRoyalty(big.NewInt(101), []Creator{{Address: a, Share: 60}, {Address: b, Share: 40}})
	if cuts[0].Int64() != 60 || cuts[1].Int64() != 40 {
		t.Fatalf("cuts = %s/%s, want 60/40", cuts[0], cuts[1])
	}
	// The flooring remainder stays unpaid.
	sum := new(big.Int).Add(cuts[0], cuts[1])
	if sum.Int64() != 100 {
		t.Fatalf("sum = %d, want 100", sum.Int64())
	}
}

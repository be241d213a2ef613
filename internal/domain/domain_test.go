package domain

import "testing"

func TestBaseAsset(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT": "BTC",
		"ETH":      "ETH",
		"SOL/USD":  "SOL",
	}
	for in, want := range cases {
		if got := BaseAsset(in); got != want {
			t.Fatalf("BaseAsset(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHoldSignal(t *testing.T) {
	sig := HoldSignal("no market data available")
	if sig.Type != SignalHold {
		t.Fatalf("expected hold, got %s", sig.Type)
	}
	if sig.Confidence != 0.5 {
		t.Fatalf("expected confidence 0.5, got %.2f", sig.Confidence)
	}
	if sig.PositionSize != 0 {
		t.Fatalf("hold signal must carry no position size")
	}
}

func TestCoinGeckoMappingsAreConsistent(t *testing.T) {
	for _, sym := range SupportedSymbols {
		base := BaseAsset(sym)
		id, ok := CoinGeckoID[base]
		if !ok {
			t.Fatalf("symbol %s missing CoinGecko id", sym)
		}
		if back := CoinGeckoIDToSymbol[id]; back != base {
			t.Fatalf("reverse mapping broken for %s: got %s", sym, back)
		}
		if !SupportedSymbol(sym) {
			t.Fatalf("SupportedSymbol(%q) must be true", sym)
		}
	}
	if SupportedSymbol("SHIB/USDT") {
		t.Fatal("unexpected symbol must not be supported")
	}
}

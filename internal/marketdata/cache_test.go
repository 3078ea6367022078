package marketdata

import (
	"testing"
	"time"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := newMemoryCache(time.Minute, true)
	c.set("k", 42)

	v, ok := c.get("k")
	if !ok || v.(int) != 42 {
		t.Errorf("get = %v, %v, want 42, true", v, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := newMemoryCache(10*time.Millisecond, true)
	c.set("k", "v")

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCacheDisabled(t *testing.T) {
	c := newMemoryCache(time.Minute, false)
	c.set("k", "v")
	if _, ok := c.get("k"); ok {
		t.Error("disabled cache must never hit")
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "brk.b", "^GSPC", "BTC-USD", "EURUSD=X"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("ValidateSymbol(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "   ", "AAPL;DROP", "WAY_TOO_LONG_SYMBOL", "a b"}
	for _, s := range invalid {
		if err := ValidateSymbol(s); err == nil {
			t.Errorf("ValidateSymbol(%q) = nil, want error", s)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  aapl "); got != "AAPL" {
		t.Errorf("NormalizeSymbol = %q", got)
	}
}

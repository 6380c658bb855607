package promo

import (
	"strings"
	"testing"
)

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewCode()
		if !strings.HasPrefix(code, "DANA-") {
			t.Fatalf("unexpected code format: %q", code)
		}
		if len(code) != len("DANA-")+8 {
			t.Fatalf("unexpected code length: %q", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("code must be uppercase: %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = true
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  dana-ab12cd34 "); got != "DANA-AB12CD34" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
}

package util

import (
	"strings"
	"testing"
)

func TestHashKeyStableAndDistinct(t *testing.T) {
	a := HashKey("memo:f", "1", "2")
	b := HashKey("memo:f", "1", "2")
	c := HashKey("memo:f", "12")
	if a != b {
		t.Fatalf("not deterministic: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("part boundaries must matter")
	}
	if !strings.HasPrefix(a, "memo:f:") || len(a) != len("memo:f:")+16 {
		t.Fatalf("unexpected shape %q", a)
	}
}

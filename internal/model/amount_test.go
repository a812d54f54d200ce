package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("10.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "10.5" {
		t.Fatalf("parsed value mismatch: %s", d)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "2000000000"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestToDropsFloors(t *testing.T) {
	d := decimal.RequireFromString("1.9999999")
	if got := ToDrops(d); got != "1999999" {
		t.Fatalf("drops mismatch: %s", got)
	}
	if got := ToDrops(decimal.NewFromInt(10)); got != "10000000" {
		t.Fatalf("drops mismatch: %s", got)
	}
}

func TestFromDrops(t *testing.T) {
	got := FromDrops(decimal.NewFromInt(2_500_000))
	if got.String() != "2.5" {
		t.Fatalf("from drops mismatch: %s", got)
	}
}

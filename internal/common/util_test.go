package common

import (
	"encoding/hex"
	"strconv"
	"testing"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestMakeRandHexString_EntropyHint(t *testing.T) {
	const n = 32
	a, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a == b {
		t.Logf("warning: two MakeRandHexString(%d) results are identical; extremely unlikely", n)
	}
}

// ---------- MakeRandNumericCode ----------

func TestMakeRandNumericCode_LengthAndDigits(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		s, err := MakeRandNumericCode(n)
		if err != nil {
			t.Fatalf("unexpected error for length=%d: %v", n, err)
		}
		if len(s) != n {
			t.Fatalf("expected length %d, got %d (%q)", n, len(s), s)
		}
		if _, err := strconv.Atoi(s); err != nil {
			t.Fatalf("code is not numeric: %q", s)
		}
	}
}

func TestMakeRandNumericCode_InvalidLength(t *testing.T) {
	if _, err := MakeRandNumericCode(0); err == nil {
		t.Fatalf("expected error for length=0")
	}
	if _, err := MakeRandNumericCode(-3); err == nil {
		t.Fatalf("expected error for negative length")
	}
}

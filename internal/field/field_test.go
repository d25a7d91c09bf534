package field

import "testing"

func TestElementReduction(t *testing.T) {
	if NewElement(Modulus) != 0 {
		t.Fatal("modulus should reduce to zero")
	}
	if NewElement(Modulus+5) != 5 {
		t.Fatal("modulus+5 should reduce to 5")
	}
}

func TestAddWraps(t *testing.T) {
	a := NewElement(Modulus - 1)
	if got := a.Add(NewElement(1)); got != 0 {
		t.Fatalf("(p-1)+1 should be 0, got %d", got)
	}
	if got := a.Add(a); got != NewElement(Modulus-2) {
		t.Fatalf("(p-1)+(p-1) should be p-2, got %d", got)
	}
}

func TestSubWraps(t *testing.T) {
	if got := NewElement(0).Sub(NewElement(1)); got != Element(Modulus-1) {
		t.Fatalf("0-1 should be p-1, got %d", got)
	}
	if got := NewElement(7).Sub(NewElement(3)); got != 4 {
		t.Fatalf("7-3 should be 4, got %d", got)
	}
}

func TestWordBytesRoundTrip(t *testing.T) {
	w := WordFromUints(1, 2, 3, 4)
	b := w.Bytes()
	if len(b) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(b))
	}
	if b[0] != 1 || b[8] != 2 || b[16] != 3 || b[24] != 4 {
		t.Fatal("little-endian layout mismatch")
	}
}

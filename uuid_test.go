package ravrf

import "testing"

func TestNewScanIDIsUnique(t *testing.T) {
	a := NewScanID()
	b := NewScanID()
	if a.String() == b.String() {
		t.Fatalf("two calls to NewScanID produced the same value: %s", a)
	}
	if len(a.String()) != 36 {
		t.Errorf("String() length = %d, want 36 (canonical UUID form)", len(a.String()))
	}
}

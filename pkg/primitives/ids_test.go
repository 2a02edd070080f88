package primitives

import "testing"

func TestPageIDIsValid(t *testing.T) {
	tests := []struct {
		name string
		id   PageID
		want bool
	}{
		{"invalid sentinel", InvalidPageID, false},
		{"header page", HeaderPageID, true},
		{"ordinary page", PageID(42), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRIDCompare(t *testing.T) {
	a := NewRID(1, 0)
	b := NewRID(1, 1)
	c := NewRID(2, 0)

	if a.Compare(b) >= 0 {
		t.Errorf("expected a < b")
	}
	if b.Compare(c) >= 0 {
		t.Errorf("expected b < c")
	}
	if a.Compare(a) != 0 {
		t.Errorf("expected a == a")
	}
	if c.Compare(a) <= 0 {
		t.Errorf("expected c > a")
	}
}

func TestRIDBytesRoundTrip(t *testing.T) {
	r := NewRID(0x01020304, 0x05060708)
	b := r.Bytes()
	want := [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if b != want {
		t.Errorf("Bytes() = %x, want %x", b, want)
	}
}

package hwio

import (
	"math/rand/v2"
	"testing"
)

func TestAddrSetRanges(t *testing.T) {
	tests := []struct {
		first, last uint16
	}{
		{0x0000, 0x0000},
		{0x0000, 0xFFFF},
		{0x6000, 0x7FFF},
		{0x1003, 0x1005},
		{0x103F, 0x1040},
		{0xFF00, 0xFFFF},
		{0xFFFF, 0xFFFF},
	}
	for _, tt := range tests {
		var s AddrSet
		s.AddRange(tt.first, tt.last)

		for _, a := range []uint16{tt.first - 1, tt.first, tt.last, tt.last + 1} {
			want := a >= tt.first && a <= tt.last
			if s.Has(a) != want {
				t.Errorf("[%04X-%04X] Has(%04X) = %t, want %t", tt.first, tt.last, a, !want, want)
			}
		}
		if a, ok := s.FirstIn(0, 0xFFFF); !ok || a != tt.first {
			t.Errorf("[%04X-%04X] FirstIn(all) = %04X,%t", tt.first, tt.last, a, ok)
		}
	}
}

func TestAddrSetFirstIn(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	var s AddrSet
	members := make(map[uint16]bool)
	for range 300 {
		a := uint16(rng.UintN(0x10000))
		s.Add(a)
		members[a] = true
	}

	for range 1000 {
		first := uint16(rng.UintN(0x10000))
		last := first + uint16(rng.UintN(uint(0xFFFF-first)+1))

		want, wantOK := uint16(0), false
		for a := uint(first); a <= uint(last); a++ {
			if members[uint16(a)] {
				want, wantOK = uint16(a), true
				break
			}
		}
		got, ok := s.FirstIn(first, last)
		if got != want || ok != wantOK {
			t.Fatalf("FirstIn(%04X, %04X) = %04X,%t, want %04X,%t", first, last, got, ok, want, wantOK)
		}
	}
}

func TestAddrSetInvalidRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("AddRange(2, 1) did not panic")
		}
	}()
	var s AddrSet
	s.AddRange(2, 1)
}

package hwio

import (
	"fmt"
	"math/bits"
)

const numAddrWords = 0x10000 / 64

// AddrSet is a set of host addresses. The zero value is empty.
type AddrSet struct {
	words [numAddrWords]uint64
}

// mask of bits lo to hi included.
func wordMask(lo, hi uint) uint64 {
	return (^uint64(0) >> (63 - hi)) &^ (1<<lo - 1)
}

// each calls fn with the mask of every word covering [first, last].
func each(first, last uint16, fn func(w int, mask uint64) bool) {
	if first > last {
		panic(fmt.Sprintf("invalid address range $%04X-$%04X", first, last))
	}
	fw, lw := int(first/64), int(last/64)
	for w := fw; w <= lw; w++ {
		lo, hi := uint(0), uint(63)
		if w == fw {
			lo = uint(first % 64)
		}
		if w == lw {
			hi = uint(last % 64)
		}
		if !fn(w, wordMask(lo, hi)) {
			return
		}
	}
}

func (s *AddrSet) Has(addr uint16) bool {
	return s.words[addr/64]&(1<<(addr%64)) != 0
}

func (s *AddrSet) Add(addr uint16) {
	s.words[addr/64] |= 1 << (addr % 64)
}

// AddRange adds the addresses from first to last included.
func (s *AddrSet) AddRange(first, last uint16) {
	each(first, last, func(w int, m uint64) bool {
		s.words[w] |= m
		return true
	})
}

// FirstIn returns the lowest address of the set in [first, last].
func (s *AddrSet) FirstIn(first, last uint16) (addr uint16, ok bool) {
	each(first, last, func(w int, m uint64) bool {
		if m &= s.words[w]; m != 0 {
			addr, ok = uint16(w*64+bits.TrailingZeros64(m)), true
			return false
		}
		return true
	})
	return addr, ok
}

package hwio

import (
	"unsafe"

	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
)

// mem is the resource created from a Mem description.
//
// It is used by pointer because resources are stored as interfaces in
// Claims, and the dispatcher calls it for every claimed cycle.
type mem struct {
	name  string
	ptr   unsafe.Pointer
	mask  uint16
	first uint16
	last  uint16
	wcb   func(uint16, uint8)
	ro    MemFlags
}

func newMem(m *Mem) *mem {
	buf := m.Data
	if len(buf) == 0 || len(buf)&(len(buf)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	vsize := m.VSize
	if vsize == 0 {
		vsize = len(buf)
	}
	if int(m.Base)+vsize > 0x10000 {
		panic("memory window overflows the address space")
	}
	return &mem{
		name:  m.Name,
		ptr:   unsafe.Pointer(&buf[0]),
		mask:  uint16(len(buf) - 1),
		first: m.Base,
		last:  m.Base + uint16(vsize-1),
		wcb:   m.WriteCb,
		ro:    m.Flags,
	}
}

func (m *mem) Claims(addr uint16) bool {
	return addr >= m.first && addr <= m.last
}

func (m *mem) Range() (first, last uint16) {
	return m.first, m.last
}

func (m *mem) Read8(addr uint16) uint8 {
	off := uintptr((addr - m.first) & m.mask)
	return *(*uint8)(unsafe.Pointer(uintptr(m.ptr) + off))
}

func (m *mem) Write8(addr uint16, val uint8) {
	if m.wcb != nil {
		m.wcb(addr, val)
		return
	}

	switch m.ro {
	case MemFlagReadWrite:
		off := uintptr((addr - m.first) & m.mask)
		*(*uint8)(unsafe.Pointer(uintptr(m.ptr) + off)) = val
	case MemFlag8ReadOnly:
		if hwdefs.Debug {
			log.ModHwIo.ErrorZ("Write8 to readonly memory").
				String("name", m.name).
				Hex8("val", val).
				Hex16("addr", addr).
				End()
		}
	case MemFlagNoROLog:
		return
	}
}

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlag8ReadOnly MemFlags = (1 << iota) // read-only accesses
	MemFlagNoROLog                          // readonly, writes silently dropped
)

// Mem describes a linear memory window that can be claimed on the bus.
//
// Data must have a power of 2 size. When VSize is bigger than len(Data) the
// buffer is mirrored over the whole window.
type Mem struct {
	Name    string              // name of the memory area (for debugging)
	Base    uint16              // first address of the window
	Data    []byte              // actual memory buffer
	VSize   int                 // window size, defaults to len(Data)
	Flags   MemFlags            // flags determining how the memory can be accessed
	WriteCb func(uint16, uint8) // optional write callback (if set, the callback is called instead of writing)
}

// Resource creates the bus resource for m. The layout is captured at call
// time.
func (m *Mem) Resource() Resource {
	return newMem(m)
}

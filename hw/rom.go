package hw

import (
	"fmt"

	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
	"ebtks/hw/hwio"
)

// RomBank is a set of option ROMs sharing the 0x6000-0x7FFF window. The
// host selects one by writing its id to the RSELEC register; the window is
// only claimed when the selected id is one of ours.
type RomBank struct {
	roms [256]*[hwdefs.RomSize]byte
	sel  uint8
	dev  hwio.Device
}

func NewRomBank() *RomBank {
	rb := &RomBank{}
	rb.dev = hwio.Device{
		Name:  "option roms",
		Base:  hwdefs.RomWindow,
		Size:  hwdefs.RomSize,
		Flags: hwio.ReadOnlyFlag,
		ClaimCb: func(uint16) bool {
			return rb.roms[rb.sel] != nil
		},
		ReadCb: func(addr uint16) uint8 {
			return rb.roms[rb.sel][addr-hwdefs.RomWindow]
		},
	}
	return rb
}

// Load sets the image of ROM id. Images shorter than the window are padded
// with 0xFF.
func (rb *RomBank) Load(id uint8, img []byte) error {
	if len(img) > hwdefs.RomSize {
		return fmt.Errorf("rom %03o: image is %d bytes, window is %d", id, len(img), hwdefs.RomSize)
	}
	rom := new([hwdefs.RomSize]byte)
	n := copy(rom[:], img)
	for i := n; i < len(rom); i++ {
		rom[i] = 0xFF
	}
	rb.roms[id] = rom

	log.ModBus.DebugZ("loaded option rom").
		Octal("id", id).
		Int("size", len(img)).
		End()
	return nil
}

// Has reports whether ROM id is loaded.
func (rb *RomBank) Has(id uint8) bool { return rb.roms[id] != nil }

// Select makes id the current ROM, as a host write to RSELEC does.
func (rb *RomBank) Select(id uint8) { rb.sel = id }

func (rb *RomBank) Selected() uint8 { return rb.sel }

// Install adds the ROM window to the claims of bc and listens to RSELEC
// writes. The register is shared with the host ROM drawer so reads are
// never claimed.
func (rb *RomBank) Install(bc *BusController) {
	bc.Claims.Add(&rb.dev)
	bc.IO.RegisterWrite(hwdefs.RSELEC, rb.Select)
}

// RAMExpansion is a read/write memory window.
type RAMExpansion struct {
	Data []byte
	mem  hwio.Mem
}

// NewRAMExpansion creates size bytes of RAM at base. size must be a power of
// 2.
func NewRAMExpansion(base uint16, size int) *RAMExpansion {
	ram := &RAMExpansion{Data: make([]byte, size)}
	ram.mem = hwio.Mem{
		Name:  "ram expansion",
		Base:  base,
		Data:  ram.Data,
		Flags: hwio.MemFlagReadWrite,
	}
	return ram
}

// Install adds the RAM window to the claims of bc.
func (ram *RAMExpansion) Install(bc *BusController) {
	bc.Claims.Add(ram.mem.Resource())
}

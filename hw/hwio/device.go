package hwio

import (
	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
)

// Device is a Resource whose accesses are entirely handled by callbacks.
// ClaimCb, when set, narrows the claimed range further (bank-switched
// windows only answer when one of their banks is selected).
type Device struct {
	Name  string // name of the area (for debugging)
	Base  uint16 // first address of the window
	Size  int    // size of the window
	Flags RWFlags

	ClaimCb func(addr uint16) bool
	ReadCb  func(addr uint16) uint8
	WriteCb func(addr uint16, val uint8)
}

func (d *Device) Range() (first, last uint16) {
	return d.Base, d.Base + uint16(d.Size-1)
}

func (d *Device) Claims(addr uint16) bool {
	if addr < d.Base || int(addr-d.Base) >= d.Size {
		return false
	}
	return d.ClaimCb == nil || d.ClaimCb(addr)
}

func (d *Device) Read8(addr uint16) uint8 {
	switch {
	case d.Flags&WriteOnlyFlag != 0:
		if hwdefs.Debug {
			log.ModHwIo.ErrorZ("invalid Read8 from writeonly device").
				String("name", d.Name).
				Hex16("addr", addr).
				End()
		}
		fallthrough
	case d.ReadCb == nil:
		return 0
	}
	return d.ReadCb(addr)
}

func (d *Device) Write8(addr uint16, val uint8) {
	switch {
	case d.Flags&ReadOnlyFlag != 0:
		if hwdefs.Debug {
			log.ModHwIo.ErrorZ("invalid Write8 to readonly device").
				String("name", d.Name).
				Hex16("addr", addr).
				End()
		}
		fallthrough
	case d.WriteCb == nil:
		return
	}

	d.WriteCb(addr, val)
}

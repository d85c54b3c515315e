package hwio

import (
	"fmt"

	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Reg8 is an 8-bit device register. Bits set in RoMask are not affected by
// writes.
type Reg8 struct {
	Name   string
	Value  uint8
	RoMask uint8

	Flags   RWFlags
	ReadCb  func(val uint8) uint8
	WriteCb func(old uint8, val uint8)
}

func (reg Reg8) String() string {
	s := fmt.Sprintf("%s{%02x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

func (reg *Reg8) write(val uint8) {
	old := reg.Value
	reg.Value = (reg.Value & reg.RoMask) | (val &^ reg.RoMask)
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

func (reg *Reg8) Write8(val uint8) {
	if reg.Flags&ReadOnlyFlag != 0 {
		if hwdefs.Debug {
			log.ModHwIo.ErrorZ("invalid Write8 to readonly reg").
				String("name", reg.Name).
				Hex8("val", val).
				End()
		}
		return
	}
	reg.write(val)
}

// Read8 returns the register value. ok is false for write-only registers,
// which leave the bus undriven.
func (reg *Reg8) Read8() (val uint8, ok bool) {
	if reg.Flags&WriteOnlyFlag != 0 {
		return 0, false
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value), true
	}
	return reg.Value, true
}

// Map registers reg on slot low of t.
func (reg *Reg8) Map(t *IOTable, low uint8) {
	t.RegisterRead(low, reg.Read8)
	t.RegisterWrite(low, reg.Write8)
}

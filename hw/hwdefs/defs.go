package hwdefs

import "strings"

//go:generate go tool stringer -type=Line
//go:generate go tool stringer -type=CycleState -trimprefix=Cycle

// Line names a host bus signal seen by the firmware.
type Line uint8

const (
	Phi1   Line = iota // clock phase 1
	Phi2               // clock phase 2
	LMA                // load memory address strobe
	RD                 // read strobe
	WR                 // write strobe
	Ready              // data-ready / acknowledge, driven on claimed reads
	Halt               // halt / DMA request
	IntReq             // interrupt request (IRL)
	PriIn              // priority in, asserted by a higher priority device
	PriOut             // priority out, to lower priority devices
)

const NumLines = int(PriOut) + 1

// Ctrl is the bitmask of the three control lines sampled every cycle.
type Ctrl uint8

const (
	CtrlLMA Ctrl = 1 << iota
	CtrlRD
	CtrlWR

	numCtrlLines = 3
)

var ctrlNames = [numCtrlLines]string{
	"lma",
	"rd",
	"wr",
}

func (c Ctrl) String() string {
	var names []string
	for i := range numCtrlLines {
		if c&(1<<i) != 0 {
			names = append(names, ctrlNames[i])
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}

// CtrlBit returns the control bit of l, or 0 if l is not a control line.
func CtrlBit(l Line) Ctrl {
	switch l {
	case LMA:
		return CtrlLMA
	case RD:
		return CtrlRD
	case WR:
		return CtrlWR
	}
	return 0
}

// CycleState is the classification of a bus cycle.
type CycleState uint8

const (
	CycleIdle CycleState = iota
	CycleRead
	CycleWrite
	CycleDMAAck
	CycleIntAck
)

var cycleStates = [8]CycleState{
	0:                         CycleIdle,
	CtrlRD:                    CycleRead,
	CtrlWR:                    CycleWrite,
	CtrlRD | CtrlWR:           CycleDMAAck,
	CtrlLMA:                   CycleIdle,
	CtrlLMA | CtrlRD:          CycleRead,
	CtrlLMA | CtrlWR:          CycleWrite,
	CtrlLMA | CtrlRD | CtrlWR: CycleIntAck,
}

// Classify returns the cycle state encoded by the control lines. Exactly
// one state matches each combination.
func Classify(c Ctrl) CycleState {
	return cycleStates[c&(CtrlLMA|CtrlRD|CtrlWR)]
}

// IsAddressLoad reports whether c is an address-load sub-cycle.
func IsAddressLoad(c Ctrl) bool {
	return c&CtrlLMA != 0 && Classify(c) != CycleIntAck
}

// Memory map.
const (
	IOBase     = uint16(0xFF00) // I/O space, dispatched on the low byte
	RomWindow  = uint16(0x6000) // option ROM window
	RomSize    = 0x2000
	RSELEC     = uint8(0x18) // ROM select register slot
	NumIOSlots = 256
)

// IsIO reports whether addr is in I/O space.
func IsIO(addr uint16) bool {
	return addr >= IOBase
}

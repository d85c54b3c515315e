package hw

import "ebtks/hw/hwdefs"

// Calibration constants, in nanoseconds unless noted. They encode timings
// measured on a real HP-85 backplane (1.6us clock period, phase 1 high for
// ~330ns, phase 2 high for ~330ns) and must be re-measured when the board
// or the host changes. None of them is runtime configurable.
const (
	// Delay from phase-1 falling edge to the control lines sample. The host
	// keeps write data on the bus for ~60ns past the falling edge, the
	// data bus must not be driven before that.
	Phase2SettleNs = 90

	// Minimum time between the release of a DMA transfer and the next
	// request. The halt line is slow to settle back high.
	HaltSettleNs = 2000

	// Address load strobe, from phase-2 rising edge.
	LMADelayNs = 25
	LMAWidthNs = 280

	// Read strobe, from phase-2 rising edge.
	RDDelayNs = 20
	RDWidthNs = 290

	// Write strobe, from phase-2 rising edge.
	WRDelayNs = 20
	WRWidthNs = 290

	// Time data stays on the bus past phase-1 falling edge when this device
	// drives address bytes or write data as bus master.
	DataHoldNs = 30

	// Delay from phase-2 rising edge to the release of the bus at the end
	// of a DMA transfer.
	ReleaseDelayNs = 60
)

// DMA burst limiting: after DMABurstLimit consecutive transfer cycles the
// engine leaves the bus to the host for RefreshYieldCycles clock cycles so
// that dynamic memory refresh can run.
const (
	DMABurstLimit      = 64
	RefreshYieldCycles = 6
)

type strobeTiming struct {
	delay uint32 // from phase-2 rising edge
	width uint32
}

var strobeTimings = [hwdefs.NumLines]strobeTiming{
	hwdefs.LMA: {LMADelayNs, LMAWidthNs},
	hwdefs.RD:  {RDDelayNs, RDWidthNs},
	hwdefs.WR:  {WRDelayNs, WRWidthNs},
}

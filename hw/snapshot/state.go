package snapshot

// Bus is the state of the bus controller.
type Bus struct {
	Cycles     uint64
	Addr       uint16
	PendingLow uint8
	Ctrl       uint8
	State      string
	Driving    bool
	Armed      bool

	IRQ IRQ
	DMA DMA
}

type IRQ struct {
	State    string
	Vector   uint8
	Pending  bool
	Enabled  bool
	Serviced uint32
	Lost     uint32
}

type DMA struct {
	State     string
	Requested bool
	Acked     bool
	Active    bool
	Transfers uint32
	Refreshes uint32
}

// Backplane is the state of the simulated host side.
type Backplane struct {
	Cycle      uint64
	Now        uint64
	HostHalted bool
	HostAddr   uint16
	Queued     int
	Violations int
}

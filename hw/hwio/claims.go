package hwio

import (
	"fmt"

	"ebtks/emu/log"
)

// Resource is a block resource (ROM window, RAM expansion...) answering a
// range of addresses outside the I/O table. Claims is evaluated for every
// bus cycle so it must be cheap.
type Resource interface {
	Claims(addr uint16) bool
	Read8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

// Ranged is implemented by resources occupying a fixed address range. It is
// only used for start-up checks.
type Ranged interface {
	Range() (first, last uint16)
}

// MaxClaims is the capacity of a Claims list.
const MaxClaims = 8

// Claims is an ordered list of resources. The first resource claiming an
// address wins. The list is filled at start-up and read from interrupt
// context afterwards.
type Claims struct {
	list [MaxClaims]Resource
	n    int
}

// Add appends r at the lowest priority. It panics if the list is full.
func (c *Claims) Add(r Resource) {
	if c.n == MaxClaims {
		panic(fmt.Sprintf("hwio: more than %d resource claims", MaxClaims))
	}
	c.list[c.n] = r
	c.n++
	log.ModHwIo.DebugZ("added resource claim").
		Int("prio", c.n-1).
		String("type", fmt.Sprintf("%T", r)).
		End()
}

// Remove removes r, keeping the order of the others.
func (c *Claims) Remove(r Resource) bool {
	for i := range c.list[:c.n] {
		if c.list[i] == r {
			copy(c.list[i:], c.list[i+1:c.n])
			c.n--
			c.list[c.n] = nil
			return true
		}
	}
	return false
}

func (c *Claims) Len() int { return c.n }

// At returns the resource at priority i.
func (c *Claims) At(i int) Resource { return c.list[i] }

// Read8 reads addr from the first resource claiming it.
func (c *Claims) Read8(addr uint16) (uint8, bool) {
	for i := 0; i < c.n; i++ {
		if r := c.list[i]; r.Claims(addr) {
			return r.Read8(addr), true
		}
	}
	return 0, false
}

// Write8 writes val to the first resource claiming addr.
func (c *Claims) Write8(addr uint16, val uint8) bool {
	for i := 0; i < c.n; i++ {
		if r := c.list[i]; r.Claims(addr) {
			r.Write8(addr, val)
			return true
		}
	}
	return false
}

// Overlap describes two ranged resources sharing at least one address.
type Overlap struct {
	Addr        uint16
	First, Then int // priorities of both resources
}

func (o Overlap) String() string {
	return fmt.Sprintf("$%04X claimed by resources %d and %d", o.Addr, o.First, o.Then)
}

// Overlaps reports, for each ranged resource, the first address it shares
// with a resource of higher priority. Resources without a fixed range are
// skipped.
func (c *Claims) Overlaps() []Overlap {
	var (
		seen  AddrSet
		owner [MaxClaims]AddrSet
		ovs   []Overlap
	)
	for i := 0; i < c.n; i++ {
		rg, ok := c.list[i].(Ranged)
		if !ok {
			continue
		}
		first, last := rg.Range()
		if a, ok := seen.FirstIn(first, last); ok {
			j := 0
			for j < i && !owner[j].Has(a) {
				j++
			}
			ovs = append(ovs, Overlap{Addr: a, First: j, Then: i})
		}
		owner[i].AddRange(first, last)
		seen.AddRange(first, last)
	}
	return ovs
}

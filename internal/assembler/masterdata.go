package assembler

import "strings"

// Manufacturer is a manufacturer master record, looked up by MID.
type Manufacturer struct {
	MID      string
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Active   bool
}

// Address is a customer address master record.
type Address struct {
	CustomerNumber string
	AddressNumber  string
	Name           string
	Address1       string
	Address2       string
	City           string
	State          string
	Zip            string
	Country        string
}

// MasterData resolves the reference records a CI Load line points at.
// Implementations must not block on the network; callers load snapshots
// before generation.
type MasterData interface {
	Manufacturer(mid string) (Manufacturer, bool)
	BuyerAddress(customer, addressNumber string) (Address, bool)
}

// =============================================================================
// PER-CALL CACHE
// =============================================================================

type manufacturerResult struct {
	record Manufacturer
	found  bool
}

type addressKey struct {
	customer string
	number   string
}

type addressResult struct {
	record Address
	found  bool
}

// Cache memoizes master data lookups for the duration of one generation
// call. It is owned by that call and discarded with it; it is not safe for
// concurrent use.
type Cache struct {
	source        MasterData
	manufacturers map[string]manufacturerResult
	addresses     map[addressKey]addressResult

	hits   int
	misses int
}

// NewCache wraps source. A nil source resolves nothing.
func NewCache(source MasterData) *Cache {
	return &Cache{
		source:        source,
		manufacturers: make(map[string]manufacturerResult),
		addresses:     make(map[addressKey]addressResult),
	}
}

// Manufacturer implements MasterData.
func (c *Cache) Manufacturer(mid string) (Manufacturer, bool) {
	mid = strings.ToUpper(strings.TrimSpace(mid))
	if r, ok := c.manufacturers[mid]; ok {
		c.hits++
		return r.record, r.found
	}
	c.misses++

	var r manufacturerResult
	if c.source != nil {
		r.record, r.found = c.source.Manufacturer(mid)
	}
	c.manufacturers[mid] = r
	return r.record, r.found
}

// BuyerAddress implements MasterData.
func (c *Cache) BuyerAddress(customer, addressNumber string) (Address, bool) {
	k := addressKey{customer: strings.TrimSpace(customer), number: strings.TrimSpace(addressNumber)}
	if r, ok := c.addresses[k]; ok {
		c.hits++
		return r.record, r.found
	}
	c.misses++

	var r addressResult
	if c.source != nil {
		r.record, r.found = c.source.BuyerAddress(k.customer, k.number)
	}
	c.addresses[k] = r
	return r.record, r.found
}

// Stats returns the number of lookups answered from the cache and from the
// source.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

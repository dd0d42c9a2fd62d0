// Package reference holds the master data the engine resolves lines
// against: manufacturers by MID and customer (buyer) addresses. Data is
// loaded once per run, from a YAML snapshot or from Postgres, and read
// concurrently afterwards.
package reference

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"gopkg.in/yaml.v3"
)

// Snapshot is an immutable in-memory copy of the master data. It implements
// assembler.MasterData.
type Snapshot struct {
	manufacturers map[string]assembler.Manufacturer
	addresses     map[addressKey]assembler.Address
}

type addressKey struct {
	customer string
	number   string
}

// NewSnapshot indexes the given records. Later duplicates replace earlier
// ones.
func NewSnapshot(manufacturers []assembler.Manufacturer, addresses []assembler.Address) *Snapshot {
	s := &Snapshot{
		manufacturers: make(map[string]assembler.Manufacturer, len(manufacturers)),
		addresses:     make(map[addressKey]assembler.Address, len(addresses)),
	}
	for _, m := range manufacturers {
		s.manufacturers[normalizeMID(m.MID)] = m
	}
	for _, a := range addresses {
		s.addresses[newAddressKey(a.CustomerNumber, a.AddressNumber)] = a
	}
	return s
}

func (s *Snapshot) Manufacturer(mid string) (assembler.Manufacturer, bool) {
	m, ok := s.manufacturers[normalizeMID(mid)]
	return m, ok
}

func (s *Snapshot) BuyerAddress(customer, addressNumber string) (assembler.Address, bool) {
	a, ok := s.addresses[newAddressKey(customer, addressNumber)]
	return a, ok
}

// Len returns the number of manufacturers and addresses held.
func (s *Snapshot) Len() (manufacturers, addresses int) {
	return len(s.manufacturers), len(s.addresses)
}

func normalizeMID(mid string) string {
	return strings.ToUpper(strings.TrimSpace(mid))
}

func newAddressKey(customer, number string) addressKey {
	return addressKey{customer: strings.TrimSpace(customer), number: strings.TrimSpace(number)}
}

// =============================================================================
// YAML SNAPSHOT
// =============================================================================

type snapshotFile struct {
	Manufacturers  []manufacturerRow `yaml:"manufacturers"`
	BuyerAddresses []addressRow      `yaml:"buyer_addresses"`
}

type manufacturerRow struct {
	MID      string `yaml:"mid"`
	Name     string `yaml:"name"`
	Address1 string `yaml:"address1"`
	Address2 string `yaml:"address2"`
	City     string `yaml:"city"`
	State    string `yaml:"state"`
	Zip      string `yaml:"zip"`
	Country  string `yaml:"country"`
	// Active defaults to true when omitted.
	Active *bool `yaml:"active"`
}

type addressRow struct {
	Customer      string `yaml:"customer"`
	AddressNumber string `yaml:"address_number"`
	Name          string `yaml:"name"`
	Address1      string `yaml:"address1"`
	Address2      string `yaml:"address2"`
	City          string `yaml:"city"`
	State         string `yaml:"state"`
	Zip           string `yaml:"zip"`
	Country       string `yaml:"country"`
}

// LoadYAML reads a master data snapshot file.
func LoadYAML(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}

	manufacturers := make([]assembler.Manufacturer, 0, len(file.Manufacturers))
	for i, row := range file.Manufacturers {
		if strings.TrimSpace(row.MID) == "" {
			return nil, fmt.Errorf("manufacturer %d: mid is required", i+1)
		}
		active := row.Active == nil || *row.Active
		manufacturers = append(manufacturers, assembler.Manufacturer{
			MID: row.MID, Name: row.Name, Address1: row.Address1, Address2: row.Address2,
			City: row.City, State: row.State, Zip: row.Zip, Country: row.Country, Active: active,
		})
	}

	addresses := make([]assembler.Address, 0, len(file.BuyerAddresses))
	for i, row := range file.BuyerAddresses {
		if strings.TrimSpace(row.Customer) == "" || strings.TrimSpace(row.AddressNumber) == "" {
			return nil, fmt.Errorf("buyer address %d: customer and address_number are required", i+1)
		}
		addresses = append(addresses, assembler.Address{
			CustomerNumber: row.Customer, AddressNumber: row.AddressNumber, Name: row.Name,
			Address1: row.Address1, Address2: row.Address2, City: row.City, State: row.State,
			Zip: row.Zip, Country: row.Country,
		})
	}

	return NewSnapshot(manufacturers, addresses), nil
}

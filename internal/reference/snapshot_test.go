package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSnapshot_Lookups(t *testing.T) {
	s := NewSnapshot(
		[]assembler.Manufacturer{{MID: "CNSHEFAC123SHE", Name: "Shenzhen Factory", Active: true}},
		[]assembler.Address{{CustomerNumber: "ACME01", AddressNumber: "001", Name: "Acme Buying"}},
	)

	m, ok := s.Manufacturer(" cnshefac123she ")
	require.True(t, ok)
	assert.Equal(t, "Shenzhen Factory", m.Name)

	_, ok = s.Manufacturer("MISSING")
	assert.False(t, ok)

	a, ok := s.BuyerAddress("ACME01", " 001")
	require.True(t, ok)
	assert.Equal(t, "Acme Buying", a.Name)

	_, ok = s.BuyerAddress("OTHER", "001")
	assert.False(t, ok)

	mfr, addr := s.Len()
	assert.Equal(t, 1, mfr)
	assert.Equal(t, 1, addr)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
manufacturers:
  - mid: CNSHEFAC123SHE
    name: Shenzhen Factory
    city: Shenzhen
    country: CN
  - mid: VNHANMAK9HAN
    name: Hanoi Maker
    active: false
buyer_addresses:
  - customer: ACME01
    address_number: "001"
    name: Acme Buying
    country: US
`)

	s, err := LoadYAML(path)
	require.NoError(t, err)

	m, ok := s.Manufacturer("CNSHEFAC123SHE")
	require.True(t, ok)
	assert.True(t, m.Active, "active defaults to true")
	assert.Equal(t, "CN", m.Country)

	m, ok = s.Manufacturer("VNHANMAK9HAN")
	require.True(t, ok)
	assert.False(t, m.Active)

	a, ok := s.BuyerAddress("ACME01", "001")
	require.True(t, ok)
	assert.Equal(t, "US", a.Country)
}

func TestLoadYAML_Errors(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read reference data")

	_, err = LoadYAML(writeFile(t, "manufacturers: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse reference data")

	_, err = LoadYAML(writeFile(t, "manufacturers:\n  - name: no mid\n"))
	assert.ErrorContains(t, err, "manufacturer 1: mid is required")

	_, err = LoadYAML(writeFile(t, "buyer_addresses:\n  - customer: ACME01\n"))
	assert.ErrorContains(t, err, "buyer address 1")
}

package validation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry() ciload.Entry {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return ciload.Entry{
		CustomerNumber: "ACME01",
		FileNumber:     "F100",
		BillsOfLading:  []ciload.BillOfLading{{MasterBill: ciload.Ptr("MAEU123456789")}},
		Invoices: []ciload.Invoice{
			{InvoiceNumber: "INV-1", InvoiceDate: &date, Lines: []ciload.InvoiceLine{{PartNumber: "P-1"}}},
			{InvoiceNumber: "INV-2", InvoiceDate: &date, Lines: []ciload.InvoiceLine{{StyleNumber: "S-1"}}},
		},
	}
}

func TestValidateEntry_Valid(t *testing.T) {
	res := ValidateEntry(validEntry(), Options{})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.NoError(t, res.Err())
}

func TestValidateEntry_FatalFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ciload.Entry)
		want   error
	}{
		{"blank customer", func(e *ciload.Entry) { e.CustomerNumber = "  " }, ErrMissingCustomerNumber},
		{"blank file", func(e *ciload.Entry) { e.FileNumber = "" }, ErrMissingFileNumber},
		{"no bill number", func(e *ciload.Entry) { e.BillsOfLading = nil }, ErrMissingEdiIdentifier},
		{"empty explicit identifier", func(e *ciload.Entry) {
			e.BillsOfLading = []ciload.BillOfLading{{Scac: "MAEU"}}
			e.EdiIdentifier = &ciload.EdiIdentifier{HouseBill: ciload.Ptr(" ")}
		}, ErrMissingEdiIdentifier},
		{"no invoices", func(e *ciload.Entry) { e.Invoices = nil }, ErrNoInvoices},
		{"blank invoice number", func(e *ciload.Entry) { e.Invoices[1].InvoiceNumber = "" }, ErrMissingInvoiceNumber},
		{"duplicate invoice", func(e *ciload.Entry) { e.Invoices[1].InvoiceNumber = " INV-1 " }, ErrDuplicateInvoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)

			res := ValidateEntry(e, Options{})
			assert.False(t, res.IsValid)
			require.Error(t, res.Err())
			assert.ErrorIs(t, res.Err(), tt.want)

			var ve *ValidationError
			require.True(t, errors.As(res.Err(), &ve))
			assert.True(t, ve.Fatal())
		})
	}
}

func TestValidateEntry_DuplicatesAllowed(t *testing.T) {
	e := validEntry()
	e.Invoices[1].InvoiceNumber = "INV-1"

	res := ValidateEntry(e, Options{AllowDuplicateInvoices: true})
	assert.True(t, res.IsValid)
}

func TestValidateEntry_SameNumberDifferentDate(t *testing.T) {
	e := validEntry()
	other := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	e.Invoices[1].InvoiceNumber = "INV-1"
	e.Invoices[1].InvoiceDate = &other

	assert.NoError(t, ValidateEntry(e, Options{}).Err())
}

func TestValidateEntry_Warnings(t *testing.T) {
	e := validEntry()
	e.Invoices[0].Lines = append(e.Invoices[0].Lines, ciload.InvoiceLine{})
	e.Invoices[1].Lines = nil

	res := ValidateEntry(e, Options{})
	assert.True(t, res.IsValid)
	assert.NoError(t, res.Err())
	require.Len(t, res.Warnings(), 2)
	assert.Equal(t, 2, res.WarningCount)
	assert.Equal(t, 2, res.Warnings()[0].Line)
	assert.Contains(t, FormatErrors(res.Errors), "[WARNING] invoice INV-1, line 2")
}

func TestFormatErrors_Empty(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))
}

func TestRegistry_Claim(t *testing.T) {
	r := NewRegistry()
	e := validEntry()

	require.NoError(t, r.Claim("a.yaml", e))
	assert.Equal(t, 2, r.Len())

	// The same source may re-claim its own keys.
	require.NoError(t, r.Claim("a.yaml", e))

	err := r.Claim("b.yaml", e)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateInvoice)
	assert.Contains(t, err.Error(), "a.yaml")

	r.Release("a.yaml")
	assert.Equal(t, 0, r.Len())
	assert.NoError(t, r.Claim("b.yaml", e))
}

func TestRegistry_ClaimIsAllOrNothing(t *testing.T) {
	r := NewRegistry()
	first := validEntry()
	first.Invoices = first.Invoices[:1]
	require.NoError(t, r.Claim("a", first))

	second := validEntry()
	second.Invoices[0].InvoiceNumber = "INV-9"
	second.Invoices[1].InvoiceNumber = "INV-1"
	require.Error(t, r.Claim("b", second))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	e := validEntry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			if r.Claim(source, e) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

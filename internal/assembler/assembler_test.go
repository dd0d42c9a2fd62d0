package assembler

import (
	"errors"
	"testing"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"
	"github.com/ginjaninja78/ci-load-engine/internal/specialtariff"
	"github.com/ginjaninja78/ci-load-engine/internal/tariffs"
	"github.com/ginjaninja78/ci-load-engine/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeMaster struct {
	manufacturers map[string]Manufacturer
	addresses     map[string]Address
	calls         int
}

func (f *fakeMaster) Manufacturer(mid string) (Manufacturer, bool) {
	f.calls++
	m, ok := f.manufacturers[mid]
	return m, ok
}

func (f *fakeMaster) BuyerAddress(customer, number string) (Address, bool) {
	f.calls++
	a, ok := f.addresses[customer+"/"+number]
	return a, ok
}

func newMaster() *fakeMaster {
	return &fakeMaster{
		manufacturers: map[string]Manufacturer{
			"CNSHEFAC123SHE": {MID: "CNSHEFAC123SHE", Name: "Shenzhen Factory", City: "Shenzhen", Country: "CN", Active: true},
			"CNOLDFAC9OLD":   {MID: "CNOLDFAC9OLD", Name: "Closed Factory", Country: "CN", Active: false},
		},
		addresses: map[string]Address{
			"ACME01/001": {CustomerNumber: "ACME01", AddressNumber: "001", Name: "Acme Retail", City: "Chicago", State: "IL", Country: "US"},
		},
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testEntry() ciload.Entry {
	invDate := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	return ciload.Entry{
		CustomerNumber: "ACME01",
		FileNumber:     "F100",
		Vessel:         "MAERSK ESSEN",
		Carrier:        "MAEU",
		GrossWeight:    dec("400"),
		WeightUnit:     ciload.Grams,
		BillsOfLading:  []ciload.BillOfLading{{MasterBill: ciload.Ptr("MAEU123456789"), HouseBill: ciload.Ptr("HB1")}},
		Containers:     []ciload.Container{{Number: "MSKU1234567", Weight: dec("2500"), WeightUnit: ciload.Kilograms}},
		Parties:        []ciload.Party{{Type: "CN", Name: "Acme Consignee"}},
		DateEvents:     []ciload.DateEvent{{Code: "AR", Date: refDate}},
		Invoices: []ciload.Invoice{{
			InvoiceNumber: "INV-1",
			InvoiceDate:   &invDate,
			Currency:      "USD",
			Lines: []ciload.InvoiceLine{
				{
					PartNumber:         "P-100",
					StyleNumber:        "S-1",
					Description:        "Café table",
					CountryOfOrigin:    "CN",
					Pieces:             dec("10"),
					UnitPrice:          dec("12.50"),
					MID:                "CNSHEFAC123SHE",
					BuyerAddressNumber: "001",
					TariffNumbers:      []string{"8517.62.0090"},
					Quantities:         [3]ciload.Quantity{{Value: dec("10"), UOM: "NO"}},
					PGA: &ciload.PGAData{
						FDA:   &ciload.FDA{ProgramCode: "FOO", ProductCode: "16A-C-E-01"},
						Lacey: []ciload.LaceyComponent{{Genus: "Quercus", Species: "alba", HarvestCountry: "US", Quantity: dec("1.5"), UOM: "KG"}},
					},
				},
				{
					PartNumber:      "P-200",
					CountryOfOrigin: "CN",
					EnteredValue:    dec("99.99"),
					MID:             "CNSHEFAC123SHE",
					TariffNumbers:   []string{"6109.10.0012"},
				},
			},
		}},
	}
}

func newAssembler(master MasterData, opts Options) *Assembler {
	resolver := specialtariff.NewResolver([]specialtariff.Program{
		{Country: "CN", HTSPrefix: "8517", SpecialNumber: "9903.88.03", ProgramType: "301", AutoInclude: true},
	})
	return New(tariffs.NewBuilder(resolver), master, opts)
}

func field(t *testing.T, n *document.Node, name string) string {
	t.Helper()
	v, ok := n.Field(name)
	require.True(t, ok, "node %s has no field %s", n.Name, name)
	return v
}

func TestAssemble_Structure(t *testing.T) {
	out, err := newAssembler(newMaster(), Options{}).Assemble(testEntry(), refDate)
	require.NoError(t, err)
	require.NotNil(t, out.Root)

	root := out.Root
	assert.Equal(t, document.Entry, root.Name)
	assert.Equal(t, "MAEU123456789", field(t, root, "masterBill"))
	assert.Equal(t, "HB1", field(t, root, "ediBillNo"))
	// 400 g rounds up to one whole kilogram.
	assert.Equal(t, "1", field(t, root, "weightGross"))

	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{document.DateEvent, document.Container, document.BillOfLading, document.Party, document.Invoice}, names)

	counts := root.Count()
	assert.Equal(t, 2, counts[document.Line])
	assert.Equal(t, 3, counts[document.Tariff])
	assert.Equal(t, 2, counts[document.PGA])
	assert.Equal(t, 1+3, counts[document.Party]) // entry party, MF twice, BY once

	assert.Equal(t, Stats{Invoices: 1, Lines: 2, Tariffs: 3, PGA: 2, MasterDataHits: 1, MasterDataMisses: 2}, out.Stats)
	assert.Empty(t, out.LineErrors)
}

func TestAssemble_KeyFieldsRepeatOnEveryNode(t *testing.T) {
	out, err := newAssembler(newMaster(), Options{}).Assemble(testEntry(), refDate)
	require.NoError(t, err)

	out.Root.Walk(func(n *document.Node, _ int) {
		assert.Equal(t, "ACME01", field(t, n, "custNo"), n.Name)
		assert.Equal(t, "F100", field(t, n, "fileNo"), n.Name)
		assert.Equal(t, "20240301", field(t, n, "dateEffective"), n.Name)
	})

	for _, name := range []string{document.Line, document.Tariff, document.PGA} {
		for _, n := range out.Root.Find(name) {
			assert.Equal(t, "INV-1", field(t, n, "invoiceNo"))
			assert.Equal(t, "20240220", field(t, n, "dateInvoice"))
			field(t, n, "partNo")
			field(t, n, "styleNo")
			field(t, n, "lineNo")
		}
	}

	line := out.Root.Find(document.Line)[0]
	tariffNodes := line.Find(document.Tariff)
	require.Len(t, tariffNodes, 2)
	assert.Equal(t, "99038803", field(t, tariffNodes[0], "tariffNo"))
	assert.Equal(t, "1", field(t, tariffNodes[0], "tariffSeq"))
	assert.Equal(t, "8517620090", field(t, tariffNodes[1], "tariffNo"))
	assert.Equal(t, "2", field(t, tariffNodes[1], "tariffSeq"))
	assert.Equal(t, "Y", field(t, tariffNodes[1], "primary"))
	assert.Equal(t, "12500", field(t, tariffNodes[1], "valueForeign"))
	assert.Equal(t, "", field(t, tariffNodes[0], "valueForeign"))

	// PGA hangs off the primary tariff with a compound key.
	assert.Empty(t, tariffNodes[0].Children)
	pga := tariffNodes[1].Children
	require.Len(t, pga, 2)
	assert.Equal(t, "2", field(t, pga[0], "tariffSeq"))
	assert.Equal(t, "1", field(t, pga[0], "pgaSeq"))
	assert.Equal(t, AgencyFDA, field(t, pga[0], "agency"))
	assert.Equal(t, "2", field(t, pga[1], "pgaSeq"))
	assert.Equal(t, AgencyAPH, field(t, pga[1], "agency"))
	assert.Equal(t, "150", field(t, pga[1], "pgaQuantity"))
}

func TestAssemble_LinePartiesAndInvoiceTotals(t *testing.T) {
	out, err := newAssembler(newMaster(), Options{}).Assemble(testEntry(), refDate)
	require.NoError(t, err)

	lines := out.Root.Find(document.Line)
	var parties []string
	for _, c := range lines[0].Children {
		if c.Name == document.Party {
			parties = append(parties, field(t, c, "partyType"))
		}
	}
	assert.Equal(t, []string{PartyManufacturer, PartyBuyer}, parties)
	assert.Equal(t, "Cafe table", field(t, lines[0], "description"))

	inv := out.Root.Find(document.Invoice)[0]
	// 10 x 12.50 + 99.99
	assert.Equal(t, "22499", field(t, inv, "valueForeignTotal"))
	assert.Equal(t, "2", field(t, inv, "lineCount"))
	assert.Equal(t, "USD", field(t, inv, "currency"))
}

func TestAssemble_MissingMID(t *testing.T) {
	e := testEntry()
	e.Invoices[0].Lines[1].MID = "NOPE123"

	out, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrMissingMasterData)

	var mdErr *MissingMasterDataError
	require.True(t, errors.As(err, &mdErr))
	assert.Equal(t, KindManufacturer, mdErr.Kind)
	assert.Equal(t, "NOPE123", mdErr.Key)
}

func TestAssemble_InactiveManufacturerAndMissingBuyer(t *testing.T) {
	e := testEntry()
	e.Invoices[0].Lines[1].MID = "CNOLDFAC9OLD"
	_, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	var mdErr *MissingMasterDataError
	require.True(t, errors.As(err, &mdErr))
	assert.Equal(t, "inactive", mdErr.Reason)

	e = testEntry()
	e.Invoices[0].Lines[0].BuyerAddressNumber = "999"
	_, err = newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	require.True(t, errors.As(err, &mdErr))
	assert.Equal(t, KindBuyerAddress, mdErr.Kind)
	assert.Equal(t, "ACME01/999", mdErr.Key)
}

func TestAssemble_FatalKeyProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ciload.Entry)
		want   error
	}{
		{"blank customer", func(e *ciload.Entry) { e.CustomerNumber = "" }, validation.ErrMissingCustomerNumber},
		{"customer overflow", func(e *ciload.Entry) { e.CustomerNumber = "ACME0123456" }, fieldcodec.ErrOverflow},
		{"invoice overflow", func(e *ciload.Entry) { e.Invoices[0].InvoiceNumber = "INV-0123456789012345678901234567" }, fieldcodec.ErrOverflow},
		{"part overflow", func(e *ciload.Entry) { e.Invoices[0].Lines[0].PartNumber = "P-0123456789012345678901234567890123456789" }, fieldcodec.ErrOverflow},
		{"no bill number", func(e *ciload.Entry) { e.BillsOfLading = nil }, validation.ErrMissingEdiIdentifier},
		{"no invoices", func(e *ciload.Entry) { e.Invoices = nil }, validation.ErrNoInvoices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEntry()
			tt.mutate(&e)
			out, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEntryRecord_RequiresEdiIdentifier(t *testing.T) {
	entry := testEntry()
	entry.EdiIdentifier = nil
	entry.BillsOfLading = nil

	_, err := newAssembler(newMaster(), Options{}).entryRecord(entry, nil)
	assert.ErrorIs(t, err, validation.ErrMissingEdiIdentifier)
}

func TestAssemble_LenientPartsTruncate(t *testing.T) {
	e := testEntry()
	e.Invoices[0].Lines[0].PartNumber = "P-0123456789012345678901234567890123456789"

	out, err := newAssembler(newMaster(), Options{PartOverflow: fieldcodec.Truncate}).Assemble(e, refDate)
	require.NoError(t, err)
	line := out.Root.Find(document.Line)[0]
	assert.Equal(t, "P-01234567890123456789012345678901234567", field(t, line, "partNo"))
}

func TestAssemble_LineErrorsSkipLine(t *testing.T) {
	e := testEntry()
	e.Invoices[0].Lines[0].TariffNumbers = nil
	e.Invoices[0].Lines[0].PGA = nil

	out, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	require.NoError(t, err)

	require.Len(t, out.LineErrors, 1)
	lineErr := out.LineErrors[0]
	assert.Equal(t, "INV-1", lineErr.Invoice)
	assert.Equal(t, 1, lineErr.Line)
	assert.Equal(t, "P-100", lineErr.PartNumber)
	assert.ErrorIs(t, lineErr, tariffs.ErrNoTariff)

	lines := out.Root.Find(document.Line)
	require.Len(t, lines, 1)
	assert.Equal(t, "P-200", field(t, lines[0], "partNo"))
	assert.Equal(t, "1", field(t, lines[0], "lineNo"))

	inv := out.Root.Find(document.Invoice)[0]
	assert.Equal(t, "9999", field(t, inv, "valueForeignTotal"))
	assert.Equal(t, "1", field(t, inv, "lineCount"))
	assert.Equal(t, 1, out.Stats.LinesSkipped)
}

func TestAssemble_NumberOverflowIsLineLocal(t *testing.T) {
	e := testEntry()
	e.Invoices[0].Lines[1].EnteredValue = dec("12345678901234")

	out, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	require.NoError(t, err)
	require.Len(t, out.LineErrors, 1)
	assert.ErrorIs(t, out.LineErrors[0], fieldcodec.ErrOverflow)
	assert.Equal(t, 2, out.LineErrors[0].Line)
}

func TestAssemble_TextPolicy(t *testing.T) {
	e := testEntry()
	e.Invoices[0].Lines[1].Description = "插头 adapter"

	out, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	require.NoError(t, err)
	line := out.Root.Find(document.Line)[1]
	assert.Equal(t, "\x7f\x7f adapter", field(t, line, "description"))

	out, err = newAssembler(newMaster(), Options{Codec: fieldcodec.New(fieldcodec.TextFail)}).Assemble(e, refDate)
	require.NoError(t, err)
	require.Len(t, out.LineErrors, 1)
	assert.ErrorIs(t, out.LineErrors[0], fieldcodec.ErrUntransliterable)
}

func TestAssemble_EffectiveDateFromEntry(t *testing.T) {
	e := testEntry()
	eff := time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC)
	e.EffectiveDate = &eff

	out, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	require.NoError(t, err)
	assert.Equal(t, "20231231", field(t, out.Root, "dateEffective"))
}

func TestAssemble_DuplicateInvoices(t *testing.T) {
	e := testEntry()
	e.Invoices = append(e.Invoices, e.Invoices[0])

	_, err := newAssembler(newMaster(), Options{}).Assemble(e, refDate)
	assert.ErrorIs(t, err, validation.ErrDuplicateInvoice)

	out, err := newAssembler(newMaster(), Options{AllowDuplicateInvoices: true}).Assemble(e, refDate)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Stats.Invoices)
}

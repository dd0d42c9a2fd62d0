package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
customer_number: ACME01
file_number: F-1001
vessel: EVER GIVEN
weight_unit: kg
gross_weight: "1250.5"
effective_date: 2024-03-15
edi_identifier:
  master_bill: MAEU123
  house_bill: HB456
bills_of_lading:
  - master_bill: MAEU123
    scac: MAEU
containers:
  - number: MSKU1234567
    weight: "1000"
    weight_unit: lb
parties:
  - type: CN
    name: Acme Corp
date_events:
  - code: ARR
    date: 2024-03-20
invoices:
  - invoice_number: INV-1
    invoice_date: 2024-03-01
    currency: USD
    exchange_rate: "1.0"
    lines:
      - part_number: P-100
        country_of_origin: CN
        pieces: "10"
        unit_price: "2.50"
        gross_weight: "400"
        weight_unit: g
        mid: CNSHEFAC123SHE
        tariff_numbers: ["8471.30.0100", "9903.88.03"]
        exclusion_301: "9903.88.69"
        quantities:
          - value: "10"
            uom: NO
        pga:
          fda:
            program_code: FOO
          lacey:
            - genus: Quercus
              species: alba
              quantity: "2.5"
        tariffs:
          - hts_number: "9999.99.9999"
            priority: -5
`

func TestParseYAML(t *testing.T) {
	entry, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "ACME01", entry.CustomerNumber)
	assert.Equal(t, ciload.Kilograms, entry.WeightUnit)
	assert.Equal(t, "1250.5", entry.GrossWeight.String())
	require.NotNil(t, entry.EffectiveDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *entry.EffectiveDate)

	id, ok := entry.ResolveEdiIdentifier()
	require.True(t, ok)
	assert.Equal(t, "HB456", id.BillNumber())

	require.Len(t, entry.Containers, 1)
	assert.Equal(t, ciload.Pounds, entry.Containers[0].WeightUnit)
	require.Len(t, entry.DateEvents, 1)
	assert.Equal(t, "ARR", entry.DateEvents[0].Code)
	require.Len(t, entry.Parties, 1)
	assert.Equal(t, "Acme Corp", entry.Parties[0].Name)

	require.Len(t, entry.Invoices, 1)
	inv := entry.Invoices[0]
	require.Len(t, inv.Lines, 1)
	line := inv.Lines[0]
	assert.Equal(t, ciload.Grams, line.WeightUnit)
	assert.Equal(t, []string{"8471.30.0100", "9903.88.03"}, line.TariffNumbers)
	assert.Equal(t, "9903.88.69", ciload.Value(line.Exclusion301))
	assert.Equal(t, "25", line.ForeignValue().String())
	assert.Equal(t, "NO", line.Quantities[0].UOM)
	require.NotNil(t, line.PGA)
	assert.Equal(t, "FOO", line.PGA.FDA.ProgramCode)
	require.Len(t, line.PGA.Lacey, 1)
	assert.Equal(t, "2.5", line.PGA.Lacey[0].Quantity.String())
	require.Len(t, line.Tariffs, 1)
	assert.Equal(t, -5.0, line.Tariffs[0].Priority)
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "invoices: [", "failed to parse snapshot"},
		{"bad number", "gross_weight: abc", "gross_weight: invalid number"},
		{"bad date", "effective_date: 15/03/2024", "effective_date: invalid date"},
		{"bad unit", "weight_unit: stone", "unknown weight unit"},
		{"too many quantities", `
invoices:
  - lines:
      - quantities: [{value: "1"}, {value: "2"}, {value: "3"}, {value: "4"}]
`, "invoices[0].lines[0].quantities: at most 3"},
		{"event without date", "date_events: [{code: ARR}]", "date_events[0]: date is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadYAML_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	entry, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "F-1001", entry.FileNumber)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read snapshot")
}

const sampleCSV = `Customer Number,File Number,Master Bill,Invoice Number,Invoice Date,Part Number,Country Of Origin,Pieces,Unit Price,Tariff Numbers,MID,Qty1,UOM1,Cotton Fee
ACME01,F-1001,MAEU123,INV-2,2024-03-01,P-1,CN,10,2.50,8471.30.0100;9903.88.03,CNSHEFAC123SHE,10,NO,Y
ACME01,F-1001,MAEU123,INV-1,2024-03-02,P-2,VN,1,100,6109.10.0012,VNHANMAK9HAN,,,
,,,,,,,,,,,,,
ACME01,F-1001,MAEU123,INV-2,2024-03-01,P-3,CN,5,1,8471.30.0100,CNSHEFAC123SHE,,,N
`

func TestReadCSV_GroupsByInvoice(t *testing.T) {
	entry, err := ReadCSV(strings.NewReader(sampleCSV), DefaultCSVSettings())
	require.NoError(t, err)

	assert.Equal(t, "ACME01", entry.CustomerNumber)
	require.Len(t, entry.BillsOfLading, 1)
	assert.Equal(t, "MAEU123", ciload.Value(entry.BillsOfLading[0].MasterBill))

	require.Len(t, entry.Invoices, 2)
	assert.Equal(t, "INV-2", entry.Invoices[0].InvoiceNumber)
	assert.Equal(t, "INV-1", entry.Invoices[1].InvoiceNumber)

	lines := entry.Invoices[0].Lines
	require.Len(t, lines, 2)
	assert.Equal(t, "P-1", lines[0].PartNumber)
	assert.Equal(t, "P-3", lines[1].PartNumber)
	assert.Equal(t, []string{"8471.30.0100", "9903.88.03"}, lines[0].TariffNumbers)
	assert.True(t, lines[0].CottonFee)
	assert.False(t, lines[1].CottonFee)
	assert.Equal(t, "10", lines[0].Quantities[0].Value.String())
	assert.Equal(t, "NO", lines[0].Quantities[0].UOM)
	assert.Nil(t, lines[1].Quantities[0].Value)
}

func TestReadCSV_PipeDelimiter(t *testing.T) {
	data := "customer_number|file_number|invoice_number|part_number\nACME01|F-1|INV-1|P-1\n"
	entry, err := ReadCSV(strings.NewReader(data), CSVSettings{Delimiter: "pipe"})
	require.NoError(t, err)
	require.Len(t, entry.Invoices, 1)
	assert.Equal(t, "P-1", entry.Invoices[0].Lines[0].PartNumber)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "CSV file is empty"},
		{"missing column", "customer_number,file_number\nA,B\n", `missing required column "invoice_number"`},
		{"no rows", "customer_number,file_number,invoice_number\n", "no data rows"},
		{"mixed files", "customer_number,file_number,invoice_number\nA,F1,I1\nA,F2,I1\n", "row 3: customer_number/file_number differ"},
		{"bad number", "customer_number,file_number,invoice_number,pieces\nA,F1,I1,ten\n", "row 2: pieces: invalid number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), DefaultCSVSettings())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

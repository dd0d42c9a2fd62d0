package snapshot

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
)

// CSVSettings configures the flat line-file reader.
type CSVSettings struct {
	// Delimiter separates columns: ",", "|", ";", "tab".
	Delimiter string
	// ListSeparator splits multi-valued cells such as tariff_numbers.
	ListSeparator string
}

// DefaultCSVSettings returns comma-delimited settings with ";" list cells.
func DefaultCSVSettings() CSVSettings {
	return CSVSettings{Delimiter: ",", ListSeparator: ";"}
}

// Required columns of a flat line file. Every other column is optional.
const (
	colCustomerNumber = "customer_number"
	colFileNumber     = "file_number"
	colInvoiceNumber  = "invoice_number"
)

// LoadCSV reads a flat line file into one Entry.
//
// Entry columns are taken from the first data row; every row must carry the
// same customer_number and file_number. Rows are grouped into invoices by
// invoice_number, keeping the order in which invoice numbers first appear.
func LoadCSV(path string, settings CSVSettings) (ciload.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return ciload.Entry{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file, settings)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, settings CSVSettings) (ciload.Entry, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	configureReader(reader, settings)

	allRows, err := reader.ReadAll()
	if err != nil {
		return ciload.Entry{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return ciload.Entry{}, fmt.Errorf("CSV file is empty")
	}

	headers := cleanHeaders(allRows[0])
	for _, required := range []string{colCustomerNumber, colFileNumber, colInvoiceNumber} {
		if !contains(headers, required) {
			return ciload.Entry{}, fmt.Errorf("missing required column %q", required)
		}
	}

	var rows []csvRow
	for i, raw := range allRows[1:] {
		if isRowEmpty(raw) {
			continue
		}
		row := csvRow{number: i + 2, values: make(map[string]string, len(headers))}
		for col, header := range headers {
			if col < len(raw) {
				row.values[header] = strings.TrimSpace(raw[col])
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return ciload.Entry{}, fmt.Errorf("CSV file has no data rows")
	}

	sep := settings.ListSeparator
	if sep == "" {
		sep = ";"
	}
	return buildEntry(rows, sep)
}

type csvRow struct {
	number int
	values map[string]string
}

func (r csvRow) get(col string) string { return r.values[col] }

func buildEntry(rows []csvRow, sep string) (ciload.Entry, error) {
	first := rows[0]
	p := &parser{}

	entry := ciload.Entry{
		CustomerNumber:   first.get(colCustomerNumber),
		FileNumber:       first.get(colFileNumber),
		Vessel:           first.get("vessel"),
		Voyage:           first.get("voyage"),
		Carrier:          first.get("carrier"),
		TransportMode:    first.get("transport_mode"),
		PortOfLading:     first.get("port_of_lading"),
		PortOfUnlading:   first.get("port_of_unlading"),
		GoodsDescription: first.get("goods_description"),
		EffectiveDate:    p.date(fmt.Sprintf("row %d: effective_date", first.number), first.get("effective_date")),
	}

	bol := billsDoc{
		MasterBill:      first.get("master_bill"),
		HouseBill:       first.get("house_bill"),
		SubHouseBill:    first.get("sub_house_bill"),
		SubSubHouseBill: first.get("sub_sub_house_bill"),
	}.identifier()
	if bol.BillNumber() != "" {
		entry.BillsOfLading = []ciload.BillOfLading{{
			MasterBill:      bol.MasterBill,
			HouseBill:       bol.HouseBill,
			SubHouseBill:    bol.SubHouseBill,
			SubSubHouseBill: bol.SubSubHouseBill,
			Scac:            first.get("scac"),
		}}
	}

	// Group rows into invoices in order of first occurrence.
	groups := make(map[string]int)
	for _, row := range rows {
		prefix := fmt.Sprintf("row %d", row.number)
		if row.get(colCustomerNumber) != entry.CustomerNumber || row.get(colFileNumber) != entry.FileNumber {
			return ciload.Entry{}, fmt.Errorf("%s: customer_number/file_number differ from the first row", prefix)
		}

		number := row.get(colInvoiceNumber)
		idx, exists := groups[number]
		if !exists {
			idx = len(entry.Invoices)
			groups[number] = idx
			entry.Invoices = append(entry.Invoices, ciload.Invoice{
				InvoiceNumber: number,
				InvoiceDate:   p.date(prefix+": invoice_date", row.get("invoice_date")),
				Currency:      row.get("currency"),
				ExchangeRate:  p.decimal(prefix+": exchange_rate", row.get("exchange_rate")),
			})
		}
		entry.Invoices[idx].Lines = append(entry.Invoices[idx].Lines, p.csvLine(prefix, row, sep))
		if p.err != nil {
			return ciload.Entry{}, p.err
		}
	}
	if p.err != nil {
		return ciload.Entry{}, p.err
	}
	return entry, nil
}

func (p *parser) csvLine(prefix string, row csvRow, sep string) ciload.InvoiceLine {
	line := ciload.InvoiceLine{
		PartNumber:          row.get("part_number"),
		StyleNumber:         row.get("style_number"),
		Description:         row.get("description"),
		CountryOfOrigin:     row.get("country_of_origin"),
		CountryOfExport:     row.get("country_of_export"),
		Pieces:              p.decimal(prefix+": pieces", row.get("pieces")),
		UnitPrice:           p.decimal(prefix+": unit_price", row.get("unit_price")),
		GrossWeight:         p.decimal(prefix+": gross_weight", row.get("gross_weight")),
		WeightUnit:          p.weightUnit(prefix+": weight_unit", row.get("weight_unit")),
		PONumber:            row.get("po_number"),
		MID:                 row.get("mid"),
		BuyerCustomerNumber: row.get("buyer_customer_number"),
		BuyerAddressNumber:  row.get("buyer_address_number"),
		BuyerReference:      row.get("buyer_reference"),
		Department:          row.get("department"),
		CottonFee:           isYes(row.get("cotton_fee")),
		TariffNumbers:       splitList(row.get("tariff_numbers"), sep),
		Exclusion301:        optional(row.get("exclusion_301")),
		EnteredValue:        p.decimal(prefix+": entered_value", row.get("entered_value")),
		SPI:                 row.get("spi"),
	}
	for i := range line.Quantities {
		n := i + 1
		line.Quantities[i] = ciload.Quantity{
			Value: p.decimal(fmt.Sprintf("%s: qty%d", prefix, n), row.get(fmt.Sprintf("qty%d", n))),
			UOM:   row.get(fmt.Sprintf("uom%d", n)),
		}
	}
	return line
}

// =============================================================================
// HELPERS
// =============================================================================

func configureReader(reader *csv.Reader, settings CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// cleanHeaders lower-cases headers and turns spaces into underscores so
// "Invoice Number" and invoice_number name the same column.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cleaned[i] = strings.Join(strings.Fields(h), "_")
	}
	return cleaned
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "x":
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// CI Load Engine - Input Snapshots
// =============================================================================
//
// This package reads the entry snapshots the CLI feeds to the generator:
//
//   - YAML entry files: one Entry with its full hierarchy.
//   - Flat CSV files: one row per invoice line, entry and invoice columns
//     repeated on every row. Rows are grouped into invoices by invoice number
//     in order of first appearance.
//
// Both map onto the plain ciload records. Decimals are read as strings so no
// precision is lost through float parsing.
//
// =============================================================================

package snapshot

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DateLayout is the date format accepted in snapshot files.
const DateLayout = "2006-01-02"

// =============================================================================
// YAML DOCUMENT
// =============================================================================

type entryDoc struct {
	CustomerNumber   string `yaml:"customer_number"`
	FileNumber       string `yaml:"file_number"`
	Vessel           string `yaml:"vessel"`
	Voyage           string `yaml:"voyage"`
	Carrier          string `yaml:"carrier"`
	TransportMode    string `yaml:"transport_mode"`
	PortOfLading     string `yaml:"port_of_lading"`
	PortOfUnlading   string `yaml:"port_of_unlading"`
	GrossWeight      string `yaml:"gross_weight"`
	WeightUnit       string `yaml:"weight_unit"`
	Pieces           string `yaml:"pieces"`
	PiecesUOM        string `yaml:"pieces_uom"`
	GoodsDescription string `yaml:"goods_description"`
	EffectiveDate    string `yaml:"effective_date"`

	EdiIdentifier *billsDoc `yaml:"edi_identifier"`

	Invoices      []invoiceDoc   `yaml:"invoices"`
	Containers    []containerDoc `yaml:"containers"`
	BillsOfLading []bolDoc       `yaml:"bills_of_lading"`
	Parties       []partyDoc     `yaml:"parties"`
	DateEvents    []dateEventDoc `yaml:"date_events"`
}

type billsDoc struct {
	MasterBill      string `yaml:"master_bill"`
	HouseBill       string `yaml:"house_bill"`
	SubHouseBill    string `yaml:"sub_house_bill"`
	SubSubHouseBill string `yaml:"sub_sub_house_bill"`
}

type bolDoc struct {
	billsDoc `yaml:",inline"`
	Scac     string `yaml:"scac"`
	Pieces   string `yaml:"pieces"`
}

type containerDoc struct {
	Number      string `yaml:"number"`
	SealNumber  string `yaml:"seal_number"`
	Size        string `yaml:"size"`
	Type        string `yaml:"type"`
	Weight      string `yaml:"weight"`
	WeightUnit  string `yaml:"weight_unit"`
	Pieces      string `yaml:"pieces"`
	Description string `yaml:"description"`
}

type partyDoc struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Address1 string `yaml:"address1"`
	Address2 string `yaml:"address2"`
	City     string `yaml:"city"`
	State    string `yaml:"state"`
	Zip      string `yaml:"zip"`
	Country  string `yaml:"country"`
}

type dateEventDoc struct {
	Code string `yaml:"code"`
	Date string `yaml:"date"`
}

type invoiceDoc struct {
	InvoiceNumber     string    `yaml:"invoice_number"`
	InvoiceDate       string    `yaml:"invoice_date"`
	Currency          string    `yaml:"currency"`
	ExchangeRate      string    `yaml:"exchange_rate"`
	NonDutiableAmount string    `yaml:"non_dutiable_amount"`
	AddToMakeAmount   string    `yaml:"add_to_make_amount"`
	Lines             []lineDoc `yaml:"lines"`
}

type lineDoc struct {
	PartNumber          string        `yaml:"part_number"`
	StyleNumber         string        `yaml:"style_number"`
	Description         string        `yaml:"description"`
	CountryOfOrigin     string        `yaml:"country_of_origin"`
	CountryOfExport     string        `yaml:"country_of_export"`
	Pieces              string        `yaml:"pieces"`
	UnitPrice           string        `yaml:"unit_price"`
	GrossWeight         string        `yaml:"gross_weight"`
	WeightUnit          string        `yaml:"weight_unit"`
	PONumber            string        `yaml:"po_number"`
	MID                 string        `yaml:"mid"`
	BuyerCustomerNumber string        `yaml:"buyer_customer_number"`
	BuyerAddressNumber  string        `yaml:"buyer_address_number"`
	BuyerReference      string        `yaml:"buyer_reference"`
	Department          string        `yaml:"department"`
	CottonFee           bool          `yaml:"cotton_fee"`
	TariffNumbers       []string      `yaml:"tariff_numbers"`
	Exclusion301        string        `yaml:"exclusion_301"`
	EnteredValue        string        `yaml:"entered_value"`
	Quantities          []quantityDoc `yaml:"quantities"`
	SPI                 string        `yaml:"spi"`
	SPISecondary        string        `yaml:"spi_secondary"`
	PGA                 *pgaDoc       `yaml:"pga"`
	Tariffs             []tariffDoc   `yaml:"tariffs"`
}

type quantityDoc struct {
	Value string `yaml:"value"`
	UOM   string `yaml:"uom"`
}

type tariffDoc struct {
	HTSNumber         string        `yaml:"hts_number"`
	Priority          float64       `yaml:"priority"`
	SecondaryPriority float64       `yaml:"secondary_priority"`
	SpecialTariff     bool          `yaml:"special"`
	EnteredValue      string        `yaml:"entered_value"`
	Quantities        []quantityDoc `yaml:"quantities"`
	SPI               string        `yaml:"spi"`
}

type pgaDoc struct {
	FDA *struct {
		ProgramCode    string   `yaml:"program_code"`
		ProcessingCode string   `yaml:"processing_code"`
		ProductCode    string   `yaml:"product_code"`
		IntendedUse    string   `yaml:"intended_use"`
		Affirmations   []string `yaml:"affirmations"`
	} `yaml:"fda"`
	Lacey []struct {
		Genus           string `yaml:"genus"`
		Species         string `yaml:"species"`
		HarvestCountry  string `yaml:"harvest_country"`
		Quantity        string `yaml:"quantity"`
		UOM             string `yaml:"uom"`
		PercentRecycled string `yaml:"percent_recycled"`
	} `yaml:"lacey"`
	FishWildlife *struct {
		ProgramCode   string `yaml:"program_code"`
		Genus         string `yaml:"genus"`
		Species       string `yaml:"species"`
		SourceCode    string `yaml:"source_code"`
		Description   string `yaml:"description"`
		DeclarationNo string `yaml:"declaration_no"`
	} `yaml:"fish_wildlife"`
	DOT *struct {
		ProgramCode string `yaml:"program_code"`
		BoxNumber   string `yaml:"box_number"`
		ModelYear   string `yaml:"model_year"`
		Make        string `yaml:"make"`
	} `yaml:"dot"`
	EPA *struct {
		ProgramCode    string `yaml:"program_code"`
		ProcessingCode string `yaml:"processing_code"`
		ProductCode    string `yaml:"product_code"`
		Declaration    string `yaml:"declaration"`
	} `yaml:"epa"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadYAML reads one entry snapshot file.
func LoadYAML(path string) (ciload.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ciload.Entry{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes an entry snapshot.
func ParseYAML(data []byte) (ciload.Entry, error) {
	var doc entryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ciload.Entry{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	p := &parser{}
	entry := p.entry(doc)
	if p.err != nil {
		return ciload.Entry{}, p.err
	}
	return entry, nil
}

// parser converts documents to records, keeping the first conversion error
// with the path of the offending value.
type parser struct {
	err error
}

func (p *parser) fail(path string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", path, err)
	}
}

func (p *parser) decimal(path, s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		p.fail(path, fmt.Errorf("invalid number %q", s))
		return nil
	}
	return &d
}

func (p *parser) date(path, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		p.fail(path, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s))
		return nil
	}
	return &t
}

func (p *parser) weightUnit(path, s string) ciload.WeightUnit {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "":
		return ""
	case "KG", "KGS", "K":
		return ciload.Kilograms
	case "G", "GR", "GRAMS":
		return ciload.Grams
	case "LB", "LBS", "L":
		return ciload.Pounds
	}
	p.fail(path, fmt.Errorf("unknown weight unit %q", s))
	return ""
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (p *parser) entry(doc entryDoc) ciload.Entry {
	e := ciload.Entry{
		CustomerNumber:   strings.TrimSpace(doc.CustomerNumber),
		FileNumber:       strings.TrimSpace(doc.FileNumber),
		Vessel:           doc.Vessel,
		Voyage:           doc.Voyage,
		Carrier:          doc.Carrier,
		TransportMode:    doc.TransportMode,
		PortOfLading:     doc.PortOfLading,
		PortOfUnlading:   doc.PortOfUnlading,
		GrossWeight:      p.decimal("gross_weight", doc.GrossWeight),
		WeightUnit:       p.weightUnit("weight_unit", doc.WeightUnit),
		Pieces:           p.decimal("pieces", doc.Pieces),
		PiecesUOM:        doc.PiecesUOM,
		GoodsDescription: doc.GoodsDescription,
		EffectiveDate:    p.date("effective_date", doc.EffectiveDate),
	}
	if doc.EdiIdentifier != nil {
		id := doc.EdiIdentifier.identifier()
		e.EdiIdentifier = &id
	}

	for i, c := range doc.Containers {
		path := fmt.Sprintf("containers[%d]", i)
		e.Containers = append(e.Containers, ciload.Container{
			Number:      c.Number,
			SealNumber:  c.SealNumber,
			Size:        c.Size,
			Type:        c.Type,
			Weight:      p.decimal(path+".weight", c.Weight),
			WeightUnit:  p.weightUnit(path+".weight_unit", c.WeightUnit),
			Pieces:      p.decimal(path+".pieces", c.Pieces),
			Description: c.Description,
		})
	}
	for i, b := range doc.BillsOfLading {
		id := b.identifier()
		e.BillsOfLading = append(e.BillsOfLading, ciload.BillOfLading{
			MasterBill:      id.MasterBill,
			HouseBill:       id.HouseBill,
			SubHouseBill:    id.SubHouseBill,
			SubSubHouseBill: id.SubSubHouseBill,
			Scac:            b.Scac,
			Pieces:          p.decimal(fmt.Sprintf("bills_of_lading[%d].pieces", i), b.Pieces),
		})
	}
	for _, pt := range doc.Parties {
		e.Parties = append(e.Parties, ciload.Party(pt))
	}
	for i, d := range doc.DateEvents {
		t := p.date(fmt.Sprintf("date_events[%d].date", i), d.Date)
		if t == nil {
			p.fail(fmt.Sprintf("date_events[%d]", i), fmt.Errorf("date is required"))
			continue
		}
		e.DateEvents = append(e.DateEvents, ciload.DateEvent{Code: d.Code, Date: *t})
	}
	for i, inv := range doc.Invoices {
		e.Invoices = append(e.Invoices, p.invoice(fmt.Sprintf("invoices[%d]", i), inv))
	}
	return e
}

func (b billsDoc) identifier() ciload.EdiIdentifier {
	return ciload.EdiIdentifier{
		MasterBill:      optional(b.MasterBill),
		HouseBill:       optional(b.HouseBill),
		SubHouseBill:    optional(b.SubHouseBill),
		SubSubHouseBill: optional(b.SubSubHouseBill),
	}
}

func (p *parser) invoice(path string, doc invoiceDoc) ciload.Invoice {
	inv := ciload.Invoice{
		InvoiceNumber:     strings.TrimSpace(doc.InvoiceNumber),
		InvoiceDate:       p.date(path+".invoice_date", doc.InvoiceDate),
		Currency:          doc.Currency,
		ExchangeRate:      p.decimal(path+".exchange_rate", doc.ExchangeRate),
		NonDutiableAmount: p.decimal(path+".non_dutiable_amount", doc.NonDutiableAmount),
		AddToMakeAmount:   p.decimal(path+".add_to_make_amount", doc.AddToMakeAmount),
	}
	for i, l := range doc.Lines {
		inv.Lines = append(inv.Lines, p.line(fmt.Sprintf("%s.lines[%d]", path, i), l))
	}
	return inv
}

func (p *parser) line(path string, doc lineDoc) ciload.InvoiceLine {
	l := ciload.InvoiceLine{
		PartNumber:          doc.PartNumber,
		StyleNumber:         doc.StyleNumber,
		Description:         doc.Description,
		CountryOfOrigin:     doc.CountryOfOrigin,
		CountryOfExport:     doc.CountryOfExport,
		Pieces:              p.decimal(path+".pieces", doc.Pieces),
		UnitPrice:           p.decimal(path+".unit_price", doc.UnitPrice),
		GrossWeight:         p.decimal(path+".gross_weight", doc.GrossWeight),
		WeightUnit:          p.weightUnit(path+".weight_unit", doc.WeightUnit),
		PONumber:            doc.PONumber,
		MID:                 doc.MID,
		BuyerCustomerNumber: doc.BuyerCustomerNumber,
		BuyerAddressNumber:  doc.BuyerAddressNumber,
		BuyerReference:      doc.BuyerReference,
		Department:          doc.Department,
		CottonFee:           doc.CottonFee,
		TariffNumbers:       doc.TariffNumbers,
		Exclusion301:        optional(doc.Exclusion301),
		EnteredValue:        p.decimal(path+".entered_value", doc.EnteredValue),
		Quantities:          p.quantities(path+".quantities", doc.Quantities),
		SPI:                 doc.SPI,
		SPISecondary:        doc.SPISecondary,
		PGA:                 p.pga(path+".pga", doc.PGA),
	}
	for i, t := range doc.Tariffs {
		tp := fmt.Sprintf("%s.tariffs[%d]", path, i)
		l.Tariffs = append(l.Tariffs, ciload.TariffLine{
			HTSNumber:         t.HTSNumber,
			Priority:          t.Priority,
			SecondaryPriority: t.SecondaryPriority,
			SpecialTariff:     t.SpecialTariff,
			EnteredValue:      p.decimal(tp+".entered_value", t.EnteredValue),
			Quantities:        p.quantities(tp+".quantities", t.Quantities),
			SPI:               t.SPI,
		})
	}
	return l
}

func (p *parser) quantities(path string, docs []quantityDoc) [3]ciload.Quantity {
	var out [3]ciload.Quantity
	if len(docs) > len(out) {
		p.fail(path, fmt.Errorf("at most %d quantities allowed, got %d", len(out), len(docs)))
		return out
	}
	for i, q := range docs {
		out[i] = ciload.Quantity{Value: p.decimal(fmt.Sprintf("%s[%d]", path, i), q.Value), UOM: q.UOM}
	}
	return out
}

func (p *parser) pga(path string, doc *pgaDoc) *ciload.PGAData {
	if doc == nil {
		return nil
	}
	out := &ciload.PGAData{}
	if f := doc.FDA; f != nil {
		out.FDA = &ciload.FDA{ProgramCode: f.ProgramCode, ProcessingCode: f.ProcessingCode, ProductCode: f.ProductCode, IntendedUse: f.IntendedUse, Affirmations: f.Affirmations}
	}
	for i, c := range doc.Lacey {
		cp := fmt.Sprintf("%s.lacey[%d]", path, i)
		out.Lacey = append(out.Lacey, ciload.LaceyComponent{
			Genus:           c.Genus,
			Species:         c.Species,
			HarvestCountry:  c.HarvestCountry,
			Quantity:        p.decimal(cp+".quantity", c.Quantity),
			UOM:             c.UOM,
			PercentRecycled: p.decimal(cp+".percent_recycled", c.PercentRecycled),
		})
	}
	if f := doc.FishWildlife; f != nil {
		out.FishWildlife = &ciload.FishWildlife{ProgramCode: f.ProgramCode, Genus: f.Genus, Species: f.Species, SourceCode: f.SourceCode, Description: f.Description, DeclarationNo: f.DeclarationNo}
	}
	if d := doc.DOT; d != nil {
		out.DOT = &ciload.DOT{ProgramCode: d.ProgramCode, BoxNumber: d.BoxNumber, ModelYear: d.ModelYear, Make: d.Make}
	}
	if e := doc.EPA; e != nil {
		out.EPA = &ciload.EPA{ProgramCode: e.ProgramCode, ProcessingCode: e.ProcessingCode, ProductCode: e.ProductCode, Declaration: e.Declaration}
	}
	if out.Empty() {
		return nil
	}
	return out
}

// =============================================================================
// CI Load Engine - Data Model
// =============================================================================
//
// This package holds the value records that describe one customs entry in the
// shape the EDI target expects ("CI Load"):
//
//   Entry
//   ├── DateEvents, Containers, BillsOfLading, Parties
//   └── Invoices
//       └── InvoiceLines
//           └── TariffLines (+ PGA blocks)
//
// Records are built fresh for a single generation call and are never mutated
// by the engine. Optional values are pointers so that "absent" and "empty"
// stay distinct.
//
// =============================================================================

package ciload

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is the root of one submission to the EDI target.
type Entry struct {
	CustomerNumber string
	FileNumber     string

	Vessel         string
	Voyage         string
	Carrier        string
	TransportMode  string
	PortOfLading   string
	PortOfUnlading string

	GrossWeight *decimal.Decimal
	WeightUnit  WeightUnit
	Pieces      *decimal.Decimal
	PiecesUOM   string

	GoodsDescription string

	// EffectiveDate keys every record of the entry. When nil the generation
	// reference date is used.
	EffectiveDate *time.Time

	EdiIdentifier *EdiIdentifier

	Invoices      []Invoice
	Containers    []Container
	BillsOfLading []BillOfLading
	Parties       []Party
	DateEvents    []DateEvent
}

// ResolveEdiIdentifier returns the explicit identifier, or one derived from
// the first bill of lading. The boolean is false when neither yields a bill
// number.
func (e Entry) ResolveEdiIdentifier() (EdiIdentifier, bool) {
	if e.EdiIdentifier != nil && e.EdiIdentifier.BillNumber() != "" {
		return *e.EdiIdentifier, true
	}
	if len(e.BillsOfLading) > 0 {
		if id := e.BillsOfLading[0].EdiIdentifier(); id.BillNumber() != "" {
			return id, true
		}
	}
	return EdiIdentifier{}, false
}

// EdiIdentifier is the bill-of-lading-derived key the EDI target uses to
// stitch records back together.
type EdiIdentifier struct {
	MasterBill      *string
	HouseBill       *string
	SubHouseBill    *string
	SubSubHouseBill *string
}

// BillNumber returns the most specific non-empty bill number.
func (id EdiIdentifier) BillNumber() string {
	for _, v := range []*string{id.SubSubHouseBill, id.SubHouseBill, id.HouseBill, id.MasterBill} {
		if s := Value(v); s != "" {
			return s
		}
	}
	return ""
}

// DateEvent is a coded milestone date on the entry (arrival, export, ...).
type DateEvent struct {
	Code string
	Date time.Time
}

// Container is a flat attribute bag describing one piece of equipment.
type Container struct {
	Number      string
	SealNumber  string
	Size        string
	Type        string
	Weight      *decimal.Decimal
	WeightUnit  WeightUnit
	Pieces      *decimal.Decimal
	Description string
}

// BillOfLading is a flat attribute bag describing one transport document.
type BillOfLading struct {
	MasterBill      *string
	HouseBill       *string
	SubHouseBill    *string
	SubSubHouseBill *string
	Scac            string
	Pieces          *decimal.Decimal
}

// EdiIdentifier projects the bill numbers of the document.
func (b BillOfLading) EdiIdentifier() EdiIdentifier {
	return EdiIdentifier{
		MasterBill:      b.MasterBill,
		HouseBill:       b.HouseBill,
		SubHouseBill:    b.SubHouseBill,
		SubSubHouseBill: b.SubSubHouseBill,
	}
}

// Party is a named address block (consignee, manufacturer, buyer, ...).
type Party struct {
	Type     string
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice belongs to exactly one Entry.
type Invoice struct {
	InvoiceNumber     string
	InvoiceDate       *time.Time
	Currency          string
	ExchangeRate      *decimal.Decimal
	NonDutiableAmount *decimal.Decimal
	AddToMakeAmount   *decimal.Decimal
	Lines             []InvoiceLine
}

// InvoiceKey is the uniqueness key expected downstream.
type InvoiceKey struct {
	FileNumber    string
	InvoiceNumber string
	InvoiceDate   string
}

// Key builds the uniqueness key of the invoice within the given file.
func (inv Invoice) Key(fileNumber string) InvoiceKey {
	date := ""
	if inv.InvoiceDate != nil {
		date = inv.InvoiceDate.Format("20060102")
	}
	return InvoiceKey{
		FileNumber:    strings.TrimSpace(fileNumber),
		InvoiceNumber: strings.TrimSpace(inv.InvoiceNumber),
		InvoiceDate:   date,
	}
}

// String renders the key for log and error messages.
func (k InvoiceKey) String() string {
	return k.FileNumber + "/" + k.InvoiceNumber + "/" + k.InvoiceDate
}

// InvoiceLine belongs to exactly one Invoice.
type InvoiceLine struct {
	PartNumber  string
	StyleNumber string
	Description string

	CountryOfOrigin string
	CountryOfExport string

	Pieces      *decimal.Decimal
	UnitPrice   *decimal.Decimal
	GrossWeight *decimal.Decimal
	WeightUnit  WeightUnit

	PONumber            string
	MID                 string
	BuyerCustomerNumber string
	BuyerAddressNumber  string
	BuyerReference      string
	Department          string
	CottonFee           bool

	// TariffNumbers are the keyed tariff numbers in source order. The first
	// non-special number is the primary classification.
	TariffNumbers []string

	// Exclusion301 is a keyed section 301 exclusion number that supersedes
	// the standard 301 program for the line.
	Exclusion301 *string

	// Classification data carried by the primary tariff.
	EnteredValue *decimal.Decimal
	Quantities   [3]Quantity
	SPI          string
	SPISecondary string
	PGA          *PGAData

	// Tariffs are verbatim child tariff records; they are emitted after the
	// prioritized keyed set, unmodified.
	Tariffs []TariffLine
}

// ForeignValue is the line value in invoice currency: the entered value when
// present, otherwise pieces times unit price.
func (l InvoiceLine) ForeignValue() *decimal.Decimal {
	if l.EnteredValue != nil {
		return l.EnteredValue
	}
	if l.Pieces != nil && l.UnitPrice != nil {
		v := l.Pieces.Mul(*l.UnitPrice)
		return &v
	}
	return nil
}

// =============================================================================
// TARIFF
// =============================================================================

// TariffLine is one classification emitted under an invoice line.
type TariffLine struct {
	HTSNumber string

	// Priority orders the line; higher is emitted earlier.
	Priority float64
	// SecondaryPriority breaks priority ties.
	SecondaryPriority float64

	Primary       bool
	SpecialTariff bool
	Exclusion     bool

	EnteredValue *decimal.Decimal
	Quantities   [3]Quantity
	SPI          string
	SPISecondary string
	PGA          *PGAData
}

// Quantity is one classification quantity and its unit of measure.
type Quantity struct {
	Value *decimal.Decimal
	UOM   string
}

// =============================================================================
// PARTICIPATING GOVERNMENT AGENCY DATA
// =============================================================================

// PGAData groups the optional agency blocks for a tariff line. Absent blocks
// are simply not emitted.
type PGAData struct {
	FDA          *FDA
	Lacey        []LaceyComponent
	FishWildlife *FishWildlife
	DOT          *DOT
	EPA          *EPA
}

// Empty reports whether no agency block is present.
func (p *PGAData) Empty() bool {
	return p == nil || (p.FDA == nil && len(p.Lacey) == 0 && p.FishWildlife == nil && p.DOT == nil && p.EPA == nil)
}

// FDA is the Food and Drug Administration block.
type FDA struct {
	ProgramCode    string
	ProcessingCode string
	ProductCode    string
	IntendedUse    string
	Affirmations   []string
}

// LaceyComponent is one APHIS Lacey Act plant component declaration.
type LaceyComponent struct {
	Genus           string
	Species         string
	HarvestCountry  string
	Quantity        *decimal.Decimal
	UOM             string
	PercentRecycled *decimal.Decimal
}

// FishWildlife is the US Fish & Wildlife Service block.
type FishWildlife struct {
	ProgramCode   string
	Genus         string
	Species       string
	SourceCode    string
	Description   string
	DeclarationNo string
}

// DOT is the Department of Transportation (NHTSA) block.
type DOT struct {
	ProgramCode string
	BoxNumber   string
	ModelYear   string
	Make        string
}

// EPA is the Environmental Protection Agency block.
type EPA struct {
	ProgramCode    string
	ProcessingCode string
	ProductCode    string
	Declaration    string
}

// =============================================================================
// UNITS
// =============================================================================

// WeightUnit identifies the unit a weight was captured in.
type WeightUnit string

const (
	Kilograms WeightUnit = "KG"
	Grams     WeightUnit = "G"
	Pounds    WeightUnit = "LB"
)

// =============================================================================
// HELPERS
// =============================================================================

// Value dereferences an optional string, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

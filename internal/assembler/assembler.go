// =============================================================================
// CI Load Engine - Document Assembler
// =============================================================================
//
// The assembler turns one Entry snapshot into the document tree of the EDI
// target. The target's flat tables are joined only on repeated key fields,
// so every node carries the keys of all its ancestors:
//
//   every node        custNo, fileNo, dateEffective
//   invoice and below + invoiceNo, dateInvoice
//   line and below    + partNo, styleNo, lineNo
//   tariff            + tariffSeq
//   pga               + tariffSeq, pgaSeq
//
// FAILURE SEMANTICS:
//   - Missing or overflowing key fields and missing master data abort the
//     Entry. No partial document is returned.
//   - Any other problem on a line (no tariff, a number that does not fit,
//     text rejected by a strict codec) skips that line only.
//
// =============================================================================

package assembler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"
	"github.com/ginjaninja78/ci-load-engine/internal/logging"
	"github.com/ginjaninja78/ci-load-engine/internal/tariffs"
	"github.com/ginjaninja78/ci-load-engine/internal/validation"
	"github.com/shopspring/decimal"
)

// Party type codes of line-level master data.
const (
	PartyManufacturer = "MF"
	PartyBuyer        = "BY"
)

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// Options tune one Assembler.
type Options struct {
	// Codec encodes text. Defaults to a substituting codec.
	Codec *fieldcodec.Codec

	// PartOverflow applies to part and style numbers. The default fails the
	// Entry; Truncate cuts them to the field length.
	PartOverflow fieldcodec.OverflowPolicy

	// AllowDuplicateInvoices accepts repeated invoice keys in one Entry.
	AllowDuplicateInvoices bool

	Logger logging.Logger
}

// Stats counts what went into a document.
type Stats struct {
	Invoices         int
	Lines            int
	LinesSkipped     int
	Tariffs          int
	PGA              int
	MasterDataHits   int
	MasterDataMisses int
}

// Output is the assembled document of one Entry.
type Output struct {
	Root       *document.Node
	LineErrors []*LineError
	Warnings   []*validation.ValidationError
	Stats      Stats
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler builds documents. It owns a master data Cache and is meant for a
// single generation call.
type Assembler struct {
	builder *tariffs.Builder
	master  *Cache
	codec   *fieldcodec.Codec
	logger  logging.Logger

	partSpec  fieldcodec.Spec
	styleSpec fieldcodec.Spec

	allowDuplicates bool
}

// New creates an Assembler.
//
// PARAMETERS:
//   - builder: Orders the tariffs of each line.
//   - master: Manufacturer and buyer address lookups. Wrapped in a fresh
//     Cache unless it already is one.
//   - opts: Codec, part overflow policy and logger.
//
// RETURNS:
//   - A new Assembler instance.
func New(builder *tariffs.Builder, master MasterData, opts Options) *Assembler {
	cache, ok := master.(*Cache)
	if !ok {
		cache = NewCache(master)
	}
	codec := opts.Codec
	if codec == nil {
		codec = fieldcodec.New(fieldcodec.TextSubstitute)
	}

	partSpec, styleSpec := specPartNo, specStyleNo
	partSpec.Overflow = opts.PartOverflow
	styleSpec.Overflow = opts.PartOverflow

	return &Assembler{
		builder:         builder,
		master:          cache,
		codec:           codec,
		logger:          logging.OrNop(opts.Logger),
		partSpec:        partSpec,
		styleSpec:       styleSpec,
		allowDuplicates: opts.AllowDuplicateInvoices,
	}
}

// Assemble builds the document tree of one Entry.
//
// PARAMETERS:
//   - entry: The entry snapshot.
//   - refDate: Reference date for cross-reference windows and the default
//     effective date.
//
// RETURNS:
//   - The document and the line-local errors that were skipped.
//   - An error that aborts the Entry.
func (a *Assembler) Assemble(entry ciload.Entry, refDate time.Time) (*Output, error) {
	log := a.logger.With("cust", entry.CustomerNumber, "file", entry.FileNumber)

	// =========================================================================
	// STEP 1: KEY-FIELD CONTRACT
	// =========================================================================

	check := validation.ValidateEntry(entry, validation.Options{AllowDuplicateInvoices: a.allowDuplicates})
	if err := check.Err(); err != nil {
		return nil, err
	}
	for _, w := range check.Warnings() {
		log.Warn("entry validation warning", "finding", w.Error())
	}

	out := &Output{Warnings: check.Warnings()}

	effective := refDate
	if entry.EffectiveDate != nil {
		effective = *entry.EffectiveDate
	}

	keys := newRecord(a.codec, document.Entry, nil)
	keys.text(specCustNo, entry.CustomerNumber)
	keys.text(specFileNo, entry.FileNumber)
	keys.date("dateEffective", &effective)
	if keys.err != nil {
		return nil, fmt.Errorf("entry keys: %w", keys.err)
	}
	entryKeys := keys.fields()

	// =========================================================================
	// STEP 2: ENTRY RECORD AND ENTRY-LEVEL CHILDREN
	// =========================================================================

	root, err := a.entryRecord(entry, entryKeys)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}

	for _, ev := range entry.DateEvents {
		r := newRecord(a.codec, document.DateEvent, entryKeys)
		r.text(specEventCode, ev.Code)
		date := ev.Date
		r.date("eventDate", &date)
		if r.err != nil {
			return nil, fmt.Errorf("date event %s: %w", ev.Code, r.err)
		}
		root.Append(r.node)
	}

	for _, c := range entry.Containers {
		r := newRecord(a.codec, document.Container, entryKeys)
		r.text(specContainerNo, c.Number)
		r.text(specSealNo, c.SealNumber)
		r.text(specContainerSize, c.Size)
		r.text(specContainerType, c.Type)
		r.weight(specWeightGross, c.Weight, c.WeightUnit)
		r.number(specPieces, c.Pieces)
		r.text(specDescription, c.Description)
		if r.err != nil {
			return nil, fmt.Errorf("container %s: %w", c.Number, r.err)
		}
		root.Append(r.node)
	}

	for _, b := range entry.BillsOfLading {
		r := newRecord(a.codec, document.BillOfLading, entryKeys)
		r.text(specMasterBill, ciload.Value(b.MasterBill))
		r.text(specHouseBill, ciload.Value(b.HouseBill))
		r.text(specSubHouseBill, ciload.Value(b.SubHouseBill))
		r.text(specSubSubHouseBill, ciload.Value(b.SubSubHouseBill))
		r.text(specScac, b.Scac)
		r.number(specPieces, b.Pieces)
		if r.err != nil {
			return nil, fmt.Errorf("bill of lading %s: %w", b.EdiIdentifier().BillNumber(), r.err)
		}
		root.Append(r.node)
	}

	for _, p := range entry.Parties {
		node, err := a.partyRecord(entryKeys, p.Type, "", partyAddress{
			name: p.Name, address1: p.Address1, address2: p.Address2,
			city: p.City, state: p.State, zip: p.Zip, country: p.Country,
		})
		if err != nil {
			return nil, fmt.Errorf("party %s: %w", p.Type, err)
		}
		root.Append(node)
	}

	// =========================================================================
	// STEP 3: INVOICES AND LINES
	// =========================================================================

	for _, inv := range entry.Invoices {
		node, err := a.invoiceRecord(entry, inv, entryKeys, refDate, out)
		if err != nil {
			return nil, err
		}
		root.Append(node)
		out.Stats.Invoices++
	}

	out.Root = root
	out.Stats.MasterDataHits, out.Stats.MasterDataMisses = a.master.Stats()

	log.Debug("assembled entry",
		"invoices", out.Stats.Invoices,
		"lines", out.Stats.Lines,
		"skipped", out.Stats.LinesSkipped,
		"tariffs", out.Stats.Tariffs,
		"pga", out.Stats.PGA,
	)
	return out, nil
}

// =============================================================================
// ENTRY
// =============================================================================

func (a *Assembler) entryRecord(entry ciload.Entry, keys []document.Field) (*document.Node, error) {
	id, ok := entry.ResolveEdiIdentifier()
	if !ok {
		return nil, validation.ErrMissingEdiIdentifier
	}

	r := newRecord(a.codec, document.Entry, keys)
	r.text(specEdiBillNo, id.BillNumber())
	r.text(specMasterBill, ciload.Value(id.MasterBill))
	r.text(specHouseBill, ciload.Value(id.HouseBill))
	r.text(specSubHouseBill, ciload.Value(id.SubHouseBill))
	r.text(specSubSubHouseBill, ciload.Value(id.SubSubHouseBill))
	r.text(specVessel, entry.Vessel)
	r.text(specVoyage, entry.Voyage)
	r.text(specCarrier, entry.Carrier)
	r.text(specTransportMode, entry.TransportMode)
	r.text(specPortLading, entry.PortOfLading)
	r.text(specPortUnlading, entry.PortOfUnlading)
	r.weight(specWeightGross, entry.GrossWeight, entry.WeightUnit)
	r.number(specPieces, entry.Pieces)
	r.text(specPiecesUOM, entry.PiecesUOM)
	r.text(specGoodsDesc, entry.GoodsDescription)
	return r.node, r.err
}

type partyAddress struct {
	name, address1, address2, city, state, zip, country string
}

func (a *Assembler) partyRecord(keys []document.Field, partyType, code string, addr partyAddress) (*document.Node, error) {
	r := newRecord(a.codec, document.Party, keys)
	r.text(specPartyType, partyType)
	r.text(specPartyCode, code)
	r.text(specName, addr.name)
	r.text(specAddress1, addr.address1)
	r.text(specAddress2, addr.address2)
	r.text(specCity, addr.city)
	r.text(specState, addr.state)
	r.text(specZip, addr.zip)
	r.text(specCountry, addr.country)
	return r.node, r.err
}

// =============================================================================
// INVOICE
// =============================================================================

func (a *Assembler) invoiceRecord(entry ciload.Entry, inv ciload.Invoice, entryKeys []document.Field, refDate time.Time, out *Output) (*document.Node, error) {
	keys := newRecord(a.codec, document.Invoice, entryKeys)
	keys.text(specInvoiceNo, inv.InvoiceNumber)
	keys.date("dateInvoice", inv.InvoiceDate)
	if keys.err != nil {
		return nil, fmt.Errorf("invoice %s keys: %w", inv.InvoiceNumber, keys.err)
	}
	invoiceKeys := keys.fields()

	var lines []*document.Node
	total := decimal.Zero
	for i, line := range inv.Lines {
		lineNo := len(lines) + 1
		node, value, err := a.lineRecord(entry, line, invoiceKeys, lineNo, refDate, out)
		if err != nil {
			var lineErr *LineError
			if !errors.As(err, &lineErr) {
				return nil, fmt.Errorf("invoice %s line %d: %w", inv.InvoiceNumber, i+1, err)
			}
			lineErr.Invoice = inv.InvoiceNumber
			lineErr.Line = i + 1
			out.LineErrors = append(out.LineErrors, lineErr)
			out.Stats.LinesSkipped++
			a.logger.Warn("skipping invoice line",
				"invoice", inv.InvoiceNumber,
				"line", i+1,
				"part", line.PartNumber,
				"error", lineErr.Err,
			)
			continue
		}
		lines = append(lines, node)
		out.Stats.Lines++
		if value != nil {
			total = total.Add(*value)
		}
	}

	r := &record{node: keys.node, codec: a.codec}
	r.text(specCurrency, inv.Currency)
	r.number(specExchangeRate, inv.ExchangeRate)
	r.number(specNonDutiable, inv.NonDutiableAmount)
	r.number(specAddToMake, inv.AddToMakeAmount)
	r.number(specValueForeignTotal, &total)
	r.integer(specLineCount, len(lines))
	if r.err != nil {
		return nil, fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, r.err)
	}
	return r.node.Append(lines...), nil
}

// =============================================================================
// LINE
// =============================================================================

// lineRecord builds one line. Errors that abort the Entry are returned as
// is; line-local errors are returned as *LineError.
func (a *Assembler) lineRecord(entry ciload.Entry, line ciload.InvoiceLine, invoiceKeys []document.Field, lineNo int, refDate time.Time, out *Output) (*document.Node, *decimal.Decimal, error) {
	keys := newRecord(a.codec, document.Line, invoiceKeys)
	keys.text(a.partSpec, line.PartNumber)
	keys.text(a.styleSpec, line.StyleNumber)
	keys.integer(specLineNo, lineNo)
	if keys.err != nil {
		return nil, nil, fmt.Errorf("line keys: %w", keys.err)
	}
	lineKeys := keys.fields()

	parties, err := a.lineParties(entry, line, lineKeys)
	if err != nil {
		return nil, nil, err
	}

	lineErr := func(err error) error {
		return &LineError{PartNumber: line.PartNumber, Err: err}
	}

	value := line.ForeignValue()

	r := &record{node: keys.node, codec: a.codec}
	r.text(specLineDesc, line.Description)
	r.text(specCountryOrigin, line.CountryOfOrigin)
	r.text(specCountryExport, line.CountryOfExport)
	r.number(specLinePieces, line.Pieces)
	r.number(specUnitPrice, line.UnitPrice)
	r.number(specValueForeign, value)
	r.weight(specWeightGross, line.GrossWeight, line.WeightUnit)
	r.text(specPONo, line.PONumber)
	r.text(specMID, line.MID)
	r.text(specBuyerCustNo, line.BuyerCustomerNumber)
	r.text(specBuyerAddrNo, line.BuyerAddressNumber)
	r.text(specBuyerRef, line.BuyerReference)
	r.text(specDepartment, line.Department)
	r.flag("cottonFee", line.CottonFee)
	if r.err != nil {
		return nil, nil, lineErr(r.err)
	}

	list, err := a.builder.Build(line, refDate)
	if err != nil {
		return nil, nil, lineErr(err)
	}

	tariffNodes := make([]*document.Node, 0, len(list))
	pgaCount := 0
	for i, t := range list {
		node, n, err := a.tariffRecord(lineKeys, i+1, t)
		if err != nil {
			return nil, nil, lineErr(fmt.Errorf("tariff %s: %w", t.HTSNumber, err))
		}
		tariffNodes = append(tariffNodes, node)
		pgaCount += n
	}

	out.Stats.Tariffs += len(tariffNodes)
	out.Stats.PGA += pgaCount
	r.node.Append(parties...)
	r.node.Append(tariffNodes...)
	return r.node, value, nil
}

// lineParties resolves the manufacturer and buyer of a line. Failures abort
// the Entry.
func (a *Assembler) lineParties(entry ciload.Entry, line ciload.InvoiceLine, keys []document.Field) ([]*document.Node, error) {
	var parties []*document.Node

	if mid := strings.TrimSpace(line.MID); mid != "" {
		m, ok := a.master.Manufacturer(mid)
		if !ok {
			return nil, &MissingMasterDataError{Kind: KindManufacturer, Key: mid, Reason: "not found"}
		}
		if !m.Active {
			return nil, &MissingMasterDataError{Kind: KindManufacturer, Key: mid, Reason: "inactive"}
		}
		node, err := a.partyRecord(keys, PartyManufacturer, mid, partyAddress{
			name: m.Name, address1: m.Address1, address2: m.Address2,
			city: m.City, state: m.State, zip: m.Zip, country: m.Country,
		})
		if err != nil {
			return nil, fmt.Errorf("manufacturer %s: %w", mid, err)
		}
		parties = append(parties, node)
	}

	if addrNo := strings.TrimSpace(line.BuyerAddressNumber); addrNo != "" {
		customer := strings.TrimSpace(line.BuyerCustomerNumber)
		if customer == "" {
			customer = strings.TrimSpace(entry.CustomerNumber)
		}
		addr, ok := a.master.BuyerAddress(customer, addrNo)
		if !ok {
			return nil, &MissingMasterDataError{Kind: KindBuyerAddress, Key: customer + "/" + addrNo, Reason: "not found"}
		}
		node, err := a.partyRecord(keys, PartyBuyer, addrNo, partyAddress{
			name: addr.Name, address1: addr.Address1, address2: addr.Address2,
			city: addr.City, state: addr.State, zip: addr.Zip, country: addr.Country,
		})
		if err != nil {
			return nil, fmt.Errorf("buyer %s/%s: %w", customer, addrNo, err)
		}
		parties = append(parties, node)
	}

	return parties, nil
}

// =============================================================================
// TARIFF
// =============================================================================

// tariffRecord builds one tariff node and its PGA children, returning the
// number of PGA nodes.
func (a *Assembler) tariffRecord(lineKeys []document.Field, seq int, t ciload.TariffLine) (*document.Node, int, error) {
	keys := newRecord(a.codec, document.Tariff, lineKeys)
	keys.integer(specTariffSeq, seq)
	if keys.err != nil {
		return nil, 0, keys.err
	}
	tariffKeys := keys.fields()

	r := &record{node: keys.node, codec: a.codec}
	r.tariffNumber("tariffNo", t.HTSNumber)
	r.flag("primary", t.Primary)
	r.flag("special", t.SpecialTariff)
	r.flag("exclusion", t.Exclusion)
	r.number(specValueForeign, t.EnteredValue)
	for i, q := range t.Quantities {
		r.number(specQtyClass[i], q.Value)
		r.text(specQtyUOM[i], q.UOM)
	}
	r.text(specSPI, t.SPI)
	r.text(specSPISecondary, t.SPISecondary)
	if r.err != nil {
		return nil, 0, r.err
	}

	if !t.Primary || t.PGA.Empty() {
		return r.node, 0, nil
	}
	pga, err := a.pgaRecords(tariffKeys, t.PGA)
	if err != nil {
		return nil, 0, err
	}
	r.node.Append(pga...)
	return r.node, len(pga), nil
}

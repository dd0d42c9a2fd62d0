package assembler

import "github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"

// =============================================================================
// FIELD CONTRACT
// =============================================================================
//
// Lengths and encodings of every field the EDI target accepts. Key fields
// fail on overflow; everything else truncates (text) or fails the line
// (numbers).
//
//   Field           Len  Encoding
//   custNo           10  text, key
//   fileNo           15  text, key
//   dateEffective     8  YYYYMMDD, key
//   invoiceNo        30  text, key
//   dateInvoice       8  YYYYMMDD, key
//   partNo/styleNo   40  text, key (truncates under lenient part policy)
//   lineNo            5  digits, key
//   tariffSeq/pgaSeq  3  digits, key
//   tariffNo         10  digits
//   valueForeign     13  implied 2dp
//   weightGross      12  whole kilograms
//   qtyNClass        12  implied 2dp
//
// =============================================================================

func text(name string, maxLen int) fieldcodec.Spec {
	return fieldcodec.Spec{Name: name, MaxLen: maxLen, Overflow: fieldcodec.Truncate}
}

func key(name string, maxLen int) fieldcodec.Spec {
	return fieldcodec.Spec{Name: name, MaxLen: maxLen, Overflow: fieldcodec.Fail}
}

func implied(name string, maxLen int, dp int32) fieldcodec.NumberSpec {
	return fieldcodec.NumberSpec{Name: name, MaxLen: maxLen, DecimalPlaces: dp}
}

func whole(name string, maxLen int) fieldcodec.NumberSpec {
	return fieldcodec.NumberSpec{Name: name, MaxLen: maxLen, StripDecimals: true}
}

const (
	dateLen     = 8
	flagLen     = 1
	seqLen      = 3
	tariffNoLen = 10
)

// Key fields.
var (
	specCustNo    = key("custNo", 10)
	specFileNo    = key("fileNo", 15)
	specInvoiceNo = key("invoiceNo", 30)
	specPartNo    = key("partNo", 40)
	specStyleNo   = key("styleNo", 40)
	specLineNo    = whole("lineNo", 5)
)

// Entry.
var (
	specMasterBill      = text("masterBill", 35)
	specHouseBill       = text("houseBill", 35)
	specSubHouseBill    = text("subHouseBill", 35)
	specSubSubHouseBill = text("subSubHouseBill", 35)
	specEdiBillNo       = text("ediBillNo", 35)
	specVessel          = text("vessel", 35)
	specVoyage          = text("voyage", 10)
	specCarrier         = text("carrier", 4)
	specTransportMode   = text("transportMode", 2)
	specPortLading      = text("portLading", 5)
	specPortUnlading    = text("portUnlading", 4)
	specWeightGross     = whole("weightGross", 12)
	specPieces          = whole("pieces", 10)
	specPiecesUOM       = text("piecesUOM", 5)
	specGoodsDesc       = text("goodsDesc", 70)
)

// Date event.
var (
	specEventCode = text("eventCode", 2)
)

// Container.
var (
	specContainerNo   = text("containerNo", 15)
	specSealNo        = text("sealNo", 15)
	specContainerSize = text("size", 4)
	specContainerType = text("type", 4)
	specDescription   = text("description", 70)
)

// Bill of lading.
var (
	specScac = text("scac", 4)
)

// Party.
var (
	specPartyType = text("partyType", 2)
	specPartyCode = text("partyCode", 15)
	specName      = text("name", 60)
	specAddress1  = text("address1", 35)
	specAddress2  = text("address2", 35)
	specCity      = text("city", 35)
	specState     = text("state", 3)
	specZip       = text("zip", 10)
	specCountry   = text("country", 2)
)

// Invoice.
var (
	specCurrency          = text("currency", 3)
	specExchangeRate      = implied("exchangeRate", 10, 6)
	specNonDutiable       = implied("nonDutiable", 13, 2)
	specAddToMake         = implied("addToMake", 13, 2)
	specValueForeignTotal = implied("valueForeignTotal", 15, 2)
	specLineCount         = whole("lineCount", 6)
)

// Invoice line.
var (
	specLineDesc      = text("description", 70)
	specCountryOrigin = text("countryOrigin", 2)
	specCountryExport = text("countryExport", 2)
	specLinePieces    = implied("pieces", 12, 2)
	specUnitPrice     = implied("unitPrice", 15, 4)
	specValueForeign  = implied("valueForeign", 13, 2)
	specPONo          = text("poNo", 30)
	specMID           = text("mid", 15)
	specBuyerCustNo   = text("buyerCustNo", 10)
	specBuyerAddrNo   = text("buyerAddrNo", 5)
	specBuyerRef      = text("buyerRef", 30)
	specDepartment    = text("department", 10)
)

// Tariff.
var (
	specTariffSeq    = whole("tariffSeq", seqLen)
	specQtyClass     = [3]fieldcodec.NumberSpec{implied("qty1Class", 12, 2), implied("qty2Class", 12, 2), implied("qty3Class", 12, 2)}
	specQtyUOM       = [3]fieldcodec.Spec{text("uom1", 3), text("uom2", 3), text("uom3", 3)}
	specSPI          = text("spi", 2)
	specSPISecondary = text("spiSecondary", 2)
)

// PGA. Every agency block renders into the same record layout; fields a
// block does not use stay empty.
var (
	specPGASeq         = whole("pgaSeq", seqLen)
	specAgency         = text("agency", 3)
	specProgramCode    = text("programCode", 3)
	specProcessingCode = text("processingCode", 3)
	specProductCode    = text("productCode", 19)
	specIntendedUse    = text("intendedUse", 16)
	specGenus          = text("genus", 22)
	specSpecies        = text("species", 22)
	specPGACountry     = text("pgaCountry", 2)
	specPGAQuantity    = implied("pgaQuantity", 12, 2)
	specPGAUOM         = text("pgaUOM", 3)
	specPercent        = implied("percentRecycled", 5, 2)
	specSourceCode     = text("sourceCode", 1)
	specPGADesc        = text("pgaDescription", 70)
	specReference      = text("reference", 20)
	specModelYear      = text("modelYear", 4)
	specMake           = text("make", 20)
	specAffirmations   = text("affirmations", 40)
)

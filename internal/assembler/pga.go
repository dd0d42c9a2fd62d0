package assembler

import (
	"strings"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/shopspring/decimal"
)

// Agency codes.
const (
	AgencyFDA = "FDA"
	AgencyAPH = "APH"
	AgencyFWS = "FWS"
	AgencyNHT = "NHT"
	AgencyEPA = "EPA"
)

// laceyProgram is the APHIS program code of Lacey Act declarations.
const laceyProgram = "AL1"

// pgaFields is the union layout every agency block renders into.
type pgaFields struct {
	agency, program, processing, product, intendedUse string
	genus, species, country                           string
	quantity, percent                                 *decimal.Decimal
	uom, source, description, reference               string
	modelYear, make, affirmations                     string
}

// pgaRecords renders the present agency blocks in a fixed order: FDA, Lacey
// components, Fish & Wildlife, DOT, EPA. pgaSeq restarts at 1 for every
// tariff.
func (a *Assembler) pgaRecords(tariffKeys []document.Field, pga *ciload.PGAData) ([]*document.Node, error) {
	var blocks []pgaFields

	if f := pga.FDA; f != nil {
		blocks = append(blocks, pgaFields{
			agency:       AgencyFDA,
			program:      f.ProgramCode,
			processing:   f.ProcessingCode,
			product:      f.ProductCode,
			intendedUse:  f.IntendedUse,
			affirmations: strings.Join(f.Affirmations, " "),
		})
	}
	for _, c := range pga.Lacey {
		blocks = append(blocks, pgaFields{
			agency:   AgencyAPH,
			program:  laceyProgram,
			genus:    c.Genus,
			species:  c.Species,
			country:  c.HarvestCountry,
			quantity: c.Quantity,
			uom:      c.UOM,
			percent:  c.PercentRecycled,
		})
	}
	if f := pga.FishWildlife; f != nil {
		blocks = append(blocks, pgaFields{
			agency:      AgencyFWS,
			program:     f.ProgramCode,
			genus:       f.Genus,
			species:     f.Species,
			source:      f.SourceCode,
			description: f.Description,
			reference:   f.DeclarationNo,
		})
	}
	if d := pga.DOT; d != nil {
		blocks = append(blocks, pgaFields{
			agency:    AgencyNHT,
			program:   d.ProgramCode,
			reference: d.BoxNumber,
			modelYear: d.ModelYear,
			make:      d.Make,
		})
	}
	if e := pga.EPA; e != nil {
		blocks = append(blocks, pgaFields{
			agency:     AgencyEPA,
			program:    e.ProgramCode,
			processing: e.ProcessingCode,
			product:    e.ProductCode,
			reference:  e.Declaration,
		})
	}

	nodes := make([]*document.Node, 0, len(blocks))
	for i, b := range blocks {
		r := newRecord(a.codec, document.PGA, tariffKeys)
		r.integer(specPGASeq, i+1)
		r.text(specAgency, b.agency)
		r.text(specProgramCode, b.program)
		r.text(specProcessingCode, b.processing)
		r.text(specProductCode, b.product)
		r.text(specIntendedUse, b.intendedUse)
		r.text(specGenus, b.genus)
		r.text(specSpecies, b.species)
		r.text(specPGACountry, b.country)
		r.number(specPGAQuantity, b.quantity)
		r.text(specPGAUOM, b.uom)
		r.number(specPercent, b.percent)
		r.text(specSourceCode, b.source)
		r.text(specPGADesc, b.description)
		r.text(specReference, b.reference)
		r.text(specModelYear, b.modelYear)
		r.text(specMake, b.make)
		r.text(specAffirmations, b.affirmations)
		if r.err != nil {
			return nil, r.err
		}
		nodes = append(nodes, r.node)
	}
	return nodes, nil
}

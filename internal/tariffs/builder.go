// =============================================================================
// CI Load Engine - Tariff List Builder
// =============================================================================
//
// The builder merges the tariff numbers of one invoice line into the single
// ordered list the EDI target reads. Downstream systems treat the first
// emitted tariff as the primary classification, so the order produced here
// is part of the wire contract.
//
// BUILD STEPS:
//   1. Keyed numbers get priorities 0.00, -0.01, -0.02, ... in source order
//   2. Keyed numbers that are programs themselves take the program priority
//   3. A 301 exclusion number is added, or promoted if keyed, with priority 1000
//   4. Auto-include programs are added for every non-program keyed number
//   5. Secondary priority is derived from the number prefix
//   6. Stable sort, then verbatim child tariff records are appended
//
// =============================================================================

package tariffs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"
	"github.com/ginjaninja78/ci-load-engine/internal/specialtariff"
)

// Priority constants.
const (
	// ExclusionPriority places a 301 exclusion number ahead of everything.
	ExclusionPriority = 1000.0

	// KeyedPriorityStep is subtracted for each subsequent keyed number.
	KeyedPriorityStep = 0.01

	// SecondaryMTB is the secondary priority of 9902 numbers.
	SecondaryMTB = 100.0

	// Secondary301 is the secondary priority of 9903 numbers.
	Secondary301 = 200.0
)

// ErrNoTariff is returned for a line that has neither keyed numbers nor
// verbatim tariff records.
var ErrNoTariff = errors.New("invoice line has no tariff number")

// SpecialTariffSource resolves cross-reference programs for a tariff number.
// *specialtariff.Resolver implements it.
type SpecialTariffSource interface {
	TariffsFor(country, hts string, date time.Time, mode specialtariff.Mode, exclude301 bool) []specialtariff.SpecialTariff
}

// Builder produces ordered tariff lists. It holds no per-line state and may
// be shared across goroutines when its source is.
type Builder struct {
	source SpecialTariffSource
}

// NewBuilder creates a Builder.
//
// PARAMETERS:
//   - source: The cross-reference used for program lookups. May be nil, in
//     which case no number is ever treated as special.
//
// RETURNS:
//   - A new Builder instance.
func NewBuilder(source SpecialTariffSource) *Builder {
	return &Builder{source: source}
}

// entry is a tariff line under construction plus its input position.
type entry struct {
	line  ciload.TariffLine
	order int
	keyed bool
}

// Build returns the ordered tariff list for one invoice line.
//
// PARAMETERS:
//   - line: The invoice line.
//   - date: The reference date for cross-reference windows.
//
// RETURNS:
//   - The prioritized keyed set followed by the line's verbatim tariffs.
//   - ErrNoTariff if the line carries no tariff at all.
func (b *Builder) Build(line ciload.InvoiceLine, date time.Time) ([]ciload.TariffLine, error) {
	keyed := keyedNumbers(line.TariffNumbers)
	exclusion := fieldcodec.TariffNumber(ciload.Value(line.Exclusion301))

	if len(keyed) == 0 && exclusion == "" && len(line.Tariffs) == 0 {
		return nil, ErrNoTariff
	}

	var entries []*entry
	present := make(map[string]bool)
	add := func(e *entry) {
		e.order = len(entries)
		entries = append(entries, e)
		present[e.line.HTSNumber] = true
	}

	// =========================================================================
	// STEPS 1-2: KEYED NUMBERS
	// =========================================================================

	for i, number := range keyed {
		e := &entry{
			line: ciload.TariffLine{
				HTSNumber: number,
				Priority:  keyedPriority(i),
			},
			keyed: true,
		}
		if programs := b.lookup(line.CountryOfOrigin, number, date, specialtariff.ModeAll, false); len(programs) > 0 {
			e.line.SpecialTariff = true
			e.line.Priority = programs[0].Priority
		}
		add(e)
	}

	// =========================================================================
	// STEP 3: 301 EXCLUSION
	// =========================================================================

	if exclusion != "" {
		if e := keyedEntry(entries, exclusion); e != nil {
			e.line.Priority = ExclusionPriority
			e.line.SpecialTariff = true
			e.line.Exclusion = true
		} else {
			add(&entry{line: ciload.TariffLine{
				HTSNumber:     exclusion,
				Priority:      ExclusionPriority,
				SpecialTariff: true,
				Exclusion:     true,
			}})
		}
	}

	// =========================================================================
	// STEP 4: AUTO-INCLUDE PROGRAMS
	// =========================================================================

	for _, number := range keyed {
		if isSpecial(entries, number) {
			continue
		}
		for _, p := range b.lookup(line.CountryOfOrigin, number, date, specialtariff.ModeAutoInclude, exclusion != "") {
			if present[p.Number] {
				continue
			}
			add(&entry{line: ciload.TariffLine{
				HTSNumber:     p.Number,
				Priority:      p.Priority,
				SpecialTariff: true,
			}})
		}
	}

	// =========================================================================
	// STEP 5-6: SECONDARY PRIORITY AND ORDER
	// =========================================================================

	for _, e := range entries {
		e.line.SecondaryPriority = SecondaryPriority(e.line.HTSNumber)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})

	markPrimary(entries, line)

	out := make([]ciload.TariffLine, 0, len(entries)+len(line.Tariffs))
	for _, e := range entries {
		out = append(out, e.line)
	}
	out = append(out, line.Tariffs...)
	return out, nil
}

// SecondaryPriority is derived from the number alone: 9903 numbers sort ahead
// of 9902 numbers at equal priority.
func SecondaryPriority(number string) float64 {
	number = fieldcodec.TariffNumber(number)
	switch {
	case strings.HasPrefix(number, "9903"):
		return Secondary301
	case strings.HasPrefix(number, "9902"):
		return SecondaryMTB
	default:
		return 0
	}
}

// Validate checks the ordering invariant of a built list: exclusions first,
// then non-increasing (priority, secondary priority) across the prioritized
// set. Verbatim records, which follow the set, are not checked.
func Validate(list []ciload.TariffLine, prioritized int) error {
	if prioritized > len(list) {
		return fmt.Errorf("prioritized count %d exceeds list length %d", prioritized, len(list))
	}
	seenOther := false
	for i := 0; i < prioritized; i++ {
		if list[i].Exclusion && seenOther {
			return fmt.Errorf("exclusion %s at position %d is not first", list[i].HTSNumber, i)
		}
		if !list[i].Exclusion {
			seenOther = true
		}
		if i == 0 || list[i].Exclusion || list[i-1].Exclusion {
			continue
		}
		prev, cur := list[i-1], list[i]
		if cur.Priority > prev.Priority || (cur.Priority == prev.Priority && cur.SecondaryPriority > prev.SecondaryPriority) {
			return fmt.Errorf("tariff %s at position %d outranks its predecessor", cur.HTSNumber, i)
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (b *Builder) lookup(country, number string, date time.Time, mode specialtariff.Mode, exclude301 bool) []specialtariff.SpecialTariff {
	if b.source == nil {
		return nil
	}
	return b.source.TariffsFor(country, number, date, mode, exclude301)
}

// keyedNumbers normalizes keyed numbers to digits and drops blanks.
func keyedNumbers(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		if n = fieldcodec.TariffNumber(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// keyedPriority avoids accumulating float error over long keyed lists.
func keyedPriority(index int) float64 {
	if index == 0 {
		return 0
	}
	return -float64(index) * KeyedPriorityStep
}

func keyedEntry(entries []*entry, number string) *entry {
	for _, e := range entries {
		if e.keyed && e.line.HTSNumber == number {
			return e
		}
	}
	return nil
}

func isSpecial(entries []*entry, number string) bool {
	if e := keyedEntry(entries, number); e != nil {
		return e.line.SpecialTariff
	}
	return false
}

func less(a, b *entry) bool {
	if a.line.Exclusion != b.line.Exclusion {
		return a.line.Exclusion
	}
	if a.line.Priority != b.line.Priority {
		return a.line.Priority > b.line.Priority
	}
	if a.line.SecondaryPriority != b.line.SecondaryPriority {
		return a.line.SecondaryPriority > b.line.SecondaryPriority
	}
	if a.line.SpecialTariff != b.line.SpecialTariff {
		return a.line.SpecialTariff
	}
	return a.order < b.order
}

// markPrimary flags the first non-special keyed number, or the first keyed
// number when all are special, and gives it the line's classification data.
// An exclusion is never primary.
func markPrimary(entries []*entry, line ciload.InvoiceLine) {
	var primary *entry
	for _, e := range entries {
		if e.keyed && !e.line.SpecialTariff && (primary == nil || e.order < primary.order) {
			primary = e
		}
	}
	if primary == nil {
		for _, e := range entries {
			if e.keyed && !e.line.Exclusion && (primary == nil || e.order < primary.order) {
				primary = e
			}
		}
	}
	if primary == nil {
		return
	}

	primary.line.Primary = true
	primary.line.EnteredValue = line.ForeignValue()
	primary.line.Quantities = line.Quantities
	primary.line.SPI = line.SPI
	primary.line.SPISecondary = line.SPISecondary
	primary.line.PGA = line.PGA
}

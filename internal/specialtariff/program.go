// =============================================================================
// CI Load Engine - Special Tariff Cross-Reference
// =============================================================================
//
// A special (supplemental) tariff is a secondary HTS number layered on top of
// a part's primary classification: section 301 / 232 surtaxes, MTB
// (miscellaneous tariff bill) numbers, exclusions, preference programs.
//
// The cross-reference is a time-windowed table of programs indexed by
// (country of origin, HTS prefix, effective date range). The Resolver answers
// two questions about it:
//
//   ModeAutoInclude - which programs must be added to a base tariff number?
//   ModeAll         - is this (manually keyed) number itself a program, and
//                     with what priority?
//
// =============================================================================

package specialtariff

import (
	"strings"
	"time"
)

// Program types with behavior attached to them.
const (
	Type301 = "301"
	TypeMTB = "MTB"
)

// Program is one row of the special tariff cross-reference.
type Program struct {
	// Country is the ISO country of origin the program applies to. Empty
	// matches every country.
	Country string
	// HTSPrefix is matched against the start of the base tariff number.
	HTSPrefix string
	// SpecialNumber is the supplemental tariff number that gets emitted.
	SpecialNumber string
	ProgramType   string
	// Priority orders the number against the primary tariff. Nil means the
	// resolver's default priority.
	Priority *float64
	// AutoInclude marks programs added automatically to outbound feeds.
	AutoInclude bool

	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

// Active reports whether the program's window contains the given day. Both
// ends are inclusive; a nil end is open.
func (p Program) Active(on time.Time) bool {
	day := dayOf(on)
	if p.EffectiveFrom != nil && day.Before(dayOf(*p.EffectiveFrom)) {
		return false
	}
	if p.EffectiveTo != nil && day.After(dayOf(*p.EffectiveTo)) {
		return false
	}
	return true
}

// SpecialTariff is a resolved program ready to be emitted.
type SpecialTariff struct {
	Number      string
	Priority    float64
	ProgramType string
}

// Is301 reports whether the tariff belongs to a section 301 program.
func (s SpecialTariff) Is301() bool {
	return strings.EqualFold(s.ProgramType, Type301)
}

// Mode selects how a lookup matches the cross-reference.
type Mode int

const (
	// ModeAutoInclude matches programs by base tariff prefix and returns
	// only those flagged for automatic inclusion.
	ModeAutoInclude Mode = iota
	// ModeAll matches programs by their special number and returns every
	// match regardless of the auto-include flag.
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeAutoInclude:
		return "auto_include"
	case ModeAll:
		return "all"
	default:
		return "unknown"
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeNumber keeps only the digits of a tariff number.
func normalizeNumber(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeCountry(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

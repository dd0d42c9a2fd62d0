package specialtariff

import (
	"sort"
	"strings"
	"time"
)

// Resolver answers special tariff lookups against an immutable
// cross-reference. It is safe for concurrent use.
type Resolver struct {
	byCountry       map[string][]Program
	bySpecial       map[string][]Program
	defaultPriority float64
	size            int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDefaultPriority sets the priority given to programs that have none.
func WithDefaultPriority(p float64) Option {
	return func(r *Resolver) {
		r.defaultPriority = p
	}
}

// NewResolver indexes the given programs. Rows without a special number are
// ignored.
func NewResolver(programs []Program, opts ...Option) *Resolver {
	r := &Resolver{
		byCountry: make(map[string][]Program),
		bySpecial: make(map[string][]Program),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, p := range programs {
		p.Country = normalizeCountry(p.Country)
		p.HTSPrefix = normalizeNumber(p.HTSPrefix)
		p.SpecialNumber = normalizeNumber(p.SpecialNumber)
		p.ProgramType = strings.ToUpper(strings.TrimSpace(p.ProgramType))
		if p.SpecialNumber == "" {
			continue
		}
		r.byCountry[p.Country] = append(r.byCountry[p.Country], p)
		r.bySpecial[p.SpecialNumber] = append(r.bySpecial[p.SpecialNumber], p)
		r.size++
	}
	return r
}

// Len returns the number of indexed programs.
func (r *Resolver) Len() int {
	return r.size
}

// DefaultPriority returns the priority used for programs without one.
func (r *Resolver) DefaultPriority() float64 {
	return r.defaultPriority
}

// TariffsFor returns the special tariffs that apply to a tariff number.
//
// PARAMETERS:
//   - country: country of origin of the goods.
//   - hts: base tariff number (ModeAutoInclude) or the keyed number itself (ModeAll).
//   - date: reference date; only programs whose window contains it match.
//   - mode: ModeAutoInclude or ModeAll.
//   - exclude301: drop section 301 programs from the result.
//
// RETURNS:
//   - Matching tariffs de-duplicated by number, highest priority first, then
//     by number.
func (r *Resolver) TariffsFor(country, hts string, date time.Time, mode Mode, exclude301 bool) []SpecialTariff {
	number := normalizeNumber(hts)
	if number == "" {
		return nil
	}
	country = normalizeCountry(country)

	var candidates []Program
	switch mode {
	case ModeAll:
		candidates = r.bySpecial[number]
	default:
		candidates = append(candidates, r.byCountry[country]...)
		if country != "" {
			candidates = append(candidates, r.byCountry[""]...)
		}
	}

	found := make(map[string]SpecialTariff)
	for _, p := range candidates {
		if !r.matches(p, country, number, date, mode) {
			continue
		}
		st := SpecialTariff{Number: p.SpecialNumber, Priority: r.priorityOf(p), ProgramType: p.ProgramType}
		if exclude301 && st.Is301() {
			continue
		}
		if existing, ok := found[st.Number]; !ok || st.Priority > existing.Priority {
			found[st.Number] = st
		}
	}

	out := make([]SpecialTariff, 0, len(found))
	for _, st := range found {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Number < out[j].Number
	})
	return out
}

func (r *Resolver) matches(p Program, country, number string, date time.Time, mode Mode) bool {
	if p.Country != "" && p.Country != country {
		return false
	}
	if !p.Active(date) {
		return false
	}
	if mode == ModeAll {
		return p.SpecialNumber == number
	}
	if !p.AutoInclude {
		return false
	}
	// A base number that is itself the program number is not extended by it.
	if p.SpecialNumber == number {
		return false
	}
	return p.HTSPrefix != "" && strings.HasPrefix(number, p.HTSPrefix)
}

func (r *Resolver) priorityOf(p Program) float64 {
	if p.Priority == nil {
		return r.defaultPriority
	}
	return *p.Priority
}

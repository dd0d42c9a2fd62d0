// =============================================================================
// CI Load Engine - Field Codec
// =============================================================================
//
// The field codec turns raw values into the exact strings the EDI target
// accepts. Every field of the wire format goes through one of:
//
//   String       - ASCII text with a max length and an overflow policy
//   Number       - implied-decimal digits ("12.34" at 2dp -> "1234")
//   Date         - YYYYMMDD (or another layout)
//   TariffNumber - digits only
//   Weight       - grams / pounds normalized to kilograms
//
// Overflow policy is per field: key-like fields (customer number, part number,
// dates) fail, free text truncates.
//
// =============================================================================

package fieldcodec

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// POLICIES
// =============================================================================

// OverflowPolicy decides what happens when text is longer than its field.
type OverflowPolicy int

const (
	// Truncate silently cuts the value to the field length.
	Truncate OverflowPolicy = iota
	// Fail returns a FieldError wrapping ErrOverflow.
	Fail
)

// TextPolicy decides what happens to characters with no ASCII equivalent.
type TextPolicy int

const (
	// TextSubstitute replaces each unrepresentable character with Sentinel.
	// Used for CI lines, where one bad character must not block the feed.
	TextSubstitute TextPolicy = iota
	// TextFail rejects the value. Used for product feeds.
	TextFail
)

// Sentinel is the control character written in place of an unrepresentable
// character under TextSubstitute.
const Sentinel = '\x7f'

// DateYYYYMMDD is the date layout of the wire format.
const DateYYYYMMDD = "20060102"

// Spec declares a text field.
type Spec struct {
	Name     string
	MaxLen   int
	Pad      bool
	Overflow OverflowPolicy
}

// =============================================================================
// CODEC
// =============================================================================

// Codec encodes text under a fixed transliteration policy. A Codec has no
// mutable state and is safe to share.
type Codec struct {
	policy TextPolicy
}

// New returns a codec using the given transliteration policy.
func New(policy TextPolicy) *Codec {
	return &Codec{policy: policy}
}

// Policy returns the codec's transliteration policy.
func (c *Codec) Policy() TextPolicy {
	return c.policy
}

// String encodes text for a field.
//
// PARAMETERS:
//   - value: raw text, any Unicode.
//   - spec:  field name, max length, padding and overflow policy.
//
// RETURNS:
//   - ASCII text no longer than spec.MaxLen (exactly MaxLen when padded).
//   - A *FieldError wrapping ErrOverflow or ErrUntransliterable.
func (c *Codec) String(value string, spec Spec) (string, error) {
	text, err := c.Transliterate(value)
	if err != nil {
		return "", &FieldError{Field: spec.Name, Value: value, Err: err}
	}
	text = strings.TrimSpace(text)

	if spec.MaxLen > 0 && len(text) > spec.MaxLen {
		if spec.Overflow == Fail {
			return "", &FieldError{Field: spec.Name, Value: value, MaxLen: spec.MaxLen, Err: ErrOverflow}
		}
		text = strings.TrimRight(text[:spec.MaxLen], " ")
	}

	if spec.Pad {
		text = PadRight(text, spec.MaxLen)
	}
	return text, nil
}

// Transliterate maps text to ASCII. Line breaks and other control characters
// become spaces. Characters that survive neither the substitution table nor
// Unicode decomposition are replaced with Sentinel or rejected, depending on
// the policy.
func (c *Codec) Transliterate(value string) (string, error) {
	var b strings.Builder
	for _, r := range value {
		if sub, ok := substitutions[r]; ok {
			b.WriteString(sub)
			continue
		}
		b.WriteRune(r)
	}

	folded, _, err := transform.String(newFolder(), b.String())
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r < 0x20 || r == '\u00a0':
			out.WriteByte(' ')
		case r < 0x7f:
			out.WriteRune(r)
		default:
			if c.policy == TextFail {
				return "", ErrUntransliterable
			}
			out.WriteByte(Sentinel)
		}
	}
	return out.String(), nil
}

// newFolder strips combining marks after canonical decomposition, so "é"
// becomes "e". Transformers carry state, so one is built per call.
func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// substitutions covers characters that do not decompose to ASCII.
var substitutions = map[rune]string{
	'ß': "ss",
	'Æ': "AE",
	'æ': "ae",
	'Œ': "OE",
	'œ': "oe",
	'Ø': "O",
	'ø': "o",
	'Ł': "L",
	'ł': "l",
	'Đ': "D",
	'đ': "d",
	'Þ': "TH",
	'þ': "th",
	'ı': "i",
	'‘': "'",
	'’': "'",
	'‚': ",",
	'“': "\"",
	'”': "\"",
	'„': "\"",
	'–': "-",
	'—': "-",
	'…': "...",
	'×': "x",
	'°': "DEG",
	'½': "1/2",
	'¼': "1/4",
	'¾': "3/4",
	'©': "(C)",
	'®': "(R)",
	'™': "TM",
	'€': "EUR",
}

// =============================================================================
// DATES AND TARIFF NUMBERS
// =============================================================================

// Date formats an optional date. A nil or zero date encodes as "".
func Date(t *time.Time, layout string) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// TariffNumber strips everything but digits from an HTS number, so
// "6402.99.3165" becomes "6402993165".
func TariffNumber(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// PADDING
// =============================================================================

// PadRight left-justifies text in a field of the given width.
func PadRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// PadNumber right-justifies implied-decimal digits with leading zeros,
// keeping a minus sign in the first position.
func PadNumber(s string, width int) string {
	if len(s) >= width {
		return s
	}
	if strings.HasPrefix(s, "-") {
		return "-" + strings.Repeat("0", width-len(s)) + s[1:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

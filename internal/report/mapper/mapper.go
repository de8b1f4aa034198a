// Package mapper holds the pure field-level rules every bureau decoder applies
// when turning raw vendor values into canonical report fields: date
// normalization, numeric coercion, single-or-array groups, sentinels and
// vendor terminology.
//
// Nothing here returns an error or panics; bad input degrades to a sentinel.
package mapper

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
)

// Sentinels substituted for missing source data.
const (
	// NotReported fills narrative text fields.
	NotReported = "Not Reported"
	// Unavailable fills dates and numeric fields shown as text.
	Unavailable = "---"
	// NoAmount fills tabular amount cells.
	NoAmount = "-"
)

var (
	isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	localDate     = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
)

// NormalizeDate rewrites DD-MM-YYYY to YYYY-MM-DD, truncates ISO timestamps to
// the date, passes any other text through trimmed, and returns Unavailable for
// blank input. It is idempotent.
func NormalizeDate(s string) string {
	t := strings.TrimSpace(s)
	switch {
	case t == "":
		return Unavailable
	case isoDatePrefix.MatchString(t):
		return t[:10]
	}
	if m := localDate.FindStringSubmatch(t); m != nil {
		return m[3] + "-" + m[2] + "-" + m[1]
	}
	return t
}

// OptionalDate is NormalizeDate for fields that stay null when absent.
func OptionalDate(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d := NormalizeDate(s)
	return &d
}

// DateOf normalizes a raw date node.
func DateOf(r gjson.Result) string {
	return NormalizeDate(Scalar(r))
}

// OptionalDateOf normalizes a raw date node, nil when absent.
func OptionalDateOf(r gjson.Result) *string {
	return OptionalDate(Scalar(r))
}

// ParseNumber parses a decimal string with optional thousands separators.
// Returns nil for blank, unparsable or non-finite input.
func ParseNumber(s string) *float64 {
	t := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if t == "" {
		return nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// Number coerces a raw node: JSON numbers are taken as-is, strings are parsed.
func Number(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Num
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		return &v
	case gjson.String:
		return ParseNumber(r.Str)
	default:
		return nil
	}
}

// Int coerces a raw node to an integer score or count, nil when absent.
func Int(r gjson.Result) *int {
	v := Number(r)
	if v == nil {
		return nil
	}
	i := int(math.Round(*v))
	return &i
}

// Seq normalizes a repeating group that vendors collapse to a bare object when
// it has a single member. Missing or null yields an empty slice.
func Seq(r gjson.Result) []gjson.Result {
	return r.Array()
}

// Text returns the trimmed string value or NotReported. Objects and arrays are
// not text.
func Text(r gjson.Result) string {
	return TextOr(Scalar(r))
}

// TextOr returns the first non-blank candidate, trimmed, or NotReported.
func TextOr(candidates ...string) string {
	for _, c := range candidates {
		if t := strings.TrimSpace(c); t != "" {
			return t
		}
	}
	return NotReported
}

// FormatAmount renders an amount for tabular display, NoAmount when nil.
func FormatAmount(v *float64) string {
	if v == nil {
		return NoAmount
	}
	return humanize.Commaf(*v)
}

// Amount coerces and formats a raw amount node.
func Amount(r gjson.Result) string {
	return FormatAmount(Number(r))
}

// Sum adds the non-nil values.
func Sum(values []*float64) float64 {
	var total float64
	for _, v := range values {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Scalar returns the raw text of a string, number or boolean node and "" for
// anything else, so objects never leak into text fields as JSON.
func Scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	case gjson.True, gjson.False:
		return r.Raw
	default:
		return ""
	}
}

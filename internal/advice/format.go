package advice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reAmount   = regexp.MustCompile(`(?:A\$|\$)[ \t]*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`)
	reQuantity = regexp.MustCompile(`(?:^|[^\p{L}\p{N}.,])(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)[ \t]*` +
		`((?i:metric[ \t]+tonnes?|tonnes?|tons?|mt|t|kgs?|kilograms?|bushels?|bu)\b)?`)
	reMinMax    = regexp.MustCompile(`(?i)\bMIN[ \t]*/[ \t]*MAX\b`)
	reSpaceRun  = regexp.MustCompile(`[ \t]+`)
	reBlankRuns = regexp.MustCompile(`\n(?:[ \t]*\n)+`)
	reLineEdges = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

// formatRule rewrites one cleaned value; it returns false when the value has
// no recognizable shape and should stay as captured
type formatRule func(value string) (string, bool)

// Formatter canonicalizes captured values. Format is idempotent.
type Formatter struct {
	rules map[Field]formatRule
}

// NewFormatter returns a formatter with the standard field rules
func NewFormatter() *Formatter {
	return &Formatter{
		rules: map[Field]formatRule{
			FieldQuantity:  formatQuantity,
			FieldPrice:     formatPrice,
			FieldBrokerage: formatBrokerage,
			FieldDelivery:  formatDelivery,
		},
	}
}

// Format returns a new FieldMap with every value cleaned and the typed
// fields rewritten to their canonical form
func (f *Formatter) Format(m FieldMap) FieldMap {
	values := make(map[Field]string, len(canonicalFields))
	for _, field := range canonicalFields {
		values[field] = f.FormatValue(field, m.Get(field))
	}
	return NewFieldMap(values)
}

// FormatValue formats a single field value
func (f *Formatter) FormatValue(field Field, value string) string {
	value = cleanValue(value)
	if value == "" {
		return ""
	}
	if rule, ok := f.rules[field]; ok {
		if out, ok := rule(value); ok {
			return out
		}
	}
	return value
}

func cleanValue(s string) string {
	s = reSpaceRun.ReplaceAllString(s, " ")
	s = reLineEdges.ReplaceAllString(s, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstAmount(value string) (float64, bool) {
	m := reAmount.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	return parseAmount(m[1])
}

func formatPrice(value string) (string, bool) {
	v, ok := firstAmount(value)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("$%.2f/mt", v), true
}

func formatBrokerage(value string) (string, bool) {
	v, ok := firstAmount(value)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("A$%.2f/MT (EXCL GST)", v), true
}

func formatQuantity(value string) (string, bool) {
	first, _, _ := strings.Cut(value, "\n")
	m := reQuantity.FindStringSubmatch(first)
	if m == nil {
		return "", false
	}
	v, ok := parseAmount(m[1])
	if !ok {
		return "", false
	}
	out := fmt.Sprintf("%.2f%s", v, canonicalUnit(m[2]))
	if reMinMax.MatchString(value) {
		out += " (MIN/MAX)"
	}
	return out, true
}

func canonicalUnit(unit string) string {
	u := strings.ToLower(strings.Join(strings.Fields(unit), " "))
	switch u {
	case "":
		return ""
	case "mt", "t", "ton", "tons", "tonne", "tonnes", "metric tonne", "metric tonnes":
		return "mt"
	case "kg", "kgs", "kilogram", "kilograms":
		return "kg"
	case "bu", "bushel", "bushels":
		return "bu"
	default:
		return u
	}
}

// formatDelivery reads a start and end date, falling back to month and year
func formatDelivery(value string) (string, bool) {
	var days []string
	for _, token := range reFullDate.FindAllString(value, -1) {
		if t, ok := ParseDate(token); ok {
			days = append(days, t.Format(DateLayout))
		}
		if len(days) == 2 {
			return days[0] + " - " + days[1], true
		}
	}

	var months []string
	for _, token := range reMonthYear.FindAllString(value, -1) {
		if t, ok := parseMonthYear(token); ok {
			months = append(months, t.Format("01/2006"))
		}
		if len(months) == 2 {
			return months[0] + " - " + months[1], true
		}
	}
	return "", false
}

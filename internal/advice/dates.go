package advice

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the normalized output form of every date
const DateLayout = "02/01/2006"

const monthPattern = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|` +
	`sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

const ordinalPattern = `(?:st|nd|rd|th)?`

var (
	// any supported date shape, leftmost match wins
	reDateToken = regexp.MustCompile(`(?i)\b(?:` +
		`\d{4}-\d{1,2}-\d{1,2}` +
		`|\d{1,2}[/.-]\d{1,2}[/.-](?:\d{4}|\d{2})` +
		`|\d{1,2}` + ordinalPattern + `\s+` + monthPattern + `\.?,?\s+\d{4}` +
		`|` + monthPattern + `\.?\s+\d{1,2}` + ordinalPattern + `,?\s+\d{4}` +
		`)\b`)

	// calendar dates spelled with a month name
	reFullDate = regexp.MustCompile(`(?i)\b(?:` +
		`\d{1,2}` + ordinalPattern + `\s+` + monthPattern + `\.?,?\s+\d{4}` +
		`|` + monthPattern + `\.?\s+\d{1,2}` + ordinalPattern + `,?\s+\d{4}` +
		`)\b`)

	reMonthYear = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?,?\s+\d{4}\b`)

	reOrdinal    = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
	reSeptember  = regexp.MustCompile(`(?i)\bsept\b`)
	reDatePunct  = regexp.MustCompile(`[,.](\s|$)`)
	reDateSpaces = regexp.MustCompile(`\s+`)
)

// dateLayouts are tried in order; numeric forms are day first
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
}

var monthYearLayouts = []string{"January 2006", "Jan 2006"}

// cleanDateToken strips ordinals and decoration so that time.Parse can read it
func cleanDateToken(token string) string {
	s := reOrdinal.ReplaceAllString(token, "$1")
	s = reSeptember.ReplaceAllString(s, "Sep")
	s = reDatePunct.ReplaceAllString(s, "$1")
	s = reDateSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseDate parses a single date token against the supported layouts
func ParseDate(token string) (time.Time, bool) {
	s := cleanDateToken(token)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FindDate returns the first date-shaped token in text
func FindDate(text string) (string, bool) {
	token := reDateToken.FindString(text)
	return token, token != ""
}

// NormalizeDate reformats the first date found in value to DD/MM/YYYY.
// Values without a parsable date are returned unchanged.
func NormalizeDate(value string) string {
	token, ok := FindDate(value)
	if !ok {
		return value
	}
	t, ok := ParseDate(token)
	if !ok {
		return value
	}
	return t.Format(DateLayout)
}

func parseMonthYear(token string) (time.Time, bool) {
	s := cleanDateToken(token)
	for _, layout := range monthYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package advice

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Document is normalized, line-oriented broker advice text
type Document string

// String returns the document text
func (d Document) String() string {
	return string(d)
}

// Lines splits the document into lines
func (d Document) Lines() []string {
	if d == "" {
		return nil
	}
	return strings.Split(string(d), "\n")
}

var punctuationReplacer = strings.NewReplacer(
	// non-breaking and fixed-width spaces
	"\u00a0", " ", "\u2007", " ", "\u202f", " ", "\u2060", "",
	"\ufeff", "", "\u200b", "", "\v", " ",
	"\u2028", "\n", "\u2029", "\n", "\u0085", "\n",
	// colon variants
	"\uff1a", ":", "\ufe13", ":", "\ufe55", ":", "\u2236", ":", "\ua789", ":", "\u02d0", ":",
	// dash variants
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2015", "-",
	"\u2212", "-", "\ufe58", "-", "\ufe63", "-", "\uff0d", "-",
	// curly quotes
	"\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`,
)

var (
	reLineEnd      = regexp.MustCompile(`\r\n?`)
	reBoldColon    = regexp.MustCompile(`\*{2,}([ \t]*:)`)
	reBoldMarker   = regexp.MustCompile(`\*{2,}`)
	reHorizontalWS = regexp.MustCompile(`[^\S\n]+`)
	reBreakWS      = regexp.MustCompile(`\s*\n\s*`)
)

// Normalize joins page texts and canonicalizes whitespace and punctuation.
// It never fails and Normalize of an already normalized document is a no-op.
func Normalize(pages []string) Document {
	s := strings.Join(pages, "\n")
	s = reLineEnd.ReplaceAllString(s, "\n")
	s = norm.NFKC.String(s)
	s = punctuationReplacer.Replace(s)
	// pseudo-bold label blocks run together without this
	s = reBoldColon.ReplaceAllString(s, "$1")
	s = reBoldMarker.ReplaceAllString(s, "\n")
	s = reHorizontalWS.ReplaceAllString(s, " ")
	s = reBreakWS.ReplaceAllString(s, "\n")
	return Document(strings.TrimSpace(s))
}

// NormalizeText is Normalize for a single block of text
func NormalizeText(text string) Document {
	return Normalize([]string{text})
}

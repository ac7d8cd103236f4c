package advice

import (
	"regexp"
	"sort"
	"strings"
)

// CaptureOptions tunes the field capture engine
type CaptureOptions struct {
	// ColonRequired demands a colon after a field label
	ColonRequired bool
	// DateScanLines bounds the bare-date fallback scan
	DateScanLines int
}

// DefaultCaptureOptions returns the calibrated capture settings
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		ColonRequired: true,
		DateScanLines: 120,
	}
}

// Capturer locates field labels and captures the text that follows them
type Capturer struct {
	taxonomy  *Taxonomy
	opts      CaptureOptions
	passes    map[Field][]*regexp.Regexp
	nextLabel *regexp.Regexp
}

// NewCapturer compiles the label patterns of a taxonomy
func NewCapturer(t *Taxonomy, opts CaptureOptions) *Capturer {
	if opts.DateScanLines <= 0 {
		opts.DateScanLines = DefaultCaptureOptions().DateScanLines
	}

	c := &Capturer{
		taxonomy:  t,
		opts:      opts,
		passes:    make(map[Field][]*regexp.Regexp),
		nextLabel: compileLabelStart(t.AllLabels()),
	}
	for _, f := range canonicalFields {
		labels := t.Labels(f)
		if len(labels) == 0 {
			continue
		}
		c.passes[f] = compileFieldPasses(labels, opts.ColonRequired)
	}
	return c
}

// labelAlternation builds a case-insensitive alternation, longest label first
func labelAlternation(labels []string) string {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	quoted := make([]string, len(sorted))
	for i, l := range sorted {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(l), " ", `[ \t]+`)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

// compileLabelStart matches any label at the start of a line, optionally
// followed by a colon. The label must end at a colon, a blank or the end of
// the line. A nil result means there are no labels.
func compileLabelStart(labels []string) *regexp.Regexp {
	if len(labels) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?im)^[ \t]*` + labelAlternation(labels) + `(?:[ \t]*:|[ \t]|$)`)
}

// compileFieldPasses returns the ordered search passes for one field: labels
// at the start of a line first, then labels anywhere after a non-word boundary.
func compileFieldPasses(labels []string, colonRequired bool) []*regexp.Regexp {
	alt := labelAlternation(labels)
	if !colonRequired {
		return []*regexp.Regexp{
			regexp.MustCompile(`(?im)^[ \t]*` + alt + `\b[ \t]*:?`),
		}
	}
	return []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t]*` + alt + `[ \t]*:`),
		regexp.MustCompile(`(?im)(?:^|[^\p{L}\p{N}])` + alt + `[ \t]*:`),
	}
}

// labelIndex holds the start offsets of every label line in a document
type labelIndex []int

func (c *Capturer) index(doc Document) labelIndex {
	if c.nextLabel == nil {
		return nil
	}
	matches := c.nextLabel.FindAllStringIndex(string(doc), -1)
	idx := make(labelIndex, len(matches))
	for i, m := range matches {
		idx[i] = m[0]
	}
	return idx
}

// next returns the first label start at or after pos, or end
func (idx labelIndex) next(pos, end int) int {
	i := sort.SearchInts(idx, pos)
	if i < len(idx) {
		return idx[i]
	}
	return end
}

// Capture returns the raw value of one field, or "" when no label is found
func (c *Capturer) Capture(doc Document, f Field) string {
	return c.capture(doc, c.index(doc), f)
}

// CaptureAll captures every field that has labels. Party identifier fields
// are left empty; the party resolver fills them.
func (c *Capturer) CaptureAll(doc Document) FieldMap {
	idx := c.index(doc)
	values := make(map[Field]string, len(canonicalFields))
	for _, f := range canonicalFields {
		values[f] = c.capture(doc, idx, f)
	}
	return NewFieldMap(values)
}

func (c *Capturer) capture(doc Document, idx labelIndex, f Field) string {
	value := c.labeled(doc, idx, f)
	if f != FieldDate {
		return value
	}
	if value != "" {
		return NormalizeDate(value)
	}
	return c.bareDate(doc)
}

func (c *Capturer) labeled(doc Document, idx labelIndex, f Field) string {
	text := string(doc)
	for _, re := range c.passes[f] {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := loc[1]
		end := idx.next(start, len(text))
		return strings.TrimSpace(text[start:end])
	}
	return ""
}

// bareDate scans the head of the document for an unlabeled date
func (c *Capturer) bareDate(doc Document) string {
	lines := doc.Lines()
	if len(lines) > c.opts.DateScanLines {
		lines = lines[:c.opts.DateScanLines]
	}
	token, ok := FindDate(strings.Join(lines, "\n"))
	if !ok {
		return ""
	}
	if t, ok := ParseDate(token); ok {
		return t.Format(DateLayout)
	}
	return token
}

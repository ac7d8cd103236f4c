package advice

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"
)

// PartyRole is the side of the contract a party was labeled with
type PartyRole int

const (
	RoleUnknown PartyRole = iota
	RoleBuyer
	RoleSeller
)

// String returns the role name
func (r PartyRole) String() string {
	switch r {
	case RoleBuyer:
		return "buyer"
	case RoleSeller:
		return "seller"
	default:
		return "unknown"
	}
}

// Party is a contracting company found in a document. ID is an 11 digit
// registration number or empty; Name has at least two tokens or is empty.
type Party struct {
	Name        string    `json:"name"`
	ID          string    `json:"id"`
	SecondaryID string    `json:"secondary_id,omitempty"`
	Offset      int       `json:"offset"`
	Role        PartyRole `json:"-"`
	Source      string    `json:"source"`

	lookback string
}

// Parties is the resolved buyer and seller. Either may be nil.
type Parties struct {
	Buyer  *Party `json:"buyer,omitempty"`
	Seller *Party `json:"seller,omitempty"`
}

// List returns the resolved parties in [buyer, seller] order
func (p Parties) List() []Party {
	var out []Party
	if p.Buyer != nil {
		out = append(out, *p.Buyer)
	}
	if p.Seller != nil {
		out = append(out, *p.Seller)
	}
	return out
}

// PartyOptions tunes the identifier-proximity heuristics
type PartyOptions struct {
	// MinOffset skips identifiers in the issuing broker's letterhead
	MinOffset int
	// LookbackWindow is how many characters before an identifier are searched
	LookbackWindow int
	// MaxPrefixTokens bounds the words kept before a company suffix
	MaxPrefixTokens int
	// FallbackNameTokens is the name length used when no suffix is present
	FallbackNameTokens int
}

// DefaultPartyOptions returns the calibrated resolver settings
func DefaultPartyOptions() PartyOptions {
	return PartyOptions{
		MinOffset:          300,
		LookbackWindow:     280,
		MaxPrefixTokens:    3,
		FallbackNameTokens: 4,
	}
}

const (
	sourceLabel     = "label"
	sourceProximity = "proximity"
)

var (
	reABN     = regexp.MustCompile(`(?i)\bA\.?B\.?N\b\.?(?:[ \t]*(?:No\.?|Number|#))?[ \t]*:?[ \t]*(\d{2}[ \t]?\d{3}[ \t]?\d{3}[ \t]?\d{3})\b`)
	reACN     = regexp.MustCompile(`(?i)\bA\.?C\.?N\b\.?(?:[ \t]*(?:No\.?|Number|#))?[ \t]*:?[ \t]*(\d{3}[ \t]?\d{3}[ \t]?\d{3})\b`)
	reBareABN = regexp.MustCompile(`\b\d{2}[ \t]?\d{3}[ \t]?\d{3}[ \t]?\d{3}\b`)
	reIDCut   = regexp.MustCompile(`(?i)\bA\.?[BC]\.?N\b`)
	reContact = regexp.MustCompile(`(?i)\bcontact\b`)
	reNameTag = regexp.MustCompile(`(?i)^(?:company|name|entity|trading as)[ \t]*:[ \t]*`)
)

// partyStrategy is one layer of the resolver; it returns the candidates it
// can see, which may be incomplete
type partyStrategy struct {
	name string
	find func(Document) []Party
}

// nameChooser picks a party name from text; ok is false when it has no answer
type nameChooser func(lines []string) (string, bool)

// PartyResolver finds buyer and seller names and identifiers
type PartyResolver struct {
	taxonomy   *Taxonomy
	opts       PartyOptions
	strategies []partyStrategy

	buyerLabel  *regexp.Regexp
	sellerLabel *regexp.Regexp
	anyLabel    *regexp.Regexp
	addressIdx  *regexp.Regexp
	fragment    *regexp.Regexp
	blockNames  []nameChooser
}

// NewPartyResolver builds a resolver over a taxonomy
func NewPartyResolver(t *Taxonomy, opts PartyOptions) *PartyResolver {
	def := DefaultPartyOptions()
	if opts.LookbackWindow <= 0 {
		opts.LookbackWindow = def.LookbackWindow
	}
	if opts.MinOffset < 0 {
		opts.MinOffset = 0
	}
	if opts.MaxPrefixTokens <= 0 {
		opts.MaxPrefixTokens = def.MaxPrefixTokens
	}
	if opts.FallbackNameTokens < 2 {
		opts.FallbackNameTokens = def.FallbackNameTokens
	}

	r := &PartyResolver{
		taxonomy:    t,
		opts:        opts,
		buyerLabel:  compileLabelStart(t.Labels(FieldBuyer)),
		sellerLabel: compileLabelStart(t.Labels(FieldSeller)),
		anyLabel:    compileLabelStart(t.AllLabels()),
	}
	if ind := t.AddressIndicators(); len(ind) > 0 {
		r.addressIdx = regexp.MustCompile(`(?i)\b` + labelAlternation(ind) + `\b`)
	}
	if frags := t.LineFragments(); len(frags) > 0 {
		r.fragment = regexp.MustCompile(`(?i)^` + labelAlternation(frags) + `\b`)
	}
	r.blockNames = []nameChooser{r.suffixLine, r.plainLine}
	r.strategies = []partyStrategy{
		{name: sourceLabel, find: r.labeledBlocks},
		{name: sourceProximity, find: r.identifierProximity},
	}
	return r
}

// Resolve runs the strategies in order until two identified parties are
// known, then assigns buyer and seller. A labeled party that never gains an
// identifier is dropped.
func (r *PartyResolver) Resolve(doc Document) Parties {
	var candidates []Party
	for _, s := range r.strategies {
		candidates = mergeParties(candidates, s.find(doc))
		if identified(candidates) >= 2 {
			break
		}
	}
	candidates = slices.DeleteFunc(candidates, func(p Party) bool { return p.ID == "" })
	for i := range candidates {
		candidates[i].lookback = ""
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Offset < candidates[j].Offset
	})
	return assignParties(candidates)
}

// mergeParties appends new candidates whose identifiers are not yet known.
// A labeled candidate still missing an identifier takes the identifier whose
// lookback text mentions its name, keeping its own role and name.
func mergeParties(known, found []Party) []Party {
	for _, p := range found {
		if p.ID == "" {
			if p.Name != "" {
				known = append(known, p)
			}
			continue
		}
		if slices.ContainsFunc(known, func(k Party) bool { return k.ID == p.ID }) {
			continue
		}
		if i := nearestMention(known, p.lookback); i >= 0 {
			known[i].ID = p.ID
			if known[i].SecondaryID == "" {
				known[i].SecondaryID = p.SecondaryID
			}
			continue
		}
		known = append(known, p)
	}
	return known
}

func identified(parties []Party) int {
	n := 0
	for _, p := range parties {
		if p.ID != "" {
			n++
		}
	}
	return n
}

// nearestMention returns the unidentified candidate whose name appears
// closest to the end of text, ignoring case and spacing, or -1
func nearestMention(known []Party, text string) int {
	text = foldSpace(text)
	best, bestAt := -1, -1
	for i, k := range known {
		if k.ID != "" || k.Name == "" {
			continue
		}
		if at := strings.LastIndex(text, foldSpace(k.Name)); at > bestAt {
			best, bestAt = i, at
		}
	}
	return best
}

func foldSpace(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// assignParties applies labeled roles first, then document position
func assignParties(sorted []Party) Parties {
	var out Parties
	var rest []Party
	for i := range sorted {
		p := sorted[i]
		switch {
		case p.Role == RoleBuyer && out.Buyer == nil:
			out.Buyer = &p
		case p.Role == RoleSeller && out.Seller == nil:
			out.Seller = &p
		default:
			rest = append(rest, p)
		}
	}
	if len(rest) == 0 {
		return out
	}
	if out.Buyer == nil {
		b := rest[0]
		out.Buyer = &b
		rest = rest[1:]
	}
	if out.Seller == nil && len(rest) > 0 {
		s := rest[len(rest)-1]
		out.Seller = &s
	}
	return out
}

// labeledBlocks reads "Buyer:" and "Seller:" blocks
func (r *PartyResolver) labeledBlocks(doc Document) []Party {
	var out []Party
	if p, ok := r.labeledBlock(doc, r.buyerLabel, RoleBuyer); ok {
		out = append(out, p)
	}
	if p, ok := r.labeledBlock(doc, r.sellerLabel, RoleSeller); ok {
		out = append(out, p)
	}
	return out
}

func (r *PartyResolver) labeledBlock(doc Document, label *regexp.Regexp, role PartyRole) (Party, bool) {
	if label == nil {
		return Party{}, false
	}
	text := string(doc)
	loc := label.FindStringIndex(text)
	if loc == nil {
		return Party{}, false
	}
	start, end := loc[1], len(text)
	for _, next := range r.anyLabel.FindAllStringIndex(text, -1) {
		if next[0] >= start {
			end = next[0]
			break
		}
	}
	block := text[start:end]

	p := Party{Role: role, Source: sourceLabel, Offset: loc[0]}
	if m := reABN.FindStringSubmatchIndex(block); m != nil {
		p.ID = digitsOnly(block[m[2]:m[3]])
		p.Offset = start + m[0]
	} else if m := reBareABN.FindStringIndex(block); m != nil {
		p.ID = digitsOnly(block[m[0]:m[1]])
		p.Offset = start + m[0]
	}
	if m := reACN.FindStringSubmatch(block); m != nil {
		p.SecondaryID = digitsOnly(m[1])
	}

	lines := blockLines(block)
	for _, choose := range r.blockNames {
		if name, ok := choose(lines); ok {
			p.Name = name
			break
		}
	}
	if p.ID == "" && p.Name == "" {
		return Party{}, false
	}
	return p, true
}

func blockLines(block string) []string {
	var lines []string
	for _, l := range strings.Split(block, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// suffixLine picks the first line carrying a company suffix
func (r *PartyResolver) suffixLine(lines []string) (string, bool) {
	for _, l := range lines {
		if r.isFragment(l) {
			continue
		}
		name := cleanNameLine(l)
		tokens := strings.Fields(name)
		for _, tok := range tokens {
			if r.taxonomy.IsCompanySuffix(tok) && len(tokens) >= 2 {
				return name, true
			}
		}
	}
	return "", false
}

// plainLine picks the first line that is not a contact or address fragment
func (r *PartyResolver) plainLine(lines []string) (string, bool) {
	for _, l := range lines {
		if r.isFragment(l) || !hasLetter(l) || startsWithDigit(l) || strings.Contains(l, "@") {
			continue
		}
		name := cleanNameLine(l)
		if len(strings.Fields(name)) >= 2 {
			return name, true
		}
	}
	return "", false
}

func (r *PartyResolver) isFragment(line string) bool {
	return r.fragment != nil && r.fragment.MatchString(line)
}

// cleanNameLine drops name tags and anything from an identifier marker on
func cleanNameLine(line string) string {
	line = reNameTag.ReplaceAllString(line, "")
	if loc := reIDCut.FindStringIndex(line); loc != nil {
		line = line[:loc[0]]
	}
	line = strings.Join(strings.Fields(line), " ")
	return strings.Trim(line, " ,;:-")
}

// identifierProximity names each identifier from the text just before it
func (r *PartyResolver) identifierProximity(doc Document) []Party {
	text := string(doc)
	var out []Party
	for _, m := range reABN.FindAllStringSubmatchIndex(text, -1) {
		if m[0] < r.opts.MinOffset {
			continue
		}
		from := max(0, m[0]-r.opts.LookbackWindow)
		window := text[from:m[0]]
		// another party's identifier bounds the window
		if prev := reABN.FindAllStringIndex(window, -1); len(prev) > 0 {
			window = window[prev[len(prev)-1][1]:]
		}

		p := Party{
			ID:       digitsOnly(text[m[2]:m[3]]),
			Offset:   m[0],
			Source:   sourceProximity,
			lookback: window,
		}
		if acn := reACN.FindAllStringSubmatch(window, -1); len(acn) > 0 {
			p.SecondaryID = digitsOnly(acn[len(acn)-1][1])
		}
		for _, seg := range r.lookbackSegments(window) {
			if name, ok := r.uppercaseName(seg.text, seg.suffixOnly); ok {
				p.Name = name
				break
			}
		}
		out = append(out, p)
	}
	return out
}

// lookbackSegment is one piece of a lookback window. Only runs holding a
// company suffix are named from a suffixOnly segment.
type lookbackSegment struct {
	text       string
	suffixOnly bool
}

// lookbackSegments splits a lookback window into the pieces tried for a
// name, most specific first: the lines after the last Contact line, the rest
// of that line (suffixOnly), then the text before "Contact".
func (r *PartyResolver) lookbackSegments(window string) []lookbackSegment {
	var segs []lookbackSegment
	hits := reContact.FindAllStringIndex(window, -1)
	if len(hits) == 0 {
		return r.splitAtAddress(segs, window)
	}

	last := hits[len(hits)-1]
	rest := window[last[1]:]
	contactLine, after := rest, ""
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		contactLine, after = rest[:nl], rest[nl+1:]
	}
	if strings.TrimSpace(after) != "" {
		segs = r.splitAtAddress(segs, after)
	}
	segs = append(segs, lookbackSegment{text: contactLine, suffixOnly: true})
	if pre := window[:last[0]]; pre != "" {
		segs = append(segs, lookbackSegment{text: pre})
	}
	return segs
}

// splitAtAddress puts the text after the last address indicator ahead of the
// text before it
func (r *PartyResolver) splitAtAddress(segs []lookbackSegment, text string) []lookbackSegment {
	if r.addressIdx != nil {
		if hits := r.addressIdx.FindAllStringIndex(text, -1); len(hits) > 0 {
			last := hits[len(hits)-1]
			return append(segs, lookbackSegment{text: text[last[1]:]}, lookbackSegment{text: text[:last[0]]})
		}
	}
	return append(segs, lookbackSegment{text: text})
}

// uppercaseName picks the rightmost usable run of upper-case tokens
func (r *PartyResolver) uppercaseName(seg string, suffixOnly bool) (string, bool) {
	runs := r.uppercaseRuns(seg)
	for i := len(runs) - 1; i >= 0; i-- {
		if suffixOnly && !slices.ContainsFunc(runs[i], r.taxonomy.IsCompanySuffix) {
			continue
		}
		if name := r.nameFromRun(runs[i]); name != "" {
			return name, true
		}
	}
	return "", false
}

func (r *PartyResolver) uppercaseRuns(seg string) [][]string {
	var runs [][]string
	for _, line := range strings.Split(seg, "\n") {
		var run []string
		flush := func() {
			run = trimConnectors(run)
			if len(run) > 0 {
				runs = append(runs, run)
			}
			run = nil
		}
		for _, raw := range strings.Fields(line) {
			tok := strings.Trim(raw, `,;:()"'`)
			if r.nameToken(tok) {
				run = append(run, tok)
				continue
			}
			flush()
		}
		flush()
	}
	return runs
}

func (r *PartyResolver) nameToken(tok string) bool {
	if tok == "&" {
		return true
	}
	if tok == "" || r.taxonomy.IsAddressWord(tok) {
		return false
	}
	if r.taxonomy.IsCompanySuffix(tok) {
		return true
	}
	letters := 0
	for _, c := range tok {
		switch {
		case unicode.IsUpper(c):
			letters++
		case unicode.IsLetter(c), unicode.IsDigit(c):
			return false
		case strings.ContainsRune("&'.-/", c):
		default:
			return false
		}
	}
	return letters > 0
}

func trimConnectors(run []string) []string {
	for len(run) > 0 && run[0] == "&" {
		run = run[1:]
	}
	for len(run) > 0 && run[len(run)-1] == "&" {
		run = run[:len(run)-1]
	}
	return run
}

// nameFromRun prefers the phrase ending at a company suffix, else the tail
// of the run. Names shorter than two tokens or made only of suffixes are
// rejected.
func (r *PartyResolver) nameFromRun(run []string) string {
	last := -1
	for i, tok := range run {
		if r.taxonomy.IsCompanySuffix(tok) {
			last = i
		}
	}

	var name []string
	if last >= 0 {
		first := last
		for first > 0 && r.taxonomy.IsCompanySuffix(run[first-1]) {
			first--
		}
		first = max(0, first-r.opts.MaxPrefixTokens)
		name = run[first : last+1]
	} else {
		name = run[max(0, len(run)-r.opts.FallbackNameTokens):]
	}
	if len(name) < 2 || !slices.ContainsFunc(name, r.distinctiveToken) {
		return ""
	}
	return strings.Join(name, " ")
}

// distinctiveToken reports whether a name token is more than a suffix or
// connector
func (r *PartyResolver) distinctiveToken(tok string) bool {
	return tok != "&" && !r.taxonomy.IsCompanySuffix(tok)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

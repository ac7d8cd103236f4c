package advice

import (
	"log/slog"

	"github.com/google/uuid"
)

// Options groups the tunable heuristics of an extraction pass
type Options struct {
	Capture CaptureOptions
	Party   PartyOptions
}

// DefaultOptions returns the calibrated defaults
func DefaultOptions() Options {
	return Options{
		Capture: DefaultCaptureOptions(),
		Party:   DefaultPartyOptions(),
	}
}

// Result is the outcome of one extraction pass
type Result struct {
	ID       string   `json:"id"`
	Parties  Parties  `json:"parties"`
	Raw      FieldMap `json:"raw"`
	Fields   FieldMap `json:"fields"`
	Document Document `json:"-"`
}

// Extractor runs the normalize, resolve, capture and format stages. It holds
// only immutable data and is safe for concurrent use.
type Extractor struct {
	taxonomy  *Taxonomy
	resolver  *PartyResolver
	capturer  *Capturer
	formatter *Formatter
	logger    *slog.Logger
}

// NewExtractor builds an extractor. A nil taxonomy selects the embedded
// default and a nil logger selects slog.Default().
func NewExtractor(t *Taxonomy, opts Options, logger *slog.Logger) *Extractor {
	if t == nil {
		t = DefaultTaxonomy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		taxonomy:  t,
		resolver:  NewPartyResolver(t, opts.Party),
		capturer:  NewCapturer(t, opts.Capture),
		formatter: NewFormatter(),
		logger:    logger,
	}
}

// Taxonomy returns the taxonomy the extractor was built with
func (e *Extractor) Taxonomy() *Taxonomy {
	return e.taxonomy
}

// Extract runs a full pass over the decoded pages of one document
func (e *Extractor) Extract(pages []string) Result {
	id := uuid.NewString()
	doc := Normalize(pages)
	if doc == "" {
		e.logger.Warn("extract.empty", "run", id, "pages", len(pages))
	}

	parties := e.resolver.Resolve(doc)
	raw := e.capturer.CaptureAll(doc)
	raw = withParties(raw, parties)
	fields := e.formatter.Format(raw)

	e.logger.Debug("party.resolve", "run", id,
		"buyer", partyName(parties.Buyer), "seller", partyName(parties.Seller))
	e.logger.Info("extract.ok", "run", id,
		"chars", len(doc), "filled", fields.Len()-fields.Empty())

	return Result{
		ID:       id,
		Parties:  parties,
		Raw:      raw,
		Fields:   fields,
		Document: doc,
	}
}

// ExtractText is Extract for a single block of text
func (e *Extractor) ExtractText(text string) Result {
	return e.Extract([]string{text})
}

// withParties replaces the party fields with resolver output. Fields of a
// missing party are emptied so that label text never leaks into them.
func withParties(m FieldMap, p Parties) FieldMap {
	set := func(m FieldMap, name, id Field, party *Party) FieldMap {
		if party == nil {
			return m.With(name, "").With(id, "")
		}
		return m.With(name, party.Name).With(id, party.ID)
	}
	m = set(m, FieldBuyer, FieldBuyerID, p.Buyer)
	return set(m, FieldSeller, FieldSellerID, p.Seller)
}

func partyName(p *Party) string {
	if p == nil {
		return ""
	}
	return p.Name
}

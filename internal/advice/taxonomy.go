package advice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is a canonical broker advice field name
type Field string

// Canonical fields, in output order
const (
	FieldBuyer             Field = "Buyer"
	FieldBuyerID           Field = "Buyer-ID"
	FieldSeller            Field = "Seller"
	FieldSellerID          Field = "Seller-ID"
	FieldDate              Field = "Date"
	FieldCommodity         Field = "Commodity"
	FieldQuality           Field = "Quality"
	FieldQuantity          Field = "Quantity"
	FieldPrice             Field = "Price"
	FieldDelivery          Field = "Delivery"
	FieldPayment           Field = "Payment"
	FieldInsurance         Field = "Insurance"
	FieldFreight           Field = "Freight"
	FieldStorage           Field = "Storage"
	FieldWeights           Field = "Weights"
	FieldSpecialConditions Field = "Special Conditions"
	FieldBrokerage         Field = "Brokerage"
	FieldRules             Field = "Rules"
)

var canonicalFields = []Field{
	FieldBuyer, FieldBuyerID, FieldSeller, FieldSellerID, FieldDate,
	FieldCommodity, FieldQuality, FieldQuantity, FieldPrice, FieldDelivery,
	FieldPayment, FieldInsurance, FieldFreight, FieldStorage, FieldWeights,
	FieldSpecialConditions, FieldBrokerage, FieldRules,
}

// CanonicalFields returns the fixed canonical field order
func CanonicalFields() []Field {
	return slices.Clone(canonicalFields)
}

// IsCanonical reports whether f is one of the canonical fields
func IsCanonical(f Field) bool {
	return slices.Contains(canonicalFields, f)
}

var (
	// ErrTaxonomyConflict is returned when one label string serves two fields
	ErrTaxonomyConflict = errors.New("label shared by multiple fields")
	// ErrUnknownField is returned when a taxonomy names a non-canonical field
	ErrUnknownField = errors.New("unknown field")
)

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

type taxonomyFile struct {
	Fields []struct {
		Name   string   `yaml:"name"`
		Labels []string `yaml:"labels"`
	} `yaml:"fields"`
	Parties struct {
		CompanySuffixes   []string `yaml:"company_suffixes"`
		AddressIndicators []string `yaml:"address_indicators"`
		AddressWords      []string `yaml:"address_words"`
		LineFragments     []string `yaml:"line_fragments"`
	} `yaml:"parties"`
}

// Taxonomy holds the label synonyms and party word lists. It is read-only
// once built.
type Taxonomy struct {
	labels            map[Field][]string
	companySuffixes   map[string]struct{}
	addressWords      map[string]struct{}
	addressIndicators []string
	lineFragments     []string
}

// DefaultTaxonomy returns the embedded taxonomy
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// LoadTaxonomy reads a taxonomy YAML file. An empty path yields the default.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	t, err := ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return t, nil
}

// ParseTaxonomy decodes and validates taxonomy YAML
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	t := &Taxonomy{
		labels:          make(map[Field][]string, len(canonicalFields)),
		companySuffixes: make(map[string]struct{}),
		addressWords:    make(map[string]struct{}),
	}
	for _, f := range file.Fields {
		field := Field(strings.TrimSpace(f.Name))
		if !IsCanonical(field) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f.Name)
		}
		if _, dup := t.labels[field]; dup {
			return nil, fmt.Errorf("field %q listed twice", field)
		}
		labels := make([]string, 0, len(f.Labels))
		for _, l := range f.Labels {
			l = strings.Join(strings.Fields(l), " ")
			if l == "" {
				return nil, fmt.Errorf("field %q has an empty label", field)
			}
			labels = append(labels, l)
		}
		t.labels[field] = labels
	}
	for _, w := range file.Parties.CompanySuffixes {
		t.companySuffixes[tokenKey(w)] = struct{}{}
	}
	for _, w := range file.Parties.AddressWords {
		t.addressWords[tokenKey(w)] = struct{}{}
	}
	for _, ind := range file.Parties.AddressIndicators {
		if ind = strings.TrimSpace(ind); ind != "" {
			t.addressIndicators = append(t.addressIndicators, ind)
		}
	}
	for _, frag := range file.Parties.LineFragments {
		if frag = strings.TrimSpace(frag); frag != "" {
			t.lineFragments = append(t.lineFragments, frag)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that no label string belongs to two fields
func (t *Taxonomy) Validate() error {
	owner := make(map[string]Field)
	for _, field := range canonicalFields {
		for _, l := range t.labels[field] {
			key := strings.ToLower(l)
			if prev, ok := owner[key]; ok && prev != field {
				return fmt.Errorf("%w: %q used by %q and %q", ErrTaxonomyConflict, l, prev, field)
			}
			owner[key] = field
		}
	}
	return nil
}

// Labels returns the synonyms of a field in configured order
func (t *Taxonomy) Labels(f Field) []string {
	return slices.Clone(t.labels[f])
}

// AllLabels returns every label of every field
func (t *Taxonomy) AllLabels() []string {
	var all []string
	for _, f := range canonicalFields {
		all = append(all, t.labels[f]...)
	}
	return all
}

// AddressIndicators returns the tokens that open an address block
func (t *Taxonomy) AddressIndicators() []string {
	return slices.Clone(t.addressIndicators)
}

// LineFragments returns the line prefixes that mark contact or address lines
func (t *Taxonomy) LineFragments() []string {
	return slices.Clone(t.lineFragments)
}

// IsCompanySuffix reports whether tok is a company suffix such as "Pty" or "Ltd."
func (t *Taxonomy) IsCompanySuffix(tok string) bool {
	_, ok := t.companySuffixes[tokenKey(tok)]
	return ok
}

// IsAddressWord reports whether tok is in the address/location stoplist
func (t *Taxonomy) IsAddressWord(tok string) bool {
	_, ok := t.addressWords[tokenKey(tok)]
	return ok
}

func tokenKey(tok string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(tok), ".,;:()[]"))
}

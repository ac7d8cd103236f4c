package advice

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labeledParties = "Buyer: Allied Pinnacle Pty Ltd\nABN: 12 345 678 901\n" +
	"Seller: Cargill Australia Ltd\nABN: 98 765 432 100\n" +
	"Commodity: Wheat 25/26\nPrice: $340.00/MT"

// unlabeledParties has a letterhead identifier and two parties introduced
// only by their identifiers
func unlabeledParties() string {
	var b strings.Builder
	b.WriteString("AGRI BROKING SERVICES PTY LTD\nABN 11 222 333 444\n")
	b.WriteString("Level 2, 10 Market Street, Sydney NSW 2000\n")
	b.WriteString("CONTRACT CONFIRMATION\n")
	b.WriteString(strings.Repeat("please check the details below.\n", 12))
	b.WriteString("RIVERINA GRAIN TRADERS PTY LTD\nPO Box 123\nWagga Wagga NSW 2650\n")
	b.WriteString("Contact: John Smith\nABN: 12 345 678 901\n")
	b.WriteString("SOUTHERN CROSS MILLING PTY LTD\n45 Mill Road\nGeelong VIC 3220\n")
	b.WriteString("Contact: Jane Doe\nABN: 98 765 432 100\n")
	b.WriteString("Commodity: Wheat\nPrice: $330.00/MT")
	return b.String()
}

func TestPartyResolver_LabeledBlocks(t *testing.T) {
	r := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions())
	parties := r.Resolve(NormalizeText(labeledParties))

	require.NotNil(t, parties.Buyer)
	require.NotNil(t, parties.Seller)
	assert.Equal(t, "Allied Pinnacle Pty Ltd", parties.Buyer.Name)
	assert.Equal(t, "12345678901", parties.Buyer.ID)
	assert.Equal(t, RoleBuyer, parties.Buyer.Role)
	assert.Equal(t, "Cargill Australia Ltd", parties.Seller.Name)
	assert.Equal(t, "98765432100", parties.Seller.ID)
	assert.Equal(t, "label", parties.Seller.Source)
}

func TestPartyResolver_LabeledRolesBeatPosition(t *testing.T) {
	text := "Seller:\nSouthern Cross Milling Pty Ltd\nABN 98 765 432 100\n" +
		"Buyer:\nAttn: Purchasing\nRiverina Grain Traders P/L\nABN 12 345 678 901\nACN 345 678 901\n" +
		"Price: $1"
	r := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions())
	parties := r.Resolve(NormalizeText(text))

	require.NotNil(t, parties.Buyer)
	require.NotNil(t, parties.Seller)
	assert.Equal(t, "Riverina Grain Traders P/L", parties.Buyer.Name)
	assert.Equal(t, "12345678901", parties.Buyer.ID)
	assert.Equal(t, "345678901", parties.Buyer.SecondaryID)
	assert.Equal(t, "Southern Cross Milling Pty Ltd", parties.Seller.Name)
}

func TestPartyResolver_LabeledBlockWithoutSuffix(t *testing.T) {
	text := "Buyer:\nContact: Sam Lee\nMurray Valley Growers\nABN: 12 345 678 901\nSeller:\nName: Western Farms ABN 98 765 432 100\nRules: GTA"
	r := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions())
	parties := r.Resolve(NormalizeText(text))

	require.NotNil(t, parties.Buyer)
	require.NotNil(t, parties.Seller)
	assert.Equal(t, "Murray Valley Growers", parties.Buyer.Name)
	assert.Equal(t, "Western Farms", parties.Seller.Name)
	assert.Equal(t, "98765432100", parties.Seller.ID)
}

func TestPartyResolver_IdentifierProximity(t *testing.T) {
	text := unlabeledParties()
	require.GreaterOrEqual(t, strings.Index(text, "ABN: 12"), DefaultPartyOptions().MinOffset)

	r := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions())
	parties := r.Resolve(NormalizeText(text))

	require.NotNil(t, parties.Buyer)
	require.NotNil(t, parties.Seller)
	assert.Equal(t, "RIVERINA GRAIN TRADERS PTY LTD", parties.Buyer.Name)
	assert.Equal(t, "12345678901", parties.Buyer.ID)
	assert.Equal(t, "SOUTHERN CROSS MILLING PTY LTD", parties.Seller.Name)
	assert.Equal(t, "98765432100", parties.Seller.ID)
	assert.Equal(t, "proximity", parties.Buyer.Source)
	assert.Less(t, parties.Buyer.Offset, parties.Seller.Offset)
}

func TestPartyResolver_LetterheadOffset(t *testing.T) {
	text := "AGRI BROKING SERVICES PTY LTD\nABN 11 222 333 444\nCommodity: Oats"

	parties := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions()).Resolve(NormalizeText(text))
	assert.Empty(t, parties.List())

	opts := DefaultPartyOptions()
	opts.MinOffset = 0
	parties = NewPartyResolver(DefaultTaxonomy(), opts).Resolve(NormalizeText(text))
	require.NotNil(t, parties.Buyer)
	assert.Equal(t, "AGRI BROKING SERVICES PTY LTD", parties.Buyer.Name)
	assert.Nil(t, parties.Seller)
}

func TestPartyResolver_LabeledBuyerProximitySeller(t *testing.T) {
	text := "Buyer: Allied Pinnacle Pty Ltd\nABN 12 345 678 901\n" +
		strings.Repeat("terms and conditions apply.\n", 12) +
		"NORTHERN OILSEEDS PTY LTD\nPO Box 77\nABN 98 765 432 100"

	parties := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions()).Resolve(NormalizeText(text))

	require.NotNil(t, parties.Buyer)
	require.NotNil(t, parties.Seller)
	assert.Equal(t, "Allied Pinnacle Pty Ltd", parties.Buyer.Name)
	assert.Equal(t, "NORTHERN OILSEEDS PTY LTD", parties.Seller.Name)
	assert.Equal(t, "98765432100", parties.Seller.ID)
}

func TestPartyResolver_NoIdentifiers(t *testing.T) {
	text := "Buyer: Allied Pinnacle Pty Ltd\nSeller: Cargill Australia Ltd\nCommodity: Canola\nPrice: $600"

	parties := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions()).Resolve(NormalizeText(text))
	assert.Nil(t, parties.Buyer)
	assert.Nil(t, parties.Seller)
	assert.Empty(t, parties.List())
}

func TestPartyResolver_LabeledNameTakesNearbyIdentifier(t *testing.T) {
	text := "Seller: Cargill Australia Ltd\nBuyer: ALLIED PINNACLE PTY LTD\nCommodity: Wheat\n" +
		"ALLIED PINNACLE PTY LTD\nABN 12 345 678 901\n" +
		"CARGILL AUSTRALIA LTD\nABN 98 765 432 100"
	opts := DefaultPartyOptions()
	opts.MinOffset = 0

	parties := NewPartyResolver(DefaultTaxonomy(), opts).Resolve(NormalizeText(text))

	require.NotNil(t, parties.Buyer)
	require.NotNil(t, parties.Seller)
	assert.Equal(t, "ALLIED PINNACLE PTY LTD", parties.Buyer.Name)
	assert.Equal(t, "12345678901", parties.Buyer.ID)
	assert.Equal(t, RoleBuyer, parties.Buyer.Role)
	assert.Equal(t, "label", parties.Buyer.Source)
	assert.Equal(t, "Cargill Australia Ltd", parties.Seller.Name)
	assert.Equal(t, "98765432100", parties.Seller.ID)
	assert.Equal(t, RoleSeller, parties.Seller.Role)
	assert.Equal(t, "label", parties.Seller.Source)
}

func TestPartyResolver_ProximityNames(t *testing.T) {
	opts := DefaultPartyOptions()
	opts.MinOffset = 0
	r := NewPartyResolver(DefaultTaxonomy(), opts)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "prefix tokens before suffix are bounded",
			text: "THE GREAT SOUTHERN GRAIN COMPANY PTY LTD\nABN 12 345 678 901",
			want: "GREAT SOUTHERN GRAIN COMPANY PTY LTD",
		},
		{
			name: "ampersand joins tokens",
			text: "SMITH & SONS PTY LTD\nABN 12 345 678 901",
			want: "SMITH & SONS PTY LTD",
		},
		{
			name: "no suffix keeps trailing tokens",
			text: "BLUE SKY FARMING ENTERPRISES NORTH\nABN 12 345 678 901",
			want: "SKY FARMING ENTERPRISES NORTH",
		},
		{
			name: "single token is rejected",
			text: "GRAINCORP\nABN 12 345 678 901",
			want: "",
		},
		{
			name: "address words break the name",
			text: "DUBBO GRAIN PTY LTD\nGPO Box 9\nSYDNEY NSW 2001\nABN 12 345 678 901",
			want: "DUBBO GRAIN PTY LTD",
		},
		{
			name: "contact line is skipped",
			text: "WESTERN GROWERS PTY LTD\nContact: JOHN CITIZEN\nABN 12 345 678 901",
			want: "WESTERN GROWERS PTY LTD",
		},
		{
			name: "company on the contact line",
			text: "NORTHERN BROKING PTY LTD trade confirmation\nContact: John Smith, GRAINCORP OPERATIONS LTD\nABN: 12 345 678 901",
			want: "GRAINCORP OPERATIONS LTD",
		},
		{
			name: "suffixes alone are not a name",
			text: "Allied Pinnacle Pty Ltd\n12 Mill Road\nABN: 12 345 678 901",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parties := r.Resolve(NormalizeText(tt.text))
			require.NotNil(t, parties.Buyer)
			assert.Equal(t, tt.want, parties.Buyer.Name)
			assert.Equal(t, "12345678901", parties.Buyer.ID)
		})
	}
}

func TestPartyResolver_IdentifiersAreElevenDigits(t *testing.T) {
	r := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions())
	elevenDigits := regexp.MustCompile(`^\d{11}$`)

	for _, text := range []string{labeledParties, unlabeledParties(), "A.B.N. 12345678901 and ABN No. 98 765 432 100"} {
		for _, p := range r.Resolve(NormalizeText(text)).List() {
			assert.Regexp(t, elevenDigits, p.ID)
		}
	}
}

func TestPartyResolver_Deterministic(t *testing.T) {
	r := NewPartyResolver(DefaultTaxonomy(), DefaultPartyOptions())
	doc := NormalizeText(unlabeledParties())
	assert.Equal(t, r.Resolve(doc), r.Resolve(doc))
}

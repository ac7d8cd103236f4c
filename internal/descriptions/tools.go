package descriptions

import "sort"

// Tool names exposed over MCP
const (
	ExtractBrokerAdvice  = "extract_broker_advice"
	ValidateBrokerAdvice = "validate_broker_advice"
	ListFields           = "list_broker_advice_fields"
	ListFiles            = "list_broker_advice_files"
)

// Tool descriptions with practical examples and use cases

const (
	ExtractBrokerAdviceDescription = `Extract the contract terms of a grain broker advice PDF into a fixed set of fields.

**When to use:** A broker has sent a trade confirmation or broker advice PDF and you need the buyer, seller, price, quantity, delivery and other terms as structured data.

**What you get:** All 18 fields in a fixed order (Buyer, Buyer-ID, Seller, Seller-ID, Date, Commodity, Quality, Quantity, Price, Delivery, Payment, Insurance, Freight, Storage, Weights, Special Conditions, Brokerage, Rules). A field that is not present in the document is empty, never guessed.

**Examples:**
• Read one contract: "Extract the terms from inbox/wheat-apw1-0412.pdf"
• Fill the template: "Extract advice.pdf and write the workbook to exports/advice.xlsx"
• Check a counterparty: "Who is the seller in contract-2291.pdf and what is their ABN?"

**Normalization:**
1. Dates are written DD/MM/YYYY; delivery ranges become "DD/MM/YYYY - DD/MM/YYYY"
2. Price and brokerage become a two decimal amount per unit, e.g. "$340.00/mt"
3. Quantities keep their MIN/MAX qualifier, e.g. "3000.00mt (MIN/MAX)"
4. Buyer-ID and Seller-ID are 11 digit Australian Business Numbers

**Best practices:** Paths are relative to the document directory. Pass output to also save a Field/Value workbook; a value without .xlsx is treated as a directory. Scanned PDFs without a text layer return empty fields and a warning.`

	ValidateBrokerAdviceDescription = `Check that a file is a readable PDF before extracting it.

**When to use:** Before extracting a file of unknown origin, or to explain why an extraction failed.

**What you get:** Whether the file is a structurally valid PDF, its page count and size, or the reason it was rejected (missing, not a PDF, empty, too large, damaged cross reference table).

**Examples:**
• "Is uploads/contract.pdf a valid PDF?"
• "Why can't advice-0033.pdf be extracted?"

**Best practices:** Validation does not read the text. A valid PDF can still be a scanned image with no extractable fields.`

	ListFieldsDescription = `List the canonical broker advice fields and the labels recognised for each.

**When to use:** To see which labels the extractor looks for, for example when a field keeps coming back empty because the broker uses an unusual label.

**What you get:** Each field in output order with its label synonyms. Buyer-ID and Seller-ID have no labels because they are found next to the party names.`

	ListFilesDescription = `Find broker advice PDFs in the document directory.

**When to use:** To discover which contracts are available before extracting them.

**Examples:**
• "List all PDFs" (no arguments)
• "Find the wheat contracts from 2025" (query: "wheat 2025")
• "What is in the archive folder?" (directory: "archive")

**Best practices:** The query matches words of the file name in any order. Hidden folders and files over the size limit are skipped.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ExtractBrokerAdvice:  ExtractBrokerAdviceDescription,
	ValidateBrokerAdvice: ValidateBrokerAdviceDescription,
	ListFields:           ListFieldsDescription,
	ListFiles:            ListFilesDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

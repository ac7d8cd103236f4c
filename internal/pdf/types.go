package pdf

import "github.com/N525610/broker-advice-extractor/internal/advice"

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// ExtractFileRequest represents a request to extract a broker advice PDF
type ExtractFileRequest struct {
	Path string `json:"path"`
	// Output is an optional workbook path to write the fields to
	Output string `json:"output,omitempty"`
}

// ValidateFileRequest represents a request to validate a PDF file
type ValidateFileRequest struct {
	Path string `json:"path"`
}

// SearchDirectoryRequest represents a request to list PDF files in a directory
type SearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// Response Types

// Text is the decoded page text of one PDF
type Text struct {
	Path      string   `json:"path"`
	Pages     []string `json:"-"`
	PageCount int      `json:"pages"`
	Size      int64    `json:"size"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Empty reports whether no page produced any text
func (t *Text) Empty() bool {
	for _, p := range t.Pages {
		if len(p) > 0 {
			return false
		}
	}
	return true
}

// ExtractResult represents the outcome of extracting one broker advice
type ExtractResult struct {
	RunID    string          `json:"run_id"`
	Path     string          `json:"path"`
	Pages    int             `json:"pages"`
	Parties  advice.Parties  `json:"parties"`
	Fields   advice.FieldMap `json:"fields"`
	Output   string          `json:"output,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ValidateFileResult represents the result of a PDF validation operation
type ValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Message string `json:"message,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

// SearchDirectoryResult represents the PDF files found in a directory
type SearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

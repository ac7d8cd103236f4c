package pdf

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/N525610/broker-advice-extractor/internal/advice"
	"github.com/N525610/broker-advice-extractor/internal/export"
	"github.com/N525610/broker-advice-extractor/internal/pdf/security"
)

// Warnings attached to extraction results
const (
	WarnNoText    = "no extractable text; the PDF may be a scanned image"
	WarnTruncated = "text exceeded the size limit and was truncated"
	WarnNoBuyer   = "buyer could not be identified"
	WarnNoSeller  = "seller could not be identified"
)

// Service handles broker advice operations by orchestrating the PDF
// components, the extractor and the workbook writer. Paths are confined to
// the configured document directory.
type Service struct {
	maxFileSize   int64
	reader        *Reader
	validator     *Validator
	search        *Search
	extractor     *advice.Extractor
	writer        *export.Writer
	pathValidator *security.PathValidator
	logger        *slog.Logger
}

// NewService creates a new service rooted at configuredDirectory. A nil
// extractor selects the default taxonomy and options.
func NewService(maxFileSize int64, configuredDirectory string, extractor *advice.Extractor,
	logger *slog.Logger,
) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = advice.NewExtractor(nil, advice.DefaultOptions(), logger)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		reader:        NewReader(maxFileSize, logger),
		validator:     NewValidator(maxFileSize),
		search:        NewSearch(maxFileSize),
		extractor:     extractor,
		writer:        export.NewWriter(logger),
		pathValidator: pathValidator,
		logger:        logger,
	}, nil
}

// Directory returns the absolute document directory
func (s *Service) Directory() string {
	return s.pathValidator.Directory()
}

// MaxFileSize returns the maximum file size limit
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Extractor returns the extractor used for every document
func (s *Service) Extractor() *advice.Extractor {
	return s.extractor
}

// ExtractFile decodes one broker advice PDF and extracts its fields. When
// req.Output is set the fields are also written to a workbook there; an
// Output without an .xlsx extension names a directory.
func (s *Service) ExtractFile(req ExtractFileRequest) (*ExtractResult, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	var output string
	if req.Output != "" {
		output, err = s.pathValidator.Resolve(export.OutputPath(req.Output, path, true))
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
	}

	text, err := s.reader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result := s.Analyze(text)

	if output != "" {
		if err := s.writer.Save(output, result.Fields); err != nil {
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
		result.Output = output
	}
	return result, nil
}

// ExtractBytes extracts an in-memory broker advice, such as an upload.
// name only labels the document in results and logs.
func (s *Service) ExtractBytes(name string, data []byte) (*ExtractResult, error) {
	text, err := s.reader.ReadBytes(name, data)
	if err != nil {
		return nil, err
	}
	return s.Analyze(text), nil
}

// WriteWorkbook renders fields as an xlsx workbook
func (s *Service) WriteWorkbook(fields advice.FieldMap) ([]byte, error) {
	return s.writer.XLSX(fields)
}

// Analyze extracts the fields of already decoded text and attaches warnings
// for missing text and unidentified parties
func (s *Service) Analyze(text *Text) *ExtractResult {
	res := s.extractor.Extract(text.Pages)

	result := &ExtractResult{
		RunID:   res.ID,
		Path:    text.Path,
		Pages:   text.PageCount,
		Parties: res.Parties,
		Fields:  res.Fields,
	}
	if text.Empty() {
		result.Warnings = append(result.Warnings, WarnNoText)
	}
	if text.Truncated {
		result.Warnings = append(result.Warnings, WarnTruncated)
	}
	if !text.Empty() {
		if res.Parties.Buyer == nil {
			result.Warnings = append(result.Warnings, WarnNoBuyer)
		}
		if res.Parties.Seller == nil {
			result.Warnings = append(result.Warnings, WarnNoSeller)
		}
	}

	s.logger.Debug("advice.extracted",
		"run", res.ID,
		"file", filepath.Base(text.Path),
		"pages", text.PageCount,
		"warnings", len(result.Warnings),
	)
	return result
}

// ValidateFile checks that a file is a readable PDF
func (s *Service) ValidateFile(req ValidateFileRequest) (*ValidateFileResult, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req), nil
}

// ValidateBytes checks that an in-memory document is a readable PDF
func (s *Service) ValidateBytes(name string, data []byte) *ValidateFileResult {
	return s.validator.ValidateBytes(name, data)
}

// SearchDirectory lists PDF files below the document directory. An empty
// directory searches the document directory itself.
func (s *Service) SearchDirectory(req SearchDirectoryRequest) (*SearchDirectoryResult, error) {
	if strings.TrimSpace(req.Directory) == "" {
		req.Directory = s.pathValidator.Directory()
	}

	dir, err := s.pathValidator.Resolve(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Directory = dir
	return s.search.SearchDirectory(req)
}

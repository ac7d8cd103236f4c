package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	pdferrors "github.com/N525610/broker-advice-extractor/internal/pdf/errors"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// headerWindow is how far into a file the %PDF- marker may appear
const headerWindow = 1024

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the largest accepted file size in bytes
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// CheckFile validates a path without opening the PDF
func (v *Validator) CheckFile(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidFile, "path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeNotFound, "file does not exist").WithFile(path)
	}
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidFile, "cannot access file", err).WithFile(path)
	}

	if info.IsDir() {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidFile, "path is a directory, not a file").WithFile(path)
	}
	if !isPDFName(path) {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidFile, "file is not a PDF").WithFile(path)
	}
	if err := v.checkSize(info.Size()); err != nil {
		return nil, err.WithFile(path)
	}
	return info, nil
}

// CheckBytes validates an in-memory document without parsing it
func (v *Validator) CheckBytes(name string, data []byte) error {
	if err := v.checkSize(int64(len(data))); err != nil {
		return err.WithFile(name)
	}
	head := data[:min(len(data), headerWindow)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidFile, "missing %PDF header").WithFile(name)
	}
	return nil
}

func (v *Validator) checkSize(size int64) *pdferrors.PDFError {
	if size == 0 {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeEmptyFile, "file is empty")
	}
	if size > v.maxFileSize {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeTooLarge,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", size, v.maxFileSize))
	}
	return nil
}

// CheckStructure reads the cross reference table and page tree and returns
// the page count
func (v *Validator) CheckStructure(rs io.ReadSeeker) (pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = 0
			err = pdferrors.NewPDFError(pdferrors.ErrorTypeDecodePanic, "structure check panicked").
				WithContext(fmt.Sprint(rec))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return 0, pdferrors.WrapError(pdferrors.ErrorTypeInvalidStructure, "cannot read PDF structure", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, pdferrors.WrapError(pdferrors.ErrorTypeInvalidStructure, "cannot determine page count", err)
	}
	return ctx.PageCount, nil
}

// ValidateFile performs full validation on a PDF file. Validation failures
// are reported in the result, never as an error.
func (v *Validator) ValidateFile(req ValidateFileRequest) *ValidateFileResult {
	result := &ValidateFileResult{Path: req.Path}

	info, err := v.CheckFile(req.Path)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Size = info.Size()

	f, err := os.Open(req.Path)
	if err != nil {
		result.Message = pdferrors.WrapError(pdferrors.ErrorTypeInvalidFile, "cannot open file", err).Error()
		return result
	}
	defer f.Close()

	pages, err := v.CheckStructure(f)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Pages = pages
	result.Valid = true
	return result
}

// ValidateBytes is ValidateFile for an in-memory document
func (v *Validator) ValidateBytes(name string, data []byte) *ValidateFileResult {
	result := &ValidateFileResult{Path: name, Size: int64(len(data))}
	if err := v.CheckBytes(name, data); err != nil {
		result.Message = err.Error()
		return result
	}
	pages, err := v.CheckStructure(bytes.NewReader(data))
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Pages = pages
	result.Valid = true
	return result
}

func isPDFName(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

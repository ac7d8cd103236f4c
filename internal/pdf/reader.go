package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	pdferrors "github.com/N525610/broker-advice-extractor/internal/pdf/errors"
	"github.com/ledongthuc/pdf"
)

// Reader handles PDF file reading operations
type Reader struct {
	validator   *Validator
	maxTextSize int
	logger      *slog.Logger
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
		logger:      logger,
	}
}

// ReadFile validates and decodes the PDF at path into per-page text
func (r *Reader) ReadFile(path string) (*Text, error) {
	info, err := r.validator.CheckFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidFile, "cannot read file", err).WithFile(path)
	}

	text, err := r.decode(path, data)
	if err != nil {
		return nil, err
	}
	text.Size = info.Size()
	return text, nil
}

// ReadBytes decodes an in-memory PDF. name is used in errors and logs.
func (r *Reader) ReadBytes(name string, data []byte) (*Text, error) {
	if err := r.validator.CheckBytes(name, data); err != nil {
		return nil, err
	}
	return r.decode(name, data)
}

func (r *Reader) decode(name string, data []byte) (text *Text, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("pdf.decode.panic", "file", name, "panic", rec)
			text = nil
			err = pdferrors.NewPDFError(pdferrors.ErrorTypeDecodePanic, "decoder panicked").
				WithContext(fmt.Sprint(rec)).WithFile(name)
		}
	}()

	pageCount, err := r.validator.CheckStructure(bytes.NewReader(data))
	if err != nil {
		var pe *pdferrors.PDFError
		if errors.As(err, &pe) {
			pe.WithFile(name)
		}
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		errType := pdferrors.ErrorTypeInvalidStructure
		if errors.Is(err, pdf.ErrInvalidPassword) {
			errType = pdferrors.ErrorTypeSecurityRestriction
		}
		return nil, pdferrors.WrapError(errType, "failed to open PDF", err).WithFile(name)
	}

	text = &Text{
		Path:      name,
		PageCount: max(pageCount, reader.NumPage()),
		Size:      int64(len(data)),
	}
	text.Pages, text.Truncated = r.extractPages(name, reader)

	if text.Empty() {
		r.logger.Warn("pdf.decode.no_text", "file", name, "pages", text.PageCount)
	}
	return text, nil
}

// extractPages returns the plain text of every page in order. Pages that fail
// to decode are left empty so later pages keep their position.
func (r *Reader) extractPages(name string, reader *pdf.Reader) ([]string, bool) {
	pages := make([]string, 0, reader.NumPage())
	total := 0

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			perr := pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, "cannot read page text", err).
				WithFile(name).WithPage(pageNum)
			r.logger.Warn("pdf.page.failed", "file", name, "page", pageNum, "error", perr)
			pages = append(pages, "")
			continue
		}

		if total+len(content) > r.maxTextSize {
			content = strings.ToValidUTF8(content[:r.maxTextSize-total], "")
			pages = append(pages, content)
			r.logger.Warn("pdf.decode.truncated", "file", name, "page", pageNum, "limit", r.maxTextSize)
			return pages, true
		}

		pages = append(pages, content)
		total += len(content)
	}
	return pages, false
}

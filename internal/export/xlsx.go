package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/N525610/broker-advice-extractor/internal/advice"
)

const (
	// SheetName is the single worksheet of an exported workbook
	SheetName = "Broker Advice"
	// DefaultFileName is used when no per-document name applies
	DefaultFileName = "broker_advice_template.xlsx"
	// FileSuffix is appended to a PDF's base name for its workbook
	FileSuffix = "_broker_advice.xlsx"
)

// Writer renders a FieldMap as a two column Field/Value workbook
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a workbook writer
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Workbook builds the workbook for m. The caller must Close it.
func (w *Writer) Workbook(m advice.FieldMap) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	wrapped, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("value style: %w", err)
	}

	sw := &sheetWriter{f: f, sheet: SheetName}
	sw.set(1, 1, "Field")
	sw.set(2, 1, "Value")
	sw.style(1, 1, 2, 1, header)

	entries := m.Entries()
	for i, e := range entries {
		sw.set(1, i+2, string(e.Field))
		sw.set(2, i+2, e.Value)
	}
	sw.style(1, 2, 2, len(entries)+1, wrapped)
	sw.width("A", 22) // field
	sw.width("B", 80) // value

	if sw.err != nil {
		_ = f.Close()
		return nil, sw.err
	}
	return f, nil
}

// sheetWriter fills one worksheet and keeps the first error. Calls after an
// error do nothing.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (sw *sheetWriter) set(col, row int, v any) {
	if sw.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		sw.err = fmt.Errorf("cell %d,%d: %w", col, row, err)
		return
	}
	if err := sw.f.SetCellValue(sw.sheet, cell, v); err != nil {
		sw.err = fmt.Errorf("set %s: %w", cell, err)
	}
}

func (sw *sheetWriter) style(fromCol, fromRow, toCol, toRow, style int) {
	if sw.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(fromCol, fromRow)
	if err != nil {
		sw.err = fmt.Errorf("cell %d,%d: %w", fromCol, fromRow, err)
		return
	}
	to, err := excelize.CoordinatesToCellName(toCol, toRow)
	if err != nil {
		sw.err = fmt.Errorf("cell %d,%d: %w", toCol, toRow, err)
		return
	}
	if err := sw.f.SetCellStyle(sw.sheet, from, to, style); err != nil {
		sw.err = fmt.Errorf("style %s:%s: %w", from, to, err)
	}
}

func (sw *sheetWriter) width(col string, width float64) {
	if sw.err != nil {
		return
	}
	if err := sw.f.SetColWidth(sw.sheet, col, col, width); err != nil {
		sw.err = fmt.Errorf("width %s: %w", col, err)
	}
}

// XLSX returns the workbook for m as bytes
func (w *Writer) XLSX(m advice.FieldMap) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the workbook for m to out
func (w *Writer) Write(out io.Writer, m advice.FieldMap) error {
	start := time.Now()
	f, err := w.Workbook(m)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	w.logger.Debug("export.xlsx.ok",
		"filled", m.Len()-m.Empty(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Save writes the workbook for m to path, creating parent directories
func (w *Writer) Save(path string, m advice.FieldMap) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	data, err := w.XLSX(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Info("export.saved", "path", path, "bytes", len(data))
	return nil
}

// FileNameFor returns the workbook name for a source PDF
func FileNameFor(pdfPath string) string {
	base := filepath.Base(pdfPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return DefaultFileName
	}
	return base + FileSuffix
}

// OutputPath decides where the workbook of pdfPath goes. An out ending in
// .xlsx names the file when single is true; otherwise out is a directory.
// An empty out selects the PDF's own directory.
func OutputPath(out, pdfPath string, single bool) string {
	if strings.EqualFold(filepath.Ext(out), ".xlsx") {
		if single {
			return out
		}
		out = filepath.Dir(out)
	}
	if out == "" {
		out = filepath.Dir(pdfPath)
	}
	return filepath.Join(out, FileNameFor(pdfPath))
}

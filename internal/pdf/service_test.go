package pdf

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/N525610/broker-advice-extractor/internal/advice"
	"github.com/N525610/broker-advice-extractor/internal/export"
	"github.com/N525610/broker-advice-extractor/internal/pdf/pdftest"
	"github.com/N525610/broker-advice-extractor/internal/pdf/security"
)

var labeledAdvice = []string{
	"Buyer: Allied Pinnacle Pty Ltd",
	"ABN: 12 345 678 901",
	"Seller: Cargill Australia Ltd",
	"ABN: 98 765 432 100",
	"Commodity: Wheat 25/26",
	"Price: $340.00/MT",
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(1024*1024, dir, nil, logger)
	require.NoError(t, err)
	return svc, dir
}

func TestNewService(t *testing.T) {
	svc, dir := newTestService(t)

	assert.Equal(t, int64(1024*1024), svc.MaxFileSize())
	assert.NotNil(t, svc.Extractor())

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, svc.Directory())

	_, err = NewService(1024, "", nil, nil)
	assert.Error(t, err)
}

func TestService_ExtractFile(t *testing.T) {
	svc, dir := newTestService(t)
	pdftest.WriteFile(t, dir, "advice.pdf", labeledAdvice[:4], labeledAdvice[4:])

	result, err := svc.ExtractFile(ExtractFileRequest{Path: "advice.pdf"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Pages)
	assert.Empty(t, result.Output)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "Allied Pinnacle Pty Ltd", result.Fields.Get(advice.FieldBuyer))
	assert.Equal(t, "12345678901", result.Fields.Get(advice.FieldBuyerID))
	assert.Equal(t, "Cargill Australia Ltd", result.Fields.Get(advice.FieldSeller))
	assert.Equal(t, "98765432100", result.Fields.Get(advice.FieldSellerID))
	assert.Equal(t, "Wheat 25/26", result.Fields.Get(advice.FieldCommodity))
	assert.Equal(t, "$340.00/mt", result.Fields.Get(advice.FieldPrice))
	require.NotNil(t, result.Parties.Buyer)
	assert.Equal(t, advice.RoleBuyer, result.Parties.Buyer.Role)
}

func TestService_ExtractFile_Workbook(t *testing.T) {
	svc, dir := newTestService(t)
	pdftest.WriteFile(t, dir, "advice.pdf", labeledAdvice)

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"named file", "out/result.xlsx", filepath.Join("out", "result.xlsx")},
		{"directory", "exports", filepath.Join("exports", "advice"+export.FileSuffix)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ExtractFile(ExtractFileRequest{Path: "advice.pdf", Output: tt.output})
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(svc.Directory(), tt.want), result.Output)

			data, err := os.ReadFile(result.Output)
			require.NoError(t, err)
			f, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer f.Close()

			rows, err := f.GetRows(export.SheetName)
			require.NoError(t, err)
			assert.Equal(t, []string{"Buyer", "Allied Pinnacle Pty Ltd"}, rows[1])
		})
	}
}

func TestService_ExtractFile_Confinement(t *testing.T) {
	svc, dir := newTestService(t)
	pdftest.WriteFile(t, dir, "advice.pdf", labeledAdvice)

	outside := t.TempDir()
	outsidePDF := pdftest.WriteFile(t, outside, "other.pdf", labeledAdvice)

	_, err := svc.ExtractFile(ExtractFileRequest{Path: outsidePDF})
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)

	_, err = svc.ExtractFile(ExtractFileRequest{Path: "../other.pdf"})
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)

	_, err = svc.ExtractFile(ExtractFileRequest{Path: "advice.pdf", Output: filepath.Join(outside, "x.xlsx")})
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)
	_, statErr := os.Stat(filepath.Join(outside, "x.xlsx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_ExtractFile_Warnings(t *testing.T) {
	svc, dir := newTestService(t)

	pdftest.WriteFile(t, dir, "scan.pdf", nil)
	result, err := svc.ExtractFile(ExtractFileRequest{Path: "scan.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{WarnNoText}, result.Warnings)
	assert.Equal(t, result.Fields.Len(), result.Fields.Empty())

	pdftest.WriteFile(t, dir, "noparties.pdf", []string{"Commodity: Canola", "Price: $600"})
	result, err = svc.ExtractFile(ExtractFileRequest{Path: "noparties.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{WarnNoBuyer, WarnNoSeller}, result.Warnings)
	assert.Equal(t, "Canola", result.Fields.Get(advice.FieldCommodity))
}

func TestService_ExtractBytes(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.ExtractBytes("upload.pdf", pdftest.Build(labeledAdvice))
	require.NoError(t, err)
	assert.Equal(t, "upload.pdf", result.Path)
	assert.Equal(t, "Cargill Australia Ltd", result.Fields.Get(advice.FieldSeller))

	_, err = svc.ExtractBytes("upload.pdf", []byte("not a pdf"))
	assert.Error(t, err)

	data, err := svc.WriteWorkbook(result.Fields)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestService_ValidateFile(t *testing.T) {
	svc, dir := newTestService(t)
	pdftest.WriteFile(t, dir, "advice.pdf", labeledAdvice)

	result, err := svc.ValidateFile(ValidateFileRequest{Path: "advice.pdf"})
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Message)
	assert.Equal(t, 1, result.Pages)

	result, err = svc.ValidateFile(ValidateFileRequest{Path: "missing.pdf"})
	require.NoError(t, err)
	assert.False(t, result.Valid)

	_, err = svc.ValidateFile(ValidateFileRequest{Path: "/etc/passwd"})
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)
}

func TestService_SearchDirectory(t *testing.T) {
	svc, dir := newTestService(t)
	pdftest.WriteFile(t, dir, "wheat.pdf", labeledAdvice)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2025"), 0o755))
	pdftest.WriteFile(t, filepath.Join(dir, "2025"), "barley.pdf", labeledAdvice)

	result, err := svc.SearchDirectory(SearchDirectoryRequest{})
	require.NoError(t, err)
	assert.Equal(t, svc.Directory(), result.Directory)
	assert.Equal(t, 2, result.TotalCount)

	result, err = svc.SearchDirectory(SearchDirectoryRequest{Directory: "2025"})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "barley.pdf", result.Files[0].Name)

	_, err = svc.SearchDirectory(SearchDirectoryRequest{Directory: ".."})
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)
}

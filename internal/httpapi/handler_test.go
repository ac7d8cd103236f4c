package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/N525610/broker-advice-extractor/internal/advice"
	"github.com/N525610/broker-advice-extractor/internal/export"
	"github.com/N525610/broker-advice-extractor/internal/pdf"
	"github.com/N525610/broker-advice-extractor/internal/pdf/pdftest"
)

var advicePDF = pdftest.Build([]string{
	"Buyer: Allied Pinnacle Pty Ltd",
	"ABN: 12 345 678 901",
	"Seller: Cargill Australia Ltd",
	"ABN: 98 765 432 100",
	"Commodity: Wheat 25/26",
	"Price: $340.00/MT",
})

func newTestRouter(t *testing.T, maxFileSize int64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := pdf.NewService(maxFileSize, t.TempDir(), nil, logger)
	require.NoError(t, err)
	return New(svc, logger).Router()
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type extractResponse struct {
	RunID    string            `json:"run_id"`
	Path     string            `json:"path"`
	Pages    int               `json:"pages"`
	Fields   map[string]string `json:"fields"`
	Warnings []string          `json:"warnings"`
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestFields(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/fields", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var fields []fieldInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	require.Len(t, fields, len(advice.CanonicalFields()))
	assert.Equal(t, advice.FieldBuyer, fields[0].Field)
	assert.NotEmpty(t, fields[0].Labels)
	assert.Equal(t, advice.FieldBuyerID, fields[1].Field)
	assert.Empty(t, fields[1].Labels)
}

func TestExtract_RawBody(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", bytes.NewReader(advicePDF))
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Content-Disposition", `attachment; filename="contract-2291.pdf"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res extractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "contract-2291.pdf", res.Path)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "Allied Pinnacle Pty Ltd", res.Fields["Buyer"])
	assert.Equal(t, "98765432100", res.Fields["Seller-ID"])
	assert.Equal(t, "$340.00/mt", res.Fields["Price"])
	assert.Contains(t, res.Fields, "Rules")
	assert.Equal(t, "", res.Fields["Rules"])
}

func TestExtract_Multipart(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	body, contentType := multipartBody(t, "file", "upload-7.pdf", advicePDF)
	req := httptest.NewRequest(http.MethodPost, "/v1/extract?format=json", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res extractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "upload-7.pdf", res.Path)
	assert.Equal(t, "Cargill Australia Ltd", res.Fields["Seller"])
}

func TestExtract_Workbook(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/v1/extract?format=xlsx", bytes.NewReader(advicePDF))
	req.Header.Set("Content-Disposition", `attachment; filename="wheat.pdf"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "wheat"+export.FileSuffix, params["filename"])

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, len(advice.CanonicalFields())+1)
	assert.Equal(t, []string{"Field", "Value"}, rows[0])
	assert.Equal(t, []string{"Buyer", "Allied Pinnacle Pty Ltd"}, rows[1])
}

func TestExtract_Errors(t *testing.T) {
	router := newTestRouter(t, 4096)

	tests := []struct {
		name        string
		url         string
		body        []byte
		contentType string
		wantStatus  int
		wantType    string
	}{
		{name: "empty body", url: "/v1/extract", wantStatus: http.StatusBadRequest},
		{name: "unknown format", url: "/v1/extract?format=csv", body: advicePDF, wantStatus: http.StatusBadRequest},
		{
			name:       "not a pdf",
			url:        "/v1/extract",
			body:       []byte("hello world"),
			wantStatus: http.StatusBadRequest,
			wantType:   "INVALID_FILE",
		},
		{
			name:       "over the file limit",
			url:        "/v1/extract",
			body:       append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 8192)...),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   "TOO_LARGE",
		},
		{
			name:       "over the body limit",
			url:        "/v1/extract",
			body:       bytes.Repeat([]byte("x"), 4096+multipartOverhead+1),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "broken structure",
			url:        "/v1/extract",
			body:       []byte("%PDF-1.4\nthis is not a real document\n%%EOF\n"),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:        "multipart without file",
			url:         "/v1/extract",
			body:        []byte("--b\r\nContent-Disposition: form-data; name=\"note\"\r\n\r\nhi\r\n--b--\r\n"),
			contentType: "multipart/form-data; boundary=b",
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.url, bytes.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body.Type)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	tests := []struct {
		name      string
		body      []byte
		wantValid bool
		wantPages int
	}{
		{"valid", advicePDF, true, 1},
		{"two pages", pdftest.Build([]string{"one"}, []string{"two"}), true, 2},
		{"not a pdf", []byte("plain text"), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var res pdf.ValidateFileResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantPages, res.Pages)
			assert.Equal(t, defaultFileName, res.Path)
			if !tt.wantValid {
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/extract", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 10}))
	assert.Equal(t, http.StatusBadRequest, statusFor(errNoFile))
	assert.Equal(t, http.StatusBadRequest, statusFor(http.ErrNotMultipart))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, newTestRouter(t, 1<<20), logger)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "ok"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// Package httpapi exposes broker advice extraction over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/N525610/broker-advice-extractor/internal/advice"
	"github.com/N525610/broker-advice-extractor/internal/export"
	"github.com/N525610/broker-advice-extractor/internal/pdf"
	pdferrors "github.com/N525610/broker-advice-extractor/internal/pdf/errors"
)

const (
	// multipartOverhead is allowed on top of the file size limit for form
	// boundaries and headers
	multipartOverhead = 1 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultFileName = "upload.pdf"
)

var errNoFile = errors.New("a PDF is required as the request body or multipart field \"file\"")

// Handler serves the extraction API
type Handler struct {
	service *pdf.Service
	logger  *slog.Logger
}

// New creates a handler backed by service
func New(service *pdf.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Router returns the complete HTTP handler with middleware applied
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	h.Attach(r)
	return r
}

// Attach registers the API routes on r
func (h *Handler) Attach(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/fields", h.handleFields)

		r.With(h.limitBody).Post("/extract", h.handleExtract)
		r.With(h.limitBody).Post("/validate", h.handleValidate)
	})
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	limit := h.service.MaxFileSize() + multipartOverhead
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info("http.request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fieldInfo struct {
	Field  advice.Field `json:"field"`
	Labels []string     `json:"labels"`
}

func (h *Handler) handleFields(w http.ResponseWriter, _ *http.Request) {
	t := h.service.Extractor().Taxonomy()

	fields := make([]fieldInfo, 0, len(advice.CanonicalFields()))
	for _, f := range advice.CanonicalFields() {
		labels := t.Labels(f)
		if labels == nil {
			labels = []string{}
		}
		fields = append(fields, fieldInfo{Field: f, Labels: labels})
	}
	writeJson(w, http.StatusOK, fields)
}

func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q (json or xlsx)", format))
		return
	}

	name, data, err := readFile(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	result, err := h.service.ExtractBytes(name, data)
	if err != nil {
		h.logger.Warn("http.extract.failed", "file", name, "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	if format != "xlsx" {
		writeJson(w, http.StatusOK, result)
		return
	}

	workbook, err := h.service.WriteWorkbook(result.Fields)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": export.FileNameFor(name)}))
	w.Header().Set("X-Run-ID", result.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	name, data, err := readFile(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJson(w, http.StatusOK, h.service.ValidateBytes(name, data))
}

// readFile returns the uploaded document from a multipart "file" field or,
// for any other content type, the raw request body
func readFile(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, errNoFile
		}
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return fileName(header.Filename), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errNoFile
	}

	_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Disposition"))
	return fileName(params["filename"]), data, nil
}

func fileName(name string) string {
	if name == "" {
		return defaultFileName
	}
	return name
}

// statusFor maps request and decode failures onto HTTP status codes
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, errNoFile) {
		return http.StatusBadRequest
	}

	switch pdferrors.TypeOf(err) {
	case pdferrors.ErrorTypeTooLarge:
		return http.StatusRequestEntityTooLarge
	case pdferrors.ErrorTypeInvalidFile, pdferrors.ErrorTypeEmptyFile:
		return http.StatusBadRequest
	case pdferrors.ErrorTypeInvalidStructure, pdferrors.ErrorTypeSecurityRestriction,
		pdferrors.ErrorTypeMalformedPage, pdferrors.ErrorTypeDecodePanic:
		return http.StatusUnprocessableEntity
	}

	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJson(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	body := errorBody{Error: http.StatusText(code)}
	if err != nil {
		body.Error = err.Error()
	}
	if t := pdferrors.TypeOf(err); t != pdferrors.ErrorTypeUnknown {
		body.Type = t.String()
	}
	writeJson(w, code, body)
}

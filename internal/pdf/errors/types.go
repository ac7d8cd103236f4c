package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrDecode matches every PDFError through errors.Is
var ErrDecode = stderrors.New("pdf decode failed")

// PDFError is a failure to turn a file into page text. No extraction is
// attempted once one is returned.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	cause       error
}

// ErrorType categorizes decode failures
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNotFound
	ErrorTypeInvalidFile
	ErrorTypeTooLarge
	ErrorTypeEmptyFile
	ErrorTypeInvalidStructure
	ErrorTypeSecurityRestriction
	ErrorTypeMalformedPage
	ErrorTypeDecodePanic
)

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeInvalidFile:
		return "INVALID_FILE"
	case ErrorTypeTooLarge:
		return "TOO_LARGE"
	case ErrorTypeEmptyFile:
		return "EMPTY_FILE"
	case ErrorTypeInvalidStructure:
		return "INVALID_STRUCTURE"
	case ErrorTypeSecurityRestriction:
		return "SECURITY_RESTRICTION"
	case ErrorTypeMalformedPage:
		return "MALFORMED_PAGE"
	case ErrorTypeDecodePanic:
		return "DECODE_PANIC"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether the rest of a document can still be read
// after an error of this type
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeMalformedPage:
		return true // remaining pages still decode
	default:
		return false
	}
}

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.FilePath != "" {
		msg += " (" + e.FilePath + ")"
	}
	return msg
}

// Is makes every PDFError match ErrDecode
func (e *PDFError) Is(target error) bool {
	return target == ErrDecode
}

// Unwrap returns the underlying library error, if any
func (e *PDFError) Unwrap() error {
	return e.cause
}

// NewPDFError creates a PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// WrapError wraps a library error as a PDFError
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	e := NewPDFError(errorType, message)
	if err != nil {
		e.Context = err.Error()
		e.cause = err
	}
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing PDFError
func (e *PDFError) WithFile(filePath string) *PDFError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not
// a PDFError
func TypeOf(err error) ErrorType {
	var pe *PDFError
	if stderrors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeUnknown
}

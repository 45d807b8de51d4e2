package models

import "fmt"

// Error codes used in logs and internal error handling.
const (
	ErrCodeLoadFailed   = "PAGE_LOAD_FAILED"
	ErrCodeTimeout      = "LOAD_TIMEOUT"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeImageFetch   = "IMAGE_FETCH_FAILED"
	ErrCodeImageInvalid = "IMAGE_INVALID"
	ErrCodeReportRender = "REPORT_RENDER_FAILED"
	ErrCodeReportWrite  = "REPORT_WRITE_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// DigestError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type DigestError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *DigestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DigestError) Unwrap() error {
	return e.Err
}

// NewDigestError creates a new DigestError.
func NewDigestError(code, message string, err error) *DigestError {
	return &DigestError{Code: code, Message: message, Err: err}
}

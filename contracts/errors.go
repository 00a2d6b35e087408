package contracts

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ConfigurationErr = errors.New("configuration error")
	FormatErr        = errors.New("format error")
	NotFoundErr      = errors.New("not found")
	ContainmentErr   = errors.New("path escapes base directory")
	APIErr           = errors.New("remote api error")
	IntegrityErr     = errors.New("integrity check failed")

	// RetryErr marks failures that may succeed when attempted again
	// (network failures, throttling, server errors).
	RetryErr = errors.New("retry")
)

// FormatError describes a manifest or metadata payload that violates the
// tolerant manifest schema.
type FormatError struct {
	Field  string
	Reason string
	Err    error
}

func (this *FormatError) Error() string {
	builder := new(strings.Builder)
	builder.WriteString("manifest format error")
	if this.Field != "" {
		_, _ = fmt.Fprintf(builder, " (property '%s')", this.Field)
	}
	builder.WriteString(": ")
	builder.WriteString(this.Reason)
	if this.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(this.Err.Error())
	}
	return builder.String()
}

func (this *FormatError) Unwrap() error { return this.Err }

func (this *FormatError) Is(target error) bool { return target == FormatErr }

// APIError is a non-success response from a remote store. Message is a
// best-effort human-readable extraction from Body (blank when Body is
// blank); Guidance carries remediation text for well-known failures.
type APIError struct {
	Action     string
	StatusCode int
	Status     string
	Body       string
	Message    string
	Guidance   string
}

func (this *APIError) Error() string {
	status := strings.TrimSpace(this.Status)
	if status == "" {
		status = strings.TrimSpace(fmt.Sprintf("%d %s", this.StatusCode, http.StatusText(this.StatusCode)))
	}
	message := fmt.Sprintf("remote %s failed (%s).", this.Action, status)
	if this.Message != "" {
		message += " " + this.Message
	}
	if this.Guidance != "" {
		message += " " + this.Guidance
	}
	return message
}

func (this *APIError) Is(target error) bool {
	switch target {
	case APIErr:
		return true
	case RetryErr:
		return this.StatusCode == http.StatusTooManyRequests || this.StatusCode >= http.StatusInternalServerError
	case NotFoundErr:
		return this.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

// IsConflict reports whether the remote store rejected a write because
// the supplied version token was stale.
func (this *APIError) IsConflict() bool {
	return this.StatusCode == http.StatusConflict || this.StatusCode == http.StatusUnprocessableEntity
}

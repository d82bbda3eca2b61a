package httputil

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/founder-scout/internal/util"
)

// HTTPError is a sanitized summary of a non-2xx upstream API response.
//
// Important: do not include raw response bodies here (can leak PII/tokens).
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string

	// Snippet is a redacted, truncated hint from the response body.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	parts := []string{
		fmt.Sprintf("upstream api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// NewHTTPError builds an HTTPError from a response and its (already read) body.
func NewHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}
	h.Snippet = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	// Keep this small: response bodies can contain sensitive data.
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}

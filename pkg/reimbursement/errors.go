package reimbursement

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetBytes = 512

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s %s: http response status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http response status %d: %s", e.Method, e.Path, e.StatusCode, e.Snippet)
}

// DecodeError is returned when a response body is not valid JSON.
type DecodeError struct {
	Method  string
	Path    string
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decode response: %v (body: %s)", e.Method, e.Path, e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// bodySnippet returns a short printable summary of a response body. HTML
// error pages are reduced to their title or visible text.
func bodySnippet(body []byte, contentType string) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return "<empty>"
	}
	if isHTML(contentType) {
		if text := htmlSummary(body); text != "" {
			return truncate(text)
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func htmlSummary(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

func truncate(s string) string {
	if len(s) > maxSnippetBytes {
		return s[:maxSnippetBytes] + "..."
	}
	return s
}

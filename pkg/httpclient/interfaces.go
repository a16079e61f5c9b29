package httpclient

import (
	"context"
	"io"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// File is a file part attached to a multipart request.
type File struct {
	Param  string
	Name   string
	Reader io.Reader
}

// Request describes a single outbound call. When FormData or Files are set the
// body is sent as multipart/form-data and the transport owns the Content-Type.
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	FormData map[string]string
	Files    []File
}

// Multipart reports whether the request carries a multipart form.
func (r Request) Multipart() bool {
	return len(r.FormData) > 0 || len(r.Files) > 0
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Do(ctx context.Context, req Request) (Response, error)
}

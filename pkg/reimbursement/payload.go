package reimbursement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Adda-Baaj/reimbursement-client/pkg/httpclient"
)

const (
	contentTypeJSON = "application/json"
	claimFileField  = "file"
)

// Payload is the body of a create call. The concrete type states how it is
// sent: JSONPayload or MultipartPayload.
type Payload interface {
	request() (httpclient.Request, error)
}

// JSONPayload is serialized with encoding/json and sent as application/json.
type JSONPayload struct {
	Value any
}

func (p JSONPayload) request() (httpclient.Request, error) {
	body, err := json.Marshal(p.Value)
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("marshal json payload: %w", err)
	}
	return httpclient.Request{
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": contentTypeJSON},
		Body:    body,
	}, nil
}

// FormFile is a file part of a MultipartPayload.
type FormFile struct {
	Field  string
	Name   string
	Reader io.Reader
}

// MultipartPayload is sent as multipart/form-data. No Content-Type header is
// set by the client; the transport writes it together with the boundary.
type MultipartPayload struct {
	Fields map[string]string
	Files  []FormFile
}

func (p MultipartPayload) request() (httpclient.Request, error) {
	if len(p.Fields) == 0 && len(p.Files) == 0 {
		return httpclient.Request{}, errors.New("multipart payload has no fields or files")
	}

	req := httpclient.Request{Method: http.MethodPost}
	if len(p.Fields) > 0 {
		req.FormData = make(map[string]string, len(p.Fields))
		for k, v := range p.Fields {
			req.FormData[k] = v
		}
	}
	for _, f := range p.Files {
		if f.Field == "" {
			return httpclient.Request{}, fmt.Errorf("multipart file %q has no field name", f.Name)
		}
		if f.Reader == nil {
			return httpclient.Request{}, fmt.Errorf("multipart file %q has no reader", f.Field)
		}
		req.Files = append(req.Files, httpclient.File{Param: f.Field, Name: f.Name, Reader: f.Reader})
	}
	return req, nil
}

// NewClaimPayload builds the multipart body the create endpoint expects: the
// claim fields plus the receipt under the "file" part.
func NewClaimPayload(claim Claim, receipt FormFile) MultipartPayload {
	if receipt.Field == "" {
		receipt.Field = claimFileField
	}
	return MultipartPayload{
		Fields: claim.Fields(),
		Files:  []FormFile{receipt},
	}
}

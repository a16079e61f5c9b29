package reimbursement

import (
	"math"
	"strings"
	"testing"
)

func TestJSONPayloadRequest(t *testing.T) {
	req, err := JSONPayload{Value: map[string]int{"a": 1}}.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Headers["Content-Type"] != "application/json" {
		t.Fatalf("headers = %v", req.Headers)
	}
	if string(req.Body) != `{"a":1}` {
		t.Fatalf("body = %s", req.Body)
	}
	if req.Multipart() {
		t.Fatalf("json payload must not be multipart")
	}
}

func TestJSONPayloadMarshalError(t *testing.T) {
	if _, err := (JSONPayload{Value: math.Inf(1)}).request(); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestMultipartPayloadRequestHasNoContentType(t *testing.T) {
	req, err := MultipartPayload{
		Fields: map[string]string{"empName": "Asha"},
		Files:  []FormFile{{Field: "file", Name: "r.png", Reader: strings.NewReader("x")}},
	}.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, ok := req.Headers["Content-Type"]; ok {
		t.Fatalf("multipart payload must not set Content-Type")
	}
	if !req.Multipart() || len(req.Files) != 1 || req.Files[0].Param != "file" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestMultipartPayloadValidation(t *testing.T) {
	if _, err := (MultipartPayload{}).request(); err == nil {
		t.Fatalf("expected error for empty multipart payload")
	}
	if _, err := (MultipartPayload{Files: []FormFile{{Field: "file"}}}).request(); err == nil {
		t.Fatalf("expected error for file without reader")
	}
	if _, err := (MultipartPayload{Files: []FormFile{{Reader: strings.NewReader("x")}}}).request(); err == nil {
		t.Fatalf("expected error for file without field")
	}
}

func TestNewClaimPayloadDefaultsFileField(t *testing.T) {
	p := NewClaimPayload(Claim{EmpName: "Asha", UploadedBy: "a@x.com"}, FormFile{Name: "r.pdf", Reader: strings.NewReader("x")})
	if p.Files[0].Field != "file" {
		t.Fatalf("file field = %q", p.Files[0].Field)
	}
	if p.Fields["uploadedBy"] != "a@x.com" || p.Fields["empName"] != "Asha" {
		t.Fatalf("fields = %v", p.Fields)
	}
	if len(p.Fields) != 6 {
		t.Fatalf("expected 6 claim fields, got %d", len(p.Fields))
	}
}

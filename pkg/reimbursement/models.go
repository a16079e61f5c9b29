package reimbursement

import (
	"encoding/json"
	"fmt"
)

// Request statuses understood by the reimbursement API.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
	StatusRejected = "rejected"
)

// Request is the reimbursement record as returned by /api/requests.
type Request struct {
	ID             string `json:"id"`
	Filename       string `json:"filename,omitempty"`
	FilePath       string `json:"filePath,omitempty"`
	Size           int64  `json:"size,omitempty"`
	UploadedBy     string `json:"uploadedBy"`
	EmpName        string `json:"empName"`
	EmpID          string `json:"empId"`
	EmpAmount      string `json:"empAmount"`
	EmpDate        string `json:"empDate"`
	EmpReason      string `json:"empReason"`
	CreatedAt      string `json:"createdAt,omitempty"`
	Status         string `json:"status"`
	DecidedAt      string `json:"decidedAt,omitempty"`
	DecisionReason string `json:"decisionReason,omitempty"`
}

// LogEntry is a single event returned by /logs.
type LogEntry struct {
	Timestamp     string         `json:"timestamp"`
	Type          string         `json:"type"`
	Actor         string         `json:"actor"`
	Action        string         `json:"action"`
	ResultSummary map[string]any `json:"result_summary,omitempty"`
}

// StatusUpdate is the PATCH body for a status change. Reason is dropped
// from the wire form when empty.
type StatusUpdate struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Claim holds the form fields the create endpoint expects alongside the
// uploaded receipt.
type Claim struct {
	EmpName    string
	EmpID      string
	EmpAmount  string
	EmpDate    string
	EmpReason  string
	UploadedBy string
}

// Fields returns the claim as multipart form fields.
func (c Claim) Fields() map[string]string {
	return map[string]string{
		"empName":    c.EmpName,
		"empId":      c.EmpID,
		"empAmount":  c.EmpAmount,
		"empDate":    c.EmpDate,
		"empReason":  c.EmpReason,
		"uploadedBy": c.UploadedBy,
	}
}

// Decode unmarshals a raw API response into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

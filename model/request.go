// model/request.go
package model

import "time"

// AccessRequest is the immutable description of what a requester asked
// for. It is constructed once per inbound request and never mutated;
// capping and expiry live on the EvaluationResult instead.
type AccessRequest struct {
	RequesterID      string    `json:"requester_id"` // external chat identity, e.g. U12345
	AccountID        string    `json:"account_id"`
	PermissionSetArn string    `json:"permission_set_arn"`
	InstanceArn      string    `json:"instance_arn"`
	DurationHours    float64   `json:"duration_hours"`
	TicketID         string    `json:"ticket_id,omitempty"`
	RequestedAt      time.Time `json:"requested_at"`
}

// PrincipalCandidate is one identity under which a request can be
// authorized. The workflow produces one candidate per group membership.
type PrincipalCandidate struct {
	Type string `json:"type"` // "GROUP" or "USER"
	ID   string `json:"id"`
}

const (
	PrincipalTypeGroup = "GROUP"
	PrincipalTypeUser  = "USER"
)

// audit/model.go
package audit

import (
	"time"

	"github.com/dev-mohitbeniwal/boundary/model"
)

// Artifact is one durable evaluation record. Every decision emits one,
// denials and errors included, carrying enough provenance to replay
// the decision: who asked, which group was considered, which rule
// fired under which policy content hash and engine version.
type Artifact struct {
	Timestamp          time.Time `json:"timestamp"`
	RequestID          string    `json:"request_id"`
	RequesterID        string    `json:"requester_id"`
	AccountID          string    `json:"account_id"`
	PermissionSetArn   string    `json:"permission_set_arn"`
	PrincipalID        string    `json:"principal_id"`
	PrincipalType      string    `json:"principal_type"`
	Decision           string    `json:"decision"`
	RuleID             string    `json:"rule_id,omitempty"`
	Reason             string    `json:"reason"`
	Evidence           string    `json:"evidence,omitempty"`
	WasCapped          bool      `json:"was_capped"`
	EffectiveHours     float64   `json:"effective_duration_hours,omitempty"`
	EffectiveExpiresAt string    `json:"effective_expires_at,omitempty"`
	TicketID           string    `json:"ticket_id,omitempty"`
	EngineVersion      string    `json:"engine_version"`
	PolicyHash         string    `json:"policy_hash"`
	RulesEvaluated     int       `json:"rules_evaluated"`
}

// NewArtifact flattens an evaluation result into a durable artifact.
// Timestamps are RFC3339 in the serialized form via time.Time's JSON
// encoding.
func NewArtifact(requestID string, req model.AccessRequest, result model.EvaluationResult, at time.Time) Artifact {
	a := Artifact{
		Timestamp:        at,
		RequestID:        requestID,
		RequesterID:      req.RequesterID,
		AccountID:        req.AccountID,
		PermissionSetArn: req.PermissionSetArn,
		PrincipalID:      result.Principal.ID,
		PrincipalType:    result.Principal.Type,
		Decision:         result.Decision,
		RuleID:           result.RuleID,
		Reason:           result.Reason,
		Evidence:         result.Evidence,
		WasCapped:        result.WasCapped,
		EffectiveHours:   result.EffectiveDurationHours,
		TicketID:         req.TicketID,
		EngineVersion:    result.EngineVersion,
		PolicyHash:       result.PolicyHash,
		RulesEvaluated:   result.RulesEvaluated,
	}
	if !result.EffectiveExpiresAt.IsZero() {
		a.EffectiveExpiresAt = result.EffectiveExpiresAt.UTC().Format(time.RFC3339)
	}
	return a
}

// model/evaluation.go
package model

import "time"

const (
	DecisionAllow = "ALLOW"
	DecisionDeny  = "DENY"
	DecisionError = "ERROR"
)

// ApprovalMetadata mirrors the matched rule's approval block so the
// workflow can route the request without re-reading the rule file.
type ApprovalMetadata struct {
	Required       bool     `json:"required"`
	Channel        string   `json:"channel,omitempty"`
	ApproverGroups []string `json:"approver_groups,omitempty"`
}

// EvaluationResult is produced once per evaluation and is immutable.
// It is the only authoritative explanation of why a decision was made.
type EvaluationResult struct {
	Decision string `json:"decision"`
	RuleID   string `json:"rule_id,omitempty"`
	Reason   string `json:"reason"`

	Approval ApprovalMetadata `json:"approval"`

	WasCapped              bool      `json:"was_capped"`
	EffectiveDurationHours float64   `json:"effective_duration_hours,omitempty"`
	EffectiveExpiresAt     time.Time `json:"effective_expires_at,omitempty"`

	// Which hierarchy node or tag matched, e.g. "ou:ou-abcd-1111" or
	// "tag:Env=Prod".
	Evidence string `json:"evidence,omitempty"`

	// The candidate the decision was made for.
	Principal PrincipalCandidate `json:"principal"`

	EngineVersion  string `json:"engine_version"`
	RulesEvaluated int    `json:"rules_evaluated"`
	PolicyHash     string `json:"policy_hash"`
}

// model/rule.go
package model

// Target selector kinds. Anything else is treated as a non-match.
const (
	TargetKindOU  = "ou"
	TargetKindTag = "tag"
)

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// Rule is one entry of the versioned access rule file. File order is
// evaluation order; the first matching rule wins for a candidate.
type Rule struct {
	ID            string       `yaml:"id" json:"id"`
	Description   string       `yaml:"description,omitempty" json:"description,omitempty"`
	PrincipalType string       `yaml:"principal_type" json:"principal_type"`
	Effect        string       `yaml:"effect" json:"effect"`
	Target        RuleTarget   `yaml:"target" json:"target"`
	Approval      *Approval    `yaml:"approval,omitempty" json:"approval,omitempty"`
	Constraints   *Constraints `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// RuleTarget selects accounts either by hierarchy membership (kind
// "ou": the node id may sit at any ancestor level of the account) or by
// attribute match (kind "tag": the tag value must be in Values).
type RuleTarget struct {
	Kind   string   `yaml:"kind" json:"kind"`
	OUID   string   `yaml:"ou_id,omitempty" json:"ou_id,omitempty"`
	Key    string   `yaml:"key,omitempty" json:"key,omitempty"`
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// Approval is surfaced on the evaluation result, never enforced inside
// the engine. Enforcement is a workflow concern.
type Approval struct {
	Required       bool     `yaml:"required" json:"required"`
	Channel        string   `yaml:"channel,omitempty" json:"channel,omitempty"`
	ApproverGroups []string `yaml:"approver_groups,omitempty" json:"approver_groups,omitempty"`
}

type Constraints struct {
	TicketRequired   bool    `yaml:"ticket_required" json:"ticket_required"`
	MaxDurationHours float64 `yaml:"max_duration_hours,omitempty" json:"max_duration_hours,omitempty"`
}

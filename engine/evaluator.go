// engine/evaluator.go
package engine

import (
	"fmt"
	"time"

	"github.com/dev-mohitbeniwal/boundary/model"
)

// Version is stamped on every EvaluationResult.
const Version = "1.0.0"

// Evaluator is a pure decision function over a loaded ruleset. It
// performs no network or disk access and is deterministic given
// identical inputs. Anything that would normally be an error is
// converted into a DENY with an explicit reason.
type Evaluator struct {
	ruleset *Ruleset
}

func NewEvaluator(ruleset *Ruleset) *Evaluator {
	return &Evaluator{ruleset: ruleset}
}

// Evaluate walks the candidates in the given order and, for each, the
// rules in file order. The first rule that matches a candidate decides
// for that candidate: a deny returns immediately, so a deny for an
// earlier candidate always overrides an allow that a later candidate
// would have produced. Candidates that match no rule fall through to
// the next candidate.
func (e *Evaluator) Evaluate(req model.AccessRequest, actx model.AWSAccountContext, candidates []model.PrincipalCandidate) model.EvaluationResult {
	evaluated := 0

	if len(actx.OUPathIDs) == 0 {
		return e.deny(model.PrincipalCandidate{}, "", "account context incomplete: empty hierarchy path", "", evaluated)
	}
	if len(candidates) == 0 {
		return e.deny(model.PrincipalCandidate{}, "", "no principal candidates to evaluate", "", evaluated)
	}

	for _, candidate := range candidates {
		for _, rule := range e.ruleset.Rules {
			evaluated++

			if rule.PrincipalType != "" && rule.PrincipalType != candidate.Type {
				continue
			}

			matched, evidence := matchTarget(rule.Target, actx)
			if !matched {
				continue
			}

			if rule.Effect == model.EffectDeny {
				return e.deny(candidate, rule.ID,
					fmt.Sprintf("explicitly denied by rule %s", rule.ID), evidence, evaluated)
			}

			return e.allow(req, candidate, rule, evidence, evaluated)
		}
	}

	return e.deny(candidates[len(candidates)-1], "", "no matching rule for any candidate", "", evaluated)
}

// matchTarget reports whether the selector matches the account facts.
// Malformed or missing selector fields are a non-match, never a crash
// and never a grant.
func matchTarget(target model.RuleTarget, actx model.AWSAccountContext) (bool, string) {
	switch target.Kind {
	case model.TargetKindOU:
		if target.OUID == "" {
			return false, ""
		}
		for _, id := range actx.OUPathIDs {
			if id == target.OUID {
				return true, "ou:" + id
			}
		}
		return false, ""

	case model.TargetKindTag:
		if target.Key == "" || len(target.Values) == 0 {
			return false, ""
		}
		value, ok := actx.Tags[target.Key]
		if !ok {
			return false, ""
		}
		for _, allowed := range target.Values {
			if value == allowed {
				return true, fmt.Sprintf("tag:%s=%s", target.Key, value)
			}
		}
		return false, ""

	default:
		return false, ""
	}
}

func (e *Evaluator) allow(req model.AccessRequest, candidate model.PrincipalCandidate, rule model.Rule, evidence string, evaluated int) model.EvaluationResult {
	if rule.Constraints != nil && rule.Constraints.TicketRequired && req.TicketID == "" {
		return e.deny(candidate, rule.ID,
			fmt.Sprintf("rule %s requires a ticket reference and none was supplied", rule.ID),
			evidence, evaluated)
	}

	effective := req.DurationHours
	if rule.Constraints != nil && rule.Constraints.MaxDurationHours > 0 && effective > rule.Constraints.MaxDurationHours {
		effective = rule.Constraints.MaxDurationHours
	}
	if e.ruleset.GlobalMaxDurationHours > 0 && effective > e.ruleset.GlobalMaxDurationHours {
		effective = e.ruleset.GlobalMaxDurationHours
	}

	result := model.EvaluationResult{
		Decision:               model.DecisionAllow,
		RuleID:                 rule.ID,
		Reason:                 fmt.Sprintf("allowed by rule %s", rule.ID),
		WasCapped:              effective < req.DurationHours,
		EffectiveDurationHours: effective,
		EffectiveExpiresAt:     req.RequestedAt.Add(time.Duration(effective * float64(time.Hour))),
		Evidence:               evidence,
		Principal:              candidate,
		EngineVersion:          Version,
		RulesEvaluated:         evaluated,
		PolicyHash:             e.ruleset.Hash,
	}

	if rule.Approval != nil {
		result.Approval = model.ApprovalMetadata{
			Required:       rule.Approval.Required,
			Channel:        rule.Approval.Channel,
			ApproverGroups: rule.Approval.ApproverGroups,
		}
	}

	return result
}

func (e *Evaluator) deny(candidate model.PrincipalCandidate, ruleID, reason, evidence string, evaluated int) model.EvaluationResult {
	return model.EvaluationResult{
		Decision:       model.DecisionDeny,
		RuleID:         ruleID,
		Reason:         reason,
		Evidence:       evidence,
		Principal:      candidate,
		EngineVersion:  Version,
		RulesEvaluated: evaluated,
		PolicyHash:     e.ruleset.Hash,
	}
}

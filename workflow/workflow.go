// workflow/workflow.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/boundary/audit"
	"github.com/dev-mohitbeniwal/boundary/engine"
	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/model"
	"github.com/dev-mohitbeniwal/boundary/util"
)

// Command is the parsed inbound request as received from the chat
// surface, before any identity resolution has happened.
type Command struct {
	UserID      string // requester's chat identity
	Text        string // "<account-id> <permission-set-arn> <hours> [ticket]"
	ResponseURL string
	ChannelID   string
	DryRun      bool
}

// Result is what the orchestrator hands back to the transport layer.
// Decision maps to the process exit code in one-shot mode: ALLOW=0,
// DENY=2, ERROR=3.
type Result struct {
	Decision   string
	Reason     string
	RequestID  string
	Evaluation model.EvaluationResult
}

// Resolver is one hop of the identity translation chain.
type Resolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// GroupLister returns the directory groups a resolved user belongs to.
type GroupLister interface {
	GroupIDs(ctx context.Context, userID string) ([]string, error)
}

// ContextBuilder gathers the account facts for policy evaluation.
type ContextBuilder interface {
	BuildAccountContext(ctx context.Context, accountID string) (model.AWSAccountContext, error)
}

// Store persists grant records.
type Store interface {
	Create(ctx context.Context, record *model.AccessRecord) error
	MarkActive(ctx context.Context, requestID string) error
	MarkError(ctx context.Context, requestID string, reason string) error
}

// Provisioner mutates account assignments.
type Provisioner interface {
	Assign(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error
	Revoke(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error
	PermissionSetName(ctx context.Context, instanceArn, permissionSetArn string) (string, error)
}

// Notifier delivers the outcome back to the requester. Best-effort;
// failures never change the decision.
type Notifier interface {
	Notify(ctx context.Context, responseURL, message string, success bool) error
}

// Orchestrator runs one request through the full pipeline: parse,
// resolve, gather context, evaluate, persist, provision, notify. The
// record is always written before the grant mutation so a crash in
// between leaves a PENDING record instead of an untracked assignment.
type Orchestrator struct {
	emailResolver  Resolver
	userIDResolver Resolver
	groups         GroupLister
	contextBuilder ContextBuilder
	evaluator      *engine.Evaluator
	store          Store
	provisioner    Provisioner
	notifier       Notifier
	auditor        audit.Service
	events         *util.EventBus
	validator      *util.ValidationUtil
	instanceArn    string
	now            func() time.Time
}

func NewOrchestrator(
	emailResolver Resolver,
	userIDResolver Resolver,
	groups GroupLister,
	contextBuilder ContextBuilder,
	evaluator *engine.Evaluator,
	store Store,
	provisioner Provisioner,
	notifier Notifier,
	auditor audit.Service,
	events *util.EventBus,
	instanceArn string,
) *Orchestrator {
	return &Orchestrator{
		emailResolver:  emailResolver,
		userIDResolver: userIDResolver,
		groups:         groups,
		contextBuilder: contextBuilder,
		evaluator:      evaluator,
		store:          store,
		provisioner:    provisioner,
		notifier:       notifier,
		auditor:        auditor,
		events:         events,
		validator:      util.NewValidationUtil(),
		instanceArn:    instanceArn,
		now:            time.Now,
	}
}

// ProcessCommand drives one request end to end and always returns a
// terminal Result; pipeline failures become ERROR results, never
// panics. Messages sent back to the requester are generic; specifics
// stay in the logs and audit trail.
func (o *Orchestrator) ProcessCommand(ctx context.Context, cmd Command) Result {
	req, err := o.parse(cmd)
	if err != nil {
		logger.Warn("Rejected malformed command", zap.Error(err))
		o.notify(ctx, cmd, "Your request could not be understood. Usage: /boundary <account-id> <permission-set-arn> <hours> [ticket]", false)
		return Result{Decision: model.DecisionError, Reason: err.Error()}
	}

	candidates, errResult := o.resolveCandidates(ctx, cmd, req)
	if errResult != nil {
		return *errResult
	}
	if len(candidates) == 0 {
		reason := "requester belongs to no directory group"
		o.recordDecision(ctx, "", req, model.EvaluationResult{
			Decision:      model.DecisionDeny,
			Reason:        reason,
			EngineVersion: engine.Version,
		})
		o.notify(ctx, cmd, "Access denied.", false)
		o.events.Publish(ctx, util.EventAccessDenied, req.AccountID)
		return Result{Decision: model.DecisionDeny, Reason: fmt.Sprintf("%s: %v", reason, boundary_errors.ErrNoEligibleGroup)}
	}

	actx, err := o.contextBuilder.BuildAccountContext(ctx, req.AccountID)
	if err != nil {
		logger.Error("Account context build failed", zap.String("accountID", req.AccountID), zap.Error(err))
		o.notify(ctx, cmd, "Your request could not be processed. Please try again later.", false)
		return Result{Decision: model.DecisionError, Reason: err.Error()}
	}

	// Each group is evaluated on its own; the first ALLOW wins. Every
	// evaluation is recorded, including the denials along the way.
	requestID := uuid.NewString()
	var final model.EvaluationResult
	for _, candidate := range candidates {
		result := o.evaluator.Evaluate(req, actx, []model.PrincipalCandidate{candidate})
		o.recordDecision(ctx, requestID, req, result)
		final = result
		if result.Decision == model.DecisionAllow {
			break
		}
	}

	if final.Decision != model.DecisionAllow {
		o.notify(ctx, cmd, "Access denied.", false)
		o.events.Publish(ctx, util.EventAccessDenied, req.AccountID)
		return Result{Decision: model.DecisionDeny, Reason: final.Reason, RequestID: requestID, Evaluation: final}
	}

	if cmd.DryRun {
		logger.Info("Dry run: skipping persistence and provisioning",
			zap.String("requestID", requestID),
			zap.String("ruleID", final.RuleID))
		return Result{Decision: model.DecisionAllow, Reason: "dry run: " + final.Reason, RequestID: requestID, Evaluation: final}
	}

	record := &model.AccessRecord{
		RequestID:        requestID,
		PrincipalID:      final.Principal.ID,
		PrincipalType:    final.Principal.Type,
		AccountID:        req.AccountID,
		PermissionSetArn: req.PermissionSetArn,
		InstanceArn:      o.instanceArn,
		RuleID:           final.RuleID,
		Status:           model.StatusPending,
		TicketID:         req.TicketID,
		RequestedAt:      req.RequestedAt.Unix(),
		ExpiresAt:        final.EffectiveExpiresAt.Unix(),
		ResponseURL:      cmd.ResponseURL,
		ChannelID:        cmd.ChannelID,
	}
	if err := o.store.Create(ctx, record); err != nil {
		logger.Error("Failed to persist access record", zap.String("requestID", requestID), zap.Error(err))
		o.notify(ctx, cmd, "Your request could not be processed. Please try again later.", false)
		return Result{Decision: model.DecisionError, Reason: err.Error(), RequestID: requestID, Evaluation: final}
	}

	if final.Approval.Required {
		o.events.Publish(ctx, util.EventApprovalPending, record)
		o.notify(ctx, cmd, "Your request requires approval and has been queued.", true)
		return Result{Decision: model.DecisionAllow, Reason: "pending approval", RequestID: requestID, Evaluation: final}
	}

	return o.provision(ctx, cmd, record, final)
}

// provision creates the assignment and activates the record. A failure
// after the record exists moves it to ERROR; a failure between the
// assignment and activation triggers a best-effort rollback so no
// grant outlives its record.
func (o *Orchestrator) provision(ctx context.Context, cmd Command, record *model.AccessRecord, final model.EvaluationResult) Result {
	err := o.provisioner.Assign(ctx, record.InstanceArn, record.PrincipalID, record.PrincipalType, record.AccountID, record.PermissionSetArn)
	if err != nil {
		logger.Error("Provisioning failed", zap.String("requestID", record.RequestID), zap.Error(err))
		if markErr := o.store.MarkError(ctx, record.RequestID, "provisioning failed"); markErr != nil {
			logger.Error("Failed to mark record as error", zap.String("requestID", record.RequestID), zap.Error(markErr))
		}
		o.notify(ctx, cmd, "Your request could not be processed. Please try again later.", false)
		return Result{Decision: model.DecisionError, Reason: err.Error(), RequestID: record.RequestID, Evaluation: final}
	}

	if err := o.store.MarkActive(ctx, record.RequestID); err != nil {
		logger.Error("Failed to activate record, rolling back assignment",
			zap.String("requestID", record.RequestID), zap.Error(err))
		if revokeErr := o.provisioner.Revoke(ctx, record.InstanceArn, record.PrincipalID, record.PrincipalType, record.AccountID, record.PermissionSetArn); revokeErr != nil {
			logger.Error("Rollback revocation failed", zap.String("requestID", record.RequestID), zap.Error(revokeErr))
		}
		if markErr := o.store.MarkError(ctx, record.RequestID, "activation failed"); markErr != nil {
			logger.Error("Failed to mark record as error", zap.String("requestID", record.RequestID), zap.Error(markErr))
		}
		o.notify(ctx, cmd, "Your request could not be processed. Please try again later.", false)
		return Result{Decision: model.DecisionError, Reason: err.Error(), RequestID: record.RequestID, Evaluation: final}
	}

	psName := record.PermissionSetArn
	if name, err := o.provisioner.PermissionSetName(ctx, record.InstanceArn, record.PermissionSetArn); err == nil {
		psName = name
	}
	record.PermissionSetName = psName

	expires := final.EffectiveExpiresAt.UTC().Format(time.RFC3339)
	message := fmt.Sprintf("Access granted to account %s with %s until %s.", record.AccountID, psName, expires)
	if final.WasCapped {
		message += fmt.Sprintf(" The requested duration was reduced to %.1f hours by policy.", final.EffectiveDurationHours)
	}
	o.notify(ctx, cmd, message, true)
	o.events.Publish(ctx, util.EventAccessGranted, record)

	logger.Info("Access granted",
		zap.String("requestID", record.RequestID),
		zap.String("accountID", record.AccountID),
		zap.String("ruleID", record.RuleID))

	return Result{Decision: model.DecisionAllow, Reason: final.Reason, RequestID: record.RequestID, Evaluation: final}
}

// parse turns the command text into an immutable AccessRequest.
func (o *Orchestrator) parse(cmd Command) (model.AccessRequest, error) {
	fields := strings.Fields(cmd.Text)
	if len(fields) < 3 || len(fields) > 4 {
		return model.AccessRequest{}, fmt.Errorf("expected '<account-id> <permission-set-arn> <hours> [ticket]': %w", boundary_errors.ErrInvalidInput)
	}

	accountID, permissionSetArn, hoursField := fields[0], fields[1], fields[2]
	if err := o.validator.ValidateAccountID(accountID); err != nil {
		return model.AccessRequest{}, fmt.Errorf("%v: %w", err, boundary_errors.ErrInvalidInput)
	}
	if err := o.validator.ValidateARN(permissionSetArn); err != nil {
		return model.AccessRequest{}, fmt.Errorf("%v: %w", err, boundary_errors.ErrInvalidInput)
	}

	hours, err := strconv.ParseFloat(hoursField, 64)
	if err != nil {
		return model.AccessRequest{}, fmt.Errorf("unparseable duration %q: %w", hoursField, boundary_errors.ErrInvalidInput)
	}
	if err := o.validator.ValidateDuration(hours); err != nil {
		return model.AccessRequest{}, fmt.Errorf("%v: %w", err, boundary_errors.ErrInvalidInput)
	}

	req := model.AccessRequest{
		RequesterID:      cmd.UserID,
		AccountID:        accountID,
		PermissionSetArn: permissionSetArn,
		InstanceArn:      o.instanceArn,
		DurationHours:    hours,
		RequestedAt:      o.now(),
	}
	if len(fields) == 4 {
		req.TicketID = fields[3]
	}
	return req, nil
}

// resolveCandidates runs the translation chain: chat identity to
// email, email to directory user id, user id to group memberships. Any
// hop failing is an ERROR result; the system never guesses identities.
func (o *Orchestrator) resolveCandidates(ctx context.Context, cmd Command, req model.AccessRequest) ([]model.PrincipalCandidate, *Result) {
	email, err := o.emailResolver.Resolve(ctx, cmd.UserID)
	if err != nil {
		return nil, o.resolutionFailure(ctx, cmd, "resolving requester email", err)
	}

	userID, err := o.userIDResolver.Resolve(ctx, email)
	if err != nil {
		return nil, o.resolutionFailure(ctx, cmd, "resolving directory user id", err)
	}

	groupIDs, err := o.groups.GroupIDs(ctx, userID)
	if err != nil {
		return nil, o.resolutionFailure(ctx, cmd, "listing group memberships", err)
	}

	candidates := make([]model.PrincipalCandidate, 0, len(groupIDs))
	for _, id := range groupIDs {
		candidates = append(candidates, model.PrincipalCandidate{Type: model.PrincipalTypeGroup, ID: id})
	}
	return candidates, nil
}

func (o *Orchestrator) resolutionFailure(ctx context.Context, cmd Command, step string, err error) *Result {
	logger.Error("Identity resolution failed", zap.String("step", step), zap.Error(err))
	if errors.Is(err, boundary_errors.ErrInvalidInput) {
		o.notify(ctx, cmd, "Your request could not be understood.", false)
	} else {
		o.notify(ctx, cmd, "Your request could not be processed. Please try again later.", false)
	}
	return &Result{Decision: model.DecisionError, Reason: fmt.Sprintf("%s: %v", step, err)}
}

func (o *Orchestrator) recordDecision(ctx context.Context, requestID string, req model.AccessRequest, result model.EvaluationResult) {
	artifact := audit.NewArtifact(requestID, req, result, o.now())
	// Recording is best-effort; the service logs its own failures.
	_ = o.auditor.Record(ctx, artifact)
}

func (o *Orchestrator) notify(ctx context.Context, cmd Command, message string, success bool) {
	if cmd.ResponseURL == "" {
		return
	}
	if err := o.notifier.Notify(ctx, cmd.ResponseURL, message, success); err != nil {
		logger.Warn("Outcome notification failed", zap.Error(err))
	}
}

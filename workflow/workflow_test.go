package workflow_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/boundary/engine"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/model"
	"github.com/dev-mohitbeniwal/boundary/test/mock"
	"github.com/dev-mohitbeniwal/boundary/util"
	"github.com/dev-mohitbeniwal/boundary/workflow"
)

func TestMain(m *testing.M) {
	logger.InitLogger(".")
	code := m.Run()
	os.Remove("boundary.log")
	os.Remove("boundary_error.log")
	os.Exit(code)
}

const (
	instanceArn = "arn:aws:sso:::instance/ssoins-1"
	psArn       = "arn:aws:sso:::permissionSet/ssoins-1/ps-1"
	accountID   = "123456789012"
	responseURL = "https://hooks.slack.com/commands/T1/123/abc"
)

type fixture struct {
	email       *mock.MockResolver
	userID      *mock.MockResolver
	groups      *mock.MockGroupLister
	contextB    *mock.MockContextBuilder
	store       *mock.MockStore
	provisioner *mock.MockProvisioner
	notifier    *mock.MockNotifier
	auditor     *mock.MockAuditService
	orch        *workflow.Orchestrator
}

func newFixture(t *testing.T, ruleset *engine.Ruleset) *fixture {
	t.Helper()
	f := &fixture{
		email:       new(mock.MockResolver),
		userID:      new(mock.MockResolver),
		groups:      new(mock.MockGroupLister),
		contextB:    new(mock.MockContextBuilder),
		store:       new(mock.MockStore),
		provisioner: new(mock.MockProvisioner),
		notifier:    new(mock.MockNotifier),
		auditor:     new(mock.MockAuditService),
	}
	f.orch = workflow.NewOrchestrator(
		f.email, f.userID, f.groups, f.contextB,
		engine.NewEvaluator(ruleset),
		f.store, f.provisioner, f.notifier, f.auditor,
		util.NewEventBus(), instanceArn,
	)
	return f
}

func allowRuleset() *engine.Ruleset {
	return &engine.Ruleset{
		Hash: "testhash",
		Rules: []model.Rule{
			{
				ID:            "sandbox-allow",
				PrincipalType: model.PrincipalTypeGroup,
				Effect:        model.EffectAllow,
				Target:        model.RuleTarget{Kind: model.TargetKindOU, OUID: "ou-sandbox"},
			},
		},
		GlobalMaxDurationHours: 8,
	}
}

func denyRuleset() *engine.Ruleset {
	rs := allowRuleset()
	rs.Rules = []model.Rule{
		{
			ID:            "prod-deny",
			PrincipalType: model.PrincipalTypeGroup,
			Effect:        model.EffectDeny,
			Target:        model.RuleTarget{Kind: model.TargetKindOU, OUID: "ou-sandbox"},
		},
	}
	return rs
}

func sandboxContext() model.AWSAccountContext {
	return model.AWSAccountContext{OUPathIDs: []string{"r-root", "ou-sandbox"}}
}

func command() workflow.Command {
	return workflow.Command{
		UserID:      "U12345ABC",
		Text:        accountID + " " + psArn + " 2",
		ResponseURL: responseURL,
	}
}

func (f *fixture) stubHappyResolution() {
	f.email.On("Resolve", testifymock.Anything, "U12345ABC").Return("user@example.com", nil)
	f.userID.On("Resolve", testifymock.Anything, "user@example.com").Return("idc-user-1", nil)
	f.groups.On("GroupIDs", testifymock.Anything, "idc-user-1").Return([]string{"g-1"}, nil)
	f.auditor.On("Record", testifymock.Anything, testifymock.Anything).Return(nil)
	f.notifier.On("Notify", testifymock.Anything, responseURL, testifymock.Anything, testifymock.Anything).Return(nil)
}

func TestProcessCommand_GrantPath(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)
	f.store.On("Create", testifymock.Anything, testifymock.Anything).Return(nil)
	f.provisioner.On("Assign", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn).Return(nil)
	f.store.On("MarkActive", testifymock.Anything, testifymock.Anything).Return(nil)
	f.provisioner.On("PermissionSetName", testifymock.Anything, instanceArn, psArn).Return("SandboxAccess", nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionAllow, result.Decision)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "sandbox-allow", result.Evaluation.RuleID)

	// Record written before provisioning, and PENDING at write time.
	created := f.store.Calls[0]
	require.Equal(t, "Create", created.Method)
	record := created.Arguments.Get(1).(*model.AccessRecord)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Equal(t, "g-1", record.PrincipalID)
	f.provisioner.AssertCalled(t, "Assign", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn)
	f.store.AssertCalled(t, "MarkActive", testifymock.Anything, record.RequestID)
}

func TestProcessCommand_MalformedTextIsError(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.notifier.On("Notify", testifymock.Anything, responseURL, testifymock.Anything, false).Return(nil)

	cmd := command()
	cmd.Text = "not-an-account"
	result := f.orch.ProcessCommand(context.Background(), cmd)

	assert.Equal(t, model.DecisionError, result.Decision)
	f.email.AssertNotCalled(t, "Resolve", testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_NoGroupsDenies(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.email.On("Resolve", testifymock.Anything, "U12345ABC").Return("user@example.com", nil)
	f.userID.On("Resolve", testifymock.Anything, "user@example.com").Return("idc-user-1", nil)
	f.groups.On("GroupIDs", testifymock.Anything, "idc-user-1").Return([]string{}, nil)
	f.auditor.On("Record", testifymock.Anything, testifymock.Anything).Return(nil)
	f.notifier.On("Notify", testifymock.Anything, responseURL, testifymock.Anything, false).Return(nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionDeny, result.Decision)
	f.contextB.AssertNotCalled(t, "BuildAccountContext", testifymock.Anything, testifymock.Anything)
	f.auditor.AssertNumberOfCalls(t, "Record", 1)
}

func TestProcessCommand_ResolutionFailureIsError(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.email.On("Resolve", testifymock.Anything, "U12345ABC").Return("", errors.New("directory down"))
	f.notifier.On("Notify", testifymock.Anything, responseURL, testifymock.Anything, false).Return(nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionError, result.Decision)
	f.store.AssertNotCalled(t, "Create", testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_ContextBuildFailureIsError(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(model.AWSAccountContext{}, errors.New("hierarchy broken"))

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionError, result.Decision)
	f.store.AssertNotCalled(t, "Create", testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_DenyNeverTouchesStoreOrProvisioner(t *testing.T) {
	f := newFixture(t, denyRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionDeny, result.Decision)
	assert.Equal(t, "prod-deny", result.Evaluation.RuleID)
	f.store.AssertNotCalled(t, "Create", testifymock.Anything, testifymock.Anything)
	f.provisioner.AssertNotCalled(t, "Assign", testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_FirstAllowingGroupWins(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.email.On("Resolve", testifymock.Anything, "U12345ABC").Return("user@example.com", nil)
	f.userID.On("Resolve", testifymock.Anything, "user@example.com").Return("idc-user-1", nil)
	f.groups.On("GroupIDs", testifymock.Anything, "idc-user-1").Return([]string{"g-1", "g-2"}, nil)
	f.auditor.On("Record", testifymock.Anything, testifymock.Anything).Return(nil)
	f.notifier.On("Notify", testifymock.Anything, responseURL, testifymock.Anything, testifymock.Anything).Return(nil)
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)
	f.store.On("Create", testifymock.Anything, testifymock.Anything).Return(nil)
	f.provisioner.On("Assign", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn).Return(nil)
	f.store.On("MarkActive", testifymock.Anything, testifymock.Anything).Return(nil)
	f.provisioner.On("PermissionSetName", testifymock.Anything, instanceArn, psArn).Return("SandboxAccess", nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionAllow, result.Decision)
	assert.Equal(t, "g-1", result.Evaluation.Principal.ID)
	// g-2 is never evaluated, so exactly one artifact is recorded.
	f.auditor.AssertNumberOfCalls(t, "Record", 1)
}

func TestProcessCommand_ProvisioningFailureMarksError(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)
	f.store.On("Create", testifymock.Anything, testifymock.Anything).Return(nil)
	f.provisioner.On("Assign", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn).Return(errors.New("sso unavailable"))
	f.store.On("MarkError", testifymock.Anything, testifymock.Anything, "provisioning failed").Return(nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionError, result.Decision)
	f.store.AssertCalled(t, "MarkError", testifymock.Anything, result.RequestID, "provisioning failed")
	f.store.AssertNotCalled(t, "MarkActive", testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_ActivationFailureRollsBackAssignment(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)
	f.store.On("Create", testifymock.Anything, testifymock.Anything).Return(nil)
	f.provisioner.On("Assign", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn).Return(nil)
	f.store.On("MarkActive", testifymock.Anything, testifymock.Anything).Return(errors.New("conditional check failed"))
	f.provisioner.On("Revoke", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn).Return(nil)
	f.store.On("MarkError", testifymock.Anything, testifymock.Anything, "activation failed").Return(nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionError, result.Decision)
	f.provisioner.AssertCalled(t, "Revoke", testifymock.Anything, instanceArn, "g-1", model.PrincipalTypeGroup, accountID, psArn)
}

func TestProcessCommand_ApprovalRequiredLeavesPending(t *testing.T) {
	rs := allowRuleset()
	rs.Rules[0].Approval = &model.Approval{Required: true, Channel: "#access-approvals"}
	f := newFixture(t, rs)
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)
	f.store.On("Create", testifymock.Anything, testifymock.Anything).Return(nil)

	result := f.orch.ProcessCommand(context.Background(), command())

	assert.Equal(t, model.DecisionAllow, result.Decision)
	assert.Equal(t, "pending approval", result.Reason)
	f.provisioner.AssertNotCalled(t, "Assign", testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
	f.store.AssertNotCalled(t, "MarkActive", testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_DryRunSkipsPersistenceAndProvisioning(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)

	cmd := command()
	cmd.DryRun = true
	result := f.orch.ProcessCommand(context.Background(), cmd)

	assert.Equal(t, model.DecisionAllow, result.Decision)
	f.store.AssertNotCalled(t, "Create", testifymock.Anything, testifymock.Anything)
	f.provisioner.AssertNotCalled(t, "Assign", testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestProcessCommand_CappedDurationReflectedInResult(t *testing.T) {
	f := newFixture(t, allowRuleset())
	f.stubHappyResolution()
	f.contextB.On("BuildAccountContext", testifymock.Anything, accountID).Return(sandboxContext(), nil)

	cmd := command()
	cmd.Text = accountID + " " + psArn + " 24"
	cmd.DryRun = true
	result := f.orch.ProcessCommand(context.Background(), cmd)

	assert.Equal(t, model.DecisionAllow, result.Decision)
	assert.True(t, result.Evaluation.WasCapped)
	assert.Equal(t, 8.0, result.Evaluation.EffectiveDurationHours)
}

// test/mock/mocks.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/boundary/audit"
	"github.com/dev-mohitbeniwal/boundary/model"
)

// MockResolver is a mock implementation of workflow.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// MockGroupLister is a mock implementation of workflow.GroupLister
type MockGroupLister struct {
	mock.Mock
}

func (m *MockGroupLister) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockContextBuilder is a mock implementation of workflow.ContextBuilder
type MockContextBuilder struct {
	mock.Mock
}

func (m *MockContextBuilder) BuildAccountContext(ctx context.Context, accountID string) (model.AWSAccountContext, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(model.AWSAccountContext), args.Error(1)
}

// MockStore is a mock implementation of the store interfaces used by
// the workflow and janitor.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, record *model.AccessRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStore) MarkActive(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *MockStore) MarkRevoked(ctx context.Context, requestID string, revokedAt time.Time) error {
	args := m.Called(ctx, requestID, revokedAt)
	return args.Error(0)
}

func (m *MockStore) MarkError(ctx context.Context, requestID string, reason string) error {
	args := m.Called(ctx, requestID, reason)
	return args.Error(0)
}

func (m *MockStore) RecordRevokeFailure(ctx context.Context, requestID string) (int, error) {
	args := m.Called(ctx, requestID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ExpiredActive(ctx context.Context, now time.Time) ([]model.AccessRecord, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessRecord), args.Error(1)
}

// MockProvisioner is a mock implementation of workflow.Provisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Assign(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error {
	args := m.Called(ctx, instanceArn, principalID, principalType, accountID, permissionSetArn)
	return args.Error(0)
}

func (m *MockProvisioner) Revoke(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error {
	args := m.Called(ctx, instanceArn, principalID, principalType, accountID, permissionSetArn)
	return args.Error(0)
}

func (m *MockProvisioner) PermissionSetName(ctx context.Context, instanceArn, permissionSetArn string) (string, error) {
	args := m.Called(ctx, instanceArn, permissionSetArn)
	return args.String(0), args.Error(1)
}

// MockNotifier is a mock implementation of workflow.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, responseURL, message string, success bool) error {
	args := m.Called(ctx, responseURL, message, success)
	return args.Error(0)
}

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, artifact audit.Artifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

package store_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/model"
	"github.com/dev-mohitbeniwal/boundary/store"
)

func TestMain(m *testing.M) {
	logger.InitLogger(".")
	code := m.Run()
	os.Remove("boundary.log")
	os.Remove("boundary_error.log")
	os.Exit(code)
}

type fakeDynamoAPI struct {
	putErr    error
	updateErr error
	updateOut *dynamodb.UpdateItemOutput
	queryOut  []*dynamodb.QueryOutput
	queryErr  error
	queryCall int

	lastPut    *dynamodb.PutItemInput
	lastUpdate *dynamodb.UpdateItemInput
	lastQuery  *dynamodb.QueryInput
}

func (f *fakeDynamoAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = params
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = params
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateOut != nil {
		return f.updateOut, nil
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamoAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQuery = params
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := f.queryOut[f.queryCall]
	f.queryCall++
	return out, nil
}

func sampleRecord() *model.AccessRecord {
	return &model.AccessRecord{
		RequestID:        "req-1",
		PrincipalID:      "g-1",
		PrincipalType:    "GROUP",
		AccountID:        "123456789012",
		PermissionSetArn: "arn:aws:sso:::permissionSet/ps-1",
		InstanceArn:      "arn:aws:sso:::instance/ssoins-1",
		Status:           model.StatusPending,
		RequestedAt:      1700000000,
		ExpiresAt:        1700014400,
	}
}

func TestCreate_SetsRetentionTTLAndCondition(t *testing.T) {
	api := &fakeDynamoAPI{}
	s := store.NewAccessStore(api, "boundary-access-requests")
	rec := sampleRecord()

	require.NoError(t, s.Create(context.Background(), rec))

	assert.Equal(t, rec.ExpiresAt+90*24*3600, rec.TTL)
	assert.Equal(t, "boundary-access-requests", *api.lastPut.TableName)
	assert.NotNil(t, api.lastPut.ConditionExpression)
	assert.Contains(t, *api.lastPut.ConditionExpression, "attribute_not_exists")
}

func TestCreate_DuplicateRequestIDConflicts(t *testing.T) {
	api := &fakeDynamoAPI{putErr: &dynamotypes.ConditionalCheckFailedException{}}
	s := store.NewAccessStore(api, "t")

	err := s.Create(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, boundary_errors.ErrRecordConflict)
}

func TestMarkActive_RequiresPendingStatus(t *testing.T) {
	api := &fakeDynamoAPI{}
	s := store.NewAccessStore(api, "t")

	require.NoError(t, s.MarkActive(context.Background(), "req-1"))
	assert.NotNil(t, api.lastUpdate.ConditionExpression)

	api.updateErr = &dynamotypes.ConditionalCheckFailedException{}
	err := s.MarkActive(context.Background(), "req-1")
	assert.ErrorIs(t, err, boundary_errors.ErrRecordConflict)
}

func TestMarkRevoked_StampsRevocationTime(t *testing.T) {
	api := &fakeDynamoAPI{}
	s := store.NewAccessStore(api, "t")

	revokedAt := time.Unix(1700020000, 0)
	require.NoError(t, s.MarkRevoked(context.Background(), "req-1", revokedAt))

	found := false
	for _, v := range api.lastUpdate.ExpressionAttributeValues {
		if n, ok := v.(*dynamotypes.AttributeValueMemberN); ok && n.Value == "1700020000" {
			found = true
		}
	}
	assert.True(t, found, "revoked_at should be written as epoch seconds")
}

func TestRecordRevokeFailure_ReturnsNewCount(t *testing.T) {
	api := &fakeDynamoAPI{
		updateOut: &dynamodb.UpdateItemOutput{
			Attributes: map[string]dynamotypes.AttributeValue{
				"revoke_attempts": &dynamotypes.AttributeValueMemberN{Value: "3"},
			},
		},
	}
	s := store.NewAccessStore(api, "t")

	attempts, err := s.RecordRevokeFailure(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, dynamotypes.ReturnValueUpdatedNew, api.lastUpdate.ReturnValues)
}

func TestExpiredActive_PaginatesIndex(t *testing.T) {
	item := func(id string) map[string]dynamotypes.AttributeValue {
		return map[string]dynamotypes.AttributeValue{
			"request_id": &dynamotypes.AttributeValueMemberS{Value: id},
			"status":     &dynamotypes.AttributeValueMemberS{Value: model.StatusActive},
		}
	}
	api := &fakeDynamoAPI{
		queryOut: []*dynamodb.QueryOutput{
			{
				Items:            []map[string]dynamotypes.AttributeValue{item("req-1")},
				LastEvaluatedKey: item("req-1"),
			},
			{
				Items: []map[string]dynamotypes.AttributeValue{item("req-2")},
			},
		},
	}
	s := store.NewAccessStore(api, "t")

	records, err := s.ExpiredActive(context.Background(), time.Unix(1700020000, 0))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "req-1", records[0].RequestID)
	assert.Equal(t, "req-2", records[1].RequestID)
	assert.Equal(t, "ExpirationIndex", *api.lastQuery.IndexName)
	assert.Equal(t, 2, api.queryCall)
}

func TestExpiredActive_QueryErrorPropagates(t *testing.T) {
	api := &fakeDynamoAPI{queryErr: errors.New("throttled")}
	s := store.NewAccessStore(api, "t")

	_, err := s.ExpiredActive(context.Background(), time.Now())
	assert.Error(t, err)
}

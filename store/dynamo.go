// store/dynamo.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/model"
)

// expirationIndex projects status and expires_at so the janitor can
// find overdue grants without scanning the table.
const expirationIndex = "ExpirationIndex"

// retentionAfterExpiry is how long a record outlives its grant before
// the table's TTL expunges it. Storage hygiene, not lifecycle.
const retentionAfterExpiry = 90 * 24 * time.Hour

// DynamoAPI is the slice of the DynamoDB client the store needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AccessStore persists grant records and enforces the forward-only
// status transitions with conditional writes. A lost condition means a
// concurrent writer got there first; callers treat it as a conflict,
// not a retry.
type AccessStore struct {
	api   DynamoAPI
	table string
}

func NewAccessStore(api DynamoAPI, table string) *AccessStore {
	return &AccessStore{api: api, table: table}
}

// Create writes a new record, refusing to overwrite an existing
// request id. The record is written before any grant mutation so a
// crash can never leave an untracked assignment.
func (s *AccessStore) Create(ctx context.Context, record *model.AccessRecord) error {
	record.TTL = record.ExpiresAt + int64(retentionAfterExpiry.Seconds())

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling access record: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("request_id"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("building create condition: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condFailed *dynamotypes.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return fmt.Errorf("request %s already exists: %w", record.RequestID, boundary_errors.ErrRecordConflict)
		}
		return fmt.Errorf("creating access record %s: %w", record.RequestID, err)
	}

	logger.Info("Access record created", zap.String("requestID", record.RequestID), zap.String("status", record.Status))
	return nil
}

// MarkActive transitions PENDING -> ACTIVE after the assignment exists
// in AWS.
func (s *AccessStore) MarkActive(ctx context.Context, requestID string) error {
	return s.transition(ctx, requestID, model.StatusPending, model.StatusActive, nil)
}

// MarkRevoked transitions ACTIVE -> REVOKED and stamps the revocation
// time.
func (s *AccessStore) MarkRevoked(ctx context.Context, requestID string, revokedAt time.Time) error {
	extra := map[string]interface{}{"revoked_at": revokedAt.Unix()}
	return s.transition(ctx, requestID, model.StatusActive, model.StatusRevoked, extra)
}

// MarkError moves a record into the terminal ERROR state from any
// prior status. Used when provisioning fails after the record was
// written, and by the janitor after it gives up on revocation.
func (s *AccessStore) MarkError(ctx context.Context, requestID string, reason string) error {
	update := expression.Set(expression.Name("status"), expression.Value(model.StatusError)).
		Set(expression.Name("error_reason"), expression.Value(reason))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("building error update: %w", err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       recordKey(requestID),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("marking record %s as error: %w", requestID, err)
	}

	logger.Warn("Access record marked as error", zap.String("requestID", requestID), zap.String("reason", reason))
	return nil
}

// RecordRevokeFailure increments the revocation attempt counter and
// returns the new count so the janitor can decide when to escalate.
func (s *AccessStore) RecordRevokeFailure(ctx context.Context, requestID string) (int, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              recordKey(requestID),
		UpdateExpression: aws.String("ADD revoke_attempts :one"),
		ExpressionAttributeValues: map[string]dynamotypes.AttributeValue{
			":one": &dynamotypes.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: dynamotypes.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("recording revoke failure for %s: %w", requestID, err)
	}

	attr, ok := out.Attributes["revoke_attempts"]
	if !ok {
		return 0, fmt.Errorf("revoke_attempts missing from update response for %s", requestID)
	}
	n, ok := attr.(*dynamotypes.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("revoke_attempts has unexpected type for %s", requestID)
	}
	attempts, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parsing revoke_attempts for %s: %w", requestID, err)
	}
	return attempts, nil
}

// ExpiredActive returns every ACTIVE record whose expiry is at or
// before now, paginating the index fully so no overdue grant is
// skipped.
func (s *AccessStore) ExpiredActive(ctx context.Context, now time.Time) ([]model.AccessRecord, error) {
	keyCond := expression.Key("status").Equal(expression.Value(model.StatusActive)).
		And(expression.Key("expires_at").LessThanEqual(expression.Value(now.Unix())))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("building expiry query: %w", err)
	}

	var records []model.AccessRecord
	var startKey map[string]dynamotypes.AttributeValue

	for {
		out, err := s.api.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			IndexName:                 aws.String(expirationIndex),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying expired grants: %w", err)
		}

		var page []model.AccessRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling expired grants: %w", err)
		}
		records = append(records, page...)

		if out.LastEvaluatedKey == nil {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// transition performs a conditional status change. The condition pins
// the expected prior status so a stale writer cannot regress the
// lifecycle.
func (s *AccessStore) transition(ctx context.Context, requestID, from, to string, extra map[string]interface{}) error {
	update := expression.Set(expression.Name("status"), expression.Value(to))
	for name, value := range extra {
		update = update.Set(expression.Name(name), expression.Value(value))
	}
	cond := expression.Equal(expression.Name("status"), expression.Value(from))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("building transition expression: %w", err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       recordKey(requestID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condFailed *dynamotypes.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return fmt.Errorf("record %s is not %s: %w", requestID, from, boundary_errors.ErrRecordConflict)
		}
		return fmt.Errorf("transitioning record %s to %s: %w", requestID, to, err)
	}

	logger.Info("Access record transitioned", zap.String("requestID", requestID), zap.String("from", from), zap.String("to", to))
	return nil
}

func recordKey(requestID string) map[string]dynamotypes.AttributeValue {
	return map[string]dynamotypes.AttributeValue{
		"request_id": &dynamotypes.AttributeValueMemberS{Value: requestID},
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/waffleclaw/xray/internal/awsx"
)

// conditionFailed reports whether err is DynamoDB telling us a
// ConditionExpression did not hold. The SDK surfaces this either as the
// typed exception or as a generic coded API error depending on the call
// path, so both are checked.
func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

// statusIndex is the GSI used to find pending sessions in FIFO order
// (partition key: status, sort key: created_at).
const statusIndex = "status-created-index"

// hashKeyPrefix namespaces the payment-hash reverse-lookup items so they
// live in the same table as the sessions without key collisions.
const hashKeyPrefix = "hash#"

// claimRetries bounds the optimistic loop in ClaimOldestPending.
const claimRetries = 5

// DynamoStore implements Store on a single DynamoDB table. Each session is
// one item keyed by session_id; each payment hash gets a reverse-lookup
// item keyed by "hash#<hash>" pointing back at the session id. Both are
// written in one TransactWriteItems guarded by attribute_not_exists, which
// is what makes id and hash uniqueness atomic.
type DynamoStore struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoStore creates a session store bound to a table.
func NewDynamoStore(client awsx.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// hashLookupItem is the reverse-lookup record payment webhooks resolve by.
type hashLookupItem struct {
	SessionID string `dynamodbav:"session_id"` // PK: "hash#<payment_hash>"
	RefID     string `dynamodbav:"ref_id"`     // the real session id
}

func (s *DynamoStore) Create(ctx context.Context, sess Session) error {
	sessMap, err := attributevalue.MarshalMap(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	lookup := hashLookupItem{
		SessionID: hashKeyPrefix + sess.PaymentHash,
		RefID:     sess.ID,
	}
	lookupMap, err := attributevalue.MarshalMap(lookup)
	if err != nil {
		return fmt.Errorf("marshal hash lookup: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                sessMap,
					ConditionExpression: awsString("attribute_not_exists(session_id)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                lookupMap,
					ConditionExpression: awsString("attribute_not_exists(session_id)"),
				},
			},
		},
	}

	if _, err := s.client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return ErrDuplicate
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetByID(ctx context.Context, id string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var sess Session
	if err := attributevalue.UnmarshalMap(out.Item, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *DynamoStore) GetByPaymentHash(ctx context.Context, hash string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: hashKeyPrefix + hash},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get hash lookup: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var lookup hashLookupItem
	if err := attributevalue.UnmarshalMap(out.Item, &lookup); err != nil {
		return nil, fmt.Errorf("unmarshal hash lookup: %w", err)
	}
	return s.GetByID(ctx, lookup.RefID)
}

// UpdateStatus conditionally moves expected -> newStatus. Returns
// ErrStatusMismatch when the conditional check fails, which callers treat
// as "someone already made this transition".
func (s *DynamoStore) UpdateStatus(ctx context.Context, id, expected, newStatus string, extra Extra) error {
	updateExpr := "SET #s = :new"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":expected": &types.AttributeValueMemberS{Value: expected},
	}
	if newStatus == StatusPaid {
		paidAt := extra.PaidAt
		if paidAt.IsZero() {
			paidAt = s.nowFunc()
		}
		updateExpr += ", paid_at = :pa"
		values[":pa"] = &types.AttributeValueMemberS{Value: paidAt.UTC().Format(time.RFC3339Nano)}
	}
	if newStatus == StatusComplete {
		updateExpr += ", result_html = :rh"
		values[":rh"] = &types.AttributeValueMemberS{Value: extra.ResultHTML}
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		if conditionFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ClaimOldestPending queries the status GSI for the oldest pending
// sessions and tries to stamp a claim marker on one with a conditional
// update. Losing the race on a candidate just moves on to the next;
// the query is re-issued a bounded number of times.
func (s *DynamoStore) ClaimOldestPending(ctx context.Context) (string, error) {
	for attempt := 0; attempt < claimRetries; attempt++ {
		out, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:              &s.tableName,
			IndexName:              awsString(statusIndex),
			KeyConditionExpression: awsString("#s = :pending"),
			ExpressionAttributeNames: map[string]string{
				"#s": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pending": &types.AttributeValueMemberS{Value: StatusPending},
			},
			ScanIndexForward: awsBool(true), // oldest created_at first
			Limit:            awsInt32(5),
		})
		if err != nil {
			return "", fmt.Errorf("query pending: %w", err)
		}
		if len(out.Items) == 0 {
			return "", ErrNotFound
		}

		for _, item := range out.Items {
			idAttr, ok := item["session_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			id := idAttr.Value
			_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
				TableName: &s.tableName,
				Key: map[string]types.AttributeValue{
					"session_id": &types.AttributeValueMemberS{Value: id},
				},
				UpdateExpression:         awsString("SET claimed = :t"),
				ExpressionAttributeNames: map[string]string{"#s": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t":       &types.AttributeValueMemberBOOL{Value: true},
					":pending": &types.AttributeValueMemberS{Value: StatusPending},
				},
				ConditionExpression: awsString("#s = :pending AND attribute_not_exists(claimed)"),
			})
			if err != nil {
				if conditionFailed(err) {
					continue // another caller claimed it; try next candidate
				}
				return "", fmt.Errorf("claim update: %w", err)
			}
			return id, nil
		}
	}
	return "", ErrNotFound
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
func awsInt32(i int32) *int32    { return &i }

package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory stand-in for the DynamoDB client,
// implementing just the condition semantics the store relies on.
// NOTE: intentionally minimal and not production-grade.
type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	transactCalls int
	updateCalls   int
	queryCalls    int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := strAttr(params.Item, "session_id")
	if pk == "" {
		return nil, errors.New("no primary key in put item")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(session_id)" {
		if _, exists := m.items[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := strAttr(params.Key, "session_id")
	item, ok := m.items[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	pk := strAttr(params.Key, "session_id")
	item, ok := m.items[pk]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}

	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		if strings.Contains(cond, "#s = :expected") {
			expected := strAttr(params.ExpressionAttributeValues, ":expected")
			if strAttr(item, "status") != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
		if strings.Contains(cond, "#s = :pending") {
			if strAttr(item, "status") != StatusPending {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
		if strings.Contains(cond, "attribute_not_exists(claimed)") {
			if _, claimed := item["claimed"]; claimed {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	// Apply the SET clauses the store issues.
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":pa"]; ok {
		item["paid_at"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":rh"]; ok {
		item["result_html"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":t"]; ok {
		item["claimed"] = v
	}
	m.items[pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	want := strAttr(params.ExpressionAttributeValues, ":pending")

	var matches []map[string]types.AttributeValue
	for pk, item := range m.items {
		if strings.HasPrefix(pk, hashKeyPrefix) {
			continue
		}
		if strAttr(item, "status") == want {
			matches = append(matches, item)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return strAttr(matches[i], "created_at") < strAttr(matches[j], "created_at")
	})
	if params.Limit != nil && len(matches) > int(*params.Limit) {
		matches = matches[:*params.Limit]
	}
	return &dyn.QueryOutput{Items: matches}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			continue
		}
		if p.ConditionExpression != nil && *p.ConditionExpression == "attribute_not_exists(session_id)" {
			pk := strAttr(p.Item, "session_id")
			if _, exists := m.items[pk]; exists {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			m.items[strAttr(p.Item, "session_id")] = p.Item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

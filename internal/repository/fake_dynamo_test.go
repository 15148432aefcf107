package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is a single-table, in-process stand-in for DynamoDB. It
// understands the expression forms the ledger writes: AND-joined equality,
// inequality, attribute_exists and attribute_not_exists clauses, and
// "SET a = :x, b = :y" updates. Every call is serialised, which makes
// transactions atomic.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	created *dynamodb.CreateTableInput

	// beforeUpdate, when set, runs once before the next UpdateItem applies.
	beforeUpdate func()
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) item(id string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyItem(f.items[id])
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: copyItem(f.items[keyID(in.Key)])}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if aws.ToString(in.IndexName) != plateEntryIndex {
		return nil, fmt.Errorf("unexpected index %q", aws.ToString(in.IndexName))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []map[string]types.AttributeValue
	for _, it := range f.items {
		if _, indexed := it["plate_number"]; !indexed {
			continue
		}
		if evalCondition(it, in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			out = append(out, copyItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return stringAttr(out[i], "entry_time") < stringAttr(out[j], "entry_time")
	})
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []map[string]types.AttributeValue
	for _, it := range f.items {
		if evalCondition(it, in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			out = append(out, copyItem(it))
		}
	}
	return &dynamodb.ScanOutput{Items: out}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if hook := f.takeUpdateHook(); hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := keyID(in.Key)
	if !evalCondition(f.items[id], in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.applyUpdate(id, in.Key, aws.ToString(in.UpdateExpression), in.ExpressionAttributeValues)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	cancelled := false
	for i, ti := range in.TransactItems {
		reasons[i].Code = aws.String("None")

		var (
			id     string
			cond   *string
			names  map[string]string
			values map[string]types.AttributeValue
		)
		switch {
		case ti.Put != nil:
			id, cond, names, values = keyID(ti.Put.Item), ti.Put.ConditionExpression, ti.Put.ExpressionAttributeNames, ti.Put.ExpressionAttributeValues
		case ti.Update != nil:
			id, cond, names, values = keyID(ti.Update.Key), ti.Update.ConditionExpression, ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues
		case ti.Delete != nil:
			id, cond, names, values = keyID(ti.Delete.Key), ti.Delete.ConditionExpression, ti.Delete.ExpressionAttributeNames, ti.Delete.ExpressionAttributeValues
		default:
			return nil, fmt.Errorf("unsupported transact item %d", i)
		}
		if !evalCondition(f.items[id], cond, names, values) {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			cancelled = true
		}
	}
	if cancelled {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			f.items[keyID(ti.Put.Item)] = copyItem(ti.Put.Item)
		case ti.Update != nil:
			f.applyUpdate(keyID(ti.Update.Key), ti.Update.Key, aws.ToString(ti.Update.UpdateExpression), ti.Update.ExpressionAttributeValues)
		case ti.Delete != nil:
			delete(f.items, keyID(ti.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created != nil {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.created = in
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) takeUpdateHook() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	hook := f.beforeUpdate
	f.beforeUpdate = nil
	return hook
}

// applyUpdate must be called with f.mu held.
func (f *fakeDynamo) applyUpdate(id string, key map[string]types.AttributeValue, expr string, values map[string]types.AttributeValue) {
	it := f.items[id]
	if it == nil {
		it = copyItem(key)
		f.items[id] = it
	}
	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		name, placeholder, _ := strings.Cut(assign, "=")
		it[strings.TrimSpace(name)] = values[strings.TrimSpace(placeholder)]
	}
}

func evalCondition(item map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == nil {
		return true
	}
	resolve := func(name string) string {
		name = strings.TrimSpace(name)
		if strings.HasPrefix(name, "#") {
			return names[name]
		}
		return name
	}

	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists("):
			name := strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")")
			if _, ok := item[resolve(name)]; ok {
				return false
			}
		case strings.HasPrefix(clause, "attribute_exists("):
			name := strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")")
			if _, ok := item[resolve(name)]; !ok {
				return false
			}
		default:
			op := " = "
			if strings.Contains(clause, " <> ") {
				op = " <> "
			}
			lhs, rhs, _ := strings.Cut(clause, op)
			got, ok := item[resolve(lhs)].(*types.AttributeValueMemberS)
			if !ok {
				// Comparisons against a missing attribute are false.
				return false
			}
			want, _ := values[strings.TrimSpace(rhs)].(*types.AttributeValueMemberS)
			if want == nil || (got.Value == want.Value) != (op == " = ") {
				return false
			}
		}
	}
	return true
}

func keyID(item map[string]types.AttributeValue) string {
	return stringAttr(item, "id")
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

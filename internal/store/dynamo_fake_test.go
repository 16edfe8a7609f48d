package store

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory DynamoAPI understanding exactly the
// expressions DynamoStore sends.
type fakeDynamo struct {
	mu      sync.Mutex
	keys    map[string]string
	tables  map[string]map[string]map[string]types.AttributeValue
	creates int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) table(name *string) (map[string]map[string]types.AttributeValue, string, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, "", &types.ResourceNotFoundException{Message: aws.String("no table " + aws.ToString(name))}
	}
	return t, f.keys[aws.ToString(name)], nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, err := f.table(in.TableName); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	f.tables[name] = map[string]map[string]types.AttributeValue{}
	f.keys[name] = aws.ToString(in.KeySchema[0].AttributeName)
	f.creates++
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, key, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t[str(in.Key[key])]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(item)}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, key, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	t[str(in.Item[key])] = clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem supports "SET #s = :to, #u = :u" guarded by "#s = :from".
func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, key, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t[str(in.Key[key])]
	vals := in.ExpressionAttributeValues
	if !ok || str(item[in.ExpressionAttributeNames["#s"]]) != str(vals[":from"]) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
	}
	item = clone(item)
	item[in.ExpressionAttributeNames["#s"]] = vals[":to"]
	item[in.ExpressionAttributeNames["#u"]] = vals[":u"]
	t[str(in.Key[key])] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, _, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	var out []map[string]types.AttributeValue
	for _, item := range t {
		if str(item["escritorio_id"]) != str(in.ExpressionAttributeValues[":e"]) {
			continue
		}
		if in.FilterExpression != nil && str(item["status"]) != str(in.ExpressionAttributeValues[":s"]) {
			continue
		}
		out = append(out, clone(item))
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, _, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	var out []map[string]types.AttributeValue
	for _, item := range t {
		if in.FilterExpression != nil && str(item["status"]) != str(in.ExpressionAttributeValues[":s"]) {
			continue
		}
		out = append(out, clone(item))
	}
	return &dynamodb.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

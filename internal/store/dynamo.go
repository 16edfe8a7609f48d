package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rotisserie/eris"

	"github.com/sells-group/briefing-cli/internal/model"
)

// escritorioIndex is the GSI listing a tenant's budgets by creation time.
const escritorioIndex = "escritorio_id-created_at-index"

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoConfig configures the DynamoDB backend. Endpoint and static keys are
// only needed for local emulators.
type DynamoConfig struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	BudgetsTable string `mapstructure:"dynamo_table"`
	ConfigsTable string `mapstructure:"dynamo_config_table"`
}

// DynamoStore implements Store on two DynamoDB tables.
type DynamoStore struct {
	api          DynamoAPI
	budgetsTable string
	configsTable string
}

type dynamoBudget struct {
	ID           string  `dynamodbav:"id"`
	EscritorioID string  `dynamodbav:"escritorio_id"`
	Codigo       string  `dynamodbav:"codigo"`
	Status       string  `dynamodbav:"status"`
	ValorTotal   float64 `dynamodbav:"valor_total"`
	Budget       string  `dynamodbav:"budget"`
	Fallback     string  `dynamodbav:"fallback,omitempty"`
	CreatedAt    string  `dynamodbav:"created_at"`
	UpdatedAt    string  `dynamodbav:"updated_at"`
}

type dynamoConfig struct {
	EscritorioID string `dynamodbav:"escritorio_id"`
	Config       string `dynamodbav:"config"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

// NewDynamo builds a DynamoStore from the default AWS credential chain,
// or from static keys when both are set.
func NewDynamo(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "dynamo: load aws config")
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoWithAPI(client, cfg.BudgetsTable, cfg.ConfigsTable), nil
}

// NewDynamoWithAPI wraps an existing client.
func NewDynamoWithAPI(api DynamoAPI, budgetsTable, configsTable string) *DynamoStore {
	if budgetsTable == "" {
		budgetsTable = "budgets"
	}
	if configsTable == "" {
		configsTable = "office_configs"
	}
	return &DynamoStore{api: api, budgetsTable: budgetsTable, configsTable: configsTable}
}

// Migrate creates both tables when they do not exist yet.
func (s *DynamoStore) Migrate(ctx context.Context) error {
	budgets := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.budgetsTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("escritorio_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("created_at"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(escritorioIndex),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("escritorio_id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	}
	configs := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.configsTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("escritorio_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("escritorio_id"), KeyType: types.KeyTypeHash},
		},
	}
	for _, in := range []*dynamodb.CreateTableInput{budgets, configs} {
		if err := s.ensureTable(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoStore) ensureTable(ctx context.Context, in *dynamodb.CreateTableInput) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName})
	if err == nil {
		return nil
	}
	var nf *types.ResourceNotFoundException
	if !errors.As(err, &nf) {
		return eris.Wrapf(err, "dynamo: describe table %s", aws.ToString(in.TableName))
	}
	if _, err := s.api.CreateTable(ctx, in); err != nil {
		return eris.Wrapf(err, "dynamo: create table %s", aws.ToString(in.TableName))
	}
	return nil
}

func (s *DynamoStore) Close() error { return nil }

func (s *DynamoStore) SaveBudget(ctx context.Context, rec *model.BudgetRecord) error {
	stamp(rec)

	// Keep status and creation time of an existing record.
	existing, err := s.GetBudget(ctx, rec.ID)
	switch {
	case err == nil:
		rec.Status = existing.Status
		rec.CreatedAt = existing.CreatedAt
	case !isNotFound(err):
		return err
	}

	budgetJSON, fallbackJSON, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "dynamo: marshal budget")
	}
	item, err := attributevalue.MarshalMap(dynamoBudget{
		ID:           rec.ID,
		EscritorioID: rec.EscritorioID,
		Codigo:       rec.Budget.Codigo,
		Status:       string(rec.Status),
		ValorTotal:   rec.Budget.ValorTotal,
		Budget:       string(budgetJSON),
		Fallback:     string(fallbackJSON),
		CreatedAt:    formatTime(rec.CreatedAt),
		UpdatedAt:    formatTime(rec.UpdatedAt),
	})
	if err != nil {
		return eris.Wrap(err, "dynamo: marshal item")
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.budgetsTable),
		Item:      item,
	})
	return eris.Wrapf(err, "dynamo: put budget %s", rec.ID)
}

func (s *DynamoStore) GetBudget(ctx context.Context, id string) (*model.BudgetRecord, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.budgetsTable),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dynamo: get budget %s", id)
	}
	if len(out.Item) == 0 {
		return nil, budgetNotFound(id)
	}
	return decodeBudget(out.Item)
}

// ListBudgets queries the tenant index newest first. Without a tenant it
// falls back to a table scan sorted in memory.
func (s *DynamoStore) ListBudgets(ctx context.Context, filter BudgetFilter) ([]model.BudgetRecord, error) {
	var items []map[string]types.AttributeValue
	want := filter.Offset + filter.limit()

	var statusFilter *string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if filter.Status != "" {
		statusFilter = aws.String("#s = :s")
		names["#s"] = "status"
		values[":s"] = &types.AttributeValueMemberS{Value: string(filter.Status)}
	}

	if filter.EscritorioID != "" {
		names["#e"] = "escritorio_id"
		values[":e"] = &types.AttributeValueMemberS{Value: filter.EscritorioID}
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(s.budgetsTable),
			IndexName:                 aws.String(escritorioIndex),
			KeyConditionExpression:    aws.String("#e = :e"),
			FilterExpression:          statusFilter,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ScanIndexForward:          aws.Bool(false),
		}
		for len(items) < want {
			out, err := s.api.Query(ctx, in)
			if err != nil {
				return nil, eris.Wrap(err, "dynamo: query budgets")
			}
			items = append(items, out.Items...)
			if len(out.LastEvaluatedKey) == 0 {
				break
			}
			in.ExclusiveStartKey = out.LastEvaluatedKey
		}
	} else {
		in := &dynamodb.ScanInput{
			TableName:        aws.String(s.budgetsTable),
			FilterExpression: statusFilter,
		}
		if statusFilter != nil {
			in.ExpressionAttributeNames = names
			in.ExpressionAttributeValues = values
		}
		for {
			out, err := s.api.Scan(ctx, in)
			if err != nil {
				return nil, eris.Wrap(err, "dynamo: scan budgets")
			}
			items = append(items, out.Items...)
			if len(out.LastEvaluatedKey) == 0 {
				break
			}
			in.ExclusiveStartKey = out.LastEvaluatedKey
		}
	}

	recs := make([]model.BudgetRecord, 0, len(items))
	for _, it := range items {
		rec, err := decodeBudget(it)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})

	if filter.Offset >= len(recs) {
		return nil, nil
	}
	recs = recs[filter.Offset:]
	if len(recs) > filter.limit() {
		recs = recs[:filter.limit()]
	}
	return recs, nil
}

func (s *DynamoStore) UpdateBudgetStatus(ctx context.Context, id string, to model.Status) (*model.BudgetRecord, error) {
	return transition(ctx, s, id, to, func(ctx context.Context, id string, from, to model.Status, at time.Time) (bool, error) {
		_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.budgetsTable),
			Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
			UpdateExpression:    aws.String("SET #s = :to, #u = :u"),
			ConditionExpression: aws.String("#s = :from"),
			ExpressionAttributeNames: map[string]string{
				"#s": "status",
				"#u": "updated_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":to":   &types.AttributeValueMemberS{Value: string(to)},
				":from": &types.AttributeValueMemberS{Value: string(from)},
				":u":    &types.AttributeValueMemberS{Value: formatTime(at)},
			},
		})
		if err != nil {
			var cfe *types.ConditionalCheckFailedException
			if errors.As(err, &cfe) {
				return false, nil
			}
			return false, eris.Wrapf(err, "dynamo: update budget status %s", id)
		}
		return true, nil
	})
}

func (s *DynamoStore) GetOfficeConfig(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.configsTable),
		Key:            map[string]types.AttributeValue{"escritorio_id": &types.AttributeValueMemberS{Value: escritorioID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dynamo: get office config %s", escritorioID)
	}
	if len(out.Item) == 0 {
		return nil, configNotFound(escritorioID)
	}
	var it dynamoConfig
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, eris.Wrap(err, "dynamo: unmarshal office config item")
	}
	var cfg model.OfficeConfiguration
	if err := json.Unmarshal([]byte(it.Config), &cfg); err != nil {
		return nil, eris.Wrap(err, "dynamo: unmarshal office config")
	}
	return &cfg, nil
}

func (s *DynamoStore) SaveOfficeConfig(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "dynamo: marshal office config")
	}
	item, err := attributevalue.MarshalMap(dynamoConfig{
		EscritorioID: escritorioID,
		Config:       string(raw),
		UpdatedAt:    formatTime(time.Now().UTC()),
	})
	if err != nil {
		return eris.Wrap(err, "dynamo: marshal office config item")
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.configsTable),
		Item:      item,
	})
	return eris.Wrapf(err, "dynamo: put office config %s", escritorioID)
}

func decodeBudget(item map[string]types.AttributeValue) (*model.BudgetRecord, error) {
	var it dynamoBudget
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, eris.Wrap(err, "dynamo: unmarshal budget item")
	}
	rec := model.BudgetRecord{
		ID:           it.ID,
		EscritorioID: it.EscritorioID,
		Status:       model.Status(it.Status),
		CreatedAt:    parseTime(it.CreatedAt),
		UpdatedAt:    parseTime(it.UpdatedAt),
	}
	var fb []byte
	if it.Fallback != "" {
		fb = []byte(it.Fallback)
	}
	if err := unmarshalRecord(&rec, []byte(it.Budget), fb); err != nil {
		return nil, eris.Wrap(err, "dynamo: unmarshal budget")
	}
	return &rec, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"diary/config"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore は DynamoDB のテーブルを文書ストアとして使います。
// リビジョンは書き込みごとに発行する UUID で、条件付き書き込みで一致を確認します。
type DynamoStore struct {
	db      dynamoAPI
	table   string
	timeout time.Duration
	now     Clock
}

func NewDynamoStore(db dynamoAPI, cfg config.Config) *DynamoStore {
	return &DynamoStore{
		db:      db,
		table:   cfg.DynamoTable,
		timeout: cfg.StoreTimeout,
		now:     time.Now,
	}
}

// NewDynamoDBClient は設定から DynamoDB クライアントを作ります。
// エンドポイントが指定されている場合は DynamoDB Local 向けにダミーの認証情報を使います。
func NewDynamoDBClient(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.DynamoEndpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL: cfg.DynamoEndpoint,
			}, nil
		})
		opts = append(opts,
			awsconfig.WithEndpointResolverWithOptions(customResolver),
			awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
				},
			}),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// EnsureTable はテーブルを作成します。既に存在する場合はログだけ残します。
func (s *DynamoStore) EnsureTable(ctx context.Context) {
	_, err := s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("Path"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("Path"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		log.Printf("Table %s might already exist: %v", s.table, err)
	}
}

func (s *DynamoStore) Name() string {
	return "dynamodb"
}

func (s *DynamoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *DynamoStore) Fetch(ctx context.Context, path string) (*RemoteDocument, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"Path": &types.AttributeValueMemberS{Value: path},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		log.Printf("%sDynamoDB GetItem failed for %s, treating as absent: %v", logPrefix(ctx), path, err)
		return nil, nil
	}
	if len(result.Item) == 0 {
		return nil, nil
	}

	content, _ := result.Item["Content"].(*types.AttributeValueMemberS)
	revision, _ := result.Item["Revision"].(*types.AttributeValueMemberS)
	doc := &RemoteDocument{}
	if content != nil {
		doc.Content = content.Value
	}
	if revision != nil {
		doc.Revision = revision.Value
	}
	return doc, nil
}

func (s *DynamoStore) Write(ctx context.Context, path, content, message, revision string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"Path":      &types.AttributeValueMemberS{Value: path},
			"Content":   &types.AttributeValueMemberS{Value: content},
			"Revision":  &types.AttributeValueMemberS{Value: uuid.New().String()},
			"Message":   &types.AttributeValueMemberS{Value: message},
			"UpdatedAt": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
		},
		ExpressionAttributeNames: map[string]string{},
	}
	if revision == "" {
		input.ConditionExpression = aws.String("attribute_not_exists(#path)")
		input.ExpressionAttributeNames["#path"] = "Path"
	} else {
		input.ConditionExpression = aws.String("#rev = :rev")
		input.ExpressionAttributeNames["#rev"] = "Revision"
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":rev": &types.AttributeValueMemberS{Value: revision},
		}
	}

	_, err := s.db.PutItem(ctx, input)
	if err == nil {
		return nil
	}
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		if revision == "" {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return fmt.Errorf("%w: %s", ErrRevisionConflict, path)
	}
	return fmt.Errorf("%w: put %s: %v", ErrRemoteUnavailable, path, err)
}

func (s *DynamoStore) RepositoryInfo(ctx context.Context) (*RepositoryInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: describe table %s: %v", ErrRemoteUnavailable, s.table, err)
	}
	info := &RepositoryInfo{FullName: s.table, Private: true}
	if result.Table != nil && result.Table.TableArn != nil {
		info.URL = *result.Table.TableArn
	}
	return info, nil
}

// BrowseURL は DynamoDB には閲覧用 URL が無いため常に空です。
func (s *DynamoStore) BrowseURL(path string) string {
	return ""
}

package s3

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/hupe1980/vectable/blobstore"
)

const stagingMarker = ".staging-"

// DDBCommitStore implements blobstore.Store backed by S3 with DynamoDB
// arbitrating PutIfAbsent. Use it where S3 conditional writes are
// unavailable.
//
// PutIfAbsent stages the content under a unique key, claims the name with a
// conditional DynamoDB write and then copies the content into place. A name
// whose claim succeeded but whose copy did not is served from the staged
// object, so a crashed writer never loses a commit.
//
// Table schema:
//   - Partition key: base_uri (string) - the store URI
//   - Sort key: name (string) - the blob name
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vectable-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=name,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

var _ blobstore.Store = (*DDBCommitStore)(nil)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// NewDDBCommitStore creates a new S3+DynamoDB commit store. The partition
// key defaults to the S3 store URI.
func NewDDBCommitStore(s3Store *Store, ddbClient DDBClient, tableName string) *DDBCommitStore {
	return &DDBCommitStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   s3Store.URI(),
	}
}

func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	b, err := s.s3Store.Open(ctx, name)
	if !errors.Is(err, blobstore.ErrNotFound) {
		return b, err
	}

	staging, ok, err := s.claim(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return s.s3Store.Open(ctx, staging)
}

func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	return s.s3Store.Put(ctx, name, data)
}

func (s *DDBCommitStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	staging := name + stagingMarker + uuid.NewString()
	if err := s.s3Store.Put(ctx, staging, data); err != nil {
		return err
	}

	_, err := s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"name":     &types.AttributeValueMemberS{Value: name},
			"staging":  &types.AttributeValueMemberS{Value: staging},
		},
		// NAME is a DynamoDB reserved word.
		ConditionExpression:      aws.String("attribute_not_exists(#n)"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
	})
	if err != nil {
		_ = s.s3Store.Delete(ctx, staging)
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return blobstore.ErrAlreadyExists
		}
		return fmt.Errorf("failed to commit %s to DynamoDB: %w", name, err)
	}

	// The claim is durable; a failed copy is recovered by Open.
	if err := s.s3Store.Put(ctx, name, data); err == nil {
		_ = s.s3Store.Delete(ctx, staging)
	}
	return nil
}

func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if err := s.s3Store.Delete(ctx, name); err != nil {
		return err
	}
	_, err := s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.itemKey(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from DynamoDB: %w", name, err)
	}
	return nil
}

// List merges the S3 listing with names claimed in DynamoDB whose content
// still sits in a staged object.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]blobstore.Info, error) {
	listed, err := s.s3Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	final := make(map[string]bool, len(listed))
	staged := make(map[string]blobstore.Info)
	infos := make([]blobstore.Info, 0, len(listed))
	for _, info := range listed {
		if strings.Contains(info.Name, stagingMarker) {
			staged[info.Name] = info
			continue
		}
		final[info.Name] = true
		infos = append(infos, info)
	}

	claims, err := s.claims(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for name, staging := range claims {
		if final[name] {
			continue
		}
		if info, ok := staged[staging]; ok {
			info.Name = name
			infos = append(infos, info)
		}
	}

	slices.SortFunc(infos, func(a, b blobstore.Info) int { return strings.Compare(a.Name, b.Name) })
	return infos, nil
}

func (s *DDBCommitStore) itemKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
		"name":     &types.AttributeValueMemberS{Value: name},
	}
}

// claim returns the staged key recorded for name.
func (s *DDBCommitStore) claim(ctx context.Context, name string) (string, bool, error) {
	resp, err := s.ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.itemKey(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Item) == 0 {
		return "", false, nil
	}
	staging, ok := resp.Item["staging"].(*types.AttributeValueMemberS)
	if !ok {
		return "", false, errors.New("invalid staging attribute in DynamoDB")
	}
	return staging.Value, true, nil
}

// claims returns name -> staged key for every claim under prefix.
func (s *DDBCommitStore) claims(ctx context.Context, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	input := &dynamodb.QueryInput{
		TableName:                aws.String(s.tableName),
		KeyConditionExpression:   aws.String("base_uri = :uri AND begins_with(#n, :prefix)"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri":    &types.AttributeValueMemberS{Value: s.baseURI},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		ConsistentRead: aws.Bool(true),
	}
	if prefix == "" {
		input.KeyConditionExpression = aws.String("base_uri = :uri")
		input.ExpressionAttributeNames = nil
		delete(input.ExpressionAttributeValues, ":prefix")
	}

	for {
		resp, err := s.ddbClient.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		for _, item := range resp.Items {
			name, ok1 := item["name"].(*types.AttributeValueMemberS)
			staging, ok2 := item["staging"].(*types.AttributeValueMemberS)
			if !ok1 || !ok2 {
				return nil, errors.New("invalid commit item in DynamoDB")
			}
			out[name.Value] = staging.Value
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/nested/blobstore"
)

// ErrConcurrentCommit is returned when another writer committed a version
// between Current and Commit.
var ErrConcurrentCommit = errors.New("s3: concurrent snapshot commit detected")

// DDBClient is the subset of the DynamoDB API VersionStore uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// VersionStore tracks the current snapshot of a container store with a
// monotonically increasing version in DynamoDB. S3 lacks compare-and-swap;
// DynamoDB conditional writes supply the atomicity, so multiple snapshot
// writers can coordinate safely.
//
// Table schema:
//   - Partition key: scope (string) - the S3 bucket/prefix being versioned
//   - Sort key: version (number) - monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name nested-snapshots \
//	  --attribute-definitions AttributeName=scope,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=scope,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type VersionStore struct {
	client    DDBClient
	tableName string
	scope     string
}

// NewVersionStore creates a version store. scope identifies the snapshot
// namespace, typically "s3://bucket/prefix".
func NewVersionStore(client DDBClient, tableName, scope string) *VersionStore {
	return &VersionStore{
		client:    client,
		tableName: tableName,
		scope:     scope,
	}
}

// Current returns the latest committed version and its snapshot name.
// Returns blobstore.ErrNotFound when nothing has been committed yet.
func (v *VersionStore) Current(ctx context.Context) (uint64, string, error) {
	resp, err := v.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(v.tableName),
		KeyConditionExpression: aws.String("#s = :scope"),
		ExpressionAttributeNames: map[string]string{
			"#s": "scope",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":scope": &ddbtypes.AttributeValueMemberS{Value: v.scope},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query snapshot versions: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", blobstore.ErrNotFound
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: invalid version attribute")
	}
	nameAttr, ok := item["snapshot"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: invalid snapshot attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse snapshot version: %w", err)
	}
	return version, nameAttr.Value, nil
}

// Commit atomically records snapshot name as the next version. Returns the
// committed version, or ErrConcurrentCommit if another writer got there
// first.
func (v *VersionStore) Commit(ctx context.Context, name string) (uint64, error) {
	current, _, err := v.Current(ctx)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return 0, err
	}
	next := current + 1

	_, err = v.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(v.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"scope":    &ddbtypes.AttributeValueMemberS{Value: v.scope},
			"version":  &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"snapshot": &ddbtypes.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cfe *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return 0, ErrConcurrentCommit
		}
		return 0, fmt.Errorf("commit snapshot version: %w", err)
	}
	return next, nil
}

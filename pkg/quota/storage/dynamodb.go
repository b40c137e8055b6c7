package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoDBBackend.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Item attribute names. The table has partition key "pk" (S) and sort key
// "month" (S).
const (
	attrPK           = "pk"
	attrMonth        = "month"
	attrInputTokens  = "input_tokens"
	attrOutputTokens = "output_tokens"
	attrUpdatedAt    = "updated_at"
)

// DynamoDBBackend implements Backend on a DynamoDB table. ADD on a missing
// item creates it, which gives the same upsert semantics as the SQL
// backends.
type DynamoDBBackend struct {
	api   dynamodbAPI
	table string
}

// NewDynamoDBBackend creates a backend for the given table.
func NewDynamoDBBackend(api dynamodbAPI, table string) (*DynamoDBBackend, error) {
	if api == nil {
		return nil, errors.New("dynamodb: api must not be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("dynamodb: table name must not be empty")
	}
	return &DynamoDBBackend{api: api, table: table}, nil
}

func companyPK(companyID string) string {
	return "COMPANY#" + companyID
}

func (d *DynamoDBBackend) key(companyID string, month time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK:    &types.AttributeValueMemberS{Value: companyPK(companyID)},
		attrMonth: &types.AttributeValueMemberS{Value: MonthKey(month)},
	}
}

// Increment issues a single UpdateItem with ADD on both counters.
func (d *DynamoDBBackend) Increment(ctx context.Context, companyID string, month time.Time, inputTokens, outputTokens int64) (*UsageRecord, error) {
	if err := validateIncrement(companyID, inputTokens, outputTokens); err != nil {
		return nil, err
	}

	out, err := d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(d.table),
		Key:              d.key(companyID, month),
		UpdateExpression: aws.String("ADD #in :in, #out :out SET #upd = :now"),
		ExpressionAttributeNames: map[string]string{
			"#in":  attrInputTokens,
			"#out": attrOutputTokens,
			"#upd": attrUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":in":  &types.AttributeValueMemberN{Value: strconv.FormatInt(inputTokens, 10)},
			":out": &types.AttributeValueMemberN{Value: strconv.FormatInt(outputTokens, 10)},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: increment usage: %w", err)
	}
	if out == nil || out.Attributes == nil {
		return nil, errors.New("dynamodb: increment returned no attributes")
	}

	return recordFromItem(companyID, out.Attributes)
}

// Get returns the record, or nil if the item does not exist.
func (d *DynamoDBBackend) Get(ctx context.Context, companyID string, month time.Time) (*UsageRecord, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.key(companyID, month),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get usage: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	return recordFromItem(companyID, out.Item)
}

// History queries the company partition in descending month order.
func (d *DynamoDBBackend) History(ctx context.Context, companyID string, limit int) ([]*UsageRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: companyPK(companyID)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := d.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: query usage: %w", err)
	}
	if out == nil {
		return nil, nil
	}

	records := make([]*UsageRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := recordFromItem(companyID, item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close is a no-op; the SDK client has no resources to release.
func (d *DynamoDBBackend) Close() error {
	return nil
}

func recordFromItem(companyID string, item map[string]types.AttributeValue) (*UsageRecord, error) {
	rec := &UsageRecord{CompanyID: companyID}

	monthAttr, ok := item[attrMonth].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("dynamodb: item missing month")
	}
	month, err := ParseMonthKey(monthAttr.Value)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: invalid month %q: %w", monthAttr.Value, err)
	}
	rec.Month = month

	if rec.InputTokens, err = numberAttr(item, attrInputTokens); err != nil {
		return nil, err
	}
	if rec.OutputTokens, err = numberAttr(item, attrOutputTokens); err != nil {
		return nil, err
	}
	updated, err := numberAttr(item, attrUpdatedAt)
	if err != nil {
		return nil, err
	}
	if updated > 0 {
		rec.UpdatedAt = time.UnixMilli(updated)
	}
	return rec, nil
}

// numberAttr reads an N attribute; a missing attribute counts as zero.
func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	av, ok := item[name]
	if !ok {
		return 0, nil
	}
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamodb: attribute %q is not a number", name)
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dynamodb: attribute %q: %w", name, err)
	}
	return v, nil
}

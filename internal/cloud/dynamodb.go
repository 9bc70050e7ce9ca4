package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// DynamoDB batch write limit
const batchSize = 25

type dynamoAPI interface {
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBClient keeps the history of alerts raised by batch runs.
type DynamoDBClient struct {
	svc   dynamoAPI
	table string
}

func NewDynamoDBClient(ctx context.Context, region, table string) (*DynamoDBClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &DynamoDBClient{
		svc:   dynamodb.NewFromConfig(cfg),
		table: table,
	}, nil
}

// Alert is the DynamoDB item for one summary row.
type Alert struct {
	AlertID        string  `dynamodbav:"alertId"`
	RunID          string  `dynamodbav:"runId"`
	SubstationID   string  `dynamodbav:"substationId"`
	SubstationName string  `dynamodbav:"substationName"`
	Timestamp      int64   `dynamodbav:"timestamp"`
	Kind           string  `dynamodbav:"kind"`
	Channel        string  `dynamodbav:"channel"`
	Metric         float64 `dynamodbav:"metric"`
	Threshold      float64 `dynamodbav:"threshold"`
	TrailingHours  float64 `dynamodbav:"trailingHours"`
	Runs           int     `dynamodbav:"runs"`
	FirstSeen      int64   `dynamodbav:"firstSeen"`
	Severity       string  `dynamodbav:"severity"`
	Artifact       string  `dynamodbav:"artifact,omitempty"`
}

func toItem(runID string, createdAt time.Time, i int, a domain.AlertRecord) Alert {
	return Alert{
		AlertID:        fmt.Sprintf("%s-%s-%03d", runID, a.Kind, i),
		RunID:          runID,
		SubstationID:   a.EntityID,
		SubstationName: a.EntityName,
		Timestamp:      createdAt.Unix(),
		Kind:           string(a.Kind),
		Channel:        a.Channel,
		Metric:         a.Metric,
		Threshold:      a.Threshold,
		TrailingHours:  a.Trailing.Hours(),
		Runs:           a.Runs,
		FirstSeen:      a.FirstSeen.Unix(),
		Severity:       string(a.Severity),
		Artifact:       a.Artifact,
	}
}

func (a Alert) Record() domain.AlertRecord {
	return domain.AlertRecord{
		Kind:       domain.AlertKind(a.Kind),
		EntityID:   a.SubstationID,
		EntityName: a.SubstationName,
		Channel:    a.Channel,
		Metric:     a.Metric,
		Threshold:  a.Threshold,
		Trailing:   time.Duration(a.TrailingHours * float64(time.Hour)),
		Runs:       a.Runs,
		FirstSeen:  time.Unix(a.FirstSeen, 0).UTC(),
		Severity:   domain.Severity(a.Severity),
		Artifact:   a.Artifact,
	}
}

// SaveAlerts writes the alerts of one run in batches.
func (c *DynamoDBClient) SaveAlerts(ctx context.Context, runID string, createdAt time.Time, alerts []domain.AlertRecord) error {
	for i := 0; i < len(alerts); i += batchSize {
		end := i + batchSize
		if end > len(alerts) {
			end = len(alerts)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for j := i; j < end; j++ {
			item, err := attributevalue.MarshalMap(toItem(runID, createdAt, j, alerts[j]))
			if err != nil {
				return fmt.Errorf("failed to marshal alert %d: %w", j, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := c.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.table: writeRequests},
		})
		if err != nil {
			return fmt.Errorf("failed to batch write alerts: %w", err)
		}
		if n := len(out.UnprocessedItems[c.table]); n > 0 {
			return fmt.Errorf("failed to batch write alerts: %d unprocessed", n)
		}
	}
	return nil
}

// RecentAlerts returns the newest alerts for a substation.
func (c *DynamoDBClient) RecentAlerts(ctx context.Context, substationID string, limit int32) ([]domain.AlertRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String("substationId-timestamp-index"),
		KeyConditionExpression: aws.String("substationId = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: substationID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(limit),
	}

	result, err := c.svc.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	var items []Alert
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alerts: %w", err)
	}

	out := make([]domain.AlertRecord, len(items))
	for i, it := range items {
		out[i] = it.Record()
	}
	return out, nil
}

package cloud

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSClientPublishTruncatesSubject(t *testing.T) {
	fake := &fakeSNS{}
	c := &SNSClient{svc: fake, topicArn: "arn:aws:sns:ap-south-1:123:alerts"}

	err := c.Publish(context.Background(), strings.Repeat("x", 150), "body")

	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)
	assert.Len(t, aws.ToString(fake.inputs[0].Subject), maxSubjectLen)
	assert.Equal(t, "body", aws.ToString(fake.inputs[0].Message))
}

func TestSNSClientPublishErrors(t *testing.T) {
	c := &SNSClient{svc: &fakeSNS{}, topicArn: ""}
	assert.Error(t, c.Publish(context.Background(), "s", "m"))

	c = &SNSClient{svc: &fakeSNS{err: assert.AnError}, topicArn: "arn"}
	assert.ErrorIs(t, c.Publish(context.Background(), "s", "m"), assert.AnError)
}

type fakeDynamo struct {
	batches [][]types.WriteRequest
	items   []map[string]types.AttributeValue
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for _, reqs := range in.RequestItems {
		f.batches = append(f.batches, reqs)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{Items: f.items}, nil
}

func TestDynamoDBClientSaveAlertsBatches(t *testing.T) {
	fake := &fakeDynamo{}
	c := &DynamoDBClient{svc: fake, table: "TelemetryAlerts"}
	alerts := make([]domain.AlertRecord, 30)
	for i := range alerts {
		alerts[i] = domain.AlertRecord{Kind: domain.KindRepeat, EntityID: "SS001", Metric: float64(i)}
	}

	err := c.SaveAlerts(context.Background(), "run-1", time.Unix(1700000000, 0), alerts)

	require.NoError(t, err)
	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0], 25)
	assert.Len(t, fake.batches[1], 5)
}

func TestDynamoDBClientRecentAlertsRoundTrip(t *testing.T) {
	rec := domain.AlertRecord{
		Kind:       domain.KindDiscrepancy,
		EntityID:   "SS010",
		EntityName: "Bhadla",
		Channel:    "median",
		Metric:     20,
		Threshold:  15,
		Trailing:   3 * time.Hour,
		FirstSeen:  time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC),
		Severity:   domain.SeverityLow,
	}
	item, err := attributevalue.MarshalMap(toItem("run-1", time.Unix(1700000000, 0), 0, rec))
	require.NoError(t, err)
	c := &DynamoDBClient{svc: &fakeDynamo{items: []map[string]types.AttributeValue{item}}, table: "TelemetryAlerts"}

	got, err := c.RecentAlerts(context.Background(), "SS010", 10)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

type fakeLambda struct {
	in *lambda.InvokeInput
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.in = in
	return &lambda.InvokeOutput{StatusCode: 202}, nil
}

func TestLambdaClientInvokeRunAsync(t *testing.T) {
	fake := &fakeLambda{}
	c := &LambdaClient{svc: fake, function: "telemetry-alerts"}

	err := c.InvokeRunAsync(context.Background(), RunRequest{SubstationIDs: []string{"SS001"}})

	require.NoError(t, err)
	assert.Equal(t, lambdatypes.InvocationTypeEvent, fake.in.InvocationType)
	var got RunRequest
	require.NoError(t, json.Unmarshal(fake.in.Payload, &got))
	assert.Equal(t, []string{"SS001"}, got.SubstationIDs)
}

type fakeS3 struct {
	puts []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var out s3.ListObjectsV2Output
	for _, p := range f.puts {
		if strings.HasPrefix(aws.ToString(p.Key), aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, s3types.Object{Key: p.Key})
		}
	}
	return &out, nil
}

type fakePresign struct{}

func (fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*presignedRequest, error) {
	return &presignedRequest{URL: "https://example.test/" + aws.ToString(in.Key)}, nil
}

func TestS3ClientUploadAndList(t *testing.T) {
	fake := &fakeS3{}
	c := &S3Client{svc: fake, presign: fakePresign{}, bucket: "reports", expires: time.Hour}

	url, err := c.Upload(context.Background(), "repeats/summary.csv", []byte("a,b\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/repeats/summary.csv", url)

	keys, err := c.ListReports(context.Background(), "repeats/")
	require.NoError(t, err)
	assert.Equal(t, []string{"repeats/summary.csv"}, keys)
}

package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

type lambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClient triggers the scheduled alert function out of band.
type LambdaClient struct {
	svc      lambdaAPI
	function string
}

func NewLambdaClient(ctx context.Context, region, function string) (*LambdaClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &LambdaClient{
		svc:      lambda.NewFromConfig(cfg),
		function: function,
	}, nil
}

// RunRequest is the payload understood by the alert Lambda.
type RunRequest struct {
	SubstationIDs []string `json:"ss_ids,omitempty"`
	Detectors     []string `json:"detectors,omitempty"`
	DevMode       bool     `json:"dev_mode,omitempty"`
}

// InvokeRunAsync queues a batch run without waiting for it.
func (c *LambdaClient) InvokeRunAsync(ctx context.Context, req RunRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	out, err := c.svc.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.function),
		Payload:        payload,
		InvocationType: lambdatypes.InvocationTypeEvent,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke Lambda: %w", err)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("Lambda function error: %s", *out.FunctionError)
	}
	return nil
}

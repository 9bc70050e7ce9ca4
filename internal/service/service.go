package service

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/cloud"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/notify"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/repository"
)

type Services struct {
	Repos    *repository.Repos
	Readings *ReadingService
	Alerts   *AlertService

	// Set only when cloud services are enabled.
	History *cloud.DynamoDBClient
	Reports *cloud.S3Client
	Trigger *cloud.LambdaClient
}

// New wires the repositories, notifiers and optional AWS clients. mq may be
// nil when no broker is configured.
func New(ctx context.Context, db *sqlx.DB, cfg config.AlertConfig, mq mqtt.Client) (*Services, error) {
	repos := repository.New(db, config.ReadingsTable())
	svcs := &Services{
		Repos:    repos,
		Readings: NewReadingService(repos),
	}

	var notifiers notify.Multi
	if mq != nil && config.MQTTAlertsTopic() != "" {
		notifiers = append(notifiers, notify.NewMQTT(mq, config.MQTTAlertsTopic()))
	}

	var opts []AlertOption
	if config.UseCloudServices() {
		region := config.AWSRegion()

		snsClient, err := cloud.NewSNSClient(ctx, region, config.SNSTopicArn())
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		notifiers = append(notifiers, notify.NewSNS(snsClient))

		if svcs.Reports, err = cloud.NewS3Client(ctx, region, config.S3Bucket()); err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		if svcs.History, err = cloud.NewDynamoDBClient(ctx, region, config.AlertsTable()); err != nil {
			return nil, fmt.Errorf("dynamodb client: %w", err)
		}
		if svcs.Trigger, err = cloud.NewLambdaClient(ctx, region, config.LambdaFunction()); err != nil {
			return nil, fmt.Errorf("lambda client: %w", err)
		}
		opts = append(opts, WithUploader(svcs.Reports), WithHistory(svcs.History))
		log.Info().Str("region", region).Msg("cloud services enabled")
	}

	var notifier notify.Notifier = notify.Log{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}
	svcs.Alerts = NewAlertService(cfg, repos, notifier, opts...)
	return svcs, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/cloud"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/database"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/logging"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/service"
)

type runner interface {
	Run(ctx context.Context, opts service.Options) (*service.Report, error)
}

// Response is what the function returns to its invoker.
type Response struct {
	RunID    string `json:"run_id"`
	Alerts   int    `json:"alerts"`
	Summary  string `json:"summary"`
	Notified bool   `json:"notified"`
}

// options accepts either an EventBridge schedule tick, which runs with the
// configured defaults, or a RunRequest sent by the API.
func options(event json.RawMessage) (service.Options, error) {
	var tick events.CloudWatchEvent
	if err := json.Unmarshal(event, &tick); err == nil && tick.DetailType == "Scheduled Event" {
		return service.Options{}, nil
	}
	var req cloud.RunRequest
	if len(event) > 0 {
		if err := json.Unmarshal(event, &req); err != nil {
			return service.Options{}, fmt.Errorf("decode run request: %w", err)
		}
	}
	return service.Options{EntityIDs: req.SubstationIDs, Detectors: req.Detectors, DevMode: req.DevMode}, nil
}

func handler(r runner) func(ctx context.Context, event json.RawMessage) (Response, error) {
	return func(ctx context.Context, event json.RawMessage) (Response, error) {
		opts, err := options(event)
		if err != nil {
			return Response{}, err
		}
		rep, err := r.Run(ctx, opts)
		if err != nil {
			log.Error().Err(err).Msg("alert run failed")
			return Response{}, err
		}
		return Response{RunID: rep.RunID, Alerts: len(rep.Alerts), Summary: rep.SummaryRef, Notified: rep.Notified}, nil
	}
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel(), false)

	cfg, err := config.Alerts()
	if err != nil {
		log.Fatal().Err(err).Msg("alert config invalid")
	}
	// Lambda only allows writes under /tmp.
	cfg.OutputDir = "/tmp/telemetry-alerts"

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	svcs, err := service.New(context.Background(), db, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}
	lambda.Start(handler(svcs.Alerts))
}

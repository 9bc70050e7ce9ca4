package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/broker"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/database"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/logging"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/service"
)

func main() {
	fs := pflag.NewFlagSet("alerter", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])
	if err := config.BindFlags(fs); err != nil {
		log.Fatal().Err(err).Msg("flag binding failed")
	}

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel(), config.DevMode())

	cfg, err := config.Alerts()
	if err != nil {
		log.Fatal().Err(err).Msg("alert config invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	var mq mqtt.Client
	if config.MQTTAlertsTopic() != "" && !cfg.DevMode {
		if mq, err = broker.Connect("alerter"); err != nil {
			log.Fatal().Err(err).Msg("mqtt connect")
		}
		defer mq.Disconnect(250)
	}

	svcs, err := service.New(ctx, db, cfg, mq)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}

	rep, err := svcs.Alerts.Run(ctx, service.Options{})
	if err != nil {
		log.Error().Err(err).Msg("alert run failed")
		os.Exit(1)
	}
	log.Info().
		Str("run_id", rep.RunID).
		Int("alerts", len(rep.Alerts)).
		Int("dropped_runs", len(rep.Dropped)).
		Bool("notified", rep.Notified).
		Str("summary", rep.SummaryRef).
		Msg("alert run complete")
}

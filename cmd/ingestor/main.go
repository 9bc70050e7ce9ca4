package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/broker"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/database"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/logging"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/repository"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/service"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel(), config.DevMode())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db, config.ReadingsTable()); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}
	readings := service.NewReadingService(repository.New(db, config.ReadingsTable()))

	client, err := broker.Connect("ingestor")
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := readings.FromMQTT(ctx, msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	topic := config.MQTTReadingsTopic()
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopping")
}

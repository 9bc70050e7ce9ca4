package main

import (
	"context"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/broker"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/http"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/logging"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/service"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel(), config.DevMode())

	cfg, err := config.Alerts()
	if err != nil {
		log.Fatal().Err(err).Msg("alert config invalid")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx, db, config.ReadingsTable()); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	var mq mqtt.Client
	if config.MQTTAlertsTopic() != "" {
		if mq, err = broker.Connect("api"); err != nil {
			log.Fatal().Err(err).Msg("mqtt connect")
		}
		defer mq.Disconnect(250)
	}

	svcs, err := service.New(ctx, db, cfg, mq)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}

	app := fiber.New()
	httpHandlers.Register(app, httpHandlers.FromServices(svcs))

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}

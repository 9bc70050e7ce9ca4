package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/broker"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/logging"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/service"
)

type site struct {
	id, name, energy string
	capacity         float64
}

var sites = []site{
	{"SS001", "Pavagada", "SOLAR", 50},
	{"SS002", "Bhadla", "SOLAR", 80},
	{"SS003", "Muppandal", "WIND", 30},
}

func main() {
	fs := pflag.NewFlagSet("simulator", pflag.ExitOnError)
	steps := fs.Int("steps", 24, "samples per channel to publish")
	interval := fs.Duration("interval", 15*time.Minute, "spacing of sample timestamps")
	stuck := fs.String("stuck", "SS001", "substation whose SCADA feed freezes halfway")
	drift := fs.String("drift", "SS002", "substation whose meter under-reads by 30%")
	pace := fs.Duration("pace", 50*time.Millisecond, "wall-clock delay between publishes")
	_ = fs.Parse(os.Args[1:])

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel(), config.DevMode())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	client, err := broker.Connect("simulator")
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	cfg, err := config.Alerts()
	if err != nil {
		log.Fatal().Err(err).Msg("alert config invalid")
	}
	scadaTag, meterTag := cfg.Discrepancy.ReferenceTag, cfg.Discrepancy.CompareTag
	topic := config.MQTTReadingsTopic()

	start := time.Now().UTC().Truncate(*interval).Add(-time.Duration(*steps) * *interval)
	published := 0
	for _, s := range sites {
		var frozen float64
		for i := 0; i < *steps; i++ {
			ts := start.Add(time.Duration(i) * *interval)
			scada := output(s, ts, rng)
			if s.id == *stuck && i >= *steps/2 {
				if i == *steps/2 {
					frozen = scada
				}
				scada = frozen
			}
			meter := scada * (1 + rng.NormFloat64()*0.01)
			if s.id == *drift {
				meter = scada * 0.7
			}

			for tag, v := range map[string]float64{scadaTag: scada, meterTag: meter} {
				payload, _ := json.Marshal(service.TelemetryMessage{
					SubstationID:   s.id,
					SubstationName: s.name,
					EnergyType:     s.energy,
					Capacity:       s.capacity,
					SourceTag:      tag,
					Timestamp:      ts,
					Value:          math.Round(v*100) / 100,
				})
				token := client.Publish(topic, 1, false, payload)
				token.Wait()
				if token.Error() != nil {
					log.Error().Err(token.Error()).Msg("publish failed")
					continue
				}
				published++
			}
			time.Sleep(*pace)
		}
	}
	log.Info().Int("published", published).Msg("simulation done")
}

// output is a rough generation profile: a daylight bell for solar, noisy
// constant for wind.
func output(s site, ts time.Time, rng *rand.Rand) float64 {
	if s.energy != "SOLAR" {
		return math.Max(0, s.capacity*(0.4+rng.NormFloat64()*0.1))
	}
	hour := float64(ts.Hour()) + float64(ts.Minute())/60
	sun := math.Sin(math.Pi * (hour - 6) / 12)
	if sun <= 0 {
		return 0
	}
	return s.capacity * sun * (0.9 + rng.Float64()*0.1)
}

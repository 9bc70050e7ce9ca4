package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

type ReadingStore interface {
	UpsertSubstation(ctx context.Context, s domain.Substation) error
	InsertReading(ctx context.Context, rd domain.Reading) error
}

// TelemetryMessage is the MQTT payload published by substation gateways.
type TelemetryMessage struct {
	SubstationID   string    `json:"substation_id"`
	SubstationName string    `json:"substation_name"`
	EnergyType     string    `json:"energy_type"`
	Capacity       float64   `json:"capacity"`
	SourceTag      string    `json:"source_tag"`
	Timestamp      time.Time `json:"timestamp"`
	Value          float64   `json:"value"`
}

// ReadingService stores telemetry arriving over MQTT.
type ReadingService struct {
	store ReadingStore

	mu    sync.Mutex
	known map[string]domain.Substation
}

func NewReadingService(store ReadingStore) *ReadingService {
	return &ReadingService{store: store, known: map[string]domain.Substation{}}
}

func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	var m TelemetryMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("decode %s payload: %w", topic, err)
	}
	if m.SubstationID == "" || m.SourceTag == "" || m.Timestamp.IsZero() {
		return fmt.Errorf("%s: substation_id, source_tag and timestamp are required", topic)
	}

	sub := domain.Substation{ID: m.SubstationID, Name: m.SubstationName, EnergyType: m.EnergyType, Capacity: m.Capacity}
	if err := s.register(ctx, sub); err != nil {
		return err
	}

	rd := domain.Reading{
		EntityID:   m.SubstationID,
		ChannelTag: m.SourceTag,
		Timestamp:  m.Timestamp.UTC(),
		Value:      m.Value,
	}
	if err := s.store.InsertReading(ctx, rd); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// register upserts substation metadata when it is new or has changed.
func (s *ReadingService) register(ctx context.Context, sub domain.Substation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.known[sub.ID]; ok && prev == sub {
		return nil
	}
	if err := s.store.UpsertSubstation(ctx, sub); err != nil {
		return fmt.Errorf("upsert substation %s: %w", sub.ID, err)
	}
	s.known[sub.ID] = sub
	return nil
}

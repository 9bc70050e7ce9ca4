package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

type memStore struct {
	upserts  []domain.Substation
	readings []domain.Reading
}

func (m *memStore) UpsertSubstation(_ context.Context, s domain.Substation) error {
	m.upserts = append(m.upserts, s)
	return nil
}

func (m *memStore) InsertReading(_ context.Context, rd domain.Reading) error {
	m.readings = append(m.readings, rd)
	return nil
}

func TestReadingServiceFromMQTT(t *testing.T) {
	store := &memStore{}
	svc := NewReadingService(store)
	ctx := context.Background()

	msg := `{"substation_id":"SS001","substation_name":"Pavagada","energy_type":"SOLAR","capacity":50,
		"source_tag":"PSS_SCADA_CLT","timestamp":"2024-05-14T10:00:00+05:30","value":41.5}`
	require.NoError(t, svc.FromMQTT(ctx, "substations/readings", []byte(msg)))
	require.NoError(t, svc.FromMQTT(ctx, "substations/readings", []byte(msg)))

	require.Len(t, store.upserts, 1)
	assert.Equal(t, domain.Substation{ID: "SS001", Name: "Pavagada", EnergyType: "SOLAR", Capacity: 50}, store.upserts[0])
	require.Len(t, store.readings, 2)
	assert.Equal(t, time.Date(2024, 5, 14, 4, 30, 0, 0, time.UTC), store.readings[0].Timestamp)
	assert.Equal(t, 41.5, store.readings[0].Value)

	renamed := `{"substation_id":"SS001","substation_name":"Pavagada II","energy_type":"SOLAR","capacity":50,
		"source_tag":"PSS_SCADA_CLT","timestamp":"2024-05-14T10:15:00+05:30","value":41.5}`
	require.NoError(t, svc.FromMQTT(ctx, "substations/readings", []byte(renamed)))
	assert.Len(t, store.upserts, 2)
}

func TestReadingServiceRejectsBadPayloads(t *testing.T) {
	svc := NewReadingService(&memStore{})

	for name, payload := range map[string]string{
		"not json":      `{"substation_id":`,
		"missing tag":   `{"substation_id":"SS001","timestamp":"2024-05-14T10:00:00Z","value":1}`,
		"missing time":  `{"substation_id":"SS001","source_tag":"PSS_SCADA_CLT","value":1}`,
		"missing SS id": `{"source_tag":"PSS_SCADA_CLT","timestamp":"2024-05-14T10:00:00Z","value":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, svc.FromMQTT(context.Background(), "substations/readings", []byte(payload)))
		})
	}
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

type Repos struct {
	db       *sqlx.DB
	readings string
}

func New(db *sqlx.DB, readingsTable string) *Repos {
	if readingsTable == "" {
		readingsTable = "readings"
	}
	return &Repos{db: db, readings: readingsTable}
}

func (r *Repos) ListSubstations(ctx context.Context) ([]domain.Substation, error) {
	var out []domain.Substation
	err := r.db.SelectContext(ctx, &out,
		`SELECT substation_id, substation_name, energy_type, capacity FROM substations ORDER BY substation_id`)
	return out, err
}

func (r *Repos) UpsertSubstation(ctx context.Context, s domain.Substation) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO substations(substation_id, substation_name, energy_type, capacity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (substation_id) DO UPDATE SET substation_name = EXCLUDED.substation_name,
			energy_type = EXCLUDED.energy_type, capacity = EXCLUDED.capacity`,
		s.ID, s.Name, s.EnergyType, s.Capacity)
	return err
}

func (r *Repos) InsertReading(ctx context.Context, rd domain.Reading) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(substation_id, source_tag, timestamp, value)
		VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`, r.readings),
		rd.EntityID, rd.ChannelTag, rd.Timestamp, rd.Value)
	return err
}

// Pull returns readings in [start, end) joined with substation metadata,
// optionally restricted to the given substations.
func (r *Repos) Pull(ctx context.Context, start, end time.Time, entityIDs []string) ([]domain.Reading, error) {
	query := fmt.Sprintf(`SELECT r.substation_id, r.source_tag, r.timestamp, r.value,
			COALESCE(s.substation_name, '') AS substation_name,
			COALESCE(s.energy_type, '') AS energy_type,
			COALESCE(s.capacity, 0) AS capacity
		FROM %s AS r
		LEFT JOIN substations AS s USING (substation_id)
		WHERE r.timestamp >= ? AND r.timestamp < ?`, r.readings)
	args := []any{start, end}
	if len(entityIDs) > 0 {
		query += ` AND r.substation_id IN (?)`
		args = append(args, entityIDs)
	}
	query += ` ORDER BY r.substation_id, r.source_tag, r.timestamp`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build pull query: %w", err)
	}

	var out []domain.Reading
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("pull readings: %w", err)
	}
	return out, nil
}

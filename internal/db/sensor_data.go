package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fireguard/internal/models"
)

// InsertReading stores one reading and returns it with its generated ID.
func (d *DB) InsertReading(ctx context.Context, temperature, gas float64, ts time.Time) (models.SensorReading, error) {
	var r models.SensorReading
	err := d.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
		INSERT INTO sensor_data (timestamp, temperature, gas)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp, temperature, gas`
		return tx.QueryRow(ctx, query, ts, temperature, gas).
			Scan(&r.ID, &r.Timestamp, &r.Temperature, &r.Gas)
	})
	if err != nil {
		return models.SensorReading{}, fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return r, nil
}

// GetReading fetches a stored reading by ID.
func (d *DB) GetReading(ctx context.Context, id int64) (models.SensorReading, error) {
	var r models.SensorReading
	query := `SELECT id, timestamp, temperature, gas FROM sensor_data WHERE id = $1`
	err := d.Pool.QueryRow(ctx, query, id).Scan(&r.ID, &r.Timestamp, &r.Temperature, &r.Gas)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SensorReading{}, fmt.Errorf("sensor reading %d: %w", id, ErrNotFound)
		}
		return models.SensorReading{}, fmt.Errorf("failed to get sensor reading %d: %w", id, err)
	}
	return r, nil
}

// ReadingsSince returns readings newer than since, newest first.
func (d *DB) ReadingsSince(ctx context.Context, since time.Time) ([]models.SensorReading, error) {
	query := `
	SELECT id, timestamp, temperature, gas
	FROM sensor_data
	WHERE timestamp >= $1
	ORDER BY timestamp DESC`
	return d.queryReadings(ctx, query, since)
}

// LatestReadings returns at most limit readings, newest first.
func (d *DB) LatestReadings(ctx context.Context, limit int) ([]models.SensorReading, error) {
	query := `
	SELECT id, timestamp, temperature, gas
	FROM sensor_data
	ORDER BY timestamp DESC
	LIMIT $1`
	return d.queryReadings(ctx, query, limit)
}

func (d *DB) queryReadings(ctx context.Context, query string, args ...any) ([]models.SensorReading, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor readings: %w", err)
	}
	defer rows.Close()

	readings := []models.SensorReading{}
	for rows.Next() {
		var r models.SensorReading
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Temperature, &r.Gas); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sensor readings: %w", err)
	}
	return readings, nil
}

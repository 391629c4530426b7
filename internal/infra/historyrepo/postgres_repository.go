package historyrepo

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

// PostgresRepository implements prediction.HistoryRepository using pgx.
// Schema: migrations/001_prediction_log.sql.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save inserts one prediction log row.
func (r *PostgresRepository) Save(ctx context.Context, record prediction.Record) error {
	var value sql.NullFloat64
	if record.Outcome.Status == prediction.StatusSuccess {
		value = sql.NullFloat64{Float64: record.Outcome.Prediction, Valid: true}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prediction_log (
			id, session_id, temperature, humidity, wind_speed, general_diffuse_flows, diffuse_flows,
			observed_at, status, message, prediction, latency_ms, created_at
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)
	`,
		record.ID,
		record.SessionID,
		record.Payload.Temperature,
		record.Payload.Humidity,
		record.Payload.WindSpeed,
		record.Payload.GeneralDiffuseFlows,
		record.Payload.DiffuseFlows,
		record.Payload.Timestamp,
		string(record.Outcome.Status),
		record.Outcome.Message,
		value,
		record.LatencyMS,
		record.CreatedAt,
	)
	return err
}

// Recent returns the newest rows first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]prediction.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(session_id, ''), temperature, humidity, wind_speed, general_diffuse_flows,
		       diffuse_flows, observed_at, status, COALESCE(message, ''), prediction, latency_ms, created_at
		FROM prediction_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]prediction.Record, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(rows pgx.Rows) (prediction.Record, error) {
	var (
		record prediction.Record
		status string
		value  sql.NullFloat64
	)
	if err := rows.Scan(
		&record.ID,
		&record.SessionID,
		&record.Payload.Temperature,
		&record.Payload.Humidity,
		&record.Payload.WindSpeed,
		&record.Payload.GeneralDiffuseFlows,
		&record.Payload.DiffuseFlows,
		&record.Payload.Timestamp,
		&status,
		&record.Outcome.Message,
		&value,
		&record.LatencyMS,
		&record.CreatedAt,
	); err != nil {
		return prediction.Record{}, err
	}
	record.Outcome.Status = prediction.Status(status)
	if value.Valid {
		record.Outcome.Prediction = value.Float64
	}
	return record, nil
}

var _ prediction.HistoryRepository = (*PostgresRepository)(nil)

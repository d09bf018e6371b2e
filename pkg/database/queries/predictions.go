package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/OldStager01/predictify/pkg/models"
)

// PredictionRepository stores the prediction history of each event.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) SavePrediction(ctx context.Context, record *models.PredictionRecord) error {
	factors, err := json.Marshal(record.Factors)
	if err != nil {
		return fmt.Errorf("failed to encode factors: %w", err)
	}

	query := `
		INSERT INTO predictions (
			event_id, probability, level, confidence, estimated_min, estimated_max,
			estimated_expected, trend, trend_change, factors, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		record.EventID, record.Probability, record.Level, record.Confidence,
		record.EstimatedMin, record.EstimatedMax, record.Expected,
		record.Trend, record.TrendChange, factors, record.CalculatedAt,
	).Scan(&record.ID)
}

// History returns the newest records first, at most limit of them.
func (r *PredictionRepository) History(ctx context.Context, eventID string, limit int) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, event_id, probability, level, confidence, estimated_min,
			estimated_max, estimated_expected, trend, trend_change, factors, calculated_at
		FROM predictions
		WHERE event_id = $1
		ORDER BY calculated_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.PredictionRecord, 0)
	for rows.Next() {
		var (
			record  models.PredictionRecord
			factors []byte
		)
		if err := rows.Scan(
			&record.ID, &record.EventID, &record.Probability, &record.Level,
			&record.Confidence, &record.EstimatedMin, &record.EstimatedMax,
			&record.Expected, &record.Trend, &record.TrendChange, &factors,
			&record.CalculatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factors, &record.Factors); err != nil {
			return nil, fmt.Errorf("failed to decode factors: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

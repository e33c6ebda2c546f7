package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// PostgresHistoryStore implements HistoryStore over the auto_scale_history table
type PostgresHistoryStore struct {
	db *sql.DB
}

// NewPostgresHistoryStore creates a new history store
func NewPostgresHistoryStore(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

// Append writes one history record
func (s *PostgresHistoryStore) Append(ctx context.Context, record *models.HistoryRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid history record: %w", err)
	}

	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	blocksJSON, err := json.Marshal(record.BlocksEvaluated)
	if err != nil {
		return fmt.Errorf("failed to marshal block evaluations: %w", err)
	}
	resultJSON, err := json.Marshal(record.ActionResults)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	var blockExecuted sql.NullInt64
	if record.BlockExecuted != nil {
		blockExecuted = sql.NullInt64{Int64: int64(*record.BlockExecuted), Valid: true}
	}

	query := `
		INSERT INTO auto_scale_history (
			id, rule_id, user_id, asset_id, product_id, metrics, time_ranges,
			conditions_met, block_executed, blocks_evaluated, action_executed,
			action_type, executed_action_types, action_result, success, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.RuleID,
		record.UserID,
		record.AssetID,
		record.ProductID,
		string(metricsJSON),
		pq.Array(timeRangeStrings(record.TimeRanges)),
		record.ConditionsMet,
		blockExecuted,
		string(blocksJSON),
		record.ActionExecuted,
		string(record.ActionType),
		pq.Array(actionTypeStrings(record.ExecutedActionTypes)),
		string(resultJSON),
		record.Success,
		record.ErrorMessage,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	return nil
}

// LastSuccessfulExecution returns when actionType last executed successfully on the asset
func (s *PostgresHistoryStore) LastSuccessfulExecution(ctx context.Context, assetID string, actionType models.ActionType) (*time.Time, error) {
	query := `
		SELECT created_at
		FROM auto_scale_history
		WHERE asset_id = $1
		  AND $2 = ANY(executed_action_types)
		  AND action_executed = true
		  AND success = true
		ORDER BY created_at DESC
		LIMIT 1
	`

	var last time.Time
	err := s.db.QueryRowContext(ctx, query, assetID, string(actionType)).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last execution: %w", err)
	}

	return &last, nil
}

// List retrieves history records with filtering options, newest first
func (s *PostgresHistoryStore) List(ctx context.Context, filter HistoryFilter) ([]*models.HistoryRecord, error) {
	query := `
		SELECT id, rule_id, user_id, asset_id, product_id, metrics, time_ranges,
		       conditions_met, block_executed, blocks_evaluated, action_executed,
		       action_type, executed_action_types, action_result, success, error_message, created_at
		FROM auto_scale_history
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, filter.UserID)
		argIndex++
	}

	if filter.RuleID != "" {
		query += fmt.Sprintf(" AND rule_id = $%d", argIndex)
		args = append(args, filter.RuleID)
		argIndex++
	}

	if filter.AssetID != "" {
		query += fmt.Sprintf(" AND asset_id = $%d", argIndex)
		args = append(args, filter.AssetID)
		argIndex++
	}

	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, filter.StartTime)
		argIndex++
	}

	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, filter.EndTime)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var metricsJSON, blocksJSON, resultJSON []byte
		var ranges, executed []string
		var blockExecuted sql.NullInt64
		var actionType string

		if err := rows.Scan(
			&rec.ID,
			&rec.RuleID,
			&rec.UserID,
			&rec.AssetID,
			&rec.ProductID,
			&metricsJSON,
			pq.Array(&ranges),
			&rec.ConditionsMet,
			&blockExecuted,
			&blocksJSON,
			&rec.ActionExecuted,
			&actionType,
			pq.Array(&executed),
			&resultJSON,
			&rec.Success,
			&rec.ErrorMessage,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		rec.ActionType = models.ActionType(actionType)
		for _, r := range ranges {
			rec.TimeRanges = append(rec.TimeRanges, models.TimeRange(r))
		}
		for _, a := range executed {
			rec.ExecutedActionTypes = append(rec.ExecutedActionTypes, models.ActionType(a))
		}
		if blockExecuted.Valid {
			idx := int(blockExecuted.Int64)
			rec.BlockExecuted = &idx
		}

		unmarshalColumn(rec.ID, "metrics", metricsJSON, &rec.Metrics)
		unmarshalColumn(rec.ID, "blocks_evaluated", blocksJSON, &rec.BlocksEvaluated)
		unmarshalColumn(rec.ID, "action_result", resultJSON, &rec.ActionResults)

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// unmarshalColumn decodes a JSONB column; a corrupt column is logged and left empty
func unmarshalColumn(id, column string, data []byte, dest interface{}) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("Failed to unmarshal history column",
			logger.ErrorField(err),
			logger.String("history_id", id),
			logger.String("column", column),
		)
	}
}

func timeRangeStrings(ranges []models.TimeRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = string(r)
	}
	return out
}

func actionTypeStrings(types []models.ActionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

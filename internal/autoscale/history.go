package autoscale

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// HistoryRecorder persists one audit record per rule run.
// Write failures are retried, then logged and swallowed.
type HistoryRecorder struct {
	store      storage.HistoryStore
	maxRetries int
	retryDelay time.Duration
}

// NewHistoryRecorder creates a new history recorder
func NewHistoryRecorder(store storage.HistoryStore, maxRetries int, retryDelay time.Duration) *HistoryRecorder {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &HistoryRecorder{
		store:      store,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Record appends the record, assigning an ID and timestamp when missing.
// Returns false when the record could not be persisted. A panicking store
// counts as a failed attempt, so Record never panics.
func (h *HistoryRecorder) Record(ctx context.Context, record *models.HistoryRecord) bool {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Metrics == nil {
		record.Metrics = models.MetricSnapshot{}
	}

	var err error
	for attempt := 0; attempt < h.maxRetries; attempt++ {
		err = h.append(ctx, record)
		if err == nil {
			return true
		}

		if attempt < h.maxRetries-1 {
			logger.Warn("Failed to write history record, retrying",
				logger.ErrorField(err),
				logger.String("rule_id", record.RuleID),
				logger.Int("attempt", attempt+1),
			)
			time.Sleep(h.retryDelay * time.Duration(attempt+1))
		}
	}

	historyWriteFailures.Inc()
	logger.WithContext(ctx).Error("Failed to write history record",
		logger.ErrorField(fmt.Errorf("%w: %v", models.ErrPersistence, err)),
		logger.String("history_id", record.ID),
		logger.String("rule_id", record.RuleID),
		logger.String("asset_id", record.AssetID),
	)
	return false
}

// append converts a store panic into an error
func (h *HistoryRecorder) append(ctx context.Context, record *models.HistoryRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h.store.Append(ctx, record)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/ad-autoscaler/internal/autoscale"
	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// History listing bounds
const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// BatchRunner runs rule batches on demand
type BatchRunner interface {
	RunHourly(ctx context.Context) (*autoscale.BatchSummary, error)
	RunDaily(ctx context.Context) (*autoscale.BatchSummary, error)
	RunRule(ctx context.Context, ruleID string) (*autoscale.BatchSummary, error)
}

// AutoscaleHandler handles the rule engine trigger and history endpoints
type AutoscaleHandler struct {
	runner  BatchRunner
	rules   rules.RuleStore
	history storage.HistoryStore
}

// NewAutoscaleHandler creates a new autoscale handler
func NewAutoscaleHandler(runner BatchRunner, ruleStore rules.RuleStore, history storage.HistoryStore) *AutoscaleHandler {
	return &AutoscaleHandler{
		runner:  runner,
		rules:   ruleStore,
		history: history,
	}
}

// RunHourly handles POST /api/v1/autoscale/hourly
func (h *AutoscaleHandler) RunHourly(w http.ResponseWriter, r *http.Request) {
	h.respondWithBatch(w, r, autoscale.KindHourly, h.runner.RunHourly)
}

// RunDaily handles POST /api/v1/autoscale/daily
func (h *AutoscaleHandler) RunDaily(w http.ResponseWriter, r *http.Request) {
	h.respondWithBatch(w, r, autoscale.KindDaily, h.runner.RunDaily)
}

// RunRule handles POST /api/v1/autoscale/rules/{id}/run
func (h *AutoscaleHandler) RunRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["id"]

	// authenticated callers may only run their own rules
	if userID := logger.GetUserID(r.Context()); userID != "" && h.rules != nil {
		rec, err := h.rules.GetRule(r.Context(), ruleID)
		if err != nil && !errors.Is(err, models.ErrRuleNotFound) {
			respondWithError(w, http.StatusInternalServerError, "Failed to load rule")
			return
		}
		if rec == nil || rec.UserID != userID {
			respondWithError(w, http.StatusNotFound, "Rule not found")
			return
		}
	}

	h.respondWithBatch(w, r, autoscale.KindRule, func(ctx context.Context) (*autoscale.BatchSummary, error) {
		return h.runner.RunRule(ctx, ruleID)
	})
}

// respondWithBatch runs a batch detached from client cancellation so a dropped
// connection never leaves a batch half processed
func (h *AutoscaleHandler) respondWithBatch(w http.ResponseWriter, r *http.Request, kind string, run func(context.Context) (*autoscale.BatchSummary, error)) {
	summary, err := run(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, models.ErrRuleNotFound) {
			respondWithError(w, http.StatusNotFound, "Rule not found")
			return
		}
		logger.WithContext(r.Context()).Error("Batch run failed",
			logger.String("kind", kind),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to run rules")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// ListHistory handles GET /api/v1/autoscale/history.
// Authenticated callers only ever see their own records.
func (h *AutoscaleHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.HistoryFilter{
		UserID:  logger.GetUserID(r.Context()),
		RuleID:  query.Get("rule_id"),
		AssetID: query.Get("asset_id"),
		Limit:   defaultHistoryLimit,
	}
	if filter.UserID == "" {
		filter.UserID = query.Get("user_id")
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxHistoryLimit {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			respondWithError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	var err error
	if filter.StartTime, err = parseTimeParam(query.Get("start_time")); err != nil {
		respondWithError(w, http.StatusBadRequest, "start_time must be RFC3339")
		return
	}
	if filter.EndTime, err = parseTimeParam(query.Get("end_time")); err != nil {
		respondWithError(w, http.StatusBadRequest, "end_time must be RFC3339")
		return
	}

	records, err := h.history.List(r.Context(), filter)
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to list history",
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}
	if records == nil {
		records = []*models.HistoryRecord{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"history": records,
		"count":   len(records),
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/ad-autoscaler/internal/autoscale"
	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
)

type fakeRunner struct {
	calls []string
	err   error
	ctx   context.Context
}

func (f *fakeRunner) summary(kind string) *autoscale.BatchSummary {
	return &autoscale.BatchSummary{
		Success:         true,
		Kind:            kind,
		RulesProcessed:  1,
		ActionsExecuted: 1,
		ExecutionTimeMs: 12,
		Results: []autoscale.RuleResult{{
			RuleID:         "rule-1",
			RuleName:       "Scale winners",
			Success:        true,
			ActionExecuted: true,
			Message:        "Block 1 met: 1 executed, 0 skipped, 0 failed of 1 actions",
			Metrics:        models.MetricSnapshot{"roas_today": 2.5},
		}},
	}
}

func (f *fakeRunner) RunHourly(ctx context.Context) (*autoscale.BatchSummary, error) {
	f.calls = append(f.calls, autoscale.KindHourly)
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.summary(autoscale.KindHourly), nil
}

func (f *fakeRunner) RunDaily(ctx context.Context) (*autoscale.BatchSummary, error) {
	f.calls = append(f.calls, autoscale.KindDaily)
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.summary(autoscale.KindDaily), nil
}

func (f *fakeRunner) RunRule(ctx context.Context, ruleID string) (*autoscale.BatchSummary, error) {
	f.calls = append(f.calls, "rule:"+ruleID)
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	if ruleID == "missing" {
		return nil, fmt.Errorf("%w: %s", models.ErrRuleNotFound, ruleID)
	}
	return f.summary(autoscale.KindRule), nil
}

type handlerFixture struct {
	runner  *fakeRunner
	rules   *rules.InMemoryRuleStore
	history *storage.MockHistoryStore
	router  http.Handler
}

func newHandlerFixture(t *testing.T, secret string) *handlerFixture {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	f := &handlerFixture{
		runner:  &fakeRunner{},
		rules:   rules.NewInMemoryRuleStore(),
		history: &storage.MockHistoryStore{},
	}
	handler := NewAutoscaleHandler(f.runner, f.rules, f.history)
	f.router = NewRouter(handler, RouterConfig{
		Auth:         NewAuthManager(secret),
		RateLimitRPS: 100,
		Done:         done,
	})
	return f
}

func (f *handlerFixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func userToken(t *testing.T, userID string) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
}

func TestAutoscaleHandler_RunHourly(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.do("POST", "/api/v1/autoscale/hourly", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, []string{autoscale.KindHourly}, f.runner.calls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["rulesProcessed"])
	assert.Equal(t, float64(1), body["actionsExecuted"])
	assert.Equal(t, float64(12), body["executionTimeMs"])

	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "rule-1", first["ruleId"])
	assert.Equal(t, "Scale winners", first["ruleName"])
	assert.Equal(t, true, first["actionExecuted"])
	assert.Contains(t, first, "blocksEvaluated")
	assert.Equal(t, 2.5, first["metrics"].(map[string]interface{})["roas_today"])
}

func TestAutoscaleHandler_RunDaily(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.do("POST", "/api/v1/autoscale/daily", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{autoscale.KindDaily}, f.runner.calls)
}

func TestAutoscaleHandler_BatchSurvivesClientCancel(t *testing.T) {
	f := newHandlerFixture(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/api/v1/autoscale/hourly", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.runner.ctx)
	assert.NoError(t, f.runner.ctx.Err())
}

func TestAutoscaleHandler_RunnerError(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.runner.err = errors.New("database unavailable")

	w := f.do("POST", "/api/v1/autoscale/hourly", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAutoscaleHandler_WrongMethod(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.do("GET", "/api/v1/autoscale/hourly", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Empty(t, f.runner.calls)
}

func TestAutoscaleHandler_RunRule(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.do("POST", "/api/v1/autoscale/rules/rule-1/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"rule:rule-1"}, f.runner.calls)
}

func TestAutoscaleHandler_RunRuleNotFound(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.do("POST", "/api/v1/autoscale/rules/missing/run", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutoscaleHandler_RunRuleOwnership(t *testing.T) {
	f := newHandlerFixture(t, testSecret)
	require.NoError(t, f.rules.AddRecord(&models.RuleRecord{
		ID: "rule-1", UserID: "owner", AssetID: "asset-1", IsActive: true, Status: rules.RuleStatusEnabled,
	}))

	w := f.do("POST", "/api/v1/autoscale/rules/rule-1/run", userToken(t, "someone-else"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, f.runner.calls)

	w = f.do("POST", "/api/v1/autoscale/rules/rule-1/run", userToken(t, "owner"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"rule:rule-1"}, f.runner.calls)
}

func TestAutoscaleHandler_RequiresToken(t *testing.T) {
	f := newHandlerFixture(t, testSecret)

	w := f.do("POST", "/api/v1/autoscale/hourly", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.runner.calls)

	w = f.do("POST", "/api/v1/autoscale/hourly", userToken(t, "user-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func seedHistory(t *testing.T, store *storage.MockHistoryStore) {
	t.Helper()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, userID := range []string{"user-1", "user-1", "user-2", "user-1"} {
		require.NoError(t, store.Append(context.Background(), &models.HistoryRecord{
			ID:        fmt.Sprintf("h-%d", i),
			RuleID:    fmt.Sprintf("rule-%d", i%2),
			UserID:    userID,
			AssetID:   "asset-1",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
}

type historyBody struct {
	History []models.HistoryRecord `json:"history"`
	Count   int                    `json:"count"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

func TestAutoscaleHandler_ListHistoryScopedToUser(t *testing.T) {
	f := newHandlerFixture(t, testSecret)
	seedHistory(t, f.history)

	// a user_id query parameter never widens an authenticated caller's scope
	w := f.do("GET", "/api/v1/autoscale/history?user_id=user-2", userToken(t, "user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	var body historyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 3, body.Count)
	for _, rec := range body.History {
		assert.Equal(t, "user-1", rec.UserID)
	}
	assert.Equal(t, "h-3", body.History[0].ID, "newest first")
	assert.Equal(t, defaultHistoryLimit, body.Limit)
}

func TestAutoscaleHandler_ListHistoryFilters(t *testing.T) {
	f := newHandlerFixture(t, "")
	seedHistory(t, f.history)

	w := f.do("GET", "/api/v1/autoscale/history?user_id=user-1&rule_id=rule-1&limit=1&offset=0", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body historyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "h-3", body.History[0].ID)

	w = f.do("GET", "/api/v1/autoscale/history?start_time=2026-03-10T13:30:00Z&end_time=2026-03-10T14:30:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = historyBody{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "h-2", body.History[0].ID)
}

func TestAutoscaleHandler_ListHistoryEmpty(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.do("GET", "/api/v1/autoscale/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"history":[],"count":0,"limit":100,"offset":0}`, w.Body.String())
}

func TestAutoscaleHandler_ListHistoryBadParams(t *testing.T) {
	f := newHandlerFixture(t, "")

	for _, query := range []string{
		"limit=0",
		"limit=5000",
		"limit=abc",
		"offset=-1",
		"start_time=yesterday",
		"end_time=2026-13-01",
	} {
		w := f.do("GET", "/api/v1/autoscale/history?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

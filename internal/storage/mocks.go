package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// DailyRow is one daily rollup held by MockMetricStore
type DailyRow struct {
	Date time.Time
	models.AdTotals
}

// MockMetricStore is a mock implementation of MetricStore for testing
type MockMetricStore struct {
	Daily     map[string][]DailyRow              // by asset ID
	Snapshots map[string][]models.HourlySnapshot // by asset ID
	DailyErr  error
	HourlyErr error
}

// NewMockMetricStore creates an empty mock metric store
func NewMockMetricStore() *MockMetricStore {
	return &MockMetricStore{
		Daily:     make(map[string][]DailyRow),
		Snapshots: make(map[string][]models.HourlySnapshot),
	}
}

// AddDay records a daily rollup
func (m *MockMetricStore) AddDay(assetID string, date time.Time, totals models.AdTotals) {
	m.Daily[assetID] = append(m.Daily[assetID], DailyRow{Date: date, AdTotals: totals})
}

// AddSnapshot records an hourly snapshot
func (m *MockMetricStore) AddSnapshot(assetID string, date time.Time, hour int, totals models.AdTotals) {
	m.Snapshots[assetID] = append(m.Snapshots[assetID], models.HourlySnapshot{AdTotals: totals, Date: date, Hour: hour})
}

func (m *MockMetricStore) DailyAggregates(ctx context.Context, productID, assetID string, from, to time.Time) (*models.DailyAggregate, error) {
	if m.DailyErr != nil {
		return nil, m.DailyErr
	}
	agg := &models.DailyAggregate{}
	for _, row := range m.Daily[assetID] {
		d := dayKey(row.Date)
		if d >= dayKey(from) && d <= dayKey(to) {
			agg.AdTotals = agg.AdTotals.Add(row.AdTotals)
			agg.CompleteDayCount++
		}
	}
	return agg, nil
}

func (m *MockMetricStore) LatestHourlySnapshot(ctx context.Context, productID, assetID string, date time.Time, maxHour int) (*models.HourlySnapshot, error) {
	if m.HourlyErr != nil {
		return nil, m.HourlyErr
	}
	var latest *models.HourlySnapshot
	for i := range m.Snapshots[assetID] {
		s := &m.Snapshots[assetID][i]
		if dayKey(s.Date) != dayKey(date) || s.Hour > maxHour {
			continue
		}
		if latest == nil || s.Hour > latest.Hour {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Sale is one confirmed sale held by MockRevenueCalculator
type Sale struct {
	ProductID   string
	Amount      float64
	ConfirmedAt time.Time
}

// MockRevenueCalculator is a mock implementation of RevenueCalculator for testing
type MockRevenueCalculator struct {
	Sales []Sale
	Err   error
}

func (m *MockRevenueCalculator) ConfirmedRevenue(ctx context.Context, productID string, from, to time.Time) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	total := 0.0
	for _, s := range m.Sales {
		if s.ProductID == productID && !s.ConfirmedAt.Before(from) && s.ConfirmedAt.Before(to) {
			total += s.Amount
		}
	}
	return total, nil
}

// MockAssetRepository is a mock implementation of AssetRepository for testing
type MockAssetRepository struct {
	Assets map[string]*models.Asset
	Err    error
}

// NewMockAssetRepository creates a repository holding the given assets
func NewMockAssetRepository(assets ...*models.Asset) *MockAssetRepository {
	m := &MockAssetRepository{Assets: make(map[string]*models.Asset)}
	for _, a := range assets {
		m.Assets[a.ID] = a
	}
	return m
}

func (m *MockAssetRepository) GetActiveAsset(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := m.GetAsset(ctx, id)
	if err != nil || asset == nil || !asset.IsRunnable() {
		return nil, err
	}
	return asset, nil
}

func (m *MockAssetRepository) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	asset, ok := m.Assets[id]
	if !ok {
		return nil, nil
	}
	copied := *asset
	return &copied, nil
}

// MockProductRepository is a mock implementation of ProductRepository for testing
type MockProductRepository struct {
	mu     sync.Mutex
	Active map[string]bool // product ID -> active flag
	Err    error
}

func (m *MockProductRepository) Disable(ctx context.Context, productID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Active[productID]; !ok {
		return false, nil
	}
	m.Active[productID] = false
	return true, nil
}

// MockHistoryStore is a mock implementation of HistoryStore for testing
type MockHistoryStore struct {
	mu        sync.Mutex
	Records   []*models.HistoryRecord
	AppendErr error
	// FailAppends makes the next N appends fail with AppendErr, then succeed
	FailAppends int
	Attempts    int
	LookupErr   error
}

func (m *MockHistoryStore) Append(ctx context.Context, record *models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts++
	if m.AppendErr != nil && (m.FailAppends == 0 || m.Attempts <= m.FailAppends) {
		return m.AppendErr
	}
	copied := *record
	m.Records = append(m.Records, &copied)
	return nil
}

func (m *MockHistoryStore) LastSuccessfulExecution(ctx context.Context, assetID string, actionType models.ActionType) (*time.Time, error) {
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, r := range m.Records {
		if r.AssetID != assetID || !r.ActionExecuted || !r.Success {
			continue
		}
		if !containsAction(r.ExecutedActionTypes, actionType) {
			continue
		}
		if last == nil || r.CreatedAt.After(*last) {
			t := r.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (m *MockHistoryStore) List(ctx context.Context, filter HistoryFilter) ([]*models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.HistoryRecord
	for _, r := range m.Records {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.RuleID != "" && r.RuleID != filter.RuleID {
			continue
		}
		if filter.AssetID != "" && r.AssetID != filter.AssetID {
			continue
		}
		if !filter.StartTime.IsZero() && r.CreatedAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && r.CreatedAt.After(filter.EndTime) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsAction(types []models.ActionType, t models.ActionType) bool {
	for _, at := range types {
		if at == t {
			return true
		}
	}
	return false
}

// MockTimezoneLookup is a mock implementation of TimezoneLookup for testing
type MockTimezoneLookup struct {
	Zones map[string]string // product ID -> zone
	Err   error
	Calls int
}

func (m *MockTimezoneLookup) BotTimezone(ctx context.Context, productID string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Zones[productID], nil
}

// MockCredentialStore is a mock implementation of CredentialStore for testing
type MockCredentialStore struct {
	Credentials map[string]*models.Credential // "platform:userID" -> credential
	Err         error
}

func (m *MockCredentialStore) GetCredential(ctx context.Context, platform, userID string) (*models.Credential, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Credentials[platform+":"+userID], nil
}

// StreamMessage is a message recorded by MockRedisClient
type StreamMessage struct {
	Stream string
	Values map[string]interface{}
}

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu         sync.Mutex
	Data       map[string]string
	StreamData []StreamMessage
	PublishErr error
	GetErr     error
	SetErr     error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data: make(map[string]string),
	}
}

func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamData = append(m.StreamData, StreamMessage{
		Stream: stream,
		Values: map[string]interface{}{key: string(jsonData)},
	})
	return nil
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = string(jsonData)
	return nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	m.mu.Lock()
	val, ok := m.Data[key]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return json.Unmarshal([]byte(val), dest)
}

func (m *MockRedisClient) Close() error {
	return nil
}

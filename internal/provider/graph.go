package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// PlatformFacebook is the platform name of Meta ad assets
const PlatformFacebook = "facebook"

const (
	defaultGraphURL     = "https://graph.facebook.com"
	defaultGraphVersion = "v19.0"
)

var providerRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoscale_provider_requests_total",
		Help: "Total number of ad platform API requests",
	},
	[]string{"platform", "operation", "status"},
)

// GraphProvider controls Meta campaigns and ad sets through the Graph API.
// Budgets travel in minor currency units as decimal strings.
type GraphProvider struct {
	baseURL     string
	version     string
	accessToken string
	httpClient  *http.Client
}

// NewGraphProvider creates a Graph API provider from a credential.
// Extra settings: "base_url" and "api_version".
func NewGraphProvider(cred *models.Credential, cfg Config) (AdProvider, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("facebook credential has no access token")
	}

	p := &GraphProvider{
		baseURL:     defaultGraphURL,
		version:     defaultGraphVersion,
		accessToken: cred.AccessToken,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
	if v := cred.Extra["base_url"]; v != "" {
		p.baseURL = strings.TrimRight(v, "/")
	}
	if v := cred.Extra["api_version"]; v != "" {
		p.version = v
	}
	if p.httpClient.Timeout == 0 {
		p.httpClient.Timeout = 30 * time.Second
	}

	return p, nil
}

type graphBudget struct {
	ID             string `json:"id"`
	DailyBudget    string `json:"daily_budget"`
	LifetimeBudget string `json:"lifetime_budget"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// GetBudget reads the daily or lifetime budget of a campaign or ad set
func (p *GraphProvider) GetBudget(ctx context.Context, assetID, assetType string) (*BudgetInfo, error) {
	if err := checkBudgetAsset(assetType); err != nil {
		return nil, err
	}

	var out graphBudget
	query := url.Values{"fields": {"daily_budget,lifetime_budget"}}
	if err := p.do(ctx, "get_budget", http.MethodGet, assetID, query, &out); err != nil {
		return nil, err
	}

	daily, err := fromMinorUnits(out.DailyBudget)
	if err != nil {
		return nil, fmt.Errorf("invalid daily_budget %q: %w", out.DailyBudget, err)
	}
	if daily.IsPositive() {
		return &BudgetInfo{Budget: daily.InexactFloat64(), BudgetType: BudgetDaily}, nil
	}

	lifetime, err := fromMinorUnits(out.LifetimeBudget)
	if err != nil {
		return nil, fmt.Errorf("invalid lifetime_budget %q: %w", out.LifetimeBudget, err)
	}
	if lifetime.IsPositive() {
		return &BudgetInfo{Budget: lifetime.InexactFloat64(), BudgetType: BudgetLifetime}, nil
	}

	return nil, fmt.Errorf("%w: %s %s", ErrNoBudget, assetType, assetID)
}

// UpdateBudget writes a new budget of the given type
func (p *GraphProvider) UpdateBudget(ctx context.Context, assetID, assetType string, newBudget float64, budgetType string) error {
	if err := checkBudgetAsset(assetType); err != nil {
		return err
	}

	field := "daily_budget"
	switch budgetType {
	case BudgetDaily, "":
	case BudgetLifetime:
		field = "lifetime_budget"
	default:
		return fmt.Errorf("unsupported budget type %q", budgetType)
	}

	form := url.Values{field: {toMinorUnits(newBudget)}}
	return p.do(ctx, "update_budget", http.MethodPost, assetID, form, nil)
}

// PauseAsset sets the asset status to PAUSED
func (p *GraphProvider) PauseAsset(ctx context.Context, assetID, assetType string) error {
	form := url.Values{"status": {"PAUSED"}}
	return p.do(ctx, "pause", http.MethodPost, assetID, form, nil)
}

// do sends a Graph API request. GET parameters go in the query string, POST parameters in the form body.
func (p *GraphProvider) do(ctx context.Context, operation, method, objectID string, params url.Values, dest interface{}) (err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		providerRequests.WithLabelValues(PlatformFacebook, operation, status).Inc()
	}()

	if objectID == "" {
		return fmt.Errorf("asset id cannot be empty")
	}

	params.Set("access_token", p.accessToken)
	endpoint := fmt.Sprintf("%s/%s/%s", p.baseURL, p.version, url.PathEscape(objectID))

	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var gerr graphError
		if json.Unmarshal(respBody, &gerr) == nil && gerr.Error.Message != "" {
			return fmt.Errorf("graph API error (status %d, code %d): %s", resp.StatusCode, gerr.Error.Code, gerr.Error.Message)
		}
		return fmt.Errorf("graph API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	logger.Debug("Graph API request completed",
		logger.String("operation", operation),
		logger.String("object_id", objectID),
		logger.Int("status", resp.StatusCode),
	)

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkBudgetAsset rejects asset types that carry no budget
func checkBudgetAsset(assetType string) error {
	if assetType == "ad" {
		return fmt.Errorf("%w: ads inherit the budget of their ad set", ErrNoBudget)
	}
	return nil
}

// toMinorUnits renders a budget in cents
func toMinorUnits(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).Round(0).String()
}

// fromMinorUnits parses a cents string, empty meaning zero
func fromMinorUnits(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-2), nil
}

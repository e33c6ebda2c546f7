package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

func newTestGraphProvider(t *testing.T, handler http.HandlerFunc) AdProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGraphProvider(&models.Credential{
		Platform:    PlatformFacebook,
		AccessToken: "secret-token",
		Extra:       map[string]string{"base_url": server.URL, "api_version": "v20.0"},
	}, Config{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return p
}

func TestGraphProvider_GetBudget(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     *BudgetInfo
		wantErr  bool
	}{
		{"daily", `{"id":"123","daily_budget":"5050"}`, &BudgetInfo{Budget: 50.5, BudgetType: BudgetDaily}, false},
		{"lifetime", `{"id":"123","daily_budget":"0","lifetime_budget":"100000"}`, &BudgetInfo{Budget: 1000, BudgetType: BudgetLifetime}, false},
		{"no budget", `{"id":"123"}`, nil, true},
		{"garbage", `{"id":"123","daily_budget":"abc"}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGraphProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v20.0/123", r.URL.Path)
				assert.Equal(t, "secret-token", r.URL.Query().Get("access_token"))
				fmt.Fprint(w, tt.response)
			})

			got, err := p.GetBudget(context.Background(), "123", "adset")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGraphProvider_UpdateBudget(t *testing.T) {
	var form map[string]string
	p := newTestGraphProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		fmt.Fprint(w, `{"success":true}`)
	})

	require.NoError(t, p.UpdateBudget(context.Background(), "123", "campaign", 60.25, BudgetDaily))
	assert.Equal(t, "6025", form["daily_budget"])
	assert.Equal(t, "secret-token", form["access_token"])

	require.NoError(t, p.UpdateBudget(context.Background(), "123", "campaign", 10, BudgetLifetime))
	assert.Equal(t, "1000", form["lifetime_budget"])

	assert.Error(t, p.UpdateBudget(context.Background(), "123", "campaign", 10, "weekly"))
}

func TestGraphProvider_PauseAsset(t *testing.T) {
	var status string
	p := newTestGraphProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		status = r.PostForm.Get("status")
		fmt.Fprint(w, `{"success":true}`)
	})

	require.NoError(t, p.PauseAsset(context.Background(), "123", "ad"))
	assert.Equal(t, "PAUSED", status)
}

func TestGraphProvider_APIError(t *testing.T) {
	p := newTestGraphProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`)
	})

	err := p.PauseAsset(context.Background(), "123", "adset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 190")
	assert.Contains(t, err.Error(), "Invalid OAuth access token.")
}

func TestGraphProvider_AdsHaveNoBudget(t *testing.T) {
	p := newTestGraphProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := p.GetBudget(context.Background(), "123", "ad")
	assert.ErrorIs(t, err, ErrNoBudget)
}

func TestNewGraphProvider_RequiresToken(t *testing.T) {
	_, err := NewGraphProvider(&models.Credential{Platform: PlatformFacebook}, Config{})
	assert.Error(t, err)
}

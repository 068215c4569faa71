package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFleet struct{ ready, total int }

func (f fakeFleet) ReadyCount() int { return f.ready }
func (f fakeFleet) Total() int      { return f.total }

type fakeDB struct{ online bool }

func (f fakeDB) GetStatus(context.Context) (string, bool) {
	if f.online {
		return "🟢 | En linea", true
	}
	return "🔴 | Desconectado", false
}

type fakePremium struct {
	reports map[string]*subscription.StatusReport
	active  []*subscription.StatusReport
	codes   map[string]*models.RedemptionCode
	err     error
}

func (f *fakePremium) Status(_ context.Context, guildID string) (*subscription.StatusReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.reports[guildID]; ok {
		return r, nil
	}
	return &subscription.StatusReport{Subscription: models.NewGuildSubscription(guildID)}, nil
}

func (f *fakePremium) LookupCode(_ context.Context, code string) (*models.RedemptionCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.codes[code]; ok {
		return c, nil
	}
	return nil, subscription.ErrCodeNotFound
}

func (f *fakePremium) ActiveSubscriptions(context.Context) ([]*subscription.StatusReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.active, nil
}

func newTestServer(t *testing.T, premium *fakePremium) *Server {
	t.Helper()
	if premium == nil {
		premium = &fakePremium{}
	}
	return NewServer(Options{
		Fleet:    fakeFleet{ready: 1, total: 2},
		Database: fakeDB{online: true},
		Premium:  premium,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("pancy_premium_codes_generated_total 0\n"))
		}),
		AdminKey: "secret",
	})
}

func do(t *testing.T, s *Server, method, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec, body := do(t, s, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["status"])
	assert.EqualValues(t, 1, body["ready_bots"])
	assert.EqualValues(t, 2, body["total_bots"])
	assert.Equal(t, "Discord Bot Service is running. 1/2 bots are ready.", body["message"])
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, nil)
	rec, body := do(t, s, http.MethodGet, "/api/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	db := body["database"].(map[string]interface{})
	assert.Equal(t, true, db["isOnline"])
	bots := body["bots"].(map[string]interface{})
	assert.EqualValues(t, 1, bots["ready"])
}

func TestPremiumServer(t *testing.T) {
	end := time.Now().Add(48 * time.Hour)
	premium := &fakePremium{reports: map[string]*subscription.StatusReport{
		"g1": {
			Subscription: &models.GuildSubscription{GuildID: "g1", VIPRoleID: "r1", SubscriptionEndDate: &end},
			State:        subscription.StateActive,
			Remaining:    48 * time.Hour,
		},
	}}
	s := newTestServer(t, premium)

	rec, body := do(t, s, http.MethodGet, "/api/premium/server/g1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, true, body["active"])
	assert.Equal(t, "r1", body["vipRoleId"])
	assert.EqualValues(t, 48*3600, body["remainingSeconds"])

	rec, body = do(t, s, http.MethodGet, "/api/premium/server/g2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_subscription", body["state"])
	assert.Equal(t, false, body["active"])
	assert.NotContains(t, body, "subscriptionEndDate")
}

func TestPremiumServers(t *testing.T) {
	end := time.Now().Add(12 * time.Hour)
	premium := &fakePremium{active: []*subscription.StatusReport{
		{
			Subscription: &models.GuildSubscription{GuildID: "g1", VIPRoleID: "r1", RedeemingAdminID: "u1", SubscriptionEndDate: &end},
			State:        subscription.StateExpiringSoon,
			Remaining:    12 * time.Hour,
		},
	}}
	s := newTestServer(t, premium)

	rec, body := do(t, s, http.MethodGet, "/api/premium/servers", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	servers, ok := body["servers"].([]interface{})
	require.True(t, ok)
	require.Len(t, servers, 1)
	server := servers[0].(map[string]interface{})
	assert.Equal(t, "g1", server["guildId"])
	assert.Equal(t, "expiring_soon", server["state"])
	assert.Equal(t, true, server["active"])
	assert.NotContains(t, server, "redeemingAdminId")
	assert.NotContains(t, rec.Body.String(), "u1")
}

func TestPremiumServersEmpty(t *testing.T) {
	rec, body := do(t, newTestServer(t, nil), http.MethodGet, "/api/premium/servers", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Empty(t, body["servers"])
}

func TestPremiumServerDatabaseDown(t *testing.T) {
	s := newTestServer(t, &fakePremium{err: errors.Wrap(database.ErrNotConnected, "leyendo suscripción")})
	rec, _ := do(t, s, http.MethodGet, "/api/premium/server/g1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCodeLookup(t *testing.T) {
	premium := &fakePremium{codes: map[string]*models.RedemptionCode{
		"PREM-ABCDEF12": {Code: "PREM-ABCDEF12", Prefix: "PREM", DurationDays: 30},
	}}
	s := newTestServer(t, premium)

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"missing key", "/api/codes/PREM-ABCDEF12", "", http.StatusUnauthorized},
		{"wrong key", "/api/codes/PREM-ABCDEF12", "nope", http.StatusUnauthorized},
		{"found", "/api/codes/PREM-ABCDEF12", "secret", http.StatusOK},
		{"unknown", "/api/codes/NOPE-00000000", "secret", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, s, http.MethodGet, tt.path, map[string]string{"X-Admin-Key": tt.key})
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "PREM-ABCDEF12", body["code"])
				assert.EqualValues(t, 30, body["durationDays"])
			}
		})
	}
}

func TestCodeLookupClosedWithoutKey(t *testing.T) {
	s := NewServer(Options{Premium: &fakePremium{}})
	rec, _ := do(t, s, http.MethodGet, "/api/codes/X", map[string]string{"X-Admin-Key": ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pancy_premium_codes_generated_total")
}

func TestErrorHandlers(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 404, body["status"])

	rec, body = do(t, s, http.MethodPost, "/api/status", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.EqualValues(t, 405, body["status"])
}

func TestRateLimit(t *testing.T) {
	s := NewServer(Options{Fleet: fakeFleet{}, RateLimit: 3})

	for i := 0; i < 3; i++ {
		rec, _ := do(t, s, http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestEventsWebsocket(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.Engine())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Admin-Key": {"secret"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub().ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Hub().Broadcast([]byte(`{"type":"code.redeemed"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"code.redeemed"}`, string(msg))

	conn.Close()
	assert.Eventually(t, func() bool { return s.Hub().ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsWebsocketRequiresAdminKey(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.Engine())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	for name, header := range map[string]http.Header{
		"no key":    nil,
		"wrong key": {"X-Admin-Key": {"nope"}},
	} {
		t.Run(name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Zero(t, s.Hub().ConnectionCount())
}

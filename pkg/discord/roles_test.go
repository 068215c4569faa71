package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PancyStudios/PancyPremiumGo/pkg/metrics"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFleet(t *testing.T, n int) *Fleet {
	t.Helper()
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = "token"
	}
	f, err := NewFleet(tokens)
	require.NoError(t, err)
	return f
}

func TestNewFleetRequiresTokens(t *testing.T) {
	_, err := NewFleet(nil)
	assert.Error(t, err)
}

func TestFleetReadyCount(t *testing.T) {
	f := newTestFleet(t, 3)
	assert.Equal(t, 3, f.Total())
	assert.Zero(t, f.ReadyCount())
	assert.False(t, f.AnyReady())

	f.Clients()[1].setReady(true)
	assert.Equal(t, 1, f.ReadyCount())
	assert.True(t, f.AnyReady())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReadyBots))

	f.Clients()[1].setReady(false)
	assert.Zero(t, testutil.ToFloat64(metrics.ReadyBots))
}

func TestFleetClientFor(t *testing.T) {
	f := newTestFleet(t, 3)

	_, err := f.clientFor("g1")
	assert.True(t, errors.Is(err, ErrNoReadyClient))

	first, second, third := f.Clients()[0], f.Clients()[1], f.Clients()[2]
	first.setReady(true)
	second.setReady(true)
	require.NoError(t, second.Session.State.GuildAdd(&discordgo.Guild{ID: "g1"}))
	require.NoError(t, third.Session.State.GuildAdd(&discordgo.Guild{ID: "g2"}))

	c, err := f.clientFor("g1")
	require.NoError(t, err)
	assert.Same(t, second, c, "member client preferred")

	c, err = f.clientFor("g2")
	require.NoError(t, err)
	assert.Same(t, first, c, "not-ready member falls back to any ready client")

	c, err = f.clientFor("")
	require.NoError(t, err)
	assert.Same(t, first, c)
}

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "x"},
	}
}

func TestClassifyRoleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing permissions", restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), ErrForbidden},
		{"plain 403", restError(http.StatusForbidden, 0), ErrForbidden},
		{"unknown member", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember), ErrMemberNotFound},
		{"unknown role", restError(http.StatusNotFound, discordgo.ErrCodeUnknownRole), ErrMemberNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyRoleError(tt.err)
			assert.True(t, errors.Is(got, tt.want))
		})
	}

	other := errors.New("timeout")
	assert.Equal(t, other, classifyRoleError(other))
	assert.False(t, errors.Is(classifyRoleError(restError(http.StatusInternalServerError, 0)), ErrForbidden))
}

func TestDescribeRoleError(t *testing.T) {
	assert.Empty(t, DescribeRoleError(nil))
	assert.Contains(t, DescribeRoleError(errors.Mark(errors.New("x"), ErrForbidden)), "Sin permisos")
	assert.Contains(t, DescribeRoleError(ErrMemberNotFound), "ya no están")
	assert.Contains(t, DescribeRoleError(errors.New("boom")), "boom")
}

// roleAPI fakes the guild member role endpoints
type roleAPI struct {
	mu       sync.Mutex
	requests []string
	reasons  []string
	status   int
	body     string
}

func (a *roleAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)
	a.reasons = append(a.reasons, r.Header.Get("X-Audit-Log-Reason"))
	status, body := a.status, a.body
	a.mu.Unlock()

	if status == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func withRoleAPI(t *testing.T, api *roleAPI) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	prev := discordgo.EndpointGuilds
	discordgo.EndpointGuilds = srv.URL + "/guilds/"
	t.Cleanup(func() { discordgo.EndpointGuilds = prev })
}

func TestRoleManagerGrantAndRevoke(t *testing.T) {
	api := &roleAPI{}
	withRoleAPI(t, api)

	f := newTestFleet(t, 1)
	f.Clients()[0].setReady(true)
	roles := NewRoleManager(f)

	require.NoError(t, roles.Grant(context.Background(), "g1", "u1", "r1", "Rol premium configurado"))
	require.NoError(t, roles.Revoke(context.Background(), "g1", "u1", "r1", "Suscripción premium expirada"))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.requests, 2)
	assert.Equal(t, "PUT /guilds/g1/members/u1/roles/r1", api.requests[0])
	assert.Equal(t, "DELETE /guilds/g1/members/u1/roles/r1", api.requests[1])
	assert.True(t, strings.Contains(api.reasons[0], "premium"), "audit reason sent: %q", api.reasons[0])
}

func TestRoleManagerForbidden(t *testing.T) {
	api := &roleAPI{status: http.StatusForbidden, body: `{"message": "Missing Permissions", "code": 50013}`}
	withRoleAPI(t, api)

	f := newTestFleet(t, 1)
	f.Clients()[0].setReady(true)

	err := NewRoleManager(f).Grant(context.Background(), "g1", "u1", "r1", "motivo")
	assert.True(t, errors.Is(err, ErrForbidden), "got %v", err)
}

func TestRoleManagerNoReadyClient(t *testing.T) {
	f := newTestFleet(t, 2)
	err := NewRoleManager(f).Revoke(context.Background(), "g1", "u1", "r1", "motivo")
	assert.True(t, errors.Is(err, ErrNoReadyClient))
}

func TestFleetGuildName(t *testing.T) {
	f := newTestFleet(t, 2)
	require.NoError(t, f.Clients()[1].Session.State.GuildAdd(&discordgo.Guild{ID: "g1", Name: "Servidor Uno"}))

	assert.Equal(t, "Servidor Uno", f.GuildName("g1"))
	assert.Equal(t, "g2", f.GuildName("g2"))
}

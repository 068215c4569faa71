package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
)

// memCodes is an in-memory CodeStore with the same CAS semantics as Mongo
type memCodes struct {
	mu        sync.Mutex
	codes     map[string]*models.RedemptionCode
	createErr []error // consumed one per Create call
}

func newMemCodes() *memCodes {
	return &memCodes{codes: map[string]*models.RedemptionCode{}}
}

func (m *memCodes) Create(_ context.Context, code models.RedemptionCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := m.codes[code.Code]; ok {
		return ErrCodeExists
	}
	c := code
	m.codes[code.Code] = &c
	return nil
}

func (m *memCodes) RedeemAtomically(_ context.Context, code, guildID, userID string, now time.Time) (*models.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || c.Redeemed {
		return nil, ErrCodeNotFound
	}
	ts := now
	c.Redeemed = true
	c.RedeemedAtGuildID = guildID
	c.RedeemedByUserID = userID
	c.RedeemedTimestamp = &ts
	out := *c
	return &out, nil
}

func (m *memCodes) Release(_ context.Context, code, guildID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || !c.Redeemed || c.RedeemedAtGuildID != guildID || c.RedeemedByUserID != userID {
		return ErrCodeNotFound
	}
	c.Redeemed = false
	c.RedeemedAtGuildID = ""
	c.RedeemedByUserID = ""
	c.RedeemedTimestamp = nil
	return nil
}

func (m *memCodes) Get(_ context.Context, code string) (*models.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	out := *c
	return &out, nil
}

func (m *memCodes) List(_ context.Context, filter CodeFilter) ([]*models.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RedemptionCode
	for _, c := range m.codes {
		if filter == CodeFilterAvailable && c.Redeemed || filter == CodeFilterRedeemed && !c.Redeemed {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCodes) Revoke(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || c.Redeemed {
		return ErrCodeNotFound
	}
	delete(m.codes, code)
	return nil
}

// memGuilds is an in-memory GuildStore
type memGuilds struct {
	mu     sync.Mutex
	guilds map[string]*models.GuildSubscription
	// applyHook runs before ApplyRedemption evaluates its guard
	applyHook func(guildID string)
}

func newMemGuilds() *memGuilds {
	return &memGuilds{guilds: map[string]*models.GuildSubscription{}}
}

func (m *memGuilds) put(sub models.GuildSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[sub.GuildID] = &sub
}

func (m *memGuilds) snapshot(guildID string) models.GuildSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.guilds[guildID]; ok {
		return *g
	}
	return models.GuildSubscription{GuildID: guildID}
}

func (m *memGuilds) Get(_ context.Context, guildID string) (*models.GuildSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.guilds[guildID]; ok {
		out := *g
		return &out, nil
	}
	return models.NewGuildSubscription(guildID), nil
}

func (m *memGuilds) record(guildID string) *models.GuildSubscription {
	g, ok := m.guilds[guildID]
	if !ok {
		g = models.NewGuildSubscription(guildID)
		m.guilds[guildID] = g
	}
	return g
}

func (m *memGuilds) SetField(_ context.Context, guildID, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.record(guildID)
	switch field {
	case models.FieldVIPRoleID:
		g.VIPRoleID = value.(string)
	case models.FieldRedeemingAdminID:
		g.RedeemingAdminID = value.(string)
	case models.FieldExpiryNotified1d:
		g.ExpiryNotified1d = value.(bool)
	case models.FieldExpiryNotifiedFinal:
		g.ExpiryNotifiedFinal = value.(bool)
	case models.FieldSubscriptionEndDate:
		t := value.(time.Time)
		g.SubscriptionEndDate = &t
	}
	return nil
}

func (m *memGuilds) ApplyRedemption(_ context.Context, guildID, userID string, end, now time.Time) error {
	if m.applyHook != nil {
		m.applyHook(guildID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.record(guildID)
	if g.SubscriptionEndDate != nil && g.SubscriptionEndDate.After(now) {
		return ErrActiveSubscription
	}
	e := end
	g.RedeemingAdminID = userID
	g.SubscriptionEndDate = &e
	g.ExpiryNotified1d = false
	g.ExpiryNotifiedFinal = false
	return nil
}

func (m *memGuilds) ClaimNotification(_ context.Context, guildID, flag string, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guilds[guildID]
	if !ok || g.SubscriptionEndDate == nil || !g.SubscriptionEndDate.Equal(end) {
		return false, nil
	}
	switch flag {
	case models.FieldExpiryNotified1d:
		if g.ExpiryNotified1d {
			return false, nil
		}
		g.ExpiryNotified1d = true
	case models.FieldExpiryNotifiedFinal:
		if g.ExpiryNotifiedFinal {
			return false, nil
		}
		g.ExpiryNotifiedFinal = true
	default:
		return false, nil
	}
	return true, nil
}

func (m *memGuilds) ListWithEndDate(_ context.Context) ([]*models.GuildSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GuildSubscription
	for _, g := range m.guilds {
		if g.SubscriptionEndDate != nil {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

type roleCall struct {
	op, guildID, userID, roleID string
}

// fakeRoles records role operations and fails for configured guilds
type fakeRoles struct {
	mu    sync.Mutex
	calls []roleCall
	fail  map[string]error
	panic map[string]bool
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{fail: map[string]error{}, panic: map[string]bool{}}
}

func (f *fakeRoles) do(op, guildID, userID, roleID string) error {
	if f.panic[guildID] {
		panic("rol inesperado en " + guildID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, roleCall{op, guildID, userID, roleID})
	return f.fail[guildID]
}

func (f *fakeRoles) Grant(_ context.Context, guildID, userID, roleID, _ string) error {
	return f.do("grant", guildID, userID, roleID)
}

func (f *fakeRoles) Revoke(_ context.Context, guildID, userID, roleID, _ string) error {
	return f.do("revoke", guildID, userID, roleID)
}

func (f *fakeRoles) Calls() []roleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]roleCall(nil), f.calls...)
}

// recorder collects emitted events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func timePtr(t time.Time) *time.Time {
	return &t
}

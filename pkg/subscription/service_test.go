package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/metrics"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	codes  *memCodes
	guilds *memGuilds
	roles  *fakeRoles
	events *recorder
	svc    *Service
}

func newServiceFixture(now time.Time) *serviceFixture {
	f := &serviceFixture{
		codes:  newMemCodes(),
		guilds: newMemGuilds(),
		roles:  newFakeRoles(),
		events: &recorder{},
	}
	f.svc = NewService(f.codes, f.guilds, f.roles, WithClock(fixedClock(now)), WithNotifier(f.events))
	return f
}

func (f *serviceFixture) seedCode(t *testing.T, code string, days int) {
	t.Helper()
	require.NoError(t, f.codes.Create(context.Background(), models.RedemptionCode{Code: code, DurationDays: days}))
}

func TestGenerate(t *testing.T) {
	f := newServiceFixture(testNow)
	before := testutil.ToFloat64(metrics.CodesGenerated)

	code, err := f.svc.Generate(context.Background(), "promo", 30, "owner")
	require.NoError(t, err)

	assert.Regexp(t, codePattern, code.Code)
	assert.Equal(t, "promo", code.Prefix)
	assert.Equal(t, 30, code.DurationDays)
	assert.False(t, code.Redeemed)
	assert.Equal(t, "owner", code.CreatedBy)
	assert.Equal(t, testNow, code.CreatedAt)

	stored, err := f.codes.Get(context.Background(), code.Code)
	require.NoError(t, err)
	assert.Equal(t, 30, stored.DurationDays)

	evs := f.events.ofType(EventCodeGenerated)
	require.Len(t, evs, 1)
	assert.Equal(t, code.Code, evs[0].Code)
	assert.NotEmpty(t, evs[0].ID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CodesGenerated))
}

func TestGenerateRejectsInvalidDuration(t *testing.T) {
	f := newServiceFixture(testNow)
	for _, days := range []int{0, -1, MaxDurationDays + 1} {
		_, err := f.svc.Generate(context.Background(), "x", days, "owner")
		assert.True(t, errors.Is(err, ErrInvalidDuration), "days=%d", days)
	}
	assert.Empty(t, f.events.ofType(EventCodeGenerated))
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	f := newServiceFixture(testNow)
	f.codes.createErr = []error{ErrCodeExists, ErrCodeExists}

	code, err := f.svc.Generate(context.Background(), "x", 7, "owner")
	require.NoError(t, err)
	assert.NotEmpty(t, code.Code)
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	f := newServiceFixture(testNow)
	for i := 0; i < maxGenerateAttempts; i++ {
		f.codes.createErr = append(f.codes.createErr, ErrCodeExists)
	}

	_, err := f.svc.Generate(context.Background(), "x", 7, "owner")
	assert.True(t, errors.Is(err, ErrCodeExists))
}

func TestRedeemSetsEndDateAndResetsFlags(t *testing.T) {
	for _, days := range []int{1, 30, 365} {
		f := newServiceFixture(testNow)
		f.seedCode(t, "AAAAAAAAAAAA", days)
		f.guilds.put(models.GuildSubscription{
			GuildID:             "g1",
			VIPRoleID:           "role",
			RedeemingAdminID:    "old-admin",
			SubscriptionEndDate: timePtr(testNow.Add(-48 * time.Hour)),
			ExpiryNotified1d:    true,
			ExpiryNotifiedFinal: true,
		})

		res, err := f.svc.Redeem(context.Background(), "aaaaaaaaaaaa", "g1", "admin")
		require.NoError(t, err)

		want := testNow.Add(time.Duration(days) * 24 * time.Hour)
		stored := f.guilds.snapshot("g1")
		require.NotNil(t, stored.SubscriptionEndDate)
		assert.True(t, want.Equal(*stored.SubscriptionEndDate))
		assert.False(t, stored.ExpiryNotified1d)
		assert.False(t, stored.ExpiryNotifiedFinal)
		assert.Equal(t, "admin", stored.RedeemingAdminID)
		assert.Equal(t, "role", stored.VIPRoleID)

		assert.Equal(t, "admin", res.Subscription.RedeemingAdminID)
		assert.True(t, res.Code.Redeemed)
		assert.Equal(t, "g1", res.Code.RedeemedAtGuildID)

		evs := f.events.ofType(EventCodeRedeemed)
		require.Len(t, evs, 1)
		assert.True(t, want.Equal(*evs[0].EndDate))
	}
}

func TestRedeemRejectedWhileActive(t *testing.T) {
	for _, role := range []string{"", "role"} {
		f := newServiceFixture(testNow)
		f.seedCode(t, "BBBBBBBBBBBB", 30)
		f.guilds.put(models.GuildSubscription{
			GuildID:             "g1",
			VIPRoleID:           role,
			RedeemingAdminID:    "first",
			SubscriptionEndDate: timePtr(testNow.Add(time.Minute)),
		})

		_, err := f.svc.Redeem(context.Background(), "BBBBBBBBBBBB", "g1", "second")
		assert.True(t, errors.Is(err, ErrActiveSubscription), "role=%q", role)

		code, _ := f.codes.Get(context.Background(), "BBBBBBBBBBBB")
		assert.False(t, code.Redeemed, "code must stay available")
		assert.Equal(t, "first", f.guilds.snapshot("g1").RedeemingAdminID)
	}
}

func TestRedeemTwiceFails(t *testing.T) {
	f := newServiceFixture(testNow)
	f.seedCode(t, "CCCCCCCCCCCC", 30)

	_, err := f.svc.Redeem(context.Background(), "CCCCCCCCCCCC", "g1", "u1")
	require.NoError(t, err)

	for _, guild := range []string{"g1", "g2"} {
		_, err = f.svc.Redeem(context.Background(), "CCCCCCCCCCCC", guild, "someone")
		if guild == "g1" {
			assert.True(t, errors.Is(err, ErrActiveSubscription))
		} else {
			assert.True(t, errors.Is(err, ErrCodeNotFound))
		}
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	f := newServiceFixture(testNow)
	_, err := f.svc.Redeem(context.Background(), "DDDDDDDDDDDD", "g1", "u1")
	assert.True(t, errors.Is(err, ErrCodeNotFound))

	_, err = f.svc.Redeem(context.Background(), "   ", "g1", "u1")
	assert.True(t, errors.Is(err, ErrCodeNotFound))
}

func TestRedeemRequiresGuild(t *testing.T) {
	f := newServiceFixture(testNow)
	_, err := f.svc.Redeem(context.Background(), "DDDDDDDDDDDD", "", "u1")
	assert.True(t, errors.Is(err, ErrGuildRequired))
}

func TestConcurrentRedeemOneWinner(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newServiceFixture(testNow)
		f.seedCode(t, "EEEEEEEEEEEE", 30)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		start := make(chan struct{})
		for j, guild := range []string{"g1", "g2"} {
			wg.Add(1)
			go func(j int, guild string) {
				defer wg.Done()
				<-start
				_, errs[j] = f.svc.Redeem(context.Background(), "EEEEEEEEEEEE", guild, "user-"+guild)
			}(j, guild)
		}
		close(start)
		wg.Wait()

		successes, notFound := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCodeNotFound):
				notFound++
			}
		}
		require.Equal(t, 1, successes)
		require.Equal(t, 1, notFound)
	}
}

func TestRedeemGuildRaceReleasesCode(t *testing.T) {
	f := newServiceFixture(testNow)
	f.seedCode(t, "FFFFFFFFFFFF", 30)

	// Another redemption lands between the guard read and the guild update.
	var once sync.Once
	f.guilds.applyHook = func(guildID string) {
		once.Do(func() {
			f.guilds.put(models.GuildSubscription{
				GuildID:             guildID,
				RedeemingAdminID:    "racer",
				SubscriptionEndDate: timePtr(testNow.Add(30 * 24 * time.Hour)),
			})
		})
	}

	_, err := f.svc.Redeem(context.Background(), "FFFFFFFFFFFF", "g1", "late")
	assert.True(t, errors.Is(err, ErrActiveSubscription))

	code, err := f.codes.Get(context.Background(), "FFFFFFFFFFFF")
	require.NoError(t, err)
	assert.False(t, code.Redeemed)
	assert.Empty(t, code.RedeemedAtGuildID)
	assert.Equal(t, "racer", f.guilds.snapshot("g1").RedeemingAdminID)
	assert.Empty(t, f.events.ofType(EventCodeRedeemed))
}

func TestBindRoleWithoutRedeemer(t *testing.T) {
	f := newServiceFixture(testNow)

	res, err := f.svc.BindRole(context.Background(), "g1", "role", "admin")
	require.NoError(t, err)

	assert.True(t, res.MissingRedeemer)
	assert.False(t, res.Granted)
	assert.Empty(t, f.roles.Calls())
	assert.Equal(t, "role", f.guilds.snapshot("g1").VIPRoleID)
	assert.Equal(t, StateNoSubscription, res.State)

	evs := f.events.ofType(EventRoleBound)
	require.Len(t, evs, 1)
	assert.Equal(t, OutcomeMissingRedeemer, evs[0].Outcome)
}

func TestBindRoleGrantsToRedeemer(t *testing.T) {
	f := newServiceFixture(testNow)
	f.seedCode(t, "222222222222", 30)
	_, err := f.svc.Redeem(context.Background(), "222222222222", "g1", "redeemer")
	require.NoError(t, err)

	res, err := f.svc.BindRole(context.Background(), "g1", "role", "admin")
	require.NoError(t, err)

	assert.True(t, res.Granted)
	assert.Equal(t, StateActive, res.State)
	assert.Equal(t, []roleCall{{"grant", "g1", "redeemer", "role"}}, f.roles.Calls())
}

func TestBindRoleGrantFailureKeepsBinding(t *testing.T) {
	f := newServiceFixture(testNow)
	f.guilds.put(models.GuildSubscription{
		GuildID:             "g1",
		RedeemingAdminID:    "redeemer",
		SubscriptionEndDate: timePtr(testNow.Add(10 * 24 * time.Hour)),
	})
	f.roles.fail["g1"] = errors.New("forbidden")

	res, err := f.svc.BindRole(context.Background(), "g1", "role", "admin")
	require.NoError(t, err)

	assert.False(t, res.Granted)
	assert.Error(t, res.GrantErr)
	assert.Equal(t, "role", f.guilds.snapshot("g1").VIPRoleID)

	evs := f.events.ofType(EventRoleBound)
	require.Len(t, evs, 1)
	assert.Equal(t, OutcomeGrantFailed, evs[0].Outcome)
	assert.Equal(t, "forbidden", evs[0].Error)
}

func TestStatus(t *testing.T) {
	f := newServiceFixture(testNow)
	f.guilds.put(models.GuildSubscription{
		GuildID:             "g1",
		VIPRoleID:           "role",
		SubscriptionEndDate: timePtr(testNow.Add(12 * time.Hour)),
	})

	report, err := f.svc.Status(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, StateExpiringSoon, report.State)
	assert.Equal(t, 12*time.Hour, report.Remaining)

	report, err = f.svc.Status(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, StateNoSubscription, report.State)
	assert.Zero(t, report.Remaining)
}

func TestGenerateBatch(t *testing.T) {
	f := newServiceFixture(testNow)

	codes, err := f.svc.GenerateBatch(context.Background(), "lote", 31, MaxBatchSize, "owner")
	require.NoError(t, err)
	require.Len(t, codes, MaxBatchSize)

	seen := map[string]bool{}
	for _, c := range codes {
		assert.Equal(t, "lote", c.Prefix)
		assert.Equal(t, 31, c.DurationDays)
		seen[c.Code] = true
	}
	assert.Len(t, seen, MaxBatchSize)
	assert.Len(t, f.events.ofType(EventCodeGenerated), MaxBatchSize)
}

func TestGenerateBatchRejectsSize(t *testing.T) {
	f := newServiceFixture(testNow)
	for _, n := range []int{0, -3, MaxBatchSize + 1} {
		codes, err := f.svc.GenerateBatch(context.Background(), "x", 30, n, "owner")
		assert.True(t, errors.Is(err, ErrInvalidBatchSize), "count=%d", n)
		assert.Empty(t, codes)
	}
}

func TestGenerateBatchReturnsPartialResult(t *testing.T) {
	f := newServiceFixture(testNow)
	// first code succeeds, the second exhausts every collision retry
	f.codes.createErr = []error{nil}
	for i := 0; i < maxGenerateAttempts; i++ {
		f.codes.createErr = append(f.codes.createErr, ErrCodeExists)
	}

	codes, err := f.svc.GenerateBatch(context.Background(), "x", 30, 3, "owner")
	assert.True(t, errors.Is(err, ErrCodeExists))
	assert.Len(t, codes, 1)
}

func TestActiveSubscriptions(t *testing.T) {
	f := newServiceFixture(testNow)
	f.guilds.put(models.GuildSubscription{GuildID: "active", SubscriptionEndDate: timePtr(testNow.Add(72 * time.Hour))})
	f.guilds.put(models.GuildSubscription{GuildID: "soon", SubscriptionEndDate: timePtr(testNow.Add(2 * time.Hour))})
	f.guilds.put(models.GuildSubscription{GuildID: "expired", SubscriptionEndDate: timePtr(testNow.Add(-time.Hour))})
	f.guilds.put(models.GuildSubscription{GuildID: "never"})

	reports, err := f.svc.ActiveSubscriptions(context.Background())
	require.NoError(t, err)

	states := map[string]State{}
	for _, r := range reports {
		states[r.Subscription.GuildID] = r.State
	}
	assert.Equal(t, map[string]State{"active": StateActive, "soon": StateExpiringSoon}, states)
}

func TestRevokeCode(t *testing.T) {
	f := newServiceFixture(testNow)
	f.seedCode(t, "333333333333", 30)
	f.seedCode(t, "444444444444", 30)
	_, err := f.svc.Redeem(context.Background(), "444444444444", "g1", "u1")
	require.NoError(t, err)

	rec, err := f.svc.RevokeCode(context.Background(), "333333333333", "owner")
	require.NoError(t, err)
	assert.Equal(t, "333333333333", rec.Code)
	_, err = f.codes.Get(context.Background(), "333333333333")
	assert.True(t, errors.Is(err, ErrCodeNotFound))
	assert.Len(t, f.events.ofType(EventCodeRevoked), 1)

	_, err = f.svc.RevokeCode(context.Background(), "444444444444", "owner")
	assert.True(t, errors.Is(err, ErrCodeRedeemed))

	_, err = f.svc.RevokeCode(context.Background(), "555555555555", "owner")
	assert.True(t, errors.Is(err, ErrCodeNotFound))
}

func TestListCodes(t *testing.T) {
	f := newServiceFixture(testNow)
	f.seedCode(t, "666666666666", 30)
	f.seedCode(t, "777777777777", 30)
	_, err := f.svc.Redeem(context.Background(), "777777777777", "g1", "u1")
	require.NoError(t, err)

	all, err := f.svc.ListCodes(context.Background(), CodeFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	available, err := f.svc.ListCodes(context.Background(), CodeFilterAvailable)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "666666666666", available[0].Code)
}

package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/metrics"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// maxGenerateAttempts bounds retries on code collisions
const maxGenerateAttempts = 5

// Side-effect outcomes carried by events and results
const (
	OutcomeGranted         = "granted"
	OutcomeGrantFailed     = "grant_failed"
	OutcomeMissingRedeemer = "missing_redeemer"
	OutcomeRemoved         = "removed"
	OutcomeRemoveFailed    = "remove_failed"
	OutcomeNothingToRemove = "nothing_to_remove"
)

// Option configures a Service or a Sweeper
type Option func(*options)

type options struct {
	now      func() time.Time
	notifier Notifier
	ready    ReadyFunc
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, notifier: nopNotifier{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotifier sets the event sink
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// Service runs the lifecycle transitions triggered by commands
type Service struct {
	codes  CodeStore
	guilds GuildStore
	roles  RoleManager
	opts   options
}

var (
	service     *Service
	serviceOnce sync.Once
)

// Init initializes the global service
func Init(codes CodeStore, guilds GuildStore, roles RoleManager, opts ...Option) *Service {
	serviceOnce.Do(func() {
		service = NewService(codes, guilds, roles, opts...)
	})
	return service
}

// Get returns the global service, nil before Init
func Get() *Service {
	return service
}

// NewService creates a Service
func NewService(codes CodeStore, guilds GuildStore, roles RoleManager, opts ...Option) *Service {
	return &Service{
		codes:  codes,
		guilds: guilds,
		roles:  roles,
		opts:   buildOptions(opts),
	}
}

// Now returns the service clock's current time
func (s *Service) Now() time.Time {
	return s.opts.now()
}

// Generate creates a new unredeemed code
func (s *Service) Generate(ctx context.Context, prefix string, durationDays int, ownerID string) (*models.RedemptionCode, error) {
	if durationDays <= 0 || durationDays > MaxDurationDays {
		return nil, errors.Wrapf(ErrInvalidDuration, "%d días", durationDays)
	}

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		token, err := NewCode()
		if err != nil {
			return nil, err
		}

		now := s.opts.now()
		code := models.RedemptionCode{
			Code:         token,
			Prefix:       prefix,
			DurationDays: durationDays,
			CreatedBy:    ownerID,
			CreatedAt:    now,
		}

		err = s.codes.Create(ctx, code)
		if errors.Is(err, ErrCodeExists) {
			logger.Warn(fmt.Sprintf("Colisión de código (intento %d/%d), regenerando...", attempt, maxGenerateAttempts), "Premium")
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "guardando código")
		}

		metrics.CodesGenerated.Inc()

		ev := newEvent(EventCodeGenerated, now)
		ev.ActorID = ownerID
		ev.Code = token
		ev.Prefix = prefix
		ev.DurationDays = durationDays
		s.opts.notifier.Notify(ctx, ev)

		return &code, nil
	}

	return nil, errors.Wrapf(ErrCodeExists, "%d intentos agotados", maxGenerateAttempts)
}

// GenerateBatch creates count codes sharing prefix and duration. On error
// the codes created so far are returned with it.
func (s *Service) GenerateBatch(ctx context.Context, prefix string, durationDays, count int, ownerID string) ([]*models.RedemptionCode, error) {
	if count <= 0 || count > MaxBatchSize {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "%d (máximo %d)", count, MaxBatchSize)
	}

	codes := make([]*models.RedemptionCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := s.Generate(ctx, prefix, durationDays, ownerID)
		if err != nil {
			return codes, errors.Wrapf(err, "código %d de %d", i+1, count)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Redemption is the result of a successful Redeem
type Redemption struct {
	Code         *models.RedemptionCode
	Subscription *models.GuildSubscription
}

// Redeem consumes code for guildID on behalf of userID and starts a new
// subscription period. It fails with ErrActiveSubscription while the guild
// still has time left and with ErrCodeNotFound for unknown or used codes.
func (s *Service) Redeem(ctx context.Context, code, guildID, userID string) (*Redemption, error) {
	code = NormalizeCode(code)
	if guildID == "" {
		return nil, ErrGuildRequired
	}
	if code == "" {
		s.countRedemption("not_found")
		return nil, ErrCodeNotFound
	}

	now := s.opts.now()

	sub, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		s.countRedemption(metrics.ResultFailure)
		return nil, errors.Wrap(err, "leyendo suscripción")
	}
	if HasActiveSubscription(sub, now) {
		s.countRedemption("active")
		return nil, ErrActiveSubscription
	}

	rec, err := s.codes.RedeemAtomically(ctx, code, guildID, userID, now)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			s.countRedemption("not_found")
			return nil, ErrCodeNotFound
		}
		s.countRedemption(metrics.ResultFailure)
		return nil, errors.Wrap(err, "canjeando código")
	}

	end := now.Add(time.Duration(rec.DurationDays) * 24 * time.Hour)
	if err := s.guilds.ApplyRedemption(ctx, guildID, userID, end, now); err != nil {
		// The code was consumed but the guild was not updated: give it back.
		if relErr := s.codes.Release(ctx, code, guildID, userID); relErr != nil {
			logger.Error(fmt.Sprintf("No se pudo liberar el código %s tras fallo en %s: %v", code, guildID, relErr), "Premium")
		}
		if errors.Is(err, ErrActiveSubscription) {
			s.countRedemption("active")
			return nil, ErrActiveSubscription
		}
		s.countRedemption(metrics.ResultFailure)
		return nil, errors.Wrap(err, "aplicando suscripción")
	}

	sub.RedeemingAdminID = userID
	sub.SubscriptionEndDate = &end
	sub.ExpiryNotified1d = false
	sub.ExpiryNotifiedFinal = false

	s.countRedemption(metrics.ResultSuccess)

	ev := newEvent(EventCodeRedeemed, now)
	ev.GuildID = guildID
	ev.UserID = userID
	ev.Code = code
	ev.DurationDays = rec.DurationDays
	ev.EndDate = &end
	s.opts.notifier.Notify(ctx, ev)

	return &Redemption{Code: rec, Subscription: sub}, nil
}

func (s *Service) countRedemption(result string) {
	metrics.Redemptions.WithLabelValues(result).Inc()
}

// BindResult reports what BindRole did
type BindResult struct {
	Subscription    *models.GuildSubscription
	State           State
	Granted         bool
	MissingRedeemer bool
	// GrantErr is set when the role was stored but could not be assigned
	GrantErr error
}

// BindRole stores roleID as the guild's VIP role and grants it to the last
// redeemer. A failed grant is reported in the result and does not undo the
// stored binding.
func (s *Service) BindRole(ctx context.Context, guildID, roleID, actorID string) (*BindResult, error) {
	if guildID == "" {
		return nil, ErrGuildRequired
	}

	if err := s.guilds.SetField(ctx, guildID, models.FieldVIPRoleID, roleID); err != nil {
		return nil, errors.Wrap(err, "guardando rol VIP")
	}

	sub, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return nil, errors.Wrap(err, "leyendo suscripción")
	}

	now := s.opts.now()
	res := &BindResult{Subscription: sub, State: DeriveState(sub, now)}

	ev := newEvent(EventRoleBound, now)
	ev.GuildID = guildID
	ev.ActorID = actorID
	ev.RoleID = roleID
	ev.EndDate = sub.SubscriptionEndDate

	if sub.RedeemingAdminID == "" {
		res.MissingRedeemer = true
		ev.Outcome = OutcomeMissingRedeemer
	} else {
		ev.UserID = sub.RedeemingAdminID
		reason := "Rol premium configurado"
		if err := s.roles.Grant(ctx, guildID, sub.RedeemingAdminID, roleID, reason); err != nil {
			res.GrantErr = err
			ev.Outcome = OutcomeGrantFailed
			ev.Error = err.Error()
			metrics.RoleOperations.WithLabelValues("grant", metrics.ResultFailure).Inc()
		} else {
			res.Granted = true
			ev.Outcome = OutcomeGranted
			metrics.RoleOperations.WithLabelValues("grant", metrics.ResultSuccess).Inc()
		}
	}

	s.opts.notifier.Notify(ctx, ev)
	return res, nil
}

// StatusReport is the derived view of a guild subscription
type StatusReport struct {
	Subscription *models.GuildSubscription `json:"subscription"`
	State        State                     `json:"state"`
	Remaining    time.Duration             `json:"-"`
}

// Status returns the guild's record and derived state
func (s *Service) Status(ctx context.Context, guildID string) (*StatusReport, error) {
	if guildID == "" {
		return nil, ErrGuildRequired
	}
	sub, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return nil, errors.Wrap(err, "leyendo suscripción")
	}

	return newStatusReport(sub, s.opts.now()), nil
}

// ActiveSubscriptions returns the guilds whose period has not ended yet
func (s *Service) ActiveSubscriptions(ctx context.Context) ([]*StatusReport, error) {
	subs, err := s.guilds.ListWithEndDate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listando suscripciones")
	}

	now := s.opts.now()
	active := lo.Filter(subs, func(sub *models.GuildSubscription, _ int) bool {
		return HasActiveSubscription(sub, now)
	})
	return lo.Map(active, func(sub *models.GuildSubscription, _ int) *StatusReport {
		return newStatusReport(sub, now)
	}), nil
}

func newStatusReport(sub *models.GuildSubscription, now time.Time) *StatusReport {
	report := &StatusReport{Subscription: sub, State: DeriveState(sub, now)}
	if HasActiveSubscription(sub, now) {
		report.Remaining = sub.SubscriptionEndDate.Sub(now)
	}
	return report
}

// LookupCode returns a code by its token
func (s *Service) LookupCode(ctx context.Context, code string) (*models.RedemptionCode, error) {
	return s.codes.Get(ctx, NormalizeCode(code))
}

// ListCodes lists codes matching filter
func (s *Service) ListCodes(ctx context.Context, filter CodeFilter) ([]*models.RedemptionCode, error) {
	return s.codes.List(ctx, filter)
}

// RevokeCode deletes an unredeemed code
func (s *Service) RevokeCode(ctx context.Context, code, actorID string) (*models.RedemptionCode, error) {
	code = NormalizeCode(code)
	rec, err := s.codes.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec.Redeemed {
		return rec, ErrCodeRedeemed
	}
	if err := s.codes.Revoke(ctx, code); err != nil {
		return nil, err
	}

	ev := newEvent(EventCodeRevoked, s.opts.now())
	ev.ActorID = actorID
	ev.Code = code
	ev.Prefix = rec.Prefix
	ev.DurationDays = rec.DurationDays
	s.opts.notifier.Notify(ctx, ev)

	return rec, nil
}

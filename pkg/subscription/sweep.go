package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/metrics"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/google/uuid"
)

// ReadyFunc reports whether at least one bot connection can act on guilds
type ReadyFunc func() bool

// WithReadyFunc makes the sweep skip cycles while ready returns false
func WithReadyFunc(ready ReadyFunc) Option {
	return func(o *options) { o.ready = ready }
}

// SweepReport summarizes one sweep cycle
type SweepReport struct {
	RunID   string `json:"runId"`
	Skipped bool   `json:"skipped"`
	Scanned int    `json:"scanned"`
	Warned  int    `json:"warned"`
	Expired int    `json:"expired"`
	Failed  int    `json:"failed"`
	Err     error  `json:"-"`
}

// Sweeper periodically advances every subscription towards expiry
type Sweeper struct {
	guilds   GuildStore
	roles    RoleManager
	interval time.Duration
	opts     options

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSweeper creates a Sweeper running every interval
func NewSweeper(guilds GuildStore, roles RoleManager, interval time.Duration, opts ...Option) *Sweeper {
	return &Sweeper{
		guilds:   guilds,
		roles:    roles,
		interval: interval,
		opts:     buildOptions(opts),
	}
}

// Start launches the sweep loop. The first cycle runs immediately; missed
// cycles are not caught up. Calling Start on a running sweeper is a no-op
// and returns false.
func (sw *Sweeper) Start(ctx context.Context) bool {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return false
	}
	sw.running = true
	sw.stop = make(chan struct{})
	sw.done = make(chan struct{})
	stopChan, doneChan := sw.stop, sw.done
	sw.mu.Unlock()

	go func() {
		defer close(doneChan)
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		logger.Info("Barrido de expiraciones iniciado (intervalo: "+sw.interval.String()+")", "Sweep")
		sw.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				sw.RunOnce(ctx)
			case <-stopChan:
				logger.Info("Barrido de expiraciones detenido", "Sweep")
				return
			case <-ctx.Done():
				logger.Info("Barrido de expiraciones cancelado", "Sweep")
				return
			}
		}
	}()
	return true
}

// Stop ends the loop and waits for an in-flight cycle to finish
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return
	}
	sw.running = false
	close(sw.stop)
	done := sw.done
	sw.mu.Unlock()

	<-done
}

// Running reports whether Start was called without a matching Stop
func (sw *Sweeper) Running() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.running
}

// RunOnce performs a single sweep cycle. Each record is handled on its
// own; a failure or panic in one never stops the others.
func (sw *Sweeper) RunOnce(ctx context.Context) SweepReport {
	report := SweepReport{RunID: uuid.NewString()}

	if sw.opts.ready != nil && !sw.opts.ready() {
		report.Skipped = true
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		logger.Debug("Barrido omitido: ninguna conexión lista", "Sweep")
		return report
	}

	subs, err := sw.guilds.ListWithEndDate(ctx)
	if err != nil {
		report.Err = err
		metrics.SweepRuns.WithLabelValues(metrics.ResultFailure).Inc()
		logger.Error(fmt.Sprintf("[%s] Error listando suscripciones: %v", report.RunID, err), "Sweep")
		return report
	}

	now := sw.opts.now()
	for _, sub := range subs {
		report.Scanned++

		var action Action
		err := apperrors.Guard(func() error {
			var err error
			action, err = sw.process(ctx, sub, now)
			return err
		})
		if err != nil {
			report.Failed++
			logger.Error(fmt.Sprintf("[%s] Error procesando el servidor %s: %v", report.RunID, sub.GuildID, err), "Sweep")
			continue
		}

		switch action {
		case ActionWarn:
			report.Warned++
		case ActionExpire:
			report.Expired++
		}
		if action != ActionNone {
			metrics.SweepActions.WithLabelValues(action.String()).Inc()
		}
	}

	metrics.SweepRuns.WithLabelValues(metrics.ResultSuccess).Inc()
	logger.Info(fmt.Sprintf("[%s] Barrido completado: %d revisados, %d avisos, %d expirados, %d fallidos",
		report.RunID, report.Scanned, report.Warned, report.Expired, report.Failed), "Sweep")
	return report
}

// process applies the action for one record. The notification flag is
// claimed before any side effect so that concurrent sweeps act once.
func (sw *Sweeper) process(ctx context.Context, sub *models.GuildSubscription, now time.Time) (Action, error) {
	action := EvaluateExpiry(sub, now)
	if action == ActionNone {
		return ActionNone, nil
	}

	end := *sub.SubscriptionEndDate
	flag := models.FieldExpiryNotified1d
	if action == ActionExpire {
		flag = models.FieldExpiryNotifiedFinal
	}

	claimed, err := sw.guilds.ClaimNotification(ctx, sub.GuildID, flag, end)
	if err != nil {
		return ActionNone, err
	}
	if !claimed {
		return ActionNone, nil
	}

	if action == ActionWarn {
		ev := newEvent(EventExpiryWarning, now)
		ev.GuildID = sub.GuildID
		ev.UserID = sub.RedeemingAdminID
		ev.RoleID = sub.VIPRoleID
		ev.EndDate = &end
		sw.opts.notifier.Notify(ctx, ev)
		return ActionWarn, nil
	}

	ev := newEvent(EventSubscriptionExpired, now)
	ev.GuildID = sub.GuildID
	ev.UserID = sub.RedeemingAdminID
	ev.RoleID = sub.VIPRoleID
	ev.EndDate = &end

	if sub.VIPRoleID == "" || sub.RedeemingAdminID == "" {
		ev.Outcome = OutcomeNothingToRemove
	} else if err := sw.roles.Revoke(ctx, sub.GuildID, sub.RedeemingAdminID, sub.VIPRoleID, "Suscripción premium expirada"); err != nil {
		ev.Outcome = OutcomeRemoveFailed
		ev.Error = err.Error()
		metrics.RoleOperations.WithLabelValues("revoke", metrics.ResultFailure).Inc()
		logger.Warn(fmt.Sprintf("No se pudo quitar el rol %s en %s: %v", sub.VIPRoleID, sub.GuildID, err), "Sweep")
	} else {
		ev.Outcome = OutcomeRemoved
		metrics.RoleOperations.WithLabelValues("revoke", metrics.ResultSuccess).Inc()
	}

	sw.opts.notifier.Notify(ctx, ev)
	return ActionExpire, nil
}

// Package subscription implements the premium lifecycle: code generation,
// redemption, role binding and the expiry sweep.
//
// A guild's status is never stored. It is derived from the stored end date,
// role binding and notification flags by DeriveState, and the sweep's
// decisions come from EvaluateExpiry, both pure functions of the record and
// the current time.
package subscription

import (
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
)

// WarningWindow is how long before expiry the one-time warning fires
const WarningWindow = 24 * time.Hour

// State is the derived lifecycle state of a guild subscription
type State int

const (
	StateNoSubscription State = iota
	StatePendingRoleBinding
	StateActive
	StateExpiringSoon
	StateExpired
)

// String returns the state name used in logs, APIs and MQTT payloads
func (s State) String() string {
	switch s {
	case StateNoSubscription:
		return "no_subscription"
	case StatePendingRoleBinding:
		return "pending_role_binding"
	case StateActive:
		return "active"
	case StateExpiringSoon:
		return "expiring_soon"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Label returns the user-facing name of the state
func (s State) Label() string {
	switch s {
	case StateNoSubscription:
		return "⚪ Sin suscripción"
	case StatePendingRoleBinding:
		return "🟡 Pendiente de rol"
	case StateActive:
		return "🟢 Activa"
	case StateExpiringSoon:
		return "🟠 Expira pronto"
	case StateExpired:
		return "🔴 Expirada"
	default:
		return "❔ Desconocido"
	}
}

// MarshalText makes State render as its name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DeriveState computes the lifecycle state of sub at now.
// Expiry takes precedence over a missing role binding.
func DeriveState(sub *models.GuildSubscription, now time.Time) State {
	if sub == nil || sub.SubscriptionEndDate == nil {
		return StateNoSubscription
	}
	end := *sub.SubscriptionEndDate
	switch {
	case end.Before(now):
		return StateExpired
	case sub.VIPRoleID == "":
		return StatePendingRoleBinding
	case end.Before(now.Add(WarningWindow)):
		return StateExpiringSoon
	default:
		return StateActive
	}
}

// HasActiveSubscription reports whether the end date is strictly in the
// future, whatever the role binding.
func HasActiveSubscription(sub *models.GuildSubscription, now time.Time) bool {
	return sub != nil && sub.SubscriptionEndDate != nil && sub.SubscriptionEndDate.After(now)
}

// Action is what the sweep must do with a record
type Action int

const (
	ActionNone Action = iota
	ActionWarn
	ActionExpire
)

// String returns the action name used as a metric label
func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionExpire:
		return "expire"
	default:
		return "none"
	}
}

// EvaluateExpiry decides the sweep action for sub at now. The final branch
// has priority: a record first seen after its end date only expires and is
// never warned retroactively.
func EvaluateExpiry(sub *models.GuildSubscription, now time.Time) Action {
	if sub == nil || sub.SubscriptionEndDate == nil {
		return ActionNone
	}
	end := *sub.SubscriptionEndDate
	if end.Before(now) {
		if !sub.ExpiryNotifiedFinal {
			return ActionExpire
		}
	} else if end.Before(now.Add(WarningWindow)) && !sub.ExpiryNotified1d {
		return ActionWarn
	}
	return ActionNone
}

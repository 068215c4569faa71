package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle event
type EventType string

const (
	EventCodeGenerated       EventType = "code.generated"
	EventCodeRedeemed        EventType = "code.redeemed"
	EventCodeRevoked         EventType = "code.revoked"
	EventRoleBound           EventType = "role.bound"
	EventExpiryWarning       EventType = "expiry.warning"
	EventSubscriptionExpired EventType = "subscription.expired"
)

// Event is emitted after every lifecycle transition
type Event struct {
	ID           string     `json:"id"`
	Type         EventType  `json:"type"`
	At           time.Time  `json:"at"`
	GuildID      string     `json:"guildId,omitempty"`
	UserID       string     `json:"userId,omitempty"`
	ActorID      string     `json:"actorId,omitempty"`
	RoleID       string     `json:"roleId,omitempty"`
	Code         string     `json:"code,omitempty"`
	Prefix       string     `json:"prefix,omitempty"`
	DurationDays int        `json:"durationDays,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	// Outcome describes a side effect, e.g. "granted", "missing_redeemer"
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newEvent(t EventType, now time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, At: now}
}

// Notifier receives lifecycle events. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, ev Event)

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

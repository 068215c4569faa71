package subscription

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
)

// CodeFilter selects codes in listings
type CodeFilter string

const (
	CodeFilterAll       CodeFilter = "all"
	CodeFilterAvailable CodeFilter = "available"
	CodeFilterRedeemed  CodeFilter = "redeemed"
)

// ParseCodeFilter maps a command option to a filter, defaulting to all
func ParseCodeFilter(raw string) CodeFilter {
	switch CodeFilter(raw) {
	case CodeFilterAvailable, CodeFilterRedeemed:
		return CodeFilter(raw)
	default:
		return CodeFilterAll
	}
}

// CodeStore persists redemption codes
type CodeStore interface {
	// Create inserts a new unredeemed code, returning ErrCodeExists on collision
	Create(ctx context.Context, code models.RedemptionCode) error
	// RedeemAtomically flips redeemed from false to true and records who and
	// where in one conditional update. Unknown and used codes both yield
	// ErrCodeNotFound.
	RedeemAtomically(ctx context.Context, code, guildID, userID string, now time.Time) (*models.RedemptionCode, error)
	// Release reverts a redemption made by exactly this guild and user
	Release(ctx context.Context, code, guildID, userID string) error
	Get(ctx context.Context, code string) (*models.RedemptionCode, error)
	List(ctx context.Context, filter CodeFilter) ([]*models.RedemptionCode, error)
	// Revoke deletes an unredeemed code
	Revoke(ctx context.Context, code string) error
}

// GuildStore persists per-guild subscriptions
type GuildStore interface {
	// Get returns the stored record or an unsaved default
	Get(ctx context.Context, guildID string) (*models.GuildSubscription, error)
	// SetField upserts a single field
	SetField(ctx context.Context, guildID, field string, value interface{}) error
	// ApplyRedemption starts a new period unless one is still active, in
	// which case it returns ErrActiveSubscription
	ApplyRedemption(ctx context.Context, guildID, userID string, end, now time.Time) error
	// ClaimNotification sets flag from false to true for the period ending
	// at end and reports whether this caller won
	ClaimNotification(ctx context.Context, guildID, flag string, end time.Time) (bool, error)
	// ListWithEndDate returns every record that has an end date
	ListWithEndDate(ctx context.Context) ([]*models.GuildSubscription, error)
}

// RoleManager grants and removes guild roles on the chat platform
type RoleManager interface {
	Grant(ctx context.Context, guildID, userID, roleID, reason string) error
	Revoke(ctx context.Context, guildID, userID, roleID, reason string) error
}

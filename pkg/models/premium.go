package models

import "time"

// Collection names
const (
	CollectionRedemptionCodes = "redemption_codes"
	CollectionGuildConfigs    = "guild_configs"
)

// Guild subscription field names, used for single-field updates
const (
	FieldVIPRoleID           = "vip_role_id"
	FieldRedeemingAdminID    = "redeeming_admin_id"
	FieldSubscriptionEndDate = "subscription_end_date"
	FieldExpiryNotified1d    = "expiry_notified_1d"
	FieldExpiryNotifiedFinal = "expiry_notified_final"
)

// RedemptionCode is a one-time code exchanged for a guild subscription
type RedemptionCode struct {
	Code              string     `bson:"code" json:"code"`
	Prefix            string     `bson:"prefix" json:"prefix"`
	DurationDays      int        `bson:"duration_days" json:"durationDays"`
	Redeemed          bool       `bson:"redeemed" json:"redeemed"`
	RedeemedByUserID  string     `bson:"redeemed_by_user_id,omitempty" json:"redeemedByUserId,omitempty"`
	RedeemedAtGuildID string     `bson:"redeemed_at_guild_id,omitempty" json:"redeemedAtGuildId,omitempty"`
	RedeemedTimestamp *time.Time `bson:"redeemed_timestamp,omitempty" json:"redeemedTimestamp,omitempty"`
	CreatedBy         string     `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"createdAt"`
}

// GuildSubscription is the per-guild premium slot. It is overwritten in
// place by every redemption and never deleted.
type GuildSubscription struct {
	GuildID             string     `bson:"_id" json:"guildId"`
	VIPRoleID           string     `bson:"vip_role_id,omitempty" json:"vipRoleId,omitempty"`
	RedeemingAdminID    string     `bson:"redeeming_admin_id,omitempty" json:"redeemingAdminId,omitempty"`
	SubscriptionEndDate *time.Time `bson:"subscription_end_date,omitempty" json:"subscriptionEndDate,omitempty"`
	ExpiryNotified1d    bool       `bson:"expiry_notified_1d" json:"expiryNotified1d"`
	ExpiryNotifiedFinal bool       `bson:"expiry_notified_final" json:"expiryNotifiedFinal"`
}

// NewGuildSubscription returns the default record for a guild that has
// never been stored.
func NewGuildSubscription(guildID string) *GuildSubscription {
	return &GuildSubscription{GuildID: guildID}
}

package database

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GuildStore keeps one subscription document per guild, keyed by guild ID
type GuildStore struct {
	dm *DataManager[models.GuildSubscription]
}

var _ subscription.GuildStore = (*GuildStore)(nil)

// NewGuildStore creates a GuildStore on db
func NewGuildStore(db *Database) *GuildStore {
	return &GuildStore{dm: NewDataManager[models.GuildSubscription](models.CollectionGuildConfigs, db)}
}

// Get returns the stored record or a default one for unknown guilds
func (s *GuildStore) Get(ctx context.Context, guildID string) (*models.GuildSubscription, error) {
	sub, err := s.dm.Get(ctx, bson.M{"_id": guildID})
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return models.NewGuildSubscription(guildID), nil
	}
	return sub, nil
}

// SetField upserts a single field of the guild record
func (s *GuildStore) SetField(ctx context.Context, guildID, field string, value interface{}) error {
	return s.dm.Set(ctx, bson.M{"_id": guildID}, bson.M{field: value})
}

// ApplyRedemption starts a new period. The filter only matches records
// without time left; for an active record the upsert collides on _id and
// the redemption is rejected.
func (s *GuildStore) ApplyRedemption(ctx context.Context, guildID, userID string, end, now time.Time) error {
	filter := bson.M{
		"_id": guildID,
		"$or": bson.A{
			bson.M{models.FieldSubscriptionEndDate: nil},
			bson.M{models.FieldSubscriptionEndDate: bson.M{"$lte": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		models.FieldRedeemingAdminID:    userID,
		models.FieldSubscriptionEndDate: end,
		models.FieldExpiryNotified1d:    false,
		models.FieldExpiryNotifiedFinal: false,
	}}

	_, err := s.dm.Update(ctx, filter, update, true)
	if mongo.IsDuplicateKeyError(err) {
		return subscription.ErrActiveSubscription
	}
	if err != nil {
		return errors.Wrap(err, "aplicando canje")
	}
	return nil
}

// ClaimNotification flips flag to true for the period ending at end. Only
// one caller observes true per period.
func (s *GuildStore) ClaimNotification(ctx context.Context, guildID, flag string, end time.Time) (bool, error) {
	switch flag {
	case models.FieldExpiryNotified1d, models.FieldExpiryNotifiedFinal:
	default:
		return false, errors.Newf("bandera desconocida: %s", flag)
	}

	filter := bson.M{
		"_id":                           guildID,
		models.FieldSubscriptionEndDate: end,
		flag:                            bson.M{"$ne": true},
	}
	sub, err := s.dm.Update(ctx, filter, bson.M{"$set": bson.M{flag: true}}, false)
	if err != nil {
		return false, errors.Wrap(err, "marcando notificación")
	}
	return sub != nil, nil
}

// ListWithEndDate returns every guild that has ever redeemed a code
func (s *GuildStore) ListWithEndDate(ctx context.Context) ([]*models.GuildSubscription, error) {
	return s.dm.GetAll(ctx, bson.M{models.FieldSubscriptionEndDate: bson.M{"$ne": nil}})
}

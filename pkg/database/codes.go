package database

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CodeStore keeps redemption codes in the redemption_codes collection
type CodeStore struct {
	dm *DataManager[models.RedemptionCode]
}

var _ subscription.CodeStore = (*CodeStore)(nil)

// NewCodeStore creates a CodeStore on db
func NewCodeStore(db *Database) *CodeStore {
	return &CodeStore{dm: NewDataManager[models.RedemptionCode](models.CollectionRedemptionCodes, db)}
}

// Create inserts a new code. The unique index on code turns a collision
// into subscription.ErrCodeExists.
func (s *CodeStore) Create(ctx context.Context, code models.RedemptionCode) error {
	err := s.dm.Insert(ctx, &code)
	if mongo.IsDuplicateKeyError(err) {
		return subscription.ErrCodeExists
	}
	if err != nil {
		return errors.Wrap(err, "insertando código")
	}
	return nil
}

// RedeemAtomically marks an unredeemed code as used in a single
// conditional update
func (s *CodeStore) RedeemAtomically(ctx context.Context, code, guildID, userID string, now time.Time) (*models.RedemptionCode, error) {
	filter := bson.M{"code": code, "redeemed": false}
	update := bson.M{"$set": bson.M{
		"redeemed":             true,
		"redeemed_by_user_id":  userID,
		"redeemed_at_guild_id": guildID,
		"redeemed_timestamp":   now,
	}}

	rec, err := s.dm.Update(ctx, filter, update, false)
	if err != nil {
		return nil, errors.Wrap(err, "canjeando código")
	}
	if rec == nil {
		return nil, subscription.ErrCodeNotFound
	}
	return rec, nil
}

// Release puts back a code consumed by guildID and userID
func (s *CodeStore) Release(ctx context.Context, code, guildID, userID string) error {
	filter := bson.M{
		"code":                 code,
		"redeemed":             true,
		"redeemed_by_user_id":  userID,
		"redeemed_at_guild_id": guildID,
	}
	update := bson.M{
		"$set": bson.M{"redeemed": false},
		"$unset": bson.M{
			"redeemed_by_user_id":  "",
			"redeemed_at_guild_id": "",
			"redeemed_timestamp":   "",
		},
	}

	rec, err := s.dm.Update(ctx, filter, update, false)
	if err != nil {
		return errors.Wrap(err, "liberando código")
	}
	if rec == nil {
		return subscription.ErrCodeNotFound
	}
	return nil
}

// Get returns a code by its token
func (s *CodeStore) Get(ctx context.Context, code string) (*models.RedemptionCode, error) {
	rec, err := s.dm.Get(ctx, bson.M{"code": code})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, subscription.ErrCodeNotFound
	}
	return rec, nil
}

// List returns codes newest first
func (s *CodeStore) List(ctx context.Context, filter subscription.CodeFilter) ([]*models.RedemptionCode, error) {
	query := bson.M{}
	switch filter {
	case subscription.CodeFilterAvailable:
		query["redeemed"] = false
	case subscription.CodeFilterRedeemed:
		query["redeemed"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.dm.GetAll(ctx, query, opts)
}

// Revoke deletes a code that has not been redeemed
func (s *CodeStore) Revoke(ctx context.Context, code string) error {
	deleted, err := s.dm.Delete(ctx, bson.M{"code": code, "redeemed": false})
	if err != nil {
		return err
	}
	if !deleted {
		return subscription.ErrCodeNotFound
	}
	return nil
}

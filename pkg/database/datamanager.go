package database

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataManager provides typed access to a MongoDB collection. Every call
// goes to the database; nothing is cached since redemption guards must
// see the latest state.
type DataManager[T any] struct {
	name       string
	dbInstance *Database
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database) *DataManager[T] {
	return &DataManager[T]{name: collectionName, dbInstance: db}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	return dm.name
}

func (dm *DataManager[T]) collection() (*mongo.Collection, error) {
	if dm.dbInstance == nil || !dm.dbInstance.Connected() {
		return nil, ErrNotConnected
	}
	col := dm.dbInstance.GetCollection(dm.name)
	if col == nil {
		return nil, ErrNotConnected
	}
	return col, nil
}

// Get retrieves one document, nil when nothing matches
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var result T
	err = col.FindOne(ctx, query).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s): %v", dm.name, err), "DataManager")
		return nil, errors.Wrapf(err, "leyendo %s", dm.name)
	}
	return &result, nil
}

// GetAll retrieves all documents matching a query
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	cursor, err := col.Find(ctx, query, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "listando %s", dm.name)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn(fmt.Sprintf("Documento inválido en %s: %v", dm.name, err), "DataManager")
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Insert adds a new document
func (dm *DataManager[T]) Insert(ctx context.Context, doc *T) error {
	col, err := dm.collection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	_, err = col.InsertOne(ctx, doc)
	return err
}

// Set upserts the fields in data on the document matching query
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) error {
	col, err := dm.collection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	_, err = col.UpdateOne(ctx, query, bson.M{"$set": data}, options.Update().SetUpsert(true))
	if err != nil {
		logger.Error(fmt.Sprintf("Error en 'set' sobre %s: %v", dm.name, err), "DataManager")
		return errors.Wrapf(err, "actualizando %s", dm.name)
	}
	return nil
}

// Update applies update to the single document matching query and returns
// it after the change, nil when nothing matched
func (dm *DataManager[T]) Update(ctx context.Context, query bson.M, update interface{}, upsert bool) (*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.After)

	var result T
	err = col.FindOneAndUpdate(ctx, query, update, opts).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the document matching query and reports whether one existed
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) (bool, error) {
	col, err := dm.collection()
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	res, err := col.DeleteOne(ctx, query)
	if err != nil {
		logger.Error(fmt.Sprintf("Error en 'delete' sobre %s: %v", dm.name, err), "DataManager")
		return false, errors.Wrapf(err, "eliminando de %s", dm.name)
	}
	return res.DeletedCount > 0, nil
}

// Package database provides the MongoDB connection and the stores backing
// redemption codes and guild subscriptions.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotConnected is returned by every store operation while offline
var ErrNotConnected = errors.New("base de datos no conectada")

const (
	readTimeout  = 5 * time.Second
	scanTimeout  = 10 * time.Second
	retryBackoff = 15 * time.Second
)

// Database manages the MongoDB connection
type Database struct {
	client          *mongo.Client
	db              *mongo.Database
	IsConnected     bool
	reconnectTicker *time.Ticker
	stopReconnect   chan struct{}
	stopOnce        sync.Once
	mu              sync.RWMutex
	collections     map[string]*mongo.Collection
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase() *Database {
	return &Database{
		stopReconnect: make(chan struct{}),
		collections:   make(map[string]*mongo.Collection),
	}
}

// FromDB wraps an already connected database handle
func FromDB(db *mongo.Database) *Database {
	d := NewDatabase()
	d.client = db.Client()
	d.db = db
	d.IsConnected = true
	return d
}

// Connect establishes a connection to MongoDB. On failure a background
// loop keeps retrying every 15 seconds.
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.IsConnected {
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(readTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		d.scheduleReconnect(mongoURL, dbName)
		return errors.Wrap(err, "conectando a mongo")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		_ = client.Disconnect(context.Background())
		d.scheduleReconnect(mongoURL, dbName)
		return errors.Wrap(err, "ping a mongo")
	}

	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.IsConnected = true

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	return nil
}

// scheduleReconnect starts the retry loop once. Callers hold d.mu.
func (d *Database) scheduleReconnect(mongoURL, dbName string) {
	if d.reconnectTicker != nil {
		return
	}
	logger.Warn("Sin conexión a la base de datos. Reintentando en segundo plano.", "DB")

	ticker := time.NewTicker(retryBackoff)
	d.reconnectTicker = ticker
	go func() {
		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.Connect(mongoURL, dbName); err == nil {
					if err := d.EnsureIndexes(context.Background()); err != nil {
						logger.Warn("Error creando índices tras reconectar: "+err.Error(), "DB")
					}
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// Disconnect closes the database connection
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	if d.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		if err := d.client.Disconnect(ctx); err != nil {
			return err
		}
		d.IsConnected = false
		logger.Warn("La base de datos ha sido desconectada", "DB")
	}
	return nil
}

// Connected reports whether the last connection attempt succeeded
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.IsConnected
}

// Ping measures the database response time
func (d *Database) Ping(ctx context.Context) (time.Duration, error) {
	d.mu.RLock()
	client := d.client
	connected := d.IsConnected
	d.mu.RUnlock()

	if !connected || client == nil {
		return 0, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus(ctx context.Context) (string, bool) {
	if _, err := d.Ping(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// GetCollection returns a MongoDB collection, nil while offline
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	if col, exists := d.collections[name]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	col := d.db.Collection(name)
	d.collections[name] = col
	return col
}

// EnsureIndexes creates the unique index on redemption codes
func (d *Database) EnsureIndexes(ctx context.Context) error {
	col := d.GetCollection(models.CollectionRedemptionCodes)
	if col == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	name, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("code_unique"),
	})
	if err != nil {
		return errors.Wrap(err, "creando índice de códigos")
	}
	logger.System(fmt.Sprintf("Índice '%s' verificado", name), "DB")
	return nil
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	return d.client
}

// DB returns the underlying MongoDB database
func (d *Database) DB() *mongo.Database {
	return d.db
}

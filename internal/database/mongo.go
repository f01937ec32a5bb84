package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dealercrm/internal/gateway"
	"dealercrm/internal/models"
)

const backupCollection = "crm_backups"

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logrus.Infof("Connected to MongoDB at %s", uri)

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// MongoRepository stores backup records as documents. Each call is a
// single statement, so RunInTx only scopes the calls; saves within one
// process are serialised by the gateway.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(ctx context.Context, m *MongoDB) (*MongoRepository, error) {
	collection := m.Database.Collection(backupCollection)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backup index: %w", err)
	}
	return &MongoRepository{collection: collection}, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *MongoRepository) List(ctx context.Context, limit int) ([]models.BackupRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "payload", Value: 0}})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find backups: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.BackupRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode backups: %w", err)
	}
	return records, nil
}

func (r *MongoRepository) Latest(ctx context.Context) (*models.BackupRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(newestFirst).SetProjection(bson.D{{Key: "payload", Value: 0}})
	var rec models.BackupRecord
	err := r.collection.FindOne(ctx, bson.D{}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest backup: %w", err)
	}
	return &rec, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.BackupRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.BackupRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find backup %s: %w", id, err)
	}
	return &rec, nil
}

func (r *MongoRepository) Insert(ctx context.Context, rec models.BackupRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert backup %s: %w", rec.ID, err)
	}
	return nil
}

func (r *MongoRepository) Prune(ctx context.Context, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(int64(keep)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find retained backups: %w", err)
	}
	var newest []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &newest); err != nil {
		return 0, fmt.Errorf("cursor error: %w", err)
	}

	ids := make([]string, 0, len(newest))
	for _, doc := range newest {
		ids = append(ids, doc.ID)
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune backups: %w", err)
	}
	if res.DeletedCount > 0 {
		logrus.Debugf("Pruned %d backups from collection '%s'", res.DeletedCount, backupCollection)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

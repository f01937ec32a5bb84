package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"dealercrm/internal/gateway"
	"dealercrm/internal/models"
)

var _ gateway.Repository = (*MongoRepository)(nil)
var _ gateway.Repository = (*SQLRepository)(nil)

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "dealercrm." + backupCollection
	created := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

	mt.Run("insert", func(mt *mtest.T) {
		repo := &MongoRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Insert(context.Background(), models.BackupRecord{ID: "backup_1", CreatedAt: created, Payload: "{}", Hash: "abcd0123"})
		require.NoError(mt, err)
	})

	mt.Run("latest", func(mt *mtest.T) {
		repo := &MongoRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "backup_2"},
			{Key: "created_at", Value: created},
			{Key: "size_bytes", Value: 42},
			{Key: "data_hash", Value: "abcd0123"},
			{Key: "metadata", Value: bson.D{{Key: "customers", Value: 3}}},
		}))

		rec, err := repo.Latest(context.Background())
		require.NoError(mt, err)
		require.NotNil(mt, rec)
		assert.Equal(mt, "backup_2", rec.ID)
		assert.Equal(mt, "abcd0123", rec.Hash)
		assert.True(mt, created.Equal(rec.CreatedAt))
		require.NotNil(mt, rec.Metadata.Customers)
		assert.Equal(mt, 3, *rec.Metadata.Customers)
	})

	mt.Run("latest on empty collection", func(mt *mtest.T) {
		repo := &MongoRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		rec, err := repo.Latest(context.Background())
		require.NoError(mt, err)
		assert.Nil(mt, rec)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := &MongoRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Get(context.Background(), "backup_x")
		assert.ErrorIs(mt, err, gateway.ErrNotFound)
	})

	mt.Run("prune", func(mt *mtest.T) {
		repo := &MongoRepository{collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "backup_3"}},
				bson.D{{Key: "_id", Value: "backup_2"}},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}),
		)

		n, err := repo.Prune(context.Background(), 2)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})
}

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "19.99", "100000", "0.3", "-4.25"} {
		d := decimal.RequireFromString(s)
		v, err := toDecimal128(d)
		require.NoError(t, err)
		require.True(t, d.Equal(fromDecimal128(v)), s)
	}
}

func TestObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	got, err := objectID(oid.Hex())
	require.NoError(t, err)
	require.Equal(t, oid, got)

	// a malformed id is simply a miss
	_, err = objectID("not-an-object-id")
	require.ErrorIs(t, err, ErrNoDocument)
}

func TestMongoErr(t *testing.T) {
	require.ErrorIs(t, mongoErr(mongo.ErrNoDocuments), ErrNoDocument)
	require.ErrorIs(t, mongoErr(fmt.Errorf("find: %w", mongo.ErrNoDocuments)), ErrNoDocument)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	require.ErrorIs(t, mongoErr(dup), ErrDuplicate)
}

func mockStore(mt *mtest.T) *MongoStore {
	return &MongoStore{client: mt.Client, db: mt.DB}
}

func TestMongoUpdateCartItems(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	items := []models.CartItem{{ProductID: "p1", Quantity: 2}}
	cartID := primitive.NewObjectID().Hex()
	countNS := func(mt *mtest.T) string { return mt.DB.Name() + "." + CollectionCarts }

	mt.Run("version matches", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))
		require.NoError(mt, mockStore(mt).UpdateCartItems(context.Background(), cartID, 3, items))
	})

	mt.Run("stale version", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}),
			mtest.CreateCursorResponse(0, countNS(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)
		err := mockStore(mt).UpdateCartItems(context.Background(), cartID, 2, items)
		require.ErrorIs(mt, err, ErrVersionConflict)
	})

	mt.Run("cart gone", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}),
			mtest.CreateCursorResponse(0, countNS(mt), mtest.FirstBatch),
		)
		err := mockStore(mt).UpdateCartItems(context.Background(), cartID, 1, items)
		require.ErrorIs(mt, err, ErrNoDocument)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		err := mockStore(mt).UpdateCartItems(context.Background(), "nope", 1, items)
		require.ErrorIs(mt, err, ErrNoDocument)
	})
}

func TestMongoInsertOrder(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	newOrder := func() *models.Order {
		return &models.Order{
			UserID:         "u1",
			Items:          []models.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(100000)}},
			Total:          decimal.NewFromInt(100000),
			Status:         models.OrderStatusPending,
			IdempotencyKey: "k1",
			CartVersion:    4,
			CreatedAt:      time.Now().UTC(),
		}
	}

	mt.Run("inserted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		order := newOrder()
		require.NoError(mt, mockStore(mt).InsertOrder(context.Background(), order))
		_, err := primitive.ObjectIDFromHex(order.ID)
		require.NoError(mt, err)
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: shop.order index: user_id_1_idempotency_key_1",
		}))
		order := newOrder()
		err := mockStore(mt).InsertOrder(context.Background(), order)
		require.ErrorIs(mt, err, ErrDuplicate)
		require.Empty(mt, order.ID)
	})
}

func TestMongoFindOrderByKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		total, err := toDecimal128(decimal.NewFromInt(200000))
		require.NoError(mt, err)
		price, err := toDecimal128(decimal.NewFromInt(100000))
		require.NoError(mt, err)
		id := primitive.NewObjectID()
		raw, err := bson.Marshal(orderDoc{
			ID:             id,
			UserID:         "u1",
			Items:          []orderItemDoc{{ProductID: "p1", Quantity: 2, Price: price}},
			Total:          total,
			Status:         models.OrderStatusPending,
			IdempotencyKey: "k1",
			CartVersion:    4,
			CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
		require.NoError(mt, err)
		var doc bson.D
		require.NoError(mt, bson.Unmarshal(raw, &doc))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+"."+CollectionOrders, mtest.FirstBatch, doc))
		order, err := mockStore(mt).FindOrderByKey(context.Background(), "u1", "k1")
		require.NoError(mt, err)
		require.Equal(mt, id.Hex(), order.ID)
		require.Equal(mt, "k1", order.IdempotencyKey)
		require.Equal(mt, int64(4), order.CartVersion)
		require.True(mt, order.Total.Equal(decimal.NewFromInt(200000)))
		require.Len(mt, order.Items, 1)
		require.Equal(mt, 2, order.Items[0].Quantity)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+"."+CollectionOrders, mtest.FirstBatch))
		_, err := mockStore(mt).FindOrderByKey(context.Background(), "u1", "k2")
		require.ErrorIs(mt, err, ErrNoDocument)
	})
}

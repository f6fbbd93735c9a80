package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the document database backend. Each collection is a MongoDB
// collection named after the record type; ids are ObjectID hex strings.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Address      string             `bson:"address,omitempty"`
	Phone        string             `bson:"phone,omitempty"`
	IsActive     bool               `bson:"is_active"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Title       string               `bson:"title"`
	Description string               `bson:"description,omitempty"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	ImageURL    string               `bson:"image_url,omitempty"`
	InStock     bool                 `bson:"in_stock"`
	CreatedAt   time.Time            `bson:"created_at"`
}

type cartItemDoc struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
}

type cartDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Items     []cartItemDoc      `bson:"items"`
	Version   int64              `bson:"version"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type orderItemDoc struct {
	ProductID string               `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	UserID         string               `bson:"user_id"`
	Items          []orderItemDoc       `bson:"items"`
	Total          primitive.Decimal128 `bson:"total"`
	Status         string               `bson:"status"`
	IdempotencyKey string               `bson:"idempotency_key"`
	CartVersion    int64                `bson:"cart_version"`
	CreatedAt      time.Time            `bson:"created_at"`
}

// NewMongoStore connects to uri, selects dbName and makes sure the unique
// indexes the store relies on exist
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		CollectionUsers: {
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		CollectionCarts: {
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		CollectionOrders: {
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	for coll, model := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", coll, err)
		}
	}
	return nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// objectID converts an opaque id; ids that are not ObjectIDs cannot match anything
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNoDocument
	}
	return oid, nil
}

func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNoDocument
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) InsertUser(ctx context.Context, user *models.User) error {
	doc := userDoc{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Address:      user.Address,
		Phone:        user.Phone,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
	}
	res, err := s.db.Collection(CollectionUsers).InsertOne(ctx, doc)
	if err != nil {
		return mongoErr(err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc userDoc
	if err := s.db.Collection(CollectionUsers).FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	return &models.User{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Address:      doc.Address,
		Phone:        doc.Phone,
		IsActive:     doc.IsActive,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *MongoStore) InsertProduct(ctx context.Context, product *models.Product) error {
	price, err := toDecimal128(product.Price)
	if err != nil {
		return err
	}
	doc := productDoc{
		Title:       product.Title,
		Description: product.Description,
		Price:       price,
		Category:    product.Category,
		ImageURL:    product.ImageURL,
		InStock:     product.InStock,
		CreatedAt:   product.CreatedAt,
	}
	res, err := s.db.Collection(CollectionProducts).InsertOne(ctx, doc)
	if err != nil {
		return mongoErr(err)
	}
	product.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func productFromDoc(doc productDoc) models.Product {
	return models.Product{
		ID:          doc.ID.Hex(),
		Title:       doc.Title,
		Description: doc.Description,
		Price:       fromDecimal128(doc.Price),
		Category:    doc.Category,
		ImageURL:    doc.ImageURL,
		InStock:     doc.InStock,
		CreatedAt:   doc.CreatedAt,
	}
}

func (s *MongoStore) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := s.db.Collection(CollectionProducts).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	p := productFromDoc(doc)
	return &p, nil
}

func (s *MongoStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	cur, err := s.db.Collection(CollectionProducts).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	out := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, productFromDoc(doc))
	}
	return out, nil
}

func cartItemDocs(items []models.CartItem) []cartItemDoc {
	out := make([]cartItemDoc, 0, len(items))
	for _, it := range items {
		out = append(out, cartItemDoc{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (s *MongoStore) FindCartByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var doc cartDoc
	if err := s.db.Collection(CollectionCarts).FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	cart := &models.Cart{
		ID:        doc.ID.Hex(),
		UserID:    doc.UserID,
		Items:     make([]models.CartItem, 0, len(doc.Items)),
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, it := range doc.Items {
		cart.Items = append(cart.Items, models.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return cart, nil
}

func (s *MongoStore) InsertCart(ctx context.Context, cart *models.Cart) error {
	now := time.Now().UTC()
	doc := cartDoc{
		UserID:    cart.UserID,
		Items:     cartItemDocs(cart.Items),
		Version:   1,
		UpdatedAt: now,
	}
	res, err := s.db.Collection(CollectionCarts).InsertOne(ctx, doc)
	if err != nil {
		return mongoErr(err)
	}
	cart.ID = res.InsertedID.(primitive.ObjectID).Hex()
	cart.Version = 1
	cart.UpdatedAt = now
	return nil
}

func (s *MongoStore) UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error {
	oid, err := objectID(cartID)
	if err != nil {
		return err
	}
	coll := s.db.Collection(CollectionCarts)
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": oid, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"items": cartItemDocs(items), "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check cart: %w", err)
	}
	if n == 0 {
		return ErrNoDocument
	}
	return ErrVersionConflict
}

func (s *MongoStore) InsertOrder(ctx context.Context, order *models.Order) error {
	total, err := toDecimal128(order.Total)
	if err != nil {
		return err
	}
	doc := orderDoc{
		UserID:         order.UserID,
		Items:          make([]orderItemDoc, 0, len(order.Items)),
		Total:          total,
		Status:         order.Status,
		IdempotencyKey: order.IdempotencyKey,
		CartVersion:    order.CartVersion,
		CreatedAt:      order.CreatedAt,
	}
	for _, it := range order.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return err
		}
		doc.Items = append(doc.Items, orderItemDoc{ProductID: it.ProductID, Quantity: it.Quantity, Price: price})
	}
	res, err := s.db.Collection(CollectionOrders).InsertOne(ctx, doc)
	if err != nil {
		return mongoErr(err)
	}
	order.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func orderFromDoc(doc orderDoc) models.Order {
	o := models.Order{
		ID:             doc.ID.Hex(),
		UserID:         doc.UserID,
		Items:          make([]models.OrderItem, 0, len(doc.Items)),
		Total:          fromDecimal128(doc.Total),
		Status:         doc.Status,
		IdempotencyKey: doc.IdempotencyKey,
		CartVersion:    doc.CartVersion,
		CreatedAt:      doc.CreatedAt,
	}
	for _, it := range doc.Items {
		o.Items = append(o.Items, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     fromDecimal128(it.Price),
		})
	}
	return o
}

func (s *MongoStore) FindOrderByKey(ctx context.Context, userID, key string) (*models.Order, error) {
	var doc orderDoc
	filter := bson.M{"user_id": userID, "idempotency_key": key}
	if err := s.db.Collection(CollectionOrders).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	o := orderFromDoc(doc)
	return &o, nil
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	cur, err := s.db.Collection(CollectionOrders).Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	out := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, orderFromDoc(doc))
	}
	return out, nil
}

func (s *MongoStore) Collections(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.D{})
}

func (s *MongoStore) Driver() string { return DriverMongo }

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

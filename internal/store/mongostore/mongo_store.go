package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps products and orders in MongoDB. Stock decrements run inside a
// multi-document transaction, so the server must be a replica set.
type Store struct {
	client   *mongo.Client
	products *mongo.Collection
	orders   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		client:   db.Client(),
		products: db.Collection("products"),
		orders:   db.Collection("orders"),
	}
}

func (s *Store) CreateIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "stripe_session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "order_date", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findProducts(ctx, bson.M{}, opts)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *Store) ProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	return s.findProducts(ctx, bson.M{"_id": bson.M{"$in": store.UniqueIDs(ids)}}, options.Find())
}

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	terms := store.SearchTerms(query)
	if len(terms) == 0 {
		return []domain.Product{}, nil
	}

	conds := make(bson.A, 0, len(terms))
	for _, term := range terms {
		re := primitive.Regex{Pattern: `\b` + regexp.QuoteMeta(term), Options: "i"}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findProducts(ctx, bson.M{"$and": conds}, opts)
}

func (s *Store) InsertProduct(ctx context.Context, p domain.Product) (bool, error) {
	_, err := s.products.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert product: %w", err)
	}
	return true, nil
}

func (s *Store) findProducts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	cursor, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	var o domain.Order
	err := s.orders.FindOne(ctx, bson.M{"stripe_session_id": sessionID}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, err := s.orders.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateOrder
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order_date", Value: -1}})
	cursor, err := s.orders.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (s *Store) DecrementStock(ctx context.Context, items []domain.StockDecrement) ([]string, error) {
	items = store.CoalesceDecrements(items)
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	var oversold []string
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// the callback may be retried on transient errors
		oversold = nil
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		for _, item := range items {
			var p domain.Product
			err := s.products.FindOneAndUpdate(sc,
				bson.M{"_id": item.ProductID},
				bson.M{"$inc": bson.M{"stock": -item.Quantity}},
				opts,
			).Decode(&p)
			if err != nil {
				if errors.Is(err, mongo.ErrNoDocuments) {
					return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrProductNotFound)
				}
				return nil, err
			}
			if p.Stock < 0 {
				oversold = append(oversold, p.ID)
			}
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return oversold, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)

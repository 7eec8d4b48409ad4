package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, cred *Credentials) (*Store, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.PingContext(ctx); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Store{db: db}, nil
}

func (s *Store) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const productColumns = `id, name, slug, price, image, images, stock, category, variant, description`

func (s *Store) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1`, lim)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (s *Store) ProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(store.UniqueIDs(ids)))
}

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	terms := store.SearchTerms(query)
	if len(terms) == 0 {
		return []domain.Product{}, nil
	}

	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+1)
	for i, term := range terms {
		conds = append(conds, fmt.Sprintf("(name ~* $%d OR description ~* $%d)", i+1, i+1))
		args = append(args, `\m`+regexp.QuoteMeta(term))
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	args = append(args, lim)

	q := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY id LIMIT $%d`,
		productColumns, strings.Join(conds, " AND "), len(args))
	return s.queryProducts(ctx, q, args...)
}

func (s *Store) InsertProduct(ctx context.Context, p domain.Product) (bool, error) {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return false, fmt.Errorf("marshal product images: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Name, p.Slug, p.Price, p.Image, imagesJSON, p.Stock, p.Category, p.Variant, p.Description)
	if err != nil {
		return false, fmt.Errorf("insert product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert product: %w", err)
	}
	return n == 1, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	var imagesJSON []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Image, &imagesJSON,
		&p.Stock, &p.Category, &p.Variant, &p.Description); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
		return nil, fmt.Errorf("unmarshal product images: %w", err)
	}
	if len(p.Images) == 0 {
		p.Images = nil
	}
	return &p, nil
}

const orderColumns = `id, stripe_session_id, order_number, customer_name, email, user_id, line_items, total_price, status, order_date`

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	itemsJSON, err := json.Marshal(order.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	_, insertErr := s.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID,
		order.StripeSessionID,
		order.OrderNumber,
		order.CustomerName,
		order.Email,
		order.UserID,
		itemsJSON,
		order.TotalPrice,
		order.Status,
		order.OrderDate)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return store.ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by session id: %w", err)
	}
	return o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY order_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var itemsJSON []byte
	if err := row.Scan(&o.ID, &o.StripeSessionID, &o.OrderNumber, &o.CustomerName, &o.Email,
		&o.UserID, &itemsJSON, &o.TotalPrice, &o.Status, &o.OrderDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.LineItems); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &o, nil
}

// DecrementStock runs all updates in one transaction. Rows are updated in
// product id order so concurrent fulfilments queue on the same row lock
// instead of deadlocking.
func (s *Store) DecrementStock(ctx context.Context, items []domain.StockDecrement) ([]string, error) {
	items = store.CoalesceDecrements(items)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oversold []string
	for _, item := range items {
		var stock int
		err := tx.QueryRowContext(ctx,
			`UPDATE products SET stock = stock - $1 WHERE id = $2 RETURNING stock`,
			item.Quantity, item.ProductID).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrProductNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if stock < 0 {
			oversold = append(oversold, item.ProductID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stock decrement: %w", err)
	}
	return oversold, nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)

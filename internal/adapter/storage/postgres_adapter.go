package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username   TEXT PRIMARY KEY,
		password   TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id  BIGINT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		price       NUMERIC(12,2) NOT NULL,
		stock       INTEGER NOT NULL CHECK (stock >= 0),
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		username    TEXT NOT NULL,
		product_id  BIGINT NOT NULL,
		rating      SMALLINT NOT NULL,
		review_text TEXT NOT NULL,
		review_date TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (username, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews (product_id)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id   BIGINT PRIMARY KEY,
		request_id UUID NOT NULL UNIQUE,
		username   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   BIGINT NOT NULL REFERENCES orders (order_id),
		product_id BIGINT NOT NULL,
		quantity   INTEGER NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sequences (
		name  TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
}

type PostgresAdapter struct {
	db *pgxpool.Pool
}

var _ port.Store = (*PostgresAdapter)(nil)

func NewPostgresAdapter(db *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{db: db}
}

// EnsureSchema creates missing tables and indexes.
func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (p *PostgresAdapter) InsertUser(ctx context.Context, user domain.User) error {
	_, err := p.db.Exec(ctx,
		"INSERT INTO users (username, password, first_name, last_name) VALUES ($1, $2, $3, $4)",
		user.Username, user.Password, user.FirstName, user.LastName)
	if isPgUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) FindUser(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := p.db.QueryRow(ctx,
		"SELECT username, password, first_name, last_name FROM users WHERE username = $1", username,
	).Scan(&u.Username, &u.Password, &u.FirstName, &u.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (p *PostgresAdapter) InsertProduct(ctx context.Context, product domain.Product) error {
	_, err := p.db.Exec(ctx,
		"INSERT INTO products (product_id, name, description, price, stock, created_at) VALUES ($1, $2, $3, $4::numeric, $5, $6)",
		product.ID, product.Name, product.Description, product.Price.String(), product.Stock, product.CreatedAt)
	if isPgUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var (
		prod  domain.Product
		price string
	)
	err := p.db.QueryRow(ctx,
		"SELECT product_id, name, description, price::text, stock, created_at FROM products WHERE product_id = $1", productID,
	).Scan(&prod.ID, &prod.Name, &prod.Description, &price, &prod.Stock, &prod.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if prod.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	return &prod, nil
}

func (p *PostgresAdapter) IncrementStock(ctx context.Context, productID int64, delta int) error {
	tag, err := p.db.Exec(ctx, "UPDATE products SET stock = stock + $1 WHERE product_id = $2", delta, productID)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *PostgresAdapter) DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error) {
	tag, err := p.db.Exec(ctx,
		"UPDATE products SET stock = stock - $1 WHERE product_id = $2 AND stock >= $1", quantity, productID)
	if err != nil {
		return false, fmt.Errorf("failed to update stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresAdapter) InsertReview(ctx context.Context, review domain.Review) error {
	_, err := p.db.Exec(ctx,
		"INSERT INTO reviews (username, product_id, rating, review_text, review_date) VALUES ($1, $2, $3, $4, $5)",
		review.Username, review.ProductID, review.Rating, review.Text, review.Date)
	if isPgUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return p.queryReviews(ctx,
		"SELECT username, product_id, rating, review_text, review_date FROM reviews WHERE product_id = $1", productID)
}

func (p *PostgresAdapter) ListReviewsByUser(ctx context.Context, username string) ([]domain.Review, error) {
	return p.queryReviews(ctx,
		"SELECT username, product_id, rating, review_text, review_date FROM reviews WHERE username = $1", username)
}

func (p *PostgresAdapter) queryReviews(ctx context.Context, query string, arg any) ([]domain.Review, error) {
	rows, err := p.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}

	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Review, error) {
		var r domain.Review
		err := row.Scan(&r.Username, &r.ProductID, &r.Rating, &r.Text, &r.Date)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan reviews: %w", err)
	}
	return reviews, nil
}

func (p *PostgresAdapter) InsertOrder(ctx context.Context, order domain.Order) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO orders (order_id, request_id, username, created_at) VALUES ($1, $2, $3, $4)",
		order.ID, order.RequestID.String(), order.Username, order.CreatedAt)
	if isPgUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue("INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)",
			order.ID, item.ProductID, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var (
		o         domain.Order
		requestID string
	)
	err := p.db.QueryRow(ctx,
		"SELECT order_id, request_id::text, username, created_at FROM orders WHERE order_id = $1", orderID,
	).Scan(&o.ID, &requestID, &o.Username, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := o.RequestID.UnmarshalText([]byte(requestID)); err != nil {
		return nil, fmt.Errorf("failed to parse request id: %w", err)
	}

	rows, err := p.db.Query(ctx,
		"SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LineItem, error) {
		var item domain.LineItem
		err := row.Scan(&item.ProductID, &item.Quantity)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan order items: %w", err)
	}
	return &o, nil
}

func (p *PostgresAdapter) NextID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	return id, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const mysqlDuplicateEntry = 1062

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username   VARCHAR(64)  NOT NULL PRIMARY KEY,
		password   VARCHAR(128) NOT NULL,
		first_name VARCHAR(64)  NOT NULL,
		last_name  VARCHAR(64)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id  BIGINT        NOT NULL PRIMARY KEY,
		name        VARCHAR(255)  NOT NULL,
		description TEXT          NOT NULL,
		price       DECIMAL(12,2) NOT NULL,
		stock       INT           NOT NULL,
		created_at  DATETIME(6)   NOT NULL,
		CONSTRAINT chk_products_stock CHECK (stock >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		username    VARCHAR(64) NOT NULL,
		product_id  BIGINT      NOT NULL,
		rating      TINYINT     NOT NULL,
		review_text TEXT        NOT NULL,
		review_date DATETIME(6) NOT NULL,
		PRIMARY KEY (username, product_id),
		KEY idx_reviews_product (product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id   BIGINT      NOT NULL PRIMARY KEY,
		request_id CHAR(36)    NOT NULL UNIQUE,
		username   VARCHAR(64) NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity   INT    NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sequences (
		name  VARCHAR(32) NOT NULL PRIMARY KEY,
		value BIGINT      NOT NULL
	)`,
}

type MySQLAdapter struct {
	db *sql.DB
}

var _ port.Store = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates missing tables. Existing tables are left as they are.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) InsertUser(ctx context.Context, user domain.User) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, password, first_name, last_name)
		VALUES (?, ?, ?, ?)`,
		user.Username, user.Password, user.FirstName, user.LastName,
	)
	if isMySQLDuplicate(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) FindUser(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, `
		SELECT username, password, first_name, last_name
		FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.Password, &u.FirstName, &u.LastName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (m *MySQLAdapter) InsertProduct(ctx context.Context, product domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (product_id, name, description, price, stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Description, product.Price, product.Stock, product.CreatedAt,
	)
	if isMySQLDuplicate(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT product_id, name, description, price, stock, created_at
		FROM products WHERE product_id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, productID int64, delta int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + ? WHERE product_id = ?`,
		delta, productID,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?
		WHERE product_id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("update stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (m *MySQLAdapter) InsertReview(ctx context.Context, review domain.Review) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO reviews (username, product_id, rating, review_text, review_date)
		VALUES (?, ?, ?, ?, ?)`,
		review.Username, review.ProductID, review.Rating, review.Text, review.Date,
	)
	if isMySQLDuplicate(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return m.queryReviews(ctx, `
		SELECT username, product_id, rating, review_text, review_date
		FROM reviews WHERE product_id = ?`, productID)
}

func (m *MySQLAdapter) ListReviewsByUser(ctx context.Context, username string) ([]domain.Review, error) {
	return m.queryReviews(ctx, `
		SELECT username, product_id, rating, review_text, review_date
		FROM reviews WHERE username = ?`, username)
}

func (m *MySQLAdapter) queryReviews(ctx context.Context, query string, arg any) ([]domain.Review, error) {
	rows, err := m.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.Username, &r.ProductID, &r.Rating, &r.Text, &r.Date); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (m *MySQLAdapter) InsertOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, request_id, username, created_at)
		VALUES (?, ?, ?, ?)`,
		order.ID, order.RequestID.String(), order.Username, order.CreatedAt,
	)
	if isMySQLDuplicate(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES (?, ?, ?)`,
			order.ID, item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var (
		o         domain.Order
		requestID string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT order_id, request_id, username, created_at
		FROM orders WHERE order_id = ?`, orderID,
	).Scan(&o.ID, &requestID, &o.Username, &o.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if o.RequestID, err = uuid.Parse(requestID); err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_items
		WHERE order_id = ? ORDER BY product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

// NextID uses LAST_INSERT_ID(expr) so the incremented value comes back on
// the same statement without a second read.
func (m *MySQLAdapter) NextID(ctx context.Context, name string) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`, name)
	if err != nil {
		return 0, fmt.Errorf("advance sequence: %w", err)
	}
	return result.LastInsertId()
}

func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

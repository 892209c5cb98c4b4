package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	userKeyPrefix        = "user:"
	productKeyPrefix     = "product:"
	stockKeyPrefix       = "stock:"
	reviewKeyPrefix      = "review:"
	productReviewsPrefix = "reviews:product:"
	userReviewsPrefix    = "reviews:user:"
	orderKeyPrefix       = "order:"
	sequenceKeyPrefix    = "seq:"
)

var recordCodec = jsoniter.ConfigCompatibleWithStandardLibrary

var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

var incrementStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('INCRBY', KEYS[1], tonumber(ARGV[1]))
return 1
`)

var insertProductScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

var insertReviewScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('SADD', KEYS[2], KEYS[1])
redis.call('SADD', KEYS[3], KEYS[1])
return 1
`)

type productRecord struct {
	ID          int64           `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RedisAdapter struct {
	client *redis.Client
}

var _ port.Store = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) InsertUser(ctx context.Context, user domain.User) error {
	payload, err := recordCodec.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	ok, err := r.client.SetNX(ctx, userKeyPrefix+user.Username, payload, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *RedisAdapter) FindUser(ctx context.Context, username string) (*domain.User, error) {
	payload, err := r.client.Get(ctx, userKeyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := recordCodec.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (r *RedisAdapter) InsertProduct(ctx context.Context, product domain.Product) error {
	payload, err := recordCodec.Marshal(productRecord{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		CreatedAt:   product.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	keys := []string{productKey(product.ID), stockKey(product.ID)}
	result, err := insertProductScript.Run(ctx, r.client, keys, payload, product.Stock).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *RedisAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	values, err := r.client.MGet(ctx, productKey(productID), stockKey(productID)).Result()
	if err != nil {
		return nil, err
	}

	payload, ok := values[0].(string)
	if !ok {
		return nil, nil
	}

	var rec productRecord
	if err := recordCodec.UnmarshalFromString(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}

	product := domain.Product{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Price:       rec.Price,
		CreatedAt:   rec.CreatedAt,
	}
	if raw, ok := values[1].(string); ok {
		product.Stock, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode stock: %w", err)
		}
	}
	return &product, nil
}

func (r *RedisAdapter) IncrementStock(ctx context.Context, productID int64, delta int) error {
	result, err := incrementStockScript.Run(ctx, r.client, []string{stockKey(productID)}, delta).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RedisAdapter) DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := decrementStockScript.Run(ctx, r.client, []string{stockKey(productID)}, quantity).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (r *RedisAdapter) InsertReview(ctx context.Context, review domain.Review) error {
	payload, err := recordCodec.Marshal(review)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}

	keys := []string{
		fmt.Sprintf("%s%s:%d", reviewKeyPrefix, review.Username, review.ProductID),
		productReviewsPrefix + strconv.FormatInt(review.ProductID, 10),
		userReviewsPrefix + review.Username,
	}
	result, err := insertReviewScript.Run(ctx, r.client, keys, payload).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *RedisAdapter) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return r.listReviews(ctx, productReviewsPrefix+strconv.FormatInt(productID, 10))
}

func (r *RedisAdapter) ListReviewsByUser(ctx context.Context, username string) ([]domain.Review, error) {
	return r.listReviews(ctx, userReviewsPrefix+username)
}

func (r *RedisAdapter) listReviews(ctx context.Context, indexKey string) ([]domain.Review, error) {
	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domain.Review{}, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, 0, len(values))
	for _, v := range values {
		payload, ok := v.(string)
		if !ok {
			continue
		}
		var review domain.Review
		if err := recordCodec.UnmarshalFromString(payload, &review); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (r *RedisAdapter) InsertOrder(ctx context.Context, order domain.Order) error {
	payload, err := recordCodec.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	ok, err := r.client.SetNX(ctx, orderKey(order.ID), payload, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *RedisAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	payload, err := r.client.Get(ctx, orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if err := recordCodec.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

func (r *RedisAdapter) NextID(ctx context.Context, name string) (int64, error) {
	return r.client.Incr(ctx, sequenceKeyPrefix+name).Result()
}

func productKey(id int64) string { return productKeyPrefix + strconv.FormatInt(id, 10) }
func stockKey(id int64) string { return stockKeyPrefix + strconv.FormatInt(id, 10) }
func orderKey(id int64) string { return orderKeyPrefix + strconv.FormatInt(id, 10) }

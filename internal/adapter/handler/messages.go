package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Messages shared by the HTTP and gRPC transports. Both encode them as JSON.

type Empty struct{}

type CreateAccountRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type AddProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type AddProductResponse struct {
	ProductID int64 `json:"product_id"`
}

type AddStockRequest struct {
	ProductID int64 `json:"product_id"`
	Delta     int   `json:"delta"`
}

type GetProductRequest struct {
	ProductID int64 `json:"product_id"`
}

type ProductMessage struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ReviewMessage struct {
	Username  string    `json:"username"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
}

type ProductDetailsResponse struct {
	Product ProductMessage  `json:"product"`
	Reviews []ReviewMessage `json:"reviews"`
}

type GetRatingRequest struct {
	Username string `json:"username"`
}

type RatingResponse struct {
	Username string  `json:"username"`
	Average  float64 `json:"average"`
}

type LineItemMessage struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type SubmitOrderRequest struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	Items    []LineItemMessage `json:"items"`
}

type GetOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type OrderResponse struct {
	ID        int64             `json:"id"`
	RequestID uuid.UUID         `json:"request_id"`
	Username  string            `json:"username"`
	Items     []LineItemMessage `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
}

type PostReviewRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
}

func (r CreateAccountRequest) toUser() domain.User {
	return domain.User{
		Username:  r.Username,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

func toItems(items []LineItemMessage) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func fromItems(items []domain.LineItem) []LineItemMessage {
	out := make([]LineItemMessage, 0, len(items))
	for _, item := range items {
		out = append(out, LineItemMessage{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func newProductDetailsResponse(details *port.ProductDetails) *ProductDetailsResponse {
	p := details.Product
	resp := &ProductDetailsResponse{
		Product: ProductMessage{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			CreatedAt:   p.CreatedAt,
		},
		Reviews: make([]ReviewMessage, 0, len(details.Reviews)),
	}
	for _, r := range details.Reviews {
		resp.Reviews = append(resp.Reviews, ReviewMessage{
			Username:  r.Username,
			ProductID: r.ProductID,
			Rating:    r.Rating,
			Text:      r.Text,
			Date:      r.Date,
		})
	}
	return resp
}

func (r *ProductDetailsResponse) toDetails() *port.ProductDetails {
	p := r.Product
	details := &port.ProductDetails{
		Product: domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			CreatedAt:   p.CreatedAt,
		},
		Reviews: make([]domain.Review, 0, len(r.Reviews)),
	}
	for _, rv := range r.Reviews {
		details.Reviews = append(details.Reviews, domain.Review{
			Username:  rv.Username,
			ProductID: rv.ProductID,
			Rating:    rv.Rating,
			Text:      rv.Text,
			Date:      rv.Date,
		})
	}
	return details
}

func newOrderResponse(order *domain.Order) *OrderResponse {
	return &OrderResponse{
		ID:        order.ID,
		RequestID: order.RequestID,
		Username:  order.Username,
		Items:     fromItems(order.Items),
		CreatedAt: order.CreatedAt,
	}
}

func (r *OrderResponse) toOrder() *domain.Order {
	return &domain.Order{
		ID:        r.ID,
		RequestID: r.RequestID,
		Username:  r.Username,
		Items:     toItems(r.Items),
		CreatedAt: r.CreatedAt,
	}
}

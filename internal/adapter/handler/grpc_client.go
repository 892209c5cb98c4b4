package handler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// GRPCClient calls a remote storefront server. Errors come back as the
// service errors the server saw, and transport failures as
// service.ErrStoreUnavailable.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

var _ port.Storefront = (*GRPCClient)(nil)

func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// Dial opens a plaintext connection that speaks the storefront codec.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial storefront %s: %w", target, err)
	}
	return conn, nil
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
	if err != nil {
		return fromStatus(err)
	}
	return nil
}

func (c *GRPCClient) CreateAccount(ctx context.Context, user domain.User) error {
	return c.invoke(ctx, "CreateAccount", &CreateAccountRequest{
		Username:  user.Username,
		Password:  user.Password,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, &Empty{})
}

func (c *GRPCClient) AddProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int) (int64, error) {
	var out AddProductResponse
	err := c.invoke(ctx, "AddProduct", &AddProductRequest{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.ProductID, nil
}

func (c *GRPCClient) AddStock(ctx context.Context, productID int64, delta int) error {
	return c.invoke(ctx, "AddStock", &AddStockRequest{ProductID: productID, Delta: delta}, &Empty{})
}

func (c *GRPCClient) GetProductAndReviews(ctx context.Context, productID int64) (*port.ProductDetails, error) {
	var out ProductDetailsResponse
	if err := c.invoke(ctx, "GetProduct", &GetProductRequest{ProductID: productID}, &out); err != nil {
		return nil, err
	}
	return out.toDetails(), nil
}

func (c *GRPCClient) GetAverageRating(ctx context.Context, username string) (float64, error) {
	var out RatingResponse
	if err := c.invoke(ctx, "GetAverageRating", &GetRatingRequest{Username: username}, &out); err != nil {
		return 0, err
	}
	return out.Average, nil
}

func (c *GRPCClient) SubmitOrder(ctx context.Context, username, password string, items []domain.LineItem) (*domain.Order, error) {
	var out OrderResponse
	err := c.invoke(ctx, "SubmitOrder", &SubmitOrderRequest{
		Username: username,
		Password: password,
		Items:    fromItems(items),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toOrder(), nil
}

func (c *GRPCClient) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var out OrderResponse
	if err := c.invoke(ctx, "GetOrder", &GetOrderRequest{OrderID: orderID}, &out); err != nil {
		return nil, err
	}
	return out.toOrder(), nil
}

func (c *GRPCClient) PostReview(ctx context.Context, username, password string, productID int64, rating int, text string) error {
	return c.invoke(ctx, "PostReview", &PostReviewRequest{
		Username:  username,
		Password:  password,
		ProductID: productID,
		Rating:    rating,
		Text:      text,
	}, &Empty{})
}

package handler

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/port"
)

const serviceName = "storefront.v1.Storefront"

// StorefrontServer is the gRPC surface of the storefront.
type StorefrontServer interface {
	CreateAccount(context.Context, *CreateAccountRequest) (*Empty, error)
	AddProduct(context.Context, *AddProductRequest) (*AddProductResponse, error)
	AddStock(context.Context, *AddStockRequest) (*Empty, error)
	GetProduct(context.Context, *GetProductRequest) (*ProductDetailsResponse, error)
	GetAverageRating(context.Context, *GetRatingRequest) (*RatingResponse, error)
	SubmitOrder(context.Context, *SubmitOrderRequest) (*OrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	PostReview(context.Context, *PostReviewRequest) (*Empty, error)
}

type GRPCHandler struct {
	shop port.Storefront
}

var _ StorefrontServer = (*GRPCHandler)(nil)

func NewGRPCHandler(shop port.Storefront) *GRPCHandler {
	return &GRPCHandler{shop: shop}
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

func (h *GRPCHandler) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*Empty, error) {
	if err := h.shop.CreateAccount(ctx, req.toUser()); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) AddProduct(ctx context.Context, req *AddProductRequest) (*AddProductResponse, error) {
	id, err := h.shop.AddProduct(ctx, req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AddProductResponse{ProductID: id}, nil
}

func (h *GRPCHandler) AddStock(ctx context.Context, req *AddStockRequest) (*Empty, error) {
	if err := h.shop.AddStock(ctx, req.ProductID, req.Delta); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *GetProductRequest) (*ProductDetailsResponse, error) {
	details, err := h.shop.GetProductAndReviews(ctx, req.ProductID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newProductDetailsResponse(details), nil
}

func (h *GRPCHandler) GetAverageRating(ctx context.Context, req *GetRatingRequest) (*RatingResponse, error) {
	avg, err := h.shop.GetAverageRating(ctx, req.Username)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RatingResponse{Username: req.Username, Average: avg}, nil
}

func (h *GRPCHandler) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*OrderResponse, error) {
	order, err := h.shop.SubmitOrder(ctx, req.Username, req.Password, toItems(req.Items))
	if err != nil {
		return nil, toStatus(err)
	}
	return newOrderResponse(order), nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	order, err := h.shop.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newOrderResponse(order), nil
}

func (h *GRPCHandler) PostReview(ctx context.Context, req *PostReviewRequest) (*Empty, error) {
	if err := h.shop.PostReview(ctx, req.Username, req.Password, req.ProductID, req.Rating, req.Text); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// LoggingInterceptor logs every unary call at debug level and internal
// failures at error level.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		logger.DebugContext(ctx, "grpc call", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
		if isServerFault(code) {
			logger.ErrorContext(ctx, "grpc call failed", "method", info.FullMethod, "error", err)
		}
		return resp, err
	}
}

func isServerFault(code codes.Code) bool {
	switch code {
	case codes.Internal, codes.Unavailable, codes.Unknown:
		return true
	}
	return false
}

func unaryMethod[Req, Resp any](name string, call func(StorefrontServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(StorefrontServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			})
		},
	}
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateAccount", StorefrontServer.CreateAccount),
		unaryMethod("AddProduct", StorefrontServer.AddProduct),
		unaryMethod("AddStock", StorefrontServer.AddStock),
		unaryMethod("GetProduct", StorefrontServer.GetProduct),
		unaryMethod("GetAverageRating", StorefrontServer.GetAverageRating),
		unaryMethod("SubmitOrder", StorefrontServer.SubmitOrder),
		unaryMethod("GetOrder", StorefrontServer.GetOrder),
		unaryMethod("PostReview", StorefrontServer.PostReview),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/storefront.json",
}

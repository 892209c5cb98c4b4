package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/storefront/internal/port"
)

type HTTPHandler struct {
	shop   port.Storefront
	logger *slog.Logger
	router *chi.Mux
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewHTTPHandler(shop port.Storefront, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	h := &HTTPHandler{
		shop:   shop,
		logger: logger,
		router: router,
	}
	router.Use(h.logRequests)

	h.registerRoutes()
	return h
}

func (h *HTTPHandler) registerRoutes() {
	h.router.Get("/health", h.HealthCheck)

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/accounts", h.CreateAccount)
		r.Post("/products", h.AddProduct)
		r.Get("/products/{id}", h.GetProduct)
		r.Post("/products/{id}/stock", h.AddStock)
		r.Get("/users/{username}/rating", h.GetAverageRating)
		r.Post("/orders", h.SubmitOrder)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/reviews", h.PostReview)
	})
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *HTTPHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		h.badRequest(w, "missing required fields")
		return
	}

	if err := h.shop.CreateAccount(r.Context(), req.toUser()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "account created"})
}

func (h *HTTPHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		h.badRequest(w, "missing required fields")
		return
	}

	id, err := h.shop.AddProduct(r.Context(), req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "product added", Data: AddProductResponse{ProductID: id}})
}

func (h *HTTPHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AddStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.shop.AddStock(r.Context(), id, req.Delta); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "stock updated"})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	details, err := h.shop.GetProductAndReviews(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: newProductDetailsResponse(details)})
}

func (h *HTTPHandler) GetAverageRating(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	avg, err := h.shop.GetAverageRating(r.Context(), username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: RatingResponse{Username: username, Average: avg}})
}

func (h *HTTPHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" || len(req.Items) == 0 {
		h.badRequest(w, "missing required fields")
		return
	}

	order, err := h.shop.SubmitOrder(r.Context(), req.Username, req.Password, toItems(req.Items))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "order placed successfully", Data: newOrderResponse(order)})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	order, err := h.shop.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok", Data: newOrderResponse(order)})
}

func (h *HTTPHandler) PostReview(w http.ResponseWriter, r *http.Request) {
	var req PostReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.ProductID == 0 {
		h.badRequest(w, "missing required fields")
		return
	}

	err := h.shop.PostReview(r.Context(), req.Username, req.Password, req.ProductID, req.Rating, req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "review posted"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.badRequest(w, "invalid request body")
		return false
	}
	return true
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: message})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, Response{Success: false, Message: message})
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

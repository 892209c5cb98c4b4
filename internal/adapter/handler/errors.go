package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/service"
)

type errorMapping struct {
	err     error
	http    int
	code    codes.Code
	message string
}

var errorMappings = []errorMapping{
	{service.ErrAccountExists, http.StatusConflict, codes.AlreadyExists, "account already exists"},
	{service.ErrReviewExists, http.StatusConflict, codes.AlreadyExists, "review already exists"},
	{service.ErrAuthorizationFailed, http.StatusUnauthorized, codes.Unauthenticated, "authorization failed"},
	{service.ErrProductNotFound, http.StatusNotFound, codes.NotFound, "product not found"},
	{service.ErrOrderNotFound, http.StatusNotFound, codes.NotFound, "order not found"},
	{service.ErrInsufficientStock, http.StatusGone, codes.FailedPrecondition, "sold out"},
	{service.ErrInvalidArgument, http.StatusBadRequest, codes.InvalidArgument, "invalid argument"},
}

// classify finds the mapping for err. A store failure wins over any business
// error it is joined with.
func classify(err error) (errorMapping, bool) {
	if errors.Is(err, service.ErrStoreUnavailable) {
		return errorMapping{}, false
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

func httpStatus(err error) (int, string) {
	if m, ok := classify(err); ok {
		return m.http, m.message
	}
	if errors.Is(err, service.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable, "store unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}

func toStatus(err error) error {
	if m, ok := classify(err); ok {
		return status.Error(m.code, err.Error())
	}
	if errors.Is(err, service.ErrStoreUnavailable) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus turns a gRPC status back into the service error it came from,
// so remote callers can use errors.Is and service.IsRejection.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", service.ErrStoreUnavailable, err)
	}
	for _, m := range errorMappings {
		if st.Code() == m.code && strings.Contains(st.Message(), m.err.Error()) {
			return fmt.Errorf("%w: %s", m.err, st.Message())
		}
	}
	return fmt.Errorf("%w: %s: %s", service.ErrStoreUnavailable, st.Code(), st.Message())
}

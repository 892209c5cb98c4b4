package service

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorizationFailed = errors.New("authorization failed")
	ErrAccountExists       = errors.New("account already exists")
	ErrReviewExists        = errors.New("review already exists")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// IsRejection reports whether err is an expected business outcome rather
// than a fault. Rejections leave every invariant intact; an error that also
// carries a store failure (such as a failed rollback) is not a rejection.
func IsRejection(err error) bool {
	if errors.Is(err, ErrStoreUnavailable) {
		return false
	}
	return errors.Is(err, ErrAuthorizationFailed) ||
		errors.Is(err, ErrAccountExists) ||
		errors.Is(err, ErrReviewExists) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrInvalidArgument)
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

package common

import "errors"

// Error codes shared across the API surface. Handlers translate domain
// failures into these codes so clients can branch on them.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeCartEmpty         = "CART_EMPTY"
	CodeProductGone       = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeCouponInvalid     = "COUPON_INVALID"
	CodePaymentProvider   = "PAYMENT_PROVIDER"
	CodeCodExpired        = "COD_EXPIRED"
	CodeCodInvalid        = "COD_CODE_INVALID"
)

// AppError carries an API error code, a user-facing message and an HTTP status
// alongside the wrapped cause.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches structured details (e.g. productId, size) to the error.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

// AsAppError extracts an AppError from the chain when present.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Validation failures: the caller can recover by supplying different input
var (
	ErrOutOfStock            = errors.New("out of stock")
	ErrPaymentExceedsBalance = errors.New("payment exceeds remaining balance")
	ErrDuplicateIdentifier   = errors.New("duplicate identifier")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrInvalidAction         = errors.New("invalid action")
	ErrInvalidInput          = errors.New("invalid input")
	ErrProductInUse          = errors.New("product is referenced by orders")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

// ErrNotFound wraps gorm.ErrRecordNotFound for callers that should not import gorm
var ErrNotFound = errors.New("not found")

// ValidationError carries a user-facing message around one of the sentinels above
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationf(sentinel error, format string, args ...interface{}) error {
	return &ValidationError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is an expected rejection rather than an integrity failure
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, sentinel := range []error{
		ErrOutOfStock, ErrPaymentExceedsBalance, ErrDuplicateIdentifier, ErrInvalidAmount,
		ErrInvalidQuantity, ErrInvalidPaymentMethod, ErrInvalidAction, ErrInvalidInput,
		ErrProductInUse, ErrInvalidCredentials,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// translateDBError maps driver errors onto the service sentinels
func translateDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if isDuplicateKey(err) {
		return &ValidationError{Err: ErrDuplicateIdentifier, Message: fmt.Sprintf("%s: already exists", what)}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

var (
	ErrValidation           = errors.New("billing: invalid parameters")
	ErrNotFound             = errors.New("billing: not found")
	ErrAuthRequired         = errors.New("billing: authentication required")
	ErrPermissionDenied     = errors.New("billing: permission denied")
	ErrCustomerNotFound     = errors.New("billing: customer not found")
	ErrProviderNotSupported = errors.New("billing: provider not supported")
	ErrInvalidSignature     = errors.New("billing: invalid webhook signature")
)

// ValidationError reports rejected operation parameters. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Op         string
	Violations []catalog.Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("billing: invalid %s parameters: %s", e.Op, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProviderError wraps a failure returned by a billing provider. Its message
// stays generic; the vendor error is only reachable through Unwrap.
type ProviderError struct {
	Provider catalog.Provider
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing: %s %s failed", e.Provider, e.Op)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err, leaving nil untouched.
func NewProviderError(provider catalog.Provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

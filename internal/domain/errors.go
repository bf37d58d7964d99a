package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientUsers = errors.New("not enough users")
	ErrUnauthorized      = errors.New("requester is not an eligible user")
	ErrDisallowedContext = errors.New("command not allowed in this context")
	ErrInvalidArgument   = errors.New("invalid command argument")
	ErrQuotaExceeded     = errors.New("meeting quota exceeded")
)

// ProviderError is a meeting provider failure that carries no join link.
type ProviderError struct {
	Status  int
	Code    int
	Message string
}

func (e ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("meeting provider error (status %d)", e.Status)
	}
	return fmt.Sprintf("meeting provider error (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

// Is enables errors.Is matching on ProviderError.
func (e ProviderError) Is(target error) bool {
	_, ok := target.(ProviderError)
	if ok {
		return true
	}
	_, ok = target.(*ProviderError)
	return ok
}

// ErrProvider is the sentinel for any ProviderError.
var ErrProvider = ProviderError{}

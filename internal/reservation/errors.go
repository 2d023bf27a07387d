package reservation

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("appointment not found")
	ErrConflict        = errors.New("appointment is already reserved")
	ErrInvalidState    = errors.New("appointment is not reserved")
	ErrForbidden       = errors.New("not authorized to cancel this appointment")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStoreFailure    = errors.New("appointment store unavailable")
)

func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

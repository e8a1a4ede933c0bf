// Package service holds the storefront business logic: the cart, order
// creation and status changes, checkout, the catalog and the admin sales
// figures.
package service

import (
	"errors"
	"time"

	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// storageError keeps AppErrors raised by a store (NotFound, InvalidInput)
// and reports anything else as a persistence fault.
func storageError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Persistence(err)
}

// remoteError reports any failed backend call as RemoteUnavailable.
func remoteError(message string, err error) error {
	if errors.Is(err, apperrors.ErrServiceUnavail) {
		return err
	}
	return apperrors.RemoteUnavailable(message, err)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

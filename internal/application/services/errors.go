package services

import (
	"errors"

	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// remoteQuery keeps classified errors and classifies the rest as remote
// query failures.
func remoteQuery(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewRemoteQueryError(msg, err)
}

func remoteWrite(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewRemoteWriteError(msg, err)
}

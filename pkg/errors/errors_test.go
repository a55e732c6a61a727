package errors_test

import (
	"database/sql"
	"fmt"
	"testing"

	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := apperrors.NewRemoteQueryError("failed to list categories", sql.ErrConnDone)

	assert.Equal(t, "REMOTE_QUERY: failed to list categories: sql: connection is already closed", err.Error())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{name: "validation", err: apperrors.NewValidationError("rating is required"), want: apperrors.ErrorTypeValidation},
		{name: "wrapped not found", err: fmt.Errorf("load: %w", apperrors.NewNotFoundError("provider")), want: apperrors.ErrorTypeNotFound},
		{name: "remote write", err: apperrors.NewRemoteWriteError("insert", nil), want: apperrors.ErrorTypeRemoteWrite},
		{name: "plain error", err: fmt.Errorf("boom"), want: apperrors.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.TypeOf(tt.err))
			assert.True(t, apperrors.IsType(tt.err, tt.want) || tt.want == apperrors.ErrorTypeInternal)
		})
	}
}

func TestMessage_HidesDriverErrors(t *testing.T) {
	err := apperrors.NewRemoteWriteError("failed to submit review", fmt.Errorf("pq: duplicate key"))
	assert.Equal(t, "failed to submit review", apperrors.Message(err))
	assert.Equal(t, "unexpected error", apperrors.Message(fmt.Errorf("pq: secret detail")))
}

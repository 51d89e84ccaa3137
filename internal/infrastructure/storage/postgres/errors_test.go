package postgres

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
		status  int
	}{
		{
			name:    "duplicate by detail",
			err:     &pgconn.PgError{Code: "23505", Detail: "Key (medical_license)=(ABC) already exists."},
			code:    apperror.CodeDuplicate,
			message: "Duplicated Medical License",
			status:  http.StatusConflict,
		},
		{
			name:    "composite key",
			err:     fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Detail: "Key (dispensary_id, package_label)=(1, X) already exists."}),
			code:    apperror.CodeDuplicate,
			message: "Duplicated Package Label",
			status:  http.StatusConflict,
		},
		{
			name:    "unknown column",
			err:     &pgconn.PgError{Code: "23505", Detail: "Key (foo)=(1) already exists."},
			code:    apperror.CodeDuplicate,
			message: "Duplicated Record",
			status:  http.StatusConflict,
		},
		{
			name:    "foreign key",
			err:     &pgconn.PgError{Code: "23503"},
			code:    apperror.CodeConstraint,
			message: apperror.MessageNotProcessed,
			status:  http.StatusNotAcceptable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := apperror.AsAppError(MapError(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, MapError(plain))

	other := &pgconn.PgError{Code: "40001"}
	assert.Equal(t, error(other), MapError(other))
}

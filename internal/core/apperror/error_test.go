package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation passes through",
			err:        NewValidation("Exceeded flower limit"),
			wantCode:   CodeValidation,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Exceeded flower limit",
		},
		{
			name:       "wrapped app error is unwrapped",
			err:        fmt.Errorf("add item: %w", NewDuplicate("SKU")),
			wantCode:   CodeDuplicate,
			wantStatus: http.StatusConflict,
			wantMsg:    "Duplicated SKU",
		},
		{
			name:       "unknown error is denied",
			err:        errors.New("connection reset"),
			wantCode:   CodeInternal,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    MessageDenied,
		},
		{
			name:       "foreign key",
			err:        NewConstraint(),
			wantCode:   CodeConstraint,
			wantStatus: http.StatusNotAcceptable,
			wantMsg:    MessageNotProcessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestUnauthorizedHidesDetail(t *testing.T) {
	assert.Equal(t, MessageUnauthorized, NewUnauthorized().Message)
	assert.Equal(t, MessageUnauthorized, NewForbidden().Message)
}

func TestExternalServiceKeepsCause(t *testing.T) {
	cause := errors.New("status 500")
	err := NewExternalService(MessageMetrcFailed, cause)

	assert.True(t, IsExternalService(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, MessageMetrcFailed, err.Message)
}

package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"lunara/internal/validation"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthorized", Unauthorized(), http.StatusUnauthorized},
		{"wrapped not found", fmt.Errorf("loading invite: %w", New(ErrNotFound, MsgInvalidInvite)), http.StatusNotFound},
		{"validation kind", New(ErrValidation, "bad"), http.StatusBadRequest},
		{"field error", validation.ValidatePIN("12"), http.StatusBadRequest},
		{"conflict", New(ErrConflict, "Already a member"), http.StatusConflict},
		{"locked", New(ErrLocked, "Too many attempts"), http.StatusLocked},
		{"rate limited", New(ErrRateLimited, "Slow down"), http.StatusTooManyRequests},
		{"raw database error", sql.ErrConnDone, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, MsgInternal, Message(errors.New("pq: connection refused")))
	assert.Equal(t, MsgInternal, Message(Wrap(ErrInternal, "failed to award", sql.ErrTxDone)))
	assert.Equal(t, MsgUnauthorizedOrNotFound, Message(Unauthorized()))
	assert.Equal(t, "PIN must be exactly 4 digits", Message(validation.ValidatePIN("abcd")))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(ErrConflict, "Already a member", sql.ErrNoRows)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.True(t, IsInternal(sql.ErrNoRows))
	assert.False(t, IsInternal(err))
}

func TestFail(t *testing.T) {
	res := Fail(Unauthorized())
	assert.False(t, res.Success)
	assert.Equal(t, "Unauthorized or Item Not Found", res.Error)
	assert.Nil(t, res.Data)

	ok := OK(map[string]int{"awarded": 5})
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)
}

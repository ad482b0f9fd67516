package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorCause(t *testing.T) {
	cause := stderrors.New("unique violation")
	err := ErrConflict.WithCause(cause)

	require.Equal(t, "Resource conflict: unique violation", err.Error())
	require.ErrorIs(t, err, cause)
	require.Nil(t, ErrConflict.Unwrap(), "sentinel must not be mutated")
	require.Equal(t, "Resource conflict", ErrConflict.Error())
}

func TestAppErrorIsMatchesCopies(t *testing.T) {
	sentinel := New("DUPLICATE_EMAIL", "exists", http.StatusConflict)
	wrapped := fmt.Errorf("register: %w", sentinel.WithCause(stderrors.New("boom")).WithMessage("Email already registered"))

	require.ErrorIs(t, wrapped, sentinel)
	require.NotErrorIs(t, wrapped, ErrConflict)
	require.NotErrorIs(t, wrapped, New("DUPLICATE_EMAIL", "exists", http.StatusBadRequest))
}

func TestWithMessageCopies(t *testing.T) {
	out := ErrConflict.WithMessage("order is delivered and can no longer be edited")
	require.Equal(t, ErrConflict.Code, out.Code)
	require.Equal(t, http.StatusConflict, out.Status)
	require.Equal(t, "Resource conflict", ErrConflict.Message)

	bad := NewBadRequest("invalid payload")
	require.Equal(t, "invalid payload", bad.Message)
	require.ErrorIs(t, bad, ErrBadRequest)
}

func TestNilReceivers(t *testing.T) {
	var e *AppError
	require.Equal(t, "<nil>", e.Error())
	require.Nil(t, e.Unwrap())
	require.Nil(t, e.WithCause(stderrors.New("x")))
	require.Nil(t, e.WithMessage("x"))
	require.False(t, e.Is(ErrNotFound))
}

func TestFrom(t *testing.T) {
	require.Nil(t, From(nil))
	require.Same(t, ErrNotFound, From(fmt.Errorf("lookup: %w", ErrNotFound)))

	raw := stderrors.New("disk full")
	out := From(raw)
	require.ErrorIs(t, out, ErrInternalServer)
	require.ErrorIs(t, out, raw)
	require.Equal(t, "Internal server error", out.Message)
}

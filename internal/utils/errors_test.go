package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument: http.StatusBadRequest,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeUnavailable:     http.StatusServiceUnavailable,
		CodeTimeout:         http.StatusGatewayTimeout,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		err := E(code, "Svc.Op", "boom", nil)
		require.Equal(t, want, HTTPStatus(err), "code %s", code)
	}
}

func TestHTTPStatusNonAppError(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	require.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	require.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("lookup: %w", ErrNotFound)))
}

func TestIsCodeSeesWrappedErrors(t *testing.T) {
	inner := E(CodeNotFound, "Repo.Get", "no such session", nil)
	outer := fmt.Errorf("service: %w", inner)

	require.True(t, IsCode(outer, CodeNotFound))
	require.False(t, IsCode(outer, CodeInternal))
	require.False(t, IsCode(errors.New("plain"), CodeNotFound))
}

func TestAppErrorMessageFormat(t *testing.T) {
	root := errors.New("root")
	err := E(CodeInternal, "Svc.Op", "boom", root)
	require.Equal(t, "Svc.Op: boom: root", err.Error())
	require.ErrorIs(t, err, root)

	err = E(CodeInternal, "Svc.Op", "boom", nil)
	require.Equal(t, "Svc.Op: boom", err.Error())
}

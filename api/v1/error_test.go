package api_v1

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(PERSISTENCE_ERROR, cause, "can not read %s", "c1:workflows")

	require.Equal(t, "PersistenceError: can not read c1:workflows: connection refused", err.Error())
	require.ErrorIs(t, err, cause)
	require.True(t, IsKind(err, PERSISTENCE_ERROR))

	wrapped := fmt.Errorf("reload: %w", err)
	require.Equal(t, PERSISTENCE_ERROR, KindOf(wrapped))
	require.Equal(t, ErrorKind(""), KindOf(cause))
	require.Equal(t, "NotFound: channel c1", NewError(NOT_FOUND, "channel %s", "c1").Error())
}

func TestValidateChannel(t *testing.T) {
	require.NoError(t, ValidateChannel("c1"))
	require.True(t, IsKind(ValidateChannel(""), VALIDATION_ERROR))
}

// internal/circulation/retry_test.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serializationErr() error {
	return &pq.Error{Code: "40001"}
}

func TestRetrySerializableSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := retrySerializable(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrySerializableFailsFastOnPermanentError(t *testing.T) {
	permanent := errors.New("broken")
	calls := 0
	err := retrySerializable(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetrySerializableRecoversFromConflict(t *testing.T) {
	calls := 0
	err := retrySerializable(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return serializationErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrySerializableGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := retrySerializable(context.Background(), func(context.Context) error {
		calls++
		return serializationErr()
	})

	assert.True(t, isSerializationFailure(err))
	assert.Equal(t, retryMaxAttempts, calls)
}

func TestRetrySerializableHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := retrySerializable(ctx, func(context.Context) error {
		calls++
		cancel()
		return serializationErr()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsSerializationFailureUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("commit checkout: %w", serializationErr())
	assert.True(t, isSerializationFailure(wrapped))
	assert.False(t, isSerializationFailure(errors.New("other")))
	assert.False(t, isSerializationFailure(nil))
}

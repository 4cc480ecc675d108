package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsight/inspect-cli/internal/model"
)

func TestDoVal_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}

	attempts := 0
	val, err := DoVal(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &model.RemoteAnalysisError{StatusCode: 500, Reason: "upstream overloaded"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, attempts)
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	attempts := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &model.DecodeError{Reason: "not an image"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var de *model.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestDoVal_SingleAttemptMeansNoRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}

	attempts := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &model.RemoteAnalysisError{StatusCode: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoVal_ExhaustionReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	attempts := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &model.RemoteAnalysisError{StatusCode: 429, Reason: "rate limited"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour}

	attempts := 0
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (int, error) {
		attempts++
		cancel()
		return 0, &model.RemoteAnalysisError{StatusCode: 500}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoVal_OnRetryCallback(t *testing.T) {
	var retried []int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, err error) { retried = append(retried, attempt) },
	}

	_, _ = DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		return 0, &model.RemoteAnalysisError{StatusCode: 502}
	})

	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoVal_ShouldRetryOverride(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		ShouldRetry:    func(err error) bool { return false },
	}

	attempts := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &model.RemoteAnalysisError{StatusCode: 500}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestComputeBackoff_Linear(t *testing.T) {
	cfg := applyDefaults(BatchItemRetryConfig(3))

	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(1, cfg))
	assert.Equal(t, 3*time.Second, computeBackoff(2, cfg))
}

func TestComputeBackoff_ExponentialWithCap(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	})

	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(1, cfg))
	assert.Equal(t, 4*time.Second, computeBackoff(2, cfg))
	// 8s computed, capped at 5s.
	assert.Equal(t, 5*time.Second, computeBackoff(3, cfg))
}

func TestBatchItemRetryConfig(t *testing.T) {
	cfg := BatchItemRetryConfig(2)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.True(t, cfg.Linear)

	// Zero retries still allows the first attempt.
	assert.Equal(t, 1, BatchItemRetryConfig(0).MaxAttempts)
}

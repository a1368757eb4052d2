package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	storeRetryInitialInterval = 100 * time.Millisecond
	storeRetryMaxInterval     = 2 * time.Second
	storeRetryMaxElapsedTime  = 10 * time.Second
	storeRetryMaxRetries      = uint64(3)
)

// RetryStore runs operation with exponential backoff while it fails with StoreUnavailable.
// Any other error stops the loop and is returned as is.
func RetryStore[T any](ctx context.Context, log *zap.Logger, name string, operation func(context.Context) (T, error)) (T, error) {
	var result T

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(storeRetryInitialInterval),
		backoff.WithMaxInterval(storeRetryMaxInterval),
		backoff.WithMaxElapsedTime(storeRetryMaxElapsedTime),
	), storeRetryMaxRetries)

	err := backoff.RetryNotify(func() error {
		var err error
		result, err = operation(ctx)
		if err != nil && !errors.Is(err, model.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		log.Warn("activity cache unavailable, retrying",
			zap.String("operation", name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	return result, err
}

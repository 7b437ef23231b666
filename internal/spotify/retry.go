package spotify

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
)

const (
	retryAttempts = 3
	retryMaxDelay = 30 * time.Second
)

// withRetry wraps one upstream operation with bounded backoff. Network, 5xx
// and 429 are retried; 429 honors the server's Retry-After over the backoff;
// a 401 gets exactly one token refresh before the retry. Anything else fails
// immediately.
func (c *Client) withRetry(ctx context.Context, name string, op func() error) error {
	refreshed := false
	return retry.Do(
		op,
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.MaxDelay(retryMaxDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			var serr *Error
			if errors.As(err, &serr) && serr.Kind == KindRateLimited && serr.RetryAfter > 0 {
				return serr.RetryAfter
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(func(err error) bool {
			var serr *Error
			if !errors.As(err, &serr) {
				return false
			}
			if serr.Kind == KindUnauthorized {
				if refreshed {
					return false
				}
				refreshed = true
				c.tokens.Invalidate()
				return true
			}
			return Retryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Uint("attempt", n+1).Err(err).Str("op", name).Msg("retrying upstream call")
		}),
	)
}
